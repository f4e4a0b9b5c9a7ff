package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRunner(cycle func(ctx context.Context) error) *Runner {
	return &Runner{
		Name:      "test",
		Interval:  time.Millisecond,
		RetryWait: time.Millisecond,
		Cycle:     cycle,
		Logger:    zap.NewNop(),
	}
}

func TestUnavailable(t *testing.T) {
	assert.Nil(t, Unavailable(nil))

	cause := errors.New("dial tcp: connection refused")
	err := Unavailable(cause)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestRunner_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cycles := 0
	r := newRunner(func(ctx context.Context) error {
		cycles++
		if cycles == 3 {
			cancel()
		}
		return nil
	})

	require.NoError(t, r.Run(ctx))
	assert.Equal(t, 3, cycles)
}

func TestRunner_FatalError(t *testing.T) {
	boom := errors.New("corrupt checksum cache")
	r := newRunner(func(ctx context.Context) error {
		return boom
	})

	err := r.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRunner_Outage(t *testing.T) {
	tests := []struct {
		name       string
		resetAfter time.Duration
		wantResets int
	}{
		{name: "ShortOutageKeepsState", resetAfter: time.Hour, wantResets: 0},
		{name: "LongOutageResets", resetAfter: time.Nanosecond, wantResets: 1},
		{name: "ResetDisabled", resetAfter: 0, wantResets: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			cycles, probes, resets := 0, 0, 0
			r := newRunner(func(ctx context.Context) error {
				cycles++
				if cycles == 1 {
					return Unavailable(errors.New("farm down"))
				}
				cancel()
				return nil
			})
			r.ResetAfter = tt.resetAfter
			r.Probe = func(ctx context.Context) error {
				probes++
				if probes < 3 {
					return Unavailable(errors.New("still down"))
				}
				return nil
			}
			r.Reset = func(ctx context.Context) error {
				resets++
				return nil
			}

			require.NoError(t, r.Run(ctx))
			assert.Equal(t, 2, cycles)
			assert.Equal(t, 3, probes)
			assert.Equal(t, tt.wantResets, resets)
		})
	}
}

func TestRunner_ProbePermanentError(t *testing.T) {
	denied := errors.New("login failed")
	r := newRunner(func(ctx context.Context) error {
		return Unavailable(errors.New("farm down"))
	})
	r.Probe = func(ctx context.Context) error {
		return denied
	}

	err := r.Run(context.Background())
	assert.ErrorIs(t, err, denied)
}

func TestRunner_NoProbe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cycles := 0
	r := newRunner(func(ctx context.Context) error {
		cycles++
		if cycles < 3 {
			return Unavailable(errors.New("farm down"))
		}
		cancel()
		return nil
	})

	require.NoError(t, r.Run(ctx))
	assert.Equal(t, 3, cycles)
}

func TestRunner_HealthyProbeStillWaits(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	cycles := 0
	r := newRunner(func(ctx context.Context) error {
		cycles++
		return Unavailable(errors.New("snapshot half written"))
	})
	r.RetryWait = 50 * time.Millisecond
	r.Probe = func(ctx context.Context) error { return nil }

	require.NoError(t, r.Run(ctx))
	assert.LessOrEqual(t, cycles, 5)
	assert.GreaterOrEqual(t, cycles, 1)
}

func TestRunner_ResetError(t *testing.T) {
	r := newRunner(func(ctx context.Context) error {
		return Unavailable(errors.New("farm down"))
	})
	r.ResetAfter = time.Nanosecond
	r.Probe = func(ctx context.Context) error { return nil }
	r.Reset = func(ctx context.Context) error { return errors.New("store unreadable") }

	err := r.Run(context.Background())
	assert.ErrorContains(t, err, "store unreadable")
}

func TestConfig(t *testing.T) {
	assert.Equal(t, time.Minute, Config{}.RetryWait())
	assert.Equal(t, 5*time.Second, Config{RetryWaitSeconds: 5}.RetryWait())
	assert.Equal(t, 15*time.Minute, Config{ResetAfterSeconds: 900}.ResetAfter())
}
