package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicks(t *testing.T) {
	t.Run("ZeroTime", func(t *testing.T) {
		assert.Equal(t, int64(0), ToTicks(time.Time{}))
		assert.True(t, FromTicks(0).Equal(time.Time{}))
	})

	t.Run("UnixEpoch", func(t *testing.T) {
		assert.Equal(t, int64(621355968000000000), ToTicks(time.Unix(0, 0)))
	})

	t.Run("RoundTrip", func(t *testing.T) {
		ts := time.Date(2024, 3, 1, 12, 30, 15, 123456700, time.UTC)
		got := FromTicks(ToTicks(ts))
		assert.True(t, ts.Equal(got), "got %s", got)
	})

	t.Run("SubTickPrecisionIsTruncated", func(t *testing.T) {
		ts := time.Date(2024, 3, 1, 12, 30, 15, 199, time.UTC)
		assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 15, 100, time.UTC), FromTicks(ToTicks(ts)))
	})

	t.Run("Parse", func(t *testing.T) {
		ts, err := ParseTicks("621355968000000000")
		require.NoError(t, err)
		assert.True(t, ts.Equal(time.Unix(0, 0)))

		_, err = ParseTicks("abc")
		assert.Error(t, err)
		_, err = ParseTicks("-1")
		assert.Error(t, err)
	})
}

func TestQuotable(t *testing.T) {
	assert.Equal(t, "say 'hi' there", Quotable("say \"hi\"\nthere"))
	assert.Equal(t, "a b", Quotable("a\r\nb"))
	assert.True(t, IsSingleLine(Quotable("x\ny\rz")))
	assert.False(t, IsSingleLine("x\ny"))
}

func TestSingleLine(t *testing.T) {
	assert.Equal(t, `a\nb\r\nc`, SingleLine("a\nb\r\nc"))
	assert.Equal(t, `say "hi"`, SingleLine(`say "hi"`))
	assert.True(t, IsSingleLine(SingleLine("x\ny\rz")))

	// Escaping keeps distinct inputs distinct.
	assert.NotEqual(t, SingleLine("a\nb"), SingleLine("a b"))
	assert.NotEqual(t, SingleLine("a\nb"), SingleLine(`a\nb`))
}

func TestToTime(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want time.Time
		err  bool
	}{
		{"Time", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), false},
		{"RFC3339", "2024-01-02T03:04:05Z", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), false},
		{"SQLText", []byte("2024-01-02 03:04:05"), time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), false},
		{"Nil", nil, time.Time{}, true},
		{"Garbage", "yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToTime(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
		})
	}
}

func TestTruncateToTick(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 15, 123456789, time.UTC)
	got := TruncateToTick(ts)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 15, 123456700, time.UTC), got)
	assert.True(t, got.Equal(FromTicks(ToTicks(ts))))
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "abc", ToString([]byte("abc")))
	assert.Equal(t, "42", ToString(42))
}
