package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"farm-agent/core/checkpoint"
	"farm-agent/core/poller"
	"farm-agent/core/reconcile"
	"farm-agent/core/sink"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubCollector hands out a prepared snapshot.
type stubCollector struct {
	snap *Snapshot
	err  error
}

func (c *stubCollector) Collect(ctx context.Context) (*Snapshot, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.snap, nil
}

func (c *stubCollector) Probe(ctx context.Context) error { return c.err }

func (c *stubCollector) Describe() string { return "stub" }

type fixture struct {
	svc       *Service
	collector *stubCollector
	events    *sink.Recorder
	fs        afero.Fs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	cache := reconcile.NewCache(checkpoint.NewFileBackend(fs, "/cp/inventory.txt"), zap.NewNop())
	require.NoError(t, cache.Load(context.Background()))

	events := &sink.Recorder{}
	r := reconcile.NewReconciler(cache, events, zap.NewNop())
	r.SetClock(func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) })

	collector := &stubCollector{}
	return &fixture{
		svc:       NewService(collector, r, zap.NewNop()),
		collector: collector,
		events:    events,
		fs:        fs,
	}
}

func farmSnapshot() *Snapshot {
	return &Snapshot{
		Farm: Node{
			ID:         "F1",
			Attributes: map[string]any{"Version": "16.0"},
			Children: map[string][]Node{
				"Server": {{ID: "SRV1", Attributes: map[string]any{"Role": "App"}}},
				"WebApplication": {{
					ID:         "WA1",
					Attributes: map[string]any{"Url": "http://portal"},
					Children: map[string][]Node{
						"Site": {
							{ID: "S1", Attributes: map[string]any{"Title": "One"}},
							{ID: "S2", Attributes: map[string]any{"Title": "Two"}},
						},
					},
				}},
			},
		},
	}
}

func changes(events []sink.Event) map[string]sink.Action {
	out := make(map[string]sink.Action)
	for _, e := range events {
		out[e.Type+" "+e.Fields["Id"]] = e.Action
	}
	return out
}

func TestService_FirstCycleAddsEverything(t *testing.T) {
	f := newFixture(t)
	f.collector.snap = farmSnapshot()

	res, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Added)

	assert.Equal(t, map[string]sink.Action{
		"Farm F1":               sink.ActionAdd,
		"Server F1#SRV1":        sink.ActionAdd,
		"WebApplication F1#WA1": sink.ActionAdd,
		"Site F1#WA1#S1":        sink.ActionAdd,
		"Site F1#WA1#S2":        sink.ActionAdd,
	}, changes(f.events.Events()))

	site := f.events.Events()[3]
	assert.Equal(t, "F1", site.Fields["FarmId"])
	assert.Equal(t, "F1#WA1", site.Fields["ParentId"])

	data, err := afero.ReadFile(f.fs, "/cp/inventory.txt")
	require.NoError(t, err)
	assert.Contains(t, string(data), `{type="Site",id="F1#WA1#S1",`)

	st := f.svc.Status()
	assert.Equal(t, "F1", st.Farm)
	assert.Equal(t, 1, st.CycleCount)
	assert.Equal(t, 5, st.CacheRecords)
	assert.Empty(t, st.Error)
}

func TestService_SecondCycleIsQuiet(t *testing.T) {
	f := newFixture(t)
	f.collector.snap = farmSnapshot()
	ctx := context.Background()

	_, err := f.svc.RunCycle(ctx)
	require.NoError(t, err)
	f.events.Reset()

	res, err := f.svc.RunCycle(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Changes())
	assert.Equal(t, 5, res.Unchanged)
	assert.Empty(t, f.events.Events())
}

func TestService_QuotesAndLineBreaksAreChanges(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
	}{
		{name: "DoubleToSingleQuote", from: `say "hi"`, to: `say 'hi'`},
		{name: "LineBreakToSpace", from: "two\nlines", to: "two lines"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			snap := farmSnapshot()
			snap.Farm.Attributes["Description"] = tt.from
			f.collector.snap = snap

			_, err := f.svc.RunCycle(ctx)
			require.NoError(t, err)
			f.events.Reset()

			snap = farmSnapshot()
			snap.Farm.Attributes["Description"] = tt.to
			f.collector.snap = snap
			res, err := f.svc.RunCycle(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, res.Updated)
			assert.Equal(t, map[string]sink.Action{"Farm F1": sink.ActionUpdate}, changes(f.events.Events()))
		})
	}
}

func TestService_RemovedParentPrunesSubtree(t *testing.T) {
	f := newFixture(t)
	f.collector.snap = farmSnapshot()
	ctx := context.Background()

	_, err := f.svc.RunCycle(ctx)
	require.NoError(t, err)
	f.events.Reset()

	f.collector.snap.Farm.Children["WebApplication"] = nil
	res, err := f.svc.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Deleted)
	assert.Equal(t, map[string]sink.Action{
		"WebApplication F1#WA1": sink.ActionDelete,
		"Site F1#WA1#S1":        sink.ActionDelete,
		"Site F1#WA1#S2":        sink.ActionDelete,
	}, changes(f.events.Events()))
	assert.Equal(t, 2, f.svc.Cache().Len())
}

func TestService_DroppedCategoryIsPruned(t *testing.T) {
	f := newFixture(t)
	f.collector.snap = farmSnapshot()
	ctx := context.Background()

	_, err := f.svc.RunCycle(ctx)
	require.NoError(t, err)
	f.events.Reset()

	delete(f.collector.snap.Farm.Children["WebApplication"][0].Children, "Site")
	res, err := f.svc.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Deleted)
	assert.Equal(t, map[string]sink.Action{
		"Site F1#WA1#S1": sink.ActionDelete,
		"Site F1#WA1#S2": sink.ActionDelete,
	}, changes(f.events.Events()))
}

func TestService_ErroredNodeKeepsSubtree(t *testing.T) {
	f := newFixture(t)
	f.collector.snap = farmSnapshot()
	ctx := context.Background()

	_, err := f.svc.RunCycle(ctx)
	require.NoError(t, err)
	f.events.Reset()

	f.collector.snap.Farm.Children["WebApplication"][0] = Node{ID: "WA1", Error: "access denied"}
	res, err := f.svc.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)
	assert.Zero(t, res.Deleted)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, sink.TypeError, events[0].Type)
	assert.Equal(t, "F1#WA1", events[0].Fields["Id"])
	assert.Equal(t, "access denied", events[0].Fields["Message"])
	assert.Equal(t, 5, f.svc.Cache().Len())
}

func TestService_UnknownCategorySkipped(t *testing.T) {
	f := newFixture(t)
	snap := farmSnapshot()
	snap.Farm.Children["Gadget"] = []Node{{ID: "G1"}}
	f.collector.snap = snap

	res, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Added)
}

func TestService_CollectFailure(t *testing.T) {
	f := newFixture(t)
	f.collector.err = poller.Unavailable(errors.New("share offline"))

	_, err := f.svc.RunCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, poller.ErrUnavailable)
	assert.ErrorIs(t, f.svc.Probe(context.Background()), poller.ErrUnavailable)

	st := f.svc.Status()
	assert.Equal(t, 1, st.CycleCount)
	assert.Contains(t, st.Error, "share offline")
}

func TestService_EmitFailureSavesCommitted(t *testing.T) {
	f := newFixture(t)
	f.collector.snap = farmSnapshot()
	f.events.FailAfter = 2
	f.events.Err = errors.New("sink closed")

	res, err := f.svc.RunCycle(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, res.Added)

	// Whatever was emitted is on disk, so a restart does not emit it again.
	reloaded := reconcile.NewCache(checkpoint.NewFileBackend(f.fs, "/cp/inventory.txt"), zap.NewNop())
	require.NoError(t, reloaded.Load(context.Background()))
	assert.Equal(t, 2, reloaded.Len())
}

func TestService_DryRunDoesNotSave(t *testing.T) {
	f := newFixture(t)
	f.collector.snap = farmSnapshot()
	f.svc.SetDryRun(true)

	_, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)

	exists, err := afero.Exists(f.fs, "/cp/inventory.txt")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.True(t, f.svc.Cache().Dirty())
}

func TestService_Reload(t *testing.T) {
	f := newFixture(t)
	f.collector.snap = farmSnapshot()
	ctx := context.Background()

	f.svc.SetDryRun(true)
	_, err := f.svc.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, f.svc.Cache().Len())

	require.NoError(t, f.svc.Reload(ctx))
	assert.Zero(t, f.svc.Cache().Len())
}
