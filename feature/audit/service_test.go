package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	coreaudit "farm-agent/core/audit"
	"farm-agent/core/checkpoint"
	"farm-agent/core/database"
	"farm-agent/core/poller"
	"farm-agent/core/reconcile"
	"farm-agent/core/sink"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	db     *gorm.DB
	events *sink.Recorder
	fs     afero.Fs
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE audit_log (
		id INTEGER PRIMARY KEY,
		occurred DATETIME,
		user TEXT,
		action TEXT
	)`).Error)

	return newFixtureWithDB(t, db, cfg)
}

func newFixtureWithDB(t *testing.T, db *gorm.DB, cfg Config) *fixture {
	t.Helper()
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	events := &sink.Recorder{}

	tracker := coreaudit.NewTracker(checkpoint.NewFileBackend(fs, "/cp/audit.txt"), events, zap.NewNop(), true)
	tracker.SetClock(func() time.Time { return base.Add(time.Hour) })
	require.NoError(t, tracker.Load(ctx))

	cache := reconcile.NewCache(checkpoint.NewFileBackend(fs, "/cp/audit_sources.txt"), zap.NewNop())
	require.NoError(t, cache.Load(ctx))
	catalog := reconcile.NewReconciler(cache, events, zap.NewNop())

	svc := NewService(db, cfg, tracker, catalog, time.Second, zap.NewNop())
	return &fixture{svc: svc, db: db, events: events, fs: fs}
}

func testConfig() Config {
	return Config{
		Sources:          "farm, missing=no_such_table",
		Table:            "audit_log",
		OccurredColumn:   "occurred",
		DiscoverySeconds: 900,
	}
}

func (f *fixture) insert(t *testing.T, id int, at time.Time, user, action string) {
	t.Helper()
	require.NoError(t, f.db.Exec("INSERT INTO audit_log (id, occurred, user, action) VALUES (?, ?, ?, ?)", id, at, user, action).Error)
}

func eventsOfType(events []sink.Event, typ string) []sink.Event {
	var out []sink.Event
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestPollAll_DeliversOnceAcrossTies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	f.insert(t, 1, base, "alice", "View")
	f.insert(t, 2, base, "bob", "View")
	f.insert(t, 3, base.Add(time.Minute), "alice", "Delete")

	res, err := f.svc.PollAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Delivered)

	catalog := eventsOfType(f.events.Events(), string(reconcile.CategoryAuditSource))
	require.Len(t, catalog, 1)
	assert.Equal(t, sink.ActionAdd, catalog[0].Action)
	assert.Equal(t, "farm", catalog[0].Fields["Id"])
	assert.Equal(t, "audit_log", catalog[0].Fields["Table"])

	audit := eventsOfType(f.events.Events(), coreaudit.EventType)
	require.Len(t, audit, 3)
	assert.Equal(t, "farm", audit[0].Source)
	assert.Equal(t, "Delete", audit[2].Fields["action"])

	// Nothing new: the row at the position is fetched again and skipped.
	f.events.Reset()
	res, err = f.svc.PollAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Delivered)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, f.events.Events())

	// A late row sharing the last timestamp is still delivered.
	f.insert(t, 4, base.Add(time.Minute), "carol", "Update")
	res, err = f.svc.PollAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, 1, res.Skipped)

	pos, ok := f.svc.Tracker().Position("farm")
	require.True(t, ok)
	assert.True(t, pos.LastTimestamp.Equal(base.Add(time.Minute)))
	assert.Len(t, pos.Digests(), 2)

	data, err := afero.ReadFile(f.fs, "/cp/audit.txt")
	require.NoError(t, err)
	assert.Contains(t, string(data), "farm,638501616600000000,")

	sources := f.svc.Sources()
	require.Len(t, sources, 1)
	assert.Equal(t, "farm", sources[0].Source)
	assert.Equal(t, 1, sources[0].Result.Delivered)
}

func TestPollAll_RestartDoesNotRedeliver(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	f.insert(t, 1, base, "alice", "View")
	f.insert(t, 2, base, "bob", "View")

	_, err := f.svc.PollAll(ctx)
	require.NoError(t, err)

	restarted := newFixtureWithDB(t, f.db, testConfig())
	// Share the stores of the first run.
	restarted.svc.tracker = coreaudit.NewTracker(checkpoint.NewFileBackend(f.fs, "/cp/audit.txt"), restarted.events, zap.NewNop(), true)
	restarted.svc.tracker.SetClock(func() time.Time { return base.Add(time.Hour) })
	require.NoError(t, restarted.svc.tracker.Load(ctx))

	res, err := restarted.svc.PollAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Delivered)
	assert.Equal(t, 2, res.Skipped)
	assert.Empty(t, eventsOfType(restarted.events.Events(), coreaudit.EventType))
}

func TestPollAll_MalformedRow(t *testing.T) {
	f := newFixture(t, testConfig())
	require.NoError(t, f.db.Exec("INSERT INTO audit_log (id, occurred, user, action) VALUES (1, '2024-05-01 00:xx', 'alice', 'View')").Error)
	f.insert(t, 2, base, "bob", "View")

	res, err := f.svc.PollAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 1, res.Delivered)

	errs := eventsOfType(f.events.Events(), sink.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, "farm", errs[0].Fields["Id"])
}

func TestPollAll_EmitFailureKeepsDelivered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	f.insert(t, 1, base, "alice", "View")
	f.insert(t, 2, base.Add(time.Second), "bob", "View")

	// The catalog event and the first row go through.
	f.events.FailAfter = 2
	f.events.Err = errors.New("sink closed")

	res, err := f.svc.PollAll(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, res.Delivered)

	data, err := afero.ReadFile(f.fs, "/cp/audit.txt")
	require.NoError(t, err)
	assert.Contains(t, string(data), "farm,638501616000000000,")
}

func TestPollAll_SourceDisappears(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.DiscoverySeconds = 1
	f := newFixture(t, cfg)

	now := base
	f.svc.now = func() time.Time { return now }

	_, err := f.svc.PollAll(ctx)
	require.NoError(t, err)
	require.Len(t, f.svc.Sources(), 1)

	require.NoError(t, f.db.Exec("DROP TABLE audit_log").Error)
	now = now.Add(time.Minute)
	f.events.Reset()

	_, err = f.svc.PollAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.svc.Sources())

	catalog := eventsOfType(f.events.Events(), string(reconcile.CategoryAuditSource))
	require.Len(t, catalog, 1)
	assert.Equal(t, sink.ActionDelete, catalog[0].Action)
}

func TestPollAll_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Sources = "a,a"
	f := newFixture(t, cfg)

	_, err := f.svc.PollAll(context.Background())
	assert.Error(t, err)
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	f.insert(t, 1, base, "alice", "View")

	_, err := f.svc.PollAll(ctx)
	require.NoError(t, err)
	require.NoError(t, f.svc.Reload(ctx))

	pos, ok := f.svc.Tracker().Position("farm")
	require.True(t, ok)
	assert.True(t, pos.LastTimestamp.Equal(base))
	assert.Empty(t, f.svc.Sources())
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	dialector := mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	})
	db, err := gorm.Open(dialector, &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	return db, mock
}

func TestProbe_Unavailable(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	f := newFixtureWithDB(t, db, testConfig())
	_, err := f.svc.PollAll(context.Background())
	assert.ErrorIs(t, err, poller.ErrUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
