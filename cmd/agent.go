package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	coreaudit "farm-agent/core/audit"
	"farm-agent/core/checkpoint"
	"farm-agent/core/config"
	"farm-agent/core/database"
	"farm-agent/core/logger"
	"farm-agent/core/poller"
	"farm-agent/core/reconcile"
	"farm-agent/core/sink"
	"farm-agent/core/storage"
	"farm-agent/feature/audit"
	"farm-agent/feature/inventory"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// stores groups the persisted state of both runners.
type stores struct {
	inventory *reconcile.Cache
	sources   *reconcile.Cache
	positions *coreaudit.Tracker
}

// agent wires configuration, stores, the event sink and the services.
type agent struct {
	cfg    *config.Config
	logger *zap.Logger
	client storage.Client
	events *sink.Writer
	stores stores
	db     *gorm.DB

	inventory *inventory.Service
	audit     *audit.Service
}

type agentOptions struct {
	inventory bool
	audit     bool
	// waitForDatabase keeps retrying the first connection instead of failing.
	waitForDatabase bool
	// discardEvents renders nothing, for commands that only inspect stores.
	discardEvents bool
	// skipLoad leaves the stores empty, so that corrupt stores can be reset.
	skipLoad bool
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, l, nil
}

func newAgent(ctx context.Context, cfg *config.Config, l *zap.Logger, opts agentOptions) (*agent, error) {
	var err error
	a := &agent{cfg: cfg, logger: l}

	needsStorage := cfg.Checkpoint.Backend == checkpoint.BackendObject ||
		(opts.inventory && cfg.Inventory.Collector != inventory.CollectorFile)
	if needsStorage {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		a.client = client
	}

	if opts.discardEvents {
		a.events, err = sink.NewWriter(io.Discard, cfg.Sink.Format, cfg.Sink.SourceType)
	} else {
		a.events, err = sink.Open(cfg.Sink, afero.NewOsFs())
	}
	if err != nil {
		return nil, err
	}

	if err := a.openStores(ctx, !opts.skipLoad); err != nil {
		a.close()
		return nil, err
	}

	if opts.inventory {
		if err := a.buildInventory(); err != nil {
			a.close()
			return nil, err
		}
	}
	if opts.audit {
		if err := a.buildAudit(ctx, opts.waitForDatabase); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

func (a *agent) openStores(ctx context.Context, load bool) error {
	open := func(name string) (checkpoint.Backend, error) {
		return checkpoint.New(a.cfg.Checkpoint, a.client, a.cfg.Storage.Bucket, name)
	}

	backend, err := open(a.cfg.Inventory.Checkpoint)
	if err != nil {
		return err
	}
	a.stores.inventory = reconcile.NewCache(backend, a.logger)

	backend, err = open(a.cfg.Audit.SourcesCheckpoint)
	if err != nil {
		return err
	}
	a.stores.sources = reconcile.NewCache(backend, a.logger)

	backend, err = open(a.cfg.Audit.Checkpoint)
	if err != nil {
		return err
	}
	a.stores.positions = coreaudit.NewTracker(backend, a.events, a.logger, a.cfg.Audit.PersistTieBreak)

	if !load {
		return nil
	}
	if err := a.stores.inventory.Load(ctx); err != nil {
		return err
	}
	if err := a.stores.sources.Load(ctx); err != nil {
		return err
	}
	return a.stores.positions.Load(ctx)
}

func (a *agent) buildInventory() error {
	collector, err := inventory.NewCollector(a.cfg.Inventory, a.client, a.cfg.Storage.Bucket, afero.NewOsFs())
	if err != nil {
		return err
	}
	r := reconcile.NewReconciler(a.stores.inventory, a.events, a.logger)
	a.inventory = inventory.NewService(collector, r, logger.WithSource(a.logger, "inventory", collector.Describe()))
	return nil
}

func (a *agent) buildAudit(ctx context.Context, wait bool) error {
	db, err := a.connectDatabase(ctx, wait)
	if err != nil {
		return err
	}
	a.db = db

	timeout := time.Duration(a.cfg.Database.TimeoutSeconds) * time.Second
	catalog := reconcile.NewReconciler(a.stores.sources, a.events, a.logger)
	a.audit = audit.NewService(db, a.cfg.Audit, a.stores.positions, catalog, timeout, logger.WithSource(a.logger, "audit", a.cfg.Database.Name))
	return nil
}

func (a *agent) connectDatabase(ctx context.Context, wait bool) (*gorm.DB, error) {
	if !wait {
		return database.Connect(a.cfg.Database)
	}
	return backoff.Retry(ctx, func() (*gorm.DB, error) {
		return database.Connect(a.cfg.Database)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(a.cfg.Poller.RetryWait())),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			a.logger.Warn("Audit database unavailable, retrying", zap.Error(err), zap.Duration("retry_in", next))
		}),
	)
}

// runners returns a runner per enabled service.
func (a *agent) runners() []*poller.Runner {
	var out []*poller.Runner
	if a.inventory != nil {
		svc := a.inventory
		out = append(out, &poller.Runner{
			Name:       "inventory",
			Interval:   a.cfg.Inventory.Interval(),
			RetryWait:  a.cfg.Poller.RetryWait(),
			ResetAfter: a.cfg.Poller.ResetAfter(),
			Cycle: func(ctx context.Context) error {
				_, err := svc.RunCycle(ctx)
				return err
			},
			Probe:  svc.Probe,
			Reset:  svc.Reload,
			Logger: a.logger,
		})
	}
	if a.audit != nil {
		svc := a.audit
		out = append(out, &poller.Runner{
			Name:       "audit",
			Interval:   a.cfg.Audit.Interval(),
			RetryWait:  a.cfg.Poller.RetryWait(),
			ResetAfter: a.cfg.Poller.ResetAfter(),
			Cycle: func(ctx context.Context) error {
				_, err := svc.PollAll(ctx)
				return err
			},
			Probe:  svc.Probe,
			Reset:  svc.Reload,
			Logger: a.logger,
		})
	}
	return out
}

func (a *agent) close() {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Warn("Failed to close event sink", zap.Error(err))
		}
		a.logger.Info("Event sink closed", zap.Int64("events", a.events.Count()))
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = a.logger.Sync()
}
