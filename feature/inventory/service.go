package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farm-agent/core/reconcile"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Status describes the last completed or failed cycle.
type Status struct {
	Farm         string           `json:"farm"`
	SnapshotAt   time.Time        `json:"snapshot_at"`
	LastCycle    time.Time        `json:"last_cycle"`
	DurationMs   int64            `json:"duration_ms"`
	Result       reconcile.Result `json:"result"`
	Error        string           `json:"error,omitempty"`
	CycleCount   int              `json:"cycle_count"`
	CacheRecords int              `json:"cache_records"`
}

// Service runs inventory cycles.
type Service struct {
	collector  Collector
	reconciler *reconcile.Reconciler
	cache      *reconcile.Cache
	logger     *zap.Logger
	dryRun     bool

	sf     singleflight.Group
	status statusStore
}

// NewService creates a service. The cache must be loaded before the first
// cycle.
func NewService(collector Collector, reconciler *reconcile.Reconciler, logger *zap.Logger) *Service {
	return &Service{
		collector:  collector,
		reconciler: reconciler,
		cache:      reconciler.Cache(),
		logger:     logger,
	}
}

// SetDryRun makes cycles skip saving the cache.
func (s *Service) SetDryRun(dryRun bool) {
	s.dryRun = dryRun
}

// Cache returns the checksum cache.
func (s *Service) Cache() *reconcile.Cache {
	return s.cache
}

// Status returns the last cycle status.
func (s *Service) Status() Status {
	st := s.status.get()
	st.CacheRecords = s.cache.Len()
	return st
}

// RunCycle collects a snapshot, reconciles it and saves the cache. Concurrent
// callers share a single execution, so cycles never overlap.
func (s *Service) RunCycle(ctx context.Context) (reconcile.Result, error) {
	v, err, _ := s.sf.Do("cycle", func() (any, error) {
		return s.runCycle(ctx)
	})
	res, _ := v.(reconcile.Result)
	return res, err
}

func (s *Service) runCycle(ctx context.Context) (reconcile.Result, error) {
	start := time.Now()

	snap, err := s.collector.Collect(ctx)
	if err != nil {
		s.status.fail(start, err)
		return reconcile.Result{}, err
	}

	res, walkErr := s.walk(ctx, snap)

	// Emitted changes are already committed in memory; persist them even when
	// the walk stopped early so they are not emitted twice.
	if !s.dryRun {
		if err := s.cache.Save(ctx); err != nil {
			s.status.fail(start, err)
			return res, errors.Join(walkErr, err)
		}
	}
	if walkErr != nil {
		s.status.fail(start, walkErr)
		return res, walkErr
	}

	duration := time.Since(start)
	s.status.succeed(Status{
		Farm:       snap.Farm.ID,
		SnapshotAt: snap.CollectedAt,
		LastCycle:  start,
		DurationMs: duration.Milliseconds(),
		Result:     res,
	})

	s.logger.Info("Inventory cycle completed",
		zap.String("farm", snap.Farm.ID),
		zap.Int("added", res.Added),
		zap.Int("updated", res.Updated),
		zap.Int("deleted", res.Deleted),
		zap.Int("errors", res.Errors),
	)
	s.logger.Debug("Inventory cycle stats",
		zap.Duration("duration", duration),
		zap.Int("cache_records", s.cache.Len()),
		zap.Int("unchanged", res.Unchanged),
		zap.Bool("dry_run", s.dryRun),
		zap.Bool("unsaved", s.cache.Dirty()),
	)
	return res, nil
}

// Probe checks that snapshots can be collected.
func (s *Service) Probe(ctx context.Context) error {
	return s.collector.Probe(ctx)
}

// Reload discards in-memory state and reloads the persisted cache. The
// runner calls it after a long outage.
func (s *Service) Reload(ctx context.Context) error {
	if err := s.cache.Load(ctx); err != nil {
		return fmt.Errorf("failed to reload inventory cache: %w", err)
	}
	return nil
}

// walker tracks which (category, parent) groups a cycle scanned and which
// subtrees could not be read.
type walker struct {
	svc       *Service
	labels    map[string]string
	scanned   map[reconcile.Category]map[string]struct{}
	untrusted map[string]struct{}
	total     reconcile.Result
}

func (s *Service) walk(ctx context.Context, snap *Snapshot) (reconcile.Result, error) {
	w := &walker{
		svc:       s,
		labels:    map[string]string{"FarmId": snap.Farm.ID},
		scanned:   make(map[reconcile.Category]map[string]struct{}),
		untrusted: make(map[string]struct{}),
	}

	farm := snap.Farm
	if err := w.scan(ctx, reconcile.CategoryFarm, "", []Node{farm}); err != nil {
		return w.total, err
	}
	if farm.Error == "" {
		if err := w.descend(ctx, farm.ID, farm); err != nil {
			return w.total, err
		}
	}

	for _, category := range reconcile.Categories() {
		if category == reconcile.CategoryFarm || category == reconcile.CategoryAuditSource {
			continue
		}
		res, err := s.reconciler.Prune(ctx, category, func(parent string) bool {
			return w.live(category, parent)
		}, w.labels)
		w.total.Merge(res)
		if err != nil {
			return w.total, err
		}
	}
	return w.total, nil
}

func (w *walker) descend(ctx context.Context, parentID string, node Node) error {
	for _, name := range node.childCategories() {
		category, err := reconcile.ParseCategory(name)
		if err != nil || category == reconcile.CategoryFarm || category == reconcile.CategoryAuditSource {
			w.svc.logger.Warn("Skipping unsupported child category",
				zap.String("parent", parentID),
				zap.String("category", name),
			)
			continue
		}

		children := node.Children[name]
		if err := w.scan(ctx, category, parentID, children); err != nil {
			return err
		}
		for _, child := range children {
			id := reconcile.ChildID(parentID, child.ID)
			if _, bad := w.untrusted[id]; bad {
				continue
			}
			if err := w.descend(ctx, id, child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *walker) scan(ctx context.Context, category reconcile.Category, parentID string, nodes []Node) error {
	entities := make([]reconcile.Entity, 0, len(nodes))
	for _, n := range nodes {
		entities = append(entities, reconcile.Entity{ID: n.ID, Value: n})
		if n.Error != "" || n.ID == "" {
			w.untrusted[reconcile.ChildID(parentID, n.ID)] = struct{}{}
		}
	}

	labels := w.labels
	if parentID != "" {
		labels = map[string]string{"FarmId": w.labels["FarmId"], "ParentId": parentID}
	}

	res, err := w.svc.reconciler.Reconcile(ctx, reconcile.Scan{
		Category:   category,
		Parent:     parentID,
		Entities:   entities,
		Attributes: nodeAttributes,
		Labels:     labels,
	})
	w.total.Merge(res)
	if err != nil {
		return err
	}

	if w.scanned[category] == nil {
		w.scanned[category] = make(map[string]struct{})
	}
	w.scanned[category][parentID] = struct{}{}
	return nil
}

// live reports whether cached children of parent in category must be kept:
// either that group was scanned this cycle or the parent sits in a subtree
// that could not be read.
func (w *walker) live(category reconcile.Category, parent string) bool {
	if _, ok := w.scanned[category][parent]; ok {
		return true
	}
	for id := parent; id != ""; id = reconcile.ParentOf(id) {
		if _, bad := w.untrusted[id]; bad {
			return true
		}
	}
	return false
}

func nodeAttributes(ctx context.Context, e reconcile.Entity) (map[string]string, error) {
	n, ok := e.Value.(Node)
	if !ok {
		return nil, fmt.Errorf("unexpected entity value %T", e.Value)
	}
	if n.Error != "" {
		return nil, errors.New(n.Error)
	}
	return n.flatten(), nil
}
