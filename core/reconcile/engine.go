package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farm-agent/core/poller"
	"farm-agent/core/sink"
	"farm-agent/core/utils"

	"go.uber.org/zap"
)

// Entity is one freshly observed object of a scan.
type Entity struct {
	// ID is the local identifier, unique under the scan's parent.
	ID string
	// Value is handed to the scan's AttributeFunc.
	Value any
}

// AttributeFunc flattens an entity into single-line attribute values.
// Returning an error wrapping poller.ErrUnavailable aborts the scan; any other
// error is reported for that entity only.
type AttributeFunc func(ctx context.Context, e Entity) (map[string]string, error)

// Scan describes one collection to reconcile.
type Scan struct {
	Category Category
	// Parent is the composite identifier of the owning object, empty for
	// top-level categories. Only direct children of Parent can be deleted.
	Parent     string
	Entities   []Entity
	Attributes AttributeFunc
	// Labels are added to every emitted event but are not part of the digest.
	Labels map[string]string
}

// Result counts what a reconcile pass did.
type Result struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
	Errors    int `json:"errors"`
}

// Changes returns the number of emitted change events.
func (r Result) Changes() int {
	return r.Added + r.Updated + r.Deleted
}

// Merge adds o into r.
func (r *Result) Merge(o Result) {
	r.Added += o.Added
	r.Updated += o.Updated
	r.Deleted += o.Deleted
	r.Unchanged += o.Unchanged
	r.Errors += o.Errors
}

// Reconciler compares scans against a Cache and emits the differences.
// A change is committed to the cache only after the sink accepted it.
type Reconciler struct {
	cache  *Cache
	sink   sink.Sink
	logger *zap.Logger
	now    func() time.Time
}

// NewReconciler creates a reconciler.
func NewReconciler(cache *Cache, s sink.Sink, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		cache:  cache,
		sink:   s,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the time source used for event and record timestamps.
func (r *Reconciler) SetClock(now func() time.Time) {
	r.now = now
}

// Cache returns the cache the reconciler mutates.
func (r *Reconciler) Cache() *Cache {
	return r.cache
}

// Reconcile runs one scan. Adds and updates are emitted in entity order,
// deletions of unseen cached children follow once every entity was visited.
// On error the scan stops; changes already committed stay committed and no
// deletions are computed.
func (r *Reconciler) Reconcile(ctx context.Context, scan Scan) (Result, error) {
	var res Result

	if !scan.Category.Cacheable() {
		return res, fmt.Errorf("cannot reconcile category %q", scan.Category)
	}
	if scan.Attributes == nil {
		return res, fmt.Errorf("scan of %s has no attribute function", scan.Category)
	}

	seen := make(map[string]struct{}, len(scan.Entities))
	// Entities that failed to read are neither confirmed nor deleted.
	failed := make(map[string]struct{})
	for _, entity := range scan.Entities {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		id := ChildID(scan.Parent, entity.ID)
		var attrs map[string]string
		var err error
		_, ok := seen[id]
		_, bad := failed[id]
		if ok || bad {
			// The first occurrence wins.
			err = fmt.Errorf("duplicate identifier %q in scan of %s", id, scan.Category)
		} else {
			attrs, err = r.attributes(ctx, scan, entity)
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, poller.ErrUnavailable) {
				return res, fmt.Errorf("scan of %s aborted at %s: %w", scan.Category, id, err)
			}
			res.Errors++
			failed[id] = struct{}{}
			r.logger.Debug("Entity could not be read",
				zap.String("category", string(scan.Category)),
				zap.String("id", id),
				zap.Error(err),
			)
			if err := r.emitFailure(ctx, scan, id, err); err != nil {
				return res, err
			}
			continue
		}

		seen[id] = struct{}{}
		digest := Checksum(attrs)
		if !r.cache.IsUpdated(scan.Category, id, digest) {
			res.Unchanged++
			continue
		}

		action := sink.ActionUpdate
		if r.cache.IsNew(scan.Category, id) {
			action = sink.ActionAdd
		}

		now := r.now()
		fields := mergeFields(scan.Labels, attrs)
		if _, ok := fields["Id"]; !ok {
			fields["Id"] = id
		}
		if err := r.sink.Emit(ctx, sink.Change(now, string(scan.Category), action, fields)); err != nil {
			return res, fmt.Errorf("failed to emit %s %s %s: %w", action, scan.Category, id, err)
		}
		if err := r.cache.Put(Record{Category: scan.Category, ID: id, LastUpdated: now, Digest: digest}); err != nil {
			return res, err
		}

		if action == sink.ActionAdd {
			res.Added++
		} else {
			res.Updated++
		}
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	for _, id := range r.cache.IdentifiersOf(scan.Category) {
		if !inScope(id, scan.Parent) {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		if _, ok := failed[id]; ok {
			continue
		}
		if err := r.delete(ctx, scan.Category, id, scan.Labels); err != nil {
			return res, err
		}
		res.Deleted++
	}

	r.logger.Debug("Scan reconciled",
		zap.String("category", string(scan.Category)),
		zap.String("parent", scan.Parent),
		zap.Int("entities", len(scan.Entities)),
		zap.Int("added", res.Added),
		zap.Int("updated", res.Updated),
		zap.Int("deleted", res.Deleted),
		zap.Int("errors", res.Errors),
	)
	return res, nil
}

// Prune deletes cached nested records of category whose parent is not live.
// It removes the children of objects that disappeared or no longer list that
// category, since those records are never scanned again. Top-level records
// are left alone.
func (r *Reconciler) Prune(ctx context.Context, category Category, live func(parent string) bool, labels map[string]string) (Result, error) {
	var res Result

	for _, id := range r.cache.IdentifiersOf(category) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		parent := ParentOf(id)
		if parent == "" || live(parent) {
			continue
		}
		if err := r.delete(ctx, category, id, labels); err != nil {
			return res, err
		}
		res.Deleted++
	}

	if res.Deleted > 0 {
		r.logger.Debug("Pruned orphaned records",
			zap.String("category", string(category)),
			zap.Int("deleted", res.Deleted),
		)
	}
	return res, nil
}

func (r *Reconciler) attributes(ctx context.Context, scan Scan, entity Entity) (map[string]string, error) {
	if err := validateLocalID(entity.ID); err != nil {
		return nil, err
	}
	attrs, err := scan.Attributes(ctx, entity)
	if err != nil {
		return nil, err
	}
	for k, v := range attrs {
		if !utils.IsSingleLine(k) || !utils.IsSingleLine(v) {
			return nil, fmt.Errorf("attribute %q is not single-line", k)
		}
	}
	return attrs, nil
}

func (r *Reconciler) delete(ctx context.Context, category Category, id string, labels map[string]string) error {
	fields := mergeFields(labels, map[string]string{"Id": id})
	if parent := ParentOf(id); parent != "" {
		fields["ParentId"] = parent
	}
	if err := r.sink.Emit(ctx, sink.Change(r.now(), string(category), sink.ActionDelete, fields)); err != nil {
		return fmt.Errorf("failed to emit Delete %s %s: %w", category, id, err)
	}
	r.cache.Remove(category, id)
	return nil
}

func (r *Reconciler) emitFailure(ctx context.Context, scan Scan, id string, cause error) error {
	event := sink.Failure(r.now(), string(scan.Category), id, scan.Parent, cause)
	for k, v := range scan.Labels {
		if _, ok := event.Fields[k]; !ok {
			event.Fields[k] = v
		}
	}
	if err := r.sink.Emit(ctx, event); err != nil {
		return fmt.Errorf("failed to emit error for %s %s: %w", scan.Category, id, err)
	}
	return nil
}

func validateLocalID(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if containsSeparator(id) {
		return fmt.Errorf("identifier %q contains the separator %q", id, Separator)
	}
	return nil
}

func mergeFields(labels, attrs map[string]string) map[string]string {
	out := make(map[string]string, len(labels)+len(attrs)+1)
	for k, v := range labels {
		out[k] = v
	}
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
