// Package reconcile detects changes in a scanned collection of entities and
// emits exactly one Add, Update or Delete event per observed change.
//
// # Architecture
//
// The package consists of three parts:
//
// 1. Checksum: a digest over an entity's flat attribute map that does not
// depend on map iteration order.
//
// 2. Cache: the persisted "last known good" snapshot, one Record per
// (Category, ID). It is loaded once at start, mutated only by the Reconciler
// and saved once per poll cycle when something changed.
//
// 3. Reconciler: for one (category, parent) scan it compares every entity
// against the cache, emits changes through a sink.Sink and then commits them
// to the cache. Deletions are computed only after the full scan completed.
//
// # Identifiers
//
// Nested entities use composite identifiers built with ChildID, for example
// a web W1 under site S1 is cached as "S1#W1". A scan bounded by a parent
// only considers that parent's direct children for deletion, so siblings that
// reuse local identifiers are never touched.
//
// # Usage Example
//
//	cache := reconcile.NewCache(backend, logger)
//	if err := cache.Load(ctx); err != nil {
//	    return err // corrupt store, do not continue with an empty cache
//	}
//
//	r := reconcile.NewReconciler(cache, sink, logger)
//	result, err := r.Reconcile(ctx, reconcile.Scan{
//	    Category:   reconcile.CategoryWeb,
//	    Parent:     siteID,
//	    Entities:   webs,
//	    Attributes: webAttributes,
//	})
//
//	err = cache.Save(ctx)
package reconcile
