// Package inventory reconciles snapshots of the farm hierarchy against the
// checksum cache and emits Add, Update and Delete events.
//
// A Collector supplies a Snapshot: the farm node and its descendants grouped
// by category (web applications, sites, webs, lists, ...). The Service walks
// the tree and reconciles each (category, parent) group with one
// reconcile.Scan, so nested objects get composite identifiers such as
// "farm#webapp#site". After the walk, cached children of parents that
// disappeared are pruned.
//
// Nodes carrying an Error are reported as error events; neither they nor
// their cached subtree are deleted while the error persists.
//
// # Routes
//
//   - GET /inventory/summary: last cycle result and cache counts
//   - GET /inventory/records: cached records, filterable by category and parent
//   - POST /inventory/cycle: run a cycle now (joins one already in flight)
package inventory
