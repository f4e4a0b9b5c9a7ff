// Package audit tracks the delivery position of append-only audit logs.
//
// The log's timestamp resolution is coarser than its write rate, so several
// rows can share one occurrence time and a poll can end halfway through such
// a group. A Position therefore keeps the last delivered timestamp plus the
// digests of every row already delivered at exactly that timestamp. The next
// query starts at that timestamp (inclusive) and skips those digests, so every
// row is delivered exactly once.
//
// The tie-break set is persisted with the timestamp. With persistence
// disabled a restart can re-deliver rows sharing the last timestamp, but never
// misses one.
package audit
