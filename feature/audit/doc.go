// Package audit polls the SharePoint audit log tables and forwards new rows.
//
// Sources are declared in configuration as id=table pairs and discovered
// against the database: a source is only polled once its table exists and
// carries the configured columns. The discovered set is itself tracked as
// AuditSource records, so sources appearing or disappearing emit Add and
// Delete events like any other inventory object.
//
// Routes:
//   - GET /audit/positions: current position of every source
//   - GET /audit/sources: discovered sources
//   - POST /audit/poll: poll every source now
package audit
