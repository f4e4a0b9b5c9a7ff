// Package database handles the connection to the audit log database and
// schema inspection.
//
// It wraps GORM and configures either the MySQL driver (the production audit
// store) or the SQLite driver (local mirrors and tests) from the application
// configuration.
//
// # Schema Inspection
//
// Audit source discovery only polls tables that exist and carry the expected
// columns. TableExists and HasColumns answer that for both dialects.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    logger.Warn("Audit database unavailable", zap.Error(err))
//	}
//
//	missing, err := database.HasColumns(db, "audit_data", "occurred", "event")
package database
