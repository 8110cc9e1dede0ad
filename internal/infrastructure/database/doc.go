// Package database provides the SQLite connection and schema migrations for
// the spaces backend.
//
// The store holds three tables of durable state: users, spaces and the
// user_spaces membership relation, plus the audit_logs trail. All queries use
// parameterised statements. The database file is created with 0600
// permissions.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.{up,down}.sql and are
// embedded by the migrations package, which registers them in MigrationsFS.
package database
