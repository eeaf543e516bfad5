// Package database provides SQLite connectivity for the Watchkeeper audit
// trail.
//
// It opens the database with WAL mode and a busy timeout, limits the pool
// to a single writer, and applies the embedded SQL migrations. Migrations
// are additive: new columns are nullable or carry a default, and every
// .up.sql file has a matching .down.sql.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Tests open MemoryPath for a private database per connection.
package database
