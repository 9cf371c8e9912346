// Package database provides a unified interface for connecting to metadata backends.
//
// A backend stores FileRecords keyed by (owner, file id) and the orphan ledger
// used to reconcile objects whose delete failed.
//
// # Supported Backends
//
//   - PostgreSQL: production backend using a pgx connection pool
//   - SQLite: single-node backend using modernc.org/sqlite
//   - Redis: records as JSON strings indexed by per-owner sorted sets
//   - Memory: process-local maps for tests and development
//
// # Usage
//
//	cfg := database.Config{
//	    Type: "sqlite",
//	    DSN:  "filevault.db",
//	    Tables: filevault.Tables{
//	        Files:   "filevault_files",
//	        Orphans: "filevault_orphans",
//	    },
//	}
//
//	db, err := database.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	svc, err := filevault.NewService(db.Store(), gateway, filevault.ServiceConfig{
//	    Ledger: db.Ledger(),
//	})
package database
