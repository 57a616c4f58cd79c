// Package storage provides the SQLite run ledger.
//
// Every pipeline run can be recorded with its configuration, its results in
// order and its diagnostics, so earlier runs can be listed and inspected
// after the JSON artifact has been overwritten.
//
// # Database Schema
//
// Tables:
//   - runs: one row per run (uuid id, root, provider, model, counts, status)
//   - results: analysis text per successful segment, ordered by seq
//   - diagnostics: isolated failures per run, ordered by seq
//   - schema_version: applied migrations
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("runs.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	run := &storage.Run{RootPath: root, Provider: "groq", Model: model}
//	if err := db.CreateRun(ctx, run); err != nil {
//	    return err
//	}
//	// ... analyze ...
//	err = storage.RecordOutcome(ctx, db, run, results, diagnostics)
//
// # Transactions
//
// BeginTx returns a Tx that implements Storage. Nested transactions are not
// supported.
//
// # Build Modes
//
// The default build uses modernc.org/sqlite (pure Go). Building with the
// sqlite_cgo tag switches to github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags sqlite_cgo ./...
package storage
