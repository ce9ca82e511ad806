// Package storage provides the audit record backends.
//
//   - memory: records live in process memory and are lost on restart
//   - sqlite: records are kept in a SQLite database file
//
// The SQLite backend runs on either the pure-Go modernc.org/sqlite driver
// (the default) or the cgo github.com/mattn/go-sqlite3 driver, selected by
// audit.sqlite.driver ("modernc" or "cgo"). Timestamps are stored as unix
// nanoseconds and secret key names as a JSON array, so both drivers read
// each other's files.
//
//	store, err := storage.New(&cfg.Audit)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	records, err := store.Query(ctx, &audit.Query{Service: "crm", Limit: 20})
package storage
