// Package storage provides results.Store implementations.
//
// # SQLite
//
// SQLiteStorage persists runs in a single SQLite file. Two drivers are
// supported and selected with SQLiteConfig.Driver:
//
//   - "sqlite3": github.com/mattn/go-sqlite3, requires CGO
//   - "sqlite": modernc.org/sqlite, pure Go
//
// Matrices, scores and traces are stored as JSON text columns. WAL mode is
// enabled by default for concurrent job writes.
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:   "data/rulebench.db",
//	    Driver: storage.DriverPure,
//	    WALMode: true,
//	})
//
// # Memory
//
// MemoryStorage keeps everything in maps guarded by a RWMutex and copies
// values on the way in and out.
package storage
