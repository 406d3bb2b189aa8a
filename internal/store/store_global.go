package store

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
)

// Global Manager instance for main logic.
var (
	Manager   = &RankStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// RankStoreManager holds the process-wide rank store.
type RankStoreManager struct {
	sync.RWMutex
	store contract.RankStore
}

var _ contract.StoreManager = &RankStoreManager{} // Compile-time check

// GetStore returns the initialized store, or nil before InitStore.
func (m *RankStoreManager) GetStore() contract.RankStore {
	m.RLock()
	defer m.RUnlock()
	return m.store
}

// GetDBFilePath returns the path to the SQLite DB file for rank storage.
func GetDBFilePath() string {
	return contract.GetStoreDBFilePath()
}

// InitStore initializes the global store manager exactly once.
func InitStore(backend schema.DatabaseBackend, connStr string) error {
	var initErr error

	initOnce.Do(func() {
		s, err := NewRankStore(backend, connStr)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize rank store: %w", err)
			return
		}
		Manager.Lock()
		Manager.store = s
		Manager.Unlock()
	})

	return initErr
}

// CloseStore should be called on application shutdown.
func CloseStore() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.store != nil {
			_ = Manager.store.Close()
		}
	})
}

// ClearStore removes all rank data for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops every rank table.
// For NoneBackend, it does nothing.
func ClearStore(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		// Remove the file; ignore if it doesn't exist
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend:
		return clearSQLTables("mysql", connStr, dialect{backend: backend})

	case schema.PostgreSQLBackend:
		return clearSQLTables("pgx", connStr, dialect{backend: backend})

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported store backend for clearing: %s", backend)
	}
}

// clearSQLTables connects to the SQL database and drops every rank table that exists.
func clearSQLTables(driverName, connStr string, d dialect) error {
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	for _, table := range allTables {
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s", d.quoteTableName(table))
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
