package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultDBName is the ledger file used when no path is configured.
const DefaultDBName = "wikiharvest.db"

// DB is the run ledger.
type DB struct {
	*sql.DB
	path string
}

// SchemaVersion is stored in PRAGMA user_version of every ledger.
const SchemaVersion = 1

// ErrNewerLedger is returned when a ledger was written by a newer schema.
var ErrNewerLedger = errors.New("ledger schema is newer than this binary")

func openDB(dbPath string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	// sqlite allows one writer, and every :memory: connection is a separate database.
	sqlDB.SetMaxOpenConns(1)
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return sqlDB, nil
}

// Open opens the ledger at dbPath, creating the file, its directory and the
// schema as needed. An empty path means DefaultDBName in the working directory.
func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		dbPath = DefaultDBName
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	sqlDB, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	db := &DB{DB: sqlDB, path: dbPath}
	if err := db.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger %s: %w", dbPath, err)
	}
	return db, nil
}

// migrate creates the schema in a fresh ledger and checks the version of an
// existing one.
func (db *DB) migrate() error {
	version, err := db.SchemaVersion()
	if err != nil {
		return err
	}
	switch {
	case version > SchemaVersion:
		return fmt.Errorf("%w: version %d, want %d", ErrNewerLedger, version, SchemaVersion)
	case version == SchemaVersion:
		return nil
	}
	return db.InitSchema()
}

// SchemaVersion reads the ledger's user_version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func (db *DB) Path() string {
	return db.path
}

// InitSchema creates any missing tables and stamps SchemaVersion.
func (db *DB) InitSchema() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}

// NewNullString maps "" to NULL.
func NewNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
