package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"jtxboard/store/sqlite"
)

// Database wraps sql.DB with helper methods for schema management. It is an
// explicit handle passed to every component; there is no process-wide
// singleton instance.
type Database struct {
	*sql.DB
	path string
}

// InitDatabase initializes the SQLite database with proper schema
// It creates the database at the XDG-compliant location and sets up all tables
func InitDatabase(customPath string) (*Database, error) {
	dbPath, err := getDatabasePath(customPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}

	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	database := &Database{
		DB:   db,
		path: dbPath,
	}

	if err := database.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// InitInMemoryDatabase creates a fully initialized, memory-backed database.
// Test harnesses use this construction path; production code always goes
// through InitDatabase.
func InitInMemoryDatabase() (*Database, error) {
	db, err := sql.Open("sqlite", "file::memory:?cache=shared&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}

	// cache=shared keeps the schema alive across pooled connections, but a
	// second connection would still race schema creation. Pin to one.
	db.SetMaxOpenConns(1)

	database := &Database{
		DB:   db,
		path: ":memory:",
	}

	if err := database.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// getDatabasePath returns the path to the SQLite database file
// Priority: customPath > $XDG_DATA_HOME/jtxboard/jtx.db > ~/.local/share/jtxboard/jtx.db
func getDatabasePath(customPath string) (string, error) {
	if customPath != "" {
		return customPath, nil
	}

	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, "jtxboard", "jtx.db"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".local", "share", "jtxboard", "jtx.db"), nil
}

// initializeSchema creates all tables, indexes, and sets pragmas
func (db *Database) initializeSchema() error {
	for _, pragma := range sqlite.PragmaStatements() {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %q: %w", pragma, err)
		}
	}

	for _, schema := range sqlite.AllTableSchemas() {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	for _, index := range sqlite.AllIndexes() {
		if _, err := db.Exec(index); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := db.recordSchemaVersion(); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return nil
}

// recordSchemaVersion records the current schema version in the database
func (db *Database) recordSchemaVersion() error {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", sqlite.SchemaVersion).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check schema version: %w", err)
	}

	if count > 0 {
		return nil // Version already recorded
	}

	_, err = db.Exec(
		"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
		sqlite.SchemaVersion,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert schema version: %w", err)
	}

	return nil
}

// GetSchemaVersion returns the current schema version from the database
func (db *Database) GetSchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Path returns the filesystem path to the database file
func (db *Database) Path() string {
	return db.path
}

// Vacuum runs VACUUM to optimize the database
func (db *Database) Vacuum() error {
	_, err := db.Exec("VACUUM")
	return err
}

// DatabaseStats holds statistics about the database
type DatabaseStats struct {
	ObjectCount     int
	CollectionCount int
	RecurInstances  int
	DirtyCount      int
	DeletedCount    int
	DatabaseSize    int64 // in bytes
}

// String returns a human-readable representation of database statistics
func (s DatabaseStats) String() string {
	sizeMB := float64(s.DatabaseSize) / (1024 * 1024)
	return fmt.Sprintf(
		"Entries: %d | Collections: %d | Recur instances: %d | Dirty: %d | Deleted: %d | Size: %.2f MB",
		s.ObjectCount, s.CollectionCount, s.RecurInstances, s.DirtyCount, s.DeletedCount, sizeMB,
	)
}

// GetStats returns basic database statistics
func (db *Database) GetStats() (DatabaseStats, error) {
	stats := DatabaseStats{}

	err := db.QueryRow("SELECT COUNT(*) FROM icalobject").Scan(&stats.ObjectCount)
	if err != nil {
		return stats, fmt.Errorf("failed to count entries: %w", err)
	}

	err = db.QueryRow("SELECT COUNT(*) FROM collection").Scan(&stats.CollectionCount)
	if err != nil {
		return stats, fmt.Errorf("failed to count collections: %w", err)
	}

	err = db.QueryRow("SELECT COUNT(*) FROM icalobject WHERE recurid IS NOT NULL AND recurid != ''").Scan(&stats.RecurInstances)
	if err != nil {
		return stats, fmt.Errorf("failed to count recur instances: %w", err)
	}

	err = db.QueryRow("SELECT COUNT(*) FROM icalobject WHERE dirty = 1").Scan(&stats.DirtyCount)
	if err != nil {
		return stats, fmt.Errorf("failed to count dirty entries: %w", err)
	}

	err = db.QueryRow("SELECT COUNT(*) FROM icalobject WHERE deleted = 1").Scan(&stats.DeletedCount)
	if err != nil {
		return stats, fmt.Errorf("failed to count deleted entries: %w", err)
	}

	if db.path != ":memory:" {
		fileInfo, err := os.Stat(db.path)
		if err != nil {
			return stats, fmt.Errorf("failed to stat database file: %w", err)
		}
		stats.DatabaseSize = fileInfo.Size()
	}

	return stats, nil
}
