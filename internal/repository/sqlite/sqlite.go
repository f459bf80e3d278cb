package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection and guards it for concurrent use.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// New opens the database at dbPath and creates the schema.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the tables and indexes on first start.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT NOT NULL UNIQUE,
		source_name TEXT NOT NULL,
		original_path TEXT NOT NULL,
		annotated_path TEXT NOT NULL,
		thumbnail_path TEXT NOT NULL DEFAULT '',
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		threshold REAL DEFAULT 0,
		detection_count INTEGER DEFAULT 0,
		avg_confidence REAL DEFAULT 0,
		unique_labels INTEGER DEFAULT 0,
		duration_ms INTEGER DEFAULT 0,
		session_id TEXT NOT NULL DEFAULT '',
		filesize INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		analysis_id INTEGER NOT NULL,
		label TEXT NOT NULL,
		confidence REAL DEFAULT 0,
		x INTEGER DEFAULT 0,
		y INTEGER DEFAULT 0,
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		FOREIGN KEY (analysis_id) REFERENCES analyses(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_uuid ON analyses(uuid);
	CREATE INDEX IF NOT EXISTS idx_analyses_session ON analyses(session_id);
	CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
	CREATE INDEX IF NOT EXISTS idx_detections_label ON detections(label);
	CREATE INDEX IF NOT EXISTS idx_detections_analysis_id ON detections(analysis_id);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return err
	}

	// CASCADE on detections needs foreign keys switched on per connection.
	_, err := db.conn.Exec(`PRAGMA foreign_keys = ON`)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the underlying connection to the repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Lock takes the writer lock.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the writer lock.
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// RLock takes a reader lock.
func (db *DB) RLock() {
	db.mu.RLock()
}

// RUnlock releases the reader lock.
func (db *DB) RUnlock() {
	db.mu.RUnlock()
}
