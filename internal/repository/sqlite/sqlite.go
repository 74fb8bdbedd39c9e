// Package sqlite implements the repository interfaces on SQLite through
// database/sql and the pure-Go modernc.org/sqlite driver.
//
// One DB owns the connection pool. Each aggregate gets its own small store
// type (UserStore, ProjectStore, ...) so that method names like Create do not
// collide; all stores share the pool:
//
//	db, err := sqlite.New("data/story.db")
//	if err != nil { ... }
//	defer db.Close()
//	users := db.Users()
//
// Timestamps are written in UTC so the DATETIME text columns sort in time
// order.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath, applies pragmas and runs migrations.
//
// dbPath examples:
//   - "data/story.db" → file-based database
//   - ":memory:"      → in-memory database, used by the tests
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database exists per connection. Pin the pool to a single
	// connection or every new connection would see an empty schema.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite. The cascade rules below
	// depend on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable. Used by the health endpoint.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

func (db *DB) Users() *UserStore                 { return &UserStore{conn: db.conn} }
func (db *DB) Projects() *ProjectStore           { return &ProjectStore{conn: db.conn} }
func (db *DB) Sessions() *SessionStore           { return &SessionStore{conn: db.conn} }
func (db *DB) Messages() *MessageStore           { return &MessageStore{conn: db.conn} }
func (db *DB) Conversations() *ConversationStore { return &ConversationStore{conn: db.conn} }

// migrate creates the schema. Every statement is idempotent.
//
// Cascades: deleting a project removes its sessions, their messages and the
// project's conversation snapshot; deleting a session removes its messages.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				email         TEXT NOT NULL UNIQUE,
				name          TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				role          TEXT NOT NULL DEFAULT 'USER',
				is_active     INTEGER NOT NULL DEFAULT 1,
				is_verified   INTEGER NOT NULL DEFAULT 0,
				created_at    DATETIME NOT NULL,
				updated_at    DATETIME NOT NULL
			);`},
		{"projects", `
			CREATE TABLE IF NOT EXISTS projects (
				id          TEXT PRIMARY KEY,
				title       TEXT NOT NULL,
				genre       TEXT,
				description TEXT,
				status      TEXT NOT NULL DEFAULT 'DRAFT',
				user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				created_at  DATETIME NOT NULL,
				updated_at  DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_projects_user_updated ON projects(user_id, updated_at);`},
		{"sessions", `
			CREATE TABLE IF NOT EXISTS sessions (
				id         TEXT PRIMARY KEY,
				project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
				title      TEXT NOT NULL,
				is_active  INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_sessions_project_updated ON sessions(project_id, updated_at);`},
		// rowid is kept (no WITHOUT ROWID) and used as the insertion-order
		// tie breaker for messages sharing a created_at.
		{"messages", `
			CREATE TABLE IF NOT EXISTS messages (
				id         TEXT PRIMARY KEY,
				session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				content    TEXT NOT NULL,
				sender     TEXT NOT NULL CHECK (sender IN ('USER', 'AI')),
				created_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_messages_session_created ON messages(session_id, created_at);`},
		{"conversations", `
			CREATE TABLE IF NOT EXISTS conversations (
				id         TEXT PRIMARY KEY,
				project_id TEXT NOT NULL UNIQUE REFERENCES projects(id) ON DELETE CASCADE,
				user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				messages   TEXT NOT NULL DEFAULT '[]',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", step.name, err)
		}
	}
	return nil
}

// now returns the current time in UTC. All stores stamp rows through it.
func now() time.Time {
	return time.Now().UTC()
}

// placeholders returns "?, ?, ?" for n arguments, for IN (...) clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
// modernc's error type is not part of its stable API, so match on the text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
