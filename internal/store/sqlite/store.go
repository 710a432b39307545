// Package sqlite provides the durable local catalog store on SQLite.
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema
// 1 - UNIQUE index on catalog_records.remote_id for databases created without the column constraint
// 2 - Index on catalog_records.external_code for adoption lookups
// 3 - conflicts.remote_updated_at with one row per (local_id, remote_id, remote_updated_at)
const currentSchemaVersion = 3

// Store is the SQLite-backed local catalog.
type Store struct {
	db       *sql.DB
	path     string
	instance string
	clock    func() utc.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for local timestamps.
func WithClock(clock func() utc.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// Open creates or opens the database at path, applying pragmas and
// migrations. A leading "~" expands to the home directory.
func Open(path string, opts ...Option) (*Store, error) {
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
			return nil, errors.WrapResource("create", "directory", filepath.Dir(path), err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{db: db, path: path, clock: utc.Now}
	for _, opt := range opts {
		opt(s)
	}

	if s.instance, err = loadInstanceID(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logging.Debug().
		Str("path", path).
		Str("instance_id", s.instance).
		Msg("Opened local catalog")
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// InstanceID returns the durable id of this database, generated on first
// open.
func (s *Store) InstanceID() string {
	return s.instance
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", constants.SQLiteBusyTimeout),
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	migrations := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_catalog_records_remote_id ON catalog_records(remote_id)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_records_external_code ON catalog_records(external_code)`,
		`ALTER TABLE conflicts ADD COLUMN remote_updated_at TEXT NOT NULL DEFAULT '';
		 UPDATE conflicts SET remote_updated_at = COALESCE(json_extract(remote_payload, '$.updated_at'), '');
		 DELETE FROM conflicts WHERE id NOT IN (
		     SELECT MIN(id) FROM conflicts GROUP BY local_id, remote_id, remote_updated_at
		 );
		 CREATE UNIQUE INDEX IF NOT EXISTS idx_conflicts_remote_version
		     ON conflicts(local_id, remote_id, remote_updated_at);`,
	}
	for v := version; v < len(migrations); v++ {
		if _, err := db.Exec(migrations[v]); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func loadInstanceID(db *sql.DB) (string, error) {
	_, err := db.Exec(
		`INSERT INTO store_meta (key, value) VALUES ('instance_id', ?) ON CONFLICT(key) DO NOTHING`,
		uuid.NewString(),
	)
	if err != nil {
		return "", errors.WrapResource("insert", "instance id", "", err)
	}

	var id string
	if err := db.QueryRow(`SELECT value FROM store_meta WHERE key = 'instance_id'`).Scan(&id); err != nil {
		return "", errors.WrapResource("fetch", "instance id", "", err)
	}
	return id, nil
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", errors.NewValidationError("db_path", path, "is required")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.WrapResource("resolve", "home directory", "", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path, nil
}

// verifyPragma checks that a pragma is set to the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
