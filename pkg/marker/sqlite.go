package marker

import (
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // pure Go SQLite driver, WAL-friendly
)

const markerSchema = `
CREATE TABLE IF NOT EXISTS markers (
	key       TEXT PRIMARY KEY,
	edited_at INTEGER NOT NULL
);`

// SQLiteStore implements Store on a single-file SQLite database. Writes are
// flushed by the database on commit, so a recorded marker survives an
// immediate process kill.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the marker database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "unable to create marker database directory")
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, errors.Wrap(err, "unable to open marker database")
	}
	// The store is the sole writer; a single connection sidesteps
	// SQLITE_BUSY contention entirely.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(markerSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "unable to initialize marker schema")
	}

	return &SQLiteStore{db: db}, nil
}

func sqliteDSN(path string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(path),
	}
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "3000")
	u.RawQuery = q.Encode()
	return u.String()
}

// Get returns the recorded timestamp for key, or 0 when absent.
func (s *SQLiteStore) Get(key Key) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var editedAt int64
	err := s.db.QueryRow(`SELECT edited_at FROM markers WHERE key = ?`, key).Scan(&editedAt)
	switch {
	case err == sql.ErrNoRows:
		return 0, nil
	case err != nil:
		return 0, errors.Wrap(err, "unable to read marker")
	}
	return editedAt, nil
}

// Set durably records the timestamp for key.
func (s *SQLiteStore) Set(key Key, editedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO markers (key, edited_at) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET edited_at = excluded.edited_at`,
		key, editedAt)
	return errors.Wrap(err, "unable to write marker")
}

// Delete removes the marker for key.
func (s *SQLiteStore) Delete(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM markers WHERE key = ?`, key)
	return errors.Wrap(err, "unable to delete marker")
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
