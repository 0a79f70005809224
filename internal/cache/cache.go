// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists retrieval-backend responses in a SQLite database
// with TTL-based eviction. The clock is injected so tests can control expiry.
// Implements: prd007-cache (R1-R4);
//
//	docs/ARCHITECTURE § Search Cache.
package cache

import (
	"crypto/md5"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const dbFile = "search-cache.db"

// Store manages the search-response cache database.
type Store struct {
	db  *sql.DB
	ttl time.Duration

	// now returns the current time; tests substitute a fake clock.
	now func() time.Time
}

// Stats reports cache contents.
type Stats struct {
	Entries int
	Expired int
}

// Key derives the cache key for a canonical request payload. The key is the
// md5 hex digest of the payload bytes, so equal requests always hit the same
// row regardless of which query produced them.
func Key(payload []byte) string {
	return fmt.Sprintf("%x", md5.Sum(payload))
}

// NewStore opens or creates the cache database at dir/search-cache.db and
// creates the schema if it does not exist.
func NewStore(dir string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	s := &Store{db: db, ttl: ttl, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS responses (
		key TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

// Get returns the cached payload for key, or ok=false on a miss. An entry
// older than the TTL counts as a miss and is deleted on the way out.
func (s *Store) Get(key string) (payload []byte, ok bool, err error) {
	var text string
	var createdAt int64
	row := s.db.QueryRow(`SELECT payload, created_at FROM responses WHERE key = ?`, key)
	if err := row.Scan(&text, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	if s.now().Unix()-createdAt > int64(s.ttl.Seconds()) {
		if _, err := s.db.Exec(`DELETE FROM responses WHERE key = ?`, key); err != nil {
			return nil, false, fmt.Errorf("evicting expired entry: %w", err)
		}
		return nil, false, nil
	}
	return []byte(text), true, nil
}

// Put stores a payload under key, replacing any previous entry. The query
// text is stored alongside for inspection with the cache subcommand.
func (s *Store) Put(key, query string, payload []byte) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO responses (key, query, payload, created_at) VALUES (?, ?, ?, ?)`,
		key, query, string(payload), s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Purge deletes all expired entries and returns the number removed.
func (s *Store) Purge() (int, error) {
	cutoff := s.now().Unix() - int64(s.ttl.Seconds())
	res, err := s.db.Exec(`DELETE FROM responses WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged rows: %w", err)
	}
	return int(n), nil
}

// Stats counts total and expired entries.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM responses`).Scan(&st.Entries); err != nil {
		return Stats{}, fmt.Errorf("counting cache entries: %w", err)
	}
	cutoff := s.now().Unix() - int64(s.ttl.Seconds())
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM responses WHERE created_at <= ?`, cutoff).Scan(&st.Expired); err != nil {
		return Stats{}, fmt.Errorf("counting expired entries: %w", err)
	}
	return st, nil
}
