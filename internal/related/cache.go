// Package related serves recommendation pools, backed by a SQLite cache so
// revisiting a track does not refetch its neighborhood.
package related

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"ossia/internal/song"
)

// DefaultTTL is how long a cached recommendation set stays fresh.
const DefaultTTL = 24 * time.Hour

// Cache stores recommendation sets keyed by seed kind and seed id.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

// OpenCache opens (or creates) the cache database at path. A ttl of zero
// selects DefaultTTL.
func OpenCache(path string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db, ttl: ttl}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS recommendations (
			seed_kind TEXT NOT NULL,
			seed_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			artist TEXT NOT NULL,
			canonical_id TEXT NOT NULL,
			artist_canonical_id TEXT NOT NULL,
			artwork_url TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (seed_kind, seed_id, position)
		);
	`)
	return err
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) isExpired(fetchedAt int64) bool {
	return time.Unix(fetchedAt, 0).Add(c.ttl).Before(time.Now())
}

// Get returns the cached set for a seed, reporting whether a fresh entry
// existed. An expired entry reads as a miss.
func (c *Cache) Get(kind, seedID string) ([]song.Track, bool, error) {
	rows, err := c.db.Query(`
		SELECT position, title, artist, canonical_id, artist_canonical_id, artwork_url, duration_ms, fetched_at
		FROM recommendations
		WHERE seed_kind = ? AND seed_id = ?
		ORDER BY position ASC
	`, kind, seedID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var result []song.Track
	var fetchedAt int64
	hasData := false

	for rows.Next() {
		var t song.Track
		var position, durationMS int64
		if err := rows.Scan(&position, &t.Title, &t.Artist, &t.CanonicalID, &t.ArtistCanonicalID,
			&t.ArtworkURL, &durationMS, &fetchedAt); err != nil {
			return nil, false, err
		}
		hasData = true

		// Entries of one set share a timestamp.
		if c.isExpired(fetchedAt) {
			return nil, false, nil
		}

		// A negative position marks a fetched-but-empty set.
		if position < 0 {
			continue
		}

		t.Duration = time.Duration(durationMS) * time.Millisecond
		result = append(result, t)
	}

	if !hasData {
		return nil, false, nil
	}
	return result, true, rows.Err()
}

// Set replaces the cached set for a seed. An empty set is cached too, so a
// seed known to have no neighbors is not refetched every time.
func (c *Cache) Set(kind, seedID string, tracks []song.Track) (err error) {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback() //nolint:errcheck // rollback on error path, result doesn't matter
		}
	}()

	_, err = tx.Exec(`DELETE FROM recommendations WHERE seed_kind = ? AND seed_id = ?`, kind, seedID)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	stmt, err := tx.Prepare(`
		INSERT INTO recommendations
			(seed_kind, seed_id, position, title, artist, canonical_id, artist_canonical_id, artwork_url, duration_ms, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range tracks {
		_, err = stmt.Exec(kind, seedID, i, t.Title, t.Artist, t.CanonicalID,
			t.ArtistCanonicalID, t.ArtworkURL, t.Duration.Milliseconds(), now)
		if err != nil {
			return err
		}
	}
	if len(tracks) == 0 {
		// Sentinel row marking "fetched, empty".
		_, err = stmt.Exec(kind, seedID, -1, "", "", "", "", "", 0, now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
