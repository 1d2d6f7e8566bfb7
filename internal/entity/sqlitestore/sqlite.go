// Package sqlitestore is the SQLite implementation of entity.Store over the
// users, venues and checkins tables.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/entity"
)

// Store implements entity.Store using SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the database at path with WAL mode and foreign keys enabled and
// creates the schema if needed.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	firstname TEXT,
	lastname TEXT
);

CREATE TABLE IF NOT EXISTS venues (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	city TEXT,
	state TEXT,
	zip TEXT,
	cat_id TEXT,
	cat_name TEXT
);

CREATE INDEX IF NOT EXISTS idx_venues_cat_name ON venues(cat_name);

CREATE TABLE IF NOT EXISTS user_venues (
	user_id TEXT NOT NULL,
	venue_id TEXT NOT NULL,
	UNIQUE(user_id, venue_id),
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY(venue_id) REFERENCES venues(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS checkins (
	id TEXT PRIMARY KEY,
	shout TEXT NOT NULL,
	date TEXT NOT NULL,
	time TEXT NOT NULL,
	weekday INTEGER NOT NULL,
	user_id TEXT,
	venue_id TEXT NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE SET NULL,
	FOREIGN KEY(venue_id) REFERENCES venues(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_checkins_venue ON checkins(venue_id, date, time, id);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// InsertCheckins stores checkins in one transaction, creating their users
// and venues on first sight. Duplicate check-in ids are ignored. It returns
// the number of new check-ins.
func (s *Store) InsertCheckins(ctx context.Context, checkins []entity.Checkin) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, c := range checkins {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO users (id, firstname, lastname) VALUES (?, ?, ?)`,
			c.UserID, c.UserFirst, c.UserLast); err != nil {
			return 0, fmt.Errorf("inserting user %s: %w", c.UserID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO venues (id, name, city, state, zip, cat_id, cat_name) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.VenueID, c.VenueName, c.City, c.State, c.Zip, c.CategoryID, c.CategoryName); err != nil {
			return 0, fmt.Errorf("inserting venue %s: %w", c.VenueID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_venues (user_id, venue_id) VALUES (?, ?)`,
			c.UserID, c.VenueID); err != nil {
			return 0, fmt.Errorf("linking user %s to venue %s: %w", c.UserID, c.VenueID, err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO checkins (id, shout, date, time, weekday, user_id, venue_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Shout, c.LocalTime.Format("2006-01-02"), c.LocalTime.Format("15:04:05"), c.Weekday(), c.UserID, c.VenueID)
		if err != nil {
			return 0, fmt.Errorf("inserting checkin %s: %w", c.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing checkins: %w", err)
	}
	return inserted, nil
}

func (s *Store) EntityIDs(ctx context.Context) ([]string, error) {
	return queryIDs(ctx, s.db, `SELECT id FROM venues ORDER BY id`)
}

func (s *Store) TopEntities(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	return queryIDs(ctx, s.db, `
SELECT v.id
FROM venues v
LEFT JOIN checkins c ON c.venue_id = v.id
GROUP BY v.id
ORDER BY COUNT(c.id) DESC, v.id ASC
LIMIT ?`, n)
}

func (s *Store) AggregateText(ctx context.Context, id string) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT shout FROM checkins WHERE venue_id = ? ORDER BY date, time, id`, id)
	if err != nil {
		return "", fmt.Errorf("querying shouts: %w", err)
	}
	defer rows.Close()

	var shouts []string
	for rows.Next() {
		var shout string
		if err := rows.Scan(&shout); err != nil {
			return "", fmt.Errorf("scanning shout: %w", err)
		}
		shouts = append(shouts, shout)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return entity.JoinTexts(shouts), nil
}

// Names returns the display name of each id that exists.
func (s *Store) Names(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		var name string
		err := s.db.QueryRowContext(ctx, `SELECT name FROM venues WHERE id = ?`, id).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("querying venue %s: %w", id, err)
		}
		names[id] = name
	}
	return names, nil
}

func queryIDs(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying venues: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning venue id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ entity.Store = (*Store)(nil)
