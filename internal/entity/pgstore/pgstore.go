// Package pgstore is the PostgreSQL implementation of entity.Store. Reads
// are retried with backoff; schema is created on first use.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/entity"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/resilience"
)

type Store struct {
	db     *postgres.Client
	retry  resilience.Backoff
	logger *slog.Logger
}

// New wraps an open client and ensures the schema exists.
func New(ctx context.Context, db *postgres.Client) (*Store, error) {
	s := &Store{
		db: db,
		retry: resilience.Backoff{
			Attempts:  3,
			Base:      200 * time.Millisecond,
			Cap:       2 * time.Second,
			Retryable: postgres.IsTransient,
		},
		logger: slog.Default().With("component", "pgstore"),
	}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
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
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	venue_id TEXT NOT NULL REFERENCES venues(id) ON DELETE CASCADE,
	UNIQUE(user_id, venue_id)
);

CREATE TABLE IF NOT EXISTS checkins (
	id TEXT PRIMARY KEY,
	shout TEXT NOT NULL,
	local_time TIMESTAMP NOT NULL,
	weekday SMALLINT NOT NULL,
	user_id TEXT REFERENCES users(id) ON DELETE SET NULL,
	venue_id TEXT NOT NULL REFERENCES venues(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_checkins_venue ON checkins(venue_id, local_time, id);
`
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// InsertCheckins stores checkins in one transaction. Duplicate ids are
// ignored; the number of new check-ins is returned.
func (s *Store) InsertCheckins(ctx context.Context, checkins []entity.Checkin) (int, error) {
	inserted := 0
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		inserted = 0
		for _, c := range checkins {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO users (id, firstname, lastname) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
				c.UserID, c.UserFirst, c.UserLast); err != nil {
				return fmt.Errorf("inserting user %s: %w", c.UserID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO venues (id, name, city, state, zip, cat_id, cat_name)
				 VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
				c.VenueID, c.VenueName, c.City, c.State, c.Zip, c.CategoryID, c.CategoryName); err != nil {
				return fmt.Errorf("inserting venue %s: %w", c.VenueID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_venues (user_id, venue_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				c.UserID, c.VenueID); err != nil {
				return fmt.Errorf("linking user %s to venue %s: %w", c.UserID, c.VenueID, err)
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO checkins (id, shout, local_time, weekday, user_id, venue_id)
				 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
				c.ID, c.Shout, c.LocalTime, c.Weekday(), c.UserID, c.VenueID)
			if err != nil {
				return fmt.Errorf("inserting checkin %s: %w", c.ID, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *Store) EntityIDs(ctx context.Context) ([]string, error) {
	return s.queryIDs(ctx, "entity_ids", `SELECT id FROM venues ORDER BY id COLLATE "C"`)
}

func (s *Store) TopEntities(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	return s.queryIDs(ctx, "top_entities", `
SELECT v.id
FROM venues v
LEFT JOIN checkins c ON c.venue_id = v.id
GROUP BY v.id
ORDER BY COUNT(c.id) DESC, v.id COLLATE "C" ASC
LIMIT $1`, n)
}

func (s *Store) AggregateText(ctx context.Context, id string) (string, error) {
	var shouts []string
	err := s.retry.Do(ctx, "aggregate_text", func(ctx context.Context) error {
		shouts = shouts[:0]
		rows, err := s.db.DB.QueryContext(ctx,
			`SELECT shout FROM checkins WHERE venue_id = $1 ORDER BY local_time, id COLLATE "C"`, id)
		if err != nil {
			return fmt.Errorf("querying shouts: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var shout string
			if err := rows.Scan(&shout); err != nil {
				return fmt.Errorf("scanning shout: %w", err)
			}
			shouts = append(shouts, shout)
		}
		return rows.Err()
	})
	if err != nil {
		return "", err
	}
	return entity.JoinTexts(shouts), nil
}

// Names returns the display name of each id that exists.
func (s *Store) Names(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		var name string
		err := s.db.DB.QueryRowContext(ctx, `SELECT name FROM venues WHERE id = $1`, id).Scan(&name)
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

func (s *Store) queryIDs(ctx context.Context, name, query string, args ...any) ([]string, error) {
	var ids []string
	err := s.retry.Do(ctx, name, func(ctx context.Context) error {
		ids = ids[:0]
		rows, err := s.db.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("querying venues: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scanning venue id: %w", err)
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

var _ entity.Store = (*Store)(nil)
