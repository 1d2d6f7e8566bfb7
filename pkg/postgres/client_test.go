package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/config"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization", &pq.Error{Code: "40001"}, true},
		{"deadlock", &pq.Error{Code: "40P01"}, true},
		{"connection failure", fmt.Errorf("query: %w", &pq.Error{Code: "08006"}), true},
		{"admin shutdown", &pq.Error{Code: "57P01"}, true},
		{"syntax", &pq.Error{Code: "42601"}, false},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"bad conn", driver.ErrBadConn, true},
		{"canceled", context.Canceled, false},
		{"no rows", sql.ErrNoRows, false},
		{"other", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	dsn := os.Getenv("VT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skipping integration test: VT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	c, err := Open(ctx, dsn, config.PostgresConfig{MaxOpenConns: 1})
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	defer c.Close()

	if _, err := c.DB.ExecContext(ctx, `CREATE TEMP TABLE tx_check (n INT)`); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	err = c.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tx_check VALUES (1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}
