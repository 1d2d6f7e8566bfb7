package pgstore

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/entity"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/postgres"
)

// skipIfNoPostgres skips the test when VT_TEST_POSTGRES_DSN is unset or the
// server is unreachable.
func skipIfNoPostgres(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("VT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skipping integration test: VT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := postgres.Open(ctx, dsn, config.PostgresConfig{MaxOpenConns: 4})
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st, err := New(ctx, db)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := db.DB.ExecContext(ctx, `TRUNCATE checkins, user_venues, venues, users`); err != nil {
		t.Fatalf("truncating: %v", err)
	}
	return st
}

func TestPostgresStore(t *testing.T) {
	st := skipIfNoPostgres(t)
	ctx := context.Background()
	base := time.Date(2013, 10, 27, 12, 0, 0, 0, time.UTC)

	checkins := []entity.Checkin{
		{ID: "c1", UserID: "u1", VenueID: "v2", VenueName: "Second", Shout: "late", LocalTime: base.Add(time.Hour)},
		{ID: "c2", UserID: "u2", VenueID: "v2", VenueName: "Second", Shout: "early", LocalTime: base},
		{ID: "c3", UserID: "u1", VenueID: "v1", VenueName: "First", Shout: "tacos", LocalTime: base},
	}
	n, err := st.InsertCheckins(ctx, checkins)
	if err != nil {
		t.Fatalf("InsertCheckins: %v", err)
	}
	if n != 3 {
		t.Fatalf("inserted %d, want 3", n)
	}
	if n, _ := st.InsertCheckins(ctx, checkins[:1]); n != 0 {
		t.Errorf("duplicate insert counted %d", n)
	}

	ids, err := st.EntityIDs(ctx)
	if err != nil || !reflect.DeepEqual(ids, []string{"v1", "v2"}) {
		t.Errorf("EntityIDs = %q, %v", ids, err)
	}
	top, err := st.TopEntities(ctx, 1)
	if err != nil || !reflect.DeepEqual(top, []string{"v2"}) {
		t.Errorf("TopEntities = %q, %v", top, err)
	}
	text, err := st.AggregateText(ctx, "v2")
	if err != nil || text != "early\nlate" {
		t.Errorf("AggregateText = %q, %v", text, err)
	}
	names, err := st.Names(ctx, []string{"v1"})
	if err != nil || names["v1"] != "First" {
		t.Errorf("Names = %v, %v", names, err)
	}
}
