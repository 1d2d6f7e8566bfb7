package entity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/source"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

func TestBuildSortsBeforeAssigningPositions(t *testing.T) {
	ix, err := Build([]string{"v2", "v1"}, Lexicographic)
	if err != nil {
		t.Fatal(err)
	}
	for id, want := range map[string]int{"v1": 0, "v2": 1} {
		got, err := ix.Resolve(id)
		if err != nil || got != want {
			t.Errorf("Resolve(%q) = %d, %v; want %d", id, got, err, want)
		}
	}
	if got := ix.IDs(); !reflect.DeepEqual(got, []string{"v1", "v2"}) {
		t.Errorf("IDs = %q", got)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	ids := []string{"4b05", "4a9c", "zz", "4b058", "A1"}
	first, err := Build(ids, Lexicographic)
	if err != nil {
		t.Fatal(err)
	}
	shuffled := []string{"zz", "A1", "4b058", "4a9c", "4b05"}
	second, err := Build(shuffled, Lexicographic)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.IDs(), second.IDs()) {
		t.Fatalf("orderings differ: %q vs %q", first.IDs(), second.IDs())
	}
}

func TestBuildAsGivenKeepsOrder(t *testing.T) {
	ix, err := Build([]string{"v2", "v1"}, AsGiven)
	if err != nil {
		t.Fatal(err)
	}
	if p, _ := ix.Resolve("v2"); p != 0 {
		t.Errorf("Resolve(v2) = %d, want 0", p)
	}
}

func TestBuildRejectsBadIDs(t *testing.T) {
	for _, ids := range [][]string{{"a", "a"}, {""}, {"a\tb"}} {
		if _, err := Build(ids, Lexicographic); !apperrors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("Build(%q) err = %v, want ErrInvalidInput", ids, err)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	ix, _ := Build([]string{"v1"}, Lexicographic)
	_, err := ix.Resolve("v9")
	if !apperrors.Is(err, apperrors.ErrUnknownEntity) {
		t.Fatalf("err = %v, want ErrUnknownEntity", err)
	}
	if apperrors.IsFatal(err) {
		t.Error("unknown entity must be recoverable")
	}
}

func TestVerify(t *testing.T) {
	ix, _ := Build([]string{"v1", "v2"}, Lexicographic)
	if err := ix.Verify(2); err != nil {
		t.Errorf("Verify(2): %v", err)
	}
	err := ix.Verify(3)
	if !apperrors.Is(err, apperrors.ErrOrderingMismatch) {
		t.Fatalf("Verify(3) err = %v, want ErrOrderingMismatch", err)
	}
	if !apperrors.IsFatal(err) {
		t.Error("ordering mismatch must be fatal")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ix, _ := Build([]string{"v3", "v1", "v2"}, Lexicographic)
	path := filepath.Join(t.TempDir(), "entities.tsv")
	if err := ix.Save(path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "v1\t0\nv2\t1\nv3\t2\n" {
		t.Errorf("file = %q", data)
	}
	loaded, err := Load(path, Lexicographic)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded.IDs(), ix.IDs()) || loaded.Ordering() != Lexicographic {
		t.Errorf("loaded = %q (%v)", loaded.IDs(), loaded.Ordering())
	}
}

func TestLoadDetectsOrderingProblems(t *testing.T) {
	cases := map[string]struct {
		content  string
		ordering Ordering
		want     error
	}{
		"unsorted":         {"v2\t0\nv1\t1\n", Lexicographic, apperrors.ErrOrderingMismatch},
		"unsorted allowed": {"v2\t0\nv1\t1\n", AsGiven, nil},
		"position gap":     {"v1\t0\nv2\t2\n", Lexicographic, apperrors.ErrOrderingMismatch},
		"no tab":           {"v1 0\n", Lexicographic, apperrors.ErrCorruptFile},
		"bad position":     {"v1\tx\n", Lexicographic, apperrors.ErrCorruptFile},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "entities.tsv")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path, tc.ordering)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("Load: %v", err)
				}
				return
			}
			if !apperrors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestParseOrdering(t *testing.T) {
	if o, err := ParseOrdering("lexicographic"); err != nil || o != Lexicographic {
		t.Errorf("lexicographic = %v, %v", o, err)
	}
	if o, err := ParseOrdering("as-given"); err != nil || o != AsGiven {
		t.Errorf("as-given = %v, %v", o, err)
	}
	if _, err := ParseOrdering("random"); !apperrors.Is(err, apperrors.ErrInvalidConfig) {
		t.Errorf("random err = %v", err)
	}
}

type memStore struct {
	texts map[string][]string
	calls int
}

func (m *memStore) EntityIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.texts))
	for id := range m.texts {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memStore) TopEntities(ctx context.Context, n int) ([]string, error) {
	return nil, fmt.Errorf("not used")
}

func (m *memStore) AggregateText(ctx context.Context, id string) (string, error) {
	m.calls++
	return JoinTexts(m.texts[id]), nil
}

func TestAggregateSourceFollowsIndexOrder(t *testing.T) {
	store := &memStore{texts: map[string][]string{
		"v2": {"second venue"},
		"v1": {"first venue", "great tacos"},
	}}
	ix, err := BuildFromStore(context.Background(), store, Lexicographic)
	if err != nil {
		t.Fatal(err)
	}
	src := NewAggregateSource(store, ix)
	var _ source.Source = src

	for pass := 0; pass < 2; pass++ {
		var docs []string
		err := src.Each(context.Background(), func(doc string) error {
			docs = append(docs, doc)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"first venue\ngreat tacos", "second venue"}
		if !reflect.DeepEqual(docs, want) {
			t.Fatalf("pass %d docs = %q, want %q", pass, docs, want)
		}
	}
	if store.calls != 4 {
		t.Errorf("store queried %d times, want 4", store.calls)
	}
}

func TestParseCheckin(t *testing.T) {
	line := `{"id":"c1","shout":"Tacos! #yum","createdAt":1382918400,"timeZoneOffset":-300,
		"user":{"id":"u1","firstName":"Ana"},
		"venue":{"id":"v1","name":"Taco Hut","location":{"city":"Austin","state":"TX","postalCode":"78701"},
			"categories":[{"id":"cat1","name":"Mexican"},{"id":"cat2","name":"Food Truck"}]}}`
	c, err := ParseCheckin([]byte(strings.ReplaceAll(line, "\n", "")))
	if err != nil {
		t.Fatal(err)
	}
	if c.VenueID != "v1" || c.CategoryName != "Mexican" || c.City != "Austin" || c.Shout != "Tacos! #yum" {
		t.Errorf("checkin = %+v", c)
	}
	// 2013-10-28 00:00 UTC shifted by -5h is Sunday 2013-10-27 19:00.
	if c.LocalTime.Hour() != 19 || c.Weekday() != 7 {
		t.Errorf("local time = %v weekday %d", c.LocalTime, c.Weekday())
	}
}

func TestDecodeCheckinsSkipsIncomplete(t *testing.T) {
	input := strings.Join([]string{
		`{"id":"c1","shout":"one","createdAt":1,"user":{"id":"u1"},"venue":{"id":"v1"}}`,
		`{"id":"c2","createdAt":1,"user":{"id":"u1"},"venue":{"id":"v1"}}`,
		`not json`,
		``,
		`{"id":"c3","shout":"three","createdAt":1,"user":{"id":"u2"},"venue":{"id":"v2"}}`,
	}, "\n")
	var ids []string
	loaded, skipped, err := DecodeCheckins(context.Background(), strings.NewReader(input), func(c Checkin) error {
		ids = append(ids, c.ID)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if loaded != 2 || skipped != 2 || !reflect.DeepEqual(ids, []string{"c1", "c3"}) {
		t.Errorf("loaded=%d skipped=%d ids=%q", loaded, skipped, ids)
	}
}
