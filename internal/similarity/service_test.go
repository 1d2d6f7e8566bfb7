package similarity

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/bow"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/entity"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/topics"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/metrics"
)

type fakeStore struct {
	top   []string
	names map[string]string
}

func (s fakeStore) EntityIDs(ctx context.Context) ([]string, error) { return s.top, nil }

func (s fakeStore) TopEntities(ctx context.Context, n int) ([]string, error) {
	if n < len(s.top) {
		return s.top[:n], nil
	}
	return s.top, nil
}

func (s fakeStore) AggregateText(ctx context.Context, id string) (string, error) { return "", nil }

func (s fakeStore) Names(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if name, ok := s.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

type recorder struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (r *recorder) Publish(ctx context.Context, e kafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// gappyLookup fails for the positions in missing.
type gappyLookup struct {
	*topics.Table
	missing map[int]bool
}

func (l gappyLookup) TopicsAt(ctx context.Context, pos int) ([]float64, error) {
	if l.missing[pos] {
		return nil, errors.New("row not cached")
	}
	return l.Table.TopicsAt(ctx, pos)
}

func newIndex(t *testing.T, ids ...string) *entity.Index {
	t.Helper()
	ix, err := entity.Build(ids, entity.Lexicographic)
	if err != nil {
		t.Fatal(err)
	}
	return ix
}

func TestCompareEntitiesSkipsUnknown(t *testing.T) {
	ix := newIndex(t, "v1", "v2", "v3")
	table := topics.NewTable([][]float64{
		{1, 0},
		{0, 1},
		{0.5, 0.5},
	}, 2)
	store := fakeStore{
		top:   []string{"v3", "ghost", "v1"},
		names: map[string]string{"v1": "Blue Bottle", "v3": "Taqueria"},
	}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	pub := &recorder{}
	svc := New(store, ix, 3, table, Options{Publisher: pub, Metrics: m})

	report, err := svc.CompareEntities(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	res := report.Result
	if res.Len() != 2 || res.Labels[0] != "v3" || res.Labels[1] != "v1" {
		t.Fatalf("labels = %q", res.Labels)
	}
	want := math.Sqrt(math.Pow(math.Sqrt(0.5)-1, 2)+0.5) / math.Sqrt2
	if math.Abs(res.At(0, 1)-want) > 1e-12 {
		t.Errorf("distance = %v, want %v", res.At(0, 1), want)
	}
	if len(report.Unknown) != 1 || report.Unknown[0] != "ghost" {
		t.Errorf("unknown = %q", report.Unknown)
	}
	if report.Names["v1"] != "Blue Bottle" {
		t.Errorf("names = %v", report.Names)
	}
	if got := testutil.ToFloat64(m.UnknownEntitiesTotal); got != 1 {
		t.Errorf("unknown_entities_total = %v", got)
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events", len(pub.events))
	}
	ev := pub.events[0].Value.(ResultEvent)
	if len(ev.Distances) != 2 || ev.Distances[1][0] != res.At(1, 0) {
		t.Errorf("event = %+v", ev)
	}
}

func TestCompareEntitiesVerifiesIndexFirst(t *testing.T) {
	ix := newIndex(t, "v1", "v2")
	svc := New(fakeStore{top: []string{"v1"}}, ix, 3, topics.NewTable(nil, 2), Options{})
	_, err := svc.CompareEntities(context.Background(), 1)
	if !apperrors.Is(err, apperrors.ErrOrderingMismatch) {
		t.Fatalf("err = %v, want ErrOrderingMismatch", err)
	}
}

func TestCompareEntitiesExcludesInvalidVectors(t *testing.T) {
	ix := newIndex(t, "a", "b", "c")
	table := topics.NewTable([][]float64{{1, 0}, {-0.5, 1.5}, {0, 1}}, 2)
	svc := New(fakeStore{top: []string{"a", "b", "c"}}, ix, 3, table, Options{})
	report, err := svc.CompareEntities(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if report.Result.Len() != 2 || len(report.Result.Excluded) != 1 || report.Result.Excluded[0].Label != "b" {
		t.Fatalf("result = %+v", report.Result)
	}

	strict := New(fakeStore{top: []string{"a", "b", "c"}}, ix, 3, table, Options{})
	strict.opts.Distance.Strict = true
	if _, err := strict.CompareEntities(context.Background(), 3); !apperrors.Is(err, apperrors.ErrInvalidDistribution) {
		t.Fatalf("strict err = %v", err)
	}
}

func TestCompareDocuments(t *testing.T) {
	model := topics.Func{K: 2, Fn: func(ctx context.Context, doc bow.Vector) ([]float64, error) {
		if len(doc) == 0 {
			return []float64{0.5, 0.5}, nil
		}
		if doc[0].ID == 0 {
			return []float64{1, 0}, nil
		}
		return []float64{0, 1}, nil
	}}
	svc := New(fakeStore{}, newIndex(t, "x"), 1, topics.NewTable(nil, 2), Options{Model: model})
	res, err := svc.CompareDocuments(context.Background(), []bow.Vector{
		{{ID: 0, Count: 3}},
		{{ID: 1, Count: 1}},
		{},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Len() != 3 || math.Abs(res.At(0, 1)-1) > 1e-12 || res.At(2, 2) != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestCompareDocumentsRequiresModel(t *testing.T) {
	svc := New(fakeStore{}, newIndex(t, "x"), 1, topics.NewTable(nil, 2), Options{})
	if _, err := svc.CompareDocuments(context.Background(), nil); !apperrors.Is(err, apperrors.ErrInvalidConfig) {
		t.Fatalf("err = %v", err)
	}
}

func TestCompareEntitiesExcludesFailedLookups(t *testing.T) {
	ix := newIndex(t, "a", "b", "c")
	lookup := gappyLookup{
		Table:   topics.NewTable([][]float64{{1, 0}, {0, 1}, {0.5, 0.5}}, 2),
		missing: map[int]bool{1: true},
	}
	pub := &recorder{}
	svc := New(fakeStore{top: []string{"a", "b", "c"}}, ix, 3, lookup, Options{Publisher: pub})
	report, err := svc.CompareEntities(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	res := report.Result
	if res.Len() != 2 || res.Labels[0] != "a" || res.Labels[1] != "c" {
		t.Fatalf("labels = %q", res.Labels)
	}
	if len(res.Excluded) != 1 || res.Excluded[0].Label != "b" || res.Excluded[0].Index != -1 {
		t.Fatalf("excluded = %+v", res.Excluded)
	}
	if ev := pub.events[0].Value.(ResultEvent); len(ev.Excluded) != 1 || ev.Excluded[0] != "b" {
		t.Errorf("event excluded = %q", ev.Excluded)
	}

	strict := New(fakeStore{top: []string{"a", "b", "c"}}, ix, 3, lookup, Options{})
	strict.opts.Distance.Strict = true
	if _, err := strict.CompareEntities(context.Background(), 3); err == nil {
		t.Fatal("strict comparison ignored a failed lookup")
	}
}
