package bow

import (
	"reflect"
	"testing"
)

func TestCountDropsUnknownTokens(t *testing.T) {
	ids := map[string]int{"coffee": 2, "latte": 0}
	lookup := func(tok string) (int, bool) {
		id, ok := ids[tok]
		return id, ok
	}

	v := Count([]string{"coffee", "tea", "latte", "coffee", "scone"}, lookup)
	want := Vector{{ID: 0, Count: 1}, {ID: 2, Count: 2}}
	if !v.Equal(want) {
		t.Fatalf("Count = %v, want %v", v, want)
	}
	if v.Total() != 3 {
		t.Errorf("Total = %d, want 3", v.Total())
	}
}

func TestCountEmpty(t *testing.T) {
	v := Count(nil, func(string) (int, bool) { return 0, true })
	if len(v) != 0 || v.Total() != 0 {
		t.Fatalf("Count(nil) = %v", v)
	}
}

func TestDense(t *testing.T) {
	v := Vector{{ID: 1, Count: 3}, {ID: 4, Count: 1}}
	got := v.Dense(3)
	if want := []float64{0, 3, 0}; !reflect.DeepEqual(got, want) {
		t.Errorf("Dense(3) = %v, want %v", got, want)
	}
}

func TestEqual(t *testing.T) {
	a := Vector{{ID: 1, Count: 1}}
	if a.Equal(Vector{{ID: 1, Count: 2}}) {
		t.Error("vectors with different counts compared equal")
	}
	if !Vector(nil).Equal(Vector{}) {
		t.Error("nil and empty vectors should be equal")
	}
}
