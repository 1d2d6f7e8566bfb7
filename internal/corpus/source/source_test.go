package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

func collect(t *testing.T, src Source) []string {
	t.Helper()
	var docs []string
	if err := src.Each(context.Background(), func(doc string) error {
		docs = append(docs, doc)
		return nil
	}); err != nil {
		t.Fatalf("Each: %v", err)
	}
	return docs
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLinesIsRestartable(t *testing.T) {
	path := writeFile(t, "docs.txt", "a b\n\na c\r\nd d\n")
	src := Lines{Path: path}
	want := []string{"a b", "", "a c", "d d"}

	for pass := 0; pass < 2; pass++ {
		if got := collect(t, src); !reflect.DeepEqual(got, want) {
			t.Fatalf("pass %d = %q, want %q", pass, got, want)
		}
	}
	if !src.Restartable() {
		t.Error("Lines should be restartable")
	}
}

func TestJSONLinesSkipsMalformed(t *testing.T) {
	path := writeFile(t, "tweets.jsonl", strings.Join([]string{
		`{"id": 1, "text": "first tweet"}`,
		`{"id": 2, "text": `,
		``,
		`{"id": 3}`,
		`{"id": 4, "text": ""}`,
		`{"id": 5, "text": "last é"}`,
	}, "\n"))

	src := &JSONLines{Path: path}
	got := collect(t, src)
	want := []string{"first tweet", "", "last é"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("docs = %q, want %q", got, want)
	}
	if src.Skipped() != 2 {
		t.Errorf("Skipped() = %d, want 2", src.Skipped())
	}
}

func TestReaderIsSingleUse(t *testing.T) {
	rd := NewReader(strings.NewReader("one\ntwo\n"))
	if rd.Restartable() {
		t.Fatal("Reader must not report restartable")
	}
	if got := collect(t, rd); !reflect.DeepEqual(got, []string{"one", "two"}) {
		t.Fatalf("first pass = %q", got)
	}
	err := rd.Each(context.Background(), func(string) error { return nil })
	if !apperrors.Is(err, apperrors.ErrStreamNotRestartable) {
		t.Fatalf("second pass err = %v, want ErrStreamNotRestartable", err)
	}
}

func TestMaterialize(t *testing.T) {
	docs, err := Materialize(context.Background(), NewReader(strings.NewReader("x\ny\n")))
	if err != nil {
		t.Fatal(err)
	}
	if !docs.Restartable() {
		t.Fatal("materialized slice should be restartable")
	}
	for pass := 0; pass < 2; pass++ {
		if got := collect(t, docs); !reflect.DeepEqual(got, []string{"x", "y"}) {
			t.Fatalf("pass %d = %q", pass, got)
		}
	}
}

func TestEachStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	seen := 0
	err := Slice{"a", "b", "c"}.Each(context.Background(), func(string) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || seen != 2 {
		t.Fatalf("err = %v, seen = %d", err, seen)
	}
}

func TestEachHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Slice{"a"}.Each(ctx, func(string) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestCount(t *testing.T) {
	n, err := Count(context.Background(), Slice{"a", "b", "c"})
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}
