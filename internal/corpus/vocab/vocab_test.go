package vocab

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/bow"
	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/source"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

// fieldsTokenizer splits on whitespace with no filtering, so tests control
// exactly which tokens reach the builder.
type fieldsTokenizer struct{}

func (fieldsTokenizer) Tokenize(text string) []string { return strings.Fields(text) }

func build(t *testing.T, docs []string, opts Options) *Vocabulary {
	t.Helper()
	v, err := Build(context.Background(), source.Slice(docs), fieldsTokenizer{}, opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return v
}

func TestBuildPrunesSingleDocumentTokens(t *testing.T) {
	v := build(t, []string{"a b", "a c", "d d"}, DefaultOptions())

	if got := v.Tokens(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("Tokens = %q, want [a]", got)
	}
	id, ok := v.ID("a")
	if !ok || id != 0 {
		t.Fatalf("ID(a) = %d, %v", id, ok)
	}
	if v.DocFreq(id) != 2 {
		t.Errorf("DocFreq(a) = %d, want 2", v.DocFreq(id))
	}
	for _, gone := range []string{"b", "c", "d"} {
		if _, ok := v.ID(gone); ok {
			t.Errorf("%q should have been pruned", gone)
		}
	}
	if st := v.Stats(); st.Documents != 3 || st.RawTokens != 4 || st.Kept != 1 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestBuildIdsAreContiguousAndDeterministic(t *testing.T) {
	docs := []string{"zeta alpha mid", "mid zeta", "alpha beta", "beta zeta"}
	first := build(t, docs, Options{})
	second := build(t, docs, Options{})

	if !reflect.DeepEqual(first.Tokens(), second.Tokens()) {
		t.Fatalf("rebuild changed ids: %q vs %q", first.Tokens(), second.Tokens())
	}
	want := []string{"alpha", "beta", "mid", "zeta"}
	if !reflect.DeepEqual(first.Tokens(), want) {
		t.Fatalf("Tokens = %q, want %q", first.Tokens(), want)
	}
	for id := 0; id < first.Size(); id++ {
		tok, ok := first.Token(id)
		if !ok {
			t.Fatalf("Token(%d) missing", id)
		}
		if back, _ := first.ID(tok); back != id {
			t.Errorf("ID(Token(%d)) = %d", id, back)
		}
	}
	if _, ok := first.Token(first.Size()); ok {
		t.Error("Token(Size()) should not exist")
	}
}

func TestBuildNoAboveAndKeepN(t *testing.T) {
	docs := []string{"common a b", "common a b", "common a", "common c", "c x"}

	v := build(t, docs, Options{NoBelow: 2, NoAbove: 0.7})
	if got := v.Tokens(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("NoAbove tokens = %q", got)
	}

	v = build(t, docs, Options{NoBelow: 2, KeepN: 2})
	if got := v.Tokens(); !reflect.DeepEqual(got, []string{"a", "common"}) {
		t.Errorf("KeepN tokens = %q", got)
	}
}

func TestBuildRejectsSingleUseSource(t *testing.T) {
	rd := source.NewReader(strings.NewReader("a b\na c\n"))
	_, err := Build(context.Background(), rd, fieldsTokenizer{}, DefaultOptions())
	if !apperrors.Is(err, apperrors.ErrStreamNotRestartable) {
		t.Fatalf("err = %v, want ErrStreamNotRestartable", err)
	}
	docs, err := source.Materialize(context.Background(), rd)
	if err != nil {
		t.Fatalf("reader was consumed by the rejected build: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("materialized %d docs, want 2", len(docs))
	}
}

func TestDoc2BowDropsPrunedTokens(t *testing.T) {
	v := build(t, []string{"a b", "a b c", "d"}, DefaultOptions())
	got := v.Doc2Bow([]string{"b", "d", "a", "b", "unseen"})
	aID, _ := v.ID("a")
	bID, _ := v.ID("b")
	want := bow.Vector{{ID: aID, Count: 1}, {ID: bID, Count: 2}}
	if !got.Equal(want) {
		t.Fatalf("Doc2Bow = %v, want %v", got, want)
	}
	if got.Total() != 3 {
		t.Errorf("Total = %d, want 3", got.Total())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	v := build(t, []string{"café au lait", "café noir", "au revoir", "lait noir"}, DefaultOptions())
	path := filepath.Join(t.TempDir(), "dict.tsv")
	if err := v.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded.Tokens(), v.Tokens()) {
		t.Fatalf("tokens = %q, want %q", loaded.Tokens(), v.Tokens())
	}
	if loaded.NumDocs() != v.NumDocs() {
		t.Errorf("NumDocs = %d, want %d", loaded.NumDocs(), v.NumDocs())
	}
	for id := 0; id < v.Size(); id++ {
		if loaded.DocFreq(id) != v.DocFreq(id) {
			t.Errorf("DocFreq(%d) = %d, want %d", id, loaded.DocFreq(id), v.DocFreq(id))
		}
	}
}

func TestLoadRejectsCorruptFiles(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"bad header":     "three\n",
		"gap in ids":     "2\n0\ta\t2\n2\tb\t2\n",
		"missing field":  "2\n0\ta\n",
		"duplicate":      "2\n0\ta\t2\n1\ta\t2\n",
		"negative count": "2\n0\ta\t-1\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "dict.tsv")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); !apperrors.Is(err, apperrors.ErrCorruptFile) {
				t.Fatalf("err = %v, want ErrCorruptFile", err)
			}
		})
	}
}

func TestSaveRejectsTokensWithSeparators(t *testing.T) {
	v := build(t, []string{"a b", "a b"}, DefaultOptions())
	v.tokens = append(v.tokens, "bad\ttoken")
	v.docFreq = append(v.docFreq, 2)
	if err := v.Save(filepath.Join(t.TempDir(), "dict.tsv")); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
