package segment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/bow"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

func sampleVectors() []bow.Vector {
	return []bow.Vector{
		{{ID: 0, Count: 2}, {ID: 3, Count: 1}},
		{},
		{{ID: 1, Count: 300}, {ID: 2, Count: 1}, {ID: 199, Count: 7}},
		{{ID: 4, Count: 1}},
	}
}

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.bow")
	if err := Write(path, sampleVectors(), 200); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return path
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := writeSample(t)
	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	want := sampleVectors()
	if r.Len() != len(want) {
		t.Fatalf("Len = %d, want %d", r.Len(), len(want))
	}
	if r.VocabSize() != 200 {
		t.Errorf("VocabSize = %d", r.VocabSize())
	}
	// Read out of order to exercise random access.
	for _, i := range []int{2, 0, 3, 1} {
		got, err := r.At(i)
		if err != nil {
			t.Fatalf("At(%d): %v", i, err)
		}
		if !got.Equal(want[i]) {
			t.Errorf("At(%d) = %v, want %v", i, got, want[i])
		}
	}
	if err := r.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestEmptySegment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bow")
	if err := Write(path, nil, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	if r.Len() != 0 {
		t.Errorf("Len = %d", r.Len())
	}
	if _, err := r.At(0); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("At(0) err = %v", err)
	}
	if err := r.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestVerifyDetectsFlippedByte(t *testing.T) {
	path := writeSample(t)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[HeaderSize+1] ^= 0x01
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	if err := r.Verify(); !apperrors.Is(err, apperrors.ErrCorruptFile) {
		t.Fatalf("Verify err = %v, want ErrCorruptFile", err)
	}
}

func TestOpenRejectsDamagedLayout(t *testing.T) {
	path := writeSample(t)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	cases := map[string][]byte{
		"truncated": data[:len(data)-3],
		"short":     data[:10],
		"bad magic": append([]byte{0, 0, 0, 0}, data[4:]...),
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "bad.bow")
			if err := os.WriteFile(p, content, 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := OpenReader(p); !apperrors.Is(err, apperrors.ErrCorruptFile) {
				t.Fatalf("err = %v, want ErrCorruptFile", err)
			}
		})
	}
}

func TestAppendValidatesVectors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.bow")
	w, err := Create(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Abort()

	bad := []bow.Vector{
		{{ID: 2, Count: 1}, {ID: 1, Count: 1}},
		{{ID: 1, Count: 0}},
		{{ID: 10, Count: 1}},
	}
	for _, v := range bad {
		if err := w.Append(v); !apperrors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("Append(%v) err = %v, want ErrInvalidInput", v, err)
		}
	}
}

func TestSegmentInvisibleUntilClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.bow")
	w, err := Create(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Append(bow.Vector{{ID: 0, Count: 1}}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("final path exists before Close: %v", err)
	}
	w.Abort()
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Abort left temp file: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Abort published segment: %v", err)
	}
}

func BenchmarkReaderAt(b *testing.B) {
	path := filepath.Join(b.TempDir(), "bench.bow")
	vectors := make([]bow.Vector, 10000)
	for i := range vectors {
		vectors[i] = bow.Vector{{ID: i % 50, Count: 1}, {ID: 50 + i%100, Count: 3}}
	}
	if err := Write(path, vectors, 0); err != nil {
		b.Fatal(err)
	}
	r, err := OpenReader(path)
	if err != nil {
		b.Fatal(err)
	}
	defer r.Close()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.At(i % len(vectors)); err != nil {
			b.Fatal(err)
		}
	}
}
