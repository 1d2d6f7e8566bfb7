// Package source provides the document streams consumed by the vocabulary
// and corpus passes. A document is identified only by its position in the
// stream, so every restartable source must yield the same documents in the
// same order on each pass.
package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

// maxLineSize bounds a single document. Aggregate venue documents can run to
// several megabytes.
const maxLineSize = 64 << 20

// Source is a finite stream of raw documents.
type Source interface {
	// Each calls fn for every document in order. Iteration stops at the
	// first error returned by fn, which Each returns unchanged.
	Each(ctx context.Context, fn func(doc string) error) error
	// Restartable reports whether Each may be called again from the start.
	Restartable() bool
}

// Slice is an in-memory, always restartable source.
type Slice []string

func (s Slice) Each(ctx context.Context, fn func(doc string) error) error {
	for _, doc := range s {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

func (s Slice) Restartable() bool { return true }

// Lines reads one document per line of a file, re-opening the file on every
// pass. Empty lines are documents too.
type Lines struct {
	Path string
}

func (l Lines) Each(ctx context.Context, fn func(doc string) error) error {
	f, err := os.Open(l.Path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", l.Path, err)
	}
	defer f.Close()
	return eachLine(ctx, f, func(_ int, line []byte) error {
		return fn(string(line))
	})
}

func (l Lines) Restartable() bool { return true }

// JSONLines reads tweet objects, one per line, and yields their text field.
// Blank lines are ignored. Malformed lines are logged and skipped without
// aborting the pass.
type JSONLines struct {
	Path string

	mu      sync.Mutex
	skipped int
}

type tweet struct {
	Text *string `json:"text"`
}

func (j *JSONLines) Each(ctx context.Context, fn func(doc string) error) error {
	f, err := os.Open(j.Path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", j.Path, err)
	}
	defer f.Close()

	logger := slog.Default().With("component", "source", "path", j.Path)
	skipped := 0
	err = eachLine(ctx, f, func(lineNo int, line []byte) error {
		if len(line) == 0 {
			return nil
		}
		var tw tweet
		if err := json.Unmarshal(line, &tw); err != nil {
			skipped++
			logger.Warn("skipping malformed line", "line", lineNo, "error", err)
			return nil
		}
		if tw.Text == nil {
			skipped++
			logger.Warn("skipping line without text field", "line", lineNo)
			return nil
		}
		return fn(*tw.Text)
	})

	j.mu.Lock()
	j.skipped = skipped
	j.mu.Unlock()
	return err
}

func (j *JSONLines) Restartable() bool { return true }

// Skipped returns the number of lines dropped during the most recent pass.
func (j *JSONLines) Skipped() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.skipped
}

// Reader yields one document per line of r and can be consumed only once.
// Wrap it with Materialize before running more than one pass.
type Reader struct {
	r    io.Reader
	mu   sync.Mutex
	used bool
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (rd *Reader) Each(ctx context.Context, fn func(doc string) error) error {
	rd.mu.Lock()
	if rd.used {
		rd.mu.Unlock()
		return apperrors.New(apperrors.ErrStreamNotRestartable, "reader already consumed")
	}
	rd.used = true
	rd.mu.Unlock()

	return eachLine(ctx, rd.r, func(_ int, line []byte) error {
		return fn(string(line))
	})
}

func (rd *Reader) Restartable() bool { return false }

// Materialize drains src into memory. Restartable slices are returned as is.
func Materialize(ctx context.Context, src Source) (Slice, error) {
	if s, ok := src.(Slice); ok {
		return s, nil
	}
	var docs Slice
	err := src.Each(ctx, func(doc string) error {
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("materializing source: %w", err)
	}
	return docs, nil
}

// Count returns the number of documents src yields on one pass.
func Count(ctx context.Context, src Source) (int, error) {
	n := 0
	err := src.Each(ctx, func(string) error {
		n++
		return nil
	})
	return n, err
}

func eachLine(ctx context.Context, r io.Reader, fn func(lineNo int, line []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(lineNo, scanner.Bytes()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading line %d: %w", lineNo+1, err)
	}
	return nil
}
