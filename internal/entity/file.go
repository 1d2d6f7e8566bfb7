package entity

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/fileutil"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

// Save writes one "id\tposition" line per entity in position order.
func (ix *Index) Save(path string) error {
	return fileutil.WriteAtomic(path, func(w *bufio.Writer) error {
		for i, id := range ix.ids {
			if _, err := fmt.Fprintf(w, "%s\t%d\n", id, i); err != nil {
				return fmt.Errorf("writing entity %d: %w", i, err)
			}
		}
		return nil
	})
}

// Load reads a file written by Save. Positions must run 0..n-1 in file
// order; under Lexicographic the ids must also be strictly ascending, else
// the file was not produced by the ordering the caller expects.
func Load(path string, ordering Ordering) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening entity index: %w", err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		id, p, ok := strings.Cut(scanner.Text(), "\t")
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s:%d: missing tab separator", path, line)
		}
		pos, err := strconv.Atoi(p)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s:%d: bad position %q", path, line, p)
		}
		if pos != len(ids) {
			return nil, apperrors.Newf(apperrors.ErrOrderingMismatch, "%s:%d: entity %q has position %d, want %d", path, line, id, pos, len(ids))
		}
		if ordering == Lexicographic && len(ids) > 0 && id <= ids[len(ids)-1] {
			return nil, apperrors.Newf(apperrors.ErrOrderingMismatch, "%s:%d: entity %q is out of lexicographic order", path, line, id)
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading entity index: %w", err)
	}
	ix, err := Build(ids, AsGiven)
	if err != nil {
		return nil, err
	}
	ix.ordering = ordering
	return ix, nil
}
