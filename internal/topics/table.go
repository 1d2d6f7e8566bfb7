package topics

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

// Table holds one precomputed topic vector per corpus position.
type Table struct {
	rows [][]float64
	k    int
}

// NewTable wraps rows; k is the expected dimension.
func NewTable(rows [][]float64, k int) *Table {
	return &Table{rows: rows, k: k}
}

// LoadTable reads one topic vector per line, line i being corpus position
// i. A line is either a dense array of probabilities or a sparse array of
// [topic, probability] pairs, as emitted by common LDA tools. The topic
// count is the widest row seen. Rows are kept as read; malformed rows are
// caught later by distribution validation.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening topic table: %w", err)
	}
	defer f.Close()

	type sparseRow struct {
		line  int
		pairs [][2]float64
	}
	var (
		rows   [][]float64
		sparse []sparseRow
		k      int
		line   int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		var dense []float64
		if err := json.Unmarshal(data, &dense); err == nil {
			rows = append(rows, dense)
			k = max(k, len(dense))
			continue
		}
		var pairs [][2]float64
		if err := json.Unmarshal(data, &pairs); err != nil {
			return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s:%d: not a topic vector: %v", path, line, err)
		}
		for _, p := range pairs {
			if p[0] < 0 || p[0] != float64(int(p[0])) {
				return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s:%d: bad topic index %v", path, line, p[0])
			}
			k = max(k, int(p[0])+1)
		}
		sparse = append(sparse, sparseRow{line: line, pairs: pairs})
		rows = append(rows, nil)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading topic table: %w", err)
	}

	for _, s := range sparse {
		dense := make([]float64, k)
		for _, p := range s.pairs {
			dense[int(p[0])] += p[1]
		}
		rows[s.line-1] = dense
	}
	return &Table{rows: rows, k: k}, nil
}

func (t *Table) TopicsAt(ctx context.Context, pos int) ([]float64, error) {
	if pos < 0 || pos >= len(t.rows) {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "no topic vector for position %d (table has %d rows)", pos, len(t.rows))
	}
	return t.rows[pos], nil
}

func (t *Table) NumTopics() int { return t.k }

// Len returns the number of rows, which must equal the corpus length.
func (t *Table) Len() int { return len(t.rows) }

// Verify fails with ErrOrderingMismatch unless the table has exactly one row
// per corpus document. A table of another length was inferred over a
// different build and its rows would be pinned to the wrong entities.
func (t *Table) Verify(corpusLen int) error {
	if len(t.rows) != corpusLen {
		return apperrors.Newf(apperrors.ErrOrderingMismatch,
			"topic table has %d rows but corpus has %d documents", len(t.rows), corpusLen)
	}
	return nil
}
