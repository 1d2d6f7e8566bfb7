package vocab

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/fileutil"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

// Save writes the vocabulary as text: the build document count on the first
// line, then one "id\ttoken\tdocfreq" line per token in id order.
func (v *Vocabulary) Save(path string) error {
	for id, t := range v.tokens {
		if strings.ContainsAny(t, "\t\n\r") {
			return apperrors.Newf(apperrors.ErrInvalidInput, "token %d contains a tab or newline", id)
		}
	}
	return fileutil.WriteAtomic(path, func(w *bufio.Writer) error {
		if _, err := fmt.Fprintf(w, "%d\n", v.numDocs); err != nil {
			return fmt.Errorf("writing vocabulary header: %w", err)
		}
		for id, t := range v.tokens {
			if _, err := fmt.Fprintf(w, "%d\t%s\t%d\n", id, t, v.docFreq[id]); err != nil {
				return fmt.Errorf("writing vocabulary entry %d: %w", id, err)
			}
		}
		return nil
	})
}

// Load reads a file written by Save. Ids must be contiguous from 0 and
// tokens unique.
func Load(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vocabulary: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading vocabulary: %w", err)
		}
		return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s: missing header", path)
	}
	numDocs, err := strconv.Atoi(scanner.Text())
	if err != nil || numDocs < 0 {
		return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s: bad document count %q", path, scanner.Text())
	}

	v := &Vocabulary{ids: make(map[string]int), numDocs: numDocs}
	line := 1
	for scanner.Scan() {
		line++
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != 3 {
			return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s:%d: want 3 fields, got %d", path, line, len(fields))
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil || id != len(v.tokens) {
			return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s:%d: id %q out of sequence", path, line, fields[0])
		}
		df, err := strconv.Atoi(fields[2])
		if err != nil || df < 0 {
			return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s:%d: bad document frequency %q", path, line, fields[2])
		}
		tok := fields[1]
		if _, dup := v.ids[tok]; dup {
			return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s:%d: duplicate token %q", path, line, tok)
		}
		v.ids[tok] = id
		v.tokens = append(v.tokens, tok)
		v.docFreq = append(v.docFreq, df)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}
	return v, nil
}
