// Package project lays out, builds and reloads the persisted artifacts of
// one corpus build: vocabulary, corpus, entity index and manifest.
package project

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/fileutil"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

// Layout names the files of a (project, tokenizer variant) build under
// <dataDir>/<project>/corpora.
type Layout struct {
	Dir     string
	Variant string
}

func NewLayout(dataDir, project, variant string) Layout {
	return Layout{
		Dir:     filepath.Join(dataDir, project, "corpora"),
		Variant: variant,
	}
}

func (l Layout) DictionaryPath() string {
	return filepath.Join(l.Dir, l.Variant+"_dictionary.tsv")
}

func (l Layout) CorpusPath() string {
	return filepath.Join(l.Dir, l.Variant+"_corpus.bow")
}

func (l Layout) EntitiesPath() string {
	return filepath.Join(l.Dir, l.Variant+"_entities.tsv")
}

// ManifestPath is written last; its presence marks a complete build.
func (l Layout) ManifestPath() string {
	return filepath.Join(l.Dir, l.Variant+"_manifest.json")
}

// Manifest describes a finished build.
type Manifest struct {
	BuildID   string    `json:"build_id"`
	Variant   string    `json:"variant"`
	Documents int       `json:"documents"`
	VocabSize int       `json:"vocab_size"`
	Entities  int       `json:"entities"`
	Ordering  string    `json:"ordering"`
	NoBelow   int       `json:"no_below"`
	NoAbove   float64   `json:"no_above"`
	KeepN     int       `json:"keep_n"`
	CreatedAt time.Time `json:"created_at"`
}

func writeManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return fileutil.WriteAtomic(path, func(w *bufio.Writer) error {
		if _, err := w.Write(data); err != nil {
			return err
		}
		return w.WriteByte('\n')
	})
}

// removeManifest retracts a committed build before its files are replaced,
// so a rebuild that stops partway leaves no manifest vouching for a mix of
// old and new files.
func removeManifest(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing manifest: %w", err)
	}
	dir, err := os.Open(filepath.Dir(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening build directory: %w", err)
	}
	defer dir.Close()
	if err := dir.Sync(); err != nil {
		return fmt.Errorf("syncing build directory: %w", err)
	}
	return nil
}

func readManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("reading manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, apperrors.Newf(apperrors.ErrCorruptFile, "manifest %s: %v", path, err)
	}
	return m, nil
}
