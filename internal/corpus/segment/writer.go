// Package segment implements the on-disk corpus format: a fixed header, the
// varint-encoded bag-of-words vectors, a fixed-width offset table giving the
// byte range of every vector, and a CRC32 footer. Any vector can be read
// with a single ReadAt once the offset table is loaded.
package segment

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/bow"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

// MagicBytes identifies a corpus segment ("VTBW").
const (
	MagicBytes    uint32 = 0x56544257
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 16
)

// Header is the 64-byte header written at the start of every segment.
type Header struct {
	Magic         uint32
	Version       uint32
	DocCount      uint32
	VocabSize     uint32
	CreatedAt     int64
	PayloadOffset int64
	PayloadSize   int64
	OffsetsOffset int64
}

func (h Header) marshal() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.DocCount)
	binary.LittleEndian.PutUint32(b[12:16], h.VocabSize)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.PayloadOffset))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.PayloadSize))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.OffsetsOffset))
	return b
}

func unmarshalHeader(b []byte) Header {
	return Header{
		Magic:         binary.LittleEndian.Uint32(b[0:4]),
		Version:       binary.LittleEndian.Uint32(b[4:8]),
		DocCount:      binary.LittleEndian.Uint32(b[8:12]),
		VocabSize:     binary.LittleEndian.Uint32(b[12:16]),
		CreatedAt:     int64(binary.LittleEndian.Uint64(b[16:24])),
		PayloadOffset: int64(binary.LittleEndian.Uint64(b[24:32])),
		PayloadSize:   int64(binary.LittleEndian.Uint64(b[32:40])),
		OffsetsOffset: int64(binary.LittleEndian.Uint64(b[40:48])),
	}
}

// Writer streams vectors into a new segment. Nothing is visible at the final
// path until Close succeeds.
type Writer struct {
	f         *os.File
	finalPath string
	tmpPath   string
	vocabSize int
	offsets   []uint64
	pos       uint64
	crc       hash.Hash32
	buf       []byte
	closed    bool
}

// Create opens a writer for path. vocabSize, when positive, bounds the ids
// accepted by Append and is checked again on read.
func Create(path string, vocabSize int) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating segment directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("creating temp segment file: %w", err)
	}
	if _, err := f.Write(make([]byte, HeaderSize)); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("writing header placeholder: %w", err)
	}
	return &Writer{
		f:         f,
		finalPath: path,
		tmpPath:   tmpPath,
		vocabSize: vocabSize,
		offsets:   []uint64{0},
		crc:       crc32.NewIEEE(),
	}, nil
}

// Append writes the next vector. Entries must have strictly increasing ids
// and positive counts.
func (w *Writer) Append(v bow.Vector) error {
	if w.closed {
		return fmt.Errorf("append to closed segment writer")
	}
	if uint64(len(w.offsets)-1) >= uint64(^uint32(0)) {
		return apperrors.New(apperrors.ErrInvalidInput, "segment document count overflows uint32")
	}
	w.buf = w.buf[:0]
	w.buf = binary.AppendUvarint(w.buf, uint64(len(v)))
	prev := -1
	for _, e := range v {
		if e.ID <= prev || e.Count <= 0 {
			return apperrors.Newf(apperrors.ErrInvalidInput, "document %d: entries must have increasing ids and positive counts", len(w.offsets)-1)
		}
		if w.vocabSize > 0 && e.ID >= w.vocabSize {
			return apperrors.Newf(apperrors.ErrInvalidInput, "document %d: id %d outside vocabulary of %d", len(w.offsets)-1, e.ID, w.vocabSize)
		}
		w.buf = binary.AppendUvarint(w.buf, uint64(e.ID-prev))
		w.buf = binary.AppendUvarint(w.buf, uint64(e.Count))
		prev = e.ID
	}
	if _, err := w.f.Write(w.buf); err != nil {
		return fmt.Errorf("writing document %d: %w", len(w.offsets)-1, err)
	}
	w.crc.Write(w.buf)
	w.pos += uint64(len(w.buf))
	w.offsets = append(w.offsets, w.pos)
	return nil
}

// Len returns the number of vectors appended so far.
func (w *Writer) Len() int {
	return len(w.offsets) - 1
}

// Close writes the offset table, footer and final header, syncs, and renames
// the segment into place.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	table := make([]byte, 8*len(w.offsets))
	for i, off := range w.offsets {
		binary.LittleEndian.PutUint64(table[i*8:], off)
	}
	if _, err := w.f.Write(table); err != nil {
		return w.fail(fmt.Errorf("writing offset table: %w", err))
	}
	w.crc.Write(table)

	offsetsOffset := int64(HeaderSize) + int64(w.pos)
	docCount := uint32(len(w.offsets) - 1)

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], w.crc.Sum32())
	binary.LittleEndian.PutUint32(footer[4:8], docCount)
	binary.LittleEndian.PutUint64(footer[8:16], uint64(offsetsOffset))
	if _, err := w.f.Write(footer); err != nil {
		return w.fail(fmt.Errorf("writing footer: %w", err))
	}

	header := Header{
		Magic:         MagicBytes,
		Version:       FormatVersion,
		DocCount:      docCount,
		VocabSize:     uint32(max(w.vocabSize, 0)),
		CreatedAt:     time.Now().Unix(),
		PayloadOffset: int64(HeaderSize),
		PayloadSize:   int64(w.pos),
		OffsetsOffset: offsetsOffset,
	}
	if _, err := w.f.WriteAt(header.marshal(), 0); err != nil {
		return w.fail(fmt.Errorf("updating header: %w", err))
	}
	if err := w.f.Sync(); err != nil {
		return w.fail(fmt.Errorf("syncing segment file: %w", err))
	}
	if err := w.f.Close(); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("closing segment file: %w", err)
	}
	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("renaming segment file: %w", err)
	}
	return nil
}

// Abort discards the partially written segment.
func (w *Writer) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	w.f.Close()
	os.Remove(w.tmpPath)
}

func (w *Writer) fail(err error) error {
	w.f.Close()
	os.Remove(w.tmpPath)
	return err
}

// Write creates a segment at path holding vectors in order.
func Write(path string, vectors []bow.Vector, vocabSize int) error {
	w, err := Create(path, vocabSize)
	if err != nil {
		return err
	}
	for _, v := range vectors {
		if err := w.Append(v); err != nil {
			w.Abort()
			return err
		}
	}
	return w.Close()
}
