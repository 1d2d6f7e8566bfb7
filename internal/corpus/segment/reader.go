package segment

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/internal/corpus/bow"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

// Reader gives random access to the vectors of a segment. It is safe for
// concurrent use.
type Reader struct {
	file     *os.File
	filePath string
	header   Header
	offsets  []uint64
	checksum uint32
}

// OpenReader validates the header and footer and loads the offset table.
// Vector payloads are read lazily by At.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := newReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func newReader(f *os.File, path string) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat segment file: %w", err)
	}
	size := info.Size()
	if size < int64(HeaderSize+FooterSize) {
		return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s: %d bytes is too short", path, size)
	}

	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading segment header: %w", err)
	}
	header := unmarshalHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s: bad magic bytes %x", path, header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s: unsupported format version %d", path, header.Version)
	}

	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, size-int64(FooterSize)); err != nil {
		return nil, fmt.Errorf("reading segment footer: %w", err)
	}
	checksum := binary.LittleEndian.Uint32(footer[0:4])
	footerDocs := binary.LittleEndian.Uint32(footer[4:8])
	footerOffsets := int64(binary.LittleEndian.Uint64(footer[8:16]))

	tableSize := int64(header.DocCount+1) * 8
	if footerDocs != header.DocCount ||
		footerOffsets != header.OffsetsOffset ||
		header.PayloadOffset != int64(HeaderSize) ||
		header.OffsetsOffset != header.PayloadOffset+header.PayloadSize ||
		header.OffsetsOffset+tableSize+int64(FooterSize) != size {
		return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s: header and footer disagree on layout", path)
	}

	table := make([]byte, tableSize)
	if _, err := f.ReadAt(table, header.OffsetsOffset); err != nil {
		return nil, fmt.Errorf("reading offset table: %w", err)
	}
	offsets := make([]uint64, header.DocCount+1)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint64(table[i*8:])
		if (i == 0 && offsets[i] != 0) || (i > 0 && offsets[i] < offsets[i-1]) {
			return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s: offset table not monotonic at %d", path, i)
		}
	}
	if offsets[len(offsets)-1] != uint64(header.PayloadSize) {
		return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s: offset table does not cover payload", path)
	}

	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		offsets:  offsets,
		checksum: checksum,
	}, nil
}

// Len returns the number of vectors in the segment.
func (r *Reader) Len() int {
	return int(r.header.DocCount)
}

func (r *Reader) VocabSize() int {
	return int(r.header.VocabSize)
}

// At decodes the vector at position i.
func (r *Reader) At(i int) (bow.Vector, error) {
	if i < 0 || i >= r.Len() {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "position %d outside corpus of %d", i, r.Len())
	}
	start, end := r.offsets[i], r.offsets[i+1]
	data := make([]byte, end-start)
	if _, err := r.file.ReadAt(data, r.header.PayloadOffset+int64(start)); err != nil {
		return nil, fmt.Errorf("reading document %d: %w", i, err)
	}
	v, err := decode(data, r.VocabSize())
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorruptFile, "%s: document %d: %v", r.filePath, i, err)
	}
	return v, nil
}

// Verify recomputes the checksum over the payload and offset table.
func (r *Reader) Verify() error {
	section := io.NewSectionReader(r.file, r.header.PayloadOffset, r.header.PayloadSize+int64(len(r.offsets))*8)
	h := crc32.NewIEEE()
	if _, err := io.Copy(h, section); err != nil {
		return fmt.Errorf("reading segment for checksum: %w", err)
	}
	if got := h.Sum32(); got != r.checksum {
		return apperrors.Newf(apperrors.ErrCorruptFile, "%s: checksum %08x, want %08x", r.filePath, got, r.checksum)
	}
	return nil
}

func (r *Reader) Close() error {
	return r.file.Close()
}

func decode(data []byte, vocabSize int) (bow.Vector, error) {
	n, k := binary.Uvarint(data)
	if k <= 0 {
		return nil, fmt.Errorf("bad entry count")
	}
	data = data[k:]
	if n > uint64(len(data)) {
		return nil, fmt.Errorf("entry count %d exceeds payload", n)
	}
	v := make(bow.Vector, 0, n)
	prev := -1
	for j := uint64(0); j < n; j++ {
		delta, k := binary.Uvarint(data)
		if k <= 0 || delta == 0 {
			return nil, fmt.Errorf("bad id delta at entry %d", j)
		}
		data = data[k:]
		count, k := binary.Uvarint(data)
		if k <= 0 || count == 0 {
			return nil, fmt.Errorf("bad count at entry %d", j)
		}
		data = data[k:]
		id := prev + int(delta)
		if vocabSize > 0 && id >= vocabSize {
			return nil, fmt.Errorf("id %d outside vocabulary of %d", id, vocabSize)
		}
		v = append(v, bow.Entry{ID: id, Count: int(count)})
		prev = id
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("%d trailing bytes", len(data))
	}
	return v, nil
}
