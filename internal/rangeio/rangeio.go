// Package rangeio abstracts random-access reads over a large byte source.
//
// A RangeReader hands out raw bytes or decoded text for arbitrary
// [start, end) ranges without ever requiring the whole source to be resident
// in memory, which is what makes browsing multi-gigabyte mbox files viable.
package rangeio

import (
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/dan5py/mbox-viewer-sub001/internal/textutil"
)

// ErrOutOfBounds reports a range request outside the source.
var ErrOutOfBounds = eris.New("range out of bounds")

// RangeReader reads byte ranges from an immutable source. Implementations
// must be safe for concurrent reads of disjoint or overlapping ranges.
type RangeReader interface {
	// ReadRange returns the bytes in [start, end).
	ReadRange(start, end int64) ([]byte, error)

	// ReadRangeAsText returns the bytes in [start, end) decoded to UTF-8 text.
	ReadRangeAsText(start, end int64) (string, error)

	// Size returns the total size of the source in bytes.
	Size() int64
}

// checkRange validates [start, end) against a source of the given size.
func checkRange(start, end, size int64) error {
	if start < 0 || end < start || end > size {
		return eris.Wrapf(ErrOutOfBounds, "[%d, %d) of %d bytes", start, end, size)
	}
	return nil
}

// FileReader is a RangeReader over an open file. It relies on ReadAt, so
// concurrent reads need no locking and the file position is never mutated.
type FileReader struct {
	f    *os.File
	size int64
}

// OpenFile opens path for range reading.
func OpenFile(path string) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, eris.Wrapf(err, "stat %s", path)
	}
	return &FileReader{f: f, size: info.Size()}, nil
}

// ReadRange implements RangeReader.
func (r *FileReader) ReadRange(start, end int64) ([]byte, error) {
	if err := checkRange(start, end, r.size); err != nil {
		return nil, err
	}
	buf := make([]byte, end-start)
	if _, err := r.f.ReadAt(buf, start); err != nil {
		return nil, eris.Wrapf(err, "read [%d, %d)", start, end)
	}
	return buf, nil
}

// ReadRangeAsText implements RangeReader.
func (r *FileReader) ReadRangeAsText(start, end int64) (string, error) {
	b, err := r.ReadRange(start, end)
	if err != nil {
		return "", err
	}
	return textutil.EnsureUTF8(string(b)), nil
}

// Size implements RangeReader.
func (r *FileReader) Size() int64 {
	return r.size
}

// Close closes the underlying file.
func (r *FileReader) Close() error {
	return r.f.Close()
}

// BytesReader is an in-memory RangeReader, mostly for tests and for sources
// already materialized by the caller (drag-and-drop buffers, fixtures).
type BytesReader struct {
	data []byte
}

// NewBytesReader wraps data in a RangeReader. The caller must not mutate
// data afterwards.
func NewBytesReader(data []byte) *BytesReader {
	return &BytesReader{data: data}
}

// ReadRange implements RangeReader.
func (r *BytesReader) ReadRange(start, end int64) ([]byte, error) {
	if err := checkRange(start, end, int64(len(r.data))); err != nil {
		return nil, err
	}
	// Copy so callers can hold the slice without pinning or racing the source.
	out := make([]byte, end-start)
	copy(out, r.data[start:end])
	return out, nil
}

// ReadRangeAsText implements RangeReader.
func (r *BytesReader) ReadRangeAsText(start, end int64) (string, error) {
	b, err := r.ReadRange(start, end)
	if err != nil {
		return "", err
	}
	return textutil.EnsureUTF8(string(b)), nil
}

// Size implements RangeReader.
func (r *BytesReader) Size() int64 {
	return int64(len(r.data))
}

// sectionReader streams a [start, end) range of a RangeReader in fixed-size
// chunks, so consumers can scan sources far larger than memory.
type sectionReader struct {
	r         RangeReader
	off, end  int64
	chunkSize int64
}

const defaultChunkSize = 256 << 10 // 256 KiB

// NewSectionReader returns an io.Reader over [start, end) of r.
func NewSectionReader(r RangeReader, start, end int64) io.Reader {
	return &sectionReader{r: r, off: start, end: end, chunkSize: defaultChunkSize}
}

func (s *sectionReader) Read(p []byte) (int, error) {
	if s.off >= s.end {
		return 0, io.EOF
	}
	n := int64(len(p))
	if n > s.chunkSize {
		n = s.chunkSize
	}
	if s.off+n > s.end {
		n = s.end - s.off
	}
	b, err := s.r.ReadRange(s.off, s.off+n)
	if err != nil {
		return 0, err
	}
	copy(p, b)
	s.off += int64(len(b))
	return len(b), nil
}
