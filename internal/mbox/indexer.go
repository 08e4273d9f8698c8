// Package mbox locates message boundaries in mbox-formatted archives.
//
// The indexer performs one forward streaming scan over a rangeio.RangeReader
// and produces byte ranges plus header-only preview metadata. It never
// materializes message bodies, so indexing cost is linear in file size with
// memory bounded by the longest header block.
package mbox

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/rotisserie/eris"

	"github.com/dan5py/mbox-viewer-sub001/internal/rangeio"
)

const (
	// DefaultMaxLineBytes bounds a single line during the scan. Lines longer
	// than this fail the index with an error rather than exhausting memory.
	DefaultMaxLineBytes = 32 << 20 // 32 MiB

	// maxHeaderBytes caps how much of a message's header block is buffered
	// for preview extraction. Headers past the cap are ignored.
	maxHeaderBytes = 256 << 10 // 256 KiB
)

// ErrLineTooLong reports a line exceeding the configured maximum.
var ErrLineTooLong = eris.New("mbox line exceeds max length")

// Boundary is the byte range [Start, End) of exactly one message, excluding
// its envelope separator line, plus optional preview metadata.
type Boundary struct {
	// Index always equals the boundary's position in its containing slice.
	// The store renumbers it when messages are reordered.
	Index int `json:"index"`

	Start int64 `json:"start"`
	End   int64 `json:"end"`

	// Preview is nil when the header block could not be parsed at all.
	Preview *Preview `json:"preview,omitempty"`
}

// Preview holds the cheap header-derived fields shown in message lists.
// Zero values mean the header was absent.
type Preview struct {
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	DateRaw    string    `json:"dateRaw,omitempty"`
	Date       time.Time `json:"date,omitzero"`
	Size       int64     `json:"size"`
	Labels     []string  `json:"labels,omitempty"`
	MessageID  string    `json:"messageId,omitempty"`
	InReplyTo  string    `json:"inReplyTo,omitempty"`
	References []string  `json:"references,omitempty"`
}

// IndexOptions configures a scan.
type IndexOptions struct {
	// MaxLineBytes overrides DefaultMaxLineBytes when > 0.
	MaxLineBytes int

	// Logger is optional; defaults to slog.Default().
	Logger *slog.Logger
}

type scanner struct {
	br      *bufio.Reader
	off     int64
	maxLine int
}

// readLine accumulates one line including its terminator, tolerating
// bufio.ErrBufferFull for lines longer than the buffer.
func (s *scanner) readLine() ([]byte, error) {
	var out []byte
	for {
		b, err := s.br.ReadBytes('\n')
		out = append(out, b...)
		if len(out) > s.maxLine {
			return nil, eris.Wrapf(ErrLineTooLong, "%d bytes", s.maxLine)
		}
		if err == nil {
			return out, nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return out, err
	}
}

// Index scans r once and returns boundaries in file order with Index fields
// equal to position.
//
// Policies: content before the first envelope line is discarded; a non-empty
// source with no envelope line at all yields a single boundary spanning the
// whole content. Header-level malformation never fails the scan. The only
// error sources are the underlying reader and over-long lines.
func Index(r rangeio.RangeReader, opts IndexOptions) ([]Boundary, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	maxLine := opts.MaxLineBytes
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}

	size := r.Size()
	sc := &scanner{
		br:      bufio.NewReader(rangeio.NewSectionReader(r, 0, size)),
		maxLine: maxLine,
	}

	var (
		boundaries []Boundary
		cur        = -1 // index of the open boundary, -1 when none
		curStart   int64
		inHeader   bool
		headerBuf  bytes.Buffer
	)

	closeBoundary := func(end int64) {
		b := Boundary{Index: cur, Start: curStart, End: end}
		if end > curStart {
			b.Preview = parsePreview(headerBuf.Bytes(), end-curStart, log)
		}
		boundaries = append(boundaries, b)
	}

	for {
		lineStart := sc.off
		line, err := sc.readLine()
		sc.off += int64(len(line))

		if len(line) > 0 {
			switch {
			case IsEnvelopeLine(line):
				if cur >= 0 {
					closeBoundary(lineStart)
				}
				cur++
				curStart = sc.off
				inHeader = true
				headerBuf.Reset()
			case cur >= 0 && inHeader:
				if isBlankLine(line) {
					inHeader = false
				} else if headerBuf.Len()+len(line) <= maxHeaderBytes {
					headerBuf.Write(line)
				}
			}
		}

		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, eris.Wrap(err, "scan mbox")
		}
	}

	if cur >= 0 {
		closeBoundary(sc.off)
	}

	// No separators at all: treat the whole content as one message so that
	// single-message exports without an envelope line still open.
	if len(boundaries) == 0 && size > 0 {
		b := Boundary{Index: 0, Start: 0, End: size}
		headEnd := size
		if headEnd > maxHeaderBytes {
			headEnd = maxHeaderBytes
		}
		if head, err := r.ReadRange(0, headEnd); err == nil {
			b.Preview = parsePreview(headerBlock(head), size, log)
		} else {
			log.Debug("preview read failed for separator-less source", "error", err)
		}
		boundaries = append(boundaries, b)
	}

	return boundaries, nil
}

func isBlankLine(line []byte) bool {
	return len(bytes.TrimRight(line, "\r\n")) == 0
}

// headerBlock truncates raw at its first blank line.
func headerBlock(raw []byte) []byte {
	for _, sep := range [][]byte{[]byte("\r\n\r\n"), []byte("\n\n")} {
		if i := bytes.Index(raw, sep); i >= 0 {
			return raw[:i+len(sep)/2]
		}
	}
	return raw
}
