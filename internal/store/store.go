// Package store owns the open mail files: their boundary lists, their
// bounded decode caches, and the lazy load path that turns a boundary into a
// decoded message on demand.
//
// A Store is an explicit state object. Nothing in here is a singleton; the
// CLI and the HTTP surface each hold a Store and pass it down, which keeps
// every operation unit-testable with plain arguments.
package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/dan5py/mbox-viewer-sub001/internal/mbox"
	"github.com/dan5py/mbox-viewer-sub001/internal/mime"
	"github.com/dan5py/mbox-viewer-sub001/internal/rangeio"
)

// DefaultCacheMaxEntries bounds each file's decode cache unless the store is
// configured otherwise.
const DefaultCacheMaxEntries = 50

var (
	// ErrNotInitialized reports an operation on a file that is missing, has
	// no reader, or has no boundaries. This is a programmer error and is
	// surfaced immediately.
	ErrNotInitialized = eris.New("mail file not initialized")

	// ErrNotFound reports a message index out of range.
	ErrNotFound = eris.New("message not found")
)

// MailFile is one open archive: identity, an owned RangeReader, the ordered
// boundary list produced at indexing time, and a per-file decode cache.
type MailFile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Filename    string    `json:"filename"`
	Format      string    `json:"format"`
	CreatedAt   time.Time `json:"createdAt"`

	mu         sync.Mutex
	reader     rangeio.RangeReader
	boundaries []mbox.Boundary
	cache      *lruCache
}

// Reader returns the file's RangeReader.
func (f *MailFile) Reader() rangeio.RangeReader {
	return f.reader
}

// MessageCount returns the number of indexed messages.
func (f *MailFile) MessageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.boundaries)
}

// Boundaries returns a copy of the boundary list in display order.
func (f *MailFile) Boundaries() []mbox.Boundary {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]mbox.Boundary, len(f.boundaries))
	copy(out, f.boundaries)
	return out
}

// Boundary returns the boundary at index.
func (f *MailFile) Boundary(index int) (mbox.Boundary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.boundaries) {
		return mbox.Boundary{}, eris.Wrapf(ErrNotFound, "index %d of %d", index, len(f.boundaries))
	}
	return f.boundaries[index], nil
}

// sortByDateDesc orders boundaries newest first (undated messages sink to
// the end, original order preserved among equals) and renumbers Index fields
// to match the new positions. Callers must hold f.mu; the renumbering is
// complete before the lock is released, so no consumer can observe a
// boundary whose Index disagrees with its position.
func (f *MailFile) sortByDateDesc() {
	sort.SliceStable(f.boundaries, func(i, j int) bool {
		di, dj := boundaryDate(f.boundaries[i]), boundaryDate(f.boundaries[j])
		switch {
		case di.IsZero():
			return false
		case dj.IsZero():
			return true
		default:
			return di.After(dj)
		}
	})
	for i := range f.boundaries {
		f.boundaries[i].Index = i
	}
}

func boundaryDate(b mbox.Boundary) time.Time {
	if b.Preview == nil {
		return time.Time{}
	}
	return b.Preview.Date
}

// Options configures a Store.
type Options struct {
	// CacheMaxEntries bounds each file's decode cache. Defaults to
	// DefaultCacheMaxEntries when <= 0.
	CacheMaxEntries int

	// MaxLineBytes is passed through to the indexer.
	MaxLineBytes int

	// Logger is optional; defaults to slog.Default().
	Logger *slog.Logger
}

// Store holds the open mail files. Safe for concurrent use; operations on
// different files do not contend beyond the map lookup.
type Store struct {
	mu    sync.RWMutex
	files map[string]*MailFile
	opts  Options
	log   *slog.Logger
}

// New creates an empty Store.
func New(opts Options) *Store {
	if opts.CacheMaxEntries <= 0 {
		opts.CacheMaxEntries = DefaultCacheMaxEntries
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		files: make(map[string]*MailFile),
		opts:  opts,
		log:   log,
	}
}

// AddFile indexes a byte source and registers it as a MailFile. Messages are
// presented newest first; the display name is disambiguated against files
// already open. Returns the new file or the indexing error.
func (s *Store) AddFile(displayName, filename, format string, r rangeio.RangeReader) (*MailFile, error) {
	boundaries, err := mbox.Index(r, mbox.IndexOptions{
		MaxLineBytes: s.opts.MaxLineBytes,
		Logger:       s.log,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "index %s", filename)
	}

	f := &MailFile{
		ID:         newFileID(),
		Filename:   filename,
		Format:     format,
		CreatedAt:  time.Now().UTC(),
		reader:     r,
		boundaries: boundaries,
		cache:      newLRUCache(s.opts.CacheMaxEntries),
	}
	f.sortByDateDesc()

	s.mu.Lock()
	defer s.mu.Unlock()
	f.DisplayName = s.uniqueNameLocked(displayName, "")
	s.files[f.ID] = f
	s.log.Debug("added mail file", "id", f.ID, "name", f.DisplayName, "messages", len(boundaries))
	return f, nil
}

// File returns the file with the given id, or ErrNotInitialized.
func (s *Store) File(fileID string) (*MailFile, error) {
	s.mu.RLock()
	f, ok := s.files[fileID]
	s.mu.RUnlock()
	if !ok {
		return nil, eris.Wrapf(ErrNotInitialized, "no file %q", fileID)
	}
	return f, nil
}

// Files lists the open files sorted by creation time.
func (s *Store) Files() []*MailFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*MailFile, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// LoadOptions controls a LoadMessage call.
type LoadOptions struct {
	// Cache enables the read-through cache. Bulk scans pass false so cold
	// entries never evict the interactive working set.
	Cache bool
}

// LoadMessage resolves (fileID, index) to a decoded message, decoding on
// first access and serving repeats from the per-file LRU cache. The cache is
// only mutated when opts.Cache is true; a hit refreshes recency.
func (s *Store) LoadMessage(fileID string, index int, opts LoadOptions) (*mime.EmailMessage, error) {
	f, err := s.File(fileID)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	if f.reader == nil || len(f.boundaries) == 0 {
		f.mu.Unlock()
		return nil, eris.Wrapf(ErrNotInitialized, "file %q has no content", fileID)
	}
	if index < 0 || index >= len(f.boundaries) {
		n := len(f.boundaries)
		f.mu.Unlock()
		return nil, eris.Wrapf(ErrNotFound, "index %d of %d", index, n)
	}
	if opts.Cache {
		if msg, ok := f.cache.get(index); ok {
			f.mu.Unlock()
			return msg, nil
		}
	}
	b := f.boundaries[index]
	reader := f.reader
	f.mu.Unlock()

	// Decode outside the file lock; the boundary list is immutable between
	// the resolve above and the insert below except for Remove, which only
	// makes the insert a no-op on a dead cache.
	raw, err := reader.ReadRange(b.Start, b.End)
	if err != nil {
		return nil, eris.Wrapf(err, "read message %d", index)
	}
	msg, err := mime.Decode(mbox.UnescapeBody(raw))
	if err != nil {
		return nil, eris.Wrapf(err, "decode message %d", index)
	}

	if opts.Cache {
		f.mu.Lock()
		f.cache.put(index, msg)
		f.mu.Unlock()
	}
	return msg, nil
}

// CachedCount returns the number of cached entries for a file. Test hook.
func (s *Store) CachedCount(fileID string) int {
	f, err := s.File(fileID)
	if err != nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cache.len()
}

// Rename changes a file's display name, disambiguating collisions with a
// parenthesized counter; comparison is case-insensitive.
func (s *Store) Rename(fileID, newName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	if !ok {
		return "", eris.Wrapf(ErrNotInitialized, "no file %q", fileID)
	}
	f.DisplayName = s.uniqueNameLocked(newName, fileID)
	return f.DisplayName, nil
}

// Remove destroys a file: its cache is cleared, its reader closed when
// closable, and it stops being addressable.
func (s *Store) Remove(fileID string) error {
	s.mu.Lock()
	f, ok := s.files[fileID]
	delete(s.files, fileID)
	s.mu.Unlock()
	if !ok {
		return eris.Wrapf(ErrNotInitialized, "no file %q", fileID)
	}

	f.mu.Lock()
	f.cache.clear()
	f.boundaries = nil
	reader := f.reader
	f.reader = nil
	f.mu.Unlock()

	if c, ok := reader.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			s.log.Warn("close reader", "file", fileID, "error", err)
		}
	}
	return nil
}

// uniqueNameLocked resolves name collisions with " (n)" suffixes. exceptID
// exempts the file being renamed from the comparison. Caller holds s.mu.
func (s *Store) uniqueNameLocked(name, exceptID string) string {
	taken := func(candidate string) bool {
		for id, f := range s.files {
			if id != exceptID && strings.EqualFold(f.DisplayName, candidate) {
				return true
			}
		}
		return false
	}
	if !taken(name) {
		return name
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		if !taken(candidate) {
			return candidate
		}
	}
}

func newFileID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
