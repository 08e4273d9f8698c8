// Package archive resolves user-supplied paths to concrete mbox files.
// Plain .mbox/.mbx paths pass through; Google Takeout style .zip containers
// are extracted once into a cache directory keyed by the zip's central
// directory metadata, so reopening the same export skips the extraction.
package archive

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/dan5py/mbox-viewer-sub001/internal/export"
	"github.com/dan5py/mbox-viewer-sub001/internal/fileutil"
)

// ErrExtractLimit reports a zip whose extraction would exceed the configured
// size limits.
var ErrExtractLimit = eris.New("zip extraction limit exceeded")

// ErrNoMailboxes reports a zip with no .mbox or .mbx entries.
var ErrNoMailboxes = eris.New("archive contains no mbox files")

// Limits bounds extraction to keep zip bombs from exhausting the disk. The
// defaults are deliberately generous since real Takeout exports run large.
type Limits struct {
	MaxEntryBytes int64
	MaxTotalBytes int64
}

// DefaultLimits allows 50 GiB per mailbox and 200 GiB total.
var DefaultLimits = Limits{
	MaxEntryBytes: 50 << 30,
	MaxTotalBytes: 200 << 30,
}

// Resolve maps an archive path to the mbox files it contains. Plain mbox
// paths resolve to themselves; zips are extracted under cacheDir.
func Resolve(archivePath, cacheDir string, log *slog.Logger) ([]string, error) {
	return ResolveWithLimits(archivePath, cacheDir, DefaultLimits, log)
}

// ResolveWithLimits is Resolve with explicit extraction limits.
func ResolveWithLimits(archivePath, cacheDir string, limits Limits, log *slog.Logger) ([]string, error) {
	if log == nil {
		log = slog.Default()
	}
	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, eris.Wrap(err, "archive path")
	}
	if !info.Mode().IsRegular() {
		return nil, eris.New(fmt.Sprintf("archive %q is not a regular file", archivePath))
	}
	abs, err := filepath.Abs(archivePath)
	if err != nil {
		return nil, eris.Wrap(err, "abs path")
	}

	switch strings.ToLower(filepath.Ext(abs)) {
	case ".mbox", ".mbx":
		return []string{abs}, nil
	case ".zip":
		return resolveZip(abs, cacheDir, limits, log)
	default:
		return nil, eris.New(fmt.Sprintf("unsupported archive format %q (expected .mbox, .mbx, or .zip)", filepath.Ext(abs)))
	}
}

func resolveZip(zipPath, cacheDir string, limits Limits, log *slog.Logger) ([]string, error) {
	key, err := cacheKey(zipPath)
	if err != nil {
		return nil, err
	}
	destDir := filepath.Join(cacheDir, key)

	// A completed extraction is its own cache marker: the temp directory is
	// renamed into place only after every mailbox was written.
	if files, err := cachedMailboxes(destDir); err == nil && len(files) > 0 {
		log.Debug("reusing extracted zip", "zip", zipPath, "dir", destDir)
		return files, nil
	}

	if err := fileutil.SecureMkdirAll(cacheDir, 0o700); err != nil {
		return nil, eris.Wrap(err, "create extract cache dir")
	}
	tmpDir, err := os.MkdirTemp(cacheDir, key+".tmp.")
	if err != nil {
		return nil, eris.Wrap(err, "create temp extract dir")
	}
	keepTmp := false
	defer func() {
		if !keepTmp {
			os.RemoveAll(tmpDir)
		}
	}()

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "open zip %s", zipPath)
	}
	defer zr.Close()

	seen := make(map[string]struct{})
	var written []string
	var total int64
	for _, zf := range zr.File {
		name, ok := mailboxEntryName(zf)
		if !ok {
			continue
		}
		size := int64(zf.UncompressedSize64)
		if limits.MaxEntryBytes > 0 && size > limits.MaxEntryBytes {
			return nil, eris.Wrapf(ErrExtractLimit, "entry %q is %d bytes", zf.Name, size)
		}
		if limits.MaxTotalBytes > 0 && total+size > limits.MaxTotalBytes {
			return nil, eris.Wrapf(ErrExtractLimit, "total exceeds %d bytes", limits.MaxTotalBytes)
		}

		outPath := filepath.Join(tmpDir, disambiguate(name, seen))
		if err := extractEntry(zf, outPath, limits.MaxEntryBytes); err != nil {
			return nil, err
		}
		total += size
		written = append(written, filepath.Base(outPath))
	}
	if len(written) == 0 {
		return nil, eris.Wrapf(ErrNoMailboxes, "%s", zipPath)
	}

	if err := os.Rename(tmpDir, destDir); err != nil {
		// A concurrent open may have extracted the same zip first.
		if files, cerr := cachedMailboxes(destDir); cerr == nil && len(files) > 0 {
			return files, nil
		}
		return nil, eris.Wrap(err, "finalize extract dir")
	}
	keepTmp = true
	log.Info("extracted zip archive", "zip", zipPath, "mailboxes", len(written), "bytes", total)

	out := make([]string, len(written))
	for i, name := range written {
		out[i] = filepath.Join(destDir, name)
	}
	sort.Strings(out)
	return out, nil
}

// cacheKey hashes the zip's mailbox entry metadata (name, size, CRC) plus
// the container size. Hashing the central directory instead of the content
// keeps reopening a multi-gigabyte export cheap; this is a cache key, not an
// integrity check.
func cacheKey(zipPath string) (string, error) {
	info, err := os.Stat(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "stat zip")
	}
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrapf(err, "open zip %s", zipPath)
	}
	defer zr.Close()

	type entry struct {
		name string
		size uint64
		crc  uint32
	}
	var entries []entry
	for _, zf := range zr.File {
		if _, ok := mailboxEntryName(zf); !ok {
			continue
		}
		clean := path.Clean(strings.ReplaceAll(zf.Name, "\\", "/"))
		entries = append(entries, entry{name: clean, size: zf.UncompressedSize64, crc: zf.CRC32})
	}
	if len(entries) == 0 {
		return "", eris.Wrapf(ErrNoMailboxes, "%s", zipPath)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	h := sha256.New()
	fmt.Fprintf(h, "zip:%x\n", info.Size())
	for _, e := range entries {
		fmt.Fprintf(h, "%s\x00%x\x00%x\n", e.name, e.size, e.crc)
	}
	return "z" + hex.EncodeToString(h.Sum(nil))[:16], nil
}

// mailboxEntryName returns the sanitized base name of a zip entry if it is
// an mbox file, ignoring directories and everything else Takeout packs
// alongside the mail.
func mailboxEntryName(zf *zip.File) (string, bool) {
	if zf.FileInfo().IsDir() {
		return "", false
	}
	base := path.Base(path.Clean(strings.ReplaceAll(zf.Name, "\\", "/")))
	ext := strings.ToLower(filepath.Ext(base))
	if ext != ".mbox" && ext != ".mbx" {
		return "", false
	}
	name := export.SanitizeFilename(base)
	if name == "" {
		return "", false
	}
	return name, true
}

func disambiguate(name string, seen map[string]struct{}) string {
	candidate := name
	for n := 1; ; n++ {
		if _, dup := seen[strings.ToLower(candidate)]; !dup {
			seen[strings.ToLower(candidate)] = struct{}{}
			return candidate
		}
		ext := filepath.Ext(name)
		candidate = fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
	}
}

func extractEntry(zf *zip.File, outPath string, maxBytes int64) error {
	rc, err := zf.Open()
	if err != nil {
		return eris.Wrapf(err, "open zip entry %q", zf.Name)
	}
	defer rc.Close()

	w, err := fileutil.SecureOpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return eris.Wrapf(err, "create %s", outPath)
	}

	// Copy through a hard cap: the header's uncompressed size was already
	// checked, but a hostile zip can lie about it.
	src := io.Reader(rc)
	if maxBytes > 0 {
		src = io.LimitReader(rc, maxBytes+1)
	}
	n, err := io.Copy(w, src)
	if err != nil {
		w.Close()
		return eris.Wrapf(err, "extract %q", zf.Name)
	}
	if maxBytes > 0 && n > maxBytes {
		w.Close()
		return eris.Wrapf(ErrExtractLimit, "entry %q larger than declared", zf.Name)
	}
	return w.Close()
}

// cachedMailboxes lists a finished extraction directory.
func cachedMailboxes(destDir string) ([]string, error) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".mbox" || ext == ".mbx" {
			out = append(out, filepath.Join(destDir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
