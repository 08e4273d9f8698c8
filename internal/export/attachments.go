// Package export writes decoded content back out of the archive: single
// attachments to disk, and message subsets to a fresh mbox file.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/dan5py/mbox-viewer-sub001/internal/fileutil"
	"github.com/dan5py/mbox-viewer-sub001/internal/mime"
)

// Attachment writes one decoded attachment into dir and returns the path
// written. Filenames are sanitized and disambiguated against files already
// present in dir.
func Attachment(dir string, att mime.EmailAttachment) (string, error) {
	content, err := att.Content()
	if err != nil {
		return "", eris.Wrapf(err, "decode attachment %s", att.Filename)
	}

	name := SanitizeFilename(att.Filename)
	if name == "" {
		name = "attachment-" + att.ID
	}

	path := filepath.Join(dir, name)
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		path = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, n, ext))
	}

	if err := fileutil.SecureWriteFile(path, content, 0o644); err != nil {
		return "", eris.Wrapf(err, "write %s", path)
	}
	return path, nil
}

// SanitizeFilename strips path components and characters that are unsafe in
// a filename on common filesystems.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20, strings.ContainsRune(`<>:"/\|?*`, r):
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}
