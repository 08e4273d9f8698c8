package export

import (
	"os"
	"strings"
	"time"

	gombox "github.com/emersion/go-mbox"
	"github.com/rotisserie/eris"

	"github.com/dan5py/mbox-viewer-sub001/internal/fileutil"
	"github.com/dan5py/mbox-viewer-sub001/internal/mbox"
	"github.com/dan5py/mbox-viewer-sub001/internal/store"
)

// Mbox writes the messages at the given display indices of a file into a
// fresh mbox at path, in the order given. Raw bytes are unescaped before
// writing so the writer's own From-escaping does not stack.
func Mbox(st *store.Store, fileID string, indices []int, path string) error {
	f, err := st.File(fileID)
	if err != nil {
		return err
	}

	// Exported mail is private; keep it owner-only.
	out, err := fileutil.SecureOpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer out.Close()

	w := gombox.NewWriter(out)
	for _, index := range indices {
		b, err := f.Boundary(index)
		if err != nil {
			return err
		}
		raw, err := f.Reader().ReadRange(b.Start, b.End)
		if err != nil {
			return eris.Wrapf(err, "read message %d", index)
		}

		from, date := envelopeFor(b)
		mw, err := w.CreateMessage(from, date)
		if err != nil {
			return eris.Wrap(err, "create mbox message")
		}
		if _, err := mw.Write(mbox.UnescapeBody(raw)); err != nil {
			return eris.Wrapf(err, "write message %d", index)
		}
	}
	if err := w.Close(); err != nil {
		return eris.Wrap(err, "finalize mbox")
	}
	return nil
}

// envelopeFor derives a "From " separator sender and date from the preview,
// with neutral fallbacks for messages that lack them.
func envelopeFor(b mbox.Boundary) (string, time.Time) {
	from := "MAILER-DAEMON"
	date := time.Unix(0, 0).UTC()
	if p := b.Preview; p != nil {
		if addr := bareAddress(p.From); addr != "" {
			from = addr
		}
		if !p.Date.IsZero() {
			date = p.Date
		}
	}
	return from, date
}

// bareAddress reduces "Name <user@host>" to "user@host". The separator line
// wants a single token, not a display name.
func bareAddress(s string) string {
	if i := strings.IndexByte(s, '<'); i >= 0 {
		if j := strings.IndexByte(s[i:], '>'); j > 0 {
			return s[i+1 : i+j]
		}
	}
	if fields := strings.Fields(s); len(fields) == 1 {
		return fields[0]
	}
	return ""
}
