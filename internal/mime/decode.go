// Package mime decodes one raw RFC 822 message into a structured
// EmailMessage using enmime. This is the expensive step the store's cache
// exists to amortize: header unfolding, multipart negotiation, transfer
// decoding, and attachment extraction all happen here.
package mime

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"github.com/dan5py/mbox-viewer-sub001/internal/textutil"
)

// EmailMessage is a fully decoded message. Immutable once constructed; the
// store's cache hands out shared pointers, so callers must not mutate it.
type EmailMessage struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Cc      string `json:"cc,omitempty"`
	Bcc     string `json:"bcc,omitempty"`
	Subject string `json:"subject"`

	Date    time.Time `json:"date,omitzero"`
	DateRaw string    `json:"dateRaw,omitempty"`

	// Body is the decoded plain-text body; when the message carries only
	// HTML, Body holds a tag-stripped rendition of it.
	Body     string `json:"body"`
	HTMLBody string `json:"htmlBody,omitempty"`

	// Headers preserves insertion order and keeps every occurrence of
	// duplicate header names. Header() returns the first occurrence.
	Headers []HeaderField `json:"headers"`

	Attachments []EmailAttachment `json:"attachments"`
}

// HeaderField is one raw (unfolded, undecoded) header line.
type HeaderField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Header returns the first value of the named header, case-insensitively,
// or "" when absent.
func (m *EmailMessage) Header(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// HasAttachments reports whether the message carries any non-inline part.
func (m *EmailMessage) HasAttachments() bool {
	return len(m.Attachments) > 0
}

// EmailAttachment is one decoded attachment part. Payload holds the content
// re-encoded as base64 so it can cross a JSON boundary unchanged.
type EmailAttachment struct {
	ID               string `json:"id"`
	Filename         string `json:"filename"`
	MIMEType         string `json:"mimeType"`
	Size             int64  `json:"size"`
	TransferEncoding string `json:"transferEncoding"`
	Payload          string `json:"payload"`
	ContentID        string `json:"contentId,omitempty"`
}

// Content returns the attachment's decoded bytes.
func (a *EmailAttachment) Content() ([]byte, error) {
	return base64.StdEncoding.DecodeString(a.Payload)
}

// Decode parses raw message bytes into an EmailMessage.
//
// Structural damage (bad MIME boundaries, broken transfer encodings,
// unparseable dates) is absorbed: the affected field gets a best-effort
// value and decoding continues. Decode only returns an error when the input
// is unusable even as a single plain-text part, which does not happen for
// any byte sequence enmime accepts — in practice the fallback path keeps
// one corrupt message from blocking access to the rest of the archive.
func Decode(raw []byte) (*EmailMessage, error) {
	msg := &EmailMessage{
		Headers: parseRawHeaders(raw),
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		// Fall back to treating everything after the header block as plain text.
		msg.Body = textutil.EnsureUTF8(rawBody(raw))
		fillFromRawHeaders(msg)
		msg.ID = messageFallbackID(msg, raw)
		return msg, nil
	}

	msg.Subject = env.GetHeader("Subject")
	msg.From = env.GetHeader("From")
	msg.To = env.GetHeader("To")
	msg.Cc = env.GetHeader("Cc")
	msg.Bcc = env.GetHeader("Bcc")
	msg.Body = textutil.EnsureUTF8(env.Text)
	msg.HTMLBody = env.HTML
	if msg.Body == "" && msg.HTMLBody != "" {
		msg.Body = StripHTML(msg.HTMLBody)
	}
	if msg.Body == "" && msg.HTMLBody == "" && len(env.Attachments) == 0 && len(env.OtherParts) == 0 {
		// Structure parsed but produced nothing usable (truncated multipart,
		// bogus boundary): degrade to the raw content as one plain-text part.
		msg.Body = textutil.EnsureUTF8(rawBody(raw))
	}

	msg.DateRaw = env.GetHeader("Date")
	if msg.DateRaw != "" {
		if t, ok := parseDate(msg.DateRaw); ok {
			msg.Date = t
		}
	}

	for _, part := range env.Attachments {
		msg.Attachments = append(msg.Attachments, makeAttachment(part))
	}
	for _, part := range env.Inlines {
		// Inline text parts are body content, not attachments.
		if part.FileName == "" && isTextPart(part.ContentType) {
			continue
		}
		msg.Attachments = append(msg.Attachments, makeAttachment(part))
	}
	for _, part := range env.OtherParts {
		msg.Attachments = append(msg.Attachments, makeAttachment(part))
	}

	msg.ID = messageFallbackID(msg, raw)
	return msg, nil
}

// makeAttachment converts an enmime part (already transfer-decoded) into an
// EmailAttachment with a content-hash id.
func makeAttachment(part *enmime.Part) EmailAttachment {
	sum := sha256.Sum256(part.Content)
	return EmailAttachment{
		ID:               hex.EncodeToString(sum[:8]),
		Filename:         part.FileName,
		MIMEType:         part.ContentType,
		Size:             int64(len(part.Content)),
		TransferEncoding: part.Header.Get("Content-Transfer-Encoding"),
		Payload:          base64.StdEncoding.EncodeToString(part.Content),
		ContentID:        strings.Trim(part.ContentID, "<>"),
	}
}

func isTextPart(contentType string) bool {
	ct := strings.ToLower(contentType)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct == "text/plain" || ct == "text/html"
}

// messageFallbackID prefers the Message-ID header and falls back to a
// content hash so every message has a stable identity.
func messageFallbackID(msg *EmailMessage, raw []byte) string {
	if id := strings.Trim(msg.Header("Message-ID"), "<> \t"); id != "" {
		return id
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:16])
}

// parseRawHeaders reads the header block of raw, unfolding continuation
// lines, and returns every field in insertion order. Duplicate names are all
// kept; consumers that want a single value take the first occurrence.
func parseRawHeaders(raw []byte) []HeaderField {
	var fields []HeaderField
	rest := raw
	for len(rest) > 0 {
		line, tail := cutLine(rest)
		rest = tail
		trimmed := bytes.TrimRight(line, "\r\n")
		if len(trimmed) == 0 {
			break // end of header block
		}
		if trimmed[0] == ' ' || trimmed[0] == '\t' {
			// Folded continuation of the previous field.
			if n := len(fields); n > 0 {
				fields[n-1].Value += " " + string(bytes.TrimSpace(trimmed))
			}
			continue
		}
		colon := bytes.IndexByte(trimmed, ':')
		if colon <= 0 {
			continue // not a header line; skip rather than abort
		}
		fields = append(fields, HeaderField{
			Name:  string(bytes.TrimSpace(trimmed[:colon])),
			Value: string(bytes.TrimSpace(trimmed[colon+1:])),
		})
	}
	return fields
}

func cutLine(b []byte) (line, rest []byte) {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i+1], b[i+1:]
	}
	return b, nil
}

// rawBody returns everything after the first blank line.
func rawBody(raw []byte) string {
	for _, sep := range [][]byte{[]byte("\r\n\r\n"), []byte("\n\n")} {
		if i := bytes.Index(raw, sep); i >= 0 {
			return string(raw[i+len(sep):])
		}
	}
	return ""
}

// fillFromRawHeaders populates the address/subject/date fields from the raw
// header list when structured parsing was impossible.
func fillFromRawHeaders(msg *EmailMessage) {
	msg.From = msg.Header("From")
	msg.To = msg.Header("To")
	msg.Cc = msg.Header("Cc")
	msg.Bcc = msg.Header("Bcc")
	msg.Subject = msg.Header("Subject")
	msg.DateRaw = msg.Header("Date")
	if msg.DateRaw != "" {
		if t, ok := parseDate(msg.DateRaw); ok {
			msg.Date = t
		}
	}
}

// dateLayouts covers the RFC 5322 forms plus the common deviations seen in
// real archives.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	time.ANSIC,
	time.UnixDate,
	"Mon, 02 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
}

// parseDate tries the known layouts, with and without a trailing
// parenthesized timezone name.
func parseDate(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	candidates := []string{s}
	if i := strings.LastIndex(s, "("); i > 0 {
		candidates = append([]string{strings.TrimSpace(s[:i])}, s)
	}
	for _, c := range candidates {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, c); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}
