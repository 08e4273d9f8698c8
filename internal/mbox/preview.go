package mbox

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

// labelHeader carries folder/category labels in Gmail takeout exports.
const labelHeader = "X-Gmail-Labels"

// parsePreview extracts preview fields from a raw header block. It never
// fails: unparseable headers yield a preview with only the size populated.
func parsePreview(header []byte, size int64, log *slog.Logger) *Preview {
	p := &Preview{Size: size}
	if len(header) == 0 {
		return p
	}

	// message.Read wants a terminated header block.
	if !bytes.HasSuffix(header, []byte("\n\n")) && !bytes.HasSuffix(header, []byte("\r\n\r\n")) {
		header = append(header, '\n', '\n')
	}

	entity, err := message.Read(bytes.NewReader(header))
	if err != nil && !message.IsUnknownCharset(err) {
		log.Debug("unparseable header block", "error", err)
		return p
	}
	h := mail.Header{Header: entity.Header}

	if subj, err := h.Subject(); err == nil {
		p.Subject = subj
	} else {
		p.Subject = h.Get("Subject")
	}
	p.From = formatAddressHeader(h, "From")
	p.To = formatAddressHeader(h, "To")

	p.DateRaw = h.Get("Date")
	if t, err := h.Date(); err == nil {
		p.Date = t
	}

	if id, err := h.MessageID(); err == nil {
		p.MessageID = id
	}
	if ids, err := h.MsgIDList("In-Reply-To"); err == nil && len(ids) > 0 {
		p.InReplyTo = ids[0]
	}
	if refs, err := h.MsgIDList("References"); err == nil {
		p.References = refs
	}

	if raw := h.Get(labelHeader); raw != "" {
		for _, l := range strings.Split(raw, ",") {
			if l = strings.TrimSpace(l); l != "" {
				p.Labels = append(p.Labels, l)
			}
		}
	}

	return p
}

// formatAddressHeader renders an address header for list display,
// falling back to the raw value when the list does not parse.
func formatAddressHeader(h mail.Header, key string) string {
	list, err := h.AddressList(key)
	if err != nil || len(list) == 0 {
		return strings.TrimSpace(h.Get(key))
	}
	parts := make([]string, 0, len(list))
	for _, a := range list {
		if a.Name != "" {
			parts = append(parts, a.Name+" <"+a.Address+">")
		} else {
			parts = append(parts, a.Address)
		}
	}
	return strings.Join(parts, ", ")
}
