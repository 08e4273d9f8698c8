package search

import (
	"strings"
	"time"

	"github.com/dan5py/mbox-viewer-sub001/internal/mbox"
	"github.com/dan5py/mbox-viewer-sub001/internal/mime"
)

// Context is the flattened, lower-cased view of one message that the
// evaluator consumes.
type Context struct {
	From          string
	To            string
	Subject       string
	Body          string
	Labels        []string
	Date          time.Time
	HasAttachment bool
}

// ContextFromMessage builds a Context from a fully decoded message.
func ContextFromMessage(msg *mime.EmailMessage, labels []string) *Context {
	ctx := &Context{
		From:          strings.ToLower(msg.From),
		To:            strings.ToLower(msg.To),
		Subject:       strings.ToLower(msg.Subject),
		Body:          strings.ToLower(msg.Body),
		Date:          msg.Date,
		HasAttachment: msg.HasAttachments(),
	}
	for _, l := range labels {
		ctx.Labels = append(ctx.Labels, strings.ToLower(l))
	}
	return ctx
}

// ContextFromRaw builds a Context from a boundary's preview plus the raw
// message text, without decoding. The attachment flag is a heuristic on
// content markers since no part structure is available.
func ContextFromRaw(b mbox.Boundary, raw string) *Context {
	ctx := &Context{
		Body:          strings.ToLower(raw),
		HasAttachment: rawHasAttachment(raw),
	}
	if p := b.Preview; p != nil {
		ctx.From = strings.ToLower(p.From)
		ctx.To = strings.ToLower(p.To)
		ctx.Subject = strings.ToLower(p.Subject)
		ctx.Date = p.Date
		for _, l := range p.Labels {
			ctx.Labels = append(ctx.Labels, strings.ToLower(l))
		}
	}
	return ctx
}

// rawHasAttachment detects attachments in undecoded message text by the
// presence of a Content-Disposition: attachment part header or a filename
// parameter inside a multipart body.
func rawHasAttachment(raw string) bool {
	low := strings.ToLower(raw)
	if strings.Contains(low, "content-disposition: attachment") ||
		strings.Contains(low, "content-disposition:attachment") {
		return true
	}
	return strings.Contains(low, "multipart/mixed") && strings.Contains(low, "filename=")
}
