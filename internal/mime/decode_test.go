package mime

import (
	"strings"
	"testing"
	"time"
)

const multipartMsg = "From: Alice <alice@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Cc: carol@example.com\r\n" +
	"Subject: Report attached\r\n" +
	"Date: Mon, 1 Jan 2024 10:30:00 +0000\r\n" +
	"Message-ID: <report-1@example.com>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"XYZ\"\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Please find the report attached.\r\n" +
	"--XYZ\r\n" +
	"Content-Type: application/pdf; name=\"report.pdf\"\r\n" +
	"Content-Disposition: attachment; filename=\"report.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0xLjQK\r\n" +
	"--XYZ--\r\n"

func TestDecodeMultipart(t *testing.T) {
	msg, err := Decode([]byte(multipartMsg))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if msg.Subject != "Report attached" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.From, "alice@example.com") {
		t.Errorf("From = %q", msg.From)
	}
	if msg.Cc == "" {
		t.Error("Cc not populated")
	}
	if !strings.Contains(msg.Body, "report attached") && !strings.Contains(msg.Body, "Report attached") &&
		!strings.Contains(msg.Body, "find the report") {
		t.Errorf("Body = %q", msg.Body)
	}

	want := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	if !msg.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", msg.Date, want)
	}
	if msg.DateRaw == "" {
		t.Error("DateRaw not kept")
	}
	if msg.ID != "report-1@example.com" {
		t.Errorf("ID = %q", msg.ID)
	}

	if len(msg.Attachments) != 1 {
		t.Fatalf("got %d attachments, want 1", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.Filename != "report.pdf" {
		t.Errorf("Filename = %q", att.Filename)
	}
	if !strings.HasPrefix(att.MIMEType, "application/pdf") {
		t.Errorf("MIMEType = %q", att.MIMEType)
	}
	content, err := att.Content()
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if !strings.HasPrefix(string(content), "%PDF-1.4") {
		t.Errorf("decoded content = %q", content)
	}
	if att.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", att.Size, len(content))
	}
}

func TestDecodeQuotedPrintableBody(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"Caf=C3=A9 au lait\r\n"
	msg, err := Decode([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg.Body, "Café au lait") {
		t.Errorf("Body = %q", msg.Body)
	}
}

func TestDecodeHTMLOnlyFallsBackToStrippedText(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body><p>Hello <b>world</b></p></body></html>\r\n"
	msg, err := Decode([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if msg.HTMLBody == "" {
		t.Error("HTMLBody not kept")
	}
	if !strings.Contains(msg.Body, "Hello world") {
		t.Errorf("Body = %q, want stripped HTML text", msg.Body)
	}
}

func TestDecodeKeepsDuplicateHeadersInOrder(t *testing.T) {
	raw := "Received: from relay-b\r\n" +
		"From: a@example.com\r\n" +
		"Received: from relay-a\r\n" +
		"Subject: dup headers\r\n" +
		"\r\n" +
		"body\r\n"
	msg, err := Decode([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}

	var received []string
	for _, h := range msg.Headers {
		if h.Name == "Received" {
			received = append(received, h.Value)
		}
	}
	if len(received) != 2 || received[0] != "from relay-b" || received[1] != "from relay-a" {
		t.Errorf("Received headers = %v", received)
	}
	// Header() returns the first occurrence.
	if got := msg.Header("received"); got != "from relay-b" {
		t.Errorf("Header(received) = %q", got)
	}
	if msg.Headers[0].Name != "Received" {
		t.Errorf("insertion order lost: first header is %q", msg.Headers[0].Name)
	}
}

func TestDecodeMalformedMIMEFallsBack(t *testing.T) {
	raw := "From: broken@example.com\r\n" +
		"Subject: damaged\r\n" +
		"Content-Type: multipart/mixed; boundary=\"never-closed\r\n" +
		"\r\n" +
		"this content has no valid MIME structure at all\r\n"
	msg, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode must not fail on malformed MIME: %v", err)
	}
	if msg.Subject != "damaged" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "no valid MIME structure") {
		t.Errorf("Body = %q, want raw content fallback", msg.Body)
	}
}

func TestDecodeUnparseableDateKeepsRaw(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Date: the third moon of the seventh cycle\r\n" +
		"\r\n" +
		"body\r\n"
	msg, err := Decode([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if !msg.Date.IsZero() {
		t.Errorf("Date = %v, want zero", msg.Date)
	}
	if msg.DateRaw != "the third moon of the seventh cycle" {
		t.Errorf("DateRaw = %q", msg.DateRaw)
	}
}

func TestDecodeWithoutMessageIDUsesContentHash(t *testing.T) {
	raw := "From: a@example.com\r\n\r\nbody\r\n"
	first, err := Decode([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	second, err := Decode([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == "" || first.ID != second.ID {
		t.Errorf("content-hash ids differ: %q vs %q", first.ID, second.ID)
	}
}

func TestStripHTML(t *testing.T) {
	in := `<html><head><title>x</title></head><body>
<style>p { color: red }</style>
<p>First&nbsp;paragraph</p><p>Second &amp; last</p>
<script>alert("nope")</script>
</body></html>`
	got := StripHTML(in)
	if strings.Contains(got, "alert") || strings.Contains(got, "color") {
		t.Errorf("script/style leaked: %q", got)
	}
	if !strings.Contains(got, "First paragraph") {
		t.Errorf("missing text: %q", got)
	}
	if !strings.Contains(got, "Second & last") {
		t.Errorf("entities not decoded: %q", got)
	}
}
