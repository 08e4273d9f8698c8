package mbox

import (
	"bytes"
	"strings"
	"time"
)

// Envelope date layouts seen in the wild. The classic form is asctime
// ("Mon Jan  2 15:04:05 2006"); exporters also emit variants with timezone
// tokens before or after the year, and some omit the weekday or seconds.
var envelopeDateLayouts = []string{
	"Mon Jan 2 15:04:05 2006",
	"Mon Jan 2 15:04:05 -0700 2006",
	"Mon Jan 2 15:04:05 MST 2006",
	"Mon Jan 2 15:04:05 2006 -0700",
	"Mon Jan 2 15:04:05 2006 MST",
	"Mon Jan 2 15:04 2006",
	"Mon Jan 2 15:04 -0700 2006",
	"Mon Jan 2 15:04 2006 -0700",
	"Jan 2 15:04:05 2006",
	"Jan 2 15:04:05 -0700 2006",
	"Jan 2 15:04:05 MST 2006",
	"Jan 2 15:04:05 2006 -0700",
	"Jan 2 15:04 2006",
}

var envelopePrefix = []byte("From ")

// IsEnvelopeLine reports whether line (trailing newline optional) is an mbox
// message separator: "From <sender> <ctime-like date> [extra...]".
//
// The date check is a heuristic. An unescaped body line of that exact shape
// would be misclassified; writers are expected to escape such lines with a
// leading '>' (mboxrd), which the decoder path undoes via UnescapeFrom.
func IsEnvelopeLine(line []byte) bool {
	if !bytes.HasPrefix(line, envelopePrefix) {
		return false
	}
	_, ok := ParseEnvelopeDate(string(bytes.TrimRight(line, "\r\n")))
	return ok
}

// ParseEnvelopeDate extracts the date from an envelope separator line.
// Producers sometimes append trailing tokens ("remote from uucphost"), so
// only a date-sized prefix after the sender is parsed.
func ParseEnvelopeDate(line string) (time.Time, bool) {
	fields := strings.Fields(line)
	if len(fields) < 6 || fields[0] != "From" {
		return time.Time{}, false
	}
	for _, layout := range envelopeDateLayouts {
		n := len(strings.Fields(layout))
		if len(fields) < 2+n {
			continue
		}
		dateStr := strings.Join(fields[2:2+n], " ")
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// UnescapeFrom removes one leading '>' from a line matching ^>+From ,
// reversing mboxrd escaping. Index offsets always refer to the escaped raw
// bytes; unescaping applies only when a message is materialized for decoding.
func UnescapeFrom(line []byte) []byte {
	if len(line) == 0 || line[0] != '>' {
		return line
	}
	i := 0
	for i < len(line) && line[i] == '>' {
		i++
	}
	if i < len(line) && bytes.HasPrefix(line[i:], envelopePrefix) {
		return line[1:]
	}
	return line
}

// UnescapeBody applies UnescapeFrom to every line of a raw message body.
func UnescapeBody(raw []byte) []byte {
	lines := bytes.SplitAfter(raw, []byte("\n"))
	var out bytes.Buffer
	out.Grow(len(raw))
	for _, line := range lines {
		out.Write(UnescapeFrom(line))
	}
	return out.Bytes()
}
