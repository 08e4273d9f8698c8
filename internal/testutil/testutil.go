// Package testutil provides shared test helpers: assertion utilities and
// builders for mbox fixtures.
package testutil

import (
	"strings"
	"testing"
)

// AssertEqualSlices compares two slices element-by-element.
func AssertEqualSlices[T comparable](t *testing.T, got []T, want ...T) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("got len %d, want %d: %v", len(got), len(want), got)
		return
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("at index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

// AssertContains asserts that got contains substr.
func AssertContains(t *testing.T, got, substr string) {
	t.Helper()
	if !strings.Contains(got, substr) {
		t.Errorf("expected %q to contain %q", got, substr)
	}
}

// MboxMessage describes one message for BuildMbox.
type MboxMessage struct {
	Envelope string // full "From ..." separator line, without newline
	Headers  string // header block, lines joined with \n, no trailing blank line
	Body     string
}

// BuildMbox renders messages into mbox bytes with LF line endings.
func BuildMbox(messages ...MboxMessage) []byte {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(m.Envelope)
		sb.WriteString("\n")
		sb.WriteString(m.Headers)
		sb.WriteString("\n\n")
		sb.WriteString(m.Body)
		if !strings.HasSuffix(m.Body, "\n") {
			sb.WriteString("\n")
		}
	}
	return []byte(sb.String())
}

// Envelope returns a standard separator line for the given sender.
func Envelope(sender string) string {
	return "From " + sender + " Mon Jan  1 00:00:00 2024"
}
