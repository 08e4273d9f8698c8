package search

import (
	"testing"
	"time"
)

func testContext() *Context {
	return &Context{
		From:          "alice <alice@example.com>",
		To:            "bob@example.com",
		Subject:       "quarterly report",
		Body:          "please find the numbers attached. regards, alice",
		Labels:        []string{"work", "finance"},
		Date:          time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		HasAttachment: true,
	}
}

func evalQuery(t *testing.T, query string, ctx *Context) bool {
	t.Helper()
	node, err := Compile(query)
	if err != nil {
		t.Fatalf("Compile(%q): %v", query, err)
	}
	return Eval(node, ctx)
}

func TestEvalMatrix(t *testing.T) {
	ctx := testContext()
	cases := []struct {
		query string
		want  bool
	}{
		{"", true}, // nil AST matches all
		{"report", true},
		{"REPORT", true}, // case-insensitive
		{"missing", false},
		{"alice", true}, // matches from and body
		{"from:alice", true},
		{"from:carol", false},
		{"to:bob", true},
		{"subject:quarterly", true},
		{"subject:annual", false},
		{"body:numbers", true},
		{"label:work", true},
		{"label:personal", false},
		{"has:attachment", true},
		{"report AND numbers", true},
		{"report numbers", true},
		{"report AND missing", false},
		{"report OR missing", true},
		{"missing OR absent", false},
		{"NOT missing", true},
		{"NOT report", false},
		{"NOT missing report", true},
		{"a OR subject:quarterly has:attachment", true},
		{"(missing OR report) from:alice", true},
		{`"quarterly report"`, true},
		{`"quarterly missing"`, false},
	}
	for _, c := range cases {
		if got := evalQuery(t, c.query, ctx); got != c.want {
			t.Errorf("Eval(%q) = %v, want %v", c.query, got, c.want)
		}
	}
}

func TestEvalDateBoundaries(t *testing.T) {
	onBoundary := testContext()
	onBoundary.Date = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	earlier := testContext()
	earlier.Date = time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)

	later := testContext()
	later.Date = time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC)

	// before: is a strict less-than.
	if evalQuery(t, "before:2024-01-01", onBoundary) {
		t.Error("before: must exclude the boundary instant")
	}
	if !evalQuery(t, "before:2024-01-01", earlier) {
		t.Error("before: must include earlier dates")
	}

	// after: includes the boundary day.
	if !evalQuery(t, "after:2024-01-01", onBoundary) {
		t.Error("after: must include the boundary instant")
	}
	if !evalQuery(t, "after:2024-01-01", later) {
		t.Error("after: must include later times on the boundary day")
	}
	if evalQuery(t, "after:2024-01-01", earlier) {
		t.Error("after: must exclude earlier dates")
	}
}

func TestEvalZeroDateNeverMatchesDateFilters(t *testing.T) {
	ctx := testContext()
	ctx.Date = time.Time{}
	if evalQuery(t, "before:2024-01-01", ctx) || evalQuery(t, "after:2000-01-01", ctx) {
		t.Error("undated messages must not match date filters")
	}
}

func TestEvalIsPure(t *testing.T) {
	ctx := testContext()
	node := mustCompile(t, "report OR from:alice")
	first := Eval(node, ctx)
	for i := 0; i < 10; i++ {
		if Eval(node, ctx) != first {
			t.Fatal("evaluation is not deterministic")
		}
	}
}

func TestContextFromRawAttachmentHeuristic(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"Content-Disposition: attachment; filename=x.pdf", true},
		{"content-disposition:attachment", true},
		{"Content-Type: multipart/mixed\n...filename=\"a.zip\"", true},
		{"plain text, nothing attached", false},
		{"Content-Disposition: inline", false},
	}
	for _, c := range cases {
		ctx := ContextFromRaw(testBoundary(), c.raw)
		if ctx.HasAttachment != c.want {
			t.Errorf("rawHasAttachment(%q) = %v, want %v", c.raw, ctx.HasAttachment, c.want)
		}
	}
}
