package search

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func mustCompile(t *testing.T, query string) Node {
	t.Helper()
	node, err := Compile(query)
	if err != nil {
		t.Fatalf("Compile(%q): %v", query, err)
	}
	return node
}

func assertAST(t *testing.T, query string, want Node) {
	t.Helper()
	got := mustCompile(t, query)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compile(%q) mismatch (-want +got):\n%s", query, diff)
	}
}

func TestCompileEmptyQueryMatchesAll(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		if node := mustCompile(t, q); node != nil {
			t.Errorf("Compile(%q) = %#v, want nil", q, node)
		}
	}
}

func TestCompileBareTermLowercases(t *testing.T) {
	assertAST(t, "Hello", Term{Text: "hello"})
}

func TestCompileQuotedPhrase(t *testing.T) {
	assertAST(t, `"hello world"`, Term{Text: "hello world"})
}

func TestCompileUnclosedQuoteClosesAtEnd(t *testing.T) {
	assertAST(t, `"dangling phrase`, Term{Text: "dangling phrase"})
}

func TestCompileImplicitAnd(t *testing.T) {
	assertAST(t, "foo bar", And{Left: Term{Text: "foo"}, Right: Term{Text: "bar"}})
}

func TestCompileOrLoosestPrecedence(t *testing.T) {
	// a OR b c must parse as a OR (b AND c).
	assertAST(t, "a OR b c", Or{
		Left:  Term{Text: "a"},
		Right: And{Left: Term{Text: "b"}, Right: Term{Text: "c"}},
	})
}

func TestCompileNotBindsOnePrimary(t *testing.T) {
	// NOT a b must parse as (NOT a) AND b.
	assertAST(t, "NOT a b", And{
		Left:  Not{Child: Term{Text: "a"}},
		Right: Term{Text: "b"},
	})
}

func TestCompileChainedNot(t *testing.T) {
	assertAST(t, "NOT NOT x", Not{Child: Not{Child: Term{Text: "x"}}})
}

func TestCompileKeywordsCaseInsensitive(t *testing.T) {
	assertAST(t, "a or b", Or{Left: Term{Text: "a"}, Right: Term{Text: "b"}})
	assertAST(t, "a And b", And{Left: Term{Text: "a"}, Right: Term{Text: "b"}})
	assertAST(t, "not a", Not{Child: Term{Text: "a"}})
}

func TestCompileQuotedKeywordIsAPhrase(t *testing.T) {
	assertAST(t, `"or"`, Term{Text: "or"})
}

func TestCompileParens(t *testing.T) {
	assertAST(t, "(a OR b) c", And{
		Left:  Or{Left: Term{Text: "a"}, Right: Term{Text: "b"}},
		Right: Term{Text: "c"},
	})
}

func TestCompileUnclosedParenClosesAtEnd(t *testing.T) {
	assertAST(t, "(a OR b", Or{Left: Term{Text: "a"}, Right: Term{Text: "b"}})
}

func TestCompileFieldFilters(t *testing.T) {
	assertAST(t, "from:Alice", Field{Kind: FieldFrom, Value: "alice"})
	assertAST(t, "to:bob@example.com", Field{Kind: FieldTo, Value: "bob@example.com"})
	assertAST(t, "subject:hello", Field{Kind: FieldSubject, Value: "hello"})
	assertAST(t, "body:snippet", Field{Kind: FieldBody, Value: "snippet"})
	assertAST(t, "label:Work", Field{Kind: FieldLabel, Value: "work"})
}

func TestCompileQuotedFieldValue(t *testing.T) {
	assertAST(t, `subject:"foo bar"`, Field{Kind: FieldSubject, Value: "foo bar"})
}

func TestCompileHasAttachment(t *testing.T) {
	assertAST(t, "has:attachment", HasAttachment{})
	assertAST(t, "has:attachments", HasAttachment{})
	// Unknown has: values fall back to a literal term.
	assertAST(t, "has:wings", Term{Text: "has:wings"})
}

func TestCompileDateFilters(t *testing.T) {
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assertAST(t, "before:2024-01-01", DateFilter{Before: true, When: want})
	assertAST(t, "after:2024/01/01", DateFilter{Before: false, When: want})
}

func TestCompileMalformedDateDegradesToTerm(t *testing.T) {
	assertAST(t, "before:someday", Term{Text: "before:someday"})
	assertAST(t, "after:2024-13-45", Term{Text: "after:2024-13-45"})
}

func TestCompileUnknownOperatorIsATerm(t *testing.T) {
	assertAST(t, "size:5M", Term{Text: "size:5m"})
}

func TestCompileFieldAndFlagCombination(t *testing.T) {
	assertAST(t, "from:alice has:attachment", And{
		Left:  Field{Kind: FieldFrom, Value: "alice"},
		Right: HasAttachment{},
	})
}

func TestCompileDanglingOperators(t *testing.T) {
	// Trailing boolean keywords must not loop or fail.
	assertAST(t, "a OR", Term{Text: "a"})
	assertAST(t, "a AND", Term{Text: "a"})
	assertAST(t, "NOT", Term{Text: "not"})
}

func TestIsLiteral(t *testing.T) {
	cases := []struct {
		query string
		want  bool
	}{
		{"hello", true},
		{"hello world", false},
		{"from:alice", false},
		{`"quoted"`, false},
		{"(grouped)", false},
		{"a OR b", false},
		{"not", false},
	}
	for _, c := range cases {
		if got := IsLiteral(c.query); got != c.want {
			t.Errorf("IsLiteral(%q) = %v, want %v", c.query, got, c.want)
		}
	}
}
