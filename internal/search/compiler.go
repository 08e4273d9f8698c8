package search

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrInvalidQuery reports a query string the compiler could not turn into an
// AST. The grammar is deliberately forgiving (malformed dates demote to plain
// terms, unclosed quotes and parens close at end of input), so in practice
// this is reserved for future stricter rules; callers still have to handle it.
var ErrInvalidQuery = eris.New("invalid search query")

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuoted
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits a query into words, quoted phrases, and parens.
// Quotes capture everything up to the closing quote (or end of input) and
// `op:"quoted value"` stays a single word token.
func tokenize(query string) []token {
	var (
		tokens     []token
		current    strings.Builder
		inQuotes   bool
		afterColon bool
		opQuoted   bool
	)

	flushWord := func() {
		if current.Len() > 0 {
			tokens = append(tokens, token{kind: tokWord, text: current.String()})
			current.Reset()
		}
	}

	for _, ch := range query {
		switch {
		case ch == '"' && !inQuotes:
			inQuotes = true
			opQuoted = afterColon
			if !afterColon {
				flushWord()
			} else {
				current.WriteRune(ch)
			}
			afterColon = false
		case ch == '"' && inQuotes:
			inQuotes = false
			if opQuoted {
				current.WriteRune(ch)
				flushWord()
			} else {
				tokens = append(tokens, token{kind: tokQuoted, text: current.String()})
				current.Reset()
			}
			opQuoted = false
		case inQuotes:
			current.WriteRune(ch)
		case ch == '(':
			flushWord()
			tokens = append(tokens, token{kind: tokLParen})
			afterColon = false
		case ch == ')':
			flushWord()
			tokens = append(tokens, token{kind: tokRParen})
			afterColon = false
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			flushWord()
			afterColon = false
		default:
			current.WriteRune(ch)
			afterColon = ch == ':'
		}
	}

	// Unclosed quote: close implicitly at end of input.
	if inQuotes && !opQuoted {
		tokens = append(tokens, token{kind: tokQuoted, text: current.String()})
		current.Reset()
	}
	flushWord()
	return tokens
}

// parser is a recursive-descent parser over the token stream. Precedence,
// loosest to tightest: OR, implicit/explicit AND, NOT, primary.
type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) next() (token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

// isKeyword reports whether t is the given boolean keyword. Only bare
// unquoted words qualify; "and" inside quotes is a phrase.
func isKeyword(t token, kw string) bool {
	return t.kind == tokWord && strings.EqualFold(t.text, kw)
}

func (p *parser) parseOr() Node {
	left := p.parseAnd()
	for {
		t, ok := p.peek()
		if !ok || !isKeyword(t, "or") {
			return left
		}
		p.pos++
		right := p.parseAnd()
		if right == nil {
			return left // trailing OR with no operand
		}
		if left == nil {
			left = right // leading OR, e.g. "OR a"
			continue
		}
		left = Or{Left: left, Right: right}
	}
}

// parseAnd greedily consumes NOT-level terms while the next token is neither
// OR nor a closing paren. This is what makes adjacency mean AND.
func (p *parser) parseAnd() Node {
	var left Node
	for {
		t, ok := p.peek()
		if !ok || isKeyword(t, "or") || t.kind == tokRParen {
			return left
		}
		if isKeyword(t, "and") {
			p.pos++
			continue
		}
		right := p.parseNot()
		if right == nil {
			continue
		}
		if left == nil {
			left = right
		} else {
			left = And{Left: left, Right: right}
		}
	}
}

func (p *parser) parseNot() Node {
	t, ok := p.peek()
	if ok && isKeyword(t, "not") {
		p.pos++
		child := p.parseNot()
		if child == nil {
			// Dangling NOT at end of input: treat the keyword as a term.
			return Term{Text: "not"}
		}
		return Not{Child: child}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() Node {
	t, ok := p.next()
	if !ok {
		return nil
	}
	switch t.kind {
	case tokLParen:
		expr := p.parseOr()
		if nxt, ok := p.peek(); ok && nxt.kind == tokRParen {
			p.pos++
		}
		// Unclosed paren closes implicitly at end of input.
		return expr
	case tokRParen:
		return nil
	case tokQuoted:
		if t.text == "" {
			return nil
		}
		return Term{Text: strings.ToLower(t.text)}
	default:
		return wordPrimary(t.text)
	}
}

// wordPrimary classifies a bare word: field filter, flag, date filter, or
// plain term.
func wordPrimary(word string) Node {
	colon := strings.Index(word, ":")
	if colon <= 0 || colon == len(word)-1 {
		return Term{Text: strings.ToLower(word)}
	}
	op := strings.ToLower(word[:colon])
	value := unquote(word[colon+1:])

	switch op {
	case "from", "to", "subject", "body", "label":
		return Field{Kind: FieldKind(op), Value: strings.ToLower(value)}
	case "has":
		if v := strings.ToLower(value); v == "attachment" || v == "attachments" {
			return HasAttachment{}
		}
	case "before", "after":
		if t, ok := parseFilterDate(value); ok {
			return DateFilter{Before: op == "before", When: t}
		}
		// Malformed date degrades to a term search on the literal token.
	}
	return Term{Text: strings.ToLower(word)}
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// filterDateLayouts are the documented forms plus a generic fallback set.
var filterDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
	time.RFC3339,
}

func parseFilterDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range filterDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Compile parses a query string into an AST. An empty or whitespace-only
// query compiles to a nil Node, meaning "match all".
func Compile(query string) (Node, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	p := &parser{tokens: tokenize(query)}
	return p.parseOr(), nil
}

// IsLiteral reports whether query contains no operators, quotes, or
// grouping, so a plain case-insensitive substring scan is equivalent to
// compiling and evaluating it. The orchestrator uses this as a fast path.
func IsLiteral(query string) bool {
	if strings.ContainsAny(query, "\"():") {
		return false
	}
	for _, f := range strings.Fields(query) {
		switch strings.ToLower(f) {
		case "and", "or", "not":
			return false
		}
	}
	return len(strings.Fields(query)) == 1
}
