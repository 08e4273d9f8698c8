// Package search implements the query language used to filter messages:
// bare terms, field filters (from:/to:/subject:/body:/label:), the
// has:attachment flag, before:/after: date filters, quoted phrases, and
// AND/OR/NOT with parentheses. Queries compile to an immutable AST which is
// evaluated per message against a flattened Context.
package search

import "time"

// Node is one node of a compiled query. The set of implementations is
// closed; external packages only build trees through Compile.
type Node interface {
	node()
}

// Term matches when its lower-cased text occurs in any of the context's
// from/to/subject/body projections.
type Term struct {
	Text string
}

// FieldKind names the projection a Field filter applies to.
type FieldKind string

const (
	FieldFrom    FieldKind = "from"
	FieldTo      FieldKind = "to"
	FieldSubject FieldKind = "subject"
	FieldBody    FieldKind = "body"
	FieldLabel   FieldKind = "label"
)

// Field matches when Value occurs in the named projection.
type Field struct {
	Kind  FieldKind
	Value string
}

// HasAttachment matches the context's precomputed attachment flag.
type HasAttachment struct{}

// DateFilter matches against the context date: Before is a strict
// less-than, After is inclusive of the boundary day.
type DateFilter struct {
	Before bool
	When   time.Time
}

// And is the binary conjunction, including implicit AND between adjacent
// primaries.
type And struct {
	Left, Right Node
}

// Or is the binary disjunction.
type Or struct {
	Left, Right Node
}

// Not negates a single following primary.
type Not struct {
	Child Node
}

func (Term) node()          {}
func (Field) node()         {}
func (HasAttachment) node() {}
func (DateFilter) node()    {}
func (And) node()           {}
func (Or) node()            {}
func (Not) node()           {}
