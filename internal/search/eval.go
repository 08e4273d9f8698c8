package search

import "strings"

// Eval evaluates a compiled query node against a message context. A nil
// node matches everything. Evaluation is pure: no side effects, and the
// result depends only on the AST and the context.
func Eval(n Node, ctx *Context) bool {
	if n == nil {
		return true
	}
	switch node := n.(type) {
	case Term:
		return strings.Contains(ctx.From, node.Text) ||
			strings.Contains(ctx.To, node.Text) ||
			strings.Contains(ctx.Subject, node.Text) ||
			strings.Contains(ctx.Body, node.Text)
	case Field:
		switch node.Kind {
		case FieldFrom:
			return strings.Contains(ctx.From, node.Value)
		case FieldTo:
			return strings.Contains(ctx.To, node.Value)
		case FieldSubject:
			return strings.Contains(ctx.Subject, node.Value)
		case FieldBody:
			return strings.Contains(ctx.Body, node.Value)
		case FieldLabel:
			for _, l := range ctx.Labels {
				if strings.Contains(l, node.Value) {
					return true
				}
			}
			return false
		}
		return false
	case HasAttachment:
		return ctx.HasAttachment
	case DateFilter:
		if ctx.Date.IsZero() {
			return false
		}
		if node.Before {
			return ctx.Date.Before(node.When)
		}
		// "after" includes the boundary day itself.
		return !ctx.Date.Before(node.When)
	case And:
		return Eval(node.Left, ctx) && Eval(node.Right, ctx)
	case Or:
		return Eval(node.Left, ctx) || Eval(node.Right, ctx)
	case Not:
		return !Eval(node.Child, ctx)
	}
	return false
}
