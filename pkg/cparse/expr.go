package cparse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/go-cflow/pkg/ctree"
)

// expr converts an expression node. Parentheses are dropped; the renderer
// restores the ones precedence requires. A nil node yields a nil expression.
func (p *parser) expr(n *sitter.Node) ctree.Expr {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "parenthesized_expression":
		inner := firstNamed(n)
		if inner == nil {
			return &ctree.BadExpr{Kind: "empty parentheses", Line: line(n)}
		}
		return p.expr(inner)

	case "identifier":
		return &ctree.Ident{Name: p.text(n)}

	case "number_literal", "char_literal", "string_literal", "concatenated_string",
		"true", "false", "null":
		return &ctree.Constant{Value: p.text(n)}

	case "binary_expression":
		return &ctree.Binary{
			Op:    operator(n),
			Left:  p.expr(n.ChildByFieldName("left")),
			Right: p.expr(n.ChildByFieldName("right")),
		}

	case "unary_expression", "pointer_expression":
		return &ctree.Unary{Op: operator(n), X: p.expr(n.ChildByFieldName("argument"))}

	case "update_expression":
		arg := n.ChildByFieldName("argument")
		op := n.ChildByFieldName("operator")
		u := &ctree.Unary{X: p.expr(arg)}
		if op != nil {
			u.Op = op.Type()
			u.Postfix = arg != nil && arg.StartByte() < op.StartByte()
		}
		return u

	case "conditional_expression":
		return &ctree.Ternary{
			Cond:  p.expr(n.ChildByFieldName("condition")),
			True:  p.expr(n.ChildByFieldName("consequence")),
			False: p.expr(n.ChildByFieldName("alternative")),
		}

	case "subscript_expression":
		return &ctree.ArrayRef{
			Name:  p.expr(n.ChildByFieldName("argument")),
			Index: p.expr(n.ChildByFieldName("index")),
		}

	case "cast_expression":
		return &ctree.Cast{
			To: p.typeDescriptor(n.ChildByFieldName("type")),
			X:  p.expr(n.ChildByFieldName("value")),
		}

	case "sizeof_expression":
		if value := n.ChildByFieldName("value"); value != nil {
			return &ctree.Unary{Op: "sizeof", X: p.expr(value)}
		}
		return &ctree.Constant{Value: p.text(n)}

	case "call_expression":
		return p.call(n)

	case "field_expression":
		m := &ctree.Member{
			X:     p.expr(n.ChildByFieldName("argument")),
			Field: p.text(n.ChildByFieldName("field")),
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child != nil && child.Type() == "->" {
				m.Arrow = true
				break
			}
		}
		return m

	case "initializer_list":
		list := &ctree.InitList{}
		for _, child := range namedChildren(n) {
			list.Elems = append(list.Elems, p.expr(child))
		}
		return list

	default:
		return &ctree.BadExpr{Kind: n.Type(), Line: line(n)}
	}
}

func (p *parser) call(n *sitter.Node) *ctree.Call {
	c := &ctree.Call{Func: p.expr(n.ChildByFieldName("function"))}
	for _, arg := range namedChildren(n.ChildByFieldName("arguments")) {
		c.Args = append(c.Args, p.expr(arg))
	}
	return c
}

// operator returns the text of the operator field, which the grammar stores
// as an anonymous node named after the token.
func operator(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return op.Type()
	}
	return ""
}
