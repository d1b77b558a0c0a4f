package cparse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/go-cflow/pkg/ctree"
)

// block returns the statements of a compound statement.
func (p *parser) block(n *sitter.Node) []ctree.Stmt {
	var out []ctree.Stmt
	for _, child := range namedChildren(n) {
		out = append(out, p.stmt(child)...)
	}
	return out
}

// stmt converts one statement node. Declarations with several declarators and
// comma expressions yield several statements.
func (p *parser) stmt(n *sitter.Node) []ctree.Stmt {
	ln := line(n)
	switch n.Type() {
	case "compound_statement":
		return []ctree.Stmt{&ctree.Compound{Items: p.block(n), Line: ln}}

	case "declaration":
		var out []ctree.Stmt
		for _, d := range p.declaration(n) {
			out = append(out, &ctree.DeclStmt{Decl: d})
		}
		return out

	case "struct_specifier", "union_specifier", "enum_specifier":
		return []ctree.Stmt{&ctree.DeclStmt{Decl: &ctree.Declaration{Type: p.typeSpec(n), Line: ln}}}

	case "expression_statement":
		x := firstNamed(n)
		if x == nil {
			return []ctree.Stmt{&ctree.EmptyStmt{Line: ln}}
		}
		return p.exprStmts(x, ln)

	case "if_statement":
		return []ctree.Stmt{&ctree.If{
			Cond: p.expr(n.ChildByFieldName("condition")),
			Then: p.single(n.ChildByFieldName("consequence")),
			Else: p.elseBranch(n.ChildByFieldName("alternative")),
			Line: ln,
		}}

	case "switch_statement":
		return []ctree.Stmt{&ctree.Switch{
			Tag:  p.expr(n.ChildByFieldName("condition")),
			Body: p.block(n.ChildByFieldName("body")),
			Line: ln,
		}}

	case "case_statement":
		return []ctree.Stmt{p.caseArm(n)}

	case "while_statement":
		return []ctree.Stmt{&ctree.While{
			Cond: p.expr(n.ChildByFieldName("condition")),
			Body: p.single(n.ChildByFieldName("body")),
			Line: ln,
		}}

	case "do_statement":
		return []ctree.Stmt{&ctree.DoWhile{
			Body: p.single(n.ChildByFieldName("body")),
			Cond: p.expr(n.ChildByFieldName("condition")),
			Line: ln,
		}}

	case "for_statement":
		return []ctree.Stmt{p.forStmt(n)}

	case "return_statement":
		return []ctree.Stmt{&ctree.Return{Result: p.expr(firstNamed(n)), Line: ln}}

	case "break_statement":
		return []ctree.Stmt{&ctree.Break{Line: ln}}

	case "continue_statement":
		return []ctree.Stmt{&ctree.Continue{Line: ln}}

	default:
		return []ctree.Stmt{&ctree.BadStmt{Kind: n.Type(), Line: ln}}
	}
}

// single converts a statement that must stand alone, such as a branch or a
// loop body.
func (p *parser) single(n *sitter.Node) ctree.Stmt {
	if n == nil {
		return nil
	}
	items := p.stmt(n)
	if len(items) == 1 {
		return items[0]
	}
	return &ctree.Compound{Items: items, Line: line(n)}
}

// elseBranch accepts both an else_clause wrapper and a bare statement.
func (p *parser) elseBranch(n *sitter.Node) ctree.Stmt {
	if n == nil {
		return nil
	}
	if n.Type() == "else_clause" {
		return p.single(firstNamed(n))
	}
	return p.single(n)
}

// caseArm converts a case or default label together with the statements that
// follow it up to the next label.
func (p *parser) caseArm(n *sitter.Node) ctree.Stmt {
	var body []ctree.Stmt
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !child.IsNamed() || child.Type() == "comment" {
			continue
		}
		if n.FieldNameForChild(i) == "value" {
			continue
		}
		body = append(body, p.stmt(child)...)
	}

	value := n.ChildByFieldName("value")
	if value == nil {
		return &ctree.Default{Body: body, Line: line(n)}
	}
	return &ctree.Case{Value: p.expr(value), Body: body, Line: line(n)}
}

func (p *parser) forStmt(n *sitter.Node) ctree.Stmt {
	ln := line(n)
	s := &ctree.For{Line: ln}

	init := n.ChildByFieldName("initializer")
	if init == nil {
		for _, child := range namedChildren(n) {
			if child.Type() == "declaration" {
				init = child
				break
			}
		}
	}
	if init != nil {
		if init.Type() == "declaration" {
			for _, d := range p.declaration(init) {
				s.Init = append(s.Init, &ctree.DeclStmt{Decl: d})
			}
		} else {
			s.Init = p.exprStmts(init, ln)
		}
	}
	s.Cond = p.expr(n.ChildByFieldName("condition"))
	if update := n.ChildByFieldName("update"); update != nil {
		s.Step = p.exprStmts(update, ln)
	}
	s.Body = p.single(n.ChildByFieldName("body"))
	return s
}

// exprStmts converts an expression used as a statement. Comma expressions
// split into one statement per operand.
func (p *parser) exprStmts(n *sitter.Node, ln int) []ctree.Stmt {
	switch n.Type() {
	case "comma_expression":
		out := p.exprStmts(n.ChildByFieldName("left"), ln)
		return append(out, p.exprStmts(n.ChildByFieldName("right"), ln)...)
	case "parenthesized_expression":
		if inner := firstNamed(n); inner != nil {
			return p.exprStmts(inner, ln)
		}
	case "assignment_expression":
		return []ctree.Stmt{p.assign(n, ln)}
	case "call_expression":
		return []ctree.Stmt{&ctree.CallStmt{Call: p.call(n), Line: ln}}
	}
	return []ctree.Stmt{&ctree.ExprStmt{X: p.expr(n), Line: ln}}
}

// assign converts an assignment; a right side that is itself an assignment
// becomes the chained inner assignment.
func (p *parser) assign(n *sitter.Node, ln int) *ctree.AssignStmt {
	a := &ctree.AssignStmt{Left: p.expr(n.ChildByFieldName("left")), Op: "=", Line: ln}
	if op := n.ChildByFieldName("operator"); op != nil {
		a.Op = op.Type()
	}
	right := unparen(n.ChildByFieldName("right"))
	if right != nil && right.Type() == "assignment_expression" {
		a.Chain = p.assign(right, ln)
		return a
	}
	a.Right = p.expr(right)
	return a
}

func unparen(n *sitter.Node) *sitter.Node {
	for n != nil && n.Type() == "parenthesized_expression" {
		inner := firstNamed(n)
		if inner == nil {
			return n
		}
		n = inner
	}
	return n
}
