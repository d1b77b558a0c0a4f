package cfg

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-cflow/pkg/ctree"
)

func id(name string) *ctree.Ident   { return &ctree.Ident{Name: name} }
func num(v string) *ctree.Constant { return &ctree.Constant{Value: v} }

func bin(op string, l, r ctree.Expr) *ctree.Binary {
	return &ctree.Binary{Op: op, Left: l, Right: r}
}

func intType() *ctree.TypeName { return &ctree.TypeName{Names: []string{"int"}} }

func param(name string) *ctree.Declaration {
	return &ctree.Declaration{Name: name, Type: intType()}
}

func declStmt(name string, init ctree.Expr, line int) *ctree.DeclStmt {
	return &ctree.DeclStmt{Decl: &ctree.Declaration{Name: name, Type: intType(), Init: init, Line: line}}
}

func assign(name string, right ctree.Expr, line int) *ctree.AssignStmt {
	return &ctree.AssignStmt{Left: id(name), Op: "=", Right: right, Line: line}
}

func ret(x ctree.Expr, line int) *ctree.Return {
	return &ctree.Return{Result: x, Line: line}
}

func block(items ...ctree.Stmt) *ctree.Compound {
	return &ctree.Compound{Items: items}
}

func fn(name string, params []*ctree.Declaration, body ...ctree.Stmt) *ctree.FuncDef {
	return &ctree.FuncDef{
		Name: name,
		Type: &ctree.FuncType{Result: intType(), Params: params},
		Body: body,
		Line: 1,
	}
}

func buildOne(t *testing.T, d ctree.Decl) *Unit {
	t.Helper()
	forest := Build(&ctree.TranslationUnit{Decls: []ctree.Decl{d}})
	require.Len(t, forest.Units, 1)
	return forest.Units[0]
}

// edgeSet renders edges as "from->to:type" for compact assertions.
func edgeSet(u *Unit) []string {
	var out []string
	for _, e := range u.Edges() {
		out = append(out, fmt.Sprintf("%d->%d:%s", e.From, e.To, e.Type))
	}
	return out
}

func pathStrings(u *Unit) map[string]string {
	out := make(map[string]string)
	for _, v := range u.Paths.Vars() {
		out[v] = u.Paths[v].String()
	}
	return out
}
