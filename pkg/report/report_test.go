package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-cflow/pkg/cfg"
	"github.com/l3aro/go-cflow/pkg/ctree"
)

func intType() *ctree.TypeName { return &ctree.TypeName{Names: []string{"int"}} }

// int f(int a) { int b = a + 1; return b; }
func straightLine() *ctree.FuncDef {
	return &ctree.FuncDef{
		Name: "f",
		Type: &ctree.FuncType{
			Result: intType(),
			Params: []*ctree.Declaration{{Name: "a", Type: intType()}},
		},
		Body: []ctree.Stmt{
			&ctree.DeclStmt{Decl: &ctree.Declaration{
				Name: "b",
				Type: intType(),
				Init: &ctree.Binary{Op: "+", Left: &ctree.Ident{Name: "a"}, Right: &ctree.Constant{Value: "1"}},
				Line: 2,
			}},
			&ctree.Return{Result: &ctree.Ident{Name: "b"}, Line: 3},
		},
		Line: 1,
	}
}

// int g(int x) { if (x > 0) x = 1; else x = 2; return x; }
func ifElse() *ctree.FuncDef {
	set := func(v string, line int) *ctree.AssignStmt {
		return &ctree.AssignStmt{Left: &ctree.Ident{Name: "x"}, Op: "=", Right: &ctree.Constant{Value: v}, Line: line}
	}
	return &ctree.FuncDef{
		Name: "g",
		Type: &ctree.FuncType{
			Result: intType(),
			Params: []*ctree.Declaration{{Name: "x", Type: intType()}},
		},
		Body: []ctree.Stmt{
			&ctree.If{
				Cond: &ctree.Binary{Op: ">", Left: &ctree.Ident{Name: "x"}, Right: &ctree.Constant{Value: "0"}},
				Then: set("1", 2),
				Else: set("2", 3),
				Line: 2,
			},
			&ctree.Return{Result: &ctree.Ident{Name: "x"}, Line: 4},
		},
		Line: 1,
	}
}

func forest(decls ...ctree.Decl) *cfg.Forest {
	return cfg.Build(&ctree.TranslationUnit{Decls: decls})
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, forest(straightLine()), Options{ShowCode: true}))

	want := strings.Join([]string{
		"=== function f (line 1) ===",
		"[0] entry -> 3",
		"    int f(int a)",
		"    d: a",
		"    u: None",
		"[1] exit",
		"    exit",
		"    d: None",
		"    u: None",
		"[2] return -> 1",
		"    return b",
		"    d: None",
		"    u: b",
		"[3] plain -> 2",
		"    int b = a + 1",
		"    d: b",
		"    u: a",
		"complexity: 1",
		"du-paths:",
		"a:\t\t0|d -> 3|u",
		"b:\t\t3|d -> 2|u",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWriteTextWithoutCode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, forest(straightLine()), Options{Var: "b"}))

	out := buf.String()
	assert.NotContains(t, out, "int b = a + 1")
	assert.Contains(t, out, "[3] plain -> 2\n    d: b\n    u: a\n")
	assert.Contains(t, out, "b:\t\t3|d -> 2|u")
	assert.NotContains(t, out, "a:\t\t")
}

func TestWriteTextFailedUnit(t *testing.T) {
	var buf bytes.Buffer
	f := forest(&ctree.BadDecl{Kind: "asm", Line: 5}, straightLine())
	require.NoError(t, WriteText(&buf, f, Options{}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "=== invalid (line 5) ===\nerror: unsupported construct"), out)
	assert.Contains(t, out, "\n\n=== function f (line 1) ===\n")
}

func TestWritePaths(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePaths(&buf, forest(straightLine()), ""))

	assert.Equal(t, "=== function f (line 1) ===\na:\t\t0|d -> 3|u\nb:\t\t3|d -> 2|u\n", buf.String())
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument("f.c", forest(straightLine(), &ctree.BadDecl{Kind: "asm", Line: 9}))

	assert.Equal(t, "f.c", doc.File)
	assert.Equal(t, 1, doc.Failed)
	require.Len(t, doc.Units, 2)
	assert.Equal(t, 1, doc.Units[0].Complexity)
	assert.Len(t, doc.Units[0].Edges, 3)
	assert.Empty(t, doc.Units[1].Edges)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, NewDocument("f.c", forest(straightLine()))))

	var decoded struct {
		File  string `json:"file"`
		Units []struct {
			Unit struct {
				Name   string `json:"name"`
				Blocks []struct {
					ID   int    `json:"id"`
					Type string `json:"type"`
				} `json:"blocks"`
				Paths map[string]json.RawMessage `json:"paths"`
			} `json:"unit"`
			Edges []struct {
				From int    `json:"from"`
				To   int    `json:"to"`
				Type string `json:"type"`
			} `json:"edges"`
		} `json:"units"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "f.c", decoded.File)
	require.Len(t, decoded.Units, 1)
	u := decoded.Units[0]
	assert.Equal(t, "f", u.Unit.Name)
	assert.Len(t, u.Unit.Blocks, 4)
	assert.Equal(t, "entry", u.Unit.Blocks[0].Type)
	assert.Contains(t, u.Unit.Paths, "a")
	assert.Contains(t, u.Edges, struct {
		From int    `json:"from"`
		To   int    `json:"to"`
		Type string `json:"type"`
	}{From: 2, To: 1, Type: "return"})
}

func TestMsgpackRoundTrip(t *testing.T) {
	doc := NewDocument("f.c", forest(straightLine(), &ctree.BadDecl{Kind: "asm", Line: 9}))

	var buf bytes.Buffer
	require.NoError(t, WriteMsgpack(&buf, doc))

	got, err := ReadMsgpack(&buf)
	require.NoError(t, err)
	assert.Equal(t, doc.File, got.File)
	assert.Equal(t, doc.Failed, got.Failed)
	require.Len(t, got.Units, 2)

	fn := got.Units[0].Unit
	assert.Equal(t, "f", fn.Name)
	assert.True(t, fn.OK())
	assert.Equal(t, "3|d -> 2|u", fn.Paths["b"].String())
	assert.Equal(t, doc.Units[0].Edges, got.Units[0].Edges)

	bad := got.Units[1].Unit
	assert.False(t, bad.OK())
	assert.Equal(t, doc.Units[1].Unit.Error, bad.Error)
}

func TestReadMsgpackInvalid(t *testing.T) {
	_, err := ReadMsgpack(strings.NewReader("\xc1"))
	assert.Error(t, err)
}
