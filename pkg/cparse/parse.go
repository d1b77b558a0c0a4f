// Package cparse converts C source into the ctree syntax contract using the
// tree-sitter C grammar. Comments and simple preprocessor directives are
// skipped; any construct outside the contract is kept as a Bad* node so that
// only the unit containing it fails to lower.
package cparse

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"

	"github.com/l3aro/go-cflow/internal/log"
	"github.com/l3aro/go-cflow/pkg/ctree"
)

// Option configures parsing.
type Option func(*parser)

// WithLogger sets the logger used to report skipped directives and syntax
// errors. The default logger is used otherwise.
func WithLogger(l log.Logger) Option {
	return func(p *parser) {
		p.logger = l
	}
}

type parser struct {
	content []byte
	logger  log.Logger
}

// ParseFile reads and parses a C source file.
func ParseFile(ctx context.Context, filePath string, opts ...Option) (*ctree.TranslationUnit, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", filePath, err)
	}
	return Parse(ctx, content, opts...)
}

// Parse parses C source into a translation unit.
func Parse(ctx context.Context, content []byte, opts ...Option) (*ctree.TranslationUnit, error) {
	p := &parser{content: content}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.Default()
	}

	ts := sitter.NewParser()
	ts.SetLanguage(c.GetLanguage())
	tree, err := ts.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing C source: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		p.logger.Warn("source contains syntax errors", "line", firstErrorLine(root))
	}
	return p.translationUnit(root), nil
}

func (p *parser) translationUnit(root *sitter.Node) *ctree.TranslationUnit {
	tu := &ctree.TranslationUnit{}
	for _, child := range namedChildren(root) {
		tu.Decls = append(tu.Decls, p.topLevel(child)...)
	}
	return tu
}

func (p *parser) topLevel(n *sitter.Node) []ctree.Decl {
	switch n.Type() {
	case "preproc_include", "preproc_def", "preproc_function_def", "preproc_call":
		p.logger.Debug("skipping preprocessor directive", "line", line(n), "directive", strings.TrimSpace(p.text(n)))
		return nil

	case "function_definition":
		return []ctree.Decl{p.funcDef(n)}

	case "declaration":
		var out []ctree.Decl
		for _, d := range p.declaration(n) {
			out = append(out, &ctree.VarDecl{Decl: d})
		}
		return out

	case "type_definition":
		base := p.baseType(n)
		var out []ctree.Decl
		for _, d := range fieldChildren(n, "declarator") {
			name, t, _ := p.declarator(d, base)
			out = append(out, &ctree.Typedef{Name: name, Type: t, Line: line(n)})
		}
		return out

	case "struct_specifier", "union_specifier", "enum_specifier":
		return []ctree.Decl{&ctree.VarDecl{Decl: &ctree.Declaration{Type: p.typeSpec(n), Line: line(n)}}}

	default:
		return []ctree.Decl{&ctree.BadDecl{Kind: n.Type(), Line: line(n)}}
	}
}

func (p *parser) funcDef(n *sitter.Node) ctree.Decl {
	name, t, _ := p.declarator(n.ChildByFieldName("declarator"), p.baseType(n))
	ft, ok := t.(*ctree.FuncType)
	if !ok {
		return &ctree.BadDecl{Kind: "function_definition without function declarator", Line: line(n)}
	}
	return &ctree.FuncDef{
		Name:    name,
		Storage: p.storage(n),
		Type:    ft,
		Body:    p.block(n.ChildByFieldName("body")),
		Line:    line(n),
	}
}

// declaration converts every declarator of a declaration node. A declaration
// without declarators, such as `struct s { int x; };`, yields one anonymous
// declaration.
func (p *parser) declaration(n *sitter.Node) []*ctree.Declaration {
	base := p.baseType(n)
	storage := p.storage(n)

	var out []*ctree.Declaration
	for _, d := range fieldChildren(n, "declarator") {
		name, t, init := p.declarator(d, base)
		out = append(out, &ctree.Declaration{Name: name, Storage: storage, Type: t, Init: init, Line: line(d)})
	}
	if len(out) == 0 {
		out = append(out, &ctree.Declaration{Storage: storage, Type: base, Line: line(n)})
	}
	return out
}

// declarator applies a declarator to its base type, from the outside in, and
// returns the declared name, the resulting type and the initializer.
func (p *parser) declarator(n *sitter.Node, base ctree.Type) (string, ctree.Type, ctree.Expr) {
	if n == nil {
		return "", base, nil
	}
	switch n.Type() {
	case "identifier", "field_identifier", "type_identifier", "primitive_type":
		return p.text(n), base, nil

	case "init_declarator":
		name, t, _ := p.declarator(n.ChildByFieldName("declarator"), base)
		return name, t, p.expr(n.ChildByFieldName("value"))

	case "pointer_declarator", "abstract_pointer_declarator":
		return p.declarator(n.ChildByFieldName("declarator"), &ctree.Pointer{Elem: base})

	case "array_declarator", "abstract_array_declarator":
		var dim ctree.Expr
		if size := n.ChildByFieldName("size"); size != nil {
			dim = p.expr(size)
		}
		return p.declarator(n.ChildByFieldName("declarator"), &ctree.Array{Elem: base, Dim: dim})

	case "function_declarator", "abstract_function_declarator":
		ft := p.funcType(n.ChildByFieldName("parameters"), base)
		return p.declarator(n.ChildByFieldName("declarator"), ft)

	case "parenthesized_declarator", "abstract_parenthesized_declarator":
		return p.declarator(firstNamed(n), base)

	default:
		return "", &ctree.BadType{Kind: n.Type(), Line: line(n)}, nil
	}
}

func (p *parser) funcType(params *sitter.Node, result ctree.Type) *ctree.FuncType {
	ft := &ctree.FuncType{Result: result}
	if params == nil {
		return ft
	}
	for _, child := range namedChildren(params) {
		switch child.Type() {
		case "parameter_declaration":
			name, t, _ := p.declarator(child.ChildByFieldName("declarator"), p.baseType(child))
			ft.Params = append(ft.Params, &ctree.Declaration{
				Name:    name,
				Storage: p.storage(child),
				Type:    t,
				Line:    line(child),
			})
		case "variadic_parameter":
			ft.Variadic = true
		default:
			ft.Params = append(ft.Params, &ctree.Declaration{
				Type: &ctree.BadType{Kind: child.Type(), Line: line(child)},
				Line: line(child),
			})
		}
	}
	return ft
}

// baseType reads the type specifier and qualifiers of a declaration-like
// node.
func (p *parser) baseType(n *sitter.Node) ctree.Type {
	t := p.typeSpec(n.ChildByFieldName("type"))
	var quals []string
	for _, child := range namedChildren(n) {
		if child.Type() == "type_qualifier" {
			quals = append(quals, p.text(child))
		}
	}
	if len(quals) > 0 {
		return &ctree.Qualified{Quals: quals, Elem: t}
	}
	return t
}

func (p *parser) typeSpec(n *sitter.Node) ctree.Type {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "primitive_type", "type_identifier":
		return &ctree.TypeName{Names: []string{p.text(n)}}

	case "sized_type_specifier":
		return &ctree.TypeName{Names: strings.Fields(p.text(n))}

	case "struct_specifier", "union_specifier":
		rec := &ctree.Record{Keyword: strings.TrimSuffix(n.Type(), "_specifier")}
		if name := n.ChildByFieldName("name"); name != nil {
			rec.Name = p.text(name)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			rec.HasBody = true
			for _, field := range namedChildren(body) {
				if field.Type() != "field_declaration" {
					rec.Fields = append(rec.Fields, &ctree.Declaration{
						Type: &ctree.BadType{Kind: field.Type(), Line: line(field)},
						Line: line(field),
					})
					continue
				}
				rec.Fields = append(rec.Fields, p.fieldDeclaration(field)...)
			}
		}
		return rec

	case "enum_specifier":
		enum := &ctree.Enum{}
		if name := n.ChildByFieldName("name"); name != nil {
			enum.Name = p.text(name)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			enum.HasBody = true
			for _, e := range namedChildren(body) {
				if e.Type() != "enumerator" {
					continue
				}
				enum.Members = append(enum.Members, &ctree.Enumerator{
					Name:  p.text(e.ChildByFieldName("name")),
					Value: p.expr(e.ChildByFieldName("value")),
				})
			}
		}
		return enum

	default:
		return &ctree.BadType{Kind: n.Type(), Line: line(n)}
	}
}

func (p *parser) fieldDeclaration(n *sitter.Node) []*ctree.Declaration {
	base := p.baseType(n)
	var out []*ctree.Declaration
	for _, d := range fieldChildren(n, "declarator") {
		name, t, _ := p.declarator(d, base)
		out = append(out, &ctree.Declaration{Name: name, Type: t, Line: line(d)})
	}
	if len(out) == 0 {
		out = append(out, &ctree.Declaration{Type: base, Line: line(n)})
	}
	return out
}

// typeDescriptor converts the type of a cast or sizeof.
func (p *parser) typeDescriptor(n *sitter.Node) ctree.Type {
	if n == nil {
		return nil
	}
	_, t, _ := p.declarator(n.ChildByFieldName("declarator"), p.baseType(n))
	return t
}

func (p *parser) storage(n *sitter.Node) []string {
	var out []string
	for _, child := range namedChildren(n) {
		if child.Type() == "storage_class_specifier" {
			out = append(out, p.text(child))
		}
	}
	return out
}

func (p *parser) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	start := n.StartByte()
	end := n.EndByte()
	if start >= uint32(len(p.content)) || end > uint32(len(p.content)) {
		return ""
	}
	return string(p.content[start:end])
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// namedChildren returns the named children of n, without comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// fieldChildren returns every child of n stored under the given field name.
func fieldChildren(n *sitter.Node, field string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) != field {
			continue
		}
		if child := n.Child(i); child != nil {
			out = append(out, child)
		}
	}
	return out
}

func firstNamed(n *sitter.Node) *sitter.Node {
	children := namedChildren(n)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

func firstErrorLine(n *sitter.Node) int {
	if n.IsError() || n.IsMissing() {
		return line(n)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && child.HasError() {
			return firstErrorLine(child)
		}
	}
	return line(n)
}
