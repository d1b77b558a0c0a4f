package cfg

import (
	"fmt"
	"strings"

	"github.com/l3aro/go-cflow/pkg/ctree"
)

// RenderType renders a declared type as C text. name is the declarator name
// and may be empty for abstract types such as cast targets. Struct members are
// rendered one level deep; their definitions and uses are not tracked.
func RenderType(t ctree.Type, name string) (string, error) {
	switch x := t.(type) {
	case nil:
		return "", malformed("type", 0, "missing type")

	case *ctree.TypeName:
		return withName(strings.Join(x.Names, " "), name), nil

	case *ctree.Qualified:
		inner, err := RenderType(x.Elem, name)
		if err != nil {
			return "", err
		}
		if len(x.Quals) == 0 {
			return inner, nil
		}
		return strings.Join(x.Quals, " ") + " " + inner, nil

	case *ctree.Pointer:
		// The star binds to the declarator; pointers to functions and arrays
		// need parentheses to keep it there.
		decl := "*" + name
		switch x.Elem.(type) {
		case *ctree.FuncType, *ctree.Array:
			decl = "(" + decl + ")"
		}
		return RenderType(x.Elem, decl)

	case *ctree.Array:
		inner, err := RenderType(x.Elem, name)
		if err != nil {
			return "", err
		}
		dim, _, err := LowerExpr(x.Dim)
		if err != nil {
			return "", err
		}
		return inner + "[" + dim + "]", nil

	case *ctree.Record:
		s := x.Keyword
		if x.Name != "" {
			s += " " + x.Name
		}
		if x.HasBody {
			fields := make([]string, 0, len(x.Fields))
			for _, f := range x.Fields {
				text, _, _, err := lowerDecl(f)
				if err != nil {
					return "", err
				}
				fields = append(fields, text)
			}
			s += "{" + strings.Join(fields, "; ") + "}"
		}
		return withName(s, name), nil

	case *ctree.Enum:
		s := "enum"
		if x.Name != "" {
			s += " " + x.Name
		}
		if x.HasBody {
			members := make([]string, 0, len(x.Members))
			for _, m := range x.Members {
				if m.Value == nil {
					members = append(members, m.Name)
					continue
				}
				v, _, err := LowerExpr(m.Value)
				if err != nil {
					return "", err
				}
				members = append(members, m.Name+" = "+v)
			}
			s += "{" + strings.Join(members, ", ") + "}"
		}
		return withName(s, name), nil

	case *ctree.FuncType:
		result, err := RenderType(x.Result, name)
		if err != nil {
			return "", err
		}
		params, _, _, err := lowerParams(x)
		if err != nil {
			return "", err
		}
		return result + params, nil

	case *ctree.BadType:
		return "", unsupported("type", x.Line, x.Kind)

	default:
		return "", unsupported("type", 0, fmt.Sprintf("%T", t))
	}
}

// lowerParams renders a parameter list as `(int a, char *b)` and returns the
// parameter names as definitions.
func lowerParams(ft *ctree.FuncType) (string, []string, []string, error) {
	parts := make([]string, 0, len(ft.Params)+1)
	var defs, uses []string
	for _, p := range ft.Params {
		text, d, u, err := lowerDecl(p)
		if err != nil {
			return "", nil, nil, err
		}
		parts = append(parts, text)
		defs = append(defs, d...)
		uses = append(uses, u...)
	}
	if ft.Variadic {
		parts = append(parts, "...")
	}
	return "(" + strings.Join(parts, ", ") + ")", defs, uses, nil
}

func withName(s, name string) string {
	if name == "" {
		return s
	}
	return s + " " + name
}
