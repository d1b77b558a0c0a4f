package cfg

import (
	"fmt"
	"strings"

	"github.com/l3aro/go-cflow/pkg/ctree"
)

// LowerRun lowers a run of straight-line statements into the content of one
// basic block: one code line per statement in source order, plus the names the
// run defines and uses. Empty statements contribute no code line. Names are
// returned as collected; callers deduplicate when folding them into a block.
func LowerRun(stmts []ctree.Stmt) (code, defs, uses []string, err error) {
	for _, s := range stmts {
		text, d, u, err := lowerStmt(s)
		if err != nil {
			return nil, nil, nil, atLine(err, s.Pos())
		}
		if text != "" {
			code = append(code, text)
		}
		defs = append(defs, d...)
		uses = append(uses, u...)
	}
	return code, defs, uses, nil
}

func isStraightLine(s ctree.Stmt) bool {
	switch s.(type) {
	case *ctree.DeclStmt, *ctree.AssignStmt, *ctree.CallStmt, *ctree.ExprStmt, *ctree.EmptyStmt:
		return true
	}
	return false
}

func lowerStmt(s ctree.Stmt) (string, []string, []string, error) {
	switch x := s.(type) {
	case *ctree.DeclStmt:
		if x.Decl == nil {
			return "", nil, nil, malformed("declaration", 0, "missing declarator")
		}
		return lowerDecl(x.Decl)

	case *ctree.AssignStmt:
		return lowerAssign(x)

	case *ctree.CallStmt:
		if x.Call == nil {
			return "", nil, nil, malformed("call", x.Line, "missing call expression")
		}
		text, uses, err := LowerExpr(x.Call)
		return text, nil, uses, err

	case *ctree.ExprStmt:
		if x.X == nil {
			return "", nil, nil, malformed("expression statement", x.Line, "missing expression")
		}
		text, uses, err := LowerExpr(x.X)
		return text, nil, uses, err

	case *ctree.EmptyStmt:
		return "", nil, nil, nil

	default:
		return "", nil, nil, unsupported("statement", s.Pos(), fmt.Sprintf("%T in straight-line code", s))
	}
}

// lowerDecl renders `storage type name = init`. The declared name is the only
// definition; the initializer supplies the uses.
func lowerDecl(d *ctree.Declaration) (string, []string, []string, error) {
	typ, err := RenderType(d.Type, d.Name)
	if err != nil {
		return "", nil, nil, atLine(err, d.Line)
	}
	text := typ
	if len(d.Storage) > 0 {
		text = strings.Join(d.Storage, " ") + " " + typ
	}
	var defs, uses []string
	if d.Name != "" {
		defs = []string{d.Name}
	}
	if d.Init != nil {
		init, u, err := LowerExpr(d.Init)
		if err != nil {
			return "", nil, nil, atLine(err, d.Line)
		}
		text += " = " + init
		uses = u
	}
	return text, defs, uses, nil
}

// lowerAssign treats the first name collected from the left side as the
// defined variable and any further names (indices, pointer bases) as uses.
// For an indexed or dereferenced target this is an approximation: the base
// name is reported as defined. Compound operators also read the target.
func lowerAssign(a *ctree.AssignStmt) (string, []string, []string, error) {
	if a.Left == nil {
		return "", nil, nil, malformed("assignment", a.Line, "missing left side")
	}
	left, names, err := LowerExpr(a.Left)
	if err != nil {
		return "", nil, nil, err
	}

	var (
		right     string
		rightDefs []string
		rightUses []string
	)
	switch {
	case a.Chain != nil:
		right, rightDefs, rightUses, err = lowerAssign(a.Chain)
	case a.Right != nil:
		right, rightUses, err = LowerExpr(a.Right)
	default:
		return "", nil, nil, malformed("assignment", a.Line, "missing right side")
	}
	if err != nil {
		return "", nil, nil, err
	}

	var defs, uses []string
	if len(names) > 0 {
		defs = []string{names[0]}
		uses = append(uses, names[1:]...)
		if a.Op != "=" {
			uses = append(uses, names[0])
		}
	}
	defs = append(defs, rightDefs...)
	uses = append(uses, rightUses...)
	return left + " " + a.Op + " " + right, defs, uses, nil
}
