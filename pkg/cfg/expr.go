package cfg

import (
	"fmt"
	"strings"

	"github.com/l3aro/go-cflow/pkg/ctree"
)

const (
	precTernary = 3
	precUnary   = 14
	precPostfix = 15
	precPrimary = 16
)

var binaryPrec = map[string]int{
	"*": 13, "/": 13, "%": 13,
	"+": 12, "-": 12,
	"<<": 11, ">>": 11,
	"<": 10, "<=": 10, ">": 10, ">=": 10,
	"==": 9, "!=": 9,
	"&":  8,
	"^":  7,
	"|":  6,
	"&&": 5,
	"||": 4,
}

// LowerExpr renders an expression as canonical text and collects the names of
// the variables it reads, in order of appearance. A nil expression yields
// empty text and no uses. Callee names of calls are not collected.
func LowerExpr(e ctree.Expr) (string, []string, error) {
	switch x := e.(type) {
	case nil:
		return "", nil, nil

	case *ctree.Ident:
		return x.Name, []string{x.Name}, nil

	case *ctree.Constant:
		return x.Value, nil, nil

	case *ctree.Unary:
		if x.Postfix {
			inner, uses, err := lowerOperand(x.X, precPostfix)
			if err != nil {
				return "", nil, err
			}
			return inner + x.Op, uses, nil
		}
		inner, uses, err := lowerOperand(x.X, precUnary)
		if err != nil {
			return "", nil, err
		}
		if x.Op == "sizeof" {
			return "sizeof " + inner, uses, nil
		}
		// -(-x) must not read as --x.
		if joinsToken(x.Op, inner) {
			return x.Op + " " + inner, uses, nil
		}
		return x.Op + inner, uses, nil

	case *ctree.Binary:
		p, ok := binaryPrec[x.Op]
		if !ok {
			return "", nil, unsupported("binary operator", 0, fmt.Sprintf("unknown operator %q", x.Op))
		}
		left, lu, err := lowerOperand(x.Left, p)
		if err != nil {
			return "", nil, err
		}
		right, ru, err := lowerOperand(x.Right, p+1)
		if err != nil {
			return "", nil, err
		}
		return left + " " + x.Op + " " + right, append(lu, ru...), nil

	case *ctree.Ternary:
		cond, cu, err := lowerOperand(x.Cond, precTernary+1)
		if err != nil {
			return "", nil, err
		}
		t, tu, err := LowerExpr(x.True)
		if err != nil {
			return "", nil, err
		}
		f, fu, err := lowerOperand(x.False, precTernary)
		if err != nil {
			return "", nil, err
		}
		uses := append(append(cu, tu...), fu...)
		return fmt.Sprintf("%s ? %s : %s", cond, t, f), uses, nil

	case *ctree.ArrayRef:
		name, nu, err := lowerOperand(x.Name, precPostfix)
		if err != nil {
			return "", nil, err
		}
		sub, su, err := LowerExpr(x.Index)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s[%s]", name, sub), append(nu, su...), nil

	case *ctree.Cast:
		to, err := RenderType(x.To, "")
		if err != nil {
			return "", nil, err
		}
		inner, uses, err := lowerOperand(x.X, precUnary)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(%s)%s", to, inner), uses, nil

	case *ctree.InitList:
		parts := make([]string, 0, len(x.Elems))
		var uses []string
		for _, el := range x.Elems {
			s, u, err := LowerExpr(el)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, s)
			uses = append(uses, u...)
		}
		return "{" + strings.Join(parts, ", ") + "}", uses, nil

	case *ctree.Call:
		fn, _, err := lowerOperand(x.Func, precPostfix)
		if err != nil {
			return "", nil, err
		}
		args, uses, err := lowerList(x.Args)
		if err != nil {
			return "", nil, err
		}
		return fn + "(" + args + ")", uses, nil

	case *ctree.Member:
		base, uses, err := lowerOperand(x.X, precPostfix)
		if err != nil {
			return "", nil, err
		}
		op := "."
		if x.Arrow {
			op = "->"
		}
		return base + op + x.Field, uses, nil

	case *ctree.BadExpr:
		return "", nil, unsupported("expression", x.Line, x.Kind)

	default:
		return "", nil, unsupported("expression", 0, fmt.Sprintf("%T", e))
	}
}

// lowerOperand lowers e and parenthesizes it when it binds looser than min.
func lowerOperand(e ctree.Expr, min int) (string, []string, error) {
	s, uses, err := LowerExpr(e)
	if err != nil {
		return "", nil, err
	}
	if precedence(e) < min {
		s = "(" + s + ")"
	}
	return s, uses, nil
}

func lowerList(exprs []ctree.Expr) (string, []string, error) {
	parts := make([]string, 0, len(exprs))
	var uses []string
	for _, e := range exprs {
		s, u, err := LowerExpr(e)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, s)
		uses = append(uses, u...)
	}
	return strings.Join(parts, ", "), uses, nil
}

func precedence(e ctree.Expr) int {
	switch x := e.(type) {
	case *ctree.Binary:
		if p, ok := binaryPrec[x.Op]; ok {
			return p
		}
		return 0
	case *ctree.Ternary:
		return precTernary
	case *ctree.Unary:
		if x.Postfix {
			return precPostfix
		}
		return precUnary
	case *ctree.Cast:
		return precUnary
	case *ctree.ArrayRef, *ctree.Call, *ctree.Member:
		return precPostfix
	default:
		return precPrimary
	}
}

// joinsToken reports whether writing op directly before operand would fuse
// them into a different token, as in - -x or & &x.
func joinsToken(op, operand string) bool {
	if op == "" || operand == "" {
		return false
	}
	last := op[len(op)-1]
	return strings.IndexByte("+-&", last) >= 0 && operand[0] == last
}
