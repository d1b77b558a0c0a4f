// Package ctree defines the closed set of C syntax-tree node kinds consumed by
// the CFG builder. Every level of the tree (top-level declaration, statement,
// expression, type) is a sealed interface, so consumers can switch over the
// concrete kinds exhaustively. Anything a front end cannot map onto these
// kinds is represented by a Bad* node and rejected by the builder.
package ctree

// TranslationUnit is one parsed C source file.
type TranslationUnit struct {
	Decls []Decl
}

// Decl is a top-level item of a translation unit.
type Decl interface {
	declNode()
	Pos() int
}

// Stmt is a statement inside a function body.
type Stmt interface {
	stmtNode()
	Pos() int
}

// Expr is an expression. A nil Expr is the absent expression.
type Expr interface {
	exprNode()
}

// Type is a declared type.
type Type interface {
	typeNode()
}

// Declaration is one declarator together with its storage class, type and
// optional initializer. Name is empty for anonymous declarations such as
// `struct point { int x; };` or an unnamed parameter.
type Declaration struct {
	Name    string
	Storage []string // static, extern, register, ...
	Type    Type
	Init    Expr
	Line    int
}

// ---------------------------------------------------------------------------
// Top-level declarations

// VarDecl is a global variable (or prototype) declaration.
type VarDecl struct {
	Decl *Declaration
}

// Typedef is one type-alias declarator.
type Typedef struct {
	Name string
	Type Type
	Line int
}

// FuncDef is a function definition. Type is the function's *FuncType.
type FuncDef struct {
	Name    string
	Storage []string
	Type    *FuncType
	Body    []Stmt
	Line    int
}

// BadDecl stands for a top-level item outside the supported kinds.
type BadDecl struct {
	Kind string
	Line int
}

func (*VarDecl) declNode() {}
func (*Typedef) declNode() {}
func (*FuncDef) declNode() {}
func (*BadDecl) declNode() {}

func (d *VarDecl) Pos() int {
	if d.Decl == nil {
		return 0
	}
	return d.Decl.Line
}
func (d *Typedef) Pos() int { return d.Line }
func (d *FuncDef) Pos() int { return d.Line }
func (d *BadDecl) Pos() int { return d.Line }

// ---------------------------------------------------------------------------
// Statements

type (
	// DeclStmt declares one local variable.
	DeclStmt struct {
		Decl *Declaration
	}

	// AssignStmt is `Left Op Right`. For a chained assignment such as
	// `a = b = c`, Chain holds the inner assignment and Right is nil.
	AssignStmt struct {
		Left  Expr
		Op    string
		Right Expr
		Chain *AssignStmt
		Line  int
	}

	// CallStmt is a call evaluated for its side effects.
	CallStmt struct {
		Call *Call
		Line int
	}

	// ExprStmt is a bare unary, binary or ternary expression statement.
	ExprStmt struct {
		X    Expr
		Line int
	}

	// EmptyStmt is `;`.
	EmptyStmt struct {
		Line int
	}

	// Compound is a `{ ... }` block.
	Compound struct {
		Items []Stmt
		Line  int
	}

	// If is a two-way branch. Else is nil when there is no else branch.
	If struct {
		Cond Expr
		Then Stmt
		Else Stmt
		Line int
	}

	// Switch is a multi-way branch. Body holds the Case/Default arms.
	Switch struct {
		Tag  Expr
		Body []Stmt
		Line int
	}

	// Case is one `case Value:` arm and the statements up to the next arm.
	Case struct {
		Value Expr
		Body  []Stmt
		Line  int
	}

	// Default is the `default:` arm.
	Default struct {
		Body []Stmt
		Line int
	}

	// While is a pre-test loop.
	While struct {
		Cond Expr
		Body Stmt
		Line int
	}

	// DoWhile is a post-test loop.
	DoWhile struct {
		Body Stmt
		Cond Expr
		Line int
	}

	// For is a pre-test loop with optional initializer and step statements.
	// Init holds DeclStmt or AssignStmt values, Step holds ExprStmt,
	// AssignStmt or CallStmt values.
	For struct {
		Init []Stmt
		Cond Expr
		Step []Stmt
		Body Stmt
		Line int
	}

	Break struct {
		Line int
	}

	Continue struct {
		Line int
	}

	// Return has a nil Result for a bare `return;`.
	Return struct {
		Result Expr
		Line   int
	}

	// BadStmt stands for a statement outside the supported kinds.
	BadStmt struct {
		Kind string
		Line int
	}
)

func (*DeclStmt) stmtNode()   {}
func (*AssignStmt) stmtNode() {}
func (*CallStmt) stmtNode()   {}
func (*ExprStmt) stmtNode()   {}
func (*EmptyStmt) stmtNode()  {}
func (*Compound) stmtNode()   {}
func (*If) stmtNode()         {}
func (*Switch) stmtNode()     {}
func (*Case) stmtNode()       {}
func (*Default) stmtNode()    {}
func (*While) stmtNode()      {}
func (*DoWhile) stmtNode()    {}
func (*For) stmtNode()        {}
func (*Break) stmtNode()      {}
func (*Continue) stmtNode()   {}
func (*Return) stmtNode()     {}
func (*BadStmt) stmtNode()    {}

func (s *DeclStmt) Pos() int {
	if s.Decl == nil {
		return 0
	}
	return s.Decl.Line
}
func (s *AssignStmt) Pos() int { return s.Line }
func (s *CallStmt) Pos() int   { return s.Line }
func (s *ExprStmt) Pos() int   { return s.Line }
func (s *EmptyStmt) Pos() int  { return s.Line }
func (s *Compound) Pos() int   { return s.Line }
func (s *If) Pos() int         { return s.Line }
func (s *Switch) Pos() int     { return s.Line }
func (s *Case) Pos() int       { return s.Line }
func (s *Default) Pos() int    { return s.Line }
func (s *While) Pos() int      { return s.Line }
func (s *DoWhile) Pos() int    { return s.Line }
func (s *For) Pos() int        { return s.Line }
func (s *Break) Pos() int      { return s.Line }
func (s *Continue) Pos() int   { return s.Line }
func (s *Return) Pos() int     { return s.Line }
func (s *BadStmt) Pos() int    { return s.Line }

// ---------------------------------------------------------------------------
// Expressions

type (
	// Unary is a prefix operator, or a postfix `++`/`--` when Postfix is set.
	// Dereference and address-of are unary `*` and `&`.
	Unary struct {
		Op      string
		X       Expr
		Postfix bool
	}

	Binary struct {
		Op    string
		Left  Expr
		Right Expr
	}

	Ternary struct {
		Cond  Expr
		True  Expr
		False Expr
	}

	// ArrayRef is `Name[Index]`.
	ArrayRef struct {
		Name  Expr
		Index Expr
	}

	// Constant is a literal kept as source text.
	Constant struct {
		Value string
	}

	// Cast is `(To)X`.
	Cast struct {
		To Type
		X  Expr
	}

	// InitList is `{e1, e2, ...}`.
	InitList struct {
		Elems []Expr
	}

	Ident struct {
		Name string
	}

	// Call is a function call used as a value.
	Call struct {
		Func Expr
		Args []Expr
	}

	// Member is `X.Field` or `X->Field`.
	Member struct {
		X     Expr
		Arrow bool
		Field string
	}

	// BadExpr stands for an expression outside the supported kinds.
	BadExpr struct {
		Kind string
		Line int
	}
)

func (*Unary) exprNode()    {}
func (*Binary) exprNode()   {}
func (*Ternary) exprNode()  {}
func (*ArrayRef) exprNode() {}
func (*Constant) exprNode() {}
func (*Cast) exprNode()     {}
func (*InitList) exprNode() {}
func (*Ident) exprNode()    {}
func (*Call) exprNode()     {}
func (*Member) exprNode()   {}
func (*BadExpr) exprNode()  {}

// ---------------------------------------------------------------------------
// Types

type (
	// TypeName is a base or typedef'd type, e.g. ["unsigned", "int"].
	TypeName struct {
		Names []string
	}

	Pointer struct {
		Elem Type
	}

	// Array has a nil Dim for `[]`.
	Array struct {
		Elem Type
		Dim  Expr
	}

	// Qualified prefixes qualifiers such as const or volatile.
	Qualified struct {
		Quals []string
		Elem  Type
	}

	// Record is a struct or union. Fields is nil when the type is only
	// referenced by tag, without a body.
	Record struct {
		Keyword string // "struct" or "union"
		Name    string
		Fields  []*Declaration
		HasBody bool
	}

	Enum struct {
		Name    string
		Members []*Enumerator
		HasBody bool
	}

	FuncType struct {
		Result   Type
		Params   []*Declaration
		Variadic bool
	}

	// BadType stands for a type outside the supported kinds.
	BadType struct {
		Kind string
		Line int
	}
)

// Enumerator is one enum constant with an optional explicit value.
type Enumerator struct {
	Name  string
	Value Expr
}

func (*TypeName) typeNode()  {}
func (*Pointer) typeNode()   {}
func (*Array) typeNode()     {}
func (*Qualified) typeNode() {}
func (*Record) typeNode()    {}
func (*Enum) typeNode()      {}
func (*FuncType) typeNode()  {}
func (*BadType) typeNode()   {}
