// Package cfg lowers a C syntax tree into control flow graphs whose basic
// blocks are annotated with the variables they define and use, and assembles
// the per-variable def-use paths of every graph.
package cfg

import (
	"sort"

	"github.com/l3aro/go-cflow/pkg/dfg"
)

// BlockType represents the type of a CFG block.
type BlockType string

const (
	BlockTypeEntry    BlockType = "entry"     // Function entry point
	BlockTypeExit     BlockType = "exit"      // Function exit point
	BlockTypePlain    BlockType = "plain"     // Straight-line statements
	BlockTypeBranch   BlockType = "branch"    // if condition
	BlockTypeSwitch   BlockType = "switch"    // switch controlling expression
	BlockTypeCase     BlockType = "case"      // case label
	BlockTypeDefault  BlockType = "default"   // default label
	BlockTypeLoop     BlockType = "loop"      // while/for condition
	BlockTypeDoWhile  BlockType = "do_while"  // do/while condition, tested after the body
	BlockTypeBreak    BlockType = "break"     // break statement
	BlockTypeContinue BlockType = "continue"  // continue statement
	BlockTypeReturn   BlockType = "return"    // return statement
	BlockTypeGlobals  BlockType = "globals"   // Grouped global declarations
	BlockTypeTypedefs BlockType = "typedefs"  // Grouped type aliases
)

// EdgeType represents the type of a CFG edge.
type EdgeType string

const (
	EdgeTypeUnconditional EdgeType = "unconditional" // Plain fallthrough
	EdgeTypeTrue          EdgeType = "true"          // Condition holds
	EdgeTypeFalse         EdgeType = "false"         // Condition fails
	EdgeTypeCase          EdgeType = "case"          // switch to one of its arms
	EdgeTypeBackEdge      EdgeType = "back_edge"     // Loop body back to its condition
	EdgeTypeBreak         EdgeType = "break"         // Break from loop/switch
	EdgeTypeContinue      EdgeType = "continue"      // Continue to next iteration
	EdgeTypeReturn        EdgeType = "return"        // Return to the function exit
)

// Block is a basic block. Succs order is meaningful: for branches and loops
// slot 0 is taken when the condition holds and slot 1 when it fails; for a
// switch the slots follow the arms in source order.
//
// Children is the containment relation used by renderers: a loop or switch
// owns the blocks of its body, a function entry owns the top-level blocks of
// the function. An if block owns its two branches through Arms instead.
type Block struct {
	ID       int       `json:"id" msgpack:"id"`
	Type     BlockType `json:"type" msgpack:"type"`
	Line     int       `json:"line" msgpack:"line"`
	Code     []string  `json:"code" msgpack:"code"`
	Succs    []int     `json:"succs" msgpack:"succs"`
	Children []int     `json:"children,omitempty" msgpack:"children,omitempty"`
	Arms     []Arm     `json:"arms,omitempty" msgpack:"arms,omitempty"`
	Defs     []string  `json:"defs" msgpack:"defs"`
	Uses     []string  `json:"uses" msgpack:"uses"`
	Entry    bool      `json:"entry,omitempty" msgpack:"entry,omitempty"`
	Exit     bool      `json:"exit,omitempty" msgpack:"exit,omitempty"`
}

// Arm is one branch of an if block. It is not a block and has no id of its
// own: Target is the single block control enters when the branch is taken
// (the convergence point when the branch is absent) and Children are the
// blocks lowered from the branch body.
type Arm struct {
	Target   int   `json:"target" msgpack:"target"`
	Children []int `json:"children,omitempty" msgpack:"children,omitempty"`
}

// UnitKind distinguishes the three kinds of unit in a forest.
type UnitKind string

const (
	UnitFunction UnitKind = "function" // Full CFG of one function definition
	UnitGlobals  UnitKind = "globals"  // Run of consecutive global declarations
	UnitTypedefs UnitKind = "typedefs" // Run of consecutive type aliases
	UnitInvalid  UnitKind = "invalid"  // Top-level item the builder cannot lower
)

// Unit is one independently lowered graph or declaration group.
type Unit struct {
	Kind   UnitKind   `json:"kind" msgpack:"kind"`
	Name   string     `json:"name,omitempty" msgpack:"name,omitempty"`
	Line   int        `json:"line" msgpack:"line"`
	Blocks []*Block   `json:"blocks" msgpack:"blocks"` // Sorted by id
	Roots  []int      `json:"roots" msgpack:"roots"`   // Top of the containment forest
	Paths  dfg.Record `json:"paths" msgpack:"paths"`
	Error  string     `json:"error,omitempty" msgpack:"error,omitempty"`

	// Err is the lowering failure, nil on success. Units decoded from a
	// cache only carry the Error text.
	Err error `json:"-" msgpack:"-"`
}

// Edge is a classified control-flow edge.
type Edge struct {
	From int      `json:"from" msgpack:"from"`
	To   int      `json:"to" msgpack:"to"`
	Type EdgeType `json:"type" msgpack:"type"`
}

// Forest is the lowering result of one translation unit, in source order.
type Forest struct {
	Units []*Unit `json:"units" msgpack:"units"`
}

// OK reports whether the unit was lowered successfully.
func (u *Unit) OK() bool {
	return u.Err == nil && u.Error == ""
}

// Block returns the block with the given id, or nil.
func (u *Unit) Block(id int) *Block {
	i := sort.Search(len(u.Blocks), func(i int) bool { return u.Blocks[i].ID >= id })
	if i < len(u.Blocks) && u.Blocks[i].ID == id {
		return u.Blocks[i]
	}
	return nil
}

// Entry returns the block flagged as function entry, or nil.
func (u *Unit) Entry() *Block {
	for _, b := range u.Blocks {
		if b.Entry {
			return b
		}
	}
	return nil
}

// Exit returns the block flagged as function exit, or nil.
func (u *Unit) Exit() *Block {
	for _, b := range u.Blocks {
		if b.Exit {
			return b
		}
	}
	return nil
}

// Failed returns the units whose lowering failed.
func (f *Forest) Failed() []*Unit {
	var out []*Unit
	for _, u := range f.Units {
		if !u.OK() {
			out = append(out, u)
		}
	}
	return out
}

// Functions returns the function units.
func (f *Forest) Functions() []*Unit {
	var out []*Unit
	for _, u := range f.Units {
		if u.Kind == UnitFunction {
			out = append(out, u)
		}
	}
	return out
}

// Function returns the function unit with the given name, or nil.
func (f *Forest) Function(name string) *Unit {
	for _, u := range f.Units {
		if u.Kind == UnitFunction && u.Name == name {
			return u
		}
	}
	return nil
}
