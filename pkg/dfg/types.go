// Package dfg defines def-use path records: for every variable of a unit, an
// ordered structure describing where, along every possible execution path,
// the variable is defined and/or used.
package dfg

// Mode is how a single block touches a variable.
type Mode string

const (
	ModeDefined     Mode = "d"  // Written by the block
	ModeUsed        Mode = "u"  // Read by the block
	ModeDefinedUsed Mode = "du" // Written and read by the same block
)

// EntryKind distinguishes leaf entries from the two kinds of group.
type EntryKind string

const (
	KindLeaf        EntryKind = "leaf" // One block touching the variable
	KindAlternative EntryKind = "alt"  // Exactly one of the sub-paths executes
	KindRepetition  EntryKind = "rep"  // Zero or more of the sub-paths execute, in order
)

// Entry is one element of a Path. Leaf entries set Node and Mode; group
// entries set Paths.
type Entry struct {
	Kind  EntryKind `json:"kind" msgpack:"kind"`
	Node  int       `json:"node,omitempty" msgpack:"node,omitempty"`
	Mode  Mode      `json:"mode,omitempty" msgpack:"mode,omitempty"`
	Paths []Path    `json:"paths,omitempty" msgpack:"paths,omitempty"`
}

// Path is a sequence of entries in execution order.
type Path []Entry

// Record maps a variable name to its path.
type Record map[string]Path
