package dfg

import (
	"fmt"
	"sort"
	"strings"
)

// Leaf builds the record of a single block. Names are deduplicated first: a
// variable in defs starts as ModeDefined and becomes ModeDefinedUsed if it is
// also in uses; a variable only in uses is ModeUsed.
func Leaf(node int, defs, uses []string) Record {
	rec := make(Record)
	modes := make(map[string]Mode)
	var order []string
	for _, name := range Dedup(defs) {
		modes[name] = ModeDefined
		order = append(order, name)
	}
	for _, name := range Dedup(uses) {
		if m, ok := modes[name]; ok {
			if m == ModeDefined {
				modes[name] = ModeDefinedUsed
			}
			continue
		}
		modes[name] = ModeUsed
		order = append(order, name)
	}
	for _, name := range order {
		rec[name] = Path{{Kind: KindLeaf, Node: node, Mode: modes[name]}}
	}
	return rec
}

// Concat joins records executed one after the other, in argument order.
func Concat(recs ...Record) Record {
	out := make(Record)
	for _, rec := range recs {
		for name, path := range rec {
			joined := make(Path, 0, len(out[name])+len(path))
			joined = append(joined, out[name]...)
			joined = append(joined, path...)
			out[name] = joined
		}
	}
	return out
}

// Alternatives groups mutually exclusive arms, such as the two branches of an
// if. Every variable touched by any arm gets one alternative entry with a slot
// per arm; the slot is empty when that arm leaves the variable alone.
func Alternatives(arms ...Record) Record {
	out := make(Record)
	for _, name := range varsOf(arms) {
		paths := make([]Path, len(arms))
		for i, arm := range arms {
			paths[i] = clonePath(arm[name])
		}
		out[name] = Path{{Kind: KindAlternative, Paths: paths}}
	}
	return out
}

// Repetition groups sub-paths of which zero or more execute in order, such as
// the arms of a switch or the body of a loop. Items that do not touch a
// variable are left out of that variable's group.
func Repetition(items ...Record) Record {
	out := make(Record)
	for _, name := range varsOf(items) {
		var paths []Path
		for _, item := range items {
			if p, ok := item[name]; ok && len(p) > 0 {
				paths = append(paths, clonePath(p))
			}
		}
		out[name] = Path{{Kind: KindRepetition, Paths: paths}}
	}
	return out
}

// Filter drops leaf entries whose node is rejected by keep, and then any
// group left without entries.
func (r Record) Filter(keep func(node int) bool) Record {
	out := make(Record)
	for name, path := range r {
		if p := path.filter(keep); len(p) > 0 {
			out[name] = p
		}
	}
	return out
}

func (p Path) filter(keep func(node int) bool) Path {
	var out Path
	for _, e := range p {
		switch e.Kind {
		case KindLeaf:
			if keep(e.Node) {
				out = append(out, e)
			}
		default:
			var paths []Path
			nonEmpty := false
			for _, sub := range e.Paths {
				f := sub.filter(keep)
				if len(f) > 0 {
					nonEmpty = true
				}
				if len(f) == 0 {
					if e.Kind == KindRepetition {
						continue
					}
					f = Path{}
				}
				paths = append(paths, f)
			}
			if nonEmpty {
				out = append(out, Entry{Kind: e.Kind, Paths: paths})
			}
		}
	}
	return out
}

// Rebase shifts every node id by offset.
func (r Record) Rebase(offset int) Record {
	out := make(Record, len(r))
	for name, path := range r {
		out[name] = path.rebase(offset)
	}
	return out
}

func (p Path) rebase(offset int) Path {
	out := make(Path, len(p))
	for i, e := range p {
		if e.Kind == KindLeaf {
			e.Node += offset
		} else {
			paths := make([]Path, len(e.Paths))
			for j, sub := range e.Paths {
				paths[j] = sub.rebase(offset)
			}
			e.Paths = paths
		}
		out[i] = e
	}
	return out
}

// Vars returns the variable names of the record in sorted order.
func (r Record) Vars() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Nodes returns the ids of all leaf entries of the path in order of
// appearance.
func (p Path) Nodes() []int {
	var ids []int
	for _, e := range p {
		if e.Kind == KindLeaf {
			ids = append(ids, e.Node)
			continue
		}
		for _, sub := range e.Paths {
			ids = append(ids, sub.Nodes()...)
		}
	}
	return ids
}

// String renders the path as `3|d -> ( [ 4|d ] | [ 5|d ] ) -> { [ 7|u ] }*`.
// Alternatives are wrapped in parentheses, repetitions in braces.
func (p Path) String() string {
	parts := make([]string, 0, len(p))
	for _, e := range p {
		switch e.Kind {
		case KindLeaf:
			parts = append(parts, fmt.Sprintf("%d|%s", e.Node, e.Mode))
		case KindAlternative:
			parts = append(parts, "( "+joinSubPaths(e.Paths, " | ")+" )")
		case KindRepetition:
			parts = append(parts, "{ "+joinSubPaths(e.Paths, " ")+" }*")
		}
	}
	return strings.Join(parts, " -> ")
}

func joinSubPaths(paths []Path, sep string) string {
	subs := make([]string, len(paths))
	for i, sub := range paths {
		if len(sub) == 0 {
			subs[i] = "[ ]"
			continue
		}
		subs[i] = "[ " + sub.String() + " ]"
	}
	return strings.Join(subs, sep)
}

// Dedup removes repeated names, keeping the first occurrence.
func Dedup(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func varsOf(recs []Record) []string {
	seen := make(map[string]bool)
	var names []string
	for _, rec := range recs {
		for name := range rec {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func clonePath(p Path) Path {
	if p == nil {
		return Path{}
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}
