package cfg

// Edges returns the control-flow edges of the unit, classified by the kind of
// the source block and the successor slot they leave from.
func (u *Unit) Edges() []Edge {
	inLoop := u.loopBodies()

	var edges []Edge
	for _, b := range u.Blocks {
		for slot, to := range b.Succs {
			edges = append(edges, Edge{From: b.ID, To: to, Type: u.edgeType(b, slot, to, inLoop)})
		}
	}
	return edges
}

func (u *Unit) edgeType(b *Block, slot, to int, inLoop map[int]map[int]bool) EdgeType {
	switch b.Type {
	case BlockTypeBranch, BlockTypeLoop, BlockTypeDoWhile:
		if slot == 0 {
			return EdgeTypeTrue
		}
		return EdgeTypeFalse
	case BlockTypeSwitch:
		if target := u.Block(to); target != nil && (target.Type == BlockTypeCase || target.Type == BlockTypeDefault) {
			return EdgeTypeCase
		}
		return EdgeTypeFalse
	case BlockTypeBreak:
		return EdgeTypeBreak
	case BlockTypeContinue:
		return EdgeTypeContinue
	case BlockTypeReturn:
		return EdgeTypeReturn
	}
	if body, ok := inLoop[to]; ok && body[b.ID] {
		return EdgeTypeBackEdge
	}
	return EdgeTypeUnconditional
}

// loopBodies maps each pre-test loop block id to the set of blocks contained
// in its body, transitively. A do/while body flows forward into its condition,
// so only the condition's repeat slot goes backwards.
func (u *Unit) loopBodies() map[int]map[int]bool {
	out := make(map[int]map[int]bool)
	for _, b := range u.Blocks {
		if b.Type != BlockTypeLoop {
			continue
		}
		set := make(map[int]bool)
		u.collect(b, set)
		out[b.ID] = set
	}
	return out
}

func (u *Unit) collect(b *Block, set map[int]bool) {
	visit := func(ids []int) {
		for _, id := range ids {
			if set[id] {
				continue
			}
			set[id] = true
			if child := u.Block(id); child != nil {
				u.collect(child, set)
			}
		}
	}
	visit(b.Children)
	for _, arm := range b.Arms {
		visit(arm.Children)
	}
}

// Reachable returns the ids of the blocks reachable from the entry block,
// the entry included. It is empty for units without an entry.
func (u *Unit) Reachable() map[int]bool {
	entry := u.Entry()
	if entry == nil {
		return map[int]bool{}
	}
	seen := map[int]bool{entry.ID: true}
	stack := []int{entry.ID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		b := u.Block(id)
		if b == nil {
			continue
		}
		for _, s := range b.Succs {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return seen
}

// CyclomaticComplexity returns E - N + 2 for a function unit and 1 for
// declaration groups.
func (u *Unit) CyclomaticComplexity() int {
	if u.Kind != UnitFunction || len(u.Blocks) == 0 {
		return 1
	}
	edges := 0
	for _, b := range u.Blocks {
		edges += len(b.Succs)
	}
	return edges - len(u.Blocks) + 2
}
