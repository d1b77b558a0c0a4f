package cfg

import (
	"fmt"
	"strings"

	"github.com/l3aro/go-cflow/pkg/ctree"
	"github.com/l3aro/go-cflow/pkg/dfg"
)

// scope holds the blocks control may transfer to from the statements being
// lowered. It is passed by value; entering a loop or switch derives a new one.
// brk and cont are nil where break or continue have no target.
type scope struct {
	flow *Block // Where the sequence continues after its last statement
	brk  *Block
	cont *Block
	ret  *Block
}

// builder owns the id counter and the blocks of the unit being lowered.
type builder struct {
	nextID int
	blocks []*Block
}

func (b *builder) newBlock(t BlockType, line int) *Block {
	blk := &Block{ID: b.nextID, Type: t, Line: line}
	b.nextID++
	b.blocks = append(b.blocks, blk)
	return blk
}

// lowered is the result of lowering a statement sequence.
type lowered struct {
	entry  *Block     // First block executed
	blocks []*Block   // Top-level blocks of the sequence in source order
	paths  dfg.Record // Def-use paths of the sequence
}

// construct is the result of lowering one control statement.
type construct struct {
	head  *Block // Block owning the construct in the containment tree
	entry *Block // Block control enters first
	paths dfg.Record
}

// lowerSeq lowers stmts from last to first so that every block is created
// knowing the block it flows into. Consecutive straight-line statements are
// coalesced into one plain block. An empty sequence yields a single empty
// block that falls through to sc.flow; line is used for it.
func (b *builder) lowerSeq(stmts []ctree.Stmt, sc scope, line int) (lowered, error) {
	stmts = flatten(stmts)

	var (
		run    []ctree.Stmt
		blocks []*Block
		paths  = dfg.Record{}
		flow   = sc.flow
	)

	flush := func() error {
		if len(run) == 0 {
			return nil
		}
		blk := b.newBlock(BlockTypePlain, run[0].Pos())
		code, defs, uses, err := LowerRun(run)
		if err != nil {
			return err
		}
		blk.Code = code
		blk.Defs = dfg.Dedup(defs)
		blk.Uses = dfg.Dedup(uses)
		blk.Succs = []int{flow.ID}

		paths = dfg.Concat(dfg.Leaf(blk.ID, blk.Defs, blk.Uses), paths)
		blocks = append([]*Block{blk}, blocks...)
		flow = blk
		run = nil
		return nil
	}

	for i := len(stmts) - 1; i >= 0; i-- {
		s := stmts[i]
		if isStraightLine(s) {
			run = append([]ctree.Stmt{s}, run...)
			continue
		}
		if err := flush(); err != nil {
			return lowered{}, err
		}

		inner := sc
		inner.flow = flow
		c, err := b.lowerConstruct(s, inner)
		if err != nil {
			return lowered{}, atLine(err, s.Pos())
		}
		paths = dfg.Concat(c.paths, paths)
		blocks = append([]*Block{c.head}, blocks...)
		flow = c.entry
	}
	if err := flush(); err != nil {
		return lowered{}, err
	}

	if len(blocks) == 0 {
		blk := b.newBlock(BlockTypePlain, line)
		blk.Succs = []int{flow.ID}
		blocks = []*Block{blk}
		flow = blk
	}
	return lowered{entry: flow, blocks: blocks, paths: paths}, nil
}

func (b *builder) lowerConstruct(s ctree.Stmt, sc scope) (construct, error) {
	switch x := s.(type) {
	case *ctree.If:
		return b.lowerIf(x, sc)
	case *ctree.Switch:
		return b.lowerSwitch(x, sc)
	case *ctree.While:
		return b.lowerWhile(x, sc)
	case *ctree.For:
		return b.lowerFor(x, sc)
	case *ctree.DoWhile:
		return b.lowerDoWhile(x, sc)

	case *ctree.Break:
		if sc.brk == nil {
			return construct{}, invalidTransfer("break", x.Line, "not inside a loop or switch")
		}
		blk := b.newBlock(BlockTypeBreak, x.Line)
		blk.Code = []string{"break"}
		blk.Succs = []int{sc.brk.ID}
		return construct{head: blk, entry: blk, paths: dfg.Record{}}, nil

	case *ctree.Continue:
		if sc.cont == nil {
			return construct{}, invalidTransfer("continue", x.Line, "not inside a loop")
		}
		blk := b.newBlock(BlockTypeContinue, x.Line)
		blk.Code = []string{"continue"}
		blk.Succs = []int{sc.cont.ID}
		return construct{head: blk, entry: blk, paths: dfg.Record{}}, nil

	case *ctree.Return:
		if sc.ret == nil {
			return construct{}, malformed("return", x.Line, "no function exit to return to")
		}
		text, uses, err := LowerExpr(x.Result)
		if err != nil {
			return construct{}, err
		}
		blk := b.newBlock(BlockTypeReturn, x.Line)
		blk.Code = []string{strings.TrimSpace("return " + text)}
		blk.Uses = dfg.Dedup(uses)
		blk.Succs = []int{sc.ret.ID}
		return construct{head: blk, entry: blk, paths: dfg.Leaf(blk.ID, nil, blk.Uses)}, nil

	case *ctree.Case, *ctree.Default:
		return construct{}, unsupported("case label", s.Pos(), "outside the arms of a switch")

	case *ctree.BadStmt:
		return construct{}, unsupported("statement", x.Line, x.Kind)

	default:
		return construct{}, unsupported("statement", s.Pos(), fmt.Sprintf("%T", s))
	}
}

// lowerIf wires the condition block to one arm per branch. Slot 0 is the then
// branch, slot 1 the else branch; an absent or empty branch targets the
// convergence point directly.
func (b *builder) lowerIf(s *ctree.If, sc scope) (construct, error) {
	if s.Cond == nil || s.Then == nil {
		return construct{}, malformed("if", s.Line, "missing condition or body")
	}
	cond, uses, err := LowerExpr(s.Cond)
	if err != nil {
		return construct{}, err
	}
	blk := b.newBlock(BlockTypeBranch, s.Line)
	blk.Code = []string{"if(" + cond + ")"}
	blk.Uses = dfg.Dedup(uses)

	armPaths := make([]dfg.Record, 0, 2)
	for _, branch := range []ctree.Stmt{s.Then, s.Else} {
		items := flatten(branchItems(branch))
		if len(items) == 0 {
			blk.Arms = append(blk.Arms, Arm{Target: sc.flow.ID})
			blk.Succs = append(blk.Succs, sc.flow.ID)
			armPaths = append(armPaths, dfg.Record{})
			continue
		}
		low, err := b.lowerSeq(items, sc, s.Line)
		if err != nil {
			return construct{}, err
		}
		blk.Arms = append(blk.Arms, Arm{Target: low.entry.ID, Children: blockIDs(low.blocks)})
		blk.Succs = append(blk.Succs, low.entry.ID)
		armPaths = append(armPaths, low.paths)
	}

	paths := dfg.Concat(dfg.Leaf(blk.ID, nil, blk.Uses), dfg.Alternatives(armPaths...))
	return construct{head: blk, entry: blk, paths: paths}, nil
}

// lowerSwitch gives the controlling block one successor per arm in source
// order. Arms are lowered last to first: an arm's body falls through into the
// next arm's body, and break leaves to the convergence point. Without a
// default arm the convergence point is appended as the implicit default.
func (b *builder) lowerSwitch(s *ctree.Switch, sc scope) (construct, error) {
	if s.Tag == nil {
		return construct{}, malformed("switch", s.Line, "missing controlling expression")
	}
	tag, uses, err := LowerExpr(s.Tag)
	if err != nil {
		return construct{}, err
	}
	blk := b.newBlock(BlockTypeSwitch, s.Line)
	blk.Code = []string{"switch(" + tag + ")"}
	blk.Uses = dfg.Dedup(uses)

	armScope := sc
	armScope.brk = sc.flow

	var (
		arms       = flatten(s.Body)
		labels     = make([]*Block, len(arms))
		armPaths   = make([]dfg.Record, len(arms))
		next       = sc.flow
		hasDefault bool
	)
	for i := len(arms) - 1; i >= 0; i-- {
		var (
			label *Block
			body  []ctree.Stmt
		)
		switch a := arms[i].(type) {
		case *ctree.Case:
			if a.Value == nil {
				return construct{}, malformed("case", a.Line, "missing case value")
			}
			value, vu, err := LowerExpr(a.Value)
			if err != nil {
				return construct{}, atLine(err, a.Line)
			}
			label = b.newBlock(BlockTypeCase, a.Line)
			label.Code = []string{"case " + value + ":"}
			label.Uses = dfg.Dedup(vu)
			body = a.Body
		case *ctree.Default:
			label = b.newBlock(BlockTypeDefault, a.Line)
			label.Code = []string{"default:"}
			body = a.Body
			hasDefault = true
		default:
			return construct{}, malformed("switch", arms[i].Pos(), "statement outside a case arm")
		}

		inner := armScope
		inner.flow = next
		low, err := b.lowerSeq(body, inner, label.Line)
		if err != nil {
			return construct{}, err
		}
		label.Succs = []int{low.entry.ID}
		label.Children = blockIDs(low.blocks)
		next = low.entry

		labels[i] = label
		armPaths[i] = dfg.Concat(dfg.Leaf(label.ID, nil, label.Uses), low.paths)
	}

	blk.Succs = blockIDs(labels)
	blk.Children = blockIDs(labels)
	if !hasDefault {
		blk.Succs = append(blk.Succs, sc.flow.ID)
	}

	paths := dfg.Concat(dfg.Leaf(blk.ID, nil, blk.Uses), dfg.Repetition(armPaths...))
	return construct{head: blk, entry: blk, paths: paths}, nil
}

func (b *builder) lowerWhile(s *ctree.While, sc scope) (construct, error) {
	if s.Cond == nil || s.Body == nil {
		return construct{}, malformed("while", s.Line, "missing condition or body")
	}
	cond, uses, err := LowerExpr(s.Cond)
	if err != nil {
		return construct{}, err
	}
	blk := b.newBlock(BlockTypeLoop, s.Line)
	blk.Code = []string{"while (" + cond + ")"}
	blk.Uses = dfg.Dedup(uses)

	return b.lowerLoopBody(blk, s.Body, sc, s.Line)
}

// lowerFor folds the initializer into the loop block's definitions and the
// condition and step into its uses, rendered inline as `for(init;cond;step)`.
func (b *builder) lowerFor(s *ctree.For, sc scope) (construct, error) {
	if s.Body == nil {
		return construct{}, malformed("for", s.Line, "missing body")
	}
	var defs, uses []string

	inits := make([]string, 0, len(s.Init))
	for _, st := range s.Init {
		switch st.(type) {
		case *ctree.DeclStmt, *ctree.AssignStmt:
		default:
			return construct{}, unsupported("for initializer", s.Line, fmt.Sprintf("%T", st))
		}
		text, d, u, err := lowerStmt(st)
		if err != nil {
			return construct{}, err
		}
		inits = append(inits, text)
		defs = append(defs, d...)
		uses = append(uses, u...)
	}

	cond, cu, err := LowerExpr(s.Cond)
	if err != nil {
		return construct{}, err
	}
	uses = append(uses, cu...)

	steps := make([]string, 0, len(s.Step))
	for _, st := range s.Step {
		text, d, u, err := lowerStmt(st)
		if err != nil {
			return construct{}, err
		}
		steps = append(steps, text)
		uses = append(uses, d...)
		uses = append(uses, u...)
	}

	blk := b.newBlock(BlockTypeLoop, s.Line)
	blk.Code = []string{fmt.Sprintf("for(%s;%s;%s)", strings.Join(inits, ", "), cond, strings.Join(steps, ", "))}
	blk.Defs = dfg.Dedup(defs)
	blk.Uses = dfg.Dedup(uses)

	return b.lowerLoopBody(blk, s.Body, sc, s.Line)
}

// lowerLoopBody wires a pre-test loop: slot 0 enters the body, slot 1 leaves
// to the convergence point, and the body falls back into the loop block.
func (b *builder) lowerLoopBody(blk *Block, body ctree.Stmt, sc scope, line int) (construct, error) {
	bodyScope := scope{flow: blk, brk: sc.flow, cont: blk, ret: sc.ret}
	low, err := b.lowerSeq(branchItems(body), bodyScope, line)
	if err != nil {
		return construct{}, err
	}
	blk.Succs = []int{low.entry.ID, sc.flow.ID}
	blk.Children = blockIDs(low.blocks)

	paths := dfg.Concat(dfg.Leaf(blk.ID, blk.Defs, blk.Uses), dfg.Repetition(low.paths))
	return construct{head: blk, entry: blk, paths: paths}, nil
}

// lowerDoWhile enters the body unconditionally; the condition block is tested
// after the body and either repeats it (slot 0) or leaves (slot 1).
func (b *builder) lowerDoWhile(s *ctree.DoWhile, sc scope) (construct, error) {
	if s.Cond == nil || s.Body == nil {
		return construct{}, malformed("do-while", s.Line, "missing condition or body")
	}
	cond, uses, err := LowerExpr(s.Cond)
	if err != nil {
		return construct{}, err
	}
	blk := b.newBlock(BlockTypeDoWhile, s.Line)
	blk.Code = []string{"do{ ... } while(" + cond + ")"}
	blk.Uses = dfg.Dedup(uses)

	bodyScope := scope{flow: blk, brk: sc.flow, cont: blk, ret: sc.ret}
	low, err := b.lowerSeq(branchItems(s.Body), bodyScope, s.Line)
	if err != nil {
		return construct{}, err
	}
	blk.Succs = []int{low.entry.ID, sc.flow.ID}
	blk.Children = blockIDs(low.blocks)

	paths := dfg.Concat(dfg.Repetition(low.paths), dfg.Leaf(blk.ID, nil, blk.Uses))
	return construct{head: blk, entry: low.entry, paths: paths}, nil
}

// branchItems returns the statements of a branch or loop body.
func branchItems(s ctree.Stmt) []ctree.Stmt {
	switch x := s.(type) {
	case nil:
		return nil
	case *ctree.Compound:
		return x.Items
	default:
		return []ctree.Stmt{s}
	}
}

// flatten splices nested compound statements into the enclosing sequence.
// Block scoping has no effect on control flow.
func flatten(stmts []ctree.Stmt) []ctree.Stmt {
	nested := false
	for _, s := range stmts {
		if _, ok := s.(*ctree.Compound); ok {
			nested = true
			break
		}
	}
	if !nested {
		return stmts
	}
	out := make([]ctree.Stmt, 0, len(stmts))
	for _, s := range stmts {
		if c, ok := s.(*ctree.Compound); ok {
			out = append(out, flatten(c.Items)...)
			continue
		}
		out = append(out, s)
	}
	return out
}

func blockIDs(blocks []*Block) []int {
	ids := make([]int, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
	}
	return ids
}
