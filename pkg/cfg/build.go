package cfg

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/l3aro/go-cflow/pkg/ctree"
	"github.com/l3aro/go-cflow/pkg/dfg"
)

// Option configures Build.
type Option func(*options)

type options struct {
	workers int
}

// WithWorkers lowers up to n units concurrently. Results do not depend on n.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// job is one top-level unit of work: a run of global declarations, a run of
// typedefs, one function definition or one unsupported item.
type job struct {
	kind  UnitKind
	decls []ctree.Decl
}

// Build lowers a translation unit into a forest of units in source order.
// A unit that fails to lower carries its error and no blocks; the other units
// are unaffected. Block ids are unique across the forest and are the same for
// every worker count.
func Build(tu *ctree.TranslationUnit, opts ...Option) *Forest {
	o := options{workers: 1}
	for _, opt := range opts {
		opt(&o)
	}

	jobs := groupDecls(tu.Decls)
	units := make([]*Unit, len(jobs))
	used := make([]int, len(jobs))

	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, j := range jobs {
		g.Go(func() error {
			units[i], used[i] = lowerJob(j)
			return nil
		})
	}
	_ = g.Wait()

	offset := 0
	for i, u := range units {
		if !u.OK() {
			continue
		}
		u.rebase(offset)
		offset += used[i]
	}
	return &Forest{Units: units}
}

// groupDecls splits top-level declarations into maximal runs of globals and
// of typedefs; every function definition and unsupported item stands alone.
func groupDecls(decls []ctree.Decl) []job {
	var jobs []job
	for _, d := range decls {
		var kind UnitKind
		switch d.(type) {
		case *ctree.VarDecl:
			kind = UnitGlobals
		case *ctree.Typedef:
			kind = UnitTypedefs
		case *ctree.FuncDef:
			kind = UnitFunction
		default:
			kind = UnitInvalid
		}
		groupable := kind == UnitGlobals || kind == UnitTypedefs
		if groupable && len(jobs) > 0 && jobs[len(jobs)-1].kind == kind {
			last := &jobs[len(jobs)-1]
			last.decls = append(last.decls, d)
			continue
		}
		jobs = append(jobs, job{kind: kind, decls: []ctree.Decl{d}})
	}
	return jobs
}

// lowerJob lowers one job with a unit-local id counter and returns the unit
// and the number of ids it consumed.
func lowerJob(j job) (*Unit, int) {
	b := &builder{}
	unit := &Unit{Kind: j.kind, Line: j.decls[0].Pos()}

	var err error
	switch j.kind {
	case UnitFunction:
		fn := j.decls[0].(*ctree.FuncDef)
		unit.Name = fn.Name
		err = b.buildFunc(unit, fn)
	case UnitGlobals:
		err = b.buildGlobals(unit, j.decls)
	case UnitTypedefs:
		err = b.buildTypedefs(unit, j.decls)
	default:
		kind := fmt.Sprintf("%T", j.decls[0])
		if bad, ok := j.decls[0].(*ctree.BadDecl); ok {
			kind = bad.Kind
		}
		err = unsupported("top-level declaration", unit.Line, kind)
	}
	if err != nil {
		unit.Err = atLine(err, unit.Line)
		unit.Error = unit.Err.Error()
		return unit, 0
	}
	unit.Blocks = b.blocks
	return unit, b.nextID
}

// buildFunc synthesizes the entry block (the signature, defining the
// parameters) and the exit block, then lowers the body between them. Blocks
// left unreachable from the entry, such as code after a return, are pruned.
func (b *builder) buildFunc(unit *Unit, fn *ctree.FuncDef) error {
	if fn.Type == nil {
		return malformed("function", fn.Line, "missing signature")
	}
	sig, err := RenderType(fn.Type, fn.Name)
	if err != nil {
		return atLine(err, fn.Line)
	}
	if len(fn.Storage) > 0 {
		sig = strings.Join(fn.Storage, " ") + " " + sig
	}
	_, defs, uses, err := lowerParams(fn.Type)
	if err != nil {
		return atLine(err, fn.Line)
	}

	entry := b.newBlock(BlockTypeEntry, fn.Line)
	entry.Entry = true
	entry.Code = []string{sig}
	entry.Defs = dfg.Dedup(defs)
	entry.Uses = dfg.Dedup(uses)

	exit := b.newBlock(BlockTypeExit, fn.Line)
	exit.Exit = true
	exit.Code = []string{"exit"}

	body, err := b.lowerSeq(fn.Body, scope{flow: exit, ret: exit}, fn.Line)
	if err != nil {
		return err
	}
	entry.Succs = []int{body.entry.ID}
	entry.Children = append(blockIDs(body.blocks), exit.ID)

	unit.Roots = []int{entry.ID}
	unit.Paths = dfg.Concat(dfg.Leaf(entry.ID, entry.Defs, entry.Uses), body.paths)
	b.prune(entry, unit)
	return nil
}

func (b *builder) buildGlobals(unit *Unit, decls []ctree.Decl) error {
	blk := b.newBlock(BlockTypeGlobals, unit.Line)
	var defs, uses []string
	for _, d := range decls {
		vd := d.(*ctree.VarDecl)
		if vd.Decl == nil {
			return malformed("declaration", unit.Line, "missing declarator")
		}
		text, dd, du, err := lowerDecl(vd.Decl)
		if err != nil {
			return atLine(err, vd.Pos())
		}
		blk.Code = append(blk.Code, text)
		defs = append(defs, dd...)
		uses = append(uses, du...)
	}
	blk.Defs = dfg.Dedup(defs)
	blk.Uses = dfg.Dedup(uses)

	unit.Roots = []int{blk.ID}
	unit.Paths = dfg.Leaf(blk.ID, blk.Defs, blk.Uses)
	return nil
}

func (b *builder) buildTypedefs(unit *Unit, decls []ctree.Decl) error {
	blk := b.newBlock(BlockTypeTypedefs, unit.Line)
	var defs []string
	for _, d := range decls {
		td := d.(*ctree.Typedef)
		text, err := RenderType(td.Type, td.Name)
		if err != nil {
			return atLine(err, td.Line)
		}
		blk.Code = append(blk.Code, "typedef "+text)
		if td.Name != "" {
			defs = append(defs, td.Name)
		}
	}
	blk.Defs = dfg.Dedup(defs)

	unit.Roots = []int{blk.ID}
	unit.Paths = dfg.Leaf(blk.ID, blk.Defs, nil)
	return nil
}

// prune keeps only the blocks reachable from entry, in the block list, in the
// containment lists and in the def-use paths.
func (b *builder) prune(entry *Block, unit *Unit) {
	byID := make(map[int]*Block, len(b.blocks))
	for _, blk := range b.blocks {
		byID[blk.ID] = blk
	}
	reached := map[int]bool{entry.ID: true}
	queue := []int{entry.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, s := range byID[id].Succs {
			if !reached[s] {
				reached[s] = true
				queue = append(queue, s)
			}
		}
	}
	if len(reached) == len(b.blocks) {
		return
	}

	keep := func(id int) bool { return reached[id] }
	kept := b.blocks[:0]
	for _, blk := range b.blocks {
		if !reached[blk.ID] {
			continue
		}
		blk.Children = filterIDs(blk.Children, keep)
		for i := range blk.Arms {
			blk.Arms[i].Children = filterIDs(blk.Arms[i].Children, keep)
		}
		kept = append(kept, blk)
	}
	b.blocks = kept
	unit.Paths = unit.Paths.Filter(keep)
}

func filterIDs(ids []int, keep func(int) bool) []int {
	if ids == nil {
		return nil
	}
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}

// rebase shifts every id in the unit by offset.
func (u *Unit) rebase(offset int) {
	if offset == 0 {
		return
	}
	shift := func(ids []int) {
		for i := range ids {
			ids[i] += offset
		}
	}
	for _, blk := range u.Blocks {
		blk.ID += offset
		shift(blk.Succs)
		shift(blk.Children)
		for i := range blk.Arms {
			blk.Arms[i].Target += offset
			shift(blk.Arms[i].Children)
		}
	}
	shift(u.Roots)
	u.Paths = u.Paths.Rebase(offset)
}
