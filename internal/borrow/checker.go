package borrow

import (
	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/scc"
	"github.com/sourcelang/corec/internal/types"
)

// Path is a variable plus a sequence of field projections (§4.3.5). Paths
// compare by structural prefix: p is dead iff any prefix of p is recorded
// in deadPaths.
type Path struct {
	Root  int // variable slot
	Field []hir.FieldId
}

func pathOf(v hir.Variable, field ...hir.FieldId) Path {
	return Path{Root: v.Slot, Field: field}
}

func (p Path) isPrefixOf(q Path) bool {
	if p.Root != q.Root || len(p.Field) > len(q.Field) {
		return false
	}
	for i, f := range p.Field {
		if f != q.Field[i] {
			return false
		}
	}
	return true
}

// deadEntry records why a path is currently dead.
type deadEntry struct {
	Location diag.Location
	IsDrop   bool
}

// env is the per-block dataflow state: every path currently dead, plus a
// record of which path each borrow-var currently borrows (for the
// use-checks below).
type env struct {
	dead     map[Path]deadEntry
	borrowOf map[BorrowVar]Path
}

func newEnv() *env {
	return &env{dead: make(map[Path]deadEntry), borrowOf: make(map[BorrowVar]Path)}
}

func (e *env) clone() *env {
	n := newEnv()
	for k, v := range e.dead {
		n.dead[k] = v
	}
	for k, v := range e.borrowOf {
		n.borrowOf[k] = v
	}
	return n
}

// findDead returns the dead entry covering p (p itself or any prefix of
// it), if any.
func (e *env) findDead(p Path) (deadEntry, bool) {
	for dp, entry := range e.dead {
		if dp.isPrefixOf(p) {
			return entry, true
		}
	}
	return deadEntry{}, false
}

func merge(a, b *env) *env {
	m := newEnv()
	for k, v := range a.dead {
		m.dead[k] = v
	}
	for k, v := range b.dead {
		if existing, ok := m.dead[k]; ok {
			// Drop is stronger than move for diagnostic purposes: only
			// agree on isDrop=true if both predecessors do.
			m.dead[k] = deadEntry{Location: existing.Location, IsDrop: existing.IsDrop && v.IsDrop}
		} else {
			m.dead[k] = v
		}
	}
	for k, v := range a.borrowOf {
		m.borrowOf[k] = v
	}
	for k, v := range b.borrowOf {
		m.borrowOf[k] = v
	}
	return m
}

// Checker runs the borrow dataflow of §4.3.5 over one function, reporting
// UseAfterMove/UseAfterDrop diagnostics. The implicit-clone rewrite
// (§4.3.6) is the separate RewriteImplicitClones, which callers run on the
// function before Check.
type Checker struct {
	Bag   *diag.Bag
	extOf map[int]ExtendedType

	// body/entryOf are populated by Check and consulted by WasMovedBefore
	// (§4.4.3's MovedTracker wiring): the entry-of-block dataflow state is
	// exactly what an exit-path-reaching query needs to replay from.
	body    *hir.Body
	entryOf map[hir.BlockId]*env
}

// NewChecker creates a Checker that reports into bag, using extOf (as
// produced by the profile builder) to resolve a variable's borrow-vars.
func NewChecker(bag *diag.Bag, extOf map[int]ExtendedType) *Checker {
	return &Checker{Bag: bag, extOf: extOf}
}

// Check runs the dataflow to fixpoint over fn's block SCCs and reports any
// use-after-move/drop violations that survive the implicit-clone rewrite.
func (c *Checker) Check(fn *hir.Function) {
	if fn.Body == nil {
		return
	}
	body := fn.Body
	succ := successorGraph(body)
	groups := scc.Compute(succ)

	entryOf := make(map[hir.BlockId]*env)
	exitOf := make(map[hir.BlockId]*env)
	for _, id := range body.Order {
		entryOf[id] = newEnv()
		exitOf[id] = newEnv()
	}

	preds := make(map[hir.BlockId][]hir.BlockId)
	for from, tos := range succ {
		for _, to := range tos {
			preds[to] = append(preds[to], from)
		}
	}

	for gi := len(groups) - 1; gi >= 0; gi-- {
		group := groups[gi]
		for {
			changed := false
			for _, id := range group.Items {
				in := newEnv()
				for _, p := range preds[id] {
					if ex, ok := exitOf[p]; ok {
						in = merge(in, ex)
					}
				}
				entryOf[id] = in
				out := c.transferBlock(body, id, in)
				if !envEqual(out, exitOf[id]) {
					exitOf[id] = out
					changed = true
				}
			}
			if !changed {
				break
			}
		}
	}

	// Final pass: re-run transferBlock with error reporting enabled now
	// that the dataflow has reached fixpoint.
	for _, id := range body.Order {
		c.transferBlockReport(body, id, entryOf[id].clone())
	}

	c.body = body
	c.entryOf = entryOf
}

// WasMovedBefore replays id's entry state through its first uptoIndex
// instructions and reports whether v is dead (moved or dropped) at that
// point, without reporting any diagnostics. Used by
// internal/drop.MovedTracker via MovedAdapter, below — Check must have run
// first.
func (c *Checker) WasMovedBefore(id hir.BlockId, uptoIndex int, v hir.Variable) bool {
	if c.entryOf == nil || c.body == nil {
		return false
	}
	in, ok := c.entryOf[id]
	if !ok {
		return false
	}
	e := in.clone()
	instrs := c.body.Blocks[id].Instructions
	limit := uptoIndex
	if limit > len(instrs) {
		limit = len(instrs)
	}
	for i := 0; i < limit; i++ {
		c.step(e, instrs[i], false)
	}
	_, dead := e.findDead(pathOf(v))
	return dead
}

func envEqual(a, b *env) bool {
	if len(a.dead) != len(b.dead) {
		return false
	}
	for k, v := range a.dead {
		bv, ok := b.dead[k]
		if !ok || bv.IsDrop != v.IsDrop {
			return false
		}
	}
	return true
}

// transferBlock runs the per-instruction rules of §4.3.5 without reporting,
// used during fixpoint iteration.
func (c *Checker) transferBlock(body *hir.Body, id hir.BlockId, in *env) *env {
	return c.run(body, id, in, false)
}

func (c *Checker) transferBlockReport(body *hir.Body, id hir.BlockId, in *env) *env {
	return c.run(body, id, in, true)
}

func (c *Checker) run(body *hir.Body, id hir.BlockId, in *env, report bool) *env {
	e := in
	for _, instr := range body.Blocks[id].Instructions {
		c.step(e, instr, report)
	}
	return e
}

// step applies one instruction's dataflow rule to e in place, optionally
// reporting use-after-move/drop diagnostics. Factored out of run so
// WasMovedBefore can replay a prefix of a block's instructions.
func (c *Checker) step(e *env, instr *hir.Instruction, report bool) {
	switch k := instr.Kind.(type) {
	case *hir.Assign:
		delete(e.dead, pathOf(k.LHS))
		c.checkUse(e, k.RHS, instr.Location, report)
	case *hir.FieldRef:
		delete(e.dead, pathOf(k.Dest))
		c.checkUse(e, k.Receiver, instr.Location, report)
	case *hir.PtrOf:
		delete(e.dead, pathOf(k.Dest))
	case *hir.FunctionCall:
		delete(e.dead, pathOf(k.Dest))
		for _, arg := range k.Call.Args {
			c.checkUse(e, arg, instr.Location, report)
			if isOwningMove(arg) {
				e.dead[pathOf(arg)] = deadEntry{Location: instr.Location, IsDrop: false}
			}
		}
	case *hir.Drop:
		c.checkUse(e, k.Target, instr.Location, report)
		e.dead[pathOf(k.Target)] = deadEntry{Location: instr.Location, IsDrop: true}
	case *hir.Ref:
		c.checkUse(e, k.Src, instr.Location, report)
		if ext, ok := c.extOf[k.Dest.Slot]; ok {
			if bv, isRef := asRef(ext); isRef {
				e.borrowOf[bv] = pathOf(k.Src)
			}
		}
	case *hir.AddressOfField:
		c.checkUse(e, k.Receiver, instr.Location, report)
		if ext, ok := c.extOf[k.Dest.Slot]; ok && len(ext.Vars) > 0 {
			e.borrowOf[ext.Vars[0]] = pathOf(k.Receiver, k.Path[len(k.Path)-1].Field)
		}
	case *hir.Return:
		if k.HasValue {
			c.checkUse(e, k.Value, instr.Location, report)
		}
	default:
		for _, v := range varsOf(instr.Kind) {
			c.checkUse(e, v, instr.Location, report)
		}
	}
}

// isOwningMove reports whether passing arg by value constitutes a move of
// a named, non-reference value (§4.3.5: "any move of a named value
// (non-reference, non-read use of a named var)").
func isOwningMove(v hir.Variable) bool {
	if v.Kind() != hir.VarLocal && v.Kind() != hir.VarParam {
		return false
	}
	if v.Type() == nil {
		return false
	}
	switch v.Type().(type) {
	case *types.Reference, *types.Ptr:
		return false
	default:
		return true
	}
}

// checkUse validates every borrow-var reachable through v's extended type
// against e.dead, reporting UseAfterMove/UseAfterDrop when report is true.
func (c *Checker) checkUse(e *env, v hir.Variable, loc diag.Location, report bool) {
	ext, ok := c.extOf[v.Slot]
	if !ok {
		return
	}
	for _, bv := range ext.Vars {
		path, ok := e.borrowOf[bv]
		if !ok {
			continue
		}
		entry, dead := e.findDead(path)
		if !dead {
			continue
		}
		if !report {
			continue
		}
		if entry.IsDrop {
			c.Bag.Add(diag.Report{
				Kind:   diag.KindUseAfterDrop,
				Slogan: "use after drop",
				Entries: []diag.Entry{
					{Note: "used here", Location: loc},
					{Note: "dropped here", Location: entry.Location},
				},
			})
		} else {
			c.Bag.Add(diag.Report{
				Kind:   diag.KindUseAfterMove,
				Slogan: "use after move",
				Entries: []diag.Entry{
					{Note: "used here", Location: loc},
					{Note: "moved here", Location: entry.Location},
				},
			})
		}
	}
}
