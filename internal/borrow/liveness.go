package borrow

import (
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/scc"
)

// InstrPos identifies one instruction within a function body by block and
// index, the addressing scheme the liveness map and checker both key on.
type InstrPos struct {
	Block hir.BlockId
	Index int
}

// LivenessMap records, for every InstrPos, the set of BorrowVars live at
// that point (§4.3.4).
type LivenessMap struct {
	live map[InstrPos]map[BorrowVar]bool
}

func newLivenessMap() *LivenessMap {
	return &LivenessMap{live: make(map[InstrPos]map[BorrowVar]bool)}
}

// IsLive reports whether v is live at pos.
func (m *LivenessMap) IsLive(pos InstrPos, v BorrowVar) bool {
	set, ok := m.live[pos]
	return ok && set[v]
}

func (m *LivenessMap) mark(pos InstrPos, v BorrowVar) {
	set, ok := m.live[pos]
	if !ok {
		set = make(map[BorrowVar]bool)
		m.live[pos] = set
	}
	set[v] = true
}

// reachability precomputes, for a body's block CFG, the set of blocks each
// block can reach (including itself), via Tarjan SCC condensation of the
// successor graph (§4.3.4: "Reachability is derived from block-dependency
// SCCs and a precomputed per-block can-reach set"). A single
// condensation-based algorithm is used here rather than the teacher's two
// historical implementations — see DESIGN.md's Open Question resolution.
type reachability struct {
	canReach map[hir.BlockId]map[hir.BlockId]bool
}

func buildReachability(body *hir.Body) *reachability {
	succ := successorGraph(body)
	order := scc.Compute(succ)
	// order is reverse topological (deps before dependents, and a block's
	// successors are its deps here): to propagate "can reach", walk it
	// forwards so every successor's reach set is already known when we
	// process its predecessor.
	groupCanReach := make(map[int]map[hir.BlockId]bool)
	blockGroup := make(map[hir.BlockId]int)
	for gi, g := range order {
		for _, item := range g.Items {
			blockGroup[item] = gi
		}
	}
	r := &reachability{canReach: make(map[hir.BlockId]map[hir.BlockId]bool)}
	for gi := 0; gi < len(order); gi++ {
		group := order[gi]
		reach := make(map[hir.BlockId]bool)
		for _, item := range group.Items {
			reach[item] = true
		}
		for _, item := range group.Items {
			for _, s := range succ[item] {
				if sg := blockGroup[s]; sg != gi {
					for b := range groupCanReach[sg] {
						reach[b] = true
					}
				}
			}
		}
		groupCanReach[gi] = reach
		for _, item := range group.Items {
			r.canReach[item] = reach
		}
	}
	return r
}

func (r *reachability) CanReach(from, to hir.BlockId) bool {
	set, ok := r.canReach[from]
	return ok && set[to]
}

func successorGraph(body *hir.Body) map[hir.BlockId][]hir.BlockId {
	g := make(map[hir.BlockId][]hir.BlockId)
	for _, id := range body.Order {
		var succs []hir.BlockId
		for _, instr := range body.Blocks[id].Instructions {
			switch k := instr.Kind.(type) {
			case *hir.Jump:
				succs = append(succs, k.Target)
			case *hir.EnumSwitch:
				for _, c := range k.Cases {
					succs = append(succs, c.Branch)
				}
			case *hir.IntegerSwitch:
				for _, c := range k.Cases {
					succs = append(succs, c.Branch)
				}
			}
		}
		g[id] = succs
	}
	return g
}

// BuildLiveness computes the borrow-var liveness map for fn's body given
// its FunctionProfile's per-variable ExtendedTypes and the link closure
// (§4.3.4).
func BuildLiveness(fn *hir.Function, extOf map[int]ExtendedType, links []Link) *LivenessMap {
	m := newLivenessMap()
	if fn.Body == nil {
		return m
	}
	body := fn.Body
	reach := buildReachability(body)

	linkClosure := make(map[BorrowVar][]BorrowVar)
	for _, l := range links {
		linkClosure[l.From] = append(linkClosure[l.From], l.To)
	}

	type origin struct {
		pos InstrPos
		v   BorrowVar
	}
	var origins []origin

	for _, id := range body.Order {
		for idx, instr := range body.Blocks[id].Instructions {
			pos := InstrPos{Block: id, Index: idx}
			switch k := instr.Kind.(type) {
			case *hir.Ref:
				if e, ok := extOf[k.Dest.Slot]; ok {
					if v, isRef := asRef(e); isRef {
						origins = append(origins, origin{pos: pos, v: v})
					}
				}
			case *hir.AddressOfField:
				if e, ok := extOf[k.Dest.Slot]; ok && len(e.Vars) > 0 {
					origins = append(origins, origin{pos: pos, v: e.Vars[0]})
				}
			}
			// direct mentions: every extended type of every variable
			// referenced at this instruction is live at this instruction.
			for _, v := range varsOf(instr.Kind) {
				if e, ok := extOf[v.Slot]; ok {
					for _, bv := range e.Vars {
						m.mark(pos, bv)
					}
				}
			}
		}
	}

	for _, o := range origins {
		extendLiveRange(m, body, reach, o.pos, o.v, extOf)
		for _, linked := range transitiveLinks(linkClosure, o.v) {
			extendLiveRange(m, body, reach, o.pos, linked, extOf)
		}
	}
	return m
}

func transitiveLinks(closure map[BorrowVar][]BorrowVar, start BorrowVar) []BorrowVar {
	seen := map[BorrowVar]bool{start: true}
	queue := []BorrowVar{start}
	var out []BorrowVar
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, next := range closure[v] {
			if !seen[next] {
				seen[next] = true
				out = append(out, next)
				queue = append(queue, next)
			}
		}
	}
	return out
}

// extendLiveRange marks v live from srcPos to every later use of v, per
// §4.3.4: same-block uses extend liveness across the intermediate
// instructions; cross-block uses extend across every block on a path from
// srcPos.Block to the use's block, provided reach says the path exists.
func extendLiveRange(m *LivenessMap, body *hir.Body, reach *reachability, srcPos InstrPos, v BorrowVar, extOf map[int]ExtendedType) {
	for _, id := range body.Order {
		blk := body.Blocks[id]
		for idx, instr := range blk.Instructions {
			if id == srcPos.Block && idx <= srcPos.Index {
				continue
			}
			if !mentionsVar(instr.Kind, v, extOf) {
				continue
			}
			usePos := InstrPos{Block: id, Index: idx}
			if id == srcPos.Block {
				for i := srcPos.Index; i <= idx; i++ {
					m.mark(InstrPos{Block: id, Index: i}, v)
				}
				continue
			}
			if !reach.CanReach(srcPos.Block, id) {
				continue
			}
			for i := srcPos.Index; i < len(body.Blocks[srcPos.Block].Instructions); i++ {
				m.mark(InstrPos{Block: srcPos.Block, Index: i}, v)
			}
			for _, mid := range body.Order {
				if mid == srcPos.Block || mid == id || !reach.CanReach(srcPos.Block, mid) || !reach.CanReach(mid, id) {
					continue
				}
				for i := range body.Blocks[mid].Instructions {
					m.mark(InstrPos{Block: mid, Index: i}, v)
				}
			}
			for i := 0; i <= usePos.Index; i++ {
				m.mark(InstrPos{Block: id, Index: i}, v)
			}
		}
	}
}

func mentionsVar(kind hir.InstructionKind, v BorrowVar, extOf map[int]ExtendedType) bool {
	for _, vr := range varsOf(kind) {
		if e, ok := extOf[vr.Slot]; ok {
			for _, bv := range e.Vars {
				if bv == v {
					return true
				}
			}
		}
	}
	return false
}

// varsOf returns every Variable directly mentioned by kind, used by both
// the liveness map and the checker to find "uses" of a borrow var.
func varsOf(kind hir.InstructionKind) []hir.Variable {
	switch k := kind.(type) {
	case *hir.FunctionCall:
		return append(append([]hir.Variable{}, k.Call.Args...), k.Dest)
	case *hir.DynamicFunctionCall:
		return append(append([]hir.Variable{k.Callee}, k.Args...), k.Dest)
	case *hir.Ref:
		return []hir.Variable{k.Dest, k.Src}
	case *hir.PtrOf:
		return []hir.Variable{k.Dest, k.Src}
	case *hir.FieldRef:
		return []hir.Variable{k.Dest, k.Receiver}
	case *hir.FieldAssign:
		return []hir.Variable{k.Root, k.RHS}
	case *hir.AddressOfField:
		return []hir.Variable{k.Dest, k.Receiver}
	case *hir.Assign:
		return []hir.Variable{k.LHS, k.RHS}
	case *hir.Transform:
		return []hir.Variable{k.Dest, k.Src}
	case *hir.LoadPtr:
		return []hir.Variable{k.Dest, k.Src}
	case *hir.StorePtr:
		return []hir.Variable{k.Dest, k.Src}
	case *hir.Return:
		if k.HasValue {
			return []hir.Variable{k.Value}
		}
		return nil
	case *hir.Drop:
		return []hir.Variable{k.Result, k.Target}
	case *hir.Tuple:
		return append([]hir.Variable{}, k.Args...)
	case *hir.IntegerOp:
		return []hir.Variable{k.Dest, k.LHS, k.RHS}
	default:
		return nil
	}
}
