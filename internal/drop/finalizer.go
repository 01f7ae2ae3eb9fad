package drop

import (
	"github.com/sourcelang/corec/internal/borrow"
	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/types"
)

// MovedTracker reports whether var was consumed by an explicit move on
// every path reaching scope's end, so the Finalizer can skip emitting
// a Drop for it there. internal/borrow's checker dataflow (deadPaths)
// already computes exactly this; the pipeline wires a thin adapter rather
// than drop re-deriving move tracking itself.
type MovedTracker interface {
	// WasMovedBeforeScopeEnd reports whether v was moved on every path
	// reaching the end of scope (fully consumed, so no Drop is owed).
	WasMovedBeforeScopeEnd(v hir.Variable, scope hir.SyntaxBlockId) bool
}

// Finalizer emits one Drop(_, var) per local recorded in ScopeInfo at its
// owning scope's BlockEnd, for every local still owned along at least one
// exit path (§4.4.3).
type Finalizer struct {
	Moved MovedTracker
}

// Run inserts Drop instructions immediately before every BlockEnd whose
// SyntaxBlockId owns locals recorded in info, skipping any local that was
// fully consumed by an explicit move.
func (f *Finalizer) Run(fn *hir.Function, info *ScopeInfo) {
	if fn.Body == nil {
		return
	}
	body := fn.Body

	localsByScope := make(map[string][]hir.Variable)
	for slot, sc := range info.OwnerScope {
		localsByScope[sc.String()] = append(localsByScope[sc.String()], slotVariable(body, slot))
	}

	for _, id := range body.Order {
		blk := body.Blocks[id]
		for idx := 0; idx < len(blk.Instructions); idx++ {
			end, ok := blk.Instructions[idx].Kind.(*hir.BlockEnd)
			if !ok {
				continue
			}
			locals := localsByScope[end.ID.String()]
			insertAt := idx
			for _, v := range locals {
				if f.Moved != nil && f.Moved.WasMovedBeforeScopeEnd(v, end.ID) {
					continue
				}
				result := body.FreshTemp(types.Unit())
				body.InsertAt(id, insertAt, &hir.Instruction{
					Kind:     &hir.Drop{Result: result, Target: v},
					Implicit: true,
					Location: blk.Instructions[insertAt].Location,
				})
				insertAt++
				idx++
			}
		}
	}
}

// slotVariable reconstructs a Variable handle for a raw slot index within
// body; ScopeInfo only stores slot ints (to stay a comparable map key), so
// the Finalizer rehydrates a full Variable from it.
func slotVariable(body *hir.Body, slot int) hir.Variable {
	return body.VariableForSlot(slot)
}

// CollisionChecker wraps internal/borrow's checker to detect collisions
// (§4.4.2): a path's move dominating another use without an intervening
// re-initialisation is exactly what the borrow checker's deadPaths
// dataflow already reports as UseAfterMove. Implicit-clone promotion runs
// first (§4.3.6 / the ordering Open Question resolved in DESIGN.md), then
// whatever remains is reported as a collision.
type CollisionChecker struct {
	ExtOf map[int]borrow.ExtendedType
	Clone borrow.CopyChecker
}

// Check runs the implicit-clone rewrite first, then the borrow checker's
// dataflow, reporting any surviving violations into bag.
func (c *CollisionChecker) Check(fn *hir.Function, bag *diag.Bag) {
	borrow.RewriteImplicitClones(fn, c.ExtOf, c.Clone)
	checker := borrow.NewChecker(bag, c.ExtOf)
	checker.Check(fn)
}
