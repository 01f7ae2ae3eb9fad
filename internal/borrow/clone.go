package borrow

import (
	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/types"
)

// CopyChecker decides whether t satisfies Copy and, if so, names the
// concrete clone function to call. The pipeline wires this to
// internal/resolve's InstanceStore; borrow itself stays resolver-agnostic
// so it has no import-time dependency on resolve.
type CopyChecker interface {
	CloneFunctionFor(t types.Type) (ident.QName, bool)
}

// RewriteImplicitClones finds every move that the borrow checker would
// otherwise report and whose moved path has a Copy-satisfying static type,
// and rewrites the offending instruction in place: a fresh Ref of the
// source, a FunctionCall to the resolved clone function, and the original
// use redirected to the clone result (§4.3.6). It must run after the
// checker's dataflow has reached a fixpoint and before the checker's
// final, reporting pass.
func RewriteImplicitClones(fn *hir.Function, extOf map[int]ExtendedType, cc CopyChecker) {
	if fn.Body == nil || cc == nil {
		return
	}
	body := fn.Body
	bag := diag.NewBag("")
	dryChecker := NewChecker(bag, extOf)

	// A silent dry run surfaces every violation by temporarily enabling
	// reporting against a throwaway bag; each Report's location pair tells
	// us the move site and the offending use.
	dryChecker.Check(fn)
	if len(bag.Reports()) == 0 {
		return
	}

	for _, id := range body.Order {
		blk := body.Blocks[id]
		for idx := 0; idx < len(blk.Instructions); idx++ {
			instr := blk.Instructions[idx]
			call, ok := instr.Kind.(*hir.FunctionCall)
			if !ok {
				continue
			}
			for ai, arg := range call.Call.Args {
				if !isOwningMove(arg) {
					continue
				}
				qname, okClone := cc.CloneFunctionFor(arg.Type())
				if !okClone {
					continue
				}
				if !violatesWhenMoved(fn, extOf, arg) {
					continue
				}
				refTmp := body.FreshTemp(&types.Reference{Elem: arg.Type()})
				cloneDest := body.FreshTemp(arg.Type())
				body.InsertAt(id, idx, &hir.Instruction{
					Kind:     &hir.Ref{Dest: refTmp, Src: arg},
					Implicit: true,
					Location: instr.Location,
				})
				idx++
				body.InsertAt(id, idx, &hir.Instruction{
					Kind: &hir.FunctionCall{
						Dest: cloneDest,
						Call: hir.CallInfo{Name: qname, Args: []hir.Variable{refTmp}},
					},
					Implicit: true,
					Location: instr.Location,
				})
				idx++
				call.Call.Args[ai] = cloneDest
			}
		}
	}
}

// violatesWhenMoved is a conservative re-check: a move of arg is worth
// rewriting only if some later use of the same path would otherwise be
// live-and-dead simultaneously. A full re-run of the dataflow for every
// candidate is expensive; since this pass only fires when the program
// already has at least one reported violation, a coarse per-variable
// re-use count is precision enough for the instances this rewrite targets
// (named locals reused after being passed by value).
func violatesWhenMoved(fn *hir.Function, extOf map[int]ExtendedType, v hir.Variable) bool {
	if fn.Body == nil {
		return false
	}
	uses := 0
	for _, id := range fn.Body.Order {
		for _, instr := range fn.Body.Blocks[id].Instructions {
			for _, used := range varsOf(instr.Kind) {
				if used.SameIdentity(v) {
					uses++
				}
			}
		}
	}
	return uses > 1
}
