// Package drop implements the drop pipeline of spec.md §4.4 (C3): the
// Initializer assigns every local a lexical SyntaxBlockId, recorded in
// ScopeInfo (no DropMetadata instruction is inserted); the Checker reuses internal/borrow's move
// tracking to find collisions and promote Copy-satisfying moves to
// implicit clones; the Finalizer emits matched Drop instructions at every
// scope exit for every local still owned along that path.
//
// Grounded on original_source/compiler/src/siko/backend/drop/
// {Initializer,Drop}.rs for the scope-bookkeeping shape, and on
// rust/crates/siko_backend/src/backend_passes/insert_clone.rs for the
// implicit-clone-before-collision-report ordering (see DESIGN.md's Open
// Question resolution).
package drop

import (
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/types"
)

// Initializer walks a function's body, assigning every local with a
// non-trivial drop to its enclosing SyntaxBlockId (§4.4.1). The result is
// recorded only in the returned ScopeInfo: no DropMetadata instruction is
// inserted and the body is left unchanged.
type Initializer struct {
	// NeedsDrop reports whether t has a non-trivial drop (i.e. isn't a
	// primitive/Copy type with no destructor). Wired to the same
	// instance-store lookup internal/borrow's CopyChecker uses.
	NeedsDrop func(t types.Type) bool
}

// ScopeInfo is filled in by Run and consulted by the Finalizer: for every
// variable slot, which SyntaxBlockId owns its drop.
type ScopeInfo struct {
	OwnerScope map[int]hir.SyntaxBlockId // variable slot -> owning scope
	ScopeOrder []hir.SyntaxBlockId
}

// Run assigns scopes, returning the resulting ScopeInfo for the Finalizer
// to consume. It does not modify the body.
func (init *Initializer) Run(fn *hir.Function) *ScopeInfo {
	info := &ScopeInfo{OwnerScope: make(map[int]hir.SyntaxBlockId)}
	if fn.Body == nil {
		return info
	}
	body := fn.Body
	var stack []hir.SyntaxBlockId
	current := func() hir.SyntaxBlockId {
		if len(stack) == 0 {
			return hir.SyntaxBlockId{}
		}
		return stack[len(stack)-1]
	}
	seen := make(map[int]bool)
	assign := func(v hir.Variable) {
		if seen[v.Slot] {
			return
		}
		seen[v.Slot] = true
		sc := current()
		if init.NeedsDrop != nil && v.Type() != nil && !init.NeedsDrop(v.Type()) {
			return
		}
		info.OwnerScope[v.Slot] = sc
		info.ScopeOrder = append(info.ScopeOrder, sc)
	}

	for _, id := range body.Order {
		blk := body.Blocks[id]
		for _, instr := range blk.Instructions {
			switch k := instr.Kind.(type) {
			case *hir.BlockStart:
				stack = append(stack, k.ID)
			case *hir.BlockEnd:
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			case *hir.DeclareVar:
				assign(k.Var)
			case *hir.Bind:
				assign(k.LHS)
			case *hir.Assign:
				assign(k.LHS)
			case *hir.FunctionCall:
				assign(k.Dest)
			case *hir.FieldRef:
				assign(k.Dest)
			case *hir.Tuple:
				assign(k.Dest)
			}
		}
	}
	return info
}
