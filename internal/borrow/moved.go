package borrow

import "github.com/sourcelang/corec/internal/hir"

// MovedAdapter implements internal/drop.MovedTracker on top of a Checker
// that has already run to fixpoint over body: it locates every BlockEnd
// instruction for a given scope and reports a variable as moved only if
// the checker's dataflow shows it dead at every one of them, matching
// §4.4.3's "moved on every path reaching the end of scope".
type MovedAdapter struct {
	Checker *Checker
	Body    *hir.Body
}

// WasMovedBeforeScopeEnd satisfies internal/drop.MovedTracker.
func (m *MovedAdapter) WasMovedBeforeScopeEnd(v hir.Variable, scope hir.SyntaxBlockId) bool {
	ends := scopeEnds(m.Body, scope)
	if len(ends) == 0 {
		return false
	}
	for _, end := range ends {
		if !m.Checker.WasMovedBefore(end.block, end.index, v) {
			return false
		}
	}
	return true
}

type blockEndPos struct {
	block hir.BlockId
	index int
}

// scopeEnds finds every (block, index) of a BlockEnd instruction closing
// scope, across body's blocks — a scope can close on more than one path
// when control flow forks after it opens (e.g. an early return).
func scopeEnds(body *hir.Body, scope hir.SyntaxBlockId) []blockEndPos {
	var out []blockEndPos
	for _, id := range body.Order {
		blk := body.Blocks[id]
		for idx, instr := range blk.Instructions {
			if end, ok := instr.Kind.(*hir.BlockEnd); ok && end.ID == scope {
				out = append(out, blockEndPos{block: id, index: idx})
			}
		}
	}
	return out
}
