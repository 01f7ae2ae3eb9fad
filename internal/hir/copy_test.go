package hir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/types"
)

func buildSampleBody() *Body {
	b := NewBody()
	x := b.NamedLocal("x", &types.Named{Name: fakeQ("Int")}, diag.Location{}, false)
	y := b.FreshTemp(&types.Named{Name: fakeQ("Int")})
	b.Append(b.Entry, &Instruction{Kind: &IntegerLiteral{Dest: x, Value: 1}})
	b.Append(b.Entry, &Instruction{Kind: &IntegerOp{Dest: y, LHS: x, RHS: x, Op: OpAdd}})
	other := b.NewBlock()
	b.Append(b.Entry, &Instruction{Kind: &Jump{Target: other}})
	b.Append(other, &Instruction{Kind: &Return{Value: y, HasValue: true}})
	return b
}

type fakeQ string

func (f fakeQ) String() string { return string(f) }

func TestIdentityCopierPreservesSlotNumbering(t *testing.T) {
	src := buildSampleBody()
	clone := IdentityCopier{}.Clone(src)

	require.Equal(t, src.NumSlots(), clone.NumSlots())
	require.Equal(t, len(src.Order), len(clone.Order))

	srcOp := src.Blocks[src.Entry].Instructions[1].Kind.(*IntegerOp)
	cloneOp := clone.Blocks[clone.Entry].Instructions[1].Kind.(*IntegerOp)
	require.Equal(t, srcOp.Dest.Slot, cloneOp.Dest.Slot)
	require.Equal(t, srcOp.LHS.Slot, cloneOp.LHS.Slot)
	require.True(t, cloneOp.Dest.body == clone)

	jump := clone.Blocks[clone.Entry].Instructions[2].Kind.(*Jump)
	require.Contains(t, clone.Blocks, jump.Target)

	// Mutating the clone must not affect the source (independent storage).
	clone.SetType(cloneOp.Dest, nil)
	require.NotNil(t, src.Blocks[src.Entry].Instructions[1].Kind.(*IntegerOp).Dest.Type())
}

func TestInlineCopierRemapsIntoDestination(t *testing.T) {
	src := buildSampleBody()
	dst := NewBody()
	existing := dst.NamedLocal("already-here", &types.Named{Name: fakeQ("Int")}, diag.Location{}, false)

	copier := NewInlineCopier()
	entry := copier.SpliceInto(dst, src)

	require.NotEqual(t, src.Entry, entry)
	require.Greater(t, dst.NumSlots(), src.NumSlots())

	// The destination's pre-existing slot must be untouched.
	require.Equal(t, "already-here", existing.Name())

	splicedBlk := dst.Blocks[entry]
	require.Len(t, splicedBlk.Instructions, 3)
	lit := splicedBlk.Instructions[0].Kind.(*IntegerLiteral)
	require.True(t, lit.Dest.body == dst)
	require.NotEqual(t, 0, lit.Dest.Slot) // remapped past the pre-existing slot

	jump := splicedBlk.Instructions[2].Kind.(*Jump)
	require.Contains(t, dst.Blocks, jump.Target)
	require.NotEqual(t, jump.Target, entry)
}

func TestCopyRewritesClosureCaptures(t *testing.T) {
	inner := NewBody()
	capturedParam := inner.Param("c", &types.Named{Name: fakeQ("Int")}, diag.Location{}, false)
	inner.Append(inner.Entry, &Instruction{Kind: &Return{Value: capturedParam, HasValue: true}})

	outer := NewBody()
	cap1 := outer.NamedLocal("captured", &types.Named{Name: fakeQ("Int")}, diag.Location{}, false)
	dest := outer.FreshUntyped()
	outer.Append(outer.Entry, &Instruction{Kind: &CreateClosure{
		Dest: dest,
		Info: ClosureCreateInfo{Body: inner, Captures: []Variable{cap1}},
	}})

	clone := IdentityCopier{}.Clone(outer)
	cc := clone.Blocks[clone.Entry].Instructions[0].Kind.(*CreateClosure)
	require.Len(t, cc.Info.Captures, 1)
	require.Equal(t, cap1.Slot, cc.Info.Captures[0].Slot)
	require.True(t, cc.Info.Captures[0].body == clone)
	require.NotNil(t, cc.Info.Body)
	require.True(t, cc.Info.Body != inner)
}
