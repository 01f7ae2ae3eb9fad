package mir_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/mir"
	"github.com/sourcelang/corec/internal/types"
)

func q(name string) ident.QName { return ident.Item{Name: name} }

func TestLoweringProducesAllocateAndReturn(t *testing.T) {
	prog := hir.NewProgram()
	intTy := &types.Named{Name: q("Int")}
	body := hir.NewBody()
	x := body.NamedLocal("x", intTy, diag.Location{}, false)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.IntegerLiteral{Dest: x, Value: 7}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.Return{Value: x, HasValue: true}})
	prog.AddFunction(&hir.Function{Name: q("seven"), Result: intTy, Body: body})

	bag := diag.NewBag("t")
	out := mir.NewLowering(prog, bag).Run()
	require.False(t, bag.HasInternal())
	require.Len(t, out.Functions, 1)

	fn := out.Functions[0]
	require.Len(t, fn.Blocks, 1)
	var sawAllocate, sawStore bool
	for _, st := range fn.Blocks[0].Statements {
		switch st.(type) {
		case *mir.Allocate:
			sawAllocate = true
		case *mir.StoreLiteral:
			sawStore = true
		}
	}
	require.True(t, sawAllocate)
	require.True(t, sawStore)

	ret, ok := fn.Blocks[0].Terminator.(*mir.Return)
	require.True(t, ok)
	require.True(t, ret.HasValue)
}

func TestLoweringStructCtorSetsEachField(t *testing.T) {
	prog := hir.NewProgram()
	intTy := &types.Named{Name: q("Int")}
	pairTy := &types.Named{Name: q("Pair")}
	prog.AddStruct(&hir.Struct{Name: q("Pair"), Fields: []hir.Field{{Name: "a", Type: intTy}, {Name: "b", Type: intTy}}})
	prog.AddFunction(&hir.Function{
		Name:   ident.Item{Parent: q("Pair"), Name: "new"},
		Params: []hir.Parameter{{Name: "a", Type: intTy}, {Name: "b", Type: intTy}},
		Result: pairTy,
		Kind:   hir.StructCtor,
	})

	bag := diag.NewBag("t")
	out := mir.NewLowering(prog, bag).Run()
	require.False(t, bag.HasInternal())
	require.Len(t, out.Functions, 1)

	fn := out.Functions[0]
	require.Len(t, fn.Blocks, 1)
	var setFieldCount int
	for _, st := range fn.Blocks[0].Statements {
		if _, ok := st.(*mir.SetField); ok {
			setFieldCount++
		}
	}
	require.Equal(t, 2, setFieldCount)
	_, ok := fn.Blocks[0].Terminator.(*mir.Return)
	require.True(t, ok)
}

func TestLoweringIntegerSwitchBecomesMirSwitch(t *testing.T) {
	prog := hir.NewProgram()
	intTy := &types.Named{Name: q("Int")}
	body := hir.NewBody()
	root := body.NamedLocal("r", intTy, diag.Location{}, false)
	thenBlk := body.NewBlock()
	elseBlk := body.NewBlock()
	body.Append(thenBlk, &hir.Instruction{Kind: &hir.Return{Value: root, HasValue: true}})
	body.Append(elseBlk, &hir.Instruction{Kind: &hir.Return{Value: root, HasValue: true}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.IntegerSwitch{
		Root: root,
		Cases: []hir.IntegerCase{
			{Value: 1, HasValue: true, Branch: thenBlk},
			{HasValue: false, Branch: elseBlk},
		},
	}})
	prog.AddFunction(&hir.Function{Name: q("pick"), Result: intTy, Body: body})

	bag := diag.NewBag("t")
	out := mir.NewLowering(prog, bag).Run()
	require.False(t, bag.HasInternal())

	fn := out.Functions[0]
	sw, ok := fn.Blocks[0].Terminator.(*mir.Switch)
	require.True(t, ok)
	require.Len(t, sw.Branches, 1)
	require.Equal(t, int64(1), sw.Branches[0].Value)
}

// nonAllocate strips the per-function Allocate prologue so a test can
// cmp.Diff just the statements a single HIR instruction lowered to.
func nonAllocate(stmts []mir.Statement) []mir.Statement {
	var out []mir.Statement
	for _, st := range stmts {
		if _, ok := st.(*mir.Allocate); ok {
			continue
		}
		out = append(out, st)
	}
	return out
}

func lowerSingleOp(t *testing.T, op hir.IntegerOpKind) []mir.Statement {
	t.Helper()
	prog := hir.NewProgram()
	intTy := &types.Named{Name: q("Int")}
	body := hir.NewBody()
	a := body.FreshTemp(intTy)
	b := body.FreshTemp(intTy)
	r := body.FreshTemp(intTy)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.IntegerLiteral{Dest: a, Value: 1}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.IntegerLiteral{Dest: b, Value: 2}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.IntegerOp{Dest: r, LHS: a, RHS: b, Op: op}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.Return{Value: r, HasValue: true}})
	prog.AddFunction(&hir.Function{Name: q("cmp"), Result: intTy, Body: body})

	bag := diag.NewBag("t")
	out := mir.NewLowering(prog, bag).Run()
	require.False(t, bag.HasInternal())
	stmts := nonAllocate(out.Functions[0].Blocks[0].Statements)
	// drop the two IntegerLiteral stores feeding a and b, leaving only what
	// the IntegerOp itself lowered to.
	return stmts[2:]
}

func TestLoweringGtSwapsOperandsIntoLt(t *testing.T) {
	lhs := mir.Variable{Name: "tmp_0", Type: mir.Integer{Kind: mir.Int64}}
	rhs := mir.Variable{Name: "tmp_1", Type: mir.Integer{Kind: mir.Int64}}
	dest := mir.Variable{Name: "tmp_2", Type: mir.Integer{Kind: mir.Int64}}

	got := lowerSingleOp(t, hir.OpGt)
	want := []mir.Statement{&mir.IntegerOp{Dest: dest, LHS: rhs, RHS: lhs, Op: mir.OpLt}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Gt lowering mismatch (-want +got):\n%s", diff)
	}
}

func TestLoweringNeqNegatesEq(t *testing.T) {
	lhs := mir.Variable{Name: "tmp_0", Type: mir.Integer{Kind: mir.Int64}}
	rhs := mir.Variable{Name: "tmp_1", Type: mir.Integer{Kind: mir.Int64}}
	dest := mir.Variable{Name: "tmp_2", Type: mir.Integer{Kind: mir.Int64}}
	raw := mir.Variable{Name: "lower_tmp_1", Type: mir.Integer{Kind: mir.Int64}}
	one := mir.Variable{Name: "lower_tmp_2", Type: mir.Integer{Kind: mir.Int64}}

	got := lowerSingleOp(t, hir.OpNeq)
	want := []mir.Statement{
		&mir.IntegerOp{Dest: raw, LHS: lhs, RHS: rhs, Op: mir.OpEq},
		&mir.StoreLiteral{Dest: one, Value: mir.NumericLiteral{Value: 1, Type: mir.Integer{Kind: mir.Int64}}},
		&mir.IntegerOp{Dest: dest, LHS: raw, RHS: one, Op: mir.OpBitXor},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Neq lowering mismatch (-want +got):\n%s", diff)
	}
}

func TestLoweringLteAndGteNegateSwappedLt(t *testing.T) {
	lhs := mir.Variable{Name: "tmp_0", Type: mir.Integer{Kind: mir.Int64}}
	rhs := mir.Variable{Name: "tmp_1", Type: mir.Integer{Kind: mir.Int64}}

	lte := lowerSingleOp(t, hir.OpLte)
	lteRaw, ok := lte[0].(*mir.IntegerOp)
	require.True(t, ok)
	require.Equal(t, mir.OpLt, lteRaw.Op)
	if diff := cmp.Diff(rhs, lteRaw.LHS); diff != "" {
		t.Fatalf("Lte should test rhs < lhs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(lhs, lteRaw.RHS); diff != "" {
		t.Fatalf("Lte should test rhs < lhs (-want +got):\n%s", diff)
	}

	gte := lowerSingleOp(t, hir.OpGte)
	gteRaw, ok := gte[0].(*mir.IntegerOp)
	require.True(t, ok)
	require.Equal(t, mir.OpLt, gteRaw.Op)
	if diff := cmp.Diff(lhs, gteRaw.LHS); diff != "" {
		t.Fatalf("Gte should test lhs < rhs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(rhs, gteRaw.RHS); diff != "" {
		t.Fatalf("Gte should test lhs < rhs (-want +got):\n%s", diff)
	}
}

func TestPrintProducesCLikeOutput(t *testing.T) {
	prog := hir.NewProgram()
	intTy := &types.Named{Name: q("Int")}
	body := hir.NewBody()
	x := body.NamedLocal("x", intTy, diag.Location{}, false)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.IntegerLiteral{Dest: x, Value: 1}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.Return{Value: x, HasValue: true}})
	prog.AddFunction(&hir.Function{Name: q("one"), Result: intTy, Body: body})

	out := mir.NewLowering(prog, diag.NewBag("t")).Run()
	text := mir.Print(out)
	require.True(t, strings.Contains(text, "int64_t one("))
	require.True(t, strings.Contains(text, "return"))
}
