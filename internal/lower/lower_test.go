package lower_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/lower"
	"github.com/sourcelang/corec/internal/types"
)

func q(name string) ident.QName { return ident.Item{Name: name} }

func TestTupleLoweringRewritesTupleConstruction(t *testing.T) {
	prog := hir.NewProgram()
	body := hir.NewBody()
	intTy := &types.Named{Name: q("Int")}
	a := body.NamedLocal("a", intTy, diag.Location{}, false)
	b := body.NamedLocal("b", intTy, diag.Location{}, false)
	dest := body.FreshTemp(&types.Tuple{Elems: []types.Type{intTy, intTy}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.Tuple{Dest: dest, Args: []hir.Variable{a, b}}})

	fn := &hir.Function{Name: q("f"), Body: body, Result: types.Unit()}
	prog.AddFunction(fn)

	tl := lower.NewTupleLowering(prog)
	tl.RunFunction(fn)

	require.Len(t, prog.Structs, 1)
	var sawCall bool
	for _, instr := range body.Blocks[body.Entry].Instructions {
		if _, ok := instr.Kind.(*hir.Tuple); ok {
			t.Fatalf("Tuple instruction should have been rewritten")
		}
		if call, ok := instr.Kind.(*hir.FunctionCall); ok {
			sawCall = true
			require.Len(t, call.Call.Args, 2)
		}
	}
	require.True(t, sawCall)
}

func TestTupleLoweringRewritesIndexedFieldPath(t *testing.T) {
	prog := hir.NewProgram()
	tl := lower.NewTupleLowering(prog)

	body := hir.NewBody()
	tupTy := &types.Tuple{Elems: []types.Type{&types.Named{Name: q("Int")}}}
	recv := body.NamedLocal("t", tupTy, diag.Location{}, false)
	dest := body.FreshTemp(&types.Named{Name: q("Int")})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.FieldRef{
		Dest:     dest,
		Receiver: recv,
		Path:     []hir.FieldInfo{{Field: hir.IndexedField(0)}},
	}})

	fn := &hir.Function{Name: q("g"), Body: body, Result: types.Unit()}
	tl.RunFunction(fn)

	ref := body.Blocks[body.Entry].Instructions[0].Kind.(*hir.FieldRef)
	require.False(t, ref.Path[0].Field.IsIndex)
	require.Equal(t, "f0", ref.Path[0].Field.Name)
}

func TestClosureLoweringRewritesCreateClosureToVariantCall(t *testing.T) {
	prog := hir.NewProgram()
	clo := lower.NewClosureLowering(prog)

	body := hir.NewBody()
	intTy := &types.Named{Name: q("Int")}
	captured := body.NamedLocal("x", intTy, diag.Location{}, false)
	fnTy := &types.Function{Params: []types.Type{intTy}, Result: intTy}
	dest := body.FreshTemp(fnTy)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.CreateClosure{
		Dest: dest,
		Info: hir.ClosureCreateInfo{Name: q("lambda0"), Captures: []hir.Variable{captured}},
	}})

	fn := &hir.Function{Name: q("h"), Body: body, Result: types.Unit()}
	clo.RunFunction(fn)
	clo.Finish()

	require.Len(t, prog.Enums, 1)
	var sawCall bool
	for _, instr := range body.Blocks[body.Entry].Instructions {
		if _, ok := instr.Kind.(*hir.CreateClosure); ok {
			t.Fatalf("CreateClosure instruction should have been rewritten")
		}
		if call, ok := instr.Kind.(*hir.FunctionCall); ok {
			sawCall = true
			require.Len(t, call.Call.Args, 1)
		}
	}
	require.True(t, sawCall)
}

func TestClosureLoweringRewritesDynamicCallToHandler(t *testing.T) {
	prog := hir.NewProgram()
	clo := lower.NewClosureLowering(prog)

	body := hir.NewBody()
	intTy := &types.Named{Name: q("Int")}
	enumName := ident.Closure{ArgTypes: []types.Type{intTy}, Result: intTy}
	closureVar := body.NamedLocal("c", &types.Named{Name: enumName}, diag.Location{}, false)
	arg := body.NamedLocal("n", intTy, diag.Location{}, false)
	dest := body.FreshTemp(intTy)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.DynamicFunctionCall{
		Dest: dest, Callee: closureVar, Args: []hir.Variable{arg},
	}})

	fn := &hir.Function{Name: q("i"), Body: body, Result: intTy}
	clo.RunFunction(fn)

	call := body.Blocks[body.Entry].Instructions[0].Kind.(*hir.FunctionCall)
	require.Equal(t, "call", call.Call.Name.(ident.Item).Name)
	require.Len(t, call.Call.Args, 2)
}
