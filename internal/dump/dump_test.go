package dump_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/dump"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/mir"
	"github.com/sourcelang/corec/internal/types"
)

func q(name string) ident.QName { return ident.Item{Name: name} }

func TestHIRDumpRendersFunctionsAndStructs(t *testing.T) {
	prog := hir.NewProgram()
	intTy := &types.Named{Name: q("Int")}
	prog.AddStruct(&hir.Struct{Name: q("Pair"), Fields: []hir.Field{{Name: "a", Type: intTy}, {Name: "b", Type: intTy}}})

	body := hir.NewBody()
	x := body.NamedLocal("x", intTy, diag.Location{}, false)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.IntegerLiteral{Dest: x, Value: 42}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.Return{Value: x, HasValue: true}})
	prog.AddFunction(&hir.Function{Name: q("answer"), Result: intTy, Body: body})

	snap := dump.HIR(prog)
	require.Len(t, snap.Structs, 1)
	require.Equal(t, "Pair", snap.Structs[0].Name)
	require.Len(t, snap.Functions, 1)
	require.Equal(t, "answer", snap.Functions[0].Name)
	require.Len(t, snap.Functions[0].Blocks, 1)
	require.Contains(t, snap.Functions[0].Blocks[0].Instructions[0], "42")

	text, err := dump.Marshal(snap)
	require.NoError(t, err)
	require.Contains(t, text, "answer")
	require.Contains(t, text, "Pair")
}

func TestMIRDumpRendersFunctionSignature(t *testing.T) {
	prog := hir.NewProgram()
	intTy := &types.Named{Name: q("Int")}
	body := hir.NewBody()
	x := body.NamedLocal("x", intTy, diag.Location{}, false)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.IntegerLiteral{Dest: x, Value: 1}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.Return{Value: x, HasValue: true}})
	prog.AddFunction(&hir.Function{Name: q("one"), Result: intTy, Body: body})

	mirProg := mir.NewLowering(prog, diag.NewBag("t")).Run()
	snap := dump.MIR(mirProg)
	require.Len(t, snap.Functions, 1)
	require.Contains(t, snap.Functions[0].Signature, "one(")
	require.NotEmpty(t, snap.Functions[0].Blocks)

	text, err := dump.Marshal(snap)
	require.NoError(t, err)
	require.Contains(t, text, "signature:")
}
