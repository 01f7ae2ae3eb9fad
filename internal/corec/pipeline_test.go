package corec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourcelang/corec/internal/corec"
	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/types"
)

func q(name string) ident.QName { return ident.Item{Name: name} }

func TestCompileLowersAStraightLineFunctionToMIR(t *testing.T) {
	prog := hir.NewProgram()
	intType := &types.Named{Name: q("Int")}

	main := &hir.Function{Name: q("main"), Result: intType, Kind: hir.UserDefined}
	body := hir.NewBody()
	x := body.NamedLocal("x", intType, diag.Location{}, false)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.IntegerLiteral{Dest: x, Value: 1}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.Return{Value: x, HasValue: true}})
	main.Body = body
	prog.AddFunction(main)

	bag := diag.NewBag("test")
	result, ok := corec.Compile(prog, bag, corec.Options{MainName: q("main")})

	require.True(t, ok, "expected compilation to succeed, got %v", bag.Reports())
	require.NotNil(t, result.MIR)
	require.Len(t, result.MIR.Functions, 1)
	require.Equal(t, "main", result.MIR.Functions[0].Name)
}

func TestCompileStopsAtUnresolvedCallWithoutReachingMIR(t *testing.T) {
	prog := hir.NewProgram()
	main := &hir.Function{Name: q("main"), Result: types.Unit(), Kind: hir.UserDefined}
	body := hir.NewBody()
	dest := body.FreshUntyped()
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.FunctionCall{
		Dest: dest,
		Call: hir.CallInfo{Name: q("nonexistent")},
	}})
	main.Body = body
	prog.AddFunction(main)

	bag := diag.NewBag("test")
	result, ok := corec.Compile(prog, bag, corec.Options{MainName: q("main")})

	require.False(t, ok)
	require.True(t, bag.HasErrors())
	require.Nil(t, result.MIR)
}

func TestCompileWithVerifyStillSucceedsOnAWellFormedProgram(t *testing.T) {
	prog := hir.NewProgram()
	intType := &types.Named{Name: q("Int")}
	main := &hir.Function{Name: q("main"), Result: intType, Kind: hir.UserDefined}
	body := hir.NewBody()
	x := body.NamedLocal("x", intType, diag.Location{}, false)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.IntegerLiteral{Dest: x, Value: 5}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.Return{Value: x, HasValue: true}})
	main.Body = body
	prog.AddFunction(main)

	bag := diag.NewBag("test")
	result, ok := corec.Compile(prog, bag, corec.Options{MainName: q("main"), RunVerify: true})

	require.True(t, ok, "expected no diagnostics, got %v", bag.Reports())
	require.NotNil(t, result.MIR)
}
