package verify_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/types"
	"github.com/sourcelang/corec/internal/verify"
)

func q(name string) ident.QName { return ident.Item{Name: name} }

func TestVerifyAcceptsConsistentCall(t *testing.T) {
	prog := hir.NewProgram()
	intTy := &types.Named{Name: q("Int")}

	callee := &hir.Function{Name: q("id"), Params: []hir.Parameter{{Name: "x", Type: intTy}}, Result: intTy}
	prog.AddFunction(callee)

	body := hir.NewBody()
	arg := body.NamedLocal("a", intTy, diag.Location{}, false)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.IntegerLiteral{Dest: arg, Value: 1}})
	dest := body.FreshTemp(intTy)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.FunctionCall{
		Dest: dest,
		Call: hir.CallInfo{Name: q("id"), Args: []hir.Variable{arg}},
	}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.Return{Value: dest, HasValue: true}})
	prog.AddFunction(&hir.Function{Name: q("main"), Result: intTy, Body: body})

	bag := diag.NewBag("t")
	verify.New(prog, bag).Run()
	require.False(t, bag.HasInternal())
}

func TestVerifyRejectsArityMismatch(t *testing.T) {
	prog := hir.NewProgram()
	intTy := &types.Named{Name: q("Int")}

	prog.AddFunction(&hir.Function{Name: q("id"), Params: []hir.Parameter{{Name: "x", Type: intTy}}, Result: intTy})

	body := hir.NewBody()
	dest := body.FreshTemp(intTy)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.FunctionCall{
		Dest: dest,
		Call: hir.CallInfo{Name: q("id"), Args: nil},
	}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.Return{Value: dest, HasValue: true}})
	prog.AddFunction(&hir.Function{Name: q("main"), Result: intTy, Body: body})

	bag := diag.NewBag("t")
	verify.New(prog, bag).Run()
	require.True(t, bag.HasInternal())
}

func TestVerifyRejectsTypeMismatchedCall(t *testing.T) {
	prog := hir.NewProgram()
	intTy := &types.Named{Name: q("Int")}
	strTy := &types.Named{Name: q("String")}

	prog.AddFunction(&hir.Function{Name: q("id"), Params: []hir.Parameter{{Name: "x", Type: intTy}}, Result: intTy})

	body := hir.NewBody()
	arg := body.NamedLocal("s", strTy, diag.Location{}, false)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.StringLiteral{Dest: arg, Value: "hi"}})
	dest := body.FreshTemp(intTy)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.FunctionCall{
		Dest: dest,
		Call: hir.CallInfo{Name: q("id"), Args: []hir.Variable{arg}},
	}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.Return{Value: dest, HasValue: true}})
	prog.AddFunction(&hir.Function{Name: q("main"), Result: intTy, Body: body})

	bag := diag.NewBag("t")
	verify.New(prog, bag).Run()
	require.True(t, bag.HasInternal())
}
