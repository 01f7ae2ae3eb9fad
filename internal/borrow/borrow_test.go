package borrow_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourcelang/corec/internal/borrow"
	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/types"
)

func q(name string) ident.QName { return ident.Item{Name: name} }

func TestBuildDataGroupsGroupsMutuallyRecursiveStructs(t *testing.T) {
	prog := hir.NewProgram()
	prog.AddStruct(&hir.Struct{Name: q("A"), Fields: []hir.Field{{Name: "b", Type: &types.Named{Name: q("B")}}}})
	prog.AddStruct(&hir.Struct{Name: q("B"), Fields: []hir.Field{{Name: "a", Type: &types.Named{Name: q("A")}}}})
	prog.AddStruct(&hir.Struct{Name: q("Leaf"), Fields: []hir.Field{{Name: "n", Type: &types.Named{Name: q("Int")}}}})

	dg := borrow.BuildDataGroups(prog)
	require.Equal(t, dg.GroupOf("A"), dg.GroupOf("B"))
	require.NotEqual(t, dg.GroupOf("A"), dg.GroupOf("Leaf"))
}

func TestProfileBuilderProducesResultExtendedType(t *testing.T) {
	prog := hir.NewProgram()
	intType := &types.Named{Name: q("Int")}

	fn := &hir.Function{
		Name:   q("identity_ref"),
		Params: []hir.Parameter{{Name: "x", Type: &types.Reference{Elem: intType}}},
		Result: &types.Reference{Elem: intType},
		Kind:   hir.UserDefined,
	}
	body := hir.NewBody()
	x := body.Param("x", &types.Reference{Elem: intType}, diag.Location{}, false)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.Return{Value: x, HasValue: true}})
	fn.Body = body
	prog.AddFunction(fn)

	b := borrow.NewBuilder(prog)
	b.BuildAll()

	profile, ok := b.Store.Get("identity_ref")
	require.True(t, ok)
	require.Len(t, profile.Args, 1)
	require.NotEmpty(t, profile.Args[0].Vars)
	require.NotEmpty(t, profile.Result.Vars)
}

func TestCheckerAllowsRepeatedUseOfAReference(t *testing.T) {
	prog := hir.NewProgram()
	intType := &types.Named{Name: q("Int")}
	fn := &hir.Function{
		Name:   q("read_twice"),
		Params: []hir.Parameter{{Name: "x", Type: &types.Reference{Elem: intType}}},
		Result: types.Unit(),
		Kind:   hir.UserDefined,
	}
	body := hir.NewBody()
	x := body.Param("x", &types.Reference{Elem: intType}, diag.Location{}, false)
	tmp := body.FreshTemp(types.Unit())
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.Assign{LHS: tmp, RHS: x}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.Assign{LHS: tmp, RHS: x}})
	fn.Body = body
	prog.AddFunction(fn)

	b := borrow.NewBuilder(prog)
	b.BuildAll()

	extOf := map[int]borrow.ExtendedType{}
	bag := diag.NewBag("test")
	checker := borrow.NewChecker(bag, extOf)
	checker.Check(fn)

	require.Empty(t, bag.Reports())
}

func TestMovedAdapterReportsMovedOnlyAtScopeEndAfterMove(t *testing.T) {
	prog := hir.NewProgram()
	intType := &types.Named{Name: q("Int")}
	fn := &hir.Function{
		Name:   q("consume_one"),
		Params: []hir.Parameter{},
		Result: types.Unit(),
		Kind:   hir.UserDefined,
	}
	body := hir.NewBody()
	scope := hir.SyntaxBlockId{Path: "1"}
	n := body.NamedLocal("n", intType, diag.Location{}, false)
	m := body.NamedLocal("m", intType, diag.Location{}, false)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.BlockStart{ID: scope}})
	dest := body.FreshTemp(types.Unit())
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.FunctionCall{
		Dest: dest,
		Call: hir.CallInfo{Name: q("consume"), Args: []hir.Variable{n}},
	}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.BlockEnd{ID: scope}})
	fn.Body = body
	prog.AddFunction(fn)

	bag := diag.NewBag("test")
	checker := borrow.NewChecker(bag, map[int]borrow.ExtendedType{})
	checker.Check(fn)

	adapter := &borrow.MovedAdapter{Checker: checker, Body: body}
	require.True(t, adapter.WasMovedBeforeScopeEnd(n, scope), "n was passed by value before scope end")
	require.False(t, adapter.WasMovedBeforeScopeEnd(m, scope), "m was never moved")
}
