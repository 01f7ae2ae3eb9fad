package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/resolve"
	"github.com/sourcelang/corec/internal/types"
)

func q(name string) ident.QName { return ident.Item{Name: name} }

func TestResolveCallInstantiatesGenericFunction(t *testing.T) {
	prog := hir.NewProgram()

	identityFn := &hir.Function{
		Name:       q("identity"),
		TypeParams: []types.TypeParam{{Name: "T"}},
		Params:     []hir.Parameter{{Name: "x", Type: &types.TypeParam{Name: "T"}}},
		Result:     &types.TypeParam{Name: "T"},
		Kind:       hir.UserDefined,
	}
	prog.AddFunction(identityFn)

	caller := &hir.Function{Name: q("main"), Kind: hir.UserDefined}
	body := hir.NewBody()
	caller.Body = body

	intType := &types.Named{Name: q("Int")}
	arg := body.NamedLocal("n", intType, diag.Location{}, false)
	dest := body.FreshUntyped()
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.FunctionCall{
		Dest: dest,
		Call: hir.CallInfo{Name: q("identity"), Args: []hir.Variable{arg}},
	}})

	bag := diag.NewBag("test-build")
	pass := resolve.NewPass(prog, bag)
	ok := pass.Run(caller)

	require.True(t, ok, "expected no diagnostics, got %v", bag.Reports())
	require.Empty(t, bag.Reports())

	call := body.Blocks[body.Entry].Instructions[0].Kind.(*hir.FunctionCall)
	require.NotNil(t, call.Call.Context)
	require.Equal(t, "Int", dest.Type().String())
}

func TestResolveCallReportsUnknownFunction(t *testing.T) {
	prog := hir.NewProgram()
	caller := &hir.Function{Name: q("main"), Kind: hir.UserDefined}
	body := hir.NewBody()
	caller.Body = body
	dest := body.FreshUntyped()
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.FunctionCall{
		Dest: dest,
		Call: hir.CallInfo{Name: q("nonexistent")},
	}})

	bag := diag.NewBag("test-build")
	pass := resolve.NewPass(prog, bag)
	ok := pass.Run(caller)

	require.False(t, ok)
	require.Len(t, bag.Reports(), 1)
	require.Equal(t, diag.KindUnknownFunction, bag.Reports()[0].Kind)
}

func TestResolveCallResolvesTraitConstraintViaInstanceStore(t *testing.T) {
	prog := hir.NewProgram()

	cloneTrait := q("Clone")
	intType := &types.Named{Name: q("Int")}
	prog.Instances = append(prog.Instances, &hir.Instance{
		Name:      q("impl Clone for Int"),
		TraitName: cloneTrait,
		SelfType:  intType,
	})

	// printClone[T: Clone](x: T) requires a Clone instance for whatever T
	// it's called with.
	printCloneFn := &hir.Function{
		Name:       q("printClone"),
		TypeParams: []types.TypeParam{{Name: "T"}},
		Params:     []hir.Parameter{{Name: "x", Type: &types.TypeParam{Name: "T"}}},
		Result:     types.Unit(),
		Kind:       hir.UserDefined,
		ConstraintContext: []hir.Constraint{
			{Trait: cloneTrait, TypeArgs: []types.Type{&types.TypeParam{Name: "T"}}},
		},
	}
	prog.AddFunction(printCloneFn)

	caller := &hir.Function{Name: q("main"), Kind: hir.UserDefined}
	body := hir.NewBody()
	caller.Body = body
	arg := body.NamedLocal("n", intType, diag.Location{}, false)
	dest := body.FreshTemp(types.Unit())
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.FunctionCall{
		Dest: dest,
		Call: hir.CallInfo{Name: q("printClone"), Args: []hir.Variable{arg}},
	}})

	bag := diag.NewBag("test-build")
	pass := resolve.NewPass(prog, bag)
	ok := pass.Run(caller)

	require.True(t, ok, "expected no diagnostics, got %v", bag.Reports())
	call := body.Blocks[body.Entry].Instructions[0].Kind.(*hir.FunctionCall)
	require.Len(t, call.Call.InstanceRefs, 1)
	require.True(t, call.Call.InstanceRefs[0].IsDirect)
	require.Equal(t, "impl Clone for Int", call.Call.InstanceRefs[0].Direct.String())
}

func TestCloneAndDropFunctionForResolveInstanceMembers(t *testing.T) {
	prog := hir.NewProgram()
	intType := &types.Named{Name: q("Int")}
	prog.Instances = append(prog.Instances,
		&hir.Instance{
			Name: q("impl Clone for Int"), TraitName: q("Clone"), SelfType: intType,
			Members: map[string]ident.QName{"clone": q("Int::clone")},
		},
		&hir.Instance{
			Name: q("impl Drop for Int"), TraitName: q("Drop"), SelfType: intType,
			Members: map[string]ident.QName{"drop": q("Int::drop")},
		},
	)
	store := resolve.NewInstanceStore(prog)

	clone, ok := store.CloneFunctionFor(intType)
	require.True(t, ok)
	require.Equal(t, "Int::clone", clone.String())

	drop, ok := store.DropFunctionFor(intType)
	require.True(t, ok)
	require.Equal(t, "Int::drop", drop.String())

	strType := &types.Named{Name: q("String")}
	_, ok = store.CloneFunctionFor(strType)
	require.False(t, ok)
}
