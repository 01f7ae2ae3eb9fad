package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourcelang/corec/internal/types"
)

type fakeQName string

func (f fakeQName) String() string { return string(f) }

func named(name string, args ...types.Type) *types.Named {
	return &types.Named{Name: fakeQName(name), Args: args}
}

func TestUnifyReferencesUnifyPointwise(t *testing.T) {
	u := types.NewUnifier()
	alloc := types.NewTypeVarAllocator()
	v := alloc.Fresh()

	err := u.Unify(&types.Reference{Elem: v}, &types.Reference{Elem: named("Int")})
	require.NoError(t, err)
	require.Equal(t, "Int", u.Apply(v).String())
}

func TestUnifyNeverUnifiesWithAnything(t *testing.T) {
	u := types.NewUnifier()
	require.NoError(t, u.Unify(&types.Never{}, named("Int")))
	require.NoError(t, u.Unify(named("String"), &types.Never{}))
}

func TestUnifySelfTypeIsNominal(t *testing.T) {
	u := types.NewUnifier()
	require.NoError(t, u.Unify(&types.SelfType{}, &types.SelfType{}))
	require.Error(t, u.Unify(&types.SelfType{}, named("Int")))
}

func TestUnifyFunctionRequiresEqualArity(t *testing.T) {
	u := types.NewUnifier()
	f1 := &types.Function{Params: []types.Type{named("Int")}, Result: named("Int")}
	f2 := &types.Function{Params: []types.Type{named("Int"), named("Int")}, Result: named("Int")}
	require.Error(t, u.Unify(f1, f2))
}

func TestUnifyOccursCheck(t *testing.T) {
	u := types.NewUnifier()
	alloc := types.NewTypeVarAllocator()
	v := alloc.Fresh()
	self := &types.Tuple{Elems: []types.Type{v}}
	err := u.Unify(v, self)
	require.Error(t, err)
}

// P2: applying a computed substitution twice yields the same type.
func TestApplyIsIdempotent(t *testing.T) {
	u := types.NewUnifier()
	alloc := types.NewTypeVarAllocator()
	v := alloc.Fresh()
	require.NoError(t, u.Unify(v, named("Int")))

	ty := named("Vec", v)
	once := u.Apply(ty)
	twice := u.Apply(once)
	require.Equal(t, once.String(), twice.String())
}

// L4: applying an identity substitution returns an equal value.
func TestIdentitySubstitutionIsNoop(t *testing.T) {
	sub := types.NewSubstitution()
	ty := named("Pair", named("Int"), named("String"))
	require.Equal(t, ty.String(), sub.Apply(ty).String())
}

func TestContainsUnresolved(t *testing.T) {
	alloc := types.NewTypeVarAllocator()
	v := alloc.Fresh()
	require.True(t, types.ContainsUnresolved(v))
	require.True(t, types.ContainsUnresolved(&types.SelfType{}))
	require.True(t, types.ContainsUnresolved(&types.TypeParam{Name: "T"}))
	require.False(t, types.ContainsUnresolved(named("Int")))
	require.True(t, types.ContainsUnresolved(named("Vec", v)))
}
