// Package resolve implements constraint expansion & call resolution (§4.2,
// C2): instantiating a callee's type with fresh variables, unifying
// arguments against parameters (recording Converters for reference/value
// mismatches), and resolving each outstanding trait constraint against
// either the caller's own constraint context (Indirect) or the module's
// instance store (Direct), to a fixpoint.
//
// Grounded on the teacher's internal/types/constraints.go
// (Trait/Method/AssociatedType/Environment.HasImpl) generalised from a bare
// existence check into an indexed, best-fit instance search, per
// original_source's FunctionCallResolver.rs.
package resolve

import (
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/types"
)

// InstanceStore indexes hir.Instances by trait name for the best-fit search
// of §4.2 step 4(b). Unlike the teacher's Environment (a bare
// trait-name/type-string -> bool map), it keeps the full Instance so a
// match can redirect a call to the instance's member and unify associated
// types.
type InstanceStore struct {
	byTrait map[string][]*hir.Instance
}

// NewInstanceStore builds a store from every instance registered on prog.
func NewInstanceStore(prog *hir.Program) *InstanceStore {
	s := &InstanceStore{byTrait: make(map[string][]*hir.Instance)}
	for _, inst := range prog.Instances {
		key := inst.TraitName.String()
		s.byTrait[key] = append(s.byTrait[key], inst)
	}
	return s
}

// candidate is one instance match attempt against a constraint.
type candidate struct {
	instance *hir.Instance
	sub      *types.Substitution
}

// search returns every instance of traitName whose SelfType/TypeArgs unify
// with selfType/typeArgs under the unifier's current substitution, without
// committing any of the trial bindings to the unifier itself.
func (s *InstanceStore) search(u *types.Unifier, traitName string, selfType types.Type, typeArgs []types.Type) []candidate {
	var out []candidate
	for _, inst := range s.byTrait[traitName] {
		trial := types.NewSubstitution()
		for k, v := range u.Substitution().Snapshot() {
			trial.Bind(k, v)
		}
		trialUnifier := &types.Unifier{}
		trialUnifier.AdoptSubstitution(trial)

		selfInst, typeArgsInst := instantiateInstance(inst)
		if err := trialUnifier.Unify(selfInst, selfType); err != nil {
			continue
		}
		ok := true
		for i := range typeArgsInst {
			if i >= len(typeArgs) {
				break
			}
			if err := trialUnifier.Unify(typeArgsInst[i], typeArgs[i]); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		out = append(out, candidate{instance: inst, sub: trial})
	}
	return out
}

// instantiateInstance gives a fresh-variable instantiation of inst's own
// generic parameters so a search doesn't accidentally unify two unrelated
// call sites' variables together through a shared instance definition.
func instantiateInstance(inst *hir.Instance) (types.Type, []types.Type) {
	alloc := types.NewTypeVarAllocator()
	byName := alloc.Instantiate(inst.TypeParams)
	self := types.ApplyGeneric(inst.SelfType, byName)
	args := make([]types.Type, len(inst.TypeArgs))
	for i, a := range inst.TypeArgs {
		args[i] = types.ApplyGeneric(a, byName)
	}
	return self, args
}

// FindInstance looks up a single best-fit instance of traitName for
// selfType, with no unresolved type arguments of its own — the shape
// internal/mono's AutoDropFn synthesis needs to check for a user-supplied
// drop/clone implementation of a concrete, already-monomorphized type.
func (s *InstanceStore) FindInstance(traitName string, selfType types.Type) (*hir.Instance, bool) {
	u := &types.Unifier{}
	u.AdoptSubstitution(types.NewSubstitution())
	cands := s.search(u, traitName, selfType, nil)
	if len(cands) == 0 {
		return nil, false
	}
	return cands[0].instance, true
}

// CloneFunctionFor is the dedicated Clone convenience resolver of §4.2
// ("Clone and Drop calls have dedicated convenience resolvers that look up
// the trait function, resolve it once, then resolve the selected instance
// member to obtain the final name"): find t's Clone instance, then resolve
// its "clone" member to a concrete qname. It satisfies
// internal/borrow.CopyChecker, so the pipeline wires an *InstanceStore
// directly into the implicit-clone rewrite with no adapter type needed.
func (s *InstanceStore) CloneFunctionFor(t types.Type) (ident.QName, bool) {
	inst, ok := s.FindInstance("Clone", t)
	if !ok {
		return nil, false
	}
	return memberQName(inst, "clone")
}

// DropFunctionFor is Drop's counterpart, used by internal/mono's AutoDropFn
// synthesis to find a user-supplied drop implementation for a concrete
// type before falling back to field-by-field recursive dropping.
func (s *InstanceStore) DropFunctionFor(t types.Type) (ident.QName, bool) {
	inst, ok := s.FindInstance("Drop", t)
	if !ok {
		return nil, false
	}
	return memberQName(inst, "drop")
}

// MemberName exposes memberQName for callers outside this package that
// already hold a *hir.Instance.
func MemberName(inst *hir.Instance, shortName string) (ident.QName, bool) {
	return memberQName(inst, shortName)
}

// memberQName returns the qname of member's concrete implementation within
// inst, redirecting a trait member call to its instance definition while
// preserving the member's own short name (§4.2 step 4(b): "redirect the
// call's name to the instance-member name with the same short name").
func memberQName(inst *hir.Instance, shortName string) (ident.QName, bool) {
	q, ok := inst.Members[shortName]
	return q, ok
}
