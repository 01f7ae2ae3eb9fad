package resolve

import (
	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/types"
)

// Pass resolves every FunctionCall in a Program's function bodies per §4.2.
// One Pass is built per Program and reused across all of its functions; it
// owns no unification state of its own (each call site gets its own
// Unifier, per §5: "a Substitution is never shared between functions").
type Pass struct {
	Program *hir.Program
	Store   *InstanceStore
	Bag     *diag.Bag
}

// NewPass builds a resolution pass over prog, indexing its instance store.
func NewPass(prog *hir.Program, bag *diag.Bag) *Pass {
	return &Pass{Program: prog, Store: NewInstanceStore(prog), Bag: bag}
}

// Run resolves every call in fn's body, returning false if any call could
// not be resolved (the caller must not advance fn past this pass — §7
// propagation policy).
func (p *Pass) Run(fn *hir.Function) bool {
	if fn.Body == nil {
		return true
	}
	ok := true
	b := fn.Body
	for _, blockID := range b.Order {
		blk := b.Blocks[blockID]
		for i := 0; i < len(blk.Instructions); i++ {
			call, isCall := blk.Instructions[i].Kind.(*hir.FunctionCall)
			if !isCall || call.Call.Context != nil {
				continue
			}
			loc := blk.Instructions[i].Location
			if !p.resolveCall(fn, b, blockID, i, call, loc) {
				ok = false
			}
		}
	}
	return ok
}

// resolveCall implements §4.2's five-step procedure for one call site.
func (p *Pass) resolveCall(caller *hir.Function, body *hir.Body, blockID hir.BlockId, idx int, call *hir.FunctionCall, loc diag.Location) bool {
	target, found := p.Program.Function(call.Call.Name.String())
	if !found {
		p.Bag.Add(diag.Report{
			Kind:   diag.KindUnknownFunction,
			Slogan: "call to unknown function " + call.Call.Name.String(),
			Entries: []diag.Entry{{Note: "no function with this name is registered", Location: loc}},
		})
		return false
	}

	// Step 1: instantiate target's type (and constraints) with fresh vars.
	alloc := types.NewTypeVarAllocator()
	subst := alloc.Instantiate(target.TypeParams)
	unifier := types.NewUnifier()

	paramTypes := make([]types.Type, len(target.Params))
	for i, param := range target.Params {
		paramTypes[i] = types.ApplyGeneric(param.Type, subst)
	}
	resultType := types.ApplyGeneric(target.Result, subst)
	constraints := make([]hir.Constraint, len(target.ConstraintContext))
	for i, c := range target.ConstraintContext {
		constraints[i] = instantiateConstraint(c, subst)
	}

	// Step 2: rewrite implicit Self from the first argument, if any.
	if len(target.Params) > 0 && target.Params[0].IsSelf && len(call.Call.Args) > 0 {
		selfType := call.Call.Args[0].Type()
		for i := range paramTypes {
			paramTypes[i] = substituteSelf(paramTypes[i], selfType)
		}
		resultType = substituteSelf(resultType, selfType)
		for i := range constraints {
			constraints[i] = substituteSelfConstraint(constraints[i], selfType)
		}
	}

	// Step 3: unify args with params (recording Converters for ref/value
	// mismatches) and dest with result.
	var converterInserts int
	for i, arg := range call.Call.Args {
		if i >= len(paramTypes) {
			p.Bag.Add(diag.Report{
				Kind:    diag.KindArgCountMismatch,
				Slogan:  "too many arguments to " + call.Call.Name.String(),
				Entries: []diag.Entry{{Location: loc}},
			})
			return false
		}
		needsConverter, err := unifyArg(unifier, paramTypes[i], arg.Type())
		if err != nil {
			p.Bag.Add(diag.Report{
				Kind:   diag.KindTypeMismatch,
				Slogan: "argument type mismatch in call to " + call.Call.Name.String(),
				Entries: []diag.Entry{{Note: err.Error(), Location: loc}},
			})
			return false
		}
		if needsConverter {
			conv := body.FreshTemp(unifier.Apply(paramTypes[i]))
			body.InsertAt(blockID, idx+converterInserts, &hir.Instruction{
				Kind:     &hir.Converter{Dest: conv, Src: arg},
				Implicit: true,
				Location: loc,
			})
			converterInserts++
			call.Call.Args[i] = conv
		}
	}
	if len(paramTypes) > len(call.Call.Args) {
		p.Bag.Add(diag.Report{
			Kind:    diag.KindArgCountMismatch,
			Slogan:  "too few arguments to " + call.Call.Name.String(),
			Entries: []diag.Entry{{Location: loc}},
		})
		return false
	}
	destType := call.Dest.Type()
	if destType == nil {
		destType = resultType
	}
	if err := unifier.Unify(destType, resultType); err != nil {
		p.Bag.Add(diag.Report{
			Kind:   diag.KindTypeMismatch,
			Slogan: "result type mismatch in call to " + call.Call.Name.String(),
			Entries: []diag.Entry{{Note: err.Error(), Location: loc}},
		})
		return false
	}
	body.SetType(call.Dest, unifier.Apply(destType))

	// Step 4/5: resolve each constraint to a fixpoint.
	refs, unresolved := p.resolveConstraints(caller, unifier, constraints, loc, call.Call.Name.String())
	if unresolved {
		return false
	}
	call.Call.InstanceRefs = refs

	// Retarget a trait-member call to its concrete instance member, if the
	// target itself is a trait member declaration resolved via a Direct ref.
	if target.Kind == hir.TraitMemberDecl && len(refs) > 0 && refs[0].IsDirect {
		if inst := p.instanceByName(refs[0].Direct); inst != nil {
			if memberName, ok := memberQName(inst, shortName(target.Name)); ok {
				call.Call.Name = memberName
			}
		}
	}

	call.Call.Context = &ident.Context{
		TypeArgs: typeArgsFromSubst(subst, unifier, target.TypeParams),
	}
	return true
}

// resolveConstraints iterates §4.2 step 4 to a fixpoint, returning the
// instance references in the same order as the needed constraints (§4.2
// step 5: "the number of recorded instance references must equal the
// number of originally needed constraints, in the same order").
func (p *Pass) resolveConstraints(caller *hir.Function, unifier *types.Unifier, constraints []hir.Constraint, loc diag.Location, calleeName string) ([]hir.InstanceRef, bool) {
	refs := make([]hir.InstanceRef, len(constraints))
	resolved := make([]bool, len(constraints))
	remaining := len(constraints)

	for remaining > 0 {
		progressed := false
		for i, c := range constraints {
			if resolved[i] {
				continue
			}
			// 4(a): match against a caller-side known constraint.
			if idx, ok := p.matchIndirect(caller, unifier, c); ok {
				refs[i] = hir.InstanceRef{Indirect: idx, IsDirect: false}
				resolved[i] = true
				remaining--
				progressed = true
				continue
			}
			// 4(b): search the instance store.
			selfType := types.Type(nil)
			if len(c.TypeArgs) > 0 {
				selfType = unifier.Apply(c.TypeArgs[0])
			}
			var rest []types.Type
			if len(c.TypeArgs) > 1 {
				for _, t := range c.TypeArgs[1:] {
					rest = append(rest, unifier.Apply(t))
				}
			}
			matches := p.Store.search(unifier, c.Trait.String(), selfType, rest)
			switch len(matches) {
			case 0:
				// NotFound — defer, might resolve after another constraint
				// narrows the substitution this round.
			case 1:
				m := matches[0]
				for k, v := range m.sub.Snapshot() {
					unifier.Substitution().Bind(k, v)
				}
				refs[i] = hir.InstanceRef{Direct: m.instance.Name, IsDirect: true}
				resolved[i] = true
				remaining--
				progressed = true
			default:
				// Ambiguous — defer; report only once no further progress
				// is possible this pass.
			}
		}
		if !progressed {
			break
		}
	}

	if remaining > 0 {
		for i, c := range constraints {
			if resolved[i] {
				continue
			}
			selfType := types.Type(nil)
			if len(c.TypeArgs) > 0 {
				selfType = unifier.Apply(c.TypeArgs[0])
			}
			var rest []types.Type
			if len(c.TypeArgs) > 1 {
				for _, t := range c.TypeArgs[1:] {
					rest = append(rest, unifier.Apply(t))
				}
			}
			matches := p.Store.search(unifier, c.Trait.String(), selfType, rest)
			kind := diag.KindNoImplementationFound
			slogan := "no implementation of " + c.Trait.String() + " found, required by call to " + calleeName
			if len(matches) > 1 {
				kind = diag.KindAmbiguousImplementation
				slogan = "ambiguous implementations of " + c.Trait.String() + ", required by call to " + calleeName
			}
			p.Bag.Add(diag.Report{Kind: kind, Slogan: slogan, Entries: []diag.Entry{{Location: loc}}})
		}
		return nil, true
	}
	return refs, false
}

// matchIndirect looks for a constraint already present in caller's own
// constraint context that can satisfy c (§4.2 step 4(a)).
func (p *Pass) matchIndirect(caller *hir.Function, unifier *types.Unifier, c hir.Constraint) (int, bool) {
	for idx, cc := range caller.ConstraintContext {
		if cc.Trait.String() != c.Trait.String() || len(cc.TypeArgs) != len(c.TypeArgs) {
			continue
		}
		trial := types.NewSubstitution()
		for k, v := range unifier.Substitution().Snapshot() {
			trial.Bind(k, v)
		}
		scratch := &types.Unifier{}
		scratch.AdoptSubstitution(trial)
		ok := true
		for i := range c.TypeArgs {
			if err := scratch.Unify(cc.TypeArgs[i], unifier.Apply(c.TypeArgs[i])); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for k, v := range trial.Snapshot() {
			unifier.Substitution().Bind(k, v)
		}
		return idx, true
	}
	return 0, false
}

func (p *Pass) instanceByName(name ident.QName) *hir.Instance {
	for _, list := range p.Store.byTrait {
		for _, inst := range list {
			if ident.Equal(inst.Name, name) {
				return inst
			}
		}
	}
	return nil
}

func shortName(q ident.QName) string {
	if item, ok := q.(ident.Item); ok {
		return item.Name
	}
	return q.String()
}

func instantiateConstraint(c hir.Constraint, subst map[string]types.Type) hir.Constraint {
	args := make([]types.Type, len(c.TypeArgs))
	for i, a := range c.TypeArgs {
		args[i] = types.ApplyGeneric(a, subst)
	}
	assertions := make([]hir.AssociatedTypeAssertion, len(c.Assertions))
	for i, a := range c.Assertions {
		assertions[i] = hir.AssociatedTypeAssertion{AssocName: a.AssocName, Type: types.ApplyGeneric(a.Type, subst)}
	}
	return hir.Constraint{Trait: c.Trait, TypeArgs: args, Assertions: assertions}
}

func typeArgsFromSubst(subst map[string]types.Type, unifier *types.Unifier, params []types.TypeParam) []types.Type {
	out := make([]types.Type, len(params))
	for i, p := range params {
		out[i] = unifier.Apply(subst[p.Name])
	}
	return out
}

// substituteSelf replaces every SelfType occurrence in t with concrete.
func substituteSelf(t types.Type, concrete types.Type) types.Type {
	switch v := t.(type) {
	case *types.SelfType:
		return concrete
	case *types.Named:
		args := make([]types.Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = substituteSelf(a, concrete)
		}
		return &types.Named{Name: v.Name, Args: args}
	case *types.Tuple:
		elems := make([]types.Type, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = substituteSelf(e, concrete)
		}
		return &types.Tuple{Elems: elems}
	case *types.Function:
		params := make([]types.Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = substituteSelf(p, concrete)
		}
		return &types.Function{Params: params, Result: substituteSelf(v.Result, concrete)}
	case *types.Reference:
		return &types.Reference{Elem: substituteSelf(v.Elem, concrete)}
	case *types.Ptr:
		return &types.Ptr{Elem: substituteSelf(v.Elem, concrete)}
	case *types.Coroutine:
		return &types.Coroutine{Yield: substituteSelf(v.Yield, concrete), Return: substituteSelf(v.Return, concrete)}
	default:
		return t
	}
}

func substituteSelfConstraint(c hir.Constraint, concrete types.Type) hir.Constraint {
	args := make([]types.Type, len(c.TypeArgs))
	for i, a := range c.TypeArgs {
		args[i] = substituteSelf(a, concrete)
	}
	return hir.Constraint{Trait: c.Trait, TypeArgs: args, Assertions: c.Assertions}
}

// unifyArg unifies paramType with argType, but when exactly one side is a
// Reference and the other isn't, it unifies the underlying element types
// and reports that a Converter is needed instead of failing (§4.2 step 3).
func unifyArg(u *types.Unifier, paramType, argType types.Type) (bool, error) {
	pr, pIsRef := u.Apply(paramType).(*types.Reference)
	ar, aIsRef := u.Apply(argType).(*types.Reference)
	switch {
	case pIsRef && !aIsRef:
		return true, u.Unify(pr.Elem, argType)
	case !pIsRef && aIsRef:
		return true, u.Unify(paramType, ar.Elem)
	default:
		return false, u.Unify(paramType, argType)
	}
}
