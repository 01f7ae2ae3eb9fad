package types

// Substitution maps TypeVar to Type. Per §5, a Substitution is never shared
// between functions — each function processed gets its own allocator and
// unifier, so Substitution carries no synchronisation of its own.
type Substitution struct {
	bindings map[TypeVar]Type
}

// NewSubstitution creates an empty substitution.
func NewSubstitution() *Substitution {
	return &Substitution{bindings: make(map[TypeVar]Type)}
}

// Bind records var -> t. Callers are expected to have occurs-checked
// beforehand (Unifier.unify does this).
func (s *Substitution) Bind(v TypeVar, t Type) {
	s.bindings[v] = t
}

// Lookup returns the direct binding for v, if any (not walked through
// chains — use Apply for a fully-resolved type).
func (s *Substitution) Lookup(v TypeVar) (Type, bool) {
	t, ok := s.bindings[v]
	return t, ok
}

// Apply recursively replaces every bound Var in t with its resolution,
// walking chains of bound variables to a fixpoint. Applying the resulting
// type through Apply again is a no-op (§8 P2: unification is idempotent).
func (s *Substitution) Apply(t Type) Type {
	if t == nil {
		return nil
	}
	switch v := t.(type) {
	case *Var:
		if bound, ok := s.bindings[v.ID]; ok {
			return s.Apply(bound)
		}
		return v
	case *Named:
		args := mapTypes(s, v.Args)
		if sameSlice(args, v.Args) {
			return v
		}
		return &Named{Name: v.Name, Args: args}
	case *Tuple:
		elems := mapTypes(s, v.Elems)
		if sameSlice(elems, v.Elems) {
			return v
		}
		return &Tuple{Elems: elems}
	case *Function:
		params := mapTypes(s, v.Params)
		result := s.Apply(v.Result)
		if sameSlice(params, v.Params) && result == v.Result {
			return v
		}
		return &Function{Params: params, Result: result}
	case *Reference:
		elem := s.Apply(v.Elem)
		if elem == v.Elem {
			return v
		}
		return &Reference{Elem: elem}
	case *Ptr:
		elem := s.Apply(v.Elem)
		if elem == v.Elem {
			return v
		}
		return &Ptr{Elem: elem}
	case *Coroutine:
		y := s.Apply(v.Yield)
		r := s.Apply(v.Return)
		if y == v.Yield && r == v.Return {
			return v
		}
		return &Coroutine{Yield: y, Return: r}
	default:
		// SelfType, Never, Void, VoidPtr, TypeParam: no children to substitute.
		return t
	}
}

func mapTypes(s *Substitution, ts []Type) []Type {
	out := make([]Type, len(ts))
	changed := false
	for i, t := range ts {
		out[i] = s.Apply(t)
		if out[i] != t {
			changed = true
		}
	}
	if !changed {
		return ts
	}
	return out
}

func sameSlice(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ApplyGeneric substitutes every occurrence of a named generic parameter
// (TypeParam) using a name-keyed map, used during monomorphisation where
// the substitution is keyed by the function's own type-parameter names
// rather than by fresh unification variables (§4.5).
func ApplyGeneric(t Type, byName map[string]Type) Type {
	if t == nil {
		return nil
	}
	switch v := t.(type) {
	case *TypeParam:
		if repl, ok := byName[v.Name]; ok {
			return repl
		}
		return v
	case *Named:
		return &Named{Name: v.Name, Args: mapGeneric(v.Args, byName)}
	case *Tuple:
		return &Tuple{Elems: mapGeneric(v.Elems, byName)}
	case *Function:
		return &Function{Params: mapGeneric(v.Params, byName), Result: ApplyGeneric(v.Result, byName)}
	case *Reference:
		return &Reference{Elem: ApplyGeneric(v.Elem, byName)}
	case *Ptr:
		return &Ptr{Elem: ApplyGeneric(v.Elem, byName)}
	case *Coroutine:
		return &Coroutine{Yield: ApplyGeneric(v.Yield, byName), Return: ApplyGeneric(v.Return, byName)}
	default:
		return t
	}
}

func mapGeneric(ts []Type, byName map[string]Type) []Type {
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = ApplyGeneric(t, byName)
	}
	return out
}

// Snapshot returns a shallow copy of the substitution's bindings, used by
// internal/resolve to try a candidate instance's bindings without
// committing them to the unifier doing the search.
func (s *Substitution) Snapshot() map[TypeVar]Type {
	out := make(map[TypeVar]Type, len(s.bindings))
	for k, v := range s.bindings {
		out[k] = v
	}
	return out
}

// ContainsUnresolved reports whether t still mentions a Var, SelfType, or
// TypeParam anywhere in its structure — the post-monomorphisation invariant
// (§3.1, §8 P4) that must be false for every reachable type.
func ContainsUnresolved(t Type) bool {
	switch v := t.(type) {
	case nil:
		return false
	case *Var, *SelfType, *TypeParam:
		return true
	case *Named:
		for _, a := range v.Args {
			if ContainsUnresolved(a) {
				return true
			}
		}
		return false
	case *Tuple:
		for _, e := range v.Elems {
			if ContainsUnresolved(e) {
				return true
			}
		}
		return false
	case *Function:
		for _, p := range v.Params {
			if ContainsUnresolved(p) {
				return true
			}
		}
		return ContainsUnresolved(v.Result)
	case *Reference:
		return ContainsUnresolved(v.Elem)
	case *Ptr:
		return ContainsUnresolved(v.Elem)
	case *Coroutine:
		return ContainsUnresolved(v.Yield) || ContainsUnresolved(v.Return)
	default:
		return false
	}
}
