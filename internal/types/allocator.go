package types

// TypeVarAllocator hands out fresh TypeVars. Per §5, one allocator is owned
// by a single pass instance over a single function and is discarded when
// that pass finishes — it is never shared across functions.
type TypeVarAllocator struct {
	next TypeVar
}

// NewTypeVarAllocator creates an allocator starting from zero.
func NewTypeVarAllocator() *TypeVarAllocator {
	return &TypeVarAllocator{}
}

// Fresh returns a new, never-before-issued TypeVar as a *Var.
func (a *TypeVarAllocator) Fresh() *Var {
	v := &Var{ID: a.next}
	a.next++
	return v
}

// Use records that id is already in use, bumping the allocator past it so
// subsequently allocated vars never collide with ids borrowed from another
// scope (mirrors the teacher's instantiation helpers which "useType" an
// externally-sourced var before allocating fresh ones alongside it).
func (a *TypeVarAllocator) Use(id TypeVar) {
	if id >= a.next {
		a.next = id + 1
	}
}

// Instantiate replaces every TypeParam named in params with a fresh Var,
// returning the substitution map so callers can also instantiate
// constraints under the same mapping (§4.2 step 1).
func (a *TypeVarAllocator) Instantiate(params []TypeParam) map[string]Type {
	subst := make(map[string]Type, len(params))
	for _, p := range params {
		subst[p.Name] = a.Fresh()
	}
	return subst
}
