package types

import "fmt"

// UnifyError is returned when two types cannot be unified. Callers in the
// resolver (§4.2) and profile builder (§4.3) translate this into the
// appropriate diag.Kind (TypeMismatch, ArgCountMismatch, ...); the types
// package itself stays diagnostic-agnostic so it has no dependency on
// internal/diag.
type UnifyError struct {
	Left, Right Type
	Reason      string
}

func (e *UnifyError) Error() string {
	return fmt.Sprintf("cannot unify %s with %s: %s", e.Left, e.Right, e.Reason)
}

// Unifier is a first-order, occurs-checked unifier over Type, per §4.1.
// It owns exactly one Substitution and is discarded with the pass that
// created it (§5).
type Unifier struct {
	sub *Substitution
}

// NewUnifier creates a Unifier with an empty substitution.
func NewUnifier() *Unifier {
	return &Unifier{sub: NewSubstitution()}
}

// Substitution returns the unifier's accumulated substitution.
func (u *Unifier) Substitution() *Substitution { return u.sub }

// AdoptSubstitution replaces the unifier's substitution wholesale, used by
// internal/resolve to seed a scratch unifier from a snapshot of another
// one's bindings before trying a candidate instance.
func (u *Unifier) AdoptSubstitution(sub *Substitution) { u.sub = sub }

// Apply resolves t fully under the unifier's current substitution.
func (u *Unifier) Apply(t Type) Type { return u.sub.Apply(t) }

// Unify unifies a and b, recording new bindings in the unifier's
// substitution. Rules (§3.1, §4.1):
//   - Never unifies with anything without binding.
//   - Reference(a) ~ Reference(b) unifies a ~ b; likewise Ptr.
//   - SelfType unifies nominally (only with another SelfType or by binding
//     to a concrete type when exactly one side is a bare Var standing for
//     Self — structural unification never descends into SelfType itself).
//   - Function(args1,r1) ~ Function(args2,r2) requires equal arity.
//   - Var unifies with anything via occurs-checked binding.
func (u *Unifier) Unify(a, b Type) error {
	a = u.sub.Apply(a)
	b = u.sub.Apply(b)

	if IsNever(a) || IsNever(b) {
		return nil
	}

	if av, ok := a.(*Var); ok {
		return u.bind(av.ID, b)
	}
	if bv, ok := b.(*Var); ok {
		return u.bind(bv.ID, a)
	}

	switch at := a.(type) {
	case *SelfType:
		if _, ok := b.(*SelfType); ok {
			return nil
		}
		return &UnifyError{Left: a, Right: b, Reason: "Self must unify nominally with Self"}
	case *Named:
		bt, ok := b.(*Named)
		if !ok || bt.Name.String() != at.Name.String() || len(bt.Args) != len(at.Args) {
			return &UnifyError{Left: a, Right: b, Reason: "named type mismatch"}
		}
		for i := range at.Args {
			if err := u.Unify(at.Args[i], bt.Args[i]); err != nil {
				return err
			}
		}
		return nil
	case *Tuple:
		bt, ok := b.(*Tuple)
		if !ok || len(bt.Elems) != len(at.Elems) {
			return &UnifyError{Left: a, Right: b, Reason: "tuple arity mismatch"}
		}
		for i := range at.Elems {
			if err := u.Unify(at.Elems[i], bt.Elems[i]); err != nil {
				return err
			}
		}
		return nil
	case *Function:
		bt, ok := b.(*Function)
		if !ok || len(bt.Params) != len(at.Params) {
			return &UnifyError{Left: a, Right: b, Reason: "function arity mismatch"}
		}
		for i := range at.Params {
			if err := u.Unify(at.Params[i], bt.Params[i]); err != nil {
				return err
			}
		}
		return u.Unify(at.Result, bt.Result)
	case *Reference:
		bt, ok := b.(*Reference)
		if !ok {
			return &UnifyError{Left: a, Right: b, Reason: "reference/value mismatch"}
		}
		return u.Unify(at.Elem, bt.Elem)
	case *Ptr:
		bt, ok := b.(*Ptr)
		if !ok {
			return &UnifyError{Left: a, Right: b, Reason: "pointer/value mismatch"}
		}
		return u.Unify(at.Elem, bt.Elem)
	case *Coroutine:
		bt, ok := b.(*Coroutine)
		if !ok {
			return &UnifyError{Left: a, Right: b, Reason: "coroutine mismatch"}
		}
		if err := u.Unify(at.Yield, bt.Yield); err != nil {
			return err
		}
		return u.Unify(at.Return, bt.Return)
	case *Void, *VoidPtr:
		if fmt.Sprintf("%T", a) != fmt.Sprintf("%T", b) {
			return &UnifyError{Left: a, Right: b, Reason: "void/voidptr mismatch"}
		}
		return nil
	case *TypeParam:
		if bt, ok := b.(*TypeParam); ok && bt.Name == at.Name {
			return nil
		}
		return &UnifyError{Left: a, Right: b, Reason: "unresolved generic parameter mismatch"}
	default:
		return &UnifyError{Left: a, Right: b, Reason: "unknown type shape"}
	}
}

func (u *Unifier) bind(v TypeVar, t Type) error {
	if tv, ok := t.(*Var); ok && tv.ID == v {
		return nil
	}
	if occurs(v, t, u.sub) {
		return &UnifyError{Left: &Var{ID: v}, Right: t, Reason: "occurs check failed"}
	}
	u.sub.Bind(v, t)
	return nil
}

func occurs(v TypeVar, t Type, sub *Substitution) bool {
	t = sub.Apply(t)
	switch tt := t.(type) {
	case *Var:
		return tt.ID == v
	case *Named:
		for _, a := range tt.Args {
			if occurs(v, a, sub) {
				return true
			}
		}
	case *Tuple:
		for _, e := range tt.Elems {
			if occurs(v, e, sub) {
				return true
			}
		}
	case *Function:
		for _, p := range tt.Params {
			if occurs(v, p, sub) {
				return true
			}
		}
		return occurs(v, tt.Result, sub)
	case *Reference:
		return occurs(v, tt.Elem, sub)
	case *Ptr:
		return occurs(v, tt.Elem, sub)
	case *Coroutine:
		return occurs(v, tt.Yield, sub) || occurs(v, tt.Return, sub)
	}
	return false
}
