// Package types implements the Type model of spec.md §3.1: a closed sum
// type of nine shapes plus unification variables, together with the
// Substitution and first-order occurs-checked Unifier that §4.1 requires.
//
// The sum-of-structs-behind-an-interface shape follows the teacher's
// internal/types package (Primitive/Struct/Enum/Function all implementing
// a marker IsType() method); the variant set and unification rules instead
// follow original_source's hir/Type.rs, since the teacher's Type model has
// no notion of borrow-tracked References, Never, or unification variables.
package types

import (
	"fmt"
	"strings"
)

// Type is any of the nine shapes enumerated in spec.md §3.1.
type Type interface {
	fmt.Stringer
	isType()
}

// QName is the minimal qualified-name contract Type needs; internal/ident
// satisfies it. Kept local to avoid an import cycle (ident.QName embeds
// []types.Type in its Context).
type QName interface {
	String() string
}

// Named is a nominal type applied to generic arguments.
type Named struct {
	Name QName
	Args []Type
}

func (*Named) isType() {}
func (n *Named) String() string {
	if len(n.Args) == 0 {
		return n.Name.String()
	}
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return n.Name.String() + "[" + strings.Join(parts, ", ") + "]"
}

// Tuple is a positional product; zero arity is unit.
type Tuple struct {
	Elems []Type
}

func (*Tuple) isType() {}
func (t *Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Function is an explicit function type.
type Function struct {
	Params []Type
	Result Type
}

func (*Function) isType() {}
func (f *Function) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.String()
	}
	ret := "void"
	if f.Result != nil {
		ret = f.Result.String()
	}
	return "fn(" + strings.Join(parts, ", ") + ") -> " + ret
}

// Reference is a borrowed type; it carries an implicit origin variable
// tracked separately by internal/borrow's ExtendedType, not here.
type Reference struct {
	Elem Type
}

func (*Reference) isType() {}
func (r *Reference) String() string { return "&" + r.Elem.String() }

// Ptr is a raw pointer with no borrow tracking.
type Ptr struct {
	Elem Type
}

func (*Ptr) isType() {}
func (p *Ptr) String() string { return "*" + p.Elem.String() }

// TypeVar is a unification variable identity.
type TypeVar int

// Var is a unification variable occurrence.
type Var struct {
	ID TypeVar
}

func (*Var) isType() {}
func (v *Var) String() string { return fmt.Sprintf("?%d", v.ID) }

// SelfType is the method-level `Self` placeholder, unified nominally.
type SelfType struct{}

func (*SelfType) isType() {}
func (*SelfType) String() string { return "Self" }

// Never is the bottom type; it inhabits every type for flow purposes and
// unifies with anything without introducing constraints.
type Never struct{}

func (*Never) isType() {}
func (*Never) String() string { return "!" }

// Void is the foreign-interface escape hatch for a valueless extern result.
type Void struct{}

func (*Void) isType() {}
func (*Void) String() string { return "void" }

// VoidPtr is an untyped foreign pointer.
type VoidPtr struct{}

func (*VoidPtr) isType() {}
func (*VoidPtr) String() string { return "void*" }

// Coroutine is (yield type, return type).
type Coroutine struct {
	Yield  Type
	Return Type
}

func (*Coroutine) isType() {}
func (c *Coroutine) String() string {
	return fmt.Sprintf("coroutine(%s, %s)", c.Yield, c.Return)
}

// Unit is the canonical 0-arity Tuple, used throughout as the "no value"
// result type (e.g. Drop's result, a block with no trailing expression).
func Unit() Type { return &Tuple{} }

// IsNever reports whether t is the bottom type.
func IsNever(t Type) bool {
	_, ok := t.(*Never)
	return ok
}

// TypeParam describes an unbound named generic parameter belonging to a
// function's constraint context, prior to monomorphisation. After
// monomorphisation (§3.1 invariant) no TypeParam or Var may remain.
type TypeParam struct {
	Name string
}

func (*TypeParam) isType() {}
func (t *TypeParam) String() string { return t.Name }
