// Package ident implements qualified names (spec.md §3.2): an ordered path
// with monomorphization/canonicalisation/lambda/closure/coroutine
// extensions used to name every Function, Struct, Enum, Trait and Instance
// in a Program.
package ident

import (
	"fmt"
	"strings"

	"github.com/sourcelang/corec/internal/types"
)

// QName is a qualified name. It is a closed sum type following the teacher's
// pattern of a marker interface method over a family of structs (see
// internal/types.Type.IsType in the teacher repo).
type QName interface {
	fmt.Stringer
	isQName()
}

// Module names a module path segment, e.g. Module("std", "io").
type Module struct{ Segments []string }

func (Module) isQName() {}
func (m Module) String() string { return strings.Join(m.Segments, "::") }

// Item names a top-level item within a parent scope.
type Item struct {
	Parent QName
	Name   string
}

func (Item) isQName() {}
func (i Item) String() string {
	if i.Parent == nil {
		return i.Name
	}
	return i.Parent.String() + "::" + i.Name
}

// HandlerResolution is the effect/implicit resolution captured in a
// Context: which effect handler or implicit value satisfies each
// effect/implicit requirement of a function at a given call site.
type HandlerResolution struct {
	// Handlers maps an effect/implicit member name to the qname of the
	// handler/implicit chosen for it.
	Handlers map[string]QName
}

// Equal reports structural equality of two HandlerResolutions, used to
// decide whether two Contexts (and therefore two monomorphic keys) match.
func (h HandlerResolution) Equal(o HandlerResolution) bool {
	if len(h.Handlers) != len(o.Handlers) {
		return false
	}
	for k, v := range h.Handlers {
		ov, ok := o.Handlers[k]
		if !ok || ov.String() != v.String() {
			return false
		}
	}
	return true
}

// InstanceChoice is one element of a Context's chosen-instance list: either
// a concrete instance name (Direct) or an index into the caller's own
// constraint context (Indirect), matching §4.2 step 4's two resolution
// shapes.
type InstanceChoice struct {
	Direct   QName // non-nil for a direct instance pick
	Indirect int   // valid when Direct == nil; index into caller constraints
	IsDirect bool
}

func (c InstanceChoice) String() string {
	if c.IsDirect {
		return "direct(" + c.Direct.String() + ")"
	}
	return fmt.Sprintf("indirect(%d)", c.Indirect)
}

// Context is the tuple (concrete type args, effect/implicit resolution,
// chosen instance list) from spec.md §3.2. Two monomorphic specialisations
// are the same name iff their Contexts are equal.
type Context struct {
	TypeArgs  []types.Type
	Handlers  HandlerResolution
	Instances []InstanceChoice
}

// Equal reports whether two Contexts denote the same monomorphic key.
func (c Context) Equal(o Context) bool {
	if len(c.TypeArgs) != len(o.TypeArgs) || len(c.Instances) != len(o.Instances) {
		return false
	}
	for i := range c.TypeArgs {
		if c.TypeArgs[i].String() != o.TypeArgs[i].String() {
			return false
		}
	}
	for i := range c.Instances {
		if c.Instances[i].String() != o.Instances[i].String() {
			return false
		}
	}
	return c.Handlers.Equal(o.Handlers)
}

func (c Context) String() string {
	var parts []string
	for _, t := range c.TypeArgs {
		parts = append(parts, t.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Monomorphized names a specialisation of parent under ctx.
type Monomorphized struct {
	Parent QName
	Ctx    Context
}

func (Monomorphized) isQName() {}
func (m Monomorphized) String() string { return m.Parent.String() + m.Ctx.String() }

// Canonical names the member of a trait chosen for a list of type
// arguments (the instance-member redirection target from §4.2 step 4a).
type Canonical struct {
	Parent    QName
	TraitName string
	TypeArgs  []types.Type
}

func (Canonical) isQName() {}
func (c Canonical) String() string {
	var parts []string
	for _, t := range c.TypeArgs {
		parts = append(parts, t.String())
	}
	return fmt.Sprintf("%s#%s[%s]", c.Parent, c.TraitName, strings.Join(parts, ","))
}

// Lambda names the index-th anonymous closure literal inside parent.
type Lambda struct {
	Parent QName
	Index  int
}

func (Lambda) isQName() {}
func (l Lambda) String() string { return fmt.Sprintf("%s::lambda#%d", l.Parent, l.Index) }

// Closure names the synthesised enum type for a distinct
// (argTypes, resultType) closure shape (§4.6 closure lowering (A)).
type Closure struct {
	ArgTypes []types.Type
	Result   types.Type
}

func (Closure) isQName() {}
func (c Closure) String() string {
	var parts []string
	for _, t := range c.ArgTypes {
		parts = append(parts, t.String())
	}
	ret := "void"
	if c.Result != nil {
		ret = c.Result.String()
	}
	return fmt.Sprintf("Closure(%s)->%s", strings.Join(parts, ","), ret)
}

// ClosureInstance names the index-th concrete variant of a Closure enum.
type ClosureInstance struct {
	Parent QName
	Index  int
}

func (ClosureInstance) isQName() {}
func (c ClosureInstance) String() string { return fmt.Sprintf("%s::variant#%d", c.Parent, c.Index) }

// Coroutine names the synthesised state-machine enum for a (yield, return)
// coroutine shape.
type Coroutine struct {
	Yield  types.Type
	Return types.Type
}

func (Coroutine) isQName() {}
func (c Coroutine) String() string {
	return fmt.Sprintf("Coroutine(%s,%s)", c.Yield, c.Return)
}

// CoroutineInstance names one concrete resumable state machine generated
// for a coroutine body.
type CoroutineInstance struct {
	Name            QName
	StateMachineName string
}

func (CoroutineInstance) isQName() {}
func (c CoroutineInstance) String() string { return c.Name.String() + "::" + c.StateMachineName }

// DefaultArgFn names the synthesised thunk that supplies the index-th
// defaulted argument of parent.
type DefaultArgFn struct {
	Parent QName
	Index  int
}

func (DefaultArgFn) isQName() {}
func (d DefaultArgFn) String() string { return fmt.Sprintf("%s::default_arg#%d", d.Parent, d.Index) }

// AutoDropFn names the synthesised per-type drop glue function that a Drop
// instruction's monomorphized callee is rewritten to call (§4.5 AutoDropFn).
type AutoDropFn struct {
	For types.Type
}

func (AutoDropFn) isQName() {}
func (a AutoDropFn) String() string { return fmt.Sprintf("drop$%s", a.For) }

// Equal reports whether two qualified names denote the same entity. Names
// compare by rendered string, matching §5's ordering guarantee that
// iteration order over qname-keyed maps is the ordering over names.
func Equal(a, b QName) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}
