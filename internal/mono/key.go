// Package mono implements the monomorphization worklist of spec.md §4.5
// (C4a): a FIFO worklist over a four-way Key sum (Function/Struct/Enum/
// AutoDropFn), specializing every generic definition it reaches starting
// from main, emitting a fully concrete Program with every FunctionCall
// target renamed to its specialized mono-name.
//
// Grounded directly on the teacher's internal/mir/monomorphize.go
// (worklist-free fixpoint loop over calls, mangleName/substituteType/
// substituteStmt family) generalized to the four-way Key sum and to an
// explicit FIFO worklist per §5's ordering guarantee, plus
// original_source/compiler/src/siko/monomorphizer/Monomorphizer.rs for the
// AutoDropFn synthesis rule.
package mono

import (
	"fmt"
	"strings"

	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/types"
)

// Key is the closed sum of specialization requests the worklist processes.
type Key interface {
	fmt.Stringer
	isKey()
}

// FunctionKey requests the specialization of a function under typeArgs,
// the caller's chosen handler resolution, and its locked instance
// references (§4.5: "Function(qname, typeArgs, handlers, instanceRefs)").
type FunctionKey struct {
	Name         ident.QName
	TypeArgs     []types.Type
	Handlers     ident.HandlerResolution
	InstanceRefs []ident.InstanceChoice
}

func (FunctionKey) isKey() {}
func (k FunctionKey) String() string {
	ctx := ident.Context{TypeArgs: k.TypeArgs, Handlers: k.Handlers, Instances: k.InstanceRefs}
	return ident.Monomorphized{Parent: k.Name, Ctx: ctx}.String()
}

// MonoName returns the qname the specialized function is emitted under.
func (k FunctionKey) MonoName() ident.QName {
	if len(k.TypeArgs) == 0 && len(k.InstanceRefs) == 0 && len(k.Handlers.Handlers) == 0 {
		return k.Name
	}
	ctx := ident.Context{TypeArgs: k.TypeArgs, Handlers: k.Handlers, Instances: k.InstanceRefs}
	return ident.Monomorphized{Parent: k.Name, Ctx: ctx}
}

// StructKey requests the specialization of a struct under typeArgs.
type StructKey struct {
	Name     ident.QName
	TypeArgs []types.Type
}

func (StructKey) isKey() {}
func (k StructKey) String() string {
	return ident.Monomorphized{Parent: k.Name, Ctx: ident.Context{TypeArgs: k.TypeArgs}}.String()
}

func (k StructKey) MonoName() ident.QName {
	if len(k.TypeArgs) == 0 {
		return k.Name
	}
	return ident.Monomorphized{Parent: k.Name, Ctx: ident.Context{TypeArgs: k.TypeArgs}}
}

// EnumKey requests the specialization of an enum under typeArgs.
type EnumKey struct {
	Name     ident.QName
	TypeArgs []types.Type
}

func (EnumKey) isKey() {}
func (k EnumKey) String() string {
	return ident.Monomorphized{Parent: k.Name, Ctx: ident.Context{TypeArgs: k.TypeArgs}}.String()
}

func (k EnumKey) MonoName() ident.QName {
	if len(k.TypeArgs) == 0 {
		return k.Name
	}
	return ident.Monomorphized{Parent: k.Name, Ctx: ident.Context{TypeArgs: k.TypeArgs}}
}

// AutoDropFnKey requests the synthesis of the per-type drop-glue function
// for a single fully concrete type.
type AutoDropFnKey struct {
	For types.Type
}

func (AutoDropFnKey) isKey() {}
func (k AutoDropFnKey) String() string { return ident.AutoDropFn{For: k.For}.String() }

func (k AutoDropFnKey) MonoName() ident.QName { return ident.AutoDropFn{For: k.For} }

// worklist is a FIFO queue of Keys with seen-set dedup, giving the
// deterministic processing order §5 requires (discovery order, not an
// unordered set).
type worklist struct {
	queue []Key
	seen  map[string]bool
}

func newWorklist() *worklist { return &worklist{seen: make(map[string]bool)} }

// push enqueues k unless an equal key has already been seen, returning
// whether it was newly added.
func (w *worklist) push(k Key) bool {
	s := k.String()
	if w.seen[s] {
		return false
	}
	w.seen[s] = true
	w.queue = append(w.queue, k)
	return true
}

func (w *worklist) pop() (Key, bool) {
	if len(w.queue) == 0 {
		return nil, false
	}
	k := w.queue[0]
	w.queue = w.queue[1:]
	return k, true
}

// substMap builds a name-keyed substitution from typeParams to typeArgs,
// positionally, for use with types.ApplyGeneric.
func substMap(typeParams []types.TypeParam, typeArgs []types.Type) map[string]types.Type {
	m := make(map[string]types.Type, len(typeParams))
	for i, p := range typeParams {
		if i < len(typeArgs) {
			m[p.Name] = typeArgs[i]
		}
	}
	return m
}

// renderTypeArgs is a small debug helper mirroring the teacher's mangleName
// shape; kept for parity with how mono errors are reported.
func renderTypeArgs(args []types.Type) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ",")
}
