// Package verify implements the optional type verifier of §2 step E,
// supplemented from
// original_source/compiler/src/siko/backend/TypeVerifier.rs: a pass run
// after drop insertion (D) and before monomorphisation (F) that
// re-unifies every instruction's operand types against the program's own
// struct/enum/function signatures, reporting diag.KindInternal instead of
// panicking on a mismatch. It exists purely as a debugging aid for the
// pipeline itself, not a user-facing diagnostic: by construction every
// earlier pass should already produce well-typed output, so a failure
// here means a bug in internal/lower, internal/borrow, or internal/drop.
package verify

import (
	"fmt"

	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/types"
)

// Verifier checks one Program's instructions for internally consistent
// operand types.
type Verifier struct {
	Program *hir.Program
	Bag     *diag.Bag
}

// New builds a Verifier over prog, reporting into bag.
func New(prog *hir.Program, bag *diag.Bag) *Verifier {
	return &Verifier{Program: prog, Bag: bag}
}

// Run verifies every function with a body.
func (v *Verifier) Run() {
	for _, name := range v.Program.FunctionOrder {
		fn := v.Program.Functions[name]
		if fn.Body == nil {
			continue
		}
		fv := &functionVerifier{v: v, fn: fn, u: &types.Unifier{}}
		fv.u.AdoptSubstitution(types.NewSubstitution())
		fv.run()
	}
}

type functionVerifier struct {
	v  *Verifier
	fn *hir.Function
	u  *types.Unifier
}

func (fv *functionVerifier) fail(format string, args ...interface{}) {
	fv.v.Bag.Add(diag.Report{
		Kind:   diag.KindInternal,
		Slogan: fmt.Sprintf("type verification failed in %s: %s", fv.fn.Name.String(), fmt.Sprintf(format, args...)),
	})
}

func (fv *functionVerifier) unify(a, b types.Type) {
	if a == nil || b == nil {
		return
	}
	if err := fv.u.Unify(a, b); err != nil {
		fv.fail("%s does not unify with %s", a, b)
	}
}

func (fv *functionVerifier) run() {
	for _, id := range fv.fn.Body.Order {
		for _, instr := range fv.fn.Body.Blocks[id].Instructions {
			fv.verify(instr)
		}
	}
}

// rootFieldType follows a field path, Reference/Ptr-transparently, through
// the program's own struct definitions, mirroring checkFieldInfo.
func (fv *functionVerifier) rootFieldType(root types.Type, path []hir.FieldInfo) types.Type {
	for _, step := range path {
		isRef := false
		if r, ok := root.(*types.Reference); ok {
			root = r.Elem
			isRef = true
		}
		if p, ok := root.(*types.Ptr); ok {
			root = p.Elem
		}
		var target types.Type
		switch named := root.(type) {
		case *types.Named:
			if s, ok := fv.v.Program.Structs[named.Name.String()]; ok {
				target = fieldType(s, step.Field)
			}
		case *types.Tuple:
			if step.Field.IsIndex && step.Field.Index < len(named.Elems) {
				target = named.Elems[step.Field.Index]
			}
		}
		if target == nil {
			target = step.Type
		}
		if isRef {
			target = &types.Reference{Elem: target}
		}
		if step.Type != nil {
			fv.unify(target, step.Type)
		}
		root = step.Type
		if root == nil {
			root = target
		}
	}
	return root
}

func fieldType(s *hir.Struct, id hir.FieldId) types.Type {
	name := id.Name
	if id.IsIndex {
		name = fmt.Sprintf("f%d", id.Index)
	}
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Type
		}
	}
	return nil
}

func (fv *functionVerifier) verify(instr *hir.Instruction) {
	switch k := instr.Kind.(type) {
	case *hir.FunctionCall:
		callee, ok := fv.v.Program.Function(k.Call.Name.String())
		if !ok {
			fv.fail("call to unknown function %s", k.Call.Name.String())
			return
		}
		if len(callee.Params) != len(k.Call.Args) {
			fv.fail("call to %s passes %d args, expects %d", k.Call.Name.String(), len(k.Call.Args), len(callee.Params))
			return
		}
		for i, a := range k.Call.Args {
			fv.unify(a.Type(), callee.Params[i].Type)
		}
		fv.unify(k.Dest.Type(), callee.Result)
	case *hir.Assign:
		fv.unify(k.RHS.Type(), k.LHS.Type())
	case *hir.Ref:
		fv.unify(&types.Reference{Elem: k.Src.Type()}, k.Dest.Type())
	case *hir.PtrOf:
		fv.unify(&types.Ptr{Elem: k.Src.Type()}, k.Dest.Type())
	case *hir.FieldRef:
		fv.rootFieldType(k.Receiver.Type(), k.Path)
		if len(k.Path) > 0 {
			fv.unify(k.Dest.Type(), k.Path[len(k.Path)-1].Type)
		}
	case *hir.FieldAssign:
		fv.rootFieldType(k.Root.Type(), k.Path)
		if len(k.Path) > 0 {
			fv.unify(k.RHS.Type(), k.Path[len(k.Path)-1].Type)
		}
	case *hir.AddressOfField:
		fv.rootFieldType(k.Receiver.Type(), k.Path)
	case *hir.Tuple:
		elems := make([]types.Type, len(k.Args))
		for i, a := range k.Args {
			elems[i] = a.Type()
		}
		fv.unify(&types.Tuple{Elems: elems}, k.Dest.Type())
	case *hir.Transform:
		named, ok := k.Src.Type().(*types.Named)
		if !ok {
			if ref, ok := k.Src.Type().(*types.Reference); ok {
				named, _ = ref.Elem.(*types.Named)
			}
		}
		if named == nil {
			return
		}
		e, ok := fv.v.Program.Enums[named.Name.String()]
		if !ok || k.VariantIndex >= len(e.Variants) {
			return
		}
		fv.unify(&types.Tuple{Elems: e.Variants[k.VariantIndex].Items}, k.Dest.Type())
	case *hir.Return:
		if k.HasValue {
			fv.unify(k.Value.Type(), fv.fn.Result)
		}
	case *hir.LoadPtr:
		fv.unify(&types.Ptr{Elem: k.Dest.Type()}, k.Src.Type())
	case *hir.StorePtr:
		fv.unify(&types.Ptr{Elem: k.Src.Type()}, k.Dest.Type())
	case *hir.MethodCall:
		fv.fail("MethodCall found in instruction verification")
	case *hir.Bind:
		fv.fail("Bind found in instruction verification")
	case *hir.Converter:
		fv.fail("Converter found in instruction verification")
	case *hir.DropPath, *hir.DropMetadata:
		fv.fail("drop-pipeline placeholder found in instruction verification")
	case *hir.DynamicFunctionCall:
		fv.fail("DynamicFunctionCall found in instruction verification")
	case *hir.CreateClosure:
		fv.fail("CreateClosure found in instruction verification")
	}
}
