// Package lower implements the two structural lowerings of §4.6: tuple
// lowering (B), which replaces Tuple constructions and tuple types with
// nominal structs, and closure lowering (A), which replaces CreateClosure/
// DynamicFunctionCall with synthesised enum variants and a dispatch
// handler. Tuple lowering runs before closure lowering internally, since
// original_source's ClosureLowering.rs assumes tuples are already gone —
// see SPEC_FULL.md's "Supplemented features" for this ordering decision.
//
// Grounded on original_source/compiler/src/siko/backend/
// {closurelowering/ClosureLowering.rs, RemoveTuples.rs}.
package lower

import (
	"fmt"

	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/types"
)

// TupleLowering synthesises a nominal struct f0,f1,... for every distinct
// tuple arity/shape it observes, rewriting Tuple instructions to
// FunctionCalls against the synthesised constructor and FieldId::Indexed
// to FieldId::Named (§4.6 Tuple lowering (B)).
type TupleLowering struct {
	Program *hir.Program
	structs map[string]ident.QName // canonical shape key -> synthesised struct name
}

// NewTupleLowering creates a TupleLowering over prog.
func NewTupleLowering(prog *hir.Program) *TupleLowering {
	return &TupleLowering{Program: prog, structs: make(map[string]ident.QName)}
}

// shapeKey canonicalises a tuple element-type list into a lookup key; two
// tuple types with the same rendered element types share one struct.
func shapeKey(elems []types.Type) string {
	key := "tuple"
	for _, e := range elems {
		key += "/" + e.String()
	}
	return key
}

// structFor returns (creating if necessary) the synthesised struct name for
// a tuple shape.
func (tl *TupleLowering) structFor(elems []types.Type) ident.QName {
	key := shapeKey(elems)
	if name, ok := tl.structs[key]; ok {
		return name
	}
	name := ident.Item{Name: fmt.Sprintf("Tuple%d_%s", len(elems), shortHash(key))}
	fields := make([]hir.Field, len(elems))
	params := make([]hir.Parameter, len(elems))
	for i, e := range elems {
		fields[i] = hir.Field{Name: fieldName(i), Type: e}
		params[i] = hir.Parameter{Name: fieldName(i), Type: e}
	}
	tl.Program.AddStruct(&hir.Struct{Name: name, Fields: fields})
	tl.Program.AddFunction(&hir.Function{
		Name:   ctorQName(name),
		Params: params,
		Result: &types.Named{Name: name},
		Kind:   hir.StructCtor,
	})
	tl.structs[key] = name
	return name
}

func fieldName(i int) string { return fmt.Sprintf("f%d", i) }

// shortHash produces a short, deterministic, filesystem/identifier-safe
// suffix from key without pulling in a hashing dependency neither the
// teacher nor the rest of the pack exercises for this purpose — a simple
// FNV-1a fits, and is stdlib anyway.
func shortHash(key string) string {
	var h uint32 = 2166136261
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= 16777619
	}
	return fmt.Sprintf("%x", h)
}

// RewriteType replaces every Tuple type reachable through t with the
// synthesised struct's Named type, registering the struct as a side
// effect.
func (tl *TupleLowering) RewriteType(t types.Type) types.Type {
	switch v := t.(type) {
	case *types.Tuple:
		if len(v.Elems) == 0 {
			return t // unit stays a zero-arity product; nothing to lower
		}
		elems := make([]types.Type, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = tl.RewriteType(e)
		}
		return &types.Named{Name: tl.structFor(elems)}
	case *types.Reference:
		return &types.Reference{Elem: tl.RewriteType(v.Elem)}
	case *types.Ptr:
		return &types.Ptr{Elem: tl.RewriteType(v.Elem)}
	case *types.Named:
		args := make([]types.Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = tl.RewriteType(a)
		}
		return &types.Named{Name: v.Name, Args: args}
	case *types.Function:
		params := make([]types.Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = tl.RewriteType(p)
		}
		return &types.Function{Params: params, Result: tl.RewriteType(v.Result)}
	default:
		return t
	}
}

// RunFunction rewrites fn's parameter/result types and body in place.
func (tl *TupleLowering) RunFunction(fn *hir.Function) {
	for i := range fn.Params {
		fn.Params[i].Type = tl.RewriteType(fn.Params[i].Type)
	}
	fn.Result = tl.RewriteType(fn.Result)
	if fn.Body == nil {
		return
	}
	body := fn.Body
	for slot := 0; slot < body.NumSlots(); slot++ {
		v := body.VariableForSlot(slot)
		if v.Type() != nil {
			body.SetType(v, tl.RewriteType(v.Type()))
		}
	}
	for _, id := range body.Order {
		blk := body.Blocks[id]
		for i, instr := range blk.Instructions {
			switch k := instr.Kind.(type) {
			case *hir.Tuple:
				if len(k.Args) == 0 {
					continue // unit construction stays as-is
				}
				elemTypes := make([]types.Type, len(k.Args))
				for j, a := range k.Args {
					elemTypes[j] = a.Type()
				}
				ctorName := tl.structFor(elemTypes)
				blk.Instructions[i] = &hir.Instruction{
					Kind: &hir.FunctionCall{
						Dest: k.Dest,
						Call: hir.CallInfo{Name: ctorQName(ctorName), Args: k.Args},
					},
					Location: instr.Location,
				}
			case *hir.FieldRef:
				rewriteFieldPath(k.Path)
			case *hir.FieldAssign:
				rewriteFieldPath(k.Path)
			case *hir.AddressOfField:
				rewriteFieldPath(k.Path)
			}
		}
	}
}

// ctorQName names the constructor function synthesised for struct name.
func ctorQName(structName ident.QName) ident.QName {
	return ident.Item{Parent: structName, Name: "new"}
}

func rewriteFieldPath(path []hir.FieldInfo) {
	for i := range path {
		if path[i].Field.IsIndex {
			path[i].Field = hir.NamedField(fieldName(path[i].Field.Index))
		}
	}
}
