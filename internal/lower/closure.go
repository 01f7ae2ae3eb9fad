package lower

import (
	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/types"
)

// closureKey identifies a distinct function-type shape; every CreateClosure
// whose destination has this shape shares one synthesised enum.
type closureKey struct{ rendered string }

func keyOf(argTypes []types.Type, result types.Type) closureKey {
	k := "fn("
	for _, a := range argTypes {
		k += a.String() + ","
	}
	k += ")->"
	if result != nil {
		k += result.String()
	}
	return closureKey{rendered: k}
}

// closureInfo accumulates the variants discovered for one function-type
// shape, in first-seen order (mirrors ClosureStore's BTreeMap<ClosureKey,_>
// but keyed by discovery order rather than a derived sort, since Go maps
// don't order and spec.md doesn't require a particular variant numbering
// beyond "stable across a single compilation").
type closureInfo struct {
	name      ident.Closure
	instances []closureInstance
}

type closureInstance struct {
	envTypes []types.Type
	handler  ident.QName // the CreateClosure's own function name, for dedup
}

// ClosureLowering synthesises, for every distinct closure function-type
// shape observed, an enum of concrete closure instances plus a dispatch
// handler function, rewriting CreateClosure to a direct variant
// construction and DynamicFunctionCall to a FunctionCall against the
// handler (§4.6 closure lowering (A)).
type ClosureLowering struct {
	Program  *hir.Program
	closures map[closureKey]*closureInfo
}

// NewClosureLowering creates a ClosureLowering over prog.
func NewClosureLowering(prog *hir.Program) *ClosureLowering {
	return &ClosureLowering{Program: prog, closures: make(map[closureKey]*closureInfo)}
}

func (cl *ClosureLowering) infoFor(argTypes []types.Type, result types.Type) *closureInfo {
	k := keyOf(argTypes, result)
	info, ok := cl.closures[k]
	if !ok {
		info = &closureInfo{name: ident.Closure{ArgTypes: argTypes, Result: result}}
		cl.closures[k] = info
	}
	return info
}

// closureName returns the Named type standing in for a fn(argTypes)->result
// shape once lowering replaces every Function type with its enum.
func (cl *ClosureLowering) closureName(argTypes []types.Type, result types.Type) ident.QName {
	return cl.infoFor(argTypes, result).name
}

// RewriteType replaces every Function type reachable through t with the
// Named type of its synthesised closure enum (registering the shape as a
// side effect, same as RemoveTuples does for tuple shapes).
func (cl *ClosureLowering) RewriteType(t types.Type) types.Type {
	switch v := t.(type) {
	case *types.Function:
		return &types.Named{Name: cl.closureName(v.Params, v.Result)}
	case *types.Reference:
		return &types.Reference{Elem: cl.RewriteType(v.Elem)}
	case *types.Ptr:
		return &types.Ptr{Elem: cl.RewriteType(v.Elem)}
	case *types.Named:
		args := make([]types.Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = cl.RewriteType(a)
		}
		return &types.Named{Name: v.Name, Args: args}
	default:
		return t
	}
}

// addInstance registers envTypes as a new variant of the closure shape
// (argTypes, result), returning its ClosureInstance qname.
func (cl *ClosureLowering) addInstance(argTypes []types.Type, result types.Type, envTypes []types.Type, handler ident.QName) ident.QName {
	info := cl.infoFor(argTypes, result)
	index := len(info.instances)
	info.instances = append(info.instances, closureInstance{envTypes: envTypes, handler: handler})
	return ident.ClosureInstance{Parent: info.name, Index: index}
}

// RunFunction rewrites fn's CreateClosure/DynamicFunctionCall instructions
// and every Function-typed variable/parameter/result in place.
func (cl *ClosureLowering) RunFunction(fn *hir.Function) {
	for i := range fn.Params {
		fn.Params[i].Type = cl.RewriteType(fn.Params[i].Type)
	}
	fn.Result = cl.RewriteType(fn.Result)
	if fn.Body == nil {
		return
	}
	body := fn.Body
	for slot := 0; slot < body.NumSlots(); slot++ {
		v := body.VariableForSlot(slot)
		if v.Type() != nil {
			body.SetType(v, cl.RewriteType(v.Type()))
		}
	}
	for _, id := range body.Order {
		blk := body.Blocks[id]
		for i, instr := range blk.Instructions {
			switch k := instr.Kind.(type) {
			case *hir.CreateClosure:
				cl.lowerCreateClosure(blk, i, k, instr.Location)
			case *hir.DynamicFunctionCall:
				blk.Instructions[i] = cl.lowerDynamicCall(k, instr.Location)
			}
		}
	}
}

// lowerCreateClosure rewrites a CreateClosure in place into a direct
// FunctionCall against a freshly (or previously) registered variant
// constructor, per original_source's generateClosure: one struct holds the
// captured environment, one enum variant wraps it, and the variant
// constructor is synthesised with FunctionKind VariantCtor.
func (cl *ClosureLowering) lowerCreateClosure(blk *hir.Block, idx int, create *hir.CreateClosure, loc diag.Location) {
	dest := create.Dest
	var argTypes []types.Type
	var result types.Type
	switch t := dest.Type().(type) {
	case *types.Function:
		argTypes, result = t.Params, t.Result
	case *types.Named:
		// RunFunction has already retyped dest to its closure enum.
		if c, ok := t.Name.(ident.Closure); ok {
			argTypes, result = c.ArgTypes, c.Result
		}
	}
	envTypes := make([]types.Type, len(create.Info.Captures))
	for i, c := range create.Info.Captures {
		envTypes[i] = c.Type()
	}
	variantName := cl.addInstance(argTypes, result, envTypes, create.Info.Name)
	blk.Instructions[idx] = &hir.Instruction{
		Kind: &hir.FunctionCall{
			Dest: dest,
			Call: hir.CallInfo{Name: variantName, Args: create.Info.Captures},
		},
		Location: loc,
	}
}

// lowerDynamicCall rewrites DynamicFunctionCall(dest, closure, args) into
// FunctionCall(dest, ClosureCallHandler(closureEnum), [closure, args...]).
func (cl *ClosureLowering) lowerDynamicCall(call *hir.DynamicFunctionCall, loc diag.Location) *hir.Instruction {
	named, _ := call.Callee.Type().(*types.Named)
	handlerTarget := unknownClosure
	if named != nil {
		if qn, ok := named.Name.(ident.QName); ok {
			handlerTarget = qn
		}
	}
	args := append([]hir.Variable{call.Callee}, call.Args...)
	return &hir.Instruction{
		Kind: &hir.FunctionCall{
			Dest: call.Dest,
			Call: hir.CallInfo{Name: ident.Item{Parent: handlerTarget, Name: "call"}, Args: args},
		},
		Location: loc,
	}
}

// unknownClosure is a defensive placeholder qname used only if a
// DynamicFunctionCall's callee type was never resolved to a closure enum by
// an earlier pass — a caller bug upstream of this one, surfaced by a name
// that will fail function lookup loudly rather than silently.
var unknownClosure ident.QName = ident.Item{Name: "<unresolved-closure>"}

// Finish materialises, for every closure shape discovered during RunFunction
// calls, the synthesised enum, its per-instance env structs/constructors,
// and the dispatch handler function, registering them all into Program
// (§4.6's "generateClosure" step, run once after every function body has
// been walked).
func (cl *ClosureLowering) Finish() {
	for _, info := range cl.closures {
		cl.materialize(info)
	}
}

func (cl *ClosureLowering) materialize(info *closureInfo) {
	enumTy := &types.Named{Name: info.name}
	variants := make([]hir.Variant, len(info.instances))
	for i, inst := range info.instances {
		variantName := ident.ClosureInstance{Parent: info.name, Index: i}
		envStructName := ident.Item{Parent: variantName, Name: "env"}
		fields := make([]hir.Field, len(inst.envTypes))
		params := make([]hir.Parameter, len(inst.envTypes))
		for j, t := range inst.envTypes {
			fields[j] = hir.Field{Name: fieldName(j), Type: t}
			params[j] = hir.Parameter{Name: fieldName(j), Type: t}
		}
		cl.Program.AddStruct(&hir.Struct{Name: envStructName, Fields: fields})
		cl.Program.AddFunction(&hir.Function{
			Name:   envStructName,
			Params: params,
			Result: &types.Named{Name: envStructName},
			Kind:   hir.StructCtor,
		})
		variants[i] = hir.Variant{Name: variantName.String(), Items: []types.Type{&types.Named{Name: envStructName}}}
		cl.Program.AddFunction(&hir.Function{
			Name:         variantName,
			Params:       params,
			Result:       enumTy,
			Kind:         hir.VariantCtor,
			VariantIndex: i,
		})
	}
	cl.Program.AddEnum(&hir.Enum{Name: info.name, Variants: variants})

	handlerParams := make([]hir.Parameter, 0, len(info.name.ArgTypes)+1)
	for i, a := range info.name.ArgTypes {
		handlerParams = append(handlerParams, hir.Parameter{Name: fieldName(i), Type: a})
	}
	handlerParams = append([]hir.Parameter{{Name: "self", Type: enumTy}}, handlerParams...)
	cl.Program.AddFunction(&hir.Function{
		Name:   ident.Item{Parent: info.name, Name: "call"},
		Params: handlerParams,
		Result: info.name.Result,
		Kind:   hir.UserDefined,
		Body:   cl.buildHandlerBody(info, enumTy),
	})
}

// buildHandlerBody synthesises the EnumSwitch dispatch that recovers each
// variant's captured environment via Transform and forwards to its own
// closure-literal function, mirroring what original_source leaves for
// downstream MIR generation to fill in (there the handler body is absent
// and the backend special-cases ClosureCallHandler; here the handler gets
// a real HIR body since internal/mir doesn't special-case call targets).
func (cl *ClosureLowering) buildHandlerBody(info *closureInfo, enumTy *types.Named) *hir.Body {
	body := hir.NewBody()
	self := body.Param("self", enumTy, diag.Location{}, false)
	argVars := make([]hir.Variable, len(info.name.ArgTypes))
	for i, a := range info.name.ArgTypes {
		argVars[i] = body.Param(fieldName(i), a, diag.Location{}, false)
	}
	cases := make([]hir.EnumCase, len(info.instances))
	for i, inst := range info.instances {
		blk := body.NewBlock()
		envTy := &types.Named{Name: ident.Item{Parent: ident.ClosureInstance{Parent: info.name, Index: i}, Name: "env"}}
		env := body.FreshTemp(envTy)
		body.Append(blk, &hir.Instruction{Kind: &hir.Transform{Dest: env, Src: self, VariantIndex: i}})
		result := body.FreshTemp(info.name.Result)
		callArgs := append([]hir.Variable{env}, argVars...)
		body.Append(blk, &hir.Instruction{Kind: &hir.FunctionCall{
			Dest: result,
			Call: hir.CallInfo{Name: inst.handler, Args: callArgs},
		}})
		body.Append(blk, &hir.Instruction{Kind: &hir.Return{Value: result, HasValue: true}})
		cases[i] = hir.EnumCase{VariantIndex: i, HasVariantIndex: true, Branch: blk}
	}
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.EnumSwitch{Root: self, Cases: cases}})
	return body
}
