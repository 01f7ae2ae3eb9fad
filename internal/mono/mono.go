package mono

import (
	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/resolve"
	"github.com/sourcelang/corec/internal/types"
)

// Processor drives the monomorphization worklist of §4.5 over Src,
// emitting every reached specialization into Out.
type Processor struct {
	Src   *hir.Program
	Out   *hir.Program
	Store *resolve.InstanceStore
	Bag   *diag.Bag

	wl   *worklist
	done map[string]bool
}

// NewProcessor builds a Processor over src, with a fresh empty Out program.
func NewProcessor(src *hir.Program, bag *diag.Bag) *Processor {
	return &Processor{
		Src:   src,
		Out:   hir.NewProgram(),
		Store: resolve.NewInstanceStore(src),
		Bag:   bag,
		wl:    newWorklist(),
		done:  make(map[string]bool),
	}
}

// Run processes the worklist to exhaustion, seeded with a call to mainName
// (§4.5: "beginning with Function(main, [], {}, [])").
func (p *Processor) Run(mainName ident.QName) {
	p.wl.push(FunctionKey{Name: mainName})
	for {
		k, ok := p.wl.pop()
		if !ok {
			return
		}
		p.process(k)
	}
}

func (p *Processor) process(k Key) {
	if p.done[k.String()] {
		return
	}
	p.done[k.String()] = true
	switch key := k.(type) {
	case FunctionKey:
		p.processFunction(key)
	case StructKey:
		p.processStruct(key)
	case EnumKey:
		p.processEnum(key)
	case AutoDropFnKey:
		p.processAutoDropFn(key)
	}
}

// processFunction implements §4.5's five Function-processing steps.
func (p *Processor) processFunction(key FunctionKey) {
	fn, ok := p.Src.Function(key.Name.String())
	if !ok {
		p.Bag.Add(diag.Report{Kind: diag.KindInternal, Slogan: "monomorphization target not found: " + key.Name.String() + "[" + renderTypeArgs(key.TypeArgs) + "]"})
		return
	}
	// Step 1: trait-member declarations are never specialized directly —
	// every call site has already been redirected to a concrete instance
	// member by internal/resolve, or carries an Indirect ref this function's
	// own FunctionKey now resolves.
	if fn.Kind == hir.TraitMemberDecl {
		return
	}

	byName := substMap(fn.TypeParams, key.TypeArgs)
	monoName := key.MonoName()

	newFn := &hir.Function{
		Name:         monoName,
		Result:       types.ApplyGeneric(fn.Result, byName),
		Kind:         fn.Kind,
		VariantIndex: fn.VariantIndex,
		Header:       fn.Header,
		Target:       fn.Target,
		Attributes:   fn.Attributes,
		Location:     fn.Location,
	}
	newFn.Params = make([]hir.Parameter, len(fn.Params))
	for i, param := range fn.Params {
		newFn.Params[i] = hir.Parameter{
			IsSelf:  param.IsSelf,
			Name:    param.Name,
			Type:    types.ApplyGeneric(param.Type, byName),
			Mutable: param.Mutable,
		}
	}
	p.enqueueNamedTypeKeys(newFn.Result)
	for _, param := range newFn.Params {
		p.enqueueNamedTypeKeys(param.Type)
	}

	if fn.Body != nil {
		newFn.Body = hir.IdentityCopier{}.Clone(fn.Body)
		p.substituteBody(newFn.Body, byName)
		p.rewriteCalls(newFn.Body, fn, key)
		p.rewriteDrops(newFn.Body)
		p.flattenDoubleRefs(newFn.Body)
	}

	p.Out.AddFunction(newFn)
}

// substituteBody retypes every variable slot in body under byName.
func (p *Processor) substituteBody(body *hir.Body, byName map[string]types.Type) {
	for slot := 0; slot < body.NumSlots(); slot++ {
		v := body.VariableForSlot(slot)
		if v.Type() == nil {
			continue
		}
		concrete := types.ApplyGeneric(v.Type(), byName)
		body.SetType(v, concrete)
		p.enqueueNamedTypeKeys(concrete)
		if types.ContainsUnresolved(concrete) {
			p.Bag.Add(diag.Report{
				Kind:   diag.KindInternal,
				Slogan: "unresolved generic parameter survived monomorphization in " + v.Name(),
			})
		}
	}
	for _, id := range body.Order {
		for _, instr := range body.Blocks[id].Instructions {
			if sz, ok := instr.Kind.(*hir.Sizeof); ok {
				sz.TypeVar = types.ApplyGeneric(sz.TypeVar, byName)
				p.enqueueNamedTypeKeys(sz.TypeVar)
			}
		}
	}
}

// rewriteCalls resolves every FunctionCall's target to its concrete
// mono-name, given the generic caller (before substitution, to read its
// ConstraintContext/TypeParams) and the key this specialization was built
// from (§4.5 step 2: "crucially replacing each call target with its
// concrete name per the locked instance references").
func (p *Processor) rewriteCalls(body *hir.Body, genericCaller *hir.Function, key FunctionKey) {
	byName := substMap(genericCaller.TypeParams, key.TypeArgs)
	for _, id := range body.Order {
		blk := body.Blocks[id]
		for _, instr := range blk.Instructions {
			call, ok := instr.Kind.(*hir.FunctionCall)
			if !ok || call.Call.Context == nil {
				continue
			}
			calleeTypeArgs := make([]types.Type, len(call.Call.Context.TypeArgs))
			for i, t := range call.Call.Context.TypeArgs {
				calleeTypeArgs[i] = types.ApplyGeneric(t, byName)
				p.enqueueNamedTypeKeys(calleeTypeArgs[i])
			}
			instances := make([]ident.InstanceChoice, len(call.Call.InstanceRefs))
			for i, ref := range call.Call.InstanceRefs {
				if ref.IsDirect {
					instances[i] = ident.InstanceChoice{Direct: ref.Direct, IsDirect: true}
				} else if ref.Indirect < len(key.InstanceRefs) {
					instances[i] = key.InstanceRefs[ref.Indirect]
				}
			}
			calleeKey := FunctionKey{Name: call.Call.Name, TypeArgs: calleeTypeArgs, InstanceRefs: instances}
			call.Call.Name = calleeKey.MonoName()
			call.Call.Context = nil
			call.Call.InstanceRefs = nil
			p.wl.push(calleeKey)
		}
	}
}

// rewriteDrops replaces every Drop(res, v) with a call to v's (by-then
// concrete) type's auto-drop function, enqueuing the AutoDropFn key it
// needs (§4.5 step 2(4)).
func (p *Processor) rewriteDrops(body *hir.Body) {
	for _, id := range body.Order {
		blk := body.Blocks[id]
		for i, instr := range blk.Instructions {
			d, ok := instr.Kind.(*hir.Drop)
			if !ok {
				continue
			}
			key := AutoDropFnKey{For: d.Target.Type()}
			p.wl.push(key)
			blk.Instructions[i] = &hir.Instruction{
				Kind: &hir.FunctionCall{
					Dest: d.Result,
					Call: hir.CallInfo{Name: key.MonoName(), Args: []hir.Variable{d.Target}},
				},
				Implicit: instr.Implicit,
				Location: instr.Location,
			}
		}
	}
}

// flattenDoubleRefs rewrites Ref(dest, src) to Assign(dest, src) whenever
// substitution made both sides already reference-typed — a double
// reference that could not exist prior to monomorphization (§4.5 step
// 2(3)).
func (p *Processor) flattenDoubleRefs(body *hir.Body) {
	for _, id := range body.Order {
		blk := body.Blocks[id]
		for i, instr := range blk.Instructions {
			r, ok := instr.Kind.(*hir.Ref)
			if !ok {
				continue
			}
			_, destIsRef := r.Dest.Type().(*types.Reference)
			_, srcIsRef := r.Src.Type().(*types.Reference)
			if destIsRef && srcIsRef {
				blk.Instructions[i] = &hir.Instruction{
					Kind:     &hir.Assign{LHS: r.Dest, RHS: r.Src},
					Implicit: instr.Implicit,
					Location: instr.Location,
				}
			}
		}
	}
}

// processStruct instantiates a struct definition under key.TypeArgs (§4.5
// Struct processing).
func (p *Processor) processStruct(key StructKey) {
	s, ok := p.Src.Structs[key.Name.String()]
	if !ok {
		p.Bag.Add(diag.Report{Kind: diag.KindInternal, Slogan: "monomorphization target not found: " + key.Name.String() + "[" + renderTypeArgs(key.TypeArgs) + "]"})
		return
	}
	byName := substMap(s.TypeParams, key.TypeArgs)
	fields := make([]hir.Field, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = hir.Field{Name: f.Name, Type: types.ApplyGeneric(f.Type, byName)}
		p.enqueueNamedTypeKeys(fields[i].Type)
	}
	p.Out.AddStruct(&hir.Struct{Name: key.MonoName(), Fields: fields})
}

// processEnum instantiates an enum definition under key.TypeArgs.
func (p *Processor) processEnum(key EnumKey) {
	e, ok := p.Src.Enums[key.Name.String()]
	if !ok {
		p.Bag.Add(diag.Report{Kind: diag.KindInternal, Slogan: "monomorphization target not found: " + key.Name.String() + "[" + renderTypeArgs(key.TypeArgs) + "]"})
		return
	}
	byName := substMap(e.TypeParams, key.TypeArgs)
	variants := make([]hir.Variant, len(e.Variants))
	for i, v := range e.Variants {
		items := make([]types.Type, len(v.Items))
		for j, it := range v.Items {
			items[j] = types.ApplyGeneric(it, byName)
			p.enqueueNamedTypeKeys(items[j])
		}
		variants[i] = hir.Variant{Name: v.Name, Items: items}
	}
	p.Out.AddEnum(&hir.Enum{Name: key.MonoName(), Variants: variants})
}

// enqueueNamedTypeKeys recurses into t, enqueuing a Struct or Enum key for
// every Named head that resolves to a definition in Src (§4.5 processType:
// "recursively triggers Struct/Enum keys for every Named head").
func (p *Processor) enqueueNamedTypeKeys(t types.Type) {
	switch v := t.(type) {
	case *types.Named:
		name := v.Name.String()
		qn, isQName := v.Name.(ident.QName)
		if _, ok := p.Src.Structs[name]; ok && isQName {
			p.wl.push(StructKey{Name: qn, TypeArgs: v.Args})
		}
		if _, ok := p.Src.Enums[name]; ok && isQName {
			p.wl.push(EnumKey{Name: qn, TypeArgs: v.Args})
		}
		for _, a := range v.Args {
			p.enqueueNamedTypeKeys(a)
		}
	case *types.Reference:
		p.enqueueNamedTypeKeys(v.Elem)
	case *types.Ptr:
		p.enqueueNamedTypeKeys(v.Elem)
	case *types.Tuple:
		for _, e := range v.Elems {
			p.enqueueNamedTypeKeys(e)
		}
	case *types.Function:
		for _, param := range v.Params {
			p.enqueueNamedTypeKeys(param)
		}
		p.enqueueNamedTypeKeys(v.Result)
	case *types.Coroutine:
		p.enqueueNamedTypeKeys(v.Yield)
		p.enqueueNamedTypeKeys(v.Return)
	}
}
