package mono

import (
	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/types"
)

// processAutoDropFn synthesises the per-type drop-glue function for a
// single concrete type (§4.5 AutoDropFn(T)): call the user's own drop
// instance if one exists, then recursively drop every field/variant
// payload/element; unit is always returned.
func (p *Processor) processAutoDropFn(key AutoDropFnKey) {
	t := key.For
	name := key.MonoName()
	body := hir.NewBody()
	self := body.Param("self", t, diag.Location{}, false)

	userDrop, _ := p.Store.DropFunctionFor(t)
	if userDrop != nil {
		result := body.FreshTemp(types.Unit())
		body.Append(body.Entry, &hir.Instruction{Kind: &hir.FunctionCall{
			Dest: result,
			Call: hir.CallInfo{Name: userDrop, Args: []hir.Variable{self}},
		}})
	}

	handled := false
	if named, ok := t.(*types.Named); ok {
		if s, ok := p.Src.Structs[named.Name.String()]; ok {
			p.dropStructFields(body, body.Entry, self, s, named)
			handled = true
		} else if e, ok := p.Src.Enums[named.Name.String()]; ok {
			p.dropEnumVariants(body, self, e, named)
			handled = true
		}
	}
	if !handled {
		unit := body.FreshTemp(types.Unit())
		body.Append(body.Entry, &hir.Instruction{Kind: &hir.Tuple{Dest: unit}})
		body.Append(body.Entry, &hir.Instruction{Kind: &hir.Return{Value: unit, HasValue: true}})
	}
	p.Out.AddFunction(&hir.Function{
		Name: name, Params: []hir.Parameter{{Name: "self", Type: t}},
		Result: types.Unit(), Body: body, Kind: hir.UserDefined,
	})
}

// dropStructFields emits a FieldRef + recursive auto-drop call for every
// field of a struct instance, enqueuing each field type's own AutoDropFn.
func (p *Processor) dropStructFields(body *hir.Body, blk hir.BlockId, self hir.Variable, s *hir.Struct, instanceTy *types.Named) {
	byName := substMap(s.TypeParams, instanceTy.Args)
	for _, f := range s.Fields {
		fieldTy := types.ApplyGeneric(f.Type, byName)
		fv := body.FreshTemp(fieldTy)
		body.Append(blk, &hir.Instruction{Kind: &hir.FieldRef{
			Dest: fv, Receiver: self, Path: []hir.FieldInfo{{Field: hir.NamedField(f.Name), Type: fieldTy}},
		}})
		dropKey := AutoDropFnKey{For: fieldTy}
		p.wl.push(dropKey)
		result := body.FreshTemp(types.Unit())
		body.Append(blk, &hir.Instruction{Kind: &hir.FunctionCall{
			Dest: result,
			Call: hir.CallInfo{Name: dropKey.MonoName(), Args: []hir.Variable{fv}},
		}})
	}
	unit := body.FreshTemp(types.Unit())
	body.Append(blk, &hir.Instruction{Kind: &hir.Tuple{Dest: unit}})
	body.Append(blk, &hir.Instruction{Kind: &hir.Return{Value: unit, HasValue: true}})
}

// dropEnumVariants emits an EnumSwitch dispatching to one block per variant,
// each projecting the variant's payload via Transform and recursively
// dropping it.
func (p *Processor) dropEnumVariants(body *hir.Body, self hir.Variable, e *hir.Enum, instanceTy *types.Named) {
	byName := substMap(e.TypeParams, instanceTy.Args)
	cases := make([]hir.EnumCase, len(e.Variants))
	for i, v := range e.Variants {
		blk := body.NewBlock()
		payloadTy := variantPayloadType(v, byName)
		if payloadTy == nil {
			unit := body.FreshTemp(types.Unit())
			body.Append(blk, &hir.Instruction{Kind: &hir.Tuple{Dest: unit}})
			body.Append(blk, &hir.Instruction{Kind: &hir.Return{Value: unit, HasValue: true}})
			cases[i] = hir.EnumCase{VariantIndex: i, HasVariantIndex: true, Branch: blk}
			continue
		}
		payload := body.FreshTemp(payloadTy)
		body.Append(blk, &hir.Instruction{Kind: &hir.Transform{Dest: payload, Src: self, VariantIndex: i}})
		dropKey := AutoDropFnKey{For: payloadTy}
		p.wl.push(dropKey)
		result := body.FreshTemp(types.Unit())
		body.Append(blk, &hir.Instruction{Kind: &hir.FunctionCall{
			Dest: result,
			Call: hir.CallInfo{Name: dropKey.MonoName(), Args: []hir.Variable{payload}},
		}})
		body.Append(blk, &hir.Instruction{Kind: &hir.Return{Value: result, HasValue: true}})
		cases[i] = hir.EnumCase{VariantIndex: i, HasVariantIndex: true, Branch: blk}
	}
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.EnumSwitch{Root: self, Cases: cases}})
}

// variantPayloadType combines a variant's item types into the single type
// Transform projects: nil for a unit variant, the lone item's own type for
// a single-item payload, or a Tuple of all items otherwise.
func variantPayloadType(v hir.Variant, byName map[string]types.Type) types.Type {
	switch len(v.Items) {
	case 0:
		return nil
	case 1:
		return types.ApplyGeneric(v.Items[0], byName)
	default:
		elems := make([]types.Type, len(v.Items))
		for i, it := range v.Items {
			elems[i] = types.ApplyGeneric(it, byName)
		}
		return &types.Tuple{Elems: elems}
	}
}
