package hir

// varRemap translates a Variable from a source body into its counterpart in
// a destination body. blockRemap does the same for BlockIds. Both
// IdentityCopier and InlineCopier are built on the same rewrite engine
// (rewriteKind) and differ only in what these two functions do (§4.1: "Both
// must recursively rewrite every nested Variable in every nested
// instruction kind, including inside argument lists and closure-capture
// lists").
type varRemap func(Variable) Variable
type blockRemap func(BlockId) BlockId

// IdentityCopier preserves logical identity across a structural clone of a
// function body: the destination body's slot table is laid out so that
// slot index N in the source corresponds to slot index N in the clone, and
// block ids are likewise preserved 1:1. This is what "clone the function
// before mutating it" (§4.1) needs: the clone is independent storage, but a
// Variable{Slot: n} found anywhere in the clone denotes the "same" variable
// conceptually as in the source.
type IdentityCopier struct{}

// Clone produces an independent copy of src. Nested closure bodies
// (CreateClosure.Info.Body) are cloned recursively with a fresh
// IdentityCopier so their own slot/block numbering stays internally
// consistent.
func (IdentityCopier) Clone(src *Body) *Body {
	dst := &Body{Blocks: make(map[BlockId]*Block)}
	dst.slots = append(dst.slots, src.slots...)
	dst.nextVar = src.nextVar

	for _, id := range src.Order {
		newID := dst.NewBlock()
		if newID != id {
			// Source block ids are allocated 0..n-1 in order by construction
			// (NewBody/NewBlock), so this only fires if the source was built
			// irregularly; treat it as a programmer error in the pass that
			// produced src rather than silently miscompiling.
			panic("hir: IdentityCopier requires contiguous 0..n-1 block ids")
		}
	}
	dst.Entry = src.Entry

	remapVar := varRemap(func(v Variable) Variable {
		if v.body == nil {
			return v
		}
		return Variable{Slot: v.Slot, body: dst}
	})
	remapBlock := blockRemap(func(id BlockId) BlockId { return id })

	for _, id := range src.Order {
		srcBlk := src.Blocks[id]
		dstBlk := dst.Blocks[id]
		for _, instr := range srcBlk.Instructions {
			dstBlk.Instructions = append(dstBlk.Instructions, &Instruction{
				Kind:     rewriteKind(instr.Kind, remapVar, remapBlock, IdentityCopier{}),
				Implicit: instr.Implicit,
				Location: instr.Location,
			})
		}
	}
	return dst
}

// InlineCopier splices one body into another, allocating fresh slots and
// fresh block ids in the destination so the spliced instructions never
// collide with the destination's own names (§4.1: "remaps names when
// splicing one body into another").
type InlineCopier struct {
	slotMap  map[int]int
	blockMap map[BlockId]BlockId
}

// NewInlineCopier creates an InlineCopier with empty slot/block maps.
func NewInlineCopier() *InlineCopier {
	return &InlineCopier{slotMap: make(map[int]int), blockMap: make(map[BlockId]BlockId)}
}

// SpliceInto copies every block of src into dst as freshly numbered blocks,
// returning the block id in dst corresponding to src.Entry. Every Variable
// and BlockId mentioned anywhere in the copied instructions — including
// inside CallInfo.Args, ClosureCreateInfo.Captures, and switch case
// branches — is rewritten to point at the new slots/blocks.
func (c *InlineCopier) SpliceInto(dst *Body, src *Body) BlockId {
	for _, slot := range src.slots {
		nv := dst.newVariable(slot.Name, slot.Type, slot.Kind, slot.Location, slot.Mutable)
		c.slotMap[len(c.slotMap)] = nv.Slot
	}
	for _, id := range src.Order {
		c.blockMap[id] = dst.NewBlock()
	}

	remapVar := varRemap(func(v Variable) Variable {
		if v.body == nil {
			return v
		}
		newSlot, ok := c.slotMap[v.Slot]
		if !ok {
			return v
		}
		return Variable{Slot: newSlot, body: dst}
	})
	remapBlock := blockRemap(func(id BlockId) BlockId {
		if nid, ok := c.blockMap[id]; ok {
			return nid
		}
		return id
	})

	for _, id := range src.Order {
		srcBlk := src.Blocks[id]
		dstID := c.blockMap[id]
		dstBlk := dst.Blocks[dstID]
		for _, instr := range srcBlk.Instructions {
			dstBlk.Instructions = append(dstBlk.Instructions, &Instruction{
				Kind:     rewriteKind(instr.Kind, remapVar, remapBlock, c),
				Implicit: instr.Implicit,
				Location: instr.Location,
			})
		}
	}
	return c.blockMap[src.Entry]
}

// nestedBodyCloner abstracts over how a nested *Body (a closure literal's
// own body) is copied when it appears inside CreateClosure.Info.Body.
// IdentityCopier recurses with a fresh IdentityCopier (preserving the
// nested body's own internal identity); InlineCopier recurses with a fresh
// InlineCopier of its own (a spliced closure gets entirely fresh numbering
// throughout, including in its own nested body).
type nestedBodyCloner interface {
	cloneNested(*Body) *Body
}

func (IdentityCopier) cloneNested(b *Body) *Body { return IdentityCopier{}.Clone(b) }

func (c *InlineCopier) cloneNested(b *Body) *Body {
	if b == nil {
		return nil
	}
	dst := NewBody()
	dst.Blocks = make(map[BlockId]*Block)
	dst.Order = nil
	dst.nextBlk = 0
	inner := NewInlineCopier()
	entry := inner.SpliceInto(dst, b)
	dst.Entry = entry
	return dst
}

func remapFieldInfos(fi []FieldInfo) []FieldInfo {
	out := make([]FieldInfo, len(fi))
	copy(out, fi)
	return out
}

func remapVars(vs []Variable, f varRemap) []Variable {
	out := make([]Variable, len(vs))
	for i, v := range vs {
		out[i] = f(v)
	}
	return out
}

// rewriteKind rewrites every Variable and BlockId nested anywhere within
// kind, including inside CallInfo.Args, switch-case branches, and closure
// captures, per §4.1's builder contract.
func rewriteKind(kind InstructionKind, fv varRemap, fb blockRemap, nb nestedBodyCloner) InstructionKind {
	switch k := kind.(type) {
	case *FunctionCall:
		return &FunctionCall{Dest: fv(k.Dest), Call: CallInfo{
			Name:           k.Call.Name,
			Args:           remapVars(k.Call.Args, fv),
			Context:        k.Call.Context,
			InstanceRefs:   k.Call.InstanceRefs,
			CoroutineSpawn: k.Call.CoroutineSpawn,
		}}
	case *DynamicFunctionCall:
		return &DynamicFunctionCall{Dest: fv(k.Dest), Callee: fv(k.Callee), Args: remapVars(k.Args, fv)}
	case *MethodCall:
		return &MethodCall{Dest: fv(k.Dest), Receiver: fv(k.Receiver), Name: k.Name, Args: remapVars(k.Args, fv)}
	case *Converter:
		return &Converter{Dest: fv(k.Dest), Src: fv(k.Src)}
	case *FieldRef:
		return &FieldRef{Dest: fv(k.Dest), Receiver: fv(k.Receiver), Path: remapFieldInfos(k.Path)}
	case *FieldAssign:
		return &FieldAssign{Root: fv(k.Root), RHS: fv(k.RHS), Path: remapFieldInfos(k.Path)}
	case *AddressOfField:
		return &AddressOfField{Dest: fv(k.Dest), Receiver: fv(k.Receiver), Path: remapFieldInfos(k.Path), IsRaw: k.IsRaw}
	case *Tuple:
		return &Tuple{Dest: fv(k.Dest), Args: remapVars(k.Args, fv)}
	case *StringLiteral:
		return &StringLiteral{Dest: fv(k.Dest), Value: k.Value}
	case *IntegerLiteral:
		return &IntegerLiteral{Dest: fv(k.Dest), Value: k.Value}
	case *CharLiteral:
		return &CharLiteral{Dest: fv(k.Dest), Value: k.Value}
	case *IntegerOp:
		return &IntegerOp{Dest: fv(k.Dest), LHS: fv(k.LHS), RHS: fv(k.RHS), Op: k.Op}
	case *Ref:
		return &Ref{Dest: fv(k.Dest), Src: fv(k.Src)}
	case *PtrOf:
		return &PtrOf{Dest: fv(k.Dest), Src: fv(k.Src)}
	case *LoadPtr:
		return &LoadPtr{Dest: fv(k.Dest), Src: fv(k.Src)}
	case *StorePtr:
		return &StorePtr{Dest: fv(k.Dest), Src: fv(k.Src)}
	case *Sizeof:
		return &Sizeof{Dest: fv(k.Dest), TypeVar: k.TypeVar}
	case *Transmute:
		return &Transmute{Dest: fv(k.Dest), Src: fv(k.Src)}
	case *Return:
		if !k.HasValue {
			return &Return{HasValue: false}
		}
		return &Return{Value: fv(k.Value), HasValue: true}
	case *Jump:
		return &Jump{Target: fb(k.Target)}
	case *EnumSwitch:
		cases := make([]EnumCase, len(k.Cases))
		for i, c := range k.Cases {
			cases[i] = EnumCase{VariantIndex: c.VariantIndex, HasVariantIndex: c.HasVariantIndex, Branch: fb(c.Branch)}
		}
		return &EnumSwitch{Root: fv(k.Root), Cases: cases}
	case *IntegerSwitch:
		cases := make([]IntegerCase, len(k.Cases))
		for i, c := range k.Cases {
			cases[i] = IntegerCase{Value: c.Value, HasValue: c.HasValue, Branch: fb(c.Branch)}
		}
		return &IntegerSwitch{Root: fv(k.Root), Cases: cases}
	case *BlockStart:
		return &BlockStart{ID: k.ID}
	case *BlockEnd:
		return &BlockEnd{ID: k.ID}
	case *DeclareVar:
		return &DeclareVar{Var: fv(k.Var), Mutable: k.Mutable}
	case *Bind:
		return &Bind{LHS: fv(k.LHS), RHS: fv(k.RHS), Mutable: k.Mutable}
	case *Assign:
		return &Assign{LHS: fv(k.LHS), RHS: fv(k.RHS)}
	case *Transform:
		return &Transform{Dest: fv(k.Dest), Src: fv(k.Src), VariantIndex: k.VariantIndex}
	case *With:
		return &With{Var: fv(k.Var), Info: WithInfo{Contexts: k.Info.Contexts, BlockID: fb(k.Info.BlockID)}}
	case *ReadImplicit:
		return &ReadImplicit{Var: fv(k.Var), Index: k.Index}
	case *WriteImplicit:
		return &WriteImplicit{Index: k.Index, Var: fv(k.Var)}
	case *DropPath:
		return &DropPath{ID: k.ID}
	case *DropMetadata:
		return &DropMetadata{Kind: k.Kind}
	case *Drop:
		return &Drop{Result: fv(k.Result), Target: fv(k.Target)}
	case *CreateClosure:
		return &CreateClosure{Dest: fv(k.Dest), Info: ClosureCreateInfo{
			ClosureParams: k.Info.ClosureParams,
			Body:          nb.cloneNested(k.Info.Body),
			Name:          k.Info.Name,
			FnArgCount:    k.Info.FnArgCount,
			Captures:      remapVars(k.Info.Captures, fv),
		}}
	case *ClosureReturn:
		return &ClosureReturn{Block: fb(k.Block), Variable: fv(k.Variable), ReturnValue: fv(k.ReturnValue)}
	case *Yield:
		return &Yield{Dest: fv(k.Dest), Value: fv(k.Value)}
	case *FunctionPtr:
		return &FunctionPtr{Dest: fv(k.Dest), Name: k.Name}
	case *FunctionPtrCall:
		return &FunctionPtrCall{Dest: fv(k.Dest), Fn: fv(k.Fn), Args: remapVars(k.Args, fv)}
	case *CreateUninitializedArray:
		return &CreateUninitializedArray{Dest: fv(k.Dest)}
	case *ArrayLen:
		return &ArrayLen{Dest: fv(k.Dest), Array: fv(k.Array)}
	default:
		return kind
	}
}
