package hir

import (
	"fmt"

	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/types"
)

// BlockId identifies a Block within a Body.
type BlockId int

// SyntaxBlockId is a dotted path identifying a lexical scope opened by
// BlockStart and closed by BlockEnd (§3.3, §4.4.1). Two SyntaxBlockIds
// compare by their dotted Path, and a child scope's Path is always a
// dot-separated extension of its parent's.
type SyntaxBlockId struct {
	Path string
}

func (s SyntaxBlockId) String() string { return s.Path }

// Child returns the syntax-block id for the index-th nested scope opened
// within s.
func (s SyntaxBlockId) Child(index int) SyntaxBlockId {
	if s.Path == "" {
		return SyntaxBlockId{Path: fmt.Sprintf("%d", index)}
	}
	return SyntaxBlockId{Path: fmt.Sprintf("%s.%d", s.Path, index)}
}

// VariableKind distinguishes how a Variable came to exist.
type VariableKind int

const (
	VarLocal VariableKind = iota
	VarParam
	VarTemp
	VarImplicitSelf
)

// varSlot is the interior-mutable cell a Variable's Name indexes into. Per
// §9's design note, Variable identity is modelled as a name plus an index
// into a per-body slot table rather than a shared pointer; passes update
// the slot table in place so two clones of the same Variable value observe
// the same retyping.
type varSlot struct {
	Name     string
	Type     types.Type
	Kind     VariableKind
	Location diag.Location
	Mutable  bool
}

// Variable is a handle into a Body's slot table. Two Variables with the
// same Slot index (within the same Body) share identity: retyping one
// through Body.SetType is visible through the other (§3.4).
type Variable struct {
	Slot int
	body *Body
}

// Name returns the variable's declared or synthesised name.
func (v Variable) Name() string {
	if v.body == nil {
		return ""
	}
	return v.body.slots[v.Slot].Name
}

// Type returns the variable's current type.
func (v Variable) Type() types.Type {
	if v.body == nil {
		return nil
	}
	return v.body.slots[v.Slot].Type
}

// Kind returns the variable's VariableKind.
func (v Variable) Kind() VariableKind {
	if v.body == nil {
		return VarLocal
	}
	return v.body.slots[v.Slot].Kind
}

// Location returns the variable's declaration location.
func (v Variable) Location() diag.Location {
	if v.body == nil {
		return diag.Location{}
	}
	return v.body.slots[v.Slot].Location
}

// Mutable reports whether this variable was declared `mut`.
func (v Variable) Mutable() bool {
	if v.body == nil {
		return false
	}
	return v.body.slots[v.Slot].Mutable
}

// SameIdentity reports whether v and o refer to the same underlying slot in
// the same Body.
func (v Variable) SameIdentity(o Variable) bool {
	return v.body == o.body && v.Slot == o.Slot
}

// Block is a sequence of Instructions with interior-mutable storage so
// passes can splice without rebuilding the whole body (§3.3).
type Block struct {
	ID           BlockId
	Instructions []*Instruction
}

// Body owns its Blocks, its Variable slot table, and the counters used to
// allocate fresh block ids and variable slots.
type Body struct {
	Blocks   map[BlockId]*Block
	Order    []BlockId // insertion order, for deterministic iteration
	Entry    BlockId
	slots    []varSlot
	nextVar  int
	nextBlk  int
}

// NewBody creates an empty Body with one entry block.
func NewBody() *Body {
	b := &Body{Blocks: make(map[BlockId]*Block)}
	b.Entry = b.NewBlock()
	return b
}

// NewBlock allocates and registers a fresh, empty Block, returning its id.
func (b *Body) NewBlock() BlockId {
	id := BlockId(b.nextBlk)
	b.nextBlk++
	b.Blocks[id] = &Block{ID: id}
	b.Order = append(b.Order, id)
	return id
}

// CutBlock splits block at instruction index idx: instructions[idx:] move
// into a freshly allocated successor block, which is returned. Used by
// passes that need to insert a branch in the middle of a block (§4.1).
func (b *Body) CutBlock(id BlockId, idx int) BlockId {
	blk := b.Blocks[id]
	tail := append([]*Instruction(nil), blk.Instructions[idx:]...)
	blk.Instructions = blk.Instructions[:idx]
	newID := b.NewBlock()
	b.Blocks[newID].Instructions = tail
	return newID
}

// newVariable allocates a fresh slot, named name, with the given type/kind.
func (b *Body) newVariable(name string, ty types.Type, kind VariableKind, loc diag.Location, mutable bool) Variable {
	slot := len(b.slots)
	b.slots = append(b.slots, varSlot{Name: name, Type: ty, Kind: kind, Location: loc, Mutable: mutable})
	return Variable{Slot: slot, body: b}
}

// FreshTemp creates a new anonymous temporary of type ty.
func (b *Body) FreshTemp(ty types.Type) Variable {
	name := fmt.Sprintf("$t%d", b.nextVar)
	b.nextVar++
	return b.newVariable(name, ty, VarTemp, diag.Location{}, false)
}

// FreshUntyped creates a new anonymous temporary with no type yet assigned
// (callers must SetType before the variable is read by a later pass).
func (b *Body) FreshUntyped() Variable {
	return b.FreshTemp(nil)
}

// NamedLocal creates a new named local value.
func (b *Body) NamedLocal(name string, ty types.Type, loc diag.Location, mutable bool) Variable {
	return b.newVariable(name, ty, VarLocal, loc, mutable)
}

// Param creates a new parameter-kind variable.
func (b *Body) Param(name string, ty types.Type, loc diag.Location, mutable bool) Variable {
	return b.newVariable(name, ty, VarParam, loc, mutable)
}

// SetType retypes the variable's slot in place; every other Variable value
// sharing that slot observes the change (§3.4 "re-typing a variable updates
// all aliases").
func (b *Body) SetType(v Variable, ty types.Type) {
	b.slots[v.Slot].Type = ty
}

// NumSlots returns the number of variable slots allocated in this body.
func (b *Body) NumSlots() int { return len(b.slots) }

// VariableForSlot rehydrates a Variable handle for a raw slot index,
// for passes (like internal/drop's Finalizer) that keep slot ints as map
// keys rather than full Variable values and need a handle back.
func (b *Body) VariableForSlot(slot int) Variable {
	return Variable{Slot: slot, body: b}
}

// Append adds instr to the end of block id.
func (b *Body) Append(id BlockId, instr *Instruction) {
	blk := b.Blocks[id]
	blk.Instructions = append(blk.Instructions, instr)
}

// InsertAt inserts instr at position idx of block id, shifting later
// instructions down (§4.1 "append or insert instruction at iterator").
func (b *Body) InsertAt(id BlockId, idx int, instr *Instruction) {
	blk := b.Blocks[id]
	blk.Instructions = append(blk.Instructions, nil)
	copy(blk.Instructions[idx+1:], blk.Instructions[idx:])
	blk.Instructions[idx] = instr
}

// RemoveAt removes the instruction at position idx of block id.
func (b *Body) RemoveAt(id BlockId, idx int) {
	blk := b.Blocks[id]
	blk.Instructions = append(blk.Instructions[:idx], blk.Instructions[idx+1:]...)
}

// ReplaceAt overwrites the instruction at position idx of block id.
func (b *Body) ReplaceAt(id BlockId, idx int, instr *Instruction) {
	b.Blocks[id].Instructions[idx] = instr
}

// Cursor is a snapshot of an iteration position within a Body, used to
// save/restore a builder's place across a pass that needs to look ahead
// and come back (§4.1 "snapshot and restore iterator position").
type Cursor struct {
	Block BlockId
	Index int
}
