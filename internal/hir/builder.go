package hir

import "github.com/sourcelang/corec/internal/diag"

// BodyBuilder is the contract §4.1 requires every pass to use when mutating
// a Body, rather than reaching into Body's fields directly: it tracks an
// "iterator or append" cursor so passes can splice without losing their
// place, mirroring original_source's BlockBuilder.rs.
type BodyBuilder struct {
	body   *Body
	cursor Cursor
}

// NewBodyBuilder creates a builder positioned at the end of body's entry
// block.
func NewBodyBuilder(body *Body) *BodyBuilder {
	bb := &BodyBuilder{body: body}
	bb.cursor = Cursor{Block: body.Entry, Index: len(body.Blocks[body.Entry].Instructions)}
	return bb
}

// Body returns the underlying Body.
func (b *BodyBuilder) Body() *Body { return b.body }

// Snapshot returns the builder's current position (§4.1 "snapshot and
// restore iterator position").
func (b *BodyBuilder) Snapshot() Cursor { return b.cursor }

// Restore repositions the builder at a previously snapshotted Cursor.
func (b *BodyBuilder) Restore(c Cursor) { b.cursor = c }

// SeekBlock repositions the builder at the end of block id.
func (b *BodyBuilder) SeekBlock(id BlockId) {
	b.cursor = Cursor{Block: id, Index: len(b.body.Blocks[id].Instructions)}
}

// SeekStart repositions the builder at the start of block id.
func (b *BodyBuilder) SeekStart(id BlockId) {
	b.cursor = Cursor{Block: id, Index: 0}
}

// Append appends an instruction at the end of the current block and
// advances the cursor past it (append mode).
func (b *BodyBuilder) Append(kind InstructionKind, loc diag.Location) *Instruction {
	instr := &Instruction{Kind: kind, Location: loc}
	b.body.Append(b.cursor.Block, instr)
	b.cursor.Index = len(b.body.Blocks[b.cursor.Block].Instructions)
	return instr
}

// Insert inserts an instruction at the current cursor position (iterator
// mode) and advances the cursor past it, so the cursor still points at the
// instruction that was there before and a subsequent Insert lands
// immediately after this one.
func (b *BodyBuilder) Insert(kind InstructionKind, loc diag.Location) *Instruction {
	instr := &Instruction{Kind: kind, Location: loc}
	b.body.InsertAt(b.cursor.Block, b.cursor.Index, instr)
	b.cursor.Index++
	return instr
}

// Step advances the cursor past the instruction at the current position,
// without inserting anything (used when reusing an existing instruction
// stream and only conditionally rewriting some entries).
func (b *BodyBuilder) Step() {
	blk := b.body.Blocks[b.cursor.Block]
	if b.cursor.Index < len(blk.Instructions) {
		b.cursor.Index++
	}
}

// Current returns the instruction at the cursor (nil at block end).
func (b *BodyBuilder) Current() *Instruction {
	blk := b.body.Blocks[b.cursor.Block]
	if b.cursor.Index >= len(blk.Instructions) {
		return nil
	}
	return blk.Instructions[b.cursor.Index]
}

// Remove deletes the instruction at the cursor; the cursor stays at the
// same index, now pointing at whatever instruction followed it.
func (b *BodyBuilder) Remove() {
	b.body.RemoveAt(b.cursor.Block, b.cursor.Index)
}

// Replace overwrites the instruction at the cursor.
func (b *BodyBuilder) Replace(kind InstructionKind, loc diag.Location) {
	b.body.ReplaceAt(b.cursor.Block, b.cursor.Index, &Instruction{Kind: kind, Location: loc})
}

// NewBlock allocates a fresh block within the same body.
func (b *BodyBuilder) NewBlock() BlockId { return b.body.NewBlock() }

// CutBlock splits the current block at the cursor and returns the new
// successor block id, repositioning the builder at the start of it.
func (b *BodyBuilder) CutBlock() BlockId {
	id := b.body.CutBlock(b.cursor.Block, b.cursor.Index)
	b.SeekStart(id)
	return id
}
