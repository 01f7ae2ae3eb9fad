package hir

import (
	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/types"
)

// Instruction wraps a Kind with the implicit flag and source location
// common to every HIR instruction (§3.3).
type Instruction struct {
	Kind      InstructionKind
	Implicit  bool
	Location  diag.Location
}

// InstructionKind is the closed sum of every instruction shape named in
// spec.md §3.3. Every concrete kind implements the unexported marker method
// so the set stays closed to this package, mirroring the teacher's
// mir.Statement/Terminator pattern.
type InstructionKind interface {
	instructionKind()
}

// FieldId is Named(string) or Indexed(int) — a tuple field becomes a Named
// field ("f0", "f1", ...) once tuple lowering (B) runs (§4.6).
type FieldId struct {
	IsIndex bool
	Index   int
	Name    string
}

func NamedField(name string) FieldId { return FieldId{Name: name} }
func IndexedField(i int) FieldId     { return FieldId{IsIndex: true, Index: i} }

func (f FieldId) String() string {
	if f.IsIndex {
		return "." + itoa(f.Index)
	}
	return "." + f.Name
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// FieldInfo is one projection step of a field path.
type FieldInfo struct {
	Field    FieldId
	Type     types.Type // nil if not yet resolved
	Location diag.Location
}

// CallInfo carries everything a FunctionCall resolved against (§4.2).
type CallInfo struct {
	Name           ident.QName
	Args           []Variable
	Context        *ident.Context // nil until §4.2 has resolved type args/instances
	InstanceRefs   []InstanceRef
	CoroutineSpawn bool
}

// InstanceRef is a per-call-site record of which instance (Direct) or
// caller-known constraint (Indirect) satisfies one required trait bound
// (§4.2 step 4, GLOSSARY "Instance reference").
type InstanceRef struct {
	Direct   ident.QName
	Indirect int
	IsDirect bool
}

// FunctionCall = FunctionCall(dest, CallInfo).
type FunctionCall struct {
	Dest Variable
	Call CallInfo
}

func (*FunctionCall) instructionKind() {}

// DynamicFunctionCall = DynamicFunctionCall(dest, callee, args).
type DynamicFunctionCall struct {
	Dest   Variable
	Callee Variable
	Args   []Variable
}

func (*DynamicFunctionCall) instructionKind() {}

// MethodCall is pre-resolution only: it must not survive past the upstream
// collaborator (§6 Inputs: "no MethodCall remains").
type MethodCall struct {
	Dest     Variable
	Receiver Variable
	Name     string
	Args     []Variable
}

func (*MethodCall) instructionKind() {}

// Converter marks a type-coercion recorded during argument/parameter
// unification (§4.2 step 3).
type Converter struct {
	Dest Variable
	Src  Variable
}

func (*Converter) instructionKind() {}

// FieldRef projects a (possibly multi-step) field path out of receiver.
type FieldRef struct {
	Dest     Variable
	Receiver Variable
	Path     []FieldInfo
}

func (*FieldRef) instructionKind() {}

// FieldAssign writes rhs into root through Path.
type FieldAssign struct {
	Root Variable
	RHS  Variable
	Path []FieldInfo
}

func (*FieldAssign) instructionKind() {}

// AddressOfField takes the address of a field path, optionally raw (no
// borrow-origin variable attached; §4.3.5 treats it structurally like Ref).
type AddressOfField struct {
	Dest     Variable
	Receiver Variable
	Path     []FieldInfo
	IsRaw    bool
}

func (*AddressOfField) instructionKind() {}

// Tuple constructs a positional product; removed by tuple lowering (B).
type Tuple struct {
	Dest Variable
	Args []Variable
}

func (*Tuple) instructionKind() {}

// StringLiteral / IntegerLiteral / CharLiteral materialise constants.
type StringLiteral struct {
	Dest  Variable
	Value string
}

func (*StringLiteral) instructionKind() {}

type IntegerLiteral struct {
	Dest  Variable
	Value int64
}

func (*IntegerLiteral) instructionKind() {}

type CharLiteral struct {
	Dest  Variable
	Value rune
}

func (*CharLiteral) instructionKind() {}

// IntegerOpKind enumerates the integer operators named in §3.3.
type IntegerOpKind int

const (
	OpAdd IntegerOpKind = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
)

// IntegerOp computes lhs <op> rhs.
type IntegerOp struct {
	Dest Variable
	LHS  Variable
	RHS  Variable
	Op   IntegerOpKind
}

func (*IntegerOp) instructionKind() {}

// Ref / PtrOf / LoadPtr / StorePtr manipulate references and raw pointers.
type Ref struct {
	Dest Variable
	Src  Variable
}

func (*Ref) instructionKind() {}

type PtrOf struct {
	Dest Variable
	Src  Variable
}

func (*PtrOf) instructionKind() {}

type LoadPtr struct {
	Dest Variable
	Src  Variable
}

func (*LoadPtr) instructionKind() {}

type StorePtr struct {
	Dest Variable
	Src  Variable
}

func (*StorePtr) instructionKind() {}

// Sizeof / Transmute are the two low-level escape hatches.
type Sizeof struct {
	Dest    Variable
	TypeVar types.Type
}

func (*Sizeof) instructionKind() {}

type Transmute struct {
	Dest Variable
	Src  Variable
}

func (*Transmute) instructionKind() {}

// Return terminates a function.
type Return struct {
	Value Variable
	HasValue bool
}

func (*Return) instructionKind() {}

// Jump is an unconditional branch.
type Jump struct {
	Target BlockId
}

func (*Jump) instructionKind() {}

// EnumCase is one arm of an EnumSwitch.
type EnumCase struct {
	VariantIndex    int
	HasVariantIndex bool // false denotes the default arm
	Branch          BlockId
}

// EnumSwitch dispatches on root's variant tag.
type EnumSwitch struct {
	Root  Variable
	Cases []EnumCase
}

func (*EnumSwitch) instructionKind() {}

// IntegerCase is one arm of an IntegerSwitch.
type IntegerCase struct {
	Value    int64
	HasValue bool // false denotes the default arm
	Branch   BlockId
}

// IntegerSwitch dispatches on root's integer value.
type IntegerSwitch struct {
	Root  Variable
	Cases []IntegerCase
}

func (*IntegerSwitch) instructionKind() {}

// BlockStart / BlockEnd mark lexical-scope boundaries (§4.4.1).
type BlockStart struct {
	ID SyntaxBlockId
}

func (*BlockStart) instructionKind() {}

type BlockEnd struct {
	ID SyntaxBlockId
}

func (*BlockEnd) instructionKind() {}

// DeclareVar is an explicit lifetime start for var.
type DeclareVar struct {
	Var     Variable
	Mutable bool
}

func (*DeclareVar) instructionKind() {}

// Bind is pre-lowering; removed before the drop pass runs (§6 Inputs).
type Bind struct {
	LHS     Variable
	RHS     Variable
	Mutable bool
}

func (*Bind) instructionKind() {}

// Assign overwrites lhs with rhs.
type Assign struct {
	LHS Variable
	RHS Variable
}

func (*Assign) instructionKind() {}

// Transform projects an enum payload under an assumed variant.
type Transform struct {
	Dest         Variable
	Src          Variable
	VariantIndex int
}

func (*Transform) instructionKind() {}

// HandlerContext is one element of a With instruction's context list:
// either an effect handler or an implicit value binding.
type HandlerContext struct {
	IsEffectHandler bool
	Name            ident.QName
}

// WithInfo carries the handler/implicit bindings introduced for a block.
type WithInfo struct {
	Contexts []HandlerContext
	BlockID  BlockId
}

// With enters a dynamic scope of effect handlers / implicits.
type With struct {
	Var  Variable
	Info WithInfo
}

func (*With) instructionKind() {}

// ImplicitIndex identifies one implicit parameter slot of a function.
type ImplicitIndex int

// ReadImplicit / WriteImplicit access the current dynamic implicit value.
type ReadImplicit struct {
	Var   Variable
	Index ImplicitIndex
}

func (*ReadImplicit) instructionKind() {}

type WriteImplicit struct {
	Index ImplicitIndex
	Var   Variable
}

func (*WriteImplicit) instructionKind() {}

// DropPathID identifies one drop-path placeholder within a function.
type DropPathID int

// DropPath is inserted by the drop pipeline; DropMetadataKind tags what
// kind of metadata DropMetadata carries.
type DropPath struct {
	ID DropPathID
}

func (*DropPath) instructionKind() {}

// DropMetadataKind enumerates the payload shapes DropMetadata carries.
type DropMetadataKind struct {
	IsDeclarationList bool
	Names             []string // names to schedule a drop placeholder for
}

type DropMetadata struct {
	Kind DropMetadataKind
}

func (*DropMetadata) instructionKind() {}

// Drop materialises an explicit drop of targetVar, producing resultVar
// (typed unit). Absent before the drop pipeline, required after it (§3.3).
type Drop struct {
	Result Variable
	Target Variable
}

func (*Drop) instructionKind() {}

// ClosureCreateInfo carries everything needed to synthesise a closure
// value (§3.3; removed by closure lowering (A)).
type ClosureCreateInfo struct {
	ClosureParams []string
	Body          *Body
	Name          ident.QName
	FnArgCount    int
	Captures      []Variable
}

// CreateClosure materialises a closure value.
type CreateClosure struct {
	Dest Variable
	Info ClosureCreateInfo
}

func (*CreateClosure) instructionKind() {}

// ClosureReturn is the coroutine/closure-specific return used inside a
// closure or coroutine body prior to lowering.
type ClosureReturn struct {
	Block       BlockId
	Variable    Variable
	ReturnValue Variable
}

func (*ClosureReturn) instructionKind() {}

// Yield suspends a coroutine body, producing value to its resumer.
type Yield struct {
	Dest  Variable
	Value Variable
}

func (*Yield) instructionKind() {}

// FunctionPtr / FunctionPtrCall materialise and invoke raw function
// pointers (used by the closure-call-handler dispatch after lowering).
type FunctionPtr struct {
	Dest Variable
	Name ident.QName
}

func (*FunctionPtr) instructionKind() {}

type FunctionPtrCall struct {
	Dest Variable
	Fn   Variable
	Args []Variable
}

func (*FunctionPtrCall) instructionKind() {}

// CreateUninitializedArray / ArrayLen are the two array intrinsics.
type CreateUninitializedArray struct {
	Dest Variable
}

func (*CreateUninitializedArray) instructionKind() {}

type ArrayLen struct {
	Dest  Variable
	Array Variable
}

func (*ArrayLen) instructionKind() {}
