// Package hir implements the mutable intermediate representation of
// spec.md §3.3–§3.4: Program/Function/Struct/Enum, the per-function Body of
// Blocks and Instructions, Variable identity, and the BodyBuilder contract
// of §4.1.
//
// The instruction-kind family follows the teacher's internal/mir.Statement
// pattern (a closed interface with a private marker method implemented by
// every concrete kind) generalised to the much larger HIR instruction set
// of spec.md §3.3; the exact field shapes follow
// original_source/compiler/src/siko/hir/{Instruction,Function}.rs.
package hir

import (
	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/types"
)

// Program owns every Function, Struct, Enum, Trait and Instance definition
// in the compilation unit, keyed by qualified name (§3.4).
type Program struct {
	Functions map[string]*Function // keyed by ident.QName.String()
	Structs   map[string]*Struct
	Enums     map[string]*Enum
	Traits    map[string]*Trait
	Instances []*Instance // a module-scoped instance store; see internal/resolve

	// order preserves insertion order for reproducible iteration (§5:
	// "iteration order over maps keyed by qualified names... is the
	// ordering over names"); the slices below hold names in the order they
	// were added, not sorted by name.
	FunctionOrder []string
	StructOrder   []string
	EnumOrder     []string
}

// NewProgram creates an empty Program.
func NewProgram() *Program {
	return &Program{
		Functions: make(map[string]*Function),
		Structs:   make(map[string]*Struct),
		Enums:     make(map[string]*Enum),
		Traits:    make(map[string]*Trait),
	}
}

// AddFunction registers fn under its own name, preserving insertion order.
func (p *Program) AddFunction(fn *Function) {
	key := fn.Name.String()
	if _, exists := p.Functions[key]; !exists {
		p.FunctionOrder = append(p.FunctionOrder, key)
	}
	p.Functions[key] = fn
}

// AddStruct registers s under its own name.
func (p *Program) AddStruct(s *Struct) {
	key := s.Name.String()
	if _, exists := p.Structs[key]; !exists {
		p.StructOrder = append(p.StructOrder, key)
	}
	p.Structs[key] = s
}

// AddEnum registers e under its own name.
func (p *Program) AddEnum(e *Enum) {
	key := e.Name.String()
	if _, exists := p.Enums[key]; !exists {
		p.EnumOrder = append(p.EnumOrder, key)
	}
	p.Enums[key] = e
}

// Function looks up a function by qname string.
func (p *Program) Function(name string) (*Function, bool) {
	fn, ok := p.Functions[name]
	return fn, ok
}

// Field is one field of a Struct.
type Field struct {
	Name string
	Type types.Type
}

// Struct is an algebraic product type.
type Struct struct {
	Name       ident.QName
	TypeParams []types.TypeParam
	Fields     []Field
	Methods    []ident.QName
}

// Variant is one tagged-union alternative of an Enum.
type Variant struct {
	Name  string
	Items []types.Type
}

// Enum is an algebraic tagged-union type.
type Enum struct {
	Name       ident.QName
	TypeParams []types.TypeParam
	Variants   []Variant
	Methods    []ident.QName
}

// AssociatedTypeAssertion pins an associated type of a trait constraint to
// a concrete type within a function's constraint context.
type AssociatedTypeAssertion struct {
	AssocName string
	Type      types.Type
}

// Constraint is one (trait, type args, associated-type assertions) entry of
// a function's constraintContext (§4.2 Inputs).
type Constraint struct {
	Trait      ident.QName
	TypeArgs   []types.Type
	Assertions []AssociatedTypeAssertion
}

// Trait declares a set of member signatures and associated types.
type Trait struct {
	Name            ident.QName
	TypeParams      []types.TypeParam
	Members         []ident.QName
	AssociatedTypes []string
}

// Instance implements a Trait for a concrete type (or type constructor).
type Instance struct {
	Name       ident.QName
	TraitName  ident.QName
	TypeArgs   []types.Type // the trait's own type parameters, instantiated
	SelfType   types.Type
	TypeParams []types.TypeParam // generic parameters of the impl itself
	Members    map[string]ident.QName // trait member name -> concrete member qname
	Assoc      map[string]types.Type  // associated type name -> concrete type
}

// Parameter is Named(name,type,mutable) or SelfParam(mutable,type), a sum
// type kept closed the same way Instruction kinds are (§3.3).
type Parameter struct {
	IsSelf  bool
	Name    string // empty for SelfParam
	Type    types.Type
	Mutable bool
}

// FunctionKind distinguishes how a Function's body (if any) should be
// treated by later passes (§3.3).
type FunctionKind int

const (
	UserDefined FunctionKind = iota
	StructCtor
	VariantCtor // VariantIndex set
	ExternC     // Header set, may be empty
	ExternBuiltin
	TraitMemberDecl       // Target set: declaring trait member qname
	TraitMemberDefinition // Target set: trait member this defines
	EffectMemberDecl
	EffectMemberDefinition
)

// Function is a declared or defined function, method, constructor, or
// trait/effect member (§3.3).
type Function struct {
	Name             ident.QName
	TypeParams       []types.TypeParam
	Params           []Parameter
	Result           types.Type
	Body             *Body // nil for declarations/externs
	ConstraintContext []Constraint
	Kind             FunctionKind
	VariantIndex     int
	Header           string // ExternC header, if any
	Target           ident.QName
	Attributes       map[string]string
	Location         diag.Location
}

// IsGeneric reports whether fn still has unbound type parameters.
func (fn *Function) IsGeneric() bool { return len(fn.TypeParams) > 0 }
