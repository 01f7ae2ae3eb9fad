// Package hirio decodes a deliberately partial, hand-authored YAML format
// into a *hir.Program. The CORE has no lexer/parser/typechecker of its
// own (those stages were cut along with the teacher's frontend, per
// DESIGN.md's "Dropped teacher modules"), so cmd/sourcec needs some way to
// construct a hir.Program to feed the pipeline — this is that way, playing
// the role the teacher's own parser output plays upstream of lowering.
//
// The format covers the instruction kinds a hand-written test program
// plausibly needs: literals, calls, field/tuple/reference manipulation,
// integer ops, control flow, scoping and binding. It does not cover
// effect handlers, coroutines, array intrinsics, or the closure/drop
// instruction kinds the pipeline itself introduces (DynamicFunctionCall is
// decoded, but CreateClosure is not, so a hand-authored program cannot
// construct a closure value of its own — and With/
// ReadImplicit/WriteImplicit/Yield/FunctionPtr/FunctionPtrCall/
// CreateUninitializedArray/ArrayLen/Sizeof/Transmute and the drop-pipeline
// internals DropPath/DropMetadata/Drop/ClosureReturn are out of scope,
// since nothing upstream of this format would ever need to author them by
// hand). This is an intentional scope limit, not an oversight.
//
// Grounded on the teacher's internal/ast -> internal/types lowering shape
// (a tree of Doc structs decoded by gopkg.in/yaml.v3, then walked into the
// real in-memory model) and on internal/dump's inverse direction (model ->
// YAML) for the textual type grammar, which this package's parseType
// inverts back into types.Type.
package hirio

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/types"
)

// Doc is the top-level shape of a hirio YAML file.
type Doc struct {
	Structs   []structDoc   `yaml:"structs"`
	Enums     []enumDoc     `yaml:"enums"`
	Instances []instanceDoc `yaml:"instances"`
	Functions []funcDoc     `yaml:"functions"`
}

type fieldDoc struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type structDoc struct {
	Name   string     `yaml:"name"`
	Fields []fieldDoc `yaml:"fields"`
}

type variantDoc struct {
	Name    string     `yaml:"name"`
	Payload []fieldDoc `yaml:"payload"`
}

type enumDoc struct {
	Name     string       `yaml:"name"`
	Variants []variantDoc `yaml:"variants"`
}

type instanceDoc struct {
	Name      string            `yaml:"name"`
	Trait     string            `yaml:"trait"`
	SelfType  string            `yaml:"self_type"`
	TypeArgs  []string          `yaml:"type_args"`
	Members   map[string]string `yaml:"members"`
}

type paramDoc struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	IsSelf  bool   `yaml:"is_self"`
	Mutable bool   `yaml:"mutable"`
}

type constraintDoc struct {
	Trait    string   `yaml:"trait"`
	TypeArgs []string `yaml:"type_args"`
}

// varDoc declares one body-local variable slot ahead of referencing it from
// instructions; "kind" is one of "param" (matched by name against the
// function's own params), "local", or "temp".
type varDoc struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Kind string `yaml:"kind"`
}

type fieldPathDoc struct {
	Name  string `yaml:"name"`
	Index int    `yaml:"index"`
}

type caseDoc struct {
	// VariantIndex (enum arm) or Value (integer arm); which one applies
	// follows the enclosing instrDoc's Kind.
	VariantIndex int   `yaml:"variant_index"`
	Value        int64 `yaml:"value"`
	Default      bool  `yaml:"default"`
	Branch       int   `yaml:"branch"`
}

// instrDoc is a tagged union over every instruction kind this format
// covers; Kind selects which fields apply.
type instrDoc struct {
	Kind string `yaml:"kind"`

	Dest     string `yaml:"dest"`
	Src      string `yaml:"src"`
	LHS      string `yaml:"lhs"`
	RHS      string `yaml:"rhs"`
	Receiver string `yaml:"receiver"`
	Root     string `yaml:"root"`
	Var      string `yaml:"var"`
	Value    string `yaml:"value"`

	Call     string     `yaml:"call"`
	Args     []string   `yaml:"args"`
	Path     []fieldPathDoc `yaml:"path"`
	Op       string     `yaml:"op"`
	IntValue int64      `yaml:"int_value"`
	StrValue string     `yaml:"str_value"`
	Target   int        `yaml:"target"`
	Scope    string     `yaml:"scope"`
	Mutable  bool       `yaml:"mutable"`
	Variant  int        `yaml:"variant"`
	HasValue bool       `yaml:"has_value"`
	Cases    []caseDoc  `yaml:"cases"`
}

type blockDoc struct {
	Instructions []instrDoc `yaml:"instructions"`
}

type bodyDoc struct {
	Vars   []varDoc   `yaml:"vars"`
	Blocks []blockDoc `yaml:"blocks"`
}

type funcDoc struct {
	Name        string          `yaml:"name"`
	TypeParams  []string        `yaml:"type_params"`
	Params      []paramDoc      `yaml:"params"`
	Result      string          `yaml:"result"`
	Constraints []constraintDoc `yaml:"constraints"`
	Kind        string          `yaml:"kind"`
	Body        *bodyDoc        `yaml:"body"`
}

func qname(name string) ident.QName { return ident.Item{Name: name} }

// Decode parses a hirio YAML document into a fresh *hir.Program.
func Decode(data []byte) (*hir.Program, error) {
	var doc Doc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("hirio: parse yaml: %w", err)
	}

	prog := hir.NewProgram()

	for _, s := range doc.Structs {
		fields := make([]hir.Field, len(s.Fields))
		for i, f := range s.Fields {
			ty, err := parseType(f.Type, nil)
			if err != nil {
				return nil, fmt.Errorf("hirio: struct %s field %s: %w", s.Name, f.Name, err)
			}
			fields[i] = hir.Field{Name: f.Name, Type: ty}
		}
		prog.AddStruct(&hir.Struct{Name: qname(s.Name), Fields: fields})
	}

	for _, e := range doc.Enums {
		variants := make([]hir.Variant, len(e.Variants))
		for i, v := range e.Variants {
			items := make([]types.Type, len(v.Payload))
			for j, f := range v.Payload {
				ty, err := parseType(f.Type, nil)
				if err != nil {
					return nil, fmt.Errorf("hirio: enum %s variant %s: %w", e.Name, v.Name, err)
				}
				items[j] = ty
			}
			variants[i] = hir.Variant{Name: v.Name, Items: items}
		}
		prog.AddEnum(&hir.Enum{Name: qname(e.Name), Variants: variants})
	}

	for _, inst := range doc.Instances {
		selfTy, err := parseType(inst.SelfType, nil)
		if err != nil {
			return nil, fmt.Errorf("hirio: instance %s self_type: %w", inst.Name, err)
		}
		typeArgs := make([]types.Type, len(inst.TypeArgs))
		for i, a := range inst.TypeArgs {
			ty, err := parseType(a, nil)
			if err != nil {
				return nil, fmt.Errorf("hirio: instance %s type_args[%d]: %w", inst.Name, i, err)
			}
			typeArgs[i] = ty
		}
		members := make(map[string]ident.QName, len(inst.Members))
		for k, v := range inst.Members {
			members[k] = qname(v)
		}
		prog.Instances = append(prog.Instances, &hir.Instance{
			Name:      qname(inst.Name),
			TraitName: qname(inst.Trait),
			SelfType:  selfTy,
			TypeArgs:  typeArgs,
			Members:   members,
		})
	}

	for _, f := range doc.Functions {
		fn, err := decodeFunction(f)
		if err != nil {
			return nil, err
		}
		prog.AddFunction(fn)
	}

	return prog, nil
}

func decodeFunction(f funcDoc) (*hir.Function, error) {
	typeParamSet := make(map[string]bool, len(f.TypeParams))
	typeParams := make([]types.TypeParam, len(f.TypeParams))
	for i, tp := range f.TypeParams {
		typeParams[i] = types.TypeParam{Name: tp}
		typeParamSet[tp] = true
	}

	params := make([]hir.Parameter, len(f.Params))
	for i, p := range f.Params {
		ty, err := parseType(p.Type, typeParamSet)
		if err != nil {
			return nil, fmt.Errorf("hirio: function %s param %s: %w", f.Name, p.Name, err)
		}
		params[i] = hir.Parameter{Name: p.Name, Type: ty, IsSelf: p.IsSelf, Mutable: p.Mutable}
	}

	result := types.Type(types.Unit())
	if f.Result != "" {
		ty, err := parseType(f.Result, typeParamSet)
		if err != nil {
			return nil, fmt.Errorf("hirio: function %s result: %w", f.Name, err)
		}
		result = ty
	}

	constraints := make([]hir.Constraint, len(f.Constraints))
	for i, c := range f.Constraints {
		args := make([]types.Type, len(c.TypeArgs))
		for j, a := range c.TypeArgs {
			ty, err := parseType(a, typeParamSet)
			if err != nil {
				return nil, fmt.Errorf("hirio: function %s constraint %d: %w", f.Name, i, err)
			}
			args[j] = ty
		}
		constraints[i] = hir.Constraint{Trait: qname(c.Trait), TypeArgs: args}
	}

	fn := &hir.Function{
		Name:              qname(f.Name),
		TypeParams:        typeParams,
		Params:            params,
		Result:            result,
		ConstraintContext: constraints,
		Kind:              parseFunctionKind(f.Kind),
	}

	if f.Body != nil {
		body, err := decodeBody(f.Body, fn, typeParamSet)
		if err != nil {
			return nil, fmt.Errorf("hirio: function %s body: %w", f.Name, err)
		}
		fn.Body = body
	}

	return fn, nil
}

func parseFunctionKind(s string) hir.FunctionKind {
	switch s {
	case "", "user_defined":
		return hir.UserDefined
	case "struct_ctor":
		return hir.StructCtor
	case "variant_ctor":
		return hir.VariantCtor
	case "extern_c":
		return hir.ExternC
	case "extern_builtin":
		return hir.ExternBuiltin
	case "trait_member_decl":
		return hir.TraitMemberDecl
	case "trait_member_definition":
		return hir.TraitMemberDefinition
	default:
		return hir.UserDefined
	}
}

// decodeBody builds a hir.Body from its declared vars (binding fn's own
// parameters by name where kind is "param") and instructions.
func decodeBody(bd *bodyDoc, fn *hir.Function, typeParamSet map[string]bool) (*hir.Body, error) {
	body := hir.NewBody()
	vars := make(map[string]hir.Variable, len(bd.Vars))

	paramTypes := make(map[string]types.Type, len(fn.Params))
	for _, p := range fn.Params {
		paramTypes[p.Name] = p.Type
	}

	for _, v := range bd.Vars {
		var ty types.Type
		var err error
		if v.Type != "" {
			ty, err = parseType(v.Type, typeParamSet)
			if err != nil {
				return nil, fmt.Errorf("var %s: %w", v.Name, err)
			}
		} else if pt, ok := paramTypes[v.Name]; ok {
			ty = pt
		}

		switch v.Kind {
		case "param":
			vars[v.Name] = body.Param(v.Name, ty, diag.Location{}, false)
		case "temp":
			vars[v.Name] = body.FreshTemp(ty)
		default: // "local"
			vars[v.Name] = body.NamedLocal(v.Name, ty, diag.Location{}, false)
		}
	}
	lookup := func(name string) hir.Variable {
		if name == "" {
			return hir.Variable{}
		}
		return vars[name]
	}

	for bi, blk := range bd.Blocks {
		var id hir.BlockId
		if bi == 0 {
			id = body.Entry
		} else {
			id = body.NewBlock()
		}
		for _, instr := range blk.Instructions {
			kind, err := decodeInstruction(instr, lookup)
			if err != nil {
				return nil, err
			}
			body.Append(id, &hir.Instruction{Kind: kind})
		}
	}

	return body, nil
}

func decodeArgs(names []string, lookup func(string) hir.Variable) []hir.Variable {
	out := make([]hir.Variable, len(names))
	for i, n := range names {
		out[i] = lookup(n)
	}
	return out
}

func decodePath(path []fieldPathDoc) []hir.FieldInfo {
	out := make([]hir.FieldInfo, len(path))
	for i, p := range path {
		if p.Name != "" {
			out[i] = hir.FieldInfo{Field: hir.NamedField(p.Name)}
		} else {
			out[i] = hir.FieldInfo{Field: hir.IndexedField(p.Index)}
		}
	}
	return out
}

var integerOps = map[string]hir.IntegerOpKind{
	"add": hir.OpAdd, "sub": hir.OpSub, "mul": hir.OpMul, "div": hir.OpDiv, "mod": hir.OpMod,
	"eq": hir.OpEq, "neq": hir.OpNeq, "lt": hir.OpLt, "lte": hir.OpLte, "gt": hir.OpGt, "gte": hir.OpGte,
}

// decodeInstruction maps one instrDoc onto its hir.InstructionKind. The
// kinds covered here are exactly the ones named in this package's doc
// comment; anything else is a decode error rather than a silent no-op, so
// a typo in a hand-written document fails loudly.
func decodeInstruction(d instrDoc, v func(string) hir.Variable) (hir.InstructionKind, error) {
	switch d.Kind {
	case "integer_literal":
		return &hir.IntegerLiteral{Dest: v(d.Dest), Value: d.IntValue}, nil
	case "string_literal":
		return &hir.StringLiteral{Dest: v(d.Dest), Value: d.StrValue}, nil
	case "char_literal":
		r := rune(0)
		if len(d.StrValue) > 0 {
			r = []rune(d.StrValue)[0]
		}
		return &hir.CharLiteral{Dest: v(d.Dest), Value: r}, nil
	case "assign":
		return &hir.Assign{LHS: v(d.LHS), RHS: v(d.RHS)}, nil
	case "ref":
		return &hir.Ref{Dest: v(d.Dest), Src: v(d.Src)}, nil
	case "ptr_of":
		return &hir.PtrOf{Dest: v(d.Dest), Src: v(d.Src)}, nil
	case "load_ptr":
		return &hir.LoadPtr{Dest: v(d.Dest), Src: v(d.Src)}, nil
	case "store_ptr":
		return &hir.StorePtr{Dest: v(d.Dest), Src: v(d.Src)}, nil
	case "tuple":
		return &hir.Tuple{Dest: v(d.Dest), Args: decodeArgs(d.Args, v)}, nil
	case "field_ref":
		return &hir.FieldRef{Dest: v(d.Dest), Receiver: v(d.Receiver), Path: decodePath(d.Path)}, nil
	case "field_assign":
		return &hir.FieldAssign{Root: v(d.Root), RHS: v(d.RHS), Path: decodePath(d.Path)}, nil
	case "address_of_field":
		return &hir.AddressOfField{Dest: v(d.Dest), Receiver: v(d.Receiver), Path: decodePath(d.Path)}, nil
	case "function_call":
		return &hir.FunctionCall{Dest: v(d.Dest), Call: hir.CallInfo{Name: qname(d.Call), Args: decodeArgs(d.Args, v)}}, nil
	case "method_call":
		return &hir.MethodCall{Dest: v(d.Dest), Receiver: v(d.Receiver), Name: d.Call, Args: decodeArgs(d.Args, v)}, nil
	case "dynamic_function_call":
		return &hir.DynamicFunctionCall{Dest: v(d.Dest), Callee: v(d.Receiver), Args: decodeArgs(d.Args, v)}, nil
	case "integer_op":
		op, ok := integerOps[d.Op]
		if !ok {
			return nil, fmt.Errorf("unknown integer op %q", d.Op)
		}
		return &hir.IntegerOp{Dest: v(d.Dest), LHS: v(d.LHS), RHS: v(d.RHS), Op: op}, nil
	case "return":
		return &hir.Return{Value: v(d.Value), HasValue: d.HasValue || d.Value != ""}, nil
	case "jump":
		return &hir.Jump{Target: hir.BlockId(d.Target)}, nil
	case "integer_switch":
		cases := make([]hir.IntegerCase, len(d.Cases))
		for i, c := range d.Cases {
			cases[i] = hir.IntegerCase{Value: c.Value, HasValue: !c.Default, Branch: hir.BlockId(c.Branch)}
		}
		return &hir.IntegerSwitch{Root: v(d.Root), Cases: cases}, nil
	case "enum_switch":
		cases := make([]hir.EnumCase, len(d.Cases))
		for i, c := range d.Cases {
			cases[i] = hir.EnumCase{VariantIndex: c.VariantIndex, HasVariantIndex: !c.Default, Branch: hir.BlockId(c.Branch)}
		}
		return &hir.EnumSwitch{Root: v(d.Root), Cases: cases}, nil
	case "block_start":
		return &hir.BlockStart{ID: hir.SyntaxBlockId{Path: d.Scope}}, nil
	case "block_end":
		return &hir.BlockEnd{ID: hir.SyntaxBlockId{Path: d.Scope}}, nil
	case "declare_var":
		return &hir.DeclareVar{Var: v(d.Var), Mutable: d.Mutable}, nil
	case "bind":
		return &hir.Bind{LHS: v(d.LHS), RHS: v(d.RHS), Mutable: d.Mutable}, nil
	case "transform":
		return &hir.Transform{Dest: v(d.Dest), Src: v(d.Src), VariantIndex: d.Variant}, nil
	case "converter":
		return &hir.Converter{Dest: v(d.Dest), Src: v(d.Src)}, nil
	default:
		return nil, fmt.Errorf("unsupported instruction kind %q (effect/coroutine/array/drop-internal kinds are out of hirio's scope)", d.Kind)
	}
}

// parseType parses the textual grammar types.Type.String() produces:
// "&T", "*T", "()"/"(A, B)", "fn(A, B) -> R", "?N", "Self", "!", "void",
// "void*", "coroutine(Y, R)", "Name" or "Name[A, B]". typeParams, if
// non-nil, names the enclosing function's own type parameters so bare
// identifiers among them parse as TypeParam rather than a zero-arg Named.
func parseType(s string, typeParams map[string]bool) (types.Type, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, fmt.Errorf("empty type")
	case s == "!":
		return &types.Never{}, nil
	case s == "Self":
		return &types.SelfType{}, nil
	case s == "void":
		return &types.Void{}, nil
	case s == "void*":
		return &types.VoidPtr{}, nil
	case strings.HasPrefix(s, "&"):
		inner, err := parseType(s[1:], typeParams)
		if err != nil {
			return nil, err
		}
		return &types.Reference{Elem: inner}, nil
	case strings.HasPrefix(s, "*"):
		inner, err := parseType(s[1:], typeParams)
		if err != nil {
			return nil, err
		}
		return &types.Ptr{Elem: inner}, nil
	case strings.HasPrefix(s, "?"):
		var id int
		if _, err := fmt.Sscanf(s[1:], "%d", &id); err != nil {
			return nil, fmt.Errorf("bad unification var %q: %w", s, err)
		}
		return &types.Var{ID: types.TypeVar(id)}, nil
	case strings.HasPrefix(s, "coroutine(") && strings.HasSuffix(s, ")"):
		parts := splitTopLevel(s[len("coroutine(") : len(s)-1])
		if len(parts) != 2 {
			return nil, fmt.Errorf("coroutine type needs exactly 2 args: %q", s)
		}
		yieldTy, err := parseType(parts[0], typeParams)
		if err != nil {
			return nil, err
		}
		retTy, err := parseType(parts[1], typeParams)
		if err != nil {
			return nil, err
		}
		return &types.Coroutine{Yield: yieldTy, Return: retTy}, nil
	case strings.HasPrefix(s, "fn("):
		close := matchingParen(s, len("fn"))
		if close < 0 {
			return nil, fmt.Errorf("unbalanced parens in function type %q", s)
		}
		paramsPart := s[len("fn(") : close]
		rest := strings.TrimSpace(s[close+1:])
		rest = strings.TrimPrefix(rest, "->")
		rest = strings.TrimSpace(rest)
		var params []types.Type
		for _, p := range splitTopLevel(paramsPart) {
			if p == "" {
				continue
			}
			ty, err := parseType(p, typeParams)
			if err != nil {
				return nil, err
			}
			params = append(params, ty)
		}
		result, err := parseType(rest, typeParams)
		if err != nil {
			return nil, err
		}
		return &types.Function{Params: params, Result: result}, nil
	case strings.HasPrefix(s, "("):
		close := matchingParen(s, 0)
		if close != len(s)-1 {
			return nil, fmt.Errorf("unbalanced parens in tuple type %q", s)
		}
		inner := s[1:close]
		var elems []types.Type
		for _, p := range splitTopLevel(inner) {
			if p == "" {
				continue
			}
			ty, err := parseType(p, typeParams)
			if err != nil {
				return nil, err
			}
			elems = append(elems, ty)
		}
		return &types.Tuple{Elems: elems}, nil
	default:
		if idx := strings.IndexByte(s, '['); idx >= 0 && strings.HasSuffix(s, "]") {
			name := s[:idx]
			inner := s[idx+1 : len(s)-1]
			var args []types.Type
			for _, p := range splitTopLevel(inner) {
				if p == "" {
					continue
				}
				ty, err := parseType(p, typeParams)
				if err != nil {
					return nil, err
				}
				args = append(args, ty)
			}
			return &types.Named{Name: qname(name), Args: args}, nil
		}
		if typeParams != nil && typeParams[s] {
			return &types.TypeParam{Name: s}, nil
		}
		return &types.Named{Name: qname(s)}, nil
	}
}

// matchingParen returns the index of the ')' matching the '(' at open,
// or -1 if unbalanced.
func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s on top-level ", " separators, respecting nested
// parens/brackets so "fn(Int) -> Int, String" splits into two elements.
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if start < len(s) {
		out = append(out, strings.TrimSpace(s[start:]))
	}
	return out
}
