// Package dump renders a hir.Program or mir.Program into a plain YAML tree,
// for snapshot tests and the driver's --dump-hir/--dump-mir flags. It is the
// "misc: dumping" bucket of §2, kept deliberately thin: a debug aid for
// comparing compiler output across runs, not a stable serialization format.
//
// hir.InstructionKind and mir.Statement/Terminator are closed interfaces
// with unexported marker methods, so neither can be marshalled by yaml.v3
// directly; this package first flattens each Program into plain structs
// (one-line textual instructions, like internal/mir's own §6 printer) and
// then hands that tree to yaml.Marshal, the way funvibe-funxy's ext.Config
// and sunholo-data-ailang's eval_harness.ModelsConfig marshal their own
// plain config trees.
package dump

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/mir"
)

// HIRProgram is the YAML-serializable snapshot of a hir.Program.
type HIRProgram struct {
	Structs   []HIRStruct   `yaml:"structs,omitempty"`
	Enums     []HIREnum     `yaml:"enums,omitempty"`
	Functions []HIRFunction `yaml:"functions"`
}

type HIRStruct struct {
	Name   string   `yaml:"name"`
	Fields []string `yaml:"fields,omitempty"`
}

type HIREnum struct {
	Name     string   `yaml:"name"`
	Variants []string `yaml:"variants,omitempty"`
}

type HIRFunction struct {
	Name   string    `yaml:"name"`
	Kind   string    `yaml:"kind"`
	Params []string  `yaml:"params,omitempty"`
	Result string    `yaml:"result"`
	Blocks []HIRBlock `yaml:"blocks,omitempty"`
}

type HIRBlock struct {
	Label        string   `yaml:"label"`
	Instructions []string `yaml:"instructions,omitempty"`
}

// HIR renders prog as a YAML snapshot tree.
func HIR(prog *hir.Program) *HIRProgram {
	out := &HIRProgram{}
	for _, name := range prog.StructOrder {
		s := prog.Structs[name]
		fields := make([]string, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = fmt.Sprintf("%s: %s", f.Name, f.Type)
		}
		out.Structs = append(out.Structs, HIRStruct{Name: name, Fields: fields})
	}
	for _, name := range prog.EnumOrder {
		e := prog.Enums[name]
		variants := make([]string, len(e.Variants))
		for i, v := range e.Variants {
			variants[i] = variantSignature(v)
		}
		out.Enums = append(out.Enums, HIREnum{Name: name, Variants: variants})
	}
	for _, name := range prog.FunctionOrder {
		out.Functions = append(out.Functions, dumpFunction(prog.Functions[name]))
	}
	return out
}

func variantSignature(v hir.Variant) string {
	s := v.Name
	if len(v.Items) == 0 {
		return s
	}
	s += "("
	for i, t := range v.Items {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	return s + ")"
}

func dumpFunction(fn *hir.Function) HIRFunction {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
	}
	out := HIRFunction{
		Name:   fn.Name.String(),
		Kind:   functionKindName(fn.Kind),
		Params: params,
		Result: fn.Result.String(),
	}
	if fn.Body == nil {
		return out
	}
	for _, id := range fn.Body.Order {
		blk := fn.Body.Blocks[id]
		b := HIRBlock{Label: fmt.Sprintf("block%d", id)}
		for _, instr := range blk.Instructions {
			b.Instructions = append(b.Instructions, renderInstruction(instr.Kind))
		}
		out.Blocks = append(out.Blocks, b)
	}
	return out
}

// renderInstruction renders one instruction kind as a single debug line.
// Coverage follows what internal/mir's lowering and internal/verify's
// checker actually handle; kinds outside that set (the effect-handler
// family: With/WithInfo/ReadImplicit/WriteImplicit/Yield/HandlerContext)
// fall through to a generic %+v rendering, since nothing downstream of
// resolve/borrow/drop is expected to still see them in a dumped snapshot.
func renderInstruction(k hir.InstructionKind) string {
	switch i := k.(type) {
	case *hir.IntegerLiteral:
		return fmt.Sprintf("%s = %d", i.Dest.Name(), i.Value)
	case *hir.StringLiteral:
		return fmt.Sprintf("%s = %q", i.Dest.Name(), i.Value)
	case *hir.CharLiteral:
		return fmt.Sprintf("%s = %q", i.Dest.Name(), i.Value)
	case *hir.Assign:
		return fmt.Sprintf("%s := %s", i.LHS.Name(), i.RHS.Name())
	case *hir.Ref:
		return fmt.Sprintf("%s = &%s", i.Dest.Name(), i.Src.Name())
	case *hir.PtrOf:
		return fmt.Sprintf("%s = ptr %s", i.Dest.Name(), i.Src.Name())
	case *hir.LoadPtr:
		return fmt.Sprintf("%s = *%s", i.Dest.Name(), i.Src.Name())
	case *hir.StorePtr:
		return fmt.Sprintf("*%s = %s", i.Dest.Name(), i.Src.Name())
	case *hir.Tuple:
		return fmt.Sprintf("%s = tuple(%s)", i.Dest.Name(), joinVars(i.Args))
	case *hir.FieldRef:
		return fmt.Sprintf("%s = %s%s", i.Dest.Name(), i.Receiver.Name(), fieldPath(i.Path))
	case *hir.FieldAssign:
		return fmt.Sprintf("%s%s = %s", i.Root.Name(), fieldPath(i.Path), i.RHS.Name())
	case *hir.AddressOfField:
		return fmt.Sprintf("%s = &%s%s", i.Dest.Name(), i.Receiver.Name(), fieldPath(i.Path))
	case *hir.Transform:
		return fmt.Sprintf("%s = transform(%s, variant=%d)", i.Dest.Name(), i.Src.Name(), i.VariantIndex)
	case *hir.FunctionCall:
		return fmt.Sprintf("%s = call %s(%s)", i.Dest.Name(), i.Call.Name.String(), joinVars(i.Call.Args))
	case *hir.MethodCall:
		return fmt.Sprintf("%s = method %s.%s(%s)", i.Dest.Name(), i.Receiver.Name(), i.Name, joinVars(i.Args))
	case *hir.DynamicFunctionCall:
		return fmt.Sprintf("%s = dyncall %s(%s)", i.Dest.Name(), i.Callee.Name(), joinVars(i.Args))
	case *hir.CreateClosure:
		return fmt.Sprintf("%s = closure %s", i.Dest.Name(), i.Info.Name.String())
	case *hir.IntegerOp:
		return fmt.Sprintf("%s = %s op %s", i.Dest.Name(), i.LHS.Name(), i.RHS.Name())
	case *hir.Return:
		if i.HasValue {
			return fmt.Sprintf("return %s", i.Value.Name())
		}
		return "return"
	case *hir.Jump:
		return fmt.Sprintf("jump block%d", i.Target)
	case *hir.IntegerSwitch:
		return fmt.Sprintf("switch %s (%d cases)", i.Root.Name(), len(i.Cases))
	case *hir.EnumSwitch:
		return fmt.Sprintf("switch %s (%d cases)", i.Root.Name(), len(i.Cases))
	case *hir.DropPath, *hir.DropMetadata, *hir.Drop:
		return fmt.Sprintf("%T", k)
	case *hir.Converter:
		return fmt.Sprintf("%s = convert %s", i.Dest.Name(), i.Src.Name())
	case *hir.Bind:
		return fmt.Sprintf("bind %s = %s", i.LHS.Name(), i.RHS.Name())
	case *hir.BlockStart, *hir.BlockEnd, *hir.DeclareVar:
		return fmt.Sprintf("%T", k)
	default:
		return fmt.Sprintf("%T %+v", k, k)
	}
}

func functionKindName(k hir.FunctionKind) string {
	switch k {
	case hir.UserDefined:
		return "UserDefined"
	case hir.StructCtor:
		return "StructCtor"
	case hir.VariantCtor:
		return "VariantCtor"
	case hir.ExternC:
		return "ExternC"
	case hir.ExternBuiltin:
		return "ExternBuiltin"
	case hir.TraitMemberDecl:
		return "TraitMemberDecl"
	case hir.TraitMemberDefinition:
		return "TraitMemberDefinition"
	case hir.EffectMemberDecl:
		return "EffectMemberDecl"
	case hir.EffectMemberDefinition:
		return "EffectMemberDefinition"
	default:
		return fmt.Sprintf("FunctionKind(%d)", int(k))
	}
}

func joinVars(vars []hir.Variable) string {
	s := ""
	for i, v := range vars {
		if i > 0 {
			s += ", "
		}
		s += v.Name()
	}
	return s
}

func fieldPath(path []hir.FieldInfo) string {
	s := ""
	for _, step := range path {
		s += step.Field.String()
	}
	return s
}

// MIRProgram is the YAML-serializable snapshot of a mir.Program.
type MIRProgram struct {
	Structs   []MIRStruct   `yaml:"structs,omitempty"`
	Strings   []mir.StringConstant `yaml:"strings,omitempty"`
	Functions []MIRFunction `yaml:"functions"`
}

type MIRStruct struct {
	Name   string   `yaml:"name"`
	Fields []string `yaml:"fields,omitempty"`
}

type MIRFunction struct {
	Name     string     `yaml:"name"`
	Signature string    `yaml:"signature"`
	Blocks   []MIRBlock `yaml:"blocks,omitempty"`
}

type MIRBlock struct {
	Label        string   `yaml:"label"`
	Instructions []string `yaml:"instructions,omitempty"`
	Terminator   string   `yaml:"terminator"`
}

// MIR renders prog as a YAML snapshot tree, reusing internal/mir's own §6
// textual rendering for statements/terminators so the dump and the
// --dump-mir printer never drift apart.
func MIR(prog *mir.Program) *MIRProgram {
	out := &MIRProgram{Strings: prog.Strings}
	for _, s := range prog.Structs {
		fields := make([]string, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = fmt.Sprintf("%s: %s", f.Name, f.Type)
		}
		out.Structs = append(out.Structs, MIRStruct{Name: s.Name, Fields: fields})
	}
	for _, fn := range prog.Functions {
		out.Functions = append(out.Functions, dumpMIRFunction(fn))
	}
	return out
}

func dumpMIRFunction(fn *mir.Function) MIRFunction {
	out := MIRFunction{Name: fn.Name, Signature: mir.FunctionSignature(fn)}
	for _, blk := range fn.Blocks {
		b := MIRBlock{Label: blk.Label, Terminator: mir.TerminatorString(blk.Terminator)}
		for _, st := range blk.Statements {
			if line := mir.StatementString(st); line != "" {
				b.Instructions = append(b.Instructions, line)
			}
		}
		out.Blocks = append(out.Blocks, b)
	}
	return out
}

// Marshal renders a snapshot tree (as returned by HIR or MIR) to YAML text.
func Marshal(v interface{}) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("dump: marshal snapshot: %w", err)
	}
	return string(b), nil
}
