package mir

import (
	"fmt"
	"strings"
)

// Print renders prog in the C-like textual grammar of spec.md §6, directly
// modelled on original_source/compiler/src/siko/minic/Generator.rs's
// MiniCGenerator.dump (struct forward-declarations, then bodies, then
// function declarations, then function bodies).
func Print(prog *Program) string {
	var b strings.Builder
	for _, s := range prog.Structs {
		fmt.Fprintf(&b, "struct %s;\n", s.Name)
	}
	b.WriteString("\n")
	for _, s := range prog.Structs {
		printStruct(&b, s)
	}
	for _, sc := range prog.Strings {
		fmt.Fprintf(&b, "const char* %s = %q;\n", sc.Symbol, sc.Value)
	}
	b.WriteString("\n")
	for _, fn := range prog.Functions {
		printFunctionSignature(&b, fn)
		b.WriteString(";\n")
	}
	b.WriteString("\n")
	for _, fn := range prog.Functions {
		if fn.IsExternC || len(fn.Blocks) == 0 {
			continue
		}
		printFunction(&b, fn)
	}
	return b.String()
}

func printStruct(b *strings.Builder, s *DataStruct) {
	fmt.Fprintf(b, "struct %s {\n", s.Name)
	for i, f := range s.Fields {
		fmt.Fprintf(b, "  %s field%d; // %s\n", f.Type, i, f.Name)
	}
	b.WriteString("};\n\n")
}

// FunctionSignature renders fn's C-like signature line, for callers (such
// as internal/dump) that want one signature string without a full Print.
func FunctionSignature(fn *Function) string {
	var b strings.Builder
	return printFunctionSignature(&b, fn)
}

// StatementString renders one statement the same way Print does.
func StatementString(st Statement) string { return printStatement(st) }

// TerminatorString renders one terminator the same way Print does.
func TerminatorString(t Terminator) string { return printTerminator(t) }

func printFunctionSignature(b *strings.Builder, fn *Function) string {
	args := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		args[i] = fmt.Sprintf("%s %s", p.Type, p.Name)
	}
	name := fn.Name
	if fn.IsExternC && fn.ExternName != "" {
		name = fn.ExternName
	}
	sig := fmt.Sprintf("%s %s(%s)", fn.Result, name, strings.Join(args, ", "))
	b.WriteString(sig)
	return sig
}

func printFunction(b *strings.Builder, fn *Function) {
	fmt.Fprintf(b, "// Full Name: %s\n", fn.FullName)
	printFunctionSignature(b, fn)
	b.WriteString(" {\n")
	locals := collectLocals(fn)
	for _, v := range locals {
		fmt.Fprintf(b, "   %s %s;\n", v.Type, v.Name)
	}
	for _, blk := range fn.Blocks {
		fmt.Fprintf(b, "%s:\n", blk.Label)
		for _, st := range blk.Statements {
			if line := printStatement(st); line != "" {
				fmt.Fprintf(b, "   %s\n", line)
			}
		}
		fmt.Fprintf(b, "   %s\n", printTerminator(blk.Terminator))
	}
	b.WriteString("}\n\n")
}

func collectLocals(fn *Function) []Variable {
	params := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		params[p.Name] = true
	}
	seen := make(map[string]bool)
	var out []Variable
	for _, blk := range fn.Blocks {
		for _, st := range blk.Statements {
			if alloc, ok := st.(*Allocate); ok {
				if params[alloc.Var.Name] || seen[alloc.Var.Name] {
					continue
				}
				seen[alloc.Var.Name] = true
				out = append(out, alloc.Var)
			}
		}
	}
	return out
}

func printStatement(st Statement) string {
	switch s := st.(type) {
	case *Declare:
		return ""
	case *Allocate:
		return ""
	case *StoreLiteral:
		switch v := s.Value.(type) {
		case NumericLiteral:
			return fmt.Sprintf("%s = %d;", s.Dest.Name, v.Value)
		case StringSymbol:
			return fmt.Sprintf("%s = (uint8_t*)%s;", s.Dest.Name, v.Symbol)
		}
	case *FunctionCall:
		args := joinNames(s.Args)
		if s.HasDest {
			return fmt.Sprintf("%s = %s(%s);", s.Dest.Name, s.Name, args)
		}
		return fmt.Sprintf("%s(%s);", s.Name, args)
	case *LoadPtr:
		return fmt.Sprintf("%s = *%s;", s.Dest.Name, s.Src.Name)
	case *StorePtr:
		return fmt.Sprintf("*%s = %s;", s.Dest.Name, s.Src.Name)
	case *Memcpy:
		return fmt.Sprintf("%s = %s;", s.Dest.Name, s.Src.Name)
	case *Reference:
		return fmt.Sprintf("%s = &%s;", s.Dest.Name, s.Src.Name)
	case *GetField:
		mode := ""
		if s.Mode == Ref {
			mode = "&"
		}
		return fmt.Sprintf("%s = %s%s.field%d;", s.Dest.Name, mode, s.Root.Name, s.Index)
	case *SetField:
		path := ""
		for _, idx := range s.Indices {
			path += fmt.Sprintf(".field%d", idx)
		}
		return fmt.Sprintf("%s%s = %s;", s.Dest.Name, path, s.Src.Name)
	case *AddressOfField:
		return fmt.Sprintf("%s = &%s.field%d;", s.Dest.Name, s.Src.Name, s.Index)
	case *Bitcast:
		return fmt.Sprintf("%s = (%s)%s;", s.Dest.Name, s.Dest.Type, s.Src.Name)
	case *IntegerOp:
		return fmt.Sprintf("%s = %s %s %s;", s.Dest.Name, s.LHS.Name, opSymbol(s.Op), s.RHS.Name)
	case *FunctionPtrOf:
		return fmt.Sprintf("%s = %s;", s.Dest.Name, s.Name)
	case *FunctionPtrCall:
		return fmt.Sprintf("%s = %s(%s);", s.Dest.Name, s.Fn.Name, joinNames(s.Args))
	case *Sizeof:
		return fmt.Sprintf("%s = sizeof(%s);", s.Dest.Name, s.Of)
	case *Transmute:
		return fmt.Sprintf("%s = (%s)%s;", s.Dest.Name, s.Of, s.Dest.Name)
	}
	return ""
}

func printTerminator(t Terminator) string {
	switch term := t.(type) {
	case *Return:
		if !term.HasValue {
			return "return;"
		}
		return fmt.Sprintf("return %s;", term.Value.Name)
	case *Jump:
		return fmt.Sprintf("goto %s;", term.Target)
	case *Switch:
		var b strings.Builder
		value := term.Root.Name
		if _, isPtr := term.Root.Type.(Ptr); isPtr {
			value = "*" + value
		}
		fmt.Fprintf(&b, "switch (%s) {\n", value)
		for _, br := range term.Branches {
			fmt.Fprintf(&b, "      case %d:\n         goto %s;\n", br.Value, br.Block)
		}
		fmt.Fprintf(&b, "      default:\n         goto %s;\n   }", term.Default)
		return b.String()
	}
	return ""
}

func joinNames(vars []Variable) string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name
	}
	return strings.Join(names, ", ")
}

func opSymbol(op IntegerOpKind) string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpLt:
		return "<"
	case OpShl:
		return "<<"
	case OpShr:
		return ">>"
	case OpBitAnd:
		return "&"
	case OpBitOr:
		return "|"
	case OpBitXor:
		return "^"
	default:
		return "?"
	}
}
