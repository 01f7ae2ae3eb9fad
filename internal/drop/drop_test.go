package drop_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/drop"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/types"
)

func q(name string) ident.QName { return ident.Item{Name: name} }

func TestInitializerAssignsLocalsToEnclosingScope(t *testing.T) {
	body := hir.NewBody()
	stringType := &types.Named{Name: q("String")}
	scopeID := hir.SyntaxBlockId{}.Child(0)

	local := body.NamedLocal("s", stringType, diag.Location{}, false)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.BlockStart{ID: scopeID}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.DeclareVar{Var: local}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.BlockEnd{ID: scopeID}})

	fn := &hir.Function{Name: q("f"), Body: body, Result: types.Unit()}

	init := &drop.Initializer{NeedsDrop: func(t types.Type) bool { return true }}
	info := init.Run(fn)

	require.Equal(t, scopeID, info.OwnerScope[local.Slot])
}

func TestFinalizerEmitsDropAtScopeEnd(t *testing.T) {
	body := hir.NewBody()
	stringType := &types.Named{Name: q("String")}
	scopeID := hir.SyntaxBlockId{}.Child(0)

	local := body.NamedLocal("s", stringType, diag.Location{}, false)
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.BlockStart{ID: scopeID}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.DeclareVar{Var: local}})
	body.Append(body.Entry, &hir.Instruction{Kind: &hir.BlockEnd{ID: scopeID}})

	fn := &hir.Function{Name: q("f"), Body: body, Result: types.Unit()}

	init := &drop.Initializer{NeedsDrop: func(t types.Type) bool { return true }}
	info := init.Run(fn)

	fin := &drop.Finalizer{}
	fin.Run(fn, info)

	var sawDrop bool
	for _, instr := range body.Blocks[body.Entry].Instructions {
		if d, ok := instr.Kind.(*hir.Drop); ok && d.Target.SameIdentity(local) {
			sawDrop = true
		}
	}
	require.True(t, sawDrop)
}
