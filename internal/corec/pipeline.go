// Package corec sequences the CORE pipeline of spec.md §2 over one
// hir.Program: call resolution (C2), structural normalisation (tuple then
// closure lowering, per SPEC_FULL.md's B-before-A ordering decision),
// borrow profiling/checking and drop insertion (C3), optional type
// verification (E), monomorphisation (C4a) and MIR lowering (C4b).
//
// This is the "thin driver" surface cmd/sourcec wires flags onto; grounded
// on cmd/malphas/main.go's runBuild, which strings together the teacher's
// own phases (parse, typecheck, lower, codegen) in exactly this
// straight-line, stop-on-first-error shape.
package corec

import (
	"github.com/sourcelang/corec/internal/borrow"
	"github.com/sourcelang/corec/internal/diag"
	"github.com/sourcelang/corec/internal/drop"
	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/ident"
	"github.com/sourcelang/corec/internal/lower"
	"github.com/sourcelang/corec/internal/mir"
	"github.com/sourcelang/corec/internal/mono"
	"github.com/sourcelang/corec/internal/resolve"
	"github.com/sourcelang/corec/internal/types"
	"github.com/sourcelang/corec/internal/verify"
)

// Options controls which optional phases Compile runs.
type Options struct {
	// MainName is the entry point monomorphisation is seeded from (§4.5).
	MainName ident.QName
	// RunVerify opts into the optional type-verification step E.
	RunVerify bool
}

// Result carries every stage's output the driver may want to inspect or
// dump, in addition to the final diagnostics.
type Result struct {
	// Normalized is prog itself, post structural-normalisation/borrow/drop
	// (and verify, if requested) but pre-monomorphisation — the HIR shape
	// a --dump-hir flag would show.
	Normalized *hir.Program
	// Mono is the monomorphic HIR emitted by internal/mono.
	Mono *hir.Program
	// MIR is the final lowered program, nil if an earlier phase failed.
	MIR *mir.Program
}

// Compile runs every phase of §2 over prog in order, stopping as soon as
// bag accumulates a user-facing error (§7: a phase must not advance once a
// Report has fired). It returns the Result built so far and whether every
// phase completed without error.
func Compile(prog *hir.Program, bag *diag.Bag, opts Options) (*Result, bool) {
	res := &Result{Normalized: prog}

	for _, name := range prog.FunctionOrder {
		fn := prog.Functions[name]
		if fn.Body == nil {
			continue
		}
		resolve.NewPass(prog, bag).Run(fn)
	}
	if bag.HasErrors() {
		return res, false
	}

	// (B) before (A): tuple lowering must finish before closure lowering's
	// environment-struct field types are finalised (SPEC_FULL.md).
	tl := lower.NewTupleLowering(prog)
	cl := lower.NewClosureLowering(prog)
	for _, name := range prog.FunctionOrder {
		fn := prog.Functions[name]
		if fn.Body == nil {
			continue
		}
		tl.RunFunction(fn)
	}
	for _, name := range prog.FunctionOrder {
		fn := prog.Functions[name]
		if fn.Body == nil {
			continue
		}
		cl.RunFunction(fn)
	}
	cl.Finish()

	// (C) borrow profile + borrow check, run to a program-wide fixpoint
	// before any function's drop pass sees the result (§2: "sequential on
	// a per-program basis").
	store := resolve.NewInstanceStore(prog)
	profiles := borrow.NewBuilder(prog)
	profiles.BuildAll()

	checkers := make(map[string]*borrow.Checker, len(prog.FunctionOrder))
	needsDrop := func(t types.Type) bool {
		_, isCopy := store.CloneFunctionFor(t)
		return !isCopy
	}

	for _, name := range prog.FunctionOrder {
		fn := prog.Functions[name]
		if fn.Body == nil {
			continue
		}
		extOf := map[int]borrow.ExtendedType{}
		if p, ok := profiles.Store.Get(name); ok {
			extOf = p.ExtOf
		}
		borrow.RewriteImplicitClones(fn, extOf, store)
		checker := borrow.NewChecker(bag, extOf)
		checker.Check(fn)
		checkers[name] = checker
	}
	if bag.HasErrors() {
		return res, false
	}

	// (D) drop insertion, consulting each function's own fixpoint checker
	// via MovedAdapter to skip locals already fully consumed by a move.
	for _, name := range prog.FunctionOrder {
		fn := prog.Functions[name]
		if fn.Body == nil {
			continue
		}
		init := &drop.Initializer{NeedsDrop: needsDrop}
		info := init.Run(fn)
		adapter := &borrow.MovedAdapter{Checker: checkers[name], Body: fn.Body}
		fin := &drop.Finalizer{Moved: adapter}
		fin.Run(fn, info)
	}
	if bag.HasErrors() {
		return res, false
	}

	// (E) optional type verification.
	if opts.RunVerify {
		verify.New(prog, bag).Run()
		if bag.HasErrors() {
			return res, false
		}
	}

	// (F) monomorphisation.
	monoProc := mono.NewProcessor(prog, bag)
	monoProc.Run(opts.MainName)
	res.Mono = monoProc.Out
	if bag.HasErrors() {
		return res, false
	}

	// (G) MIR lowering.
	lowering := mir.NewLowering(monoProc.Out, bag)
	res.MIR = lowering.Run()
	return res, !bag.HasErrors()
}
