package borrow

import (
	"sort"

	"github.com/sourcelang/corec/internal/hir"
	"github.com/sourcelang/corec/internal/scc"
	"github.com/sourcelang/corec/internal/types"
)

// Link records that any borrow flowing into From also reaches To (§4.3.2),
// discovered by observing reference reassignment (Assign between two
// reference-typed variables).
type Link struct {
	From, To BorrowVar
}

// FunctionProfile is the borrow signature of one function: its arguments
// and result as ExtendedTypes, plus the Links discovered while walking its
// body (§4.3.2).
type FunctionProfile struct {
	Name   string
	Args   []ExtendedType
	Result ExtendedType
	Links  []Link

	// ExtOf is every local/param/temp variable slot's ExtendedType as
	// inferred while walking the body, kept around so the pipeline driver
	// can hand it straight to borrow.NewChecker/BuildLiveness without
	// recomputing it.
	ExtOf map[int]ExtendedType
}

// allocator hands out fresh BorrowVars for one profile-building pass over a
// single function.
type borrowVarAllocator struct{ next BorrowVar }

func (a *borrowVarAllocator) fresh() BorrowVar {
	v := a.next
	a.next++
	return v
}

// extend produces an ExtendedType for t, allocating a fresh BorrowVar for
// every Reference/Ptr layer and, when t names any struct/enum registered in
// the data groups, one further fresh var for that named type.
func extend(t types.Type, dg *DataGroups, alloc *borrowVarAllocator) ExtendedType {
	switch v := t.(type) {
	case *types.Reference:
		inner := extend(v.Elem, dg, alloc)
		return ExtendedType{Ty: t, Vars: append([]BorrowVar{alloc.fresh()}, inner.Vars...)}
	case *types.Ptr:
		inner := extend(v.Elem, dg, alloc)
		return ExtendedType{Ty: t, Vars: append([]BorrowVar{alloc.fresh()}, inner.Vars...)}
	case *types.Named:
		if dg != nil && dg.GroupOf(v.Name.String()) >= 0 {
			return ExtendedType{Ty: t, Vars: []BorrowVar{alloc.fresh()}}
		}
		return ExtendedType{Ty: t}
	default:
		return ExtendedType{Ty: t}
	}
}

// ProfileStore interns profiles by function qname, used both as the
// fixpoint memo table during building and as the lookup table later passes
// (liveness, checker) read from.
type ProfileStore struct {
	byName map[string]*FunctionProfile
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{byName: make(map[string]*FunctionProfile)}
}

func (s *ProfileStore) Get(name string) (*FunctionProfile, bool) {
	p, ok := s.byName[name]
	return p, ok
}

func (s *ProfileStore) set(name string, p *FunctionProfile) bool {
	old, existed := s.byName[name]
	s.byName[name] = p
	return !existed || !profilesEqual(old, p)
}

func profilesEqual(a, b *FunctionProfile) bool {
	if len(a.Args) != len(b.Args) || len(a.Links) != len(b.Links) {
		return false
	}
	for i := range a.Args {
		if len(a.Args[i].Vars) != len(b.Args[i].Vars) {
			return false
		}
	}
	return len(a.Result.Vars) == len(b.Result.Vars)
}

// Builder builds FunctionProfiles for every function in a Program, in SCC
// order of the call graph, iterating each SCC to a fixpoint (§4.3.3).
type Builder struct {
	Program *hir.Program
	Groups  *DataGroups
	Store   *ProfileStore
}

func NewBuilder(prog *hir.Program) *Builder {
	return &Builder{Program: prog, Groups: BuildDataGroups(prog), Store: NewProfileStore()}
}

// BuildAll computes profiles for every user-defined function, processing
// the call graph's SCCs in dependency order and iterating each group until
// the profile store stops changing.
func (b *Builder) BuildAll() {
	callGraph := make(map[string][]string)
	for _, name := range b.Program.FunctionOrder {
		fn := b.Program.Functions[name]
		callGraph[name] = calleesOf(fn)
	}
	groups := scc.Compute(callGraph)

	for _, group := range groups {
		for {
			changed := false
			for _, name := range group.Items {
				fn, ok := b.Program.Functions[name]
				if !ok || fn.Body == nil {
					continue
				}
				p := b.buildOne(fn)
				if b.Store.set(name, p) {
					changed = true
				}
			}
			if !changed {
				break
			}
		}
	}
}

func calleesOf(fn *hir.Function) []string {
	if fn.Body == nil {
		return nil
	}
	var out []string
	for _, id := range fn.Body.Order {
		for _, instr := range fn.Body.Blocks[id].Instructions {
			if call, ok := instr.Kind.(*hir.FunctionCall); ok {
				out = append(out, call.Call.Name.String())
			}
		}
	}
	return out
}

// buildOne walks fn's body once, inferring and unifying ExtendedTypes per
// the per-instruction rules of §4.3.3, then normalises the result.
func (b *Builder) buildOne(fn *hir.Function) *FunctionProfile {
	alloc := &borrowVarAllocator{}
	extOf := make(map[int]ExtendedType) // variable slot -> its ExtendedType

	var links []Link
	link := func(from, to BorrowVar) { links = append(links, Link{From: from, To: to}) }

	extendVar := func(v hir.Variable) ExtendedType {
		if e, ok := extOf[v.Slot]; ok {
			return e
		}
		e := extend(v.Type(), b.Groups, alloc)
		extOf[v.Slot] = e
		return e
	}
	unify := func(a, b ExtendedType) {
		for i := 0; i < len(a.Vars) && i < len(b.Vars); i++ {
			if a.Vars[i] != b.Vars[i] {
				link(b.Vars[i], a.Vars[i])
				link(a.Vars[i], b.Vars[i])
			}
		}
	}

	if fn.Body != nil {
		for _, id := range fn.Body.Order {
			for _, instr := range fn.Body.Blocks[id].Instructions {
				switch k := instr.Kind.(type) {
				case *hir.FunctionCall:
					callee, ok := b.Store.Get(k.Call.Name.String())
					if ok {
						for i, arg := range k.Call.Args {
							if i < len(callee.Args) {
								unify(extendVar(arg), callee.Args[i])
							}
						}
						unify(extendVar(k.Dest), callee.Result)
						for _, l := range callee.Links {
							link(l.From, l.To)
						}
					} else {
						extendVar(k.Dest)
						for _, arg := range k.Call.Args {
							extendVar(arg)
						}
					}
				case *hir.Ref:
					d := extendVar(k.Dest)
					s := extendVar(k.Src)
					unify(unpackRef(d), s)
				case *hir.PtrOf:
					d := extendVar(k.Dest)
					s := extendVar(k.Src)
					unify(unpackPtr(d), s)
				case *hir.FieldRef:
					rcv := extendVar(k.Receiver)
					dest := extendVar(k.Dest)
					if rv, isRef := asRef(rcv); isRef {
						if len(dest.Vars) == 0 {
							dest.Vars = []BorrowVar{rv}
							extOf[k.Dest.Slot] = dest
						} else {
							link(rv, dest.Vars[0])
						}
					}
				case *hir.FieldAssign:
					extendVar(k.Root)
					extendVar(k.RHS)
				case *hir.AddressOfField:
					rcv := extendVar(k.Receiver)
					dest := extendVar(k.Dest)
					if len(dest.Vars) > 0 && len(rcv.Vars) > 0 {
						link(rcv.Vars[0], dest.Vars[0])
					}
				case *hir.Assign:
					d := extendVar(k.LHS)
					s := extendVar(k.RHS)
					if _, dIsRef := d.Ty.(*types.Reference); dIsRef {
						if _, sIsRef := s.Ty.(*types.Reference); sIsRef {
							unify(d, s)
							link(base(s), base(d))
							continue
						}
					}
					unify(d, s)
				case *hir.Transform:
					d := extendVar(k.Dest)
					s := extendVar(k.Src)
					if rv, isRef := asRef(s); isRef {
						if len(d.Vars) == 0 {
							d.Vars = []BorrowVar{rv}
							extOf[k.Dest.Slot] = d
						}
					}
				case *hir.LoadPtr:
					unify(extendVar(k.Dest), extendVar(k.Src))
				case *hir.StorePtr:
					unify(extendVar(k.Dest), extendVar(k.Src))
				case *hir.Return:
					if k.HasValue {
						extendVar(k.Value)
					}
				default:
					// Other instruction kinds carry no borrow-relevant flow.
				}
			}
		}
	}

	args := make([]ExtendedType, len(fn.Params))
	for i, param := range fn.Params {
		args[i] = extend(param.Type, b.Groups, alloc)
	}
	result := extend(fn.Result, b.Groups, alloc)

	p := &FunctionProfile{Name: fn.Name.String(), Args: args, Result: result, Links: dedupLinks(links), ExtOf: extOf}
	return normalize(p)
}

func dedupLinks(links []Link) []Link {
	seen := make(map[Link]bool)
	var out []Link
	for _, l := range links {
		if l.From == l.To || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// normalize renames the profile's borrow variables into a canonical order
// (discovery order across Args then Result), so two structurally identical
// profiles compare equal regardless of allocation order (§4.3.3).
func normalize(p *FunctionProfile) *FunctionProfile {
	renumber := make(map[BorrowVar]BorrowVar)
	var next BorrowVar
	assign := func(v BorrowVar) BorrowVar {
		if r, ok := renumber[v]; ok {
			return r
		}
		renumber[v] = next
		next++
		return renumber[v]
	}
	for i := range p.Args {
		for j, v := range p.Args[i].Vars {
			p.Args[i].Vars[j] = assign(v)
		}
	}
	for j, v := range p.Result.Vars {
		p.Result.Vars[j] = assign(v)
	}
	for i := range p.Links {
		p.Links[i].From = assign(p.Links[i].From)
		p.Links[i].To = assign(p.Links[i].To)
	}
	for slot, e := range p.ExtOf {
		renamed := make([]BorrowVar, len(e.Vars))
		for i, v := range e.Vars {
			renamed[i] = assign(v)
		}
		e.Vars = renamed
		p.ExtOf[slot] = e
	}
	sort.Slice(p.Links, func(i, j int) bool {
		if p.Links[i].From != p.Links[j].From {
			return p.Links[i].From < p.Links[j].From
		}
		return p.Links[i].To < p.Links[j].To
	})
	return p
}
