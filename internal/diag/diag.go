// Package diag implements the error taxonomy and reporting surface described
// in spec.md §7: every user-visible failure is rendered as a Report carrying
// a one-line slogan plus one or more location-tagged Entry attachments.
package diag

import "fmt"

// Location is an original-source location threaded through every HIR
// instruction. The core never parses source text itself (§1 Non-goals); it
// only carries whatever Location its upstream collaborator (the surface
// type-checker) attached.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Severity distinguishes a hard failure from advisory output.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// Kind is the stable taxonomy of error shapes from spec.md §7.
type Kind string

const (
	KindTypeMismatch            Kind = "TypeMismatch"
	KindArgCountMismatch        Kind = "ArgCountMismatch"
	KindTypeAnnotationNeeded    Kind = "TypeAnnotationNeeded"
	KindAmbiguousImplementation Kind = "AmbiguousImplementations"
	KindNoImplementationFound   Kind = "NoImplementationFound"
	KindUseAfterMove            Kind = "UseAfterMove"
	KindUseAfterDrop            Kind = "UseAfterDrop"
	KindUnknownFunction         Kind = "UnknownFunction"
	KindInternal                Kind = "Internal"
)

// Entry is one attachment of a Report: a note tied to a location.
type Entry struct {
	Note     string
	Location Location
}

// Report is a single user-visible diagnostic. Per §7, any single
// non-Internal Report renders the program non-emittable; the phase that
// raised it may keep collecting Reports in the same phase but the driver
// must not advance to a later phase once one has fired.
type Report struct {
	Kind    Kind
	Slogan  string
	Entries []Entry
	BuildID string // correlates reports from the same compilation run; see SPEC_FULL.md
}

func (r Report) Error() string {
	return r.Slogan
}

// IsInternal reports whether this is a compiler-bug report rather than a
// user-facing one (§7: Internal indicates invariants broke, not user error).
func (r Report) IsInternal() bool { return r.Kind == KindInternal }

// Bag accumulates reports for a phase, matching §7's "accumulate to a
// fixpoint before reporting" propagation policy.
type Bag struct {
	reports []Report
	buildID string
}

// NewBag creates a Bag stamped with buildID (see ReportContext.NextBag).
func NewBag(buildID string) *Bag {
	return &Bag{buildID: buildID}
}

// Add appends a report, stamping it with the bag's build id.
func (b *Bag) Add(r Report) {
	r.BuildID = b.buildID
	b.reports = append(b.reports, r)
}

// Reports returns every report collected so far, in insertion order.
func (b *Bag) Reports() []Report { return b.reports }

// HasErrors reports whether any non-Internal report exists.
func (b *Bag) HasErrors() bool {
	for _, r := range b.reports {
		if r.Kind != KindInternal {
			return true
		}
	}
	return false
}

// HasInternal reports whether any Internal (compiler-bug) report exists.
func (b *Bag) HasInternal() bool {
	for _, r := range b.reports {
		if r.Kind == KindInternal {
			return true
		}
	}
	return false
}

func internalf(format string, args ...interface{}) Report {
	return Report{Kind: KindInternal, Slogan: fmt.Sprintf(format, args...)}
}

// Internal builds an Internal report for an invariant violation raised by
// a downstream pass (§7: "these indicate compiler bugs, not user errors").
func Internal(format string, args ...interface{}) Report {
	return internalf(format, args...)
}
