package diag

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ReportContext is the user-facing colouring and source-snippet lookup
// context passed into every pass that may emit diagnostics (§6 Inputs).
// It never influences compilation results, only how Reports are rendered.
type ReportContext struct {
	out       io.Writer
	colour    bool
	printer   *message.Printer
	buildID   string
	snippets  map[string]string // source-text cache; no method fills or reads it, Render prints locations only
}

// NewReportContext builds a ReportContext writing to out. Colour is enabled
// automatically when out is a terminal (github.com/mattn/go-isatty), mirroring
// the teacher driver's habit of feature-detecting its environment before
// doing anything visual.
func NewReportContext(out *os.File) *ReportContext {
	colourOn := false
	if out != nil {
		colourOn = isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())
	}
	return &ReportContext{
		out:      out,
		colour:   colourOn,
		printer:  message.NewPrinter(language.English),
		buildID:  uuid.NewString(),
		snippets: make(map[string]string),
	}
}

// NextBag creates a fresh diag.Bag stamped with this context's build id, so
// every report emitted during one compilation run correlates.
func (rc *ReportContext) NextBag() *Bag { return NewBag(rc.buildID) }

// BuildID returns the UUID stamped on every Report produced via NextBag.
func (rc *ReportContext) BuildID() string { return rc.buildID }

// Candidates renders a pluralized "N candidate(s)" phrase for
// AmbiguousImplementations reports, using golang.org/x/text/message instead
// of hand-rolled plural logic.
func (rc *ReportContext) Candidates(n int) string {
	return rc.printer.Sprintf("%d candidate(s)", n)
}

func (rc *ReportContext) colourize(s Severity, text string) string {
	if !rc.colour {
		return text
	}
	switch s {
	case SeverityError:
		return color.New(color.FgRed, color.Bold).Sprint(text)
	case SeverityWarning:
		return color.New(color.FgYellow, color.Bold).Sprint(text)
	default:
		return color.New(color.FgCyan).Sprint(text)
	}
}

// Render writes a Report in a Rust-style "severity: slogan" plus indented
// entries format.
func (rc *ReportContext) Render(r Report, severity Severity) {
	if rc.out == nil {
		return
	}
	header := fmt.Sprintf("%s[%s]: %s", severity, r.Kind, r.Slogan)
	fmt.Fprintln(rc.out, rc.colourize(severity, header))
	for _, e := range r.Entries {
		fmt.Fprintf(rc.out, "  --> %s\n", e.Location)
		if e.Note != "" {
			fmt.Fprintf(rc.out, "      %s\n", e.Note)
		}
	}
}

// RenderBag renders every report in a bag, ordered by Location (matching
// §5's reproducibility guarantee: reports in the same phase must be
// rendered in a deterministic order).
func (rc *ReportContext) RenderBag(b *Bag) {
	reports := append([]Report(nil), b.Reports()...)
	sort.SliceStable(reports, func(i, j int) bool {
		return locationKey(reports[i]) < locationKey(reports[j])
	})
	for _, r := range reports {
		sev := SeverityError
		if r.Kind == KindInternal {
			sev = SeverityError
		}
		rc.Render(r, sev)
	}
}

func locationKey(r Report) string {
	if len(r.Entries) == 0 {
		return ""
	}
	loc := r.Entries[0].Location
	return strings.Join([]string{loc.File, fmt.Sprint(loc.Line), fmt.Sprint(loc.Column)}, ":")
}
