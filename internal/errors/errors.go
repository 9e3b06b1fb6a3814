// Package errors defines the FACET diagnostic taxonomy: stable codes
// partitioned by phase (P- parse, R- resolve, V- validate, E- engine,
// B- allocator) plus the legacy numeric catalog (F001…F902) a host may be
// required to preserve. See spec.md §6-7.
package errors

import (
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Code is a stable diagnostic code, e.g. "P-INDENT" or "V-CONSTRAINT".
type Code string

const (
	// Parser
	PIndent     Code = "P-INDENT"
	PTab        Code = "P-TAB"
	PUnclosed   Code = "P-UNCLOSED"
	PUnexpected Code = "P-UNEXPECTED"

	// Resolver
	RPath  Code = "R-PATH"
	RCycle Code = "R-CYCLE"
	RDepth Code = "R-DEPTH"
	RNotFound Code = "R-NOTFOUND"

	// Validator
	VUndef       Code = "V-UNDEF"
	VFwd         Code = "V-FWD"
	VType        Code = "V-TYPE"
	VConstraint  Code = "V-CONSTRAINT"
	VInput       Code = "V-INPUT"
	VLens        Code = "V-LENS"
	VImportNF    Code = "V-IMPORT-NF"
	VImportCyc   Code = "V-IMPORT-CYC"
	VDuplicate   Code = "V-DUPLICATE"

	// Engine
	ECycle Code = "E-CYCLE"
	EGas   Code = "E-GAS"
	ELens  Code = "E-LENS"

	// Allocator / budget
	BBudget Code = "B-BUDGET"

	// Internal compiler bug, never user-reachable.
	ICInternal Code = "IC-INTERNAL"
)

// legacyCodes maps each logical code to the legacy numeric catalog, per
// spec.md §6 and grounded on fct-parser/src/error.rs, fct-validator/src/errors.rs,
// fct-resolver/src/lib.rs and fct-engine/src/errors.rs in original_source/.
var legacyCodes = map[Code]string{
	PIndent:     "F001",
	PTab:        "F002",
	PUnclosed:   "F003",
	PUnexpected: "F003",
	VUndef:      "F401",
	VFwd:        "F404",
	VType:       "F451",
	VConstraint: "F452",
	VInput:      "F453",
	RPath:       "F601",
	RNotFound:   "F601",
	VImportNF:   "F601",
	RCycle:      "F602",
	VImportCyc:  "F602",
	ELens:       "F801",
	VLens:       "F802",
	BBudget:     "F901",
	EGas:        "F902",
	ECycle:      "F505",
}

// Legacy returns the legacy numeric code for c, or "" if none is assigned
// (R-DEPTH, V-DUPLICATE and IC-INTERNAL postdate the legacy catalog).
func Legacy(c Code) string {
	return legacyCodes[c]
}

// Span locates a diagnostic in source text.
type Span struct {
	Offset int
	Line   int
	Column int
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// Diagnostic is the single error type returned by every phase. A compile
// either produces a canonical document or exactly one (or, for the
// validator's batched mode, several) Diagnostic — never both.
type Diagnostic struct {
	Code       Code
	Message    string
	Span       Span
	HasSpan    bool
	Suggestion string // e.g. "did you mean 'trim'?"
	Source     string // full source text, for snippet rendering
}

func (d *Diagnostic) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", d.Code, d.Message)
	if d.Suggestion != "" {
		fmt.Fprintf(&b, " (%s)", d.Suggestion)
	}
	if d.HasSpan {
		fmt.Fprintf(&b, "\n%s", d.snippet())
	}
	return b.String()
}

// snippet renders a Rust/Clang-style pointer at the error location, the
// format runtime/parser/errors.go uses for ParseError.
func (d *Diagnostic) snippet() string {
	if d.Source == "" || d.Span.Line <= 0 {
		return ""
	}
	lines := strings.Split(d.Source, "\n")
	if d.Span.Line > len(lines) {
		return ""
	}
	line := lines[d.Span.Line-1]

	var b strings.Builder
	fmt.Fprintf(&b, "  --> %d:%d\n", d.Span.Line, d.Span.Column)
	b.WriteString("   |\n")
	fmt.Fprintf(&b, "%2d | %s\n", d.Span.Line, line)
	b.WriteString("   | ")
	if d.Span.Column > 0 && d.Span.Column <= len(line)+1 {
		b.WriteString(strings.Repeat(" ", d.Span.Column-1) + "^")
	}
	return b.String()
}

// New creates a spanless diagnostic (e.g. a budget error with no single
// source location).
func New(code Code, format string, args ...any) *Diagnostic {
	return &Diagnostic{Code: code, Message: fmt.Sprintf(format, args...)}
}

// At creates a diagnostic anchored to span, rendering a snippet from source.
func At(code Code, span Span, source string, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
		HasSpan: true,
		Source:  source,
	}
}

// Suggest appends a fuzzy "did you mean" suggestion computed against
// candidates, mirroring the decorator-name suggestion the teacher attaches
// to unknown-decorator errors.
func (d *Diagnostic) Suggest(needle string, candidates []string) *Diagnostic {
	best := ""
	bestRank := -1
	for _, c := range candidates {
		r := fuzzy.RankMatch(needle, c)
		if r < 0 {
			continue
		}
		if bestRank == -1 || r < bestRank {
			bestRank = r
			best = c
		}
	}
	if best != "" {
		d.Suggestion = fmt.Sprintf("did you mean %q?", best)
	}
	return d
}

// Batch collects multiple Diagnostics from a phase that supports batched
// reporting (the validator, per spec.md §7).
type Batch struct {
	Diagnostics []*Diagnostic
}

func (b *Batch) Add(d *Diagnostic) {
	b.Diagnostics = append(b.Diagnostics, d)
}

func (b *Batch) Empty() bool {
	return len(b.Diagnostics) == 0
}

func (b *Batch) Error() string {
	msgs := make([]string, len(b.Diagnostics))
	for i, d := range b.Diagnostics {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "\n\n")
}

// AsDiagnostic unwraps err into a *Diagnostic if it is one.
func AsDiagnostic(err error) (*Diagnostic, bool) {
	d, ok := err.(*Diagnostic)
	return d, ok
}
