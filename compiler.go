// Package facet is the FACET compiler's entry point: it sequences the
// parser, resolver, validator, dependency engine, token allocator and
// canonical renderer into a single Compile call. Grounded on the
// teacher's top-level command wiring (cmd/devcmd's pipeline of
// lex -> parse -> plan -> execute, runtime/*), narrowed to an I/O-free,
// six-phase compile with no execution step.
package facet

import (
	"context"
	"strconv"

	"github.com/facet-lang/facet/internal/allocator"
	"github.com/facet-lang/facet/internal/ast"
	"github.com/facet-lang/facet/internal/engine"
	"github.com/facet-lang/facet/internal/errors"
	"github.com/facet-lang/facet/internal/invariant"
	"github.com/facet-lang/facet/internal/lens"
	"github.com/facet-lang/facet/internal/parser"
	"github.com/facet-lang/facet/internal/render"
	"github.com/facet-lang/facet/internal/resolver"
	"github.com/facet-lang/facet/internal/validator"
)

// Options configures one Compile call.
type Options struct {
	// Path is the root document's import-resolution identity (used as the
	// base for relative `@import` paths). May be empty for a document with
	// no imports.
	Path string
	// Loader resolves `@import` paths. Required only if the source uses
	// `@import`.
	Loader resolver.Loader
	// Budget is the token budget the allocator packs sections into. Zero
	// means "unbounded": every section renders at full size.
	Budget int
	// GasLimit bounds total lens-pipeline work. Zero uses
	// engine.DefaultGasLimit.
	GasLimit int
}

// Result is a finished compile: the canonical payload plus the
// allocator's bookkeeping flags (SPEC_FULL.md §C.5), not serialized into
// the payload itself.
type Result struct {
	Payload       *render.Payload
	Allocation    *allocator.Result
	Diagnostics   *errors.Batch // the validator's batch; always empty here, since any validator finding aborts Compile
	WasTruncated  bool
	WasCompressed bool
	WasDropped    bool
}

// Compile runs every phase over src and returns the canonical payload, or
// the first fatal diagnostic (a parse/resolve/engine/allocator error). The
// validator runs in batched mode per spec.md §7 and collects every
// finding, but any V-* finding aborts the compile before evaluation and
// the batch's first diagnostic is returned (a compile with known-invalid
// references must not silently evaluate and render a guess), so a
// returned Result always carries an empty Diagnostics batch.
func Compile(ctx context.Context, src string, opts Options) (*Result, *errors.Diagnostic) {
	invariant.ContextNotBackground(ctx, "facet.Compile")

	doc, diag := parser.Parse(src)
	if diag != nil {
		return nil, diag
	}

	if hasImports(doc) {
		if opts.Loader == nil {
			return nil, errors.New(errors.RNotFound, "document has @import blocks but no Loader was configured")
		}
		res := resolver.New(opts.Loader)
		doc, diag = res.Resolve(ctx, opts.Path, src)
		if diag != nil {
			return nil, diag
		}
	}

	v := validator.New()
	batch := v.Check(doc)
	if !batch.Empty() {
		return nil, batch.Diagnostics[0]
	}

	eng := engine.New()
	if opts.GasLimit > 0 {
		eng.GasLimit = opts.GasLimit
	}
	evalResult, diag := eng.Evaluate(ctx, doc, nil, nil)
	if diag != nil {
		return nil, diag
	}

	payload := render.Build(evalResult)

	result := &Result{Payload: payload, Diagnostics: batch}

	effectiveBudget := opts.Budget
	if effectiveBudget <= 0 {
		effectiveBudget = unboundedBudget
	}
	alloc, diag := allocate(payload, effectiveBudget)
	if diag != nil {
		return nil, diag
	}
	if opts.Budget > 0 {
		result.Allocation = alloc
		applyAllocation(payload, alloc)
		for _, s := range alloc.Sections {
			result.WasTruncated = result.WasTruncated || s.WasTruncated
			result.WasCompressed = result.WasCompressed || s.WasCompressed
			result.WasDropped = result.WasDropped || s.WasDropped
		}
	}
	stampMetadata(payload, alloc, opts.Budget)

	return result, nil
}

func hasImports(doc *ast.Document) bool {
	for _, b := range doc.Blocks {
		if b.Tag == ast.BlockImport {
			return true
		}
	}
	return false
}

// unboundedBudget stands in for Options.Budget == 0 ("unbounded: every
// section renders at full size"): large enough that no realistic document
// triggers compression, so the allocator still runs (and metadata still
// gets a real total_tokens/overflow figure) without the host having set a
// cap.
const unboundedBudget = 1 << 30

// allocate packs the payload's critical (system, user) and flexible
// (context, assistant) sections into budget tokens, per spec.md §4.5. The
// system and user sections are always critical since dropping either
// produces a malformed request; context entries and the assistant block
// are flexible and ordered by their own declaration order for the
// priority tiebreak. System and user are rendered as arrays of per-entry
// objects (render.Payload's own shape), so their content is measured and
// (never, since critical sections are never truncated) rewritten via the
// flattened render.JoinedText view; assistant uses the same flattening
// since it alone among the three can be compressed.
func allocate(p *render.Payload, budget int) (*allocator.Result, *errors.Diagnostic) {
	sections := []allocator.Section{
		{ID: "system", Critical: true, Priority: 100, Content: render.JoinedText(p.System)},
		{ID: "user", Critical: true, Priority: 100, Content: render.JoinedText(p.User)},
	}
	if len(p.Assistant) > 0 {
		sections = append(sections, allocator.Section{ID: "assistant", Critical: false, Priority: 50, Min: 0, Shrink: 0.5, Content: render.JoinedText(p.Assistant)})
	}
	for i, c := range p.Context {
		s, _ := c.(string)
		sections = append(sections, allocator.Section{ID: contextSectionID(i), Priority: 10, Min: 0, Shrink: 0.5, Content: s})
	}
	return allocator.Allocate(sections, budget)
}

func contextSectionID(i int) string {
	return "context." + strconv.Itoa(i)
}

// applyAllocation writes allocator-decided truncation/drops back onto the
// payload. System and user are critical and spec.md §4.5 step 3 never
// truncates a critical section below its base, so neither case appears
// here: their entry-object arrays are left exactly as render.Build
// produced them. Assistant, being non-critical, collapses to a single
// truncated entry on compression and an empty array on drop. A compressed
// context entry is replaced by its truncated text and a dropped one by nil
// (rendered as null, so the other entries keep their positions); every
// other context entry keeps its original value.
func applyAllocation(p *render.Payload, alloc *allocator.Result) {
	for _, s := range alloc.Sections {
		switch s.ID {
		case "assistant":
			switch {
			case s.WasDropped:
				p.Assistant = nil
			case s.WasCompressed:
				p.Assistant = []lens.Value{map[string]lens.Value{assistantEntryKey(p.Assistant): s.Content}}
			}
		default:
			// context.N
			var idx int
			for i := range p.Context {
				if contextSectionID(i) == s.ID {
					idx = i
					break
				}
			}
			if s.WasDropped {
				p.Context[idx] = nil
			} else if s.WasCompressed {
				p.Context[idx] = s.Content
			}
		}
	}
}

// assistantEntryKey recovers the key of a single-entry assistant block so
// a compressed block keeps its original key instead of an invented one.
func assistantEntryKey(entries []lens.Value) string {
	if len(entries) == 1 {
		if m, ok := entries[0].(map[string]lens.Value); ok {
			for k := range m {
				return k
			}
		}
	}
	return "assistant"
}

// stampMetadata fills in the four always-present metadata keys spec.md
// §4.6 fixes: version, total_tokens, budget and overflow. budget is the
// host-configured Options.Budget verbatim (0 meaning unbounded), not the
// internal unboundedBudget sentinel used to drive the allocator pass.
func stampMetadata(p *render.Payload, alloc *allocator.Result, budget int) {
	p.Metadata["version"] = "2.0"
	p.Metadata["total_tokens"] = int64(alloc.UsedTokens)
	p.Metadata["budget"] = int64(budget)
	p.Metadata["overflow"] = int64(alloc.Overflow)
}
