// Package allocator implements the Token Box Model: packing a document's
// sections into a fixed token budget by giving every critical section its
// full minimum-or-base size first, then walking non-critical sections
// priority-descending so a higher-priority section is fully served before
// a lower-priority one is allowed to shrink or drop. The packing algorithm
// follows spec.md §4.5's six numbered steps and integer arithmetic
// literally; this is deliberately not the algorithm in
// original_source/crates/fct-engine/src/box_model.rs (that file sorts
// flexible sections priority-ascending and shrinks each by a single
// bounded step regardless of what it leaves for higher-priority sections,
// which inverts spec.md's priority guarantee). box_model.rs is used only
// for the was_compressed/was_truncated/was_dropped flag vocabulary,
// supplemented into the result type below per SPEC_FULL.md §C.5.
package allocator

import (
	"sort"

	"github.com/facet-lang/facet/internal/errors"
)

// Section is one allocatable region of the rendered output (a block's
// rendered content, or one @context entry).
type Section struct {
	ID       string
	Priority int // higher served first among non-critical sections
	Critical bool
	Content  string
	Min      int     // floor token count; for critical sections this can raise tᵢ above base
	Shrink   float64 // shrink fraction applied to remaining slack, (0,1]
	// Grow is part of spec.md §3's section attribute list but, per §4.5,
	// the allocation algorithm never references it; kept only so a
	// Section literal can carry the attribute without affecting packing.
	Grow      float64
	declOrder int
}

// Allocated is one section's outcome: its possibly-truncated content and
// the bookkeeping flags a host can surface without putting them in the
// canonical JSON payload (SPEC_FULL.md §C.5).
type Allocated struct {
	ID            string
	Content       string
	Tokens        int
	WasCompressed bool
	WasTruncated  bool
	WasDropped    bool
}

// Result is the full allocation outcome for one render pass.
type Result struct {
	Sections   []Allocated
	UsedTokens int
	Budget     int
	Overflow   int
}

// Allocate packs sections into budget tokens per spec.md §4.5's six steps:
// critical sections are sized first and must fit within budget outright
// (B-BUDGET if not); the remaining slack is then handed to non-critical
// sections in priority-descending, declaration-order-tiebreak order, each
// taking its full base size while slack allows, then a shrink-bounded
// share of whatever slack is left, then nothing (dropped).
func Allocate(sections []Section, budget int) (*Result, *errors.Diagnostic) {
	for i := range sections {
		sections[i].declOrder = i
	}

	bases := make(map[string]int, len(sections))
	for _, s := range sections {
		bases[s.ID] = EstimateTokens(s.Content)
	}

	var critical, nonCritical []Section
	for _, s := range sections {
		if s.Critical {
			critical = append(critical, s)
		} else {
			nonCritical = append(nonCritical, s)
		}
	}

	tokens := make(map[string]int, len(sections))
	required := 0
	for _, s := range critical {
		t := s.Min
		if bases[s.ID] > t {
			t = bases[s.ID]
		}
		tokens[s.ID] = t
		required += t
	}
	if required > budget {
		return nil, errors.New(errors.BBudget, "cannot fit critical sections within budget: required %d tokens, budget is %d", required, budget)
	}

	sort.SliceStable(nonCritical, func(i, j int) bool {
		if nonCritical[i].Priority != nonCritical[j].Priority {
			return nonCritical[i].Priority > nonCritical[j].Priority
		}
		return nonCritical[i].declOrder < nonCritical[j].declOrder
	})

	compressed := make(map[string]bool)
	dropped := make(map[string]bool)
	remaining := budget - required
	for _, s := range nonCritical {
		base := bases[s.ID]
		if base <= remaining {
			tokens[s.ID] = base
			remaining -= base
			continue
		}
		if remaining >= s.Min {
			t := s.Min + int(float64(remaining)*s.Shrink)
			t = min(t, remaining)
			tokens[s.ID] = t
			remaining -= t
			if t < base {
				compressed[s.ID] = true
			}
			continue
		}
		tokens[s.ID] = 0
		dropped[s.ID] = true
	}

	return buildResult(sections, bases, tokens, compressed, dropped, budget), nil
}

func buildResult(sections []Section, bases, tokens map[string]int, compressed, dropped map[string]bool, budget int) *Result {
	res := &Result{Budget: budget}
	for _, s := range sections {
		t := tokens[s.ID]
		isDropped := dropped[s.ID]
		isCompressed := compressed[s.ID]
		content := s.Content
		truncated := false
		if isCompressed && !isDropped {
			content, truncated = truncateToTokens(content, t)
		}
		if isDropped {
			content = ""
		}
		res.Sections = append(res.Sections, Allocated{
			ID: s.ID, Content: content, Tokens: t,
			WasCompressed: isCompressed, WasTruncated: truncated, WasDropped: isDropped,
		})
		res.UsedTokens += t
		res.Overflow += bases[s.ID] - t
	}
	return res
}

// truncateToTokens trims content to approximately target tokens by
// cutting runes, since the 4-codepoints-per-token estimator is
// reversible only approximately.
func truncateToTokens(content string, target int) (string, bool) {
	runes := []rune(content)
	approxRunes := target * 4
	if approxRunes >= len(runes) {
		return content, false
	}
	return string(runes[:approxRunes]), true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
