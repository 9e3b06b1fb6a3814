// Package lens implements FACET's pure value-transformation pipeline
// stages (`|> lens_name(args)`). Grounded on runtime/decorators/
// registry.go's dispatch-table registry (map + RWMutex, Register/Get,
// GetAny) narrowed from four decorator kinds to one lens kind, since every
// lens is a pure function by construction (spec.md §5); per-lens
// signatures (input/output type, trust level, determinism) are grounded
// on original_source/crates/fct-std/src/lenses/*.rs's Lens::signature().
package lens

import (
	"context"
	"fmt"
	"sync"
)

// Value is a resolved runtime value flowing through a pipeline: one of
// string, int64, float64, bool, nil, []Value, or map[string]Value. Using
// Go-native containers (rather than internal/ast.Value) keeps the engine
// and lens library decoupled from syntax; canonical key ordering is a
// render-time concern (internal/render), not a lens-time one.
type Value = any

// TrustLevel records whether a lens may be soundly substituted by a test
// mock. Every builtin lens is Pure; the tag exists so a future host-
// supplied lens can declare itself Impure and be barred from the stricter
// @test-mock validation spec.md §4.7/SPEC_FULL.md §C.2 applies to pure
// lenses.
type TrustLevel int

const (
	Pure TrustLevel = iota
	Impure
)

// Signature documents a lens's contract, reported in V-LENS diagnostics
// and surfaced to tooling.
type Signature struct {
	Name          string
	InputType     string
	OutputType    string
	Trust         TrustLevel
	Deterministic bool
}

// Func is a lens's implementation: transform input given positional and
// named arguments (already-evaluated Values, per-call).
type Func func(ctx context.Context, input Value, positional []Value, named map[string]Value) (Value, error)

// Entry is one registered lens: its signature plus implementation and gas
// cost (SPEC_FULL.md §C.4).
type Entry struct {
	Signature Signature
	GasCost   int
	Fn        Func
}

// Registry is a concurrency-safe dispatch table from lens name to Entry.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry. Use Default for one pre-populated
// with the builtin lens library.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds or replaces a lens entry by name.
func (r *Registry) Register(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.Signature.Name] = e
}

// Get looks up a lens by name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Names returns every registered lens name, for "did you mean" suggestions
// on an unknown lens (V-LENS).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	return names
}

// Invoke calls the named lens, wrapping an unknown-lens lookup failure in a
// consistent error so the engine/validator don't each reimplement it.
func (r *Registry) Invoke(ctx context.Context, name string, input Value, positional []Value, named map[string]Value) (Value, int, error) {
	e, ok := r.Get(name)
	if !ok {
		return nil, 0, fmt.Errorf("unknown lens %q", name)
	}
	out, err := e.Fn(ctx, input, positional, named)
	return out, e.GasCost, err
}

var defaultRegistry = buildDefault()

// Default returns the shared registry of builtin lenses.
func Default() *Registry { return defaultRegistry }
