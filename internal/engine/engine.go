// Package engine builds the dependency graph over a document's `vars`
// bindings, detects cycles, and evaluates every variable and lens
// pipeline in a deterministic order under a gas budget. Grounded on
// original_source/crates/fct-engine/src/r_dag.rs: VarNode/DependencyGraph,
// dfs_detect_cycle and GasContext are reproduced in Go idiom, and
// topological_sort is done as a depth-first post-order rather than with
// Kahn's algorithm; spec.md §4.4 is authoritative for the exact
// tie-break (source-offset ascending) and gas-accounting rules where it is
// more specific than the Rust original.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/facet-lang/facet/internal/ast"
	"github.com/facet-lang/facet/internal/errors"
	"github.com/facet-lang/facet/internal/invariant"
	"github.com/facet-lang/facet/internal/lens"
)

// DefaultGasLimit bounds total lens-pipeline work per compile (SPEC_FULL.md
// §C.4); a host may override it via Engine.GasLimit.
const DefaultGasLimit = 10_000

// node is one `vars` entry: its declaration, source offset (for
// deterministic tie-breaking) and the variable names its value
// references.
type node struct {
	name      string
	entry     *ast.Entry
	offset    int
	dependsOn []string
}

// Graph is the built (and validated acyclic) dependency graph over a
// document's merged `vars` blocks.
type Graph struct {
	nodes map[string]*node
	order []string // declaration order, for deterministic iteration
}

// Build walks every `vars` entry in doc and extracts its variable
// dependencies ($ref / pipeline / directive traversal), without yet
// checking for cycles.
func Build(doc *ast.Document) *Graph {
	g := &Graph{nodes: make(map[string]*node)}
	ast.WalkVars(doc, func(e *ast.Entry) {
		n := &node{name: e.Key, entry: e, offset: e.Span.Offset}
		n.dependsOn = extractDeps(e.Value)
		g.nodes[e.Key] = n
		g.order = append(g.order, e.Key)
	})
	return g
}

func extractDeps(v ast.Value) []string {
	var deps []string
	var walk func(v ast.Value)
	walk = func(v ast.Value) {
		switch x := v.(type) {
		case *ast.VarRef:
			deps = append(deps, x.Name)
		case *ast.Pipeline:
			walk(x.Head)
			for _, l := range x.Lenses {
				for _, a := range l.Positional {
					walk(a)
				}
				for _, na := range l.Named {
					walk(na.Value)
				}
			}
		case *ast.List:
			for _, item := range x.Items {
				walk(item)
			}
		case *ast.Map:
			for _, me := range x.Entries {
				walk(me.Value)
			}
		case *ast.Directive:
			for _, a := range x.Attrs {
				walk(a.Value)
			}
		}
	}
	walk(v)
	return deps
}

// color marks three-color DFS state for cycle detection.
type color int

const (
	white color = iota
	gray
	black
)

// DetectCycle runs a three-color DFS over g and returns a formatted
// "a -> b -> c -> a" chain diagnostic for the first cycle found, nil if
// the graph is acyclic. Iterates g.order so the reported cycle is
// deterministic across runs.
func (g *Graph) DetectCycle() *errors.Diagnostic {
	colors := make(map[string]color, len(g.nodes))
	var path []string

	var visit func(name string) *errors.Diagnostic
	visit = func(name string) *errors.Diagnostic {
		switch colors[name] {
		case black:
			return nil
		case gray:
			// Found the back-edge; slice path to the repeated node.
			start := 0
			for i, p := range path {
				if p == name {
					start = i
					break
				}
			}
			chain := append(append([]string{}, path[start:]...), name)
			n := g.nodes[path[len(path)-1]]
			return errors.At(errors.ECycle, errors.Span{Offset: n.entry.Span.Offset, Line: n.entry.Span.Line, Column: n.entry.Span.Column}, "", "cyclic variable dependency: %s", strings.Join(chain, " -> "))
		}
		colors[name] = gray
		path = append(path, name)
		n, ok := g.nodes[name]
		if ok {
			for _, dep := range n.dependsOn {
				if _, exists := g.nodes[dep]; !exists {
					continue // undefined reference is a validator concern, not a cycle
				}
				if diag := visit(dep); diag != nil {
					return diag
				}
			}
		}
		path = path[:len(path)-1]
		colors[name] = black
		return nil
	}

	for _, name := range g.order {
		if colors[name] == white {
			if diag := visit(name); diag != nil {
				return diag
			}
		}
	}
	return nil
}

// TopoOrder returns g's nodes in topological order, each node after the
// nodes it depends on (the depth-first post-order over dependency edges),
// breaking ties by ascending source offset (spec.md §4.4) so evaluation
// order is fully deterministic regardless of map iteration.
func (g *Graph) TopoOrder() []string {
	visited := make(map[string]bool, len(g.nodes))
	var postOrder []string

	names := append([]string{}, g.order...)
	sort.Slice(names, func(i, j int) bool { return g.nodes[names[i]].offset < g.nodes[names[j]].offset })

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		n, ok := g.nodes[name]
		if !ok {
			return
		}
		deps := append([]string{}, n.dependsOn...)
		sort.Slice(deps, func(i, j int) bool {
			ni, oki := g.nodes[deps[i]]
			nj, okj := g.nodes[deps[j]]
			if !oki || !okj {
				return deps[i] < deps[j]
			}
			return ni.offset < nj.offset
		})
		for _, dep := range deps {
			if _, exists := g.nodes[dep]; exists {
				visit(dep)
			}
		}
		postOrder = append(postOrder, name)
	}
	for _, name := range names {
		visit(name)
	}
	return postOrder
}

// GasContext meters total lens-pipeline work across one evaluation pass,
// the original_source GasContext pattern.
type GasContext struct {
	Limit    int
	Consumed int
}

func (g *GasContext) Consume(amount int) error {
	g.Consumed += amount
	if g.Consumed > g.Limit {
		return fmt.Errorf("gas exhausted: consumed %d exceeds limit %d", g.Consumed, g.Limit)
	}
	return nil
}

// Engine evaluates a document's variable graph and substitutes the
// results into every non-vars block, under a lens registry and gas
// budget.
type Engine struct {
	Lenses   *lens.Registry
	GasLimit int
}

// New creates an Engine with the default lens registry and gas limit.
func New() *Engine {
	return &Engine{Lenses: lens.Default(), GasLimit: DefaultGasLimit}
}

// ResolvedEntry is one block entry with its value fully evaluated to a
// native runtime Value (variable references and lens pipelines already
// resolved).
type ResolvedEntry struct {
	Key   string
	Value lens.Value
}

// ResolvedBlock is one non-vars block with every entry evaluated.
type ResolvedBlock struct {
	Tag     ast.BlockTag
	Entries []ResolvedEntry
}

// Result is one evaluated document: resolved variable values plus every
// non-vars block's entries with their values substituted.
type Result struct {
	Variables map[string]lens.Value
	Blocks    []ResolvedBlock
	GasUsed   int
}

// Evaluate resolves doc's variable graph and substitutes results into the
// rest of the document. overrides lets a @test trial replace specific
// variable values before evaluation (SPEC_FULL.md §C.3).
func (e *Engine) Evaluate(ctx context.Context, doc *ast.Document, overrides map[string]lens.Value, mocks map[string]lens.Value) (*Result, *errors.Diagnostic) {
	invariant.ContextNotBackground(ctx, "Engine.Evaluate")

	g := Build(doc)
	if diag := g.DetectCycle(); diag != nil {
		return nil, diag
	}

	gas := &GasContext{Limit: e.GasLimit}
	values := make(map[string]lens.Value, len(g.nodes))
	for k, v := range overrides {
		values[k] = v
	}

	for _, name := range g.TopoOrder() {
		if _, already := overrides[name]; already {
			continue
		}
		n := g.nodes[name]
		val, diag := e.evalValue(ctx, n.entry.Value, values, gas, mocks)
		if diag != nil {
			return nil, diag
		}
		values[name] = val
	}

	var blocks []ResolvedBlock
	for _, b := range doc.Blocks {
		if b.Tag == ast.BlockVars || b.Tag == ast.BlockVarTypes || b.Tag == ast.BlockImport || b.Tag == ast.BlockTest {
			continue
		}
		rb := ResolvedBlock{Tag: b.Tag}
		for _, entry := range b.Entries {
			val, diag := e.evalValue(ctx, entry.Value, values, gas, mocks)
			if diag != nil {
				return nil, diag
			}
			rb.Entries = append(rb.Entries, ResolvedEntry{Key: entry.Key, Value: val})
		}
		blocks = append(blocks, rb)
	}

	return &Result{Variables: values, Blocks: blocks, GasUsed: gas.Consumed}, nil
}

// ResolveValue substitutes variable references in v and runs any lens
// pipeline against an already-evaluated variables map, consuming gas
// from a fresh budget of e.GasLimit as it goes.
func (e *Engine) ResolveValue(ctx context.Context, v ast.Value, values map[string]lens.Value) (lens.Value, *errors.Diagnostic) {
	gas := &GasContext{Limit: e.GasLimit}
	return e.evalValue(ctx, v, values, gas, nil)
}

func (e *Engine) evalValue(ctx context.Context, v ast.Value, values map[string]lens.Value, gas *GasContext, mocks map[string]lens.Value) (lens.Value, *errors.Diagnostic) {
	select {
	case <-ctx.Done():
		return nil, errors.New(errors.EGas, "evaluation cancelled: %v", ctx.Err())
	default:
	}

	switch x := v.(type) {
	case *ast.Scalar:
		return scalarValue(x), nil
	case *ast.VarRef:
		val, ok := values[x.Name]
		if !ok {
			return nil, errors.At(errors.RNotFound, errors.Span{Offset: x.Sp.Offset, Line: x.Sp.Line, Column: x.Sp.Column}, "", "undefined variable %q", x.Name)
		}
		return val, nil
	case *ast.List:
		out := make([]lens.Value, len(x.Items))
		for i, item := range x.Items {
			val, diag := e.evalValue(ctx, item, values, gas, mocks)
			if diag != nil {
				return nil, diag
			}
			out[i] = val
		}
		return out, nil
	case *ast.Map:
		out := make(map[string]lens.Value, len(x.Entries))
		for _, me := range x.Entries {
			val, diag := e.evalValue(ctx, me.Value, values, gas, mocks)
			if diag != nil {
				return nil, diag
			}
			out[me.Key] = val
		}
		return out, nil
	case *ast.Directive:
		return directiveValue(x), nil
	case *ast.Pipeline:
		head, diag := e.evalValue(ctx, x.Head, values, gas, mocks)
		if diag != nil {
			return nil, diag
		}
		for _, call := range x.Lenses {
			if mockVal, ok := mocks[call.Name]; ok {
				head = mockVal
				continue
			}
			positional := make([]lens.Value, len(call.Positional))
			for i, a := range call.Positional {
				val, diag := e.evalValue(ctx, a, values, gas, mocks)
				if diag != nil {
					return nil, diag
				}
				positional[i] = val
			}
			named := make(map[string]lens.Value, len(call.Named))
			for _, na := range call.Named {
				val, diag := e.evalValue(ctx, na.Value, values, gas, mocks)
				if diag != nil {
					return nil, diag
				}
				named[na.Name] = val
			}
			out, cost, err := e.Lenses.Invoke(ctx, call.Name, head, positional, named)
			if err != nil {
				return nil, errors.At(errors.ELens, errors.Span{Offset: call.Sp.Offset, Line: call.Sp.Line, Column: call.Sp.Column}, "", "lens %q failed: %v", call.Name, err)
			}
			if gasErr := gas.Consume(cost); gasErr != nil {
				return nil, errors.At(errors.EGas, errors.Span{Offset: call.Sp.Offset, Line: call.Sp.Line, Column: call.Sp.Column}, "", "%v", gasErr)
			}
			head = out
		}
		return head, nil
	default:
		invariant.Invariant(false, "unhandled ast.Value variant %T", v)
		return nil, nil
	}
}

func scalarValue(s *ast.Scalar) lens.Value {
	switch s.Kind {
	case ast.ScalarString:
		return s.Str
	case ast.ScalarInt:
		return s.Int
	case ast.ScalarFloat:
		return s.Float
	case ast.ScalarBool:
		return s.Bool
	default:
		return nil
	}
}

// directiveValue evaluates a directive to its host-supplied value. Absent
// host wiring (spec.md §9 treats directive resolution as a host concern),
// a directive evaluates to its own declared default attribute if present,
// else null.
func directiveValue(d *ast.Directive) lens.Value {
	for _, a := range d.Attrs {
		if a.Name == "default" {
			if s, ok := a.Value.(*ast.Scalar); ok {
				return scalarValue(s)
			}
		}
	}
	return nil
}
