// Package resolver loads `@import` blocks and merges their contents into
// the importing document: depth-limited recursive loading, cycle
// detection and a per-compile cache. Grounded on
// original_source/crates/fct-resolver/src/lib.rs for the loading/merge
// responsibilities, adapted to spec.md's own merge policy (later imports
// losing to the importer's own entries on key collision) rather than the
// Rust crate's sandboxing rules (symlink escape, sensitive-location
// checks), which have no equivalent in spec.md and are out of scope.
package resolver

import (
	"context"
	"fmt"
	"path"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/facet-lang/facet/internal/ast"
	"github.com/facet-lang/facet/internal/errors"
	"github.com/facet-lang/facet/internal/invariant"
	"github.com/facet-lang/facet/internal/parser"
)

// MaxImportDepth is the recursive import depth limit (spec.md §4.2).
const MaxImportDepth = 10

// Loader reads the source text for an import path. Hosts decide what a
// path means (filesystem, embedded FS, virtual registry); the resolver
// only sequences loads and detects cycles/depth/merge.
type Loader interface {
	Load(ctx context.Context, path string) (string, error)
}

// Resolver loads and merges a document's import graph.
type Resolver struct {
	loader Loader
	cache  *lru.Cache[string, *ast.Document]
}

// New creates a Resolver backed by loader, with an LRU cache sized for a
// single compile's import graph (golang-lru/v2, SPEC_FULL.md §B).
func New(loader Loader) *Resolver {
	invariant.NotNil(loader, "loader")
	cache, err := lru.New[string, *ast.Document](256)
	invariant.ExpectNoError(err, "constructing resolver cache")
	return &Resolver{loader: loader, cache: cache}
}

// Resolve parses the root source at path and recursively merges every
// `@import`, returning the fully merged document.
func (r *Resolver) Resolve(ctx context.Context, rootPath, rootSource string) (*ast.Document, *errors.Diagnostic) {
	invariant.ContextNotBackground(ctx, "Resolver.Resolve")
	return r.resolveSource(ctx, rootPath, rootSource, nil, 0)
}

func (r *Resolver) resolveSource(ctx context.Context, p, source string, chain []string, depth int) (*ast.Document, *errors.Diagnostic) {
	if depth > MaxImportDepth {
		return nil, errors.New(errors.RDepth, "import depth exceeds limit of %d (%s)", MaxImportDepth, strings.Join(append(chain, p), " -> "))
	}
	for _, seen := range chain {
		if seen == p {
			return nil, errors.New(errors.RCycle, "import cycle detected: %s -> %s", strings.Join(chain, " -> "), p)
		}
	}

	doc, diag := parser.Parse(source)
	if diag != nil {
		return nil, diag
	}

	merged := &ast.Document{Span: doc.Span}
	chain = append(chain, p)

	for _, b := range doc.Blocks {
		if b.Tag != ast.BlockImport {
			mergeBlock(merged, b)
			continue
		}
		childPath := resolvePath(p, b.ImportPath)
		childDoc, ok := r.cache.Get(childPath)
		if !ok {
			select {
			case <-ctx.Done():
				return nil, errors.New(errors.RNotFound, "import resolution cancelled: %v", ctx.Err())
			default:
			}
			src, err := r.loader.Load(ctx, childPath)
			if err != nil {
				return nil, errors.At(errors.RNotFound, errors.Span{Offset: b.Span.Offset, Line: b.Span.Line, Column: b.Span.Column}, source, "cannot load import %q: %v", b.ImportPath, err)
			}
			var d *errors.Diagnostic
			childDoc, d = r.resolveSource(ctx, childPath, src, chain, depth+1)
			if d != nil {
				return nil, d
			}
			r.cache.Add(childPath, childDoc)
		}
		for _, cb := range childDoc.Blocks {
			mergeBlock(merged, cb)
		}
	}
	return merged, nil
}

// resolvePath resolves an import path relative to the importing
// document's own path, the way a filesystem-style include would.
func resolvePath(from, importPath string) string {
	if strings.HasPrefix(importPath, "/") {
		return importPath
	}
	return path.Join(path.Dir(from), importPath)
}

// mergeBlock folds one block into dst's blocks, per spec.md §4.2's merge
// policy: a later `meta`/`system`/`user`/`assistant` block replaces the
// entries of the earlier block of the same tag as a whole;
// `vars`/`var_types`/`interface` blocks of the same tag accumulate entries
// keyed by Entry.Key, with a later-seen value overriding an earlier one in
// place (so the importer's own entries, merged after its imports, always
// win); `context` and `test` blocks never merge and are appended in
// resolution order.
func mergeBlock(dst *ast.Document, b *ast.Block) {
	if b.Tag == ast.BlockTest || b.Tag == ast.BlockContext {
		dst.Blocks = append(dst.Blocks, b)
		return
	}

	for _, existing := range dst.Blocks {
		if existing.Tag != b.Tag {
			continue
		}
		switch b.Tag {
		case ast.BlockMeta, ast.BlockSystem, ast.BlockUser, ast.BlockAssistant:
			existing.Entries = append([]*ast.Entry(nil), b.Entries...)
		default:
			mergeEntries(existing, b.Entries)
		}
		return
	}
	clone := &ast.Block{Tag: b.Tag, Span: b.Span}
	mergeEntries(clone, b.Entries)
	dst.Blocks = append(dst.Blocks, clone)
}

func mergeEntries(dst *ast.Block, entries []*ast.Entry) {
	for _, e := range entries {
		replaced := false
		for i, existing := range dst.Entries {
			if existing.Key == e.Key {
				dst.Entries[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			dst.Entries = append(dst.Entries, e)
		}
	}
}

// Chain renders an import chain for diagnostics, exported for callers that
// build their own cycle messages outside Resolve.
func Chain(chain []string) string {
	return fmt.Sprintf("%s", strings.Join(chain, " -> "))
}
