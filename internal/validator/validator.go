// Package validator checks a resolved document before evaluation: every
// variable reference resolves to a declaration, every lens call names a
// registered lens, var_types descriptors match the literal values that
// `vars` blocks declare, and constraints attached to a descriptor hold
// over those literals (descriptors built from a parsed var_types block
// carry no constraints; see descriptorFromValue). Grounded on original_source/crates/fct-validator/
// src/checker.rs for the phase's responsibilities and on
// core/types/schema.go's descriptor-matching style; batched reporting
// (collect every diagnostic instead of stopping at the first) follows
// spec.md §7 and is implemented with internal/errors.Batch.
package validator

import (
	"github.com/facet-lang/facet/internal/ast"
	"github.com/facet-lang/facet/internal/errors"
	"github.com/facet-lang/facet/internal/lens"
	"github.com/facet-lang/facet/internal/types"
)

// Validator checks a document against a lens registry and the declared
// var_types descriptors.
type Validator struct {
	Lenses *lens.Registry
}

// New creates a Validator backed by the default lens registry.
func New() *Validator {
	return &Validator{Lenses: lens.Default()}
}

// Check runs every validation pass over doc, returning a Batch of every
// diagnostic found (empty if doc is valid).
func (v *Validator) Check(doc *ast.Document) *errors.Batch {
	batch := &errors.Batch{}

	declared := v.collectDeclaredVars(doc)
	varTypes := v.collectVarTypes(doc)

	v.checkDuplicates(doc, batch)
	v.checkReferences(doc, declared, batch)
	v.checkLensCalls(doc, batch)
	v.checkVarTypes(doc, declared, varTypes, batch)

	return batch
}

func (v *Validator) collectDeclaredVars(doc *ast.Document) map[string]*ast.Entry {
	declared := map[string]*ast.Entry{}
	ast.WalkVars(doc, func(e *ast.Entry) {
		declared[e.Key] = e
	})
	return declared
}

func (v *Validator) collectVarTypes(doc *ast.Document) map[string]*types.Descriptor {
	out := map[string]*types.Descriptor{}
	for _, b := range doc.Blocks {
		if b.Tag != ast.BlockVarTypes {
			continue
		}
		for _, e := range b.Entries {
			d, ok := descriptorFromValue(e.Value)
			if ok {
				out[e.Key] = d
			}
		}
	}
	return out
}

// descriptorFromValue interprets a var_types entry's value as a type
// name or a directive describing a type, e.g. `age: int` or
// `tags: list(elem="string")`. The descriptor carries no Constraints; a
// map value such as `{ type: "int", min: 0 }` is not recognized and
// yields no descriptor.
func descriptorFromValue(v ast.Value) (*types.Descriptor, bool) {
	switch x := v.(type) {
	case *ast.Scalar:
		if x.Kind != ast.ScalarString {
			return nil, false
		}
		return primitiveByName(x.Str)
	case *ast.Directive:
		switch x.Name {
		case "list":
			for _, a := range x.Attrs {
				if a.Name == "elem" {
					if elemDesc, ok := descriptorFromValue(a.Value); ok {
						return types.ListOf(elemDesc), true
					}
				}
			}
		case "map":
			for _, a := range x.Attrs {
				if a.Name == "value" {
					if valDesc, ok := descriptorFromValue(a.Value); ok {
						return types.MapOf(valDesc), true
					}
				}
			}
		case "image":
			return types.Primitive(types.KindImage), true
		case "audio":
			return types.Primitive(types.KindAudio), true
		case "embedding":
			return types.Primitive(types.KindEmbedding), true
		}
	}
	return nil, false
}

func primitiveByName(name string) (*types.Descriptor, bool) {
	switch name {
	case "string":
		return types.Primitive(types.KindString), true
	case "int":
		return types.Primitive(types.KindInt), true
	case "float":
		return types.Primitive(types.KindFloat), true
	case "bool":
		return types.Primitive(types.KindBool), true
	default:
		return nil, false
	}
}

// checkDuplicates flags a key declared more than once within a single
// `vars` block, whatever its values (V-DUPLICATE). Keys repeated across
// separate `vars` blocks are not flagged; the resolver's merge policy
// folds those from imported files to the last-seen entry.
func (v *Validator) checkDuplicates(doc *ast.Document, batch *errors.Batch) {
	for _, b := range doc.Blocks {
		if b.Tag != ast.BlockVars {
			continue
		}
		seen := map[string]*ast.Entry{}
		for _, e := range b.Entries {
			if prev, ok := seen[e.Key]; ok && prev != e {
				batch.Add(errors.At(errors.VDuplicate, toErrSpan(e.Span), "", "variable %q declared more than once", e.Key))
			}
			seen[e.Key] = e
		}
	}
}

func (v *Validator) checkReferences(doc *ast.Document, declared map[string]*ast.Entry, batch *errors.Batch) {
	names := make([]string, 0, len(declared))
	for n := range declared {
		names = append(names, n)
	}
	var walk func(val ast.Value)
	walk = func(val ast.Value) {
		switch x := val.(type) {
		case *ast.VarRef:
			if _, ok := declared[x.Name]; !ok {
				d := errors.At(errors.VUndef, toErrSpan(x.Sp), "", "undefined variable %q", x.Name)
				d.Suggest(x.Name, names)
				batch.Add(d)
			}
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
	for _, b := range doc.Blocks {
		if b.Tag == ast.BlockImport || b.Tag == ast.BlockTest {
			continue
		}
		for _, e := range b.Entries {
			walk(e.Value)
		}
	}
}

func (v *Validator) checkLensCalls(doc *ast.Document, batch *errors.Batch) {
	names := v.Lenses.Names()
	var walk func(val ast.Value)
	walk = func(val ast.Value) {
		switch x := val.(type) {
		case *ast.Pipeline:
			walk(x.Head)
			for _, l := range x.Lenses {
				if _, ok := v.Lenses.Get(l.Name); !ok {
					d := errors.At(errors.VLens, toErrSpan(l.Sp), "", "unknown lens %q", l.Name)
					d.Suggest(l.Name, names)
					batch.Add(d)
				}
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
		}
	}
	for _, b := range doc.Blocks {
		if b.Tag == ast.BlockImport || b.Tag == ast.BlockTest {
			continue
		}
		for _, e := range b.Entries {
			walk(e.Value)
		}
	}
}

// checkVarTypes verifies that every var with a declared var_types
// descriptor has a literal value (when statically known, i.e. not itself
// a pipeline/directive whose result can't be type-checked before
// evaluation) matching that descriptor's kind, and that any attached
// Constraints hold (V-TYPE / V-CONSTRAINT). Descriptors from
// descriptorFromValue carry no Constraints, so for a parsed document only
// the kind check runs.
func (v *Validator) checkVarTypes(doc *ast.Document, declared map[string]*ast.Entry, varTypes map[string]*types.Descriptor, batch *errors.Batch) {
	for name, desc := range varTypes {
		entry, ok := declared[name]
		if !ok {
			continue // no matching var: a different validation concern (unused type), not checked here
		}
		scalar, ok := entry.Value.(*ast.Scalar)
		if !ok {
			continue // dynamic value: its type is not checked, here or after evaluation
		}
		if !scalarMatchesKind(scalar, desc.Kind) {
			batch.Add(errors.At(errors.VType, toErrSpan(scalar.Sp), "", "variable %q declared as %s but has a %s literal", name, desc.String(), scalarKindName(scalar.Kind)))
			continue
		}
		if desc.Constraints != nil {
			if diag := checkConstraints(name, scalar, desc.Constraints); diag != nil {
				batch.Add(diag)
			}
		}
	}
}

func scalarMatchesKind(s *ast.Scalar, k types.Kind) bool {
	switch k {
	case types.KindString:
		return s.Kind == ast.ScalarString
	case types.KindInt:
		return s.Kind == ast.ScalarInt
	case types.KindFloat:
		return s.Kind == ast.ScalarFloat || s.Kind == ast.ScalarInt
	case types.KindBool:
		return s.Kind == ast.ScalarBool
	default:
		return true
	}
}

func scalarKindName(k ast.ScalarKind) string {
	switch k {
	case ast.ScalarString:
		return "string"
	case ast.ScalarInt:
		return "int"
	case ast.ScalarFloat:
		return "float"
	case ast.ScalarBool:
		return "bool"
	default:
		return "null"
	}
}

func checkConstraints(name string, s *ast.Scalar, c *types.Constraints) *errors.Diagnostic {
	switch s.Kind {
	case ast.ScalarString:
		if c.MinLength != nil && len(s.Str) < *c.MinLength {
			return errors.At(errors.VConstraint, toErrSpan(s.Sp), "", "%q is shorter than min_length %d", name, *c.MinLength)
		}
		if c.MaxLength != nil && len(s.Str) > *c.MaxLength {
			return errors.At(errors.VConstraint, toErrSpan(s.Sp), "", "%q is longer than max_length %d", name, *c.MaxLength)
		}
		if c.Pattern != nil && !c.Pattern.MatchString(s.Str) {
			return errors.At(errors.VConstraint, toErrSpan(s.Sp), "", "%q does not match pattern %q", name, c.PatternSrc)
		}
	case ast.ScalarInt:
		f := float64(s.Int)
		if c.Min != nil && f < *c.Min {
			return errors.At(errors.VConstraint, toErrSpan(s.Sp), "", "%q value %d is below min %v", name, s.Int, *c.Min)
		}
		if c.Max != nil && f > *c.Max {
			return errors.At(errors.VConstraint, toErrSpan(s.Sp), "", "%q value %d is above max %v", name, s.Int, *c.Max)
		}
	case ast.ScalarFloat:
		if c.Min != nil && s.Float < *c.Min {
			return errors.At(errors.VConstraint, toErrSpan(s.Sp), "", "%q value %v is below min %v", name, s.Float, *c.Min)
		}
		if c.Max != nil && s.Float > *c.Max {
			return errors.At(errors.VConstraint, toErrSpan(s.Sp), "", "%q value %v is above max %v", name, s.Float, *c.Max)
		}
	}
	return nil
}

func toErrSpan(s ast.Span) errors.Span {
	return errors.Span{Offset: s.Offset, Line: s.Line, Column: s.Column}
}

// ValidateMocks checks an @test trial's mock targets against the lens
// registry's trust levels: mocking a lens that is Pure AND deterministic
// is itself a validation error (SPEC_FULL.md §C.2 — test mocks exist for
// host-side boundary calls, not for pure, deterministic value
// transforms whose output a mock could silently diverge from).
func (v *Validator) ValidateMocks(trial *ast.Trial) *errors.Batch {
	batch := &errors.Batch{}
	for _, m := range trial.Mocks {
		entry, ok := v.Lenses.Get(m.Target)
		if !ok {
			continue // not a lens name: assumed to be an Interface.method boundary mock
		}
		if entry.Signature.Trust == lens.Pure && entry.Signature.Deterministic {
			batch.Add(errors.At(errors.VLens, toErrSpan(m.Span), "", "cannot mock %q: it is a pure, deterministic lens", m.Target))
		}
	}
	return batch
}
