// Package render produces FACET's canonical JSON payload: a fixed key
// order (metadata, system, context, user, assistant, variables),
// lexicographically ordered map keys within each value, and numeric type
// preservation (an evaluated int64 renders without a decimal point, a
// float64 always with a decimal point or an exponent). This shape is spec.md §4.6's own, which is
// simpler than and not the shape of original_source/crates/fct-render/
// src/lib.rs (that renderer builds an OpenAI-style tool-call payload with
// `tools`/`examples`/`history` keys); the Rust file is used only for the
// @meta name-extraction idea, supplemented as a non-serialized field on
// Payload per SPEC_FULL.md §C.1.
package render

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/facet-lang/facet/internal/ast"
	"github.com/facet-lang/facet/internal/engine"
	"github.com/facet-lang/facet/internal/errors"
	"github.com/facet-lang/facet/internal/lens"
)

// Payload is the compiled canonical document. MetaName is carried for
// host introspection but is deliberately not part of the serialized key
// order spec.md §4.6 fixes.
//
// System, User and Assistant are arrays of per-entry objects, one
// `{key: value}` object per entry in declaration order — spec.md §4.6's
// `"user": [ … ]` shape and §8 Scenario A's `user[0].msg == "HI"` both
// require an indexable array of entries, not a single joined string.
// Context is left as a flat array of entry values (no per-entry key
// wrapper); spec.md's output shape shows it the same way.
type Payload struct {
	MetaName  string
	Metadata  map[string]lens.Value
	System    []lens.Value
	Context   []lens.Value
	User      []lens.Value
	Assistant []lens.Value
	Variables map[string]lens.Value
}

// fixedKeys is the always-present top-level key prefix spec.md §4.6
// requires, in order. "variables" follows only when Variables is
// non-empty, since §4.6 documents it as present "only if @vars produced
// evaluated bindings".
var fixedKeys = []string{"metadata", "system", "context", "user", "assistant"}

// Build assembles a Payload from an engine.Result: `meta` supplies
// Metadata/MetaName, `system`/`user`/`assistant` blocks each become an
// array of one object per entry, `context` supplies a flat ordered list,
// and Variables is the fully evaluated vars map.
func Build(result *engine.Result) *Payload {
	p := &Payload{Metadata: map[string]lens.Value{}, Variables: result.Variables}
	for _, b := range result.Blocks {
		switch b.Tag {
		case ast.BlockMeta:
			for _, e := range b.Entries {
				if e.Key == "name" {
					if s, ok := e.Value.(string); ok {
						p.MetaName = s
					}
				}
				p.Metadata[e.Key] = e.Value
			}
		case ast.BlockSystem:
			p.System = entryObjects(b.Entries)
		case ast.BlockUser:
			p.User = entryObjects(b.Entries)
		case ast.BlockAssistant:
			p.Assistant = entryObjects(b.Entries)
		case ast.BlockContext:
			for _, e := range b.Entries {
				p.Context = append(p.Context, e.Value)
			}
		}
	}
	return p
}

// entryObjects turns a block's entries into one single-key object per
// entry, preserving declaration order.
func entryObjects(entries []engine.ResolvedEntry) []lens.Value {
	if len(entries) == 0 {
		return nil
	}
	out := make([]lens.Value, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]lens.Value{e.Key: e.Value})
	}
	return out
}

// JoinedText concatenates a rendered section's entry values with "\n",
// for callers (the allocator's token-counting and truncation pass) that
// need a flat string view of a structurally-arrayed section.
func JoinedText(entries []lens.Value) string {
	var b bytes.Buffer
	for i, v := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		m, ok := v.(map[string]lens.Value)
		if !ok {
			continue
		}
		for _, val := range m {
			if s, ok := val.(string); ok {
				b.WriteString(s)
			}
		}
	}
	return b.String()
}

// MarshalJSON renders p in canonical form: fixed top-level key order, and
// lexicographic key order for every nested map.
func (p *Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	top := map[string]lens.Value{
		"metadata":  mapToValue(p.Metadata),
		"system":    sliceToValue(p.System),
		"context":   sliceToValue(p.Context),
		"user":      sliceToValue(p.User),
		"assistant": sliceToValue(p.Assistant),
	}
	keys := fixedKeys
	if len(p.Variables) > 0 {
		top["variables"] = mapToValue(p.Variables)
		keys = append(append([]string{}, fixedKeys...), "variables")
	}
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(&buf, key)
		buf.WriteByte(':')
		if err := writeCanonical(&buf, top[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func mapToValue(m map[string]lens.Value) lens.Value {
	if m == nil {
		return map[string]lens.Value{}
	}
	return m
}

func sliceToValue(s []lens.Value) lens.Value {
	if s == nil {
		return []lens.Value{}
	}
	return s
}

// writeCanonical writes v as JSON with sorted map keys and numeric type
// preservation (int64 has no decimal point, float64 always has one or an
// exponent).
func writeCanonical(buf *bytes.Buffer, v lens.Value) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		writeJSONString(buf, x)
	case bool:
		if x {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case int64:
		buf.WriteString(strconv.FormatInt(x, 10))
	case int:
		buf.WriteString(strconv.Itoa(x))
	case float64:
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !containsDot(s) {
			s += ".0"
		}
		buf.WriteString(s)
	case []lens.Value:
		buf.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]lens.Value:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, x[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("render: unsupported value type %T", v)
	}
	return nil
}

func containsDot(s string) bool {
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' {
			return true
		}
	}
	return false
}

func writeJSONString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\t':
			buf.WriteString(`\t`)
		case '\r':
			buf.WriteString(`\r`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

// ErrUnrenderable wraps a rendering failure as an internal diagnostic;
// rendering a successfully evaluated document should never fail, so any
// error here is a compiler bug (IC-INTERNAL), not a user error.
func ErrUnrenderable(err error) *errors.Diagnostic {
	return errors.New(errors.ICInternal, "render: %v", err)
}
