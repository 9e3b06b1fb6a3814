package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// JSONSchema is a JSON-Schema-shaped map, built directly rather than via a
// struct so optional keys can simply be omitted (core/types/jsonschema.go's
// ToJSONSchema pattern).
type JSONSchema map[string]any

// ToJSONSchema compiles a descriptor into the JSON Schema draft-07 shape used
// for @interface method parameters and image{}/audio{}/embedding{} leaves
// (SPEC_FULL.md §B).
func (d *Descriptor) ToJSONSchema() JSONSchema {
	s := JSONSchema{}
	switch d.Kind {
	case KindString:
		s["type"] = "string"
	case KindInt:
		s["type"] = "integer"
	case KindFloat:
		s["type"] = "number"
	case KindBool:
		s["type"] = "boolean"
	case KindNull:
		s["type"] = "null"
	case KindList:
		s["type"] = "array"
		s["items"] = d.Elem.ToJSONSchema()
	case KindMap:
		s["type"] = "object"
		s["additionalProperties"] = d.Value.ToJSONSchema()
	case KindStruct:
		s["type"] = "object"
		props := JSONSchema{}
		required := make([]string, 0, len(d.FieldOrder))
		for _, name := range d.FieldOrder {
			f := d.Fields[name]
			props[name] = f.Type.ToJSONSchema()
			if !f.Optional {
				required = append(required, name)
			}
		}
		s["properties"] = props
		if len(required) > 0 {
			s["required"] = required
		}
	case KindUnion:
		variants := make([]JSONSchema, len(d.Members))
		for i, m := range d.Members {
			variants[i] = m.ToJSONSchema()
		}
		s["anyOf"] = variants
	case KindImage:
		s["type"] = "string"
		s["format"] = "facet-image"
		if d.Format != "" {
			s["contentMediaType"] = "image/" + d.Format
		}
	case KindAudio:
		s["type"] = "string"
		s["format"] = "facet-audio"
		if d.Format != "" {
			s["contentMediaType"] = "audio/" + d.Format
		}
	case KindEmbedding:
		s["type"] = "array"
		s["items"] = JSONSchema{"type": "number"}
		if d.Size > 0 {
			s["minItems"] = d.Size
			s["maxItems"] = d.Size
		}
	default:
		s["type"] = "string"
	}

	if c := d.Constraints; c != nil {
		if c.Min != nil {
			s["minimum"] = *c.Min
		}
		if c.Max != nil {
			s["maximum"] = *c.Max
		}
		if c.MinLength != nil {
			if d.Kind == KindList {
				s["minItems"] = *c.MinLength
			} else {
				s["minLength"] = *c.MinLength
			}
		}
		if c.MaxLength != nil {
			if d.Kind == KindList {
				s["maxItems"] = *c.MaxLength
			} else {
				s["maxLength"] = *c.MaxLength
			}
		}
		if c.PatternSrc != "" {
			s["pattern"] = c.PatternSrc
		}
		if len(c.Enum) > 0 {
			vals := make([]any, len(c.Enum))
			for i, lit := range c.Enum {
				vals[i] = literalToAny(lit)
			}
			s["enum"] = vals
		}
	}
	return s
}

func literalToAny(l Literal) any {
	switch l.Kind {
	case KindString:
		return l.Str
	case KindInt:
		return l.Int
	case KindFloat:
		return l.Float
	case KindBool:
		return l.Bool
	default:
		return nil
	}
}

// CompileValidator marshals a descriptor's JSON Schema and compiles it with
// santhosh-tekuri/jsonschema (SPEC_FULL.md §B). It and Validate are
// helpers for callers; the validator package calls neither, so no
// descriptor is checked against its JSON Schema during a compile.
func (d *Descriptor) CompileValidator(uri string) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(d.ToJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("types: marshal schema for %s: %w", uri, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(uri, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("types: add schema resource %s: %w", uri, err)
	}
	schema, err := c.Compile(uri)
	if err != nil {
		return nil, fmt.Errorf("types: compile schema %s: %w", uri, err)
	}
	return schema, nil
}

// Validate checks value (already decoded into Go-native map/slice/scalar
// form, e.g. from a resolved ast.Value) against d's compiled JSON Schema.
func (d *Descriptor) Validate(uri string, value any) error {
	schema, err := d.CompileValidator(uri)
	if err != nil {
		return err
	}
	return schema.Validate(value)
}
