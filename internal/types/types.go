// Package types implements FACET's type descriptors and their attached
// constraints (spec.md §3, "Type descriptor"). Grounded on core/types'
// ParamSchema/JSONSchema shape, narrowed to the primitives/containers/
// multimodal-leaves the language actually has.
package types

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Kind is a type descriptor's primitive/container/union/multimodal tag.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindNull
	KindList
	KindMap
	KindStruct
	KindUnion
	KindImage
	KindAudio
	KindEmbedding
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindImage:
		return "image"
	case KindAudio:
		return "audio"
	case KindEmbedding:
		return "embedding"
	default:
		return "unknown"
	}
}

// Field is one struct member: a type plus whether it must be present.
type Field struct {
	Type     *Descriptor
	Optional bool
}

// Constraints attaches the declarative checks of spec.md §3/§4.3 to a
// descriptor.
type Constraints struct {
	Min        *float64
	Max        *float64
	MinLength  *int
	MaxLength  *int
	Pattern    *regexp.Regexp
	PatternSrc string
	Enum       []Literal // closed literal set
}

// Literal is a constant value usable in an enum constraint, independent of
// the ast package to avoid an import cycle (ast -> types would be needed
// for var_types descriptors that embed constraints referencing ast.Value).
type Literal struct {
	Kind  Kind // KindString | KindInt | KindFloat | KindBool | KindNull
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

func (l Literal) String() string {
	switch l.Kind {
	case KindString:
		return l.Str
	case KindInt:
		return fmt.Sprintf("%d", l.Int)
	case KindFloat:
		return fmt.Sprintf("%g", l.Float)
	case KindBool:
		return fmt.Sprintf("%t", l.Bool)
	default:
		return "null"
	}
}

// Descriptor is a FACET type: a primitive, a container, a union, or a
// multimodal leaf, with optional attached Constraints.
type Descriptor struct {
	Kind Kind

	// KindList
	Elem *Descriptor

	// KindMap
	Value *Descriptor

	// KindStruct
	Fields     map[string]*Field
	FieldOrder []string

	// KindUnion
	Members []*Descriptor

	// KindImage / KindAudio / KindEmbedding
	MaxDim      int    // image
	Format      string // image/audio
	MaxDuration int    // audio, seconds
	Size        int    // embedding

	Constraints *Constraints
}

func Primitive(k Kind) *Descriptor { return &Descriptor{Kind: k} }

func ListOf(elem *Descriptor) *Descriptor { return &Descriptor{Kind: KindList, Elem: elem} }

func MapOf(value *Descriptor) *Descriptor { return &Descriptor{Kind: KindMap, Value: value} }

func Struct(order []string, fields map[string]*Field) *Descriptor {
	return &Descriptor{Kind: KindStruct, FieldOrder: order, Fields: fields}
}

func Union(members ...*Descriptor) *Descriptor {
	return &Descriptor{Kind: KindUnion, Members: members}
}

// String renders a descriptor the way spec.md §3 writes them:
// list<T>, map<V>, struct{a: T, b: T}, union{...}.
func (d *Descriptor) String() string {
	if d == nil {
		return "?"
	}
	switch d.Kind {
	case KindList:
		return fmt.Sprintf("list<%s>", d.Elem.String())
	case KindMap:
		return fmt.Sprintf("map<%s>", d.Value.String())
	case KindStruct:
		parts := make([]string, 0, len(d.FieldOrder))
		for _, name := range d.FieldOrder {
			f := d.Fields[name]
			opt := ""
			if f.Optional {
				opt = "?"
			}
			parts = append(parts, fmt.Sprintf("%s%s: %s", name, opt, f.Type.String()))
		}
		return fmt.Sprintf("struct{%s}", strings.Join(parts, ", "))
	case KindUnion:
		parts := make([]string, len(d.Members))
		for i, m := range d.Members {
			parts[i] = m.String()
		}
		return fmt.Sprintf("union{%s}", strings.Join(parts, ", "))
	case KindImage:
		return "image"
	case KindAudio:
		return "audio"
	case KindEmbedding:
		return fmt.Sprintf("embedding{size=%d}", d.Size)
	default:
		return d.Kind.String()
	}
}

// Equal reports whether d and o describe the same type, ignoring
// constraints (constraint equality is not part of type identity).
func Equal(d, o *Descriptor) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Kind != o.Kind {
		return false
	}
	switch d.Kind {
	case KindList:
		return Equal(d.Elem, o.Elem)
	case KindMap:
		return Equal(d.Value, o.Value)
	case KindStruct:
		if len(d.FieldOrder) != len(o.FieldOrder) {
			return false
		}
		for _, name := range d.FieldOrder {
			of, ok := o.Fields[name]
			if !ok {
				return false
			}
			df := d.Fields[name]
			if df.Optional != of.Optional || !Equal(df.Type, of.Type) {
				return false
			}
		}
		return true
	case KindUnion:
		if len(d.Members) != len(o.Members) {
			return false
		}
		for i := range d.Members {
			if !Equal(d.Members[i], o.Members[i]) {
				return false
			}
		}
		return true
	case KindEmbedding:
		return d.Size == o.Size
	default:
		return true
	}
}

// MakeUnion builds a deduplicated union descriptor from members, collapsing
// to the single member when all are equal (spec.md §4.3: "heterogeneous
// list -> list<union{...}>").
func MakeUnion(members []*Descriptor) *Descriptor {
	unique := make([]*Descriptor, 0, len(members))
	for _, m := range members {
		dup := false
		for _, u := range unique {
			if Equal(u, m) {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, m)
		}
	}
	if len(unique) == 1 {
		return unique[0]
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Kind < unique[j].Kind })
	return Union(unique...)
}
