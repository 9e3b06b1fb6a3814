// Package boundary turns an `@interface` block's method descriptors into
// Model Context Protocol tool definitions, treating a FACET interface as
// a Level-1 (host-boundary) capability exposed the same way an MCP server
// exposes a callable tool. Grounded on the domain-stack commitment in
// SPEC_FULL.md §B: github.com/mark3labs/mcp-go supplies the canonical
// Go shape for a name + description + JSON-Schema-parameter tool
// definition, so @interface descriptors are compiled directly to
// mcp.Tool rather than a bespoke struct.
package boundary

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/facet-lang/facet/internal/types"
)

// Method is one `@interface` method descriptor: a name plus an ordered
// set of typed parameters and a return type.
type Method struct {
	Name        string
	Description string
	Params      []Param
	Returns     *types.Descriptor
}

// Param is one method parameter.
type Param struct {
	Name        string
	Description string
	Type        *types.Descriptor
	Required    bool
}

// Interface is one `@interface` block: a named boundary with one or more
// callable methods.
type Interface struct {
	Name    string
	Methods []Method
}

// ToTools compiles every method of iface into an mcp.Tool, named
// "Interface.method" to disambiguate across multiple interfaces in one
// document (matching the "Interface.method" mock-target convention
// internal/ast.MockEntry already uses).
func (iface *Interface) ToTools() []mcp.Tool {
	tools := make([]mcp.Tool, 0, len(iface.Methods))
	for _, m := range iface.Methods {
		tools = append(tools, m.toTool(iface.Name))
	}
	return tools
}

func (m *Method) toTool(ifaceName string) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(m.Description)}
	for _, p := range m.Params {
		opts = append(opts, propertyOption(p))
	}
	return mcp.NewTool(ifaceName+"."+m.Name, opts...)
}

func propertyOption(p Param) mcp.ToolOption {
	propOpts := []mcp.PropertyOption{mcp.Description(p.Description)}
	if p.Required {
		propOpts = append(propOpts, mcp.Required())
	}
	if p.Type == nil {
		return mcp.WithString(p.Name, propOpts...)
	}
	switch p.Type.Kind {
	case types.KindInt, types.KindFloat:
		return mcp.WithNumber(p.Name, propOpts...)
	case types.KindBool:
		return mcp.WithBoolean(p.Name, propOpts...)
	case types.KindList:
		return mcp.WithArray(p.Name, propOpts...)
	case types.KindStruct, types.KindMap, types.KindUnion:
		return mcp.WithObject(p.Name, propOpts...)
	default:
		return mcp.WithString(p.Name, propOpts...)
	}
}
