package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facet-lang/facet/internal/lens"
	"github.com/facet-lang/facet/internal/render"
)

// entryValue builds the single-entry-object-array shape render.Build
// produces for a system/user/assistant block.
func entryValue(key, value string) []lens.Value {
	return []lens.Value{map[string]lens.Value{key: value}}
}

func TestRequestSetsSystemAsTopLevelField(t *testing.T) {
	p := &render.Payload{System: entryValue("role", "Be terse."), User: entryValue("msg", "Hello")}
	req := Request("claude-3-5-sonnet-latest", p)
	assert.Equal(t, "Be terse.", req.System)
	assert.Equal(t, defaultMaxTokens, req.MaxTokens)
	require.Len(t, req.Messages, 1)
}

func TestRequestIncludesPrimedAssistantTurn(t *testing.T) {
	p := &render.Payload{User: entryValue("msg", "Hello"), Assistant: entryValue("msg", "Sure, here's my answer.")}
	req := Request("claude-3-5-sonnet-latest", p)
	require.Len(t, req.Messages, 2)
}

func TestUserContentAppendsContextJSON(t *testing.T) {
	p := &render.Payload{User: entryValue("msg", "Hello"), Context: []lens.Value{"doc one"}}
	got := userContent(p)
	assert.Contains(t, got, "Hello")
	assert.Contains(t, got, "doc one")
}

func TestUserContentIsJustUserWhenNoContext(t *testing.T) {
	p := &render.Payload{User: entryValue("msg", "Hello")}
	assert.Equal(t, "Hello", userContent(p))
}

func TestToolsPassesDottedNamesThroughUnchanged(t *testing.T) {
	tools := Tools([]string{"Weather.lookup"}, []string{"looks up weather"}, []json.RawMessage{json.RawMessage(`{"type":"object"}`)})
	require.Len(t, tools, 1)
	assert.Equal(t, "Weather.lookup", tools[0].Name)
	assert.Equal(t, "looks up weather", tools[0].Description)
}

func TestToolsDefaultsToObjectSchemaOnInvalidJSON(t *testing.T) {
	tools := Tools([]string{"broken"}, []string{"d"}, []json.RawMessage{json.RawMessage(`not json`)})
	require.Len(t, tools, 1)
	schema, ok := tools[0].InputSchema.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", schema["type"])
}
