package openai

import (
	"encoding/json"
	"testing"

	"github.com/sashabaranov/go-openai"
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

func TestRequestBuildsSystemUserAssistantMessages(t *testing.T) {
	p := &render.Payload{
		System:    entryValue("role", "You are helpful."),
		User:      entryValue("msg", "Hello"),
		Assistant: entryValue("msg", "Hi there"),
	}
	req := Request("gpt-4o", p)
	assert.Equal(t, "gpt-4o", req.Model)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, "You are helpful.", req.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Equal(t, "Hello", req.Messages[1].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, req.Messages[2].Role)
	assert.Equal(t, "Hi there", req.Messages[2].Content)
}

func TestRequestOmitsEmptySystemAndAssistant(t *testing.T) {
	p := &render.Payload{User: entryValue("msg", "Hello")}
	req := Request("gpt-4o", p)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[0].Role)
}

func TestRequestAppendsContextJSONToUserMessage(t *testing.T) {
	p := &render.Payload{User: entryValue("msg", "Hello"), Context: []lens.Value{"doc one", "doc two"}}
	req := Request("gpt-4o", p)
	content := req.Messages[0].Content
	assert.Contains(t, content, "Hello")
	assert.Contains(t, content, "doc one")
	assert.Contains(t, content, "doc two")
}

func TestSanitizeToolNameFoldsDots(t *testing.T) {
	assert.Equal(t, "Weather_lookup", sanitizeToolName("Weather.lookup"))
	assert.Equal(t, "already_ok-1", sanitizeToolName("already_ok-1"))
}

func TestToolsAvoidsNameCollisions(t *testing.T) {
	names := []string{"Weather.lookup", "Weather_lookup"}
	descriptions := []string{"first", "second"}
	schemas := []json.RawMessage{
		json.RawMessage(`{"type":"object"}`),
		json.RawMessage(`{"type":"object"}`),
	}
	tools := Tools(names, descriptions, schemas)
	require.Len(t, tools, 2)
	assert.Equal(t, "Weather_lookup", tools[0].Function.Name)
	assert.Equal(t, "Weather_lookup_2", tools[1].Function.Name)
	assert.Equal(t, "first", tools[0].Function.Description)
}

func TestToolsDefaultsToObjectSchemaOnInvalidJSON(t *testing.T) {
	tools := Tools([]string{"broken"}, []string{"d"}, []json.RawMessage{json.RawMessage(`not json`)})
	require.Len(t, tools, 1)
	params, ok := tools[0].Function.Parameters.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", params["type"])
}
