// Package anthropic converts a compiled render.Payload into an Anthropic
// Messages API request. Grounded on the same generic-message-conversion
// shape as adapter/openai (kayz-coco's internal/agent/
// provider_openai_common.go), retargeted at go-anthropic/v2's
// MessagesRequest/Message types; go-anthropic/v2 appears in the teacher's
// own go.mod as a declared provider dependency, so this package gives it
// the concrete caller no visible teacher file already exercised.
package anthropic

import (
	"encoding/json"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/facet-lang/facet/internal/render"
)

// Request builds an anthropic.MessagesRequest from a compiled payload.
// System maps to the request's top-level System field (Anthropic has no
// system-role message, unlike OpenAI); user and a primed assistant turn
// become the message list. Context entries are JSON-encoded and appended
// to the user message, matching adapter/openai's treatment since Anthropic
// has no separate context channel either.
func Request(model string, p *render.Payload) anthropic.MessagesRequest {
	var messages []anthropic.Message
	messages = append(messages, anthropic.NewUserTextMessage(userContent(p)))
	if assistant := render.JoinedText(p.Assistant); assistant != "" {
		messages = append(messages, anthropic.NewAssistantTextMessage(assistant))
	}
	return anthropic.MessagesRequest{
		Model:     anthropic.Model(model),
		System:    render.JoinedText(p.System),
		Messages:  messages,
		MaxTokens: defaultMaxTokens,
	}
}

// defaultMaxTokens is a conservative default for a one-shot compile-time
// request preview; a real call site overrides it per the host's own
// budget before dispatching.
const defaultMaxTokens = 4096

func userContent(p *render.Payload) string {
	user := render.JoinedText(p.User)
	if len(p.Context) == 0 {
		return user
	}
	ctx, err := json.Marshal(p.Context)
	if err != nil {
		return user
	}
	return user + "\n\n" + string(ctx)
}

// Tools converts compiled interface tool definitions into Anthropic tool
// definitions. Anthropic's tool-name charset (letters, digits, underscore,
// hyphen, max 128 chars) is the same shape adapter/openai sanitizes for,
// but Anthropic's own SDK does not require the caller to pre-sanitize, so
// dotted "Interface.method" names pass through unchanged.
func Tools(names []string, descriptions []string, schemas []json.RawMessage) []anthropic.ToolDefinition {
	tools := make([]anthropic.ToolDefinition, 0, len(names))
	for i, name := range names {
		var schema any
		if i < len(schemas) {
			if err := json.Unmarshal(schemas[i], &schema); err != nil {
				schema = map[string]any{"type": "object"}
			}
		} else {
			schema = map[string]any{"type": "object"}
		}
		desc := ""
		if i < len(descriptions) {
			desc = descriptions[i]
		}
		tools = append(tools, anthropic.ToolDefinition{
			Name:        name,
			Description: desc,
			InputSchema: schema,
		})
	}
	return tools
}
