// Package openai converts a compiled render.Payload into an OpenAI chat
// completion request. Grounded on kayz-coco's internal/agent/
// provider_openai_common.go: the generic-message-to-openai.ChatCompletionMessage
// conversion and the tool-name sanitization codec are adapted from there,
// narrowed to a one-shot request build (FACET compiles a single prompt, it
// does not run a chat loop).
package openai

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/facet-lang/facet/internal/render"
)

var toolNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// sanitizeToolName mirrors the teacher's sanitizeOpenAIToolName: the OpenAI
// function-name charset is narrower than FACET's "Interface.method" dotted
// tool names, so dots and other punctuation fold to underscores.
func sanitizeToolName(name string) string {
	name = strings.TrimSpace(name)
	if toolNamePattern.MatchString(name) {
		return name
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), "_-")
	if s == "" {
		return "tool"
	}
	return s
}

// Request builds an openai.ChatCompletionRequest from a compiled payload.
// System and user each become one message of their respective role;
// assistant, if present, seeds a prior assistant turn (a FACET document
// with a non-empty `assistant` block is priming a continuation, not asking
// for a fresh completion from scratch). Context entries are JSON-encoded
// and appended to the user message, since OpenAI's chat schema has no
// separate "context" role.
func Request(model string, p *render.Payload) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if system := render.JoinedText(p.System); system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userContent(p),
	})
	if assistant := render.JoinedText(p.Assistant); assistant != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: assistant,
		})
	}
	return openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
}

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

// Tools converts compiled interface tool definitions into OpenAI function
// tools, renaming each to satisfy OpenAI's charset via sanitizeToolName and
// collapsing name collisions the same way the teacher's openAIToolCodec
// does (suffix with _2, _3, ...).
func Tools(names []string, descriptions []string, schemas []json.RawMessage) []openai.Tool {
	used := make(map[string]struct{}, len(names))
	tools := make([]openai.Tool, 0, len(names))
	for i, name := range names {
		apiName := sanitizeToolName(name)
		base := apiName
		for n := 2; ; n++ {
			if _, exists := used[apiName]; !exists {
				break
			}
			apiName = base + "_" + strconv.Itoa(n)
		}
		used[apiName] = struct{}{}

		var params map[string]any
		if i < len(schemas) {
			if err := json.Unmarshal(schemas[i], &params); err != nil {
				params = map[string]any{"type": "object"}
			}
		} else {
			params = map[string]any{"type": "object"}
		}
		desc := ""
		if i < len(descriptions) {
			desc = descriptions[i]
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        apiName,
				Description: desc,
				Parameters:  params,
			},
		})
	}
	return tools
}
