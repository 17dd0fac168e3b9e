package provider

import (
	"context"
	"encoding/json"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
)

// Upstream reply cap. Long outputs end with stop reason max_tokens and the
// orchestrator surfaces that to the user.
const anthropicMaxTokens = 4096

// anthropicProvider speaks the native structured tool protocol. It is the
// only adapter that emits tool_use chunks; every other provider streams
// plain text.
type anthropicProvider struct {
	client anthropic.Client
	token  string
	model  string
}

func newAnthropicProvider(creds Credentials) *anthropicProvider {
	token := creds.token()
	opts := []aoption.RequestOption{aoption.WithAPIKey(token)}
	if base := strings.TrimSpace(creds.BaseURL); base != "" {
		opts = append(opts, aoption.WithBaseURL(base))
	}
	return &anthropicProvider{
		client: anthropic.NewClient(opts...),
		token:  token,
		model:  creds.model(defaultAnthropicModel),
	}
}

func (p *anthropicProvider) Name() string { return ProviderAnthropic }

func (p *anthropicProvider) Configured() bool {
	return p != nil && p.token != ""
}

func (p *anthropicProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	msg, err := p.client.Messages.New(ctx, p.buildParams(messages, nil))
	if err != nil {
		return "", NewError(classifyErrorKind(err), "anthropic error: "+err.Error(), err)
	}
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			return text.Text, nil
		}
	}
	return "", nil
}

func (p *anthropicProvider) GenerateStream(ctx context.Context, messages []Message, tools []ToolDef, onChunk func(StreamChunk)) error {
	stream := p.client.Messages.NewStreaming(ctx, p.buildParams(messages, tools))

	// Tool input JSON arrives as deltas; each in-flight block is keyed by
	// its content index until the stop event seals it.
	type partialTool struct {
		id   string
		name string
		json strings.Builder
	}
	partials := make(map[int64]*partialTool)

	accumulated := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := accumulated.Accumulate(event); err != nil {
			return NewError(ErrKindProtocol, "anthropic stream accumulate: "+err.Error(), err)
		}

		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			if variant.ContentBlock.Type != "tool_use" {
				continue
			}
			pt := &partialTool{
				id:   strings.TrimSpace(variant.ContentBlock.ID),
				name: strings.TrimSpace(variant.ContentBlock.Name),
			}
			partials[variant.Index] = pt
			onChunk(StreamChunk{Kind: ChunkToolUseStart, ToolID: pt.id, ToolName: pt.name})

		case anthropic.ContentBlockDeltaEvent:
			switch delta := variant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text != "" {
					onChunk(StreamChunk{Kind: ChunkText, Text: delta.Text})
				}
			case anthropic.InputJSONDelta:
				pt := partials[variant.Index]
				if pt == nil || delta.PartialJSON == "" {
					continue
				}
				pt.json.WriteString(delta.PartialJSON)
				onChunk(StreamChunk{Kind: ChunkToolInputDelta, ToolID: pt.id, InputDelta: delta.PartialJSON})
			}

		case anthropic.ContentBlockStopEvent:
			pt := partials[variant.Index]
			if pt == nil {
				continue
			}
			delete(partials, variant.Index)
			input := map[string]any{}
			if raw := strings.TrimSpace(pt.json.String()); raw != "" {
				// Malformed accumulated JSON degrades to an empty input.
				_ = json.Unmarshal([]byte(raw), &input)
			}
			onChunk(StreamChunk{Kind: ChunkToolUseComplete, ToolID: pt.id, ToolName: pt.name, Input: input})

		case anthropic.MessageStopEvent:
			onChunk(StreamChunk{Kind: ChunkDone, StopReason: string(accumulated.StopReason)})
			return nil
		}
	}
	if err := stream.Err(); err != nil {
		return NewError(classifyErrorKind(err), "anthropic error: "+err.Error(), err)
	}
	onChunk(StreamChunk{Kind: ChunkDone, StopReason: string(accumulated.StopReason)})
	return nil
}

func (p *anthropicProvider) buildParams(messages []Message, tools []ToolDef) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: anthropicMaxTokens,
		Messages:  buildAnthropicMessages(messages),
	}
	if system := collectSystemPrompt(messages); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = buildAnthropicTools(tools)
	}
	return params
}

// collectSystemPrompt joins all system messages into the single system
// parameter the API accepts.
func collectSystemPrompt(messages []Message) string {
	var parts []string
	for _, msg := range messages {
		if msg.Role != RoleSystem {
			continue
		}
		if txt := strings.TrimSpace(msg.JoinedText()); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, "\n\n")
}

// buildAnthropicMessages converts the neutral transcript to API message
// params. System messages are hoisted out by collectSystemPrompt, tool roles
// become user turns carrying tool_result blocks, and an all-empty transcript
// gets a "Continue." user turn because the API rejects empty message lists.
func buildAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			continue
		}
		var blocks []anthropic.ContentBlockParamUnion
		if len(msg.Parts) > 0 {
			blocks = make([]anthropic.ContentBlockParamUnion, 0, len(msg.Parts))
			for _, part := range msg.Parts {
				switch part.Kind {
				case PartKindText:
					if strings.TrimSpace(part.Text) != "" {
						blocks = append(blocks, anthropic.NewTextBlock(part.Text))
					}
				case PartKindToolUse:
					input := part.Input
					if input == nil {
						input = map[string]any{}
					}
					blocks = append(blocks, anthropic.NewToolUseBlock(part.ToolID, input, part.ToolName))
				case PartKindToolResult:
					if strings.TrimSpace(part.ToolID) == "" {
						continue
					}
					blocks = append(blocks, anthropic.NewToolResultBlock(part.ToolID, part.Content, false))
				}
			}
		} else if strings.TrimSpace(msg.Text) != "" {
			blocks = append(blocks, anthropic.NewTextBlock(msg.Text))
		}
		if len(blocks) == 0 {
			continue
		}
		if msg.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	if len(out) == 0 {
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock("Continue.")))
	}
	return out
}

func buildAnthropicTools(defs []ToolDef) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			continue
		}
		required, _ := toStringSlice(def.InputSchema["required"])
		toolParam := anthropic.ToolParam{
			Name:        name,
			Description: anthropic.String(strings.TrimSpace(def.Description)),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: def.InputSchema["properties"],
				Required:   required,
			},
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &toolParam})
	}
	return out
}

func toStringSlice(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
