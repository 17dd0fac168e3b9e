package provider

import (
	"context"
	"strings"

	openai "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
)

// openAIProvider streams plain text over the Chat Completions API. It has no
// structured tool protocol here; the orchestrator drives tools through
// tagged text instead.
type openAIProvider struct {
	client openai.Client
	token  string
	model  string
}

func newOpenAIProvider(creds Credentials) *openAIProvider {
	token := creds.token()
	opts := []ooption.RequestOption{ooption.WithAPIKey(token)}
	if base := strings.TrimSpace(creds.BaseURL); base != "" {
		opts = append(opts, ooption.WithBaseURL(base))
	}
	return &openAIProvider{
		client: openai.NewClient(opts...),
		token:  token,
		model:  creds.model(defaultOpenAIModel),
	}
}

func (p *openAIProvider) Name() string { return ProviderOpenAI }

func (p *openAIProvider) Configured() bool {
	return p != nil && p.token != ""
}

func (p *openAIProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	completion, err := p.client.Chat.Completions.New(ctx, p.buildParams(messages))
	if err != nil {
		return "", NewError(classifyErrorKind(err), "openai error: "+err.Error(), err)
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

func (p *openAIProvider) GenerateStream(ctx context.Context, messages []Message, _ []ToolDef, onChunk func(StreamChunk)) error {
	stream := p.client.Chat.Completions.NewStreaming(ctx, p.buildParams(messages))
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			onChunk(StreamChunk{Kind: ChunkText, Text: choice.Delta.Content})
		}
		if choice.FinishReason != "" {
			onChunk(StreamChunk{Kind: ChunkDone, StopReason: choice.FinishReason})
			return nil
		}
	}
	if err := stream.Err(); err != nil {
		return NewError(classifyErrorKind(err), "openai error: "+err.Error(), err)
	}
	onChunk(StreamChunk{Kind: ChunkDone})
	return nil
}

func (p *openAIProvider) buildParams(messages []Message) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: buildOpenAIMessages(messages),
	}
}

// buildOpenAIMessages flattens the transcript to role-tagged text. Structured
// parts are collapsed through JoinedText because this wire carries no tool
// blocks.
func buildOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		text := msg.JoinedText()
		if strings.TrimSpace(text) == "" {
			continue
		}
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(text))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(text))
		default:
			out = append(out, openai.UserMessage(text))
		}
	}
	return out
}
