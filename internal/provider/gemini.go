package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Retry policy for non-streaming calls. Streaming requests are not retried;
// a broken stream surfaces immediately.
const geminiMaxAttempts = 4

// geminiProvider streams plain text via the Gemini API. The SDK client needs
// a context at construction time, so it is built per request from the stored
// credentials.
type geminiProvider struct {
	token string
	model string
}

func newGeminiProvider(creds Credentials) *geminiProvider {
	return &geminiProvider{
		token: creds.token(),
		model: creds.model(defaultGeminiModel),
	}
}

func (p *geminiProvider) Name() string { return ProviderGemini }

func (p *geminiProvider) Configured() bool {
	return p != nil && p.token != ""
}

func (p *geminiProvider) newClient(ctx context.Context) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.token,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, NewError(classifyErrorKind(err), "gemini client: "+err.Error(), err)
	}
	return client, nil
}

func (p *geminiProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	client, err := p.newClient(ctx)
	if err != nil {
		return "", err
	}
	contents, config := buildGeminiRequest(messages)

	var lastErr error
	for attempt := 0; attempt < geminiMaxAttempts; attempt++ {
		if attempt > 0 {
			// 1s, 2s, 4s between attempts.
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return "", NewError(ErrKindCancelled, "gemini request cancelled", ctx.Err())
			case <-time.After(backoff):
			}
		}
		resp, err := client.Models.GenerateContent(ctx, p.model, contents, config)
		if err == nil {
			return geminiResponseText(resp), nil
		}
		lastErr = err
		if !geminiRetryable(err) {
			break
		}
	}
	return "", NewError(classifyErrorKind(lastErr), "gemini error: "+lastErr.Error(), lastErr)
}

func (p *geminiProvider) GenerateStream(ctx context.Context, messages []Message, _ []ToolDef, onChunk func(StreamChunk)) error {
	client, err := p.newClient(ctx)
	if err != nil {
		return err
	}
	contents, config := buildGeminiRequest(messages)

	stopReason := ""
	for resp, err := range client.Models.GenerateContentStream(ctx, p.model, contents, config) {
		if err != nil {
			return NewError(classifyErrorKind(err), "gemini error: "+err.Error(), err)
		}
		if text := geminiResponseText(resp); text != "" {
			onChunk(StreamChunk{Kind: ChunkText, Text: text})
		}
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			stopReason = mapGeminiFinishReason(resp.Candidates[0].FinishReason)
		}
	}
	onChunk(StreamChunk{Kind: ChunkDone, StopReason: stopReason})
	return nil
}

// buildGeminiRequest converts the transcript to Gemini contents. System
// messages become the system instruction. The API requires user/model
// alternation starting and ending with user, so consecutive same-role turns
// are merged and "Continue." pads the edges.
func buildGeminiRequest(messages []Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			continue
		}
		text := msg.JoinedText()
		if strings.TrimSpace(text) == "" {
			continue
		}
		role := string(genai.RoleUser)
		if msg.Role == RoleAssistant {
			role = string(genai.RoleModel)
		}
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, genai.NewPartFromText(text))
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(text)},
		})
	}
	if len(contents) == 0 || contents[0].Role != string(genai.RoleUser) {
		pad := &genai.Content{
			Role:  string(genai.RoleUser),
			Parts: []*genai.Part{genai.NewPartFromText("Continue.")},
		}
		contents = append([]*genai.Content{pad}, contents...)
	}
	if contents[len(contents)-1].Role != string(genai.RoleUser) {
		contents = append(contents, &genai.Content{
			Role:  string(genai.RoleUser),
			Parts: []*genai.Part{genai.NewPartFromText("Continue.")},
		})
	}

	var config *genai.GenerateContentConfig
	if system := collectSystemPrompt(messages); system != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{genai.NewPartFromText(system)},
			},
		}
	}
	return contents, config
}

func geminiResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func mapGeminiFinishReason(reason genai.FinishReason) string {
	switch reason {
	case genai.FinishReasonStop:
		return StopReasonEndTurn
	case genai.FinishReasonMaxTokens:
		return StopReasonMaxTokens
	default:
		return strings.ToLower(string(reason))
	}
}

// geminiRetryable reports whether the call should be retried: rate limiting
// and transient unavailability only.
func geminiRetryable(err error) bool {
	var apiErr *genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 429 || apiErr.Code == 503
}
