package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultOllamaBaseURL = "http://127.0.0.1:11434"

	// Local models can be slow to first token on cold start.
	ollamaTimeout = 120 * time.Second
)

// localProvider talks to a local Ollama daemon over its line-delimited JSON
// chat API. No credentials are involved; an unreachable daemon surfaces as a
// transport error at request time.
type localProvider struct {
	http  *http.Client
	base  string
	model string
}

func newLocalProvider(cfg LocalConfig, client *http.Client) *localProvider {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = strings.TrimSpace(os.Getenv("OLLAMA_BASE_URL"))
	}
	if base == "" {
		base = defaultOllamaBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultLocalModel
	}
	if client == nil {
		client = &http.Client{Timeout: ollamaTimeout}
	}
	return &localProvider{
		http:  client,
		base:  strings.TrimRight(base, "/"),
		model: model,
	}
}

func (p *localProvider) Name() string { return ProviderLocal }

func (p *localProvider) Configured() bool { return p != nil }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
}

// ollamaStreamChunk is one line of a streaming response.
type ollamaStreamChunk struct {
	Message *ollamaMessage `json:"message"`
	Done    bool           `json:"done"`
}

func (p *localProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	resp, err := p.post(ctx, ollamaChatRequest{
		Model:    p.model,
		Messages: buildOllamaMessages(messages),
		Stream:   false,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", NewError(ErrKindProtocol, "ollama response decode: "+err.Error(), err)
	}
	return body.Message.Content, nil
}

func (p *localProvider) GenerateStream(ctx context.Context, messages []Message, _ []ToolDef, onChunk func(StreamChunk)) error {
	resp, err := p.post(ctx, ollamaChatRequest{
		Model:    p.model,
		Messages: buildOllamaMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var chunk ollamaStreamChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			// A malformed line ends the stream with an error chunk instead
			// of failing the whole turn.
			onChunk(StreamChunk{
				Kind: ChunkError,
				Err:  NewError(ErrKindProtocol, "Failed to parse Ollama stream: "+err.Error(), err),
			})
			return nil
		}
		if chunk.Message != nil && chunk.Message.Content != "" {
			onChunk(StreamChunk{Kind: ChunkText, Text: chunk.Message.Content})
		}
		if chunk.Done {
			onChunk(StreamChunk{Kind: ChunkDone})
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return NewError(classifyErrorKind(err), "ollama stream read: "+err.Error(), err)
	}
	onChunk(StreamChunk{Kind: ChunkDone})
	return nil
}

func (p *localProvider) post(ctx context.Context, payload ollamaChatRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewError(ErrKindInternal, "ollama request encode: "+err.Error(), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.base+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, NewError(ErrKindInternal, "ollama request: "+err.Error(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, NewError(classifyErrorKind(err), "ollama error: "+err.Error(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, NewError(ErrKindTransport, "ollama error: "+resp.Status, nil)
	}
	return resp, nil
}

// buildOllamaMessages flattens the transcript to role/content pairs. Tool
// turns are folded into user turns; the local wire has no tool roles.
func buildOllamaMessages(messages []Message) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(messages))
	for _, msg := range messages {
		text := msg.JoinedText()
		if strings.TrimSpace(text) == "" {
			continue
		}
		role := string(msg.Role)
		if msg.Role == RoleTool {
			role = string(RoleUser)
		}
		out = append(out, ollamaMessage{Role: role, Content: text})
	}
	return out
}
