package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type openAIMock struct {
	// streamData are raw SSE data payloads; completionBody answers
	// non-streaming calls.
	streamData     []string
	completionBody string

	mu      sync.Mutex
	lastReq map[string]any
}

func (m *openAIMock) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasSuffix(strings.TrimSpace(r.URL.Path), "/chat/completions") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()
	var req map[string]any
	_ = json.Unmarshal(body, &req)
	m.mu.Lock()
	m.lastReq = req
	m.mu.Unlock()

	stream, _ := req["stream"].(bool)
	if !stream {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, m.completionBody)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	f, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	for _, data := range m.streamData {
		_, _ = io.WriteString(w, "data: "+data+"\n\n")
		f.Flush()
	}
}

func (m *openAIMock) request() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReq
}

func newOpenAITestProvider(t *testing.T, mock *openAIMock) *openAIProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(mock.handle))
	t.Cleanup(srv.Close)
	return newOpenAIProvider(Credentials{APIKey: "sk-test", BaseURL: srv.URL})
}

func TestOpenAIStream_TextThenDone(t *testing.T) {
	t.Parallel()

	mock := &openAIMock{streamData: []string{
		`{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"},"finish_reason":null}]}`,
		`{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":null}]}`,
		`{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		`[DONE]`,
	}}
	p := newOpenAITestProvider(t, mock)

	var rec chunkRecorder
	if err := p.GenerateStream(context.Background(), []Message{UserMessage("hi")}, nil, rec.add); err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	if got := rec.text(); got != "Hello" {
		t.Fatalf("text=%q, want %q", got, "Hello")
	}
	if last := rec.last(); last.Kind != ChunkDone || last.StopReason != "stop" {
		t.Fatalf("last chunk=%+v, want done with stop reason stop", last)
	}
}

func TestOpenAIGenerate_ReturnsFirstChoice(t *testing.T) {
	t.Parallel()

	mock := &openAIMock{completionBody: `{"id":"chatcmpl-2","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"4"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`}
	p := newOpenAITestProvider(t, mock)

	got, err := p.Generate(context.Background(), []Message{UserMessage("2+2?")})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "4" {
		t.Fatalf("Generate=%q, want %q", got, "4")
	}
}

func TestOpenAI_RolesMappedOnWire(t *testing.T) {
	t.Parallel()

	mock := &openAIMock{completionBody: `{"id":"chatcmpl-3","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`}
	p := newOpenAITestProvider(t, mock)

	messages := []Message{
		SystemMessage("You are helpful."),
		UserMessage("hello"),
		AssistantMessage("hi"),
		UserMessage("   "),
	}
	if _, err := p.Generate(context.Background(), messages); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	wireMessages, _ := mock.request()["messages"].([]any)
	if len(wireMessages) != 3 {
		t.Fatalf("message count=%d, want 3 (blank message skipped)", len(wireMessages))
	}
	wantRoles := []string{"system", "user", "assistant"}
	for i, want := range wantRoles {
		msg, _ := wireMessages[i].(map[string]any)
		if got := msg["role"]; got != want {
			t.Fatalf("message[%d] role=%v, want %q", i, got, want)
		}
	}
}

func TestOpenAIGenerate_AuthErrorClassified(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	p := newOpenAIProvider(Credentials{APIKey: "sk-bad", BaseURL: srv.URL})
	_, err := p.Generate(context.Background(), []Message{UserMessage("hi")})
	if err == nil {
		t.Fatalf("Generate succeeded, want auth error")
	}
	if kind := AsProviderError(err).Kind; kind != ErrKindAuth {
		t.Fatalf("error kind=%q, want %q (err=%v)", kind, ErrKindAuth, err)
	}
}

func TestOpenAIConfigured_RequiresToken(t *testing.T) {
	t.Parallel()

	if newOpenAIProvider(Credentials{}).Configured() {
		t.Fatalf("Configured()=true with no credentials")
	}
	if !newOpenAIProvider(Credentials{APIKey: "sk-test"}).Configured() {
		t.Fatalf("Configured()=false with api key set")
	}
}
