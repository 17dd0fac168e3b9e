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

type ollamaMock struct {
	lines []string

	mu      sync.Mutex
	lastReq map[string]any
}

func (m *ollamaMock) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || strings.TrimSpace(r.URL.Path) != "/api/chat" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	body, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()
	var req map[string]any
	_ = json.Unmarshal(body, &req)
	m.mu.Lock()
	m.lastReq = req
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	f, _ := w.(http.Flusher)
	for _, line := range m.lines {
		_, _ = io.WriteString(w, line+"\n")
		if f != nil {
			f.Flush()
		}
	}
}

func (m *ollamaMock) request() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReq
}

func newOllamaTestProvider(t *testing.T, mock *ollamaMock) *localProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(mock.handle))
	t.Cleanup(srv.Close)
	return newLocalProvider(LocalConfig{BaseURL: srv.URL, Model: "llama3.2:3b"}, srv.Client())
}

func TestOllamaStream_TextAndDone(t *testing.T) {
	t.Parallel()

	mock := &ollamaMock{lines: []string{
		`{"message":{"role":"assistant","content":"Hi"},"done":false}`,
		`{"message":{"role":"assistant","content":"!"},"done":false}`,
		`{"message":{"role":"assistant","content":""},"done":true}`,
	}}
	p := newOllamaTestProvider(t, mock)

	var rec chunkRecorder
	if err := p.GenerateStream(context.Background(), []Message{UserMessage("hello")}, nil, rec.add); err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	if got := rec.text(); got != "Hi!" {
		t.Fatalf("text=%q, want %q", got, "Hi!")
	}
	if last := rec.last(); last.Kind != ChunkDone {
		t.Fatalf("last chunk kind=%q, want %q", last.Kind, ChunkDone)
	}

	req := mock.request()
	if got := req["model"]; got != "llama3.2:3b" {
		t.Fatalf("request model=%v, want llama3.2:3b", got)
	}
	if got := req["stream"]; got != true {
		t.Fatalf("request stream=%v, want true", got)
	}
}

func TestOllamaStream_MalformedLineEmitsErrorChunk(t *testing.T) {
	t.Parallel()

	mock := &ollamaMock{lines: []string{
		`{"message":{"role":"assistant","content":"partial"},"done":false}`,
		`this is not json`,
	}}
	p := newOllamaTestProvider(t, mock)

	var rec chunkRecorder
	if err := p.GenerateStream(context.Background(), []Message{UserMessage("hello")}, nil, rec.add); err != nil {
		t.Fatalf("GenerateStream returned %v, want nil (error travels as a chunk)", err)
	}
	last := rec.last()
	if last.Kind != ChunkError {
		t.Fatalf("last chunk kind=%q, want %q", last.Kind, ChunkError)
	}
	if last.Err == nil || !strings.HasPrefix(last.Err.Message, "Failed to parse Ollama stream:") {
		t.Fatalf("error chunk=%+v, want parse failure message", last.Err)
	}
}

func TestOllamaGenerate_NonStreaming(t *testing.T) {
	t.Parallel()

	mock := &ollamaMock{lines: []string{
		`{"message":{"role":"assistant","content":"4"}}`,
	}}
	p := newOllamaTestProvider(t, mock)

	got, err := p.Generate(context.Background(), []Message{UserMessage("2+2?")})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "4" {
		t.Fatalf("Generate=%q, want %q", got, "4")
	}
	if stream := mock.request()["stream"]; stream != false {
		t.Fatalf("request stream=%v, want false", stream)
	}
}

func TestOllamaGenerate_ServerErrorIsTransport(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	p := newLocalProvider(LocalConfig{BaseURL: srv.URL}, srv.Client())
	_, err := p.Generate(context.Background(), []Message{UserMessage("hi")})
	if err == nil {
		t.Fatalf("Generate succeeded, want transport error")
	}
	if kind := AsProviderError(err).Kind; kind != ErrKindTransport {
		t.Fatalf("error kind=%q, want %q (err=%v)", kind, ErrKindTransport, err)
	}
}

func TestOllamaBaseURL_ConfigEnvDefaultOrder(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://env.test:9999/")

	if p := newLocalProvider(LocalConfig{BaseURL: "http://cfg.test:1234/"}, nil); p.base != "http://cfg.test:1234" {
		t.Fatalf("base=%q, want config URL to win", p.base)
	}
	if p := newLocalProvider(LocalConfig{}, nil); p.base != "http://env.test:9999" {
		t.Fatalf("base=%q, want env URL", p.base)
	}

	t.Setenv("OLLAMA_BASE_URL", "")
	p := newLocalProvider(LocalConfig{}, nil)
	if p.base != defaultOllamaBaseURL {
		t.Fatalf("base=%q, want %q", p.base, defaultOllamaBaseURL)
	}
	if p.model != defaultLocalModel {
		t.Fatalf("model=%q, want %q", p.model, defaultLocalModel)
	}
}
