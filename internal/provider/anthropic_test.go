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

type anthropicMock struct {
	script []map[string]any

	mu      sync.Mutex
	lastReq map[string]any
}

func (m *anthropicMock) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasSuffix(strings.TrimSpace(r.URL.Path), "/messages") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if strings.TrimSpace(r.Header.Get("x-api-key")) == "" {
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

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	f, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	for _, event := range m.script {
		writeAnthropicSSE(w, f, event)
	}
}

func (m *anthropicMock) request() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReq
}

func writeAnthropicSSE(w io.Writer, f http.Flusher, v map[string]any) {
	if t, ok := v["type"].(string); ok && strings.TrimSpace(t) != "" {
		_, _ = io.WriteString(w, "event: "+strings.TrimSpace(t)+"\n")
	}
	b, _ := json.Marshal(v)
	_, _ = io.WriteString(w, "data: ")
	_, _ = w.Write(b)
	_, _ = io.WriteString(w, "\n\n")
	f.Flush()
}

type chunkRecorder struct {
	chunks []StreamChunk
}

func (r *chunkRecorder) add(c StreamChunk) { r.chunks = append(r.chunks, c) }

func (r *chunkRecorder) text() string {
	var sb strings.Builder
	for _, c := range r.chunks {
		if c.Kind == ChunkText {
			sb.WriteString(c.Text)
		}
	}
	return sb.String()
}

func (r *chunkRecorder) last() StreamChunk {
	if len(r.chunks) == 0 {
		return StreamChunk{}
	}
	return r.chunks[len(r.chunks)-1]
}

func newAnthropicTestProvider(t *testing.T, mock *anthropicMock) *anthropicProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(mock.handle))
	t.Cleanup(srv.Close)
	return newAnthropicProvider(Credentials{APIKey: "sk-ant-test", BaseURL: srv.URL})
}

func TestAnthropicStream_TextDeltasThenDone(t *testing.T) {
	t.Parallel()

	mock := &anthropicMock{script: []map[string]any{
		{"type": "message_start", "message": map[string]any{}},
		{"type": "content_block_start", "index": 0, "content_block": map[string]any{"type": "text", "text": ""}},
		{"type": "content_block_delta", "index": 0, "delta": map[string]any{"type": "text_delta", "text": "Hello "}},
		{"type": "content_block_delta", "index": 0, "delta": map[string]any{"type": "text_delta", "text": "there"}},
		{"type": "content_block_stop", "index": 0},
		{"type": "message_delta", "delta": map[string]any{"stop_reason": "end_turn", "stop_sequence": nil}, "usage": map[string]any{"output_tokens": 2}},
		{"type": "message_stop"},
	}}
	p := newAnthropicTestProvider(t, mock)

	var rec chunkRecorder
	if err := p.GenerateStream(context.Background(), []Message{UserMessage("hi")}, nil, rec.add); err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	if got := rec.text(); got != "Hello there" {
		t.Fatalf("text=%q, want %q", got, "Hello there")
	}
	last := rec.last()
	if last.Kind != ChunkDone {
		t.Fatalf("last chunk kind=%q, want %q", last.Kind, ChunkDone)
	}
	if last.StopReason != StopReasonEndTurn {
		t.Fatalf("stop reason=%q, want %q", last.StopReason, StopReasonEndTurn)
	}
}

func TestAnthropicStream_ToolUseLifecycle(t *testing.T) {
	t.Parallel()

	mock := &anthropicMock{script: []map[string]any{
		{"type": "message_start", "message": map[string]any{}},
		{"type": "content_block_start", "index": 0, "content_block": map[string]any{"type": "tool_use", "id": "tu_1", "name": "bash_execute", "input": map[string]any{}}},
		{"type": "content_block_delta", "index": 0, "delta": map[string]any{"type": "input_json_delta", "partial_json": `{"comm`}},
		{"type": "content_block_delta", "index": 0, "delta": map[string]any{"type": "input_json_delta", "partial_json": `and":"ls"}`}},
		{"type": "content_block_stop", "index": 0},
		{"type": "message_delta", "delta": map[string]any{"stop_reason": "tool_use", "stop_sequence": nil}, "usage": map[string]any{"output_tokens": 1}},
		{"type": "message_stop"},
	}}
	p := newAnthropicTestProvider(t, mock)

	var rec chunkRecorder
	if err := p.GenerateStream(context.Background(), []Message{UserMessage("list files")}, BuiltinTools(), rec.add); err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}

	if len(rec.chunks) < 4 {
		t.Fatalf("chunk count=%d, want at least 4", len(rec.chunks))
	}
	start := rec.chunks[0]
	if start.Kind != ChunkToolUseStart || start.ToolID != "tu_1" || start.ToolName != "bash_execute" {
		t.Fatalf("first chunk=%+v, want tool_use_start tu_1 bash_execute", start)
	}

	var complete *StreamChunk
	deltas := 0
	for i := range rec.chunks {
		switch rec.chunks[i].Kind {
		case ChunkToolInputDelta:
			deltas++
		case ChunkToolUseComplete:
			complete = &rec.chunks[i]
		}
	}
	if deltas != 2 {
		t.Fatalf("input delta count=%d, want 2", deltas)
	}
	if complete == nil {
		t.Fatalf("no tool_use_complete chunk in %+v", rec.chunks)
	}
	if got := complete.Input["command"]; got != "ls" {
		t.Fatalf("tool input command=%v, want %q", got, "ls")
	}
	if last := rec.last(); last.Kind != ChunkDone || last.StopReason != StopReasonToolUse {
		t.Fatalf("last chunk=%+v, want done with stop reason tool_use", last)
	}
}

func TestAnthropicStream_SendsToolDefinitions(t *testing.T) {
	t.Parallel()

	mock := &anthropicMock{script: []map[string]any{
		{"type": "message_start", "message": map[string]any{}},
		{"type": "message_stop"},
	}}
	p := newAnthropicTestProvider(t, mock)

	var rec chunkRecorder
	if err := p.GenerateStream(context.Background(), []Message{UserMessage("hi")}, BuiltinTools(), rec.add); err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}

	rawTools, _ := mock.request()["tools"].([]any)
	names := make([]string, 0, len(rawTools))
	for _, item := range rawTools {
		tool, _ := item.(map[string]any)
		if name, _ := tool["name"].(string); name != "" {
			names = append(names, name)
		}
	}
	want := []string{ToolWebSearch, ToolBashExecute, ToolFilePreview}
	if len(names) != len(want) {
		t.Fatalf("tool names=%v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("tool names=%v, want %v", names, want)
		}
	}
}

func TestAnthropicStream_SystemMessagesHoisted(t *testing.T) {
	t.Parallel()

	mock := &anthropicMock{script: []map[string]any{
		{"type": "message_start", "message": map[string]any{}},
		{"type": "message_stop"},
	}}
	p := newAnthropicTestProvider(t, mock)

	messages := []Message{
		SystemMessage("You are helpful."),
		SystemMessage("Be brief."),
		UserMessage("hi"),
	}
	var rec chunkRecorder
	if err := p.GenerateStream(context.Background(), messages, nil, rec.add); err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}

	req := mock.request()
	system, _ := req["system"].([]any)
	if len(system) != 1 {
		t.Fatalf("system block count=%d, want 1", len(system))
	}
	block, _ := system[0].(map[string]any)
	if got := block["text"]; got != "You are helpful.\n\nBe brief." {
		t.Fatalf("system text=%q, want joined prompts", got)
	}

	wireMessages, _ := req["messages"].([]any)
	if len(wireMessages) != 1 {
		t.Fatalf("message count=%d, want 1 (system hoisted out)", len(wireMessages))
	}
}

func TestAnthropicStream_ToolTranscriptOnWire(t *testing.T) {
	t.Parallel()

	mock := &anthropicMock{script: []map[string]any{
		{"type": "message_start", "message": map[string]any{}},
		{"type": "message_stop"},
	}}
	p := newAnthropicTestProvider(t, mock)

	messages := []Message{
		UserMessage("run ls"),
		{Role: RoleAssistant, Parts: []Part{
			TextPart("Running it now."),
			ToolUsePart("tu_1", ToolBashExecute, map[string]any{"command": "ls"}),
		}},
		{Role: RoleTool, Parts: []Part{ToolResultPart("tu_1", "file.txt")}},
	}
	var rec chunkRecorder
	if err := p.GenerateStream(context.Background(), messages, BuiltinTools(), rec.add); err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}

	wireMessages, _ := mock.request()["messages"].([]any)
	if len(wireMessages) != 3 {
		t.Fatalf("message count=%d, want 3", len(wireMessages))
	}

	assistant, _ := wireMessages[1].(map[string]any)
	if got := assistant["role"]; got != "assistant" {
		t.Fatalf("second message role=%v, want assistant", got)
	}
	blocks, _ := assistant["content"].([]any)
	if len(blocks) != 2 {
		t.Fatalf("assistant block count=%d, want 2", len(blocks))
	}
	toolUse, _ := blocks[1].(map[string]any)
	if toolUse["type"] != "tool_use" || toolUse["id"] != "tu_1" || toolUse["name"] != ToolBashExecute {
		t.Fatalf("assistant tool block=%v, want tool_use tu_1 bash_execute", toolUse)
	}

	result, _ := wireMessages[2].(map[string]any)
	if got := result["role"]; got != "user" {
		t.Fatalf("tool result role=%v, want user", got)
	}
	resultBlocks, _ := result["content"].([]any)
	if len(resultBlocks) != 1 {
		t.Fatalf("tool result block count=%d, want 1", len(resultBlocks))
	}
	resultBlock, _ := resultBlocks[0].(map[string]any)
	if resultBlock["type"] != "tool_result" || resultBlock["tool_use_id"] != "tu_1" {
		t.Fatalf("tool result block=%v, want tool_result for tu_1", resultBlock)
	}
}

func TestAnthropicStream_EmptyTranscriptPadded(t *testing.T) {
	t.Parallel()

	mock := &anthropicMock{script: []map[string]any{
		{"type": "message_start", "message": map[string]any{}},
		{"type": "message_stop"},
	}}
	p := newAnthropicTestProvider(t, mock)

	var rec chunkRecorder
	if err := p.GenerateStream(context.Background(), nil, nil, rec.add); err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}

	wireMessages, _ := mock.request()["messages"].([]any)
	if len(wireMessages) != 1 {
		t.Fatalf("message count=%d, want 1 pad message", len(wireMessages))
	}
	pad, _ := wireMessages[0].(map[string]any)
	if got := pad["role"]; got != "user" {
		t.Fatalf("pad role=%v, want user", got)
	}
	blocks, _ := pad["content"].([]any)
	if len(blocks) != 1 {
		t.Fatalf("pad block count=%d, want 1", len(blocks))
	}
	block, _ := blocks[0].(map[string]any)
	if got := block["text"]; got != "Continue." {
		t.Fatalf("pad text=%q, want %q", got, "Continue.")
	}
}

func TestAnthropicGenerate_AuthErrorClassified(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	p := newAnthropicProvider(Credentials{APIKey: "sk-ant-bad", BaseURL: srv.URL})
	_, err := p.Generate(context.Background(), []Message{UserMessage("hi")})
	if err == nil {
		t.Fatalf("Generate succeeded, want auth error")
	}
	if kind := AsProviderError(err).Kind; kind != ErrKindAuth {
		t.Fatalf("error kind=%q, want %q (err=%v)", kind, ErrKindAuth, err)
	}
}

func TestAnthropicConfigured_RequiresToken(t *testing.T) {
	t.Parallel()

	if newAnthropicProvider(Credentials{}).Configured() {
		t.Fatalf("Configured()=true with no credentials")
	}
	if !newAnthropicProvider(Credentials{APIKey: "sk-ant-test"}).Configured() {
		t.Fatalf("Configured()=false with api key set")
	}
	if !newAnthropicProvider(Credentials{AccessToken: "oauth-token"}).Configured() {
		t.Fatalf("Configured()=false with access token set")
	}
}
