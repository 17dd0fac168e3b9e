package provider

import (
	"errors"
	"testing"

	"google.golang.org/genai"
)

func TestBuildGeminiRequest_RoleMergeAndPadding(t *testing.T) {
	t.Parallel()

	messages := []Message{
		AssistantMessage("first"),
		AssistantMessage("second"),
		UserMessage("question"),
		AssistantMessage("answer"),
	}
	contents, _ := buildGeminiRequest(messages)

	wantRoles := []string{"user", "model", "user", "model", "user"}
	if len(contents) != len(wantRoles) {
		t.Fatalf("content count=%d, want %d", len(contents), len(wantRoles))
	}
	for i, want := range wantRoles {
		if contents[i].Role != want {
			t.Fatalf("contents[%d].Role=%q, want %q", i, contents[i].Role, want)
		}
	}

	if got := contents[0].Parts[0].Text; got != "Continue." {
		t.Fatalf("leading pad text=%q, want %q", got, "Continue.")
	}
	if got := contents[len(contents)-1].Parts[0].Text; got != "Continue." {
		t.Fatalf("trailing pad text=%q, want %q", got, "Continue.")
	}
	if got := len(contents[1].Parts); got != 2 {
		t.Fatalf("merged model turn part count=%d, want 2", got)
	}
}

func TestBuildGeminiRequest_SystemBecomesInstruction(t *testing.T) {
	t.Parallel()

	messages := []Message{
		SystemMessage("You are helpful."),
		SystemMessage("Be brief."),
		UserMessage("hi"),
	}
	contents, config := buildGeminiRequest(messages)

	if len(contents) != 1 {
		t.Fatalf("content count=%d, want 1 (system hoisted out)", len(contents))
	}
	if contents[0].Role != "user" {
		t.Fatalf("contents[0].Role=%q, want user", contents[0].Role)
	}
	if config == nil || config.SystemInstruction == nil {
		t.Fatalf("system instruction missing")
	}
	if got := config.SystemInstruction.Parts[0].Text; got != "You are helpful.\n\nBe brief." {
		t.Fatalf("system instruction=%q, want joined prompts", got)
	}
}

func TestBuildGeminiRequest_EmptyTranscriptPadded(t *testing.T) {
	t.Parallel()

	contents, config := buildGeminiRequest(nil)
	if len(contents) != 1 {
		t.Fatalf("content count=%d, want 1 pad turn", len(contents))
	}
	if contents[0].Role != "user" || contents[0].Parts[0].Text != "Continue." {
		t.Fatalf("pad turn=%+v, want user Continue.", contents[0])
	}
	if config != nil {
		t.Fatalf("config=%+v, want nil without system messages", config)
	}
}

func TestGeminiResponseText_ConcatsParts(t *testing.T) {
	t.Parallel()

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{{Text: "Hello "}, {Text: "there"}},
			},
		}},
	}
	if got := geminiResponseText(resp); got != "Hello there" {
		t.Fatalf("geminiResponseText=%q, want %q", got, "Hello there")
	}
	if got := geminiResponseText(nil); got != "" {
		t.Fatalf("geminiResponseText(nil)=%q, want empty", got)
	}
}

func TestGeminiRetryable_RateLimitAndUnavailableOnly(t *testing.T) {
	t.Parallel()

	if !geminiRetryable(&genai.APIError{Code: 429}) {
		t.Fatalf("429 not retryable")
	}
	if !geminiRetryable(&genai.APIError{Code: 503}) {
		t.Fatalf("503 not retryable")
	}
	if geminiRetryable(&genai.APIError{Code: 400}) {
		t.Fatalf("400 retryable, want permanent")
	}
	if geminiRetryable(errors.New("connection refused")) {
		t.Fatalf("plain error retryable, want false")
	}
}

func TestMapGeminiFinishReason(t *testing.T) {
	t.Parallel()

	if got := mapGeminiFinishReason(genai.FinishReasonStop); got != StopReasonEndTurn {
		t.Fatalf("stop=%q, want %q", got, StopReasonEndTurn)
	}
	if got := mapGeminiFinishReason(genai.FinishReasonMaxTokens); got != StopReasonMaxTokens {
		t.Fatalf("max tokens=%q, want %q", got, StopReasonMaxTokens)
	}
	if got := mapGeminiFinishReason(genai.FinishReasonSafety); got != "safety" {
		t.Fatalf("safety=%q, want %q", got, "safety")
	}
}
