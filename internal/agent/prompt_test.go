package agent

import (
	"strings"
	"testing"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/skill"
)

func TestSystemPromptPersonaPerMode(t *testing.T) {
	t.Parallel()
	names := map[skill.Mode]string{
		skill.ModeFind:     "Scout",
		skill.ModeFix:      "Doc",
		skill.ModeResearch: "Scholar",
		skill.ModeData:     "Analyst",
		skill.ModeContent:  "Muse",
		skill.ModeBuild:    "Maker",
	}
	for mode, name := range names {
		got := SystemPrompt(PromptConfig{Mode: mode, AllowTerminal: true, AllowWeb: true})
		if !strings.Contains(got, "You are "+name+",") {
			t.Fatalf("mode %s: persona %q missing", mode, name)
		}
	}
}

func TestSystemPromptReflectsToggles(t *testing.T) {
	t.Parallel()
	on := SystemPrompt(PromptConfig{Mode: skill.ModeFind, AllowTerminal: true, AllowWeb: true})
	if !strings.Contains(on, "<command>...</command>") || !strings.Contains(on, "<search>...</search>") {
		t.Fatal("enabled toggles missing from prompt")
	}

	off := SystemPrompt(PromptConfig{Mode: skill.ModeFind})
	if !strings.Contains(off, "Terminal access is DISABLED") {
		t.Fatal("disabled terminal notice missing")
	}
	if strings.Contains(off, "<search>...</search> tags") {
		t.Fatal("search capability advertised while web is disabled")
	}
}

func TestSystemPromptNamesAllowedDirs(t *testing.T) {
	t.Parallel()
	got := SystemPrompt(PromptConfig{
		Mode:        skill.ModeFind,
		AllowedDirs: []string{"/home/u/docs", "/home/u/projects"},
	})
	if !strings.Contains(got, "/home/u/docs, /home/u/projects") {
		t.Fatal("allowed dirs missing from prompt")
	}
}

func TestSystemPromptOptionalSections(t *testing.T) {
	t.Parallel()
	bare := SystemPrompt(PromptConfig{Mode: skill.ModeFix})
	if strings.Contains(bare, "## User Context") || strings.Contains(bare, "## System Snapshot") {
		t.Fatal("optional sections rendered without content")
	}

	full := SystemPrompt(PromptConfig{Mode: skill.ModeFix, UserName: "Robin", SystemSummary: "OS: linux"})
	if !strings.Contains(full, "User's name: Robin") || !strings.Contains(full, "OS: linux") {
		t.Fatal("optional sections missing when configured")
	}
}

func TestSystemPromptUnknownModeFallsBack(t *testing.T) {
	t.Parallel()
	got := SystemPrompt(PromptConfig{Mode: skill.Mode("mystery")})
	if !strings.Contains(got, "Scout") {
		t.Fatal("unknown mode did not fall back to the Find persona")
	}
}
