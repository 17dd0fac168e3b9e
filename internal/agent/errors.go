package agent

import (
	"fmt"
	"strings"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/provider"
)

// FriendlyMessage turns a provider failure into the copy the chat shows.
// The raw error text rides along so the UI can offer a collapsible details
// view; stack traces never reach the user.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	pe := provider.AsProviderError(err)
	if pe.Kind == provider.ErrKindCancelled {
		return "Cancelled."
	}

	lower := strings.ToLower(pe.Message)
	switch {
	case pe.Kind == provider.ErrKindAuth,
		strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "invalid api key"),
		strings.Contains(lower, "401"):
		return fmt.Sprintf("I couldn't connect to the AI service - there may be an issue with the API key.\n\nError: %s\n\nCheck your API key in Settings.", pe.Message)
	case strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "429"),
		strings.Contains(lower, "too many requests"):
		return fmt.Sprintf("The AI service is temporarily busy. Please wait a moment and try again.\n\nError: %s", pe.Message)
	case strings.Contains(lower, "connection"),
		strings.Contains(lower, "network"),
		strings.Contains(lower, "timeout"),
		strings.Contains(lower, "dns"),
		strings.Contains(lower, "could not resolve"):
		return fmt.Sprintf("I'm having trouble connecting to the internet. Please check your network connection.\n\nError: %s", pe.Message)
	case strings.Contains(lower, "quota"),
		strings.Contains(lower, "billing"),
		strings.Contains(lower, "insufficient"):
		return fmt.Sprintf("The AI service quota may have been exceeded. Please let the team know!\n\nError: %s", pe.Message)
	default:
		return fmt.Sprintf("Sorry, I ran into an issue. Here's what happened:\n\n%s\n\nIf this keeps happening, try restarting the app or checking your internet connection.", pe.Message)
	}
}
