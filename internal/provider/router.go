package provider

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// Canonical provider names accepted in preference lists.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderLocal     = "local"
)

// Default models used when a provider slot has no model configured.
const (
	defaultAnthropicModel = "claude-3-5-sonnet-20241022"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultGeminiModel    = "gemini-1.5-flash"
	defaultLocalModel     = "llama3.2:3b"
)

// DefaultModel returns the fallback model for a provider name, or "" for an
// unknown provider.
func DefaultModel(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderAnthropic:
		return defaultAnthropicModel
	case ProviderOpenAI:
		return defaultOpenAIModel
	case ProviderGemini:
		return defaultGeminiModel
	case ProviderLocal, "ollama":
		return defaultLocalModel
	default:
		return ""
	}
}

// DefaultPreference is the provider order seeded into fresh settings:
// hosted providers first, local Ollama as the fallback.
func DefaultPreference() []string {
	return []string{ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderLocal}
}

// ErrNoProvider is returned when no provider in the preference order has
// credentials. The message is shown to the user verbatim.
var ErrNoProvider = NewError(ErrKindAuth, "No AI providers are configured. Add an API key in Settings.", nil)

// Credentials configure one hosted provider slot. APIKey wins over
// AccessToken when both are set.
type Credentials struct {
	APIKey      string
	AccessToken string
	Model       string
	BaseURL     string
}

func (c Credentials) token() string {
	if key := strings.TrimSpace(c.APIKey); key != "" {
		return key
	}
	return strings.TrimSpace(c.AccessToken)
}

func (c Credentials) model(fallback string) string {
	if m := strings.TrimSpace(c.Model); m != "" {
		return m
	}
	return fallback
}

// LocalConfig configures the Ollama adapter. The local provider needs no
// credentials; a reachable daemon is the only requirement.
type LocalConfig struct {
	BaseURL string
	Model   string
}

// RouterOptions carry everything needed to build the provider chain.
type RouterOptions struct {
	// Preference is the ordered list of provider names to try. An empty
	// list builds an empty chain and every request fails with
	// ErrNoProvider; defaults belong to the settings layer.
	Preference []string

	Anthropic Credentials
	OpenAI    Credentials
	Gemini    Credentials
	Local     LocalConfig

	// HTTPClient is used by adapters that speak raw HTTP (the local
	// provider). Nil means a client with sane defaults.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Router dispatches generation requests to the first configured provider in
// a fixed preference order. There is no mid-conversation fallback: if the
// chosen provider fails, the error surfaces to the caller.
type Router struct {
	providers []Provider
	logger    *slog.Logger
}

// NewRouter builds the provider chain. Unknown names in the preference list
// are skipped with a warning; duplicates keep their first position.
func NewRouter(opts RouterOptions) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	seen := make(map[string]bool, len(opts.Preference))
	providers := make([]Provider, 0, len(opts.Preference))
	for _, name := range opts.Preference {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		switch name {
		case ProviderAnthropic:
			providers = append(providers, newAnthropicProvider(opts.Anthropic))
		case ProviderOpenAI:
			providers = append(providers, newOpenAIProvider(opts.OpenAI))
		case ProviderGemini:
			providers = append(providers, newGeminiProvider(opts.Gemini))
		case ProviderLocal, "ollama":
			providers = append(providers, newLocalProvider(opts.Local, opts.HTTPClient))
		default:
			logger.Warn("unknown provider in preference order", "provider", name)
		}
	}
	return &Router{providers: providers, logger: logger}
}

// ActiveProvider returns the first configured provider, or ErrNoProvider.
// The selection is re-evaluated on every call so credential changes take
// effect without rebuilding the router.
func (r *Router) ActiveProvider() (Provider, error) {
	for _, p := range r.providers {
		if p.Configured() {
			return p, nil
		}
	}
	return nil, ErrNoProvider
}

// Generate runs a non-streaming completion on the active provider.
func (r *Router) Generate(ctx context.Context, messages []Message) (string, error) {
	p, err := r.ActiveProvider()
	if err != nil {
		return "", err
	}
	r.logger.Debug("dispatching generate", "provider", p.Name())
	return p.Generate(ctx, messages)
}

// GenerateStream runs a streaming completion on the active provider. Tool
// definitions are forwarded as-is; adapters without a structured tool
// protocol ignore them.
func (r *Router) GenerateStream(ctx context.Context, messages []Message, tools []ToolDef, onChunk func(StreamChunk)) error {
	p, err := r.ActiveProvider()
	if err != nil {
		return err
	}
	r.logger.Debug("dispatching stream", "provider", p.Name(), "tools", len(tools))
	return p.GenerateStream(ctx, messages, tools, onChunk)
}
