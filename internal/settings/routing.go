package settings

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/provider"
)

// RouterOptions assembles the provider chain config from these settings.
// Keys in the secrets store win over auth blocks embedded in settings.json,
// so a key typed into the app overrides whatever an installer seeded.
func (st Settings) RouterOptions(secrets *SecretsStore, httpClient *http.Client, logger *slog.Logger) provider.RouterOptions {
	return provider.RouterOptions{
		Preference: st.Model.ProviderPreference,
		Anthropic:  credentialsFor(provider.ProviderAnthropic, st.Model.AnthropicAuth, st.Model.AnthropicModel, secrets),
		OpenAI:     credentialsFor(provider.ProviderOpenAI, st.Model.OpenAIAuth, st.Model.OpenAIModel, secrets),
		Gemini:     credentialsFor(provider.ProviderGemini, st.Model.GeminiAuth, st.Model.GeminiModel, secrets),
		Local: provider.LocalConfig{
			Model: st.Model.LocalModel,
		},
		HTTPClient: httpClient,
		Logger:     logger,
	}
}

func credentialsFor(providerID string, auth ProviderAuth, model string, secrets *SecretsStore) provider.Credentials {
	creds := provider.Credentials{Model: model}
	if auth.APIKey != nil {
		creds.APIKey = strings.TrimSpace(*auth.APIKey)
	}
	if auth.OAuth != nil {
		creds.AccessToken = strings.TrimSpace(auth.OAuth.AccessToken)
	}
	if secrets != nil {
		if key, ok, err := secrets.GetAIProviderAPIKey(providerID); err == nil && ok {
			creds.APIKey = key
		}
	}
	return creds
}
