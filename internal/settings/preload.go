package settings

import (
	"os"
	"strings"
)

// disablePreloadEnv opts a machine out of bundled-key seeding.
const disablePreloadEnv = "LH_DISABLE_PRELOAD_OPENAI"

// bundledOpenAIKey is injected with -ldflags for bespoke builds handed to
// specific users. Public builds ship it empty.
var bundledOpenAIKey = ""

// PreloadEnabled reports whether bundled-key seeding is allowed. Setting
// LH_DISABLE_PRELOAD_OPENAI to 1, true, or yes turns it off.
func PreloadEnabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(disablePreloadEnv))) {
	case "1", "true", "yes":
		return false
	}
	return true
}

// PreloadBundledKeys seeds the build-time OpenAI key into the secrets
// store on first run. It does nothing when no key is bundled, seeding is
// disabled, or the user already set their own key.
func PreloadBundledKeys(secrets *SecretsStore) error {
	if bundledOpenAIKey == "" || !PreloadEnabled() || secrets == nil {
		return nil
	}
	has, err := secrets.HasAIProviderAPIKey("openai")
	if err != nil || has {
		return err
	}
	return secrets.SetAIProviderAPIKey("openai", bundledOpenAIKey)
}
