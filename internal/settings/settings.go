// Package settings persists user configuration as settings.json in the OS
// config directory and user-provided secrets in a separate secrets.json.
// The GUI owns fields this module does not declare; they are preserved
// byte-for-byte across load/save cycles.
package settings

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/provider"
)

// OAuthCredentials holds a provider OAuth grant. Optional fields are
// pointers so absent and null survive round-trips unchanged.
type OAuthCredentials struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken *string `json:"refresh_token"`
	ExpiresAt    *int64  `json:"expires_at"`
}

type ProviderAuth struct {
	APIKey *string           `json:"api_key"`
	OAuth  *OAuthCredentials `json:"oauth"`
}

type ModelSettings struct {
	LocalModel         string   `json:"local_model"`
	ProviderPreference []string `json:"provider_preference"`
	OpenAIModel        string   `json:"openai_model"`
	AnthropicModel     string   `json:"anthropic_model"`
	GeminiModel        string   `json:"gemini_model"`

	OpenAIAuth    ProviderAuth `json:"openai_auth"`
	AnthropicAuth ProviderAuth `json:"anthropic_auth"`
	GeminiAuth    ProviderAuth `json:"gemini_auth"`
}

type UserProfile struct {
	Name                      string  `json:"name"`
	MascotImagePath           *string `json:"mascot_image_path"`
	DarkMode                  bool    `json:"dark_mode"`
	OnboardingComplete        bool    `json:"onboarding_complete"`
	TerminalPermissionGranted bool    `json:"terminal_permission_granted"`
}

type BuildSettings struct {
	SpecKitPath          *string `json:"spec_kit_path"`
	DefaultProjectFolder *string `json:"default_project_folder"`
}

// Settings declares the fields the agent core reads. Anything else in
// settings.json belongs to the GUI and is carried through saves untouched.
type Settings struct {
	AllowedDirs            []string      `json:"allowed_dirs"`
	Model                  ModelSettings `json:"model"`
	EnableInternetResearch bool          `json:"enable_internet_research"`
	MaxResults             int           `json:"max_results"`
	UserProfile            UserProfile   `json:"user_profile"`
	Build                  BuildSettings `json:"build"`
	ShareSystemSummary     bool          `json:"share_system_summary"`
}

// Default returns a fresh install's settings: hosted providers first with
// local as the fallback, research and system-summary sharing off.
func Default() Settings {
	return Settings{
		AllowedDirs: []string{},
		Model: ModelSettings{
			LocalModel:         provider.DefaultModel(provider.ProviderLocal),
			ProviderPreference: provider.DefaultPreference(),
			OpenAIModel:        provider.DefaultModel(provider.ProviderOpenAI),
			AnthropicModel:     provider.DefaultModel(provider.ProviderAnthropic),
			GeminiModel:        provider.DefaultModel(provider.ProviderGemini),
		},
		EnableInternetResearch: false,
		MaxResults:             200,
	}
}

// DefaultPath is <user config dir>/little_helper/settings.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "little_helper", "settings.json"), nil
}

// DefaultSecretsPath is <user config dir>/little_helper/secrets.json.
func DefaultSecretsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "little_helper", "secrets.json"), nil
}

// Store loads and saves settings.json, carrying unknown fields across.
type Store struct {
	path string

	mu  sync.Mutex
	raw map[string]json.RawMessage
}

func NewStore(path string) *Store {
	return &Store{path: filepath.Clean(strings.TrimSpace(path))}
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Load reads settings from disk. A missing or unparseable file yields
// defaults with found=false; only real IO failures error.
func (s *Store) Load() (Settings, bool, error) {
	if s == nil || s.path == "" {
		return Default(), false, errors.New("missing settings path")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), false, nil
		}
		return Default(), false, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return Default(), false, nil
	}
	var st Settings
	if err := json.Unmarshal(b, &st); err != nil {
		return Default(), false, nil
	}
	s.raw = raw

	st.normalize()
	return st, true, nil
}

// Save writes settings atomically, layering known fields over whatever
// unknown fields the last Load saw.
func (s *Store) Save(st Settings) error {
	if s == nil || s.path == "" {
		return errors.New("missing settings path")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(&st)
	if err != nil {
		return err
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(b, &known); err != nil {
		return err
	}
	merged := mergeRaw(s.raw, known)

	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	s.raw = merged
	return nil
}

// mergeRaw layers known values over the previously loaded document.
// Objects merge recursively so nested unknown fields survive; every other
// value type is replaced wholesale.
func mergeRaw(old, known map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(old)+len(known))
	for k, v := range old {
		out[k] = v
	}
	for k, v := range known {
		if oldVal, ok := old[k]; ok {
			var oldObj, newObj map[string]json.RawMessage
			if json.Unmarshal(oldVal, &oldObj) == nil && oldObj != nil &&
				json.Unmarshal(v, &newObj) == nil && newObj != nil {
				if b, err := json.Marshal(mergeRaw(oldObj, newObj)); err == nil {
					out[k] = b
					continue
				}
			}
		}
		out[k] = v
	}
	return out
}

// normalize fills fields a hand-edited or older settings.json may lack.
// An explicit empty provider_preference is honored; only an absent one
// gets the default order.
func (st *Settings) normalize() {
	if st.AllowedDirs == nil {
		st.AllowedDirs = []string{}
	}
	if st.Model.ProviderPreference == nil {
		st.Model.ProviderPreference = provider.DefaultPreference()
	}
	if strings.TrimSpace(st.Model.LocalModel) == "" {
		st.Model.LocalModel = provider.DefaultModel(provider.ProviderLocal)
	}
	if strings.TrimSpace(st.Model.OpenAIModel) == "" {
		st.Model.OpenAIModel = provider.DefaultModel(provider.ProviderOpenAI)
	}
	if strings.TrimSpace(st.Model.AnthropicModel) == "" {
		st.Model.AnthropicModel = provider.DefaultModel(provider.ProviderAnthropic)
	}
	if strings.TrimSpace(st.Model.GeminiModel) == "" {
		st.Model.GeminiModel = provider.DefaultModel(provider.ProviderGemini)
	}
	if st.MaxResults <= 0 {
		st.MaxResults = 200
	}
}

// EnsureAllowedDirs backfills the home directory when no allowed
// directories are configured, so a fresh install can do useful work.
func (st *Settings) EnsureAllowedDirs() {
	if len(st.AllowedDirs) > 0 {
		return
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		st.AllowedDirs = append(st.AllowedDirs, home)
	}
}
