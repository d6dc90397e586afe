package config

// Supported providers.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// DefaultModel is the Gemini model used for chat, grading and reports.
const DefaultModel = "gemini-2.0-flash"

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{ProviderGemini, ProviderOpenAI, ProviderAnthropic}

// LLMConfig configures the remote chat service.
type LLMConfig struct {
	Provider    string `yaml:"provider"` // gemini, openai, anthropic
	APIKey      string `yaml:"api_key"`
	APIKeyFile  string `yaml:"api_key_file"`
	Model       string `yaml:"model"`
	GraderModel string `yaml:"grader_model"`
	BaseURL     string `yaml:"base_url"`
	Timeout     string `yaml:"timeout"`
}

// IsValidProvider reports whether name is a supported provider.
func IsValidProvider(name string) bool {
	for _, p := range ValidProviders {
		if p == name {
			return true
		}
	}
	return false
}

// ChatModel returns the model to request from the configured provider.
// The Gemini default is not forwarded to other providers, which then use
// their own default.
func (l LLMConfig) ChatModel() string {
	if l.Provider != ProviderGemini && l.Provider != "" && l.Model == DefaultModel {
		return ""
	}
	return l.Model
}
