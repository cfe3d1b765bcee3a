// Package config provides configuration types and loading for workpal.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Paths, Model, Providers, SMTP, Gateway.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Model     ModelConfig     `json:"model"`
	Providers ProvidersConfig `json:"providers"`
	SMTP      SMTPConfig      `json:"smtp"`
	Gateway   GatewayConfig   `json:"gateway"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings.
type PathsConfig struct {
	DataDir      string `json:"dataDir" envconfig:"DATA_DIR"`
	DatabasePath string `json:"databasePath" envconfig:"DATABASE_PATH"`
}

// ---------------------------------------------------------------------------
// Model – LLM behaviour
// ---------------------------------------------------------------------------

// ModelConfig groups LLM model settings.
type ModelConfig struct {
	Name        string  `json:"name" envconfig:"MODEL"`
	MaxTokens   int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature float64 `json:"temperature" envconfig:"TEMPERATURE"`
}

// ---------------------------------------------------------------------------
// Providers – LLM API keys & endpoints
// ---------------------------------------------------------------------------

// ProvidersConfig contains LLM provider configurations.
type ProvidersConfig struct {
	// Default selects the active provider: "openrouter" or "gemini".
	Default    string         `json:"default" envconfig:"DEFAULT"`
	OpenRouter ProviderConfig `json:"openrouter"`
	Gemini     ProviderConfig `json:"gemini"`
}

// ProviderConfig contains settings for a single LLM provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// ---------------------------------------------------------------------------
// SMTP – outbound email transport
// ---------------------------------------------------------------------------

// SMTPConfig contains outbound mail settings.
type SMTPConfig struct {
	Host        string        `json:"host" envconfig:"HOST"`
	Port        int           `json:"port" envconfig:"PORT"`
	Username    string        `json:"username" envconfig:"USERNAME"`
	Password    string        `json:"password" envconfig:"PASSWORD"`
	From        string        `json:"from" envconfig:"FROM"`
	MaxAttempts int           `json:"maxAttempts" envconfig:"MAX_ATTEMPTS"`
	SendTimeout time.Duration `json:"sendTimeout" envconfig:"SEND_TIMEOUT"`
}

// ---------------------------------------------------------------------------
// Gateway – HTTP server networking
// ---------------------------------------------------------------------------

// GatewayConfig contains gateway server settings.
type GatewayConfig struct {
	Host      string `json:"host" envconfig:"HOST"`
	Port      int    `json:"port" envconfig:"PORT"`
	AuthToken string `json:"authToken" envconfig:"AUTH_TOKEN"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir:      "~/WorkPal-Data",
			DatabasePath: "~/WorkPal-Data/workpal.db",
		},
		Model: ModelConfig{
			Name:        "openrouter/meta-llama/llama-3.3-70b-instruct",
			MaxTokens:   2048,
			Temperature: 0.2,
		},
		Providers: ProvidersConfig{
			Default: "openrouter",
		},
		SMTP: SMTPConfig{
			Host:        "smtp.gmail.com",
			Port:        465,
			MaxAttempts: 3,
			SendTimeout: 30 * time.Second,
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1", // Secure default
			Port: 18890,
		},
	}
}
