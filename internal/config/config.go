package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"writing-assistant/internal/integrations/paramstore"
)

// Config holds the configuration for the writing assistant service.
type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	OpenAI    ProviderConfig
	Anthropic ProviderConfig
	Documents DocumentsConfig

	LogLevel string
	Debug    bool
	// SystemPrompt is a file path or an "ssm:/name" reference. Empty means no system prompt.
	SystemPrompt string
}

type ServerConfig struct {
	Host           string
	Port           int
	StaticDir      string
	AllowedOrigin  string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

type LLMConfig struct {
	DefaultModel string
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

// ProviderConfig configures one completion provider. APIKey may be an "ssm:/name" reference.
type ProviderConfig struct {
	APIKey    string
	BaseURL   string
	MaxTokens int
}

// Enabled reports whether credentials were configured.
func (p ProviderConfig) Enabled() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

// KeyParameter returns the SSM parameter name when APIKey is a reference.
func (p ProviderConfig) KeyParameter() (string, bool) {
	return paramstore.ParseReference(p.APIKey)
}

type DocumentsConfig struct {
	WriteRoot string
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           GetStringEnv("HOST", "127.0.0.1"),
			Port:           GetIntEnv("PORT", 5000),
			StaticDir:      GetStringEnv("STATIC_DIR", "."),
			AllowedOrigin:  GetStringEnv("CORS_ALLOWED_ORIGIN", "*"),
			ReadTimeout:    GetDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   GetDurationEnv("SERVER_WRITE_TIMEOUT", 2*time.Minute),
			MaxBodyBytes:   int64(GetIntEnv("MAX_BODY_BYTES", 16<<20)),
			RequestTimeout: GetDurationEnv("REQUEST_TIMEOUT", 90*time.Second),
		},
		LLM: LLMConfig{
			DefaultModel: GetStringEnv("DEFAULT_MODEL", "gpt-3.5-turbo"),
			RetryMax:     GetIntEnv("LLM_RETRY_MAX", 2),
			RetryWaitMin: GetDurationEnv("LLM_RETRY_WAIT_MIN", 1*time.Second),
			RetryWaitMax: GetDurationEnv("LLM_RETRY_WAIT_MAX", 5*time.Second),
			Timeout:      GetDurationEnv("LLM_TIMEOUT", 60*time.Second),
		},
		OpenAI: ProviderConfig{
			APIKey:  GetStringEnv("OPENAI_API_KEY", ""),
			BaseURL: GetStringEnv("OPENAI_BASE_URL", ""),
		},
		Anthropic: ProviderConfig{
			APIKey:    GetStringEnv("ANTHROPIC_API_KEY", ""),
			BaseURL:   GetStringEnv("ANTHROPIC_BASE_URL", ""),
			MaxTokens: GetIntEnv("ANTHROPIC_MAX_TOKENS", 4096),
		},
		Documents: DocumentsConfig{
			WriteRoot: GetStringEnv("WRITE_ROOT", "./documents"),
		},
		LogLevel:     GetStringEnv("LOG_LEVEL", "info"),
		Debug:        GetBoolEnv("DEBUG", false),
		SystemPrompt: GetStringEnv("SYSTEM_PROMPT", ""),
	}
}

// LoadDotEnv reads KEY=VALUE pairs from path into the environment.
// Variables already set win, and a missing file is not an error.
func LoadDotEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings every entry point depends on.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	if strings.TrimSpace(c.LLM.DefaultModel) == "" {
		return errors.New("config: default model must not be empty")
	}
	if !c.OpenAI.Enabled() && !c.Anthropic.Enabled() {
		return errors.New("config: no completion provider configured (set OPENAI_API_KEY or ANTHROPIC_API_KEY)")
	}
	if strings.TrimSpace(c.Documents.WriteRoot) == "" {
		return errors.New("config: write root must not be empty")
	}
	return nil
}

// NeedsParamStore reports whether any setting references SSM.
func (c *Config) NeedsParamStore() bool {
	if _, ok := paramstore.ParseReference(c.SystemPrompt); ok {
		return true
	}
	if _, ok := c.OpenAI.KeyParameter(); ok {
		return true
	}
	_, ok := c.Anthropic.KeyParameter()
	return ok
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
