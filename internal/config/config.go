// Package config loads chaptertran settings from defaults, an optional
// YAML file, a .env file, CHAPTERTRAN_* environment variables and bound
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/valpere/chaptertran/internal/translator"
)

const (
	EnvPrefix = "CHAPTERTRAN"
	FileName  = "chaptertran"
)

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ChunkingConfig struct {
	Limit      int `mapstructure:"limit"`
	RelayLimit int `mapstructure:"relay_limit"`
}

type OrchestratorConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type RefinerConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`
}

type RelayConfig struct {
	URL       string `mapstructure:"url"`
	Countdown int    `mapstructure:"countdown"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type Config struct {
	DBPath       string                   `mapstructure:"db"`
	Log          LogConfig                `mapstructure:"log"`
	Chunking     ChunkingConfig           `mapstructure:"chunking"`
	Backend      string                   `mapstructure:"backend"`
	Ollama       translator.ServiceConfig `mapstructure:"ollama"`
	OpenRouter   translator.ServiceConfig `mapstructure:"openrouter"`
	OpenAI       translator.ServiceConfig `mapstructure:"openai"`
	Google       translator.ServiceConfig `mapstructure:"google"`
	HTTP         translator.ServiceConfig `mapstructure:"http"`
	Orchestrator OrchestratorConfig       `mapstructure:"orchestrator"`
	Refiner      RefinerConfig            `mapstructure:"refiner"`
	Cache        CacheConfig              `mapstructure:"cache"`
	Relay        RelayConfig              `mapstructure:"relay"`
	Server       ServerConfig             `mapstructure:"server"`
}

// Service returns the settings block for a backend name.
func (c *Config) Service(backend string) (translator.ServiceConfig, error) {
	switch backend {
	case "ollama":
		return c.Ollama, nil
	case "openrouter":
		return c.OpenRouter, nil
	case "openai":
		return c.OpenAI, nil
	case "google":
		return c.Google, nil
	case "http":
		return c.HTTP, nil
	}
	return translator.ServiceConfig{}, fmt.Errorf("unknown backend %q", backend)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "./data/chaptertran.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("chunking.limit", 2500)
	v.SetDefault("chunking.relay_limit", 5000)
	v.SetDefault("backend", "ollama")

	v.SetDefault("ollama.base_url", translator.DefaultOllamaURL)
	v.SetDefault("ollama.model", translator.DefaultOllamaModel)
	v.SetDefault("ollama.temperature", translator.DefaultTemperature)
	v.SetDefault("ollama.top_p", translator.DefaultTopP)
	v.SetDefault("ollama.timeout", 5*time.Minute)

	v.SetDefault("openrouter.base_url", translator.DefaultOpenRouterURL)
	v.SetDefault("openrouter.model", translator.DefaultOpenRouterModel)
	v.SetDefault("openrouter.temperature", translator.DefaultTemperature)
	v.SetDefault("openrouter.timeout", 2*time.Minute)

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", translator.DefaultTemperature)
	v.SetDefault("openai.timeout", 2*time.Minute)

	v.SetDefault("google.timeout", time.Minute)

	v.SetDefault("http.base_url", "http://localhost:3000")
	v.SetDefault("http.timeout", 5*time.Minute)

	v.SetDefault("orchestrator.max_attempts", 1)
	v.SetDefault("orchestrator.retry_delay", 2*time.Second)
	v.SetDefault("orchestrator.timeout", 0)

	v.SetDefault("refiner.enabled", false)
	v.SetDefault("refiner.model", translator.DefaultOllamaModel)
	v.SetDefault("refiner.base_url", translator.DefaultOllamaURL)
	v.SetDefault("refiner.timeout", 2*time.Minute)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.fuzzy_threshold", 0)

	v.SetDefault("relay.url", "https://app.readomni.com")
	v.SetDefault("relay.countdown", 20)

	v.SetDefault("server.addr", ":3000")
}

// New returns a viper instance with defaults and environment bindings in
// place. Commands bind their flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional variable names used by the backends' own tooling.
	_ = v.BindEnv("ollama.model", EnvPrefix+"_OLLAMA_MODEL", "OLLAMA_MODEL")
	_ = v.BindEnv("ollama.base_url", EnvPrefix+"_OLLAMA_BASE_URL", "OLLAMA_HOST")
	_ = v.BindEnv("openrouter.api_key", EnvPrefix+"_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("openai.api_key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("google.credentials", EnvPrefix+"_GOOGLE_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS")

	return v
}

// LoadDotEnv loads variables from path into the process environment
// without overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads configFile (or chaptertran.yaml from the working directory or
// $HOME/.config/chaptertran when empty) into v and decodes the result.
// A missing default file is fine; a missing explicit file is an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}
