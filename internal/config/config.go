// Package config loads the spindle configuration from YAML files and
// environment variables, with credential indirection so API keys never
// live in config files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/spindlehq/spindle/internal/provider"
	"github.com/spindlehq/spindle/internal/provider/gateway"
	"github.com/spindlehq/spindle/internal/provider/localserver"
)

type Config struct {
	Chat      ChatConfig        `mapstructure:"chat"`
	Cache     CacheConfig       `mapstructure:"cache"`
	History   HistoryConfig     `mapstructure:"history"`
	Tools     ToolsConfig       `mapstructure:"tools"`
	Log       LogConfig         `mapstructure:"log"`
	Tracing   TracingConfig     `mapstructure:"tracing"`
	Providers []provider.Config `mapstructure:"providers"`
}

type ChatConfig struct {
	Model        string `mapstructure:"model"`
	Provider     string `mapstructure:"provider"` // pin by name; empty = strategy
	Strategy     string `mapstructure:"strategy"`
	SystemPrompt string `mapstructure:"system_prompt"`
	// MaxToolRounds bounds assistant/tool round-trips per user turn.
	MaxToolRounds int `mapstructure:"max_tool_rounds"`
}

type CacheConfig struct {
	Backend  string `mapstructure:"backend"` // memory, redis
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type ToolsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Workdir string `mapstructure:"workdir"`
	// AutoApprove skips the confirmation prompt for cautious tools.
	// Dangerous tools always prompt.
	AutoApprove bool `mapstructure:"auto_approve"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from spindle.yaml and the environment.
// Search order: current directory, then ~/.config/spindle. A missing
// config file is fine; defaults and environment carry the day.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("spindle")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "spindle"))
	}

	v.SetDefault("chat.strategy", "first-available")
	v.SetDefault("chat.max_tool_rounds", 8)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", defaultHistoryPath())
	v.SetDefault("tools.enabled", true)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("tracing.path", "spindle-trace.json")

	v.SetEnvPrefix("SPINDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	resolveKeys(cfg.Providers)

	if len(cfg.Providers) == 0 {
		cfg.Providers = defaultProviders()
	}
	return &cfg, nil
}

// resolveKeys expands "ENV:VAR" credential references from the process
// environment, so config files can be committed without secrets.
func resolveKeys(providers []provider.Config) {
	for i, p := range providers {
		if strings.HasPrefix(p.Auth.APIKey, "ENV:") {
			envVar := strings.TrimPrefix(p.Auth.APIKey, "ENV:")
			providers[i].Auth.APIKey = os.Getenv(envVar)
		}
	}
}

// defaultProviders builds a zero-config setup: the local server is always
// tried, and the gateway joins in when OPENROUTER_API_KEY is set.
func defaultProviders() []provider.Config {
	out := []provider.Config{
		{
			Name:     "local",
			Kind:     provider.KindLocal,
			Priority: 1,
			Enabled:  true,
			Endpoint: localserver.DefaultEndpoint,
		},
	}

	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		out = append(out, provider.Config{
			Name:     "openrouter",
			Kind:     provider.KindGateway,
			Priority: 2,
			Enabled:  true,
			Endpoint: gateway.DefaultEndpoint,
			Auth: provider.AuthConfig{
				Kind:   provider.AuthAPIKey,
				APIKey: key,
			},
		})
	}
	return out
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "spindle-history.db"
	}
	return filepath.Join(home, ".local", "share", "spindle", "history.db")
}
