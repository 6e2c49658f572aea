// Package config loads Agent Forge's root configuration document via
// github.com/spf13/viper, layering programmatic defaults, a YAML file and
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/agentforge/agentforge/internal/model"
)

// ServerConfig is the HTTP/control-plane listener.
type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	SecretKey string `mapstructure:"secret_key"`
}

// SummaryConfig configures the optional LLM activity summarizer.
type SummaryConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	TimeoutSeconds float64 `mapstructure:"timeout_seconds"`
}

// ResponseRelayConfig configures the LLM-assisted response extractor.
type ResponseRelayConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	Model             string  `mapstructure:"model"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	TimeoutSeconds    float64 `mapstructure:"timeout_seconds"`
	FallbackToSummary bool    `mapstructure:"fallback_to_summary"` // declared, intentionally unbound
}

// MetricsConfig configures the periodic system/agent metrics collector.
type MetricsConfig struct {
	Enabled                bool    `mapstructure:"enabled"`
	CollectIntervalSeconds float64 `mapstructure:"collect_interval_seconds"`
	EnableGPU              bool    `mapstructure:"enable_gpu"`
	EnablePerAgent         bool    `mapstructure:"enable_per_agent"`
}

// DefaultsConfig holds the server-wide defaults every project may override.
type DefaultsConfig struct {
	MaxAgentsPerProject int                 `mapstructure:"max_agents_per_project"`
	ClaudeCommand       string              `mapstructure:"claude_command"`
	ClaudeEnv           map[string]string   `mapstructure:"claude_env"`
	PollIntervalSeconds float64             `mapstructure:"poll_interval_seconds"`
	AgentInstructions   string              `mapstructure:"agent_instructions"`
	Summary             SummaryConfig       `mapstructure:"summary"`
	ResponseRelay       ResponseRelayConfig `mapstructure:"response_relay"`
	Metrics             MetricsConfig       `mapstructure:"metrics"`
}

// ProjectConfig is one entry of the projects map.
type ProjectConfig struct {
	Path              string                 `mapstructure:"path"`
	DefaultBranch     string                 `mapstructure:"default_branch"`
	MaxAgents         int                    `mapstructure:"max_agents"`
	Description       string                 `mapstructure:"description"`
	AgentInstructions string                 `mapstructure:"agent_instructions"`
	ContextFiles      []string               `mapstructure:"context_files"`
	Channels          []model.ChannelBinding `mapstructure:"channels"`
}

// ProfileConfig is one entry of the profiles map.
type ProfileConfig struct {
	Description   string                    `mapstructure:"description"`
	SystemPrompt  string                    `mapstructure:"system_prompt"`
	Instructions  string                    `mapstructure:"instructions"`
	StartSequence []model.StartSequenceStep `mapstructure:"start_sequence"`
}

// Config is the full root document.
type Config struct {
	Server     ServerConfig                     `mapstructure:"server"`
	Defaults   DefaultsConfig                   `mapstructure:"defaults"`
	Connectors map[string]model.ConnectorConfig `mapstructure:"connectors"`
	Profiles   map[string]ProfileConfig         `mapstructure:"profiles"`
	Projects   map[string]ProjectConfig         `mapstructure:"projects"`

	path string // config file path, retained for Reload (grounded on ProjectRegistry.reload)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8420)

	v.SetDefault("defaults.max_agents_per_project", 4)
	v.SetDefault("defaults.claude_command", "claude")
	v.SetDefault("defaults.poll_interval_seconds", 5.0)

	v.SetDefault("defaults.summary.enabled", false)
	v.SetDefault("defaults.summary.model", "gpt-4o-mini")
	v.SetDefault("defaults.summary.max_tokens", 200)
	v.SetDefault("defaults.summary.timeout_seconds", 10.0)

	v.SetDefault("defaults.response_relay.enabled", false)
	v.SetDefault("defaults.response_relay.model", "gpt-4o-mini")
	v.SetDefault("defaults.response_relay.max_tokens", 800)
	v.SetDefault("defaults.response_relay.timeout_seconds", 15.0)

	v.SetDefault("defaults.metrics.enabled", true)
	v.SetDefault("defaults.metrics.collect_interval_seconds", 5.0)
}

// Load reads configuration from the default locations (./config.yaml,
// /etc/agentforge/config.yaml) plus AGENTFORGE_-prefixed environment
// overrides.
func Load() (*Config, error) { return LoadWithPath("") }

// LoadWithPath reads configuration from an explicit directory, falling back
// to the default search path when empty.
func LoadWithPath(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AGENTFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("connectors.telegram.credentials.bot_token", "AGENTFORGE_TELEGRAM_TOKEN")
	_ = v.BindEnv("defaults.summary.api_key", "AGENTFORGE_LLM_API_KEY")
	_ = v.BindEnv("defaults.response_relay.api_key", "AGENTFORGE_LLM_API_KEY")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/agentforge/")

	var configFile string
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		configFile = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.path = configFile

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	cfg.validateProjectPaths()

	return &cfg, nil
}

// validate checks structurally-required fields; it never fails the process
// over a missing optional project path (that is a per-project warning, not
// a load-time error, per the original ProjectRegistry behavior).
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Defaults.MaxAgentsPerProject <= 0 {
		return fmt.Errorf("defaults.max_agents_per_project must be positive")
	}
	return nil
}

// validateProjectPaths logs (does not fail) on projects whose path is
// missing or not a git repository; the project stays in the loaded
// document and the load still succeeds.
func (c *Config) validateProjectPaths() {
	for name, p := range c.Projects {
		info, err := os.Stat(p.Path)
		if err != nil || !info.IsDir() {
			fmt.Fprintf(os.Stderr, "config: project %q path does not exist: %s\n", name, p.Path)
			continue
		}
		if _, err := os.Stat(filepath.Join(p.Path, ".git")); err != nil {
			fmt.Fprintf(os.Stderr, "config: project %q is not a git repo: %s\n", name, p.Path)
		}
	}
}

// Reload re-reads the config file this Config was loaded from, returning a
// fresh Config. Callers swap their held pointer atomically.
func (c *Config) Reload() (*Config, error) {
	if c.path == "" {
		return LoadWithPath("")
	}
	return LoadWithPath(filepath.Dir(c.path))
}

// Project looks up a project by name.
func (c *Config) Project(name string) (ProjectConfig, bool) {
	p, ok := c.Projects[name]
	return p, ok
}

// Profile looks up a profile by name.
func (c *Config) Profile(name string) (ProfileConfig, bool) {
	p, ok := c.Profiles[name]
	return p, ok
}
