package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/harunnryd/polaris/internal/pathutil"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server   ServerConfig   `koanf:"server" yaml:"server"`
	LLM      LLMConfig      `koanf:"llm" yaml:"llm"`
	CMS      CMSConfig      `koanf:"cms" yaml:"cms"`
	Chat     ChatConfig     `koanf:"chat" yaml:"chat"`
	Prompts  PromptsConfig  `koanf:"prompts" yaml:"prompts"`
	Sessions SessionsConfig `koanf:"sessions" yaml:"sessions"`
	Activity ActivityConfig `koanf:"activity" yaml:"activity"`
	Daemon   DaemonConfig   `koanf:"daemon" yaml:"daemon"`
}

type ServerConfig struct {
	Port            int    `koanf:"port" yaml:"port"`
	LogLevel        string `koanf:"log_level" yaml:"log_level"`
	ReadTimeout     string `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBodyBytes    int64  `koanf:"max_body_bytes" yaml:"max_body_bytes"`
}

type LLMConfig struct {
	Provider       string  `koanf:"provider" yaml:"provider"`
	Model          string  `koanf:"model" yaml:"model"`
	SummaryModel   string  `koanf:"summary_model" yaml:"summary_model"`
	Temperature    float64 `koanf:"temperature" yaml:"temperature"`
	BaseURL        string  `koanf:"base_url" yaml:"base_url"`
	APIKey         string  `koanf:"api_key" yaml:"api_key"`
	RequestTimeout string  `koanf:"request_timeout" yaml:"request_timeout"`
}

type CMSConfig struct {
	Region          string `koanf:"region" yaml:"region"`
	BaseURL         string `koanf:"base_url" yaml:"base_url"`
	APIKey          string `koanf:"api_key" yaml:"api_key"`
	ManagementToken string `koanf:"management_token" yaml:"management_token"`
	RequestTimeout  string `koanf:"request_timeout" yaml:"request_timeout"`
}

type ChatConfig struct {
	MaxIterations      int    `koanf:"max_iterations" yaml:"max_iterations"`
	MaxConcurrentTurns int    `koanf:"max_concurrent_turns" yaml:"max_concurrent_turns"`
	FallbackReply      string `koanf:"fallback_reply" yaml:"fallback_reply"`
	SummaryEnabled     bool   `koanf:"summary_enabled" yaml:"summary_enabled"`
}

type PromptsConfig struct {
	System  string `koanf:"system" yaml:"system"`
	Summary string `koanf:"summary" yaml:"summary"`
}

type SessionsConfig struct {
	TTL           string `koanf:"ttl" yaml:"ttl"`
	Capacity      int    `koanf:"capacity" yaml:"capacity"`
	SweepSchedule string `koanf:"sweep_schedule" yaml:"sweep_schedule"`
}

type ActivityConfig struct {
	Enabled     bool   `koanf:"enabled" yaml:"enabled"`
	Path        string `koanf:"path" yaml:"path"`
	MaxEntries  int    `koanf:"max_entries" yaml:"max_entries"`
	LockTimeout string `koanf:"lock_timeout" yaml:"lock_timeout"`
	LockRetry   string `koanf:"lock_retry" yaml:"lock_retry"`
}

type DaemonConfig struct {
	ShutdownTimeout        string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	HealthCheckInterval    string `koanf:"health_check_interval" yaml:"health_check_interval"`
	StartupShutdownTimeout string `koanf:"startup_shutdown_timeout" yaml:"startup_shutdown_timeout"`
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

const (
	DefaultServerPort            = 8080
	DefaultServerLogLevel        = "info"
	DefaultServerReadTimeout     = "10s"
	DefaultServerWriteTimeout    = "180s"
	DefaultServerIdleTimeout     = "60s"
	DefaultServerShutdownTimeout = "10s"
	DefaultServerMaxBodyBytes    = 1 << 20
	DefaultLLMProvider           = ProviderOpenAI
	DefaultLLMModel              = "gpt-4o-mini"
	DefaultLLMTemperature        = 0.2
	DefaultLLMRequestTimeout     = "60s"
	DefaultOpenAIBaseURL         = "https://api.openai.com/v1"
	DefaultCMSRequestTimeout     = "30s"
	DefaultChatMaxIterations     = 3
	DefaultChatMaxConcurrent     = 16
	DefaultChatFallbackReply     = "No response."
	DefaultChatSummaryEnabled    = true
	DefaultSystemPrompt          = "You are Polaris, the assistant of a headless CMS admin dashboard. You help editors inspect content types and read, create and update entries through the tools you are given. Always look up the content type schema before creating or updating an entry, and keep entry payloads consistent with it. Never delete, publish or unpublish content; if asked, explain that these actions must be done in the CMS directly. Answer concisely."
	DefaultSummaryPrompt         = "Summarize what the assistant did in this turn for an activity feed. Write 1-2 plain sentences in the past tense. Do not include reasoning, chain-of-thought or raw JSON."
	DefaultSessionsTTL           = "24h"
	DefaultSessionsCapacity      = 1000
	DefaultSessionsSweepSchedule = "@every 1m"
	DefaultActivityEnabled       = true
	DefaultActivityMaxEntries    = 200
	DefaultActivityLockTimeout   = "5s"
	DefaultActivityLockRetry     = "50ms"
	DefaultDaemonShutdownTimeout = "30s"
	DefaultDaemonHealthInterval  = "30s"
	DefaultDaemonStartupShutdown = "10s"
)

// Credential environment variable names.
const (
	EnvOpenAIAPIKey       = "OPENAI_API_KEY"
	EnvAnthropicAPIKey    = "ANTHROPIC_API_KEY"
	EnvGeminiAPIKey       = "GEMINI_API_KEY"
	EnvCMSAPIKey          = "CONTENTSTACK_API_KEY"
	EnvCMSManagementToken = "CONTENTSTACK_MANAGEMENT_TOKEN"
	EnvCMSRegion          = "CONTENTSTACK_REGION"
)

func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":                     DefaultServerPort,
		"server.log_level":                DefaultServerLogLevel,
		"server.read_timeout":             DefaultServerReadTimeout,
		"server.write_timeout":            DefaultServerWriteTimeout,
		"server.idle_timeout":             DefaultServerIdleTimeout,
		"server.shutdown_timeout":         DefaultServerShutdownTimeout,
		"server.max_body_bytes":           DefaultServerMaxBodyBytes,
		"llm.provider":                    DefaultLLMProvider,
		"llm.model":                       DefaultLLMModel,
		"llm.temperature":                 DefaultLLMTemperature,
		"llm.request_timeout":             DefaultLLMRequestTimeout,
		"cms.request_timeout":             DefaultCMSRequestTimeout,
		"chat.max_iterations":             DefaultChatMaxIterations,
		"chat.max_concurrent_turns":       DefaultChatMaxConcurrent,
		"chat.fallback_reply":             DefaultChatFallbackReply,
		"chat.summary_enabled":            DefaultChatSummaryEnabled,
		"prompts.system":                  DefaultSystemPrompt,
		"prompts.summary":                 DefaultSummaryPrompt,
		"sessions.ttl":                    DefaultSessionsTTL,
		"sessions.capacity":               DefaultSessionsCapacity,
		"sessions.sweep_schedule":         DefaultSessionsSweepSchedule,
		"activity.enabled":                DefaultActivityEnabled,
		"activity.path":                   "~/" + pathutil.StateDir + "/activity.json",
		"activity.max_entries":            DefaultActivityMaxEntries,
		"activity.lock_timeout":           DefaultActivityLockTimeout,
		"activity.lock_retry":             DefaultActivityLockRetry,
		"daemon.shutdown_timeout":         DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":    DefaultDaemonHealthInterval,
		"daemon.startup_shutdown_timeout": DefaultDaemonStartupShutdown,
	}
}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	// Hardcoded Defaults
	for key, value := range Defaults() {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		globalPath, err := pathutil.StatePath("config.yaml")
		if err == nil {
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// Environment Variables: POLARIS_CHAT_MAX_ITERATIONS -> chat.max_iterations
	k.Load(env.Provider("POLARIS_", ".", envKey), nil)

	// CLI Flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = DefaultLLMProvider
	}

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	// Post-Process: Inject standard Env Vars if missing
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv(cfg.LLMKeyEnv())
	}
	if cfg.CMS.APIKey == "" {
		cfg.CMS.APIKey = os.Getenv(EnvCMSAPIKey)
	}
	if cfg.CMS.ManagementToken == "" {
		cfg.CMS.ManagementToken = os.Getenv(EnvCMSManagementToken)
	}
	if cfg.CMS.Region == "" {
		cfg.CMS.Region = os.Getenv(EnvCMSRegion)
	}

	return &cfg, nil
}

// envKey maps only the first underscore to a section separator so that
// multi-word keys such as max_iterations survive.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, "POLARIS_"))
	return strings.Replace(key, "_", ".", 1)
}

// LLMKeyEnv names the environment variable holding the selected provider's API key.
func (c *Config) LLMKeyEnv() string {
	switch c.LLM.Provider {
	case ProviderAnthropic:
		return EnvAnthropicAPIKey
	case ProviderGemini:
		return EnvGeminiAPIKey
	default:
		return EnvOpenAIAPIKey
	}
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	activityPath, err := expandConfiguredPath(cfg.Activity.Path)
	if err != nil {
		return err
	}
	if activityPath != "" {
		cfg.Activity.Path = activityPath
	}

	return nil
}

func expandConfiguredPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	expanded, err := pathutil.Expand(trimmed)
	if err != nil {
		return "", err
	}
	return expanded, nil
}
