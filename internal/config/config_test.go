package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	polarisErrors "github.com/harunnryd/polaris/internal/errors"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvOpenAIAPIKey, EnvAnthropicAPIKey, EnvGeminiAPIKey, EnvCMSAPIKey, EnvCMSManagementToken, EnvCMSRegion} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearCredentialEnv(t)

	// We pass nil for cmd to skip flags
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, DefaultLLMModel, cfg.LLM.Model)
	assert.InDelta(t, DefaultLLMTemperature, cfg.LLM.Temperature, 0.0001)
	assert.Equal(t, DefaultChatMaxIterations, cfg.Chat.MaxIterations)
	assert.Equal(t, DefaultChatFallbackReply, cfg.Chat.FallbackReply)
	assert.True(t, cfg.Chat.SummaryEnabled)
	assert.Equal(t, DefaultSystemPrompt, cfg.Prompts.System)
	assert.Equal(t, DefaultSessionsCapacity, cfg.Sessions.Capacity)
	assert.Equal(t, DefaultSessionsSweepSchedule, cfg.Sessions.SweepSchedule)
	assert.True(t, filepath.IsAbs(cfg.Activity.Path))
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoadInjectsStandardCredentialEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearCredentialEnv(t)
	t.Setenv(EnvOpenAIAPIKey, "sk-test")
	t.Setenv(EnvCMSAPIKey, "blt123")
	t.Setenv(EnvCMSManagementToken, "cs-token")
	t.Setenv(EnvCMSRegion, "eu")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "blt123", cfg.CMS.APIKey)
	assert.Equal(t, "cs-token", cfg.CMS.ManagementToken)
	assert.Equal(t, "eu", cfg.CMS.Region)
	assert.NoError(t, ValidateCredentials(cfg.Credentials()))
}

func TestLoadSelectsProviderKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearCredentialEnv(t)
	t.Setenv("POLARIS_LLM_PROVIDER", "Anthropic")
	t.Setenv(EnvOpenAIAPIKey, "sk-openai")
	t.Setenv(EnvAnthropicAPIKey, "sk-ant")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, EnvAnthropicAPIKey, cfg.LLMKeyEnv())
	assert.Equal(t, "sk-ant", cfg.LLM.APIKey)
}

func TestLoadEnvOverridesMultiWordKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearCredentialEnv(t)
	t.Setenv("POLARIS_CHAT_MAX_ITERATIONS", "5")
	t.Setenv("POLARIS_SESSIONS_TTL", "2h")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Chat.MaxIterations)
	assert.Equal(t, "2h", cfg.Sessions.TTL)
}

func TestLoadConfigFileAndFlags(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearCredentialEnv(t)

	path := filepath.Join(home, "polaris.yaml")
	content := "llm:\n  model: gpt-4.1\n  temperature: 0.7\ncms:\n  region: azure-na\nactivity:\n  path: ~/feed.json\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().Int("server.port", DefaultServerPort, "")
	require.NoError(t, cmd.Flags().Set("config", path))
	require.NoError(t, cmd.Flags().Set("server.port", "9090"))

	cfg, err := Load(cmd)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 0.0001)
	assert.Equal(t, "azure-na", cfg.CMS.Region)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, filepath.Join(home, "feed.json"), cfg.Activity.Path)
}

func TestValidateCredentials(t *testing.T) {
	valid := []Credential{
		{Name: EnvOpenAIAPIKey, Value: "sk-test"},
		{Name: EnvCMSAPIKey, Value: "blt123"},
	}
	require.NoError(t, ValidateCredentials(valid))

	t.Run("missing", func(t *testing.T) {
		err := ValidateCredentials([]Credential{{Name: EnvOpenAIAPIKey, Value: "  "}, {Name: EnvCMSAPIKey}})
		require.Error(t, err)
		assert.Equal(t, "Missing OPENAI_API_KEY.", err.Error())
		assert.True(t, errors.Is(err, polarisErrors.ErrConfiguration))
	})

	t.Run("non ascii", func(t *testing.T) {
		err := ValidateCredentials([]Credential{{Name: EnvCMSManagementToken, Value: "cs’token"}})
		require.Error(t, err)
		assert.Equal(t, "CONTENTSTACK_MANAGEMENT_TOKEN contains a non-ASCII character at index 2 (code 8217).", err.Error())
	})

	t.Run("order", func(t *testing.T) {
		err := ValidateCredentials([]Credential{{Name: EnvOpenAIAPIKey, Value: "ok"}, {Name: EnvCMSRegion}})
		require.Error(t, err)
		assert.Equal(t, "Missing CONTENTSTACK_REGION.", err.Error())
	})
}

func TestDurationOrDefault(t *testing.T) {
	d, err := DurationOrDefault("", DefaultSessionsTTL)
	require.NoError(t, err)
	assert.Equal(t, "24h0m0s", d.String())

	_, err = DurationOrDefault("soon", "")
	assert.Error(t, err)
}
