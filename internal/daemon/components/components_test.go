package components

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/harunnryd/polaris/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSessionStoreComponentLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	comp := NewSessionStoreComponent(&config.SessionsConfig{TTL: "1h", Capacity: 10, SweepSchedule: "@every 1m"})
	assert.Empty(t, comp.Dependencies())

	health, err := comp.Health(context.Background())
	require.NoError(t, err)
	assert.False(t, health.Healthy)

	require.NoError(t, comp.Init(context.Background()))
	require.NotNil(t, comp.Store())
	require.NoError(t, comp.Start(context.Background()))

	health, _ = comp.Health(context.Background())
	assert.True(t, health.Healthy)

	require.NoError(t, comp.Stop(context.Background()))
	require.NoError(t, comp.Stop(context.Background()))
}

func TestSessionStoreComponentRejectsBadSchedule(t *testing.T) {
	comp := NewSessionStoreComponent(&config.SessionsConfig{SweepSchedule: "every now and then"})
	assert.Error(t, comp.Init(context.Background()))
	assert.Error(t, comp.Start(context.Background()))
}

func TestActivityLogComponent(t *testing.T) {
	disabled := NewActivityLogComponent(&config.ActivityConfig{Enabled: false})
	require.NoError(t, disabled.Init(context.Background()))
	assert.Nil(t, disabled.Log())

	path := filepath.Join(t.TempDir(), "feed", "activity.json")
	enabled := NewActivityLogComponent(&config.ActivityConfig{Enabled: true, Path: path})
	require.NoError(t, enabled.Init(context.Background()))
	require.NotNil(t, enabled.Log())
	assert.Equal(t, path, enabled.Log().Path())
	assert.FileExists(t, path)
}

func newChatStack(t *testing.T, cfg *config.Config) (*SessionStoreComponent, *ActivityLogComponent, *ChatComponent) {
	t.Helper()
	sessions := NewSessionStoreComponent(&cfg.Sessions)
	activityLog := NewActivityLogComponent(&cfg.Activity)
	chatComp := NewChatComponent(cfg, sessions, activityLog)

	require.NoError(t, sessions.Init(context.Background()))
	require.NoError(t, activityLog.Init(context.Background()))
	require.NoError(t, chatComp.Init(context.Background()))
	return sessions, activityLog, chatComp
}

func TestChatComponentHealthReflectsCredentials(t *testing.T) {
	cfg := &config.Config{LLM: config.LLMConfig{Provider: config.ProviderOpenAI}}
	_, _, chatComp := newChatStack(t, cfg)

	assert.Equal(t, []string{"SessionStore", "ActivityLog"}, chatComp.Dependencies())
	assert.NotNil(t, chatComp.Service())
	assert.Len(t, chatComp.Runner().Definitions(), 6)

	health, err := chatComp.Health(context.Background())
	require.NoError(t, err)
	assert.False(t, health.Healthy)
	assert.EqualError(t, health.Error, "Missing OPENAI_API_KEY.")

	cfg.LLM.APIKey = "sk-test"
	cfg.CMS = config.CMSConfig{APIKey: "blt", ManagementToken: "cs", Region: "eu"}
	health, _ = chatComp.Health(context.Background())
	assert.True(t, health.Healthy)
}

func TestChatComponentRequiresSessionStore(t *testing.T) {
	cfg := &config.Config{}
	chatComp := NewChatComponent(cfg, NewSessionStoreComponent(&cfg.Sessions), NewActivityLogComponent(&cfg.Activity))
	assert.Error(t, chatComp.Init(context.Background()))
}

func TestHTTPServerComponentServesHealthAndRoutes(t *testing.T) {
	cfg := &config.Config{LLM: config.LLMConfig{Provider: config.ProviderOpenAI}}
	sessions, activityLog, chatComp := newChatStack(t, cfg)

	comp := NewHTTPServerComponent(nil, &config.ServerConfig{Port: 0}, chatComp, sessions, activityLog)
	assert.Equal(t, []string{"Chat", "SessionStore", "ActivityLog"}, comp.Dependencies())
	require.NoError(t, comp.Init(context.Background()))
	require.NoError(t, comp.Start(context.Background()))
	defer comp.Stop(context.Background())

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	base := "http://" + comp.Addr()

	resp, err := client.Get(base + "/health")
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, Version, body["version"])

	resp, err = client.Get(base + "/api/polaris/tools")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Activity is disabled in this config.
	resp, err = client.Get(base + "/api/polaris/activity")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = client.Post(base+"/api/polaris", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	health, _ := comp.Health(context.Background())
	assert.True(t, health.Healthy)
}

func TestHTTPServerComponentRejectsBadTimeout(t *testing.T) {
	cfg := &config.Config{LLM: config.LLMConfig{Provider: config.ProviderOpenAI}}
	sessions, activityLog, chatComp := newChatStack(t, cfg)

	comp := NewHTTPServerComponent(nil, &config.ServerConfig{ReadTimeout: "soon"}, chatComp, sessions, activityLog)
	assert.Error(t, comp.Init(context.Background()))
	assert.Error(t, comp.Start(context.Background()))
}
