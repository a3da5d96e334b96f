package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/polaris/internal/activity"
	"github.com/harunnryd/polaris/internal/chat"
	"github.com/harunnryd/polaris/internal/config"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRemoteTurn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/polaris", r.URL.Path)
		var req chat.Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		if strings.TrimSpace(req.Message) == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Message is required."}`))
			return
		}
		_ = json.NewEncoder(w).Encode(chat.Response{SessionID: req.SessionID, Reply: "echo: " + req.Message, ToolsUsed: []string{}})
	}))
	defer server.Close()

	resp, err := runRemoteTurn(context.Background(), server.URL+"/", chat.Request{SessionID: "tab-1", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "tab-1", resp.SessionID)
	assert.Equal(t, "echo: hi", resp.Reply)

	_, err = runRemoteTurn(context.Background(), server.URL, chat.Request{Message: " "})
	require.Error(t, err)
	assert.Equal(t, "Message is required.", err.Error())
}

func TestRunRemoteTurnNonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := runRemoteTurn(context.Background(), server.URL, chat.Request{Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server returned 502")
}

func TestRunLocalTurn(t *testing.T) {
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Tools []interface{} `json:"tools"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		content := "Hi there."
		if len(body.Tools) == 0 {
			content = "Greeted the editor."
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"` + content + `"}}]}`))
	}))
	defer llm.Close()

	activityPath := filepath.Join(t.TempDir(), "activity.json")
	c := &config.Config{
		LLM:      config.LLMConfig{Provider: config.ProviderOpenAI, Model: "gpt-4o-mini", BaseURL: llm.URL, APIKey: "sk-test", RequestTimeout: "5s"},
		CMS:      config.CMSConfig{Region: "na", APIKey: "blt", ManagementToken: "cs"},
		Chat:     config.ChatConfig{SummaryEnabled: true},
		Activity: config.ActivityConfig{Enabled: true, Path: activityPath},
	}

	resp, err := runLocalTurn(context.Background(), c, chat.Request{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Hi there.", resp.Reply)
	assert.Equal(t, "Greeted the editor.", resp.Summary)

	log, err := activity.NewLog(c.Activity)
	require.NoError(t, err)
	entries, err := log.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, resp.SessionID, entries[0].SessionID)
}

func TestRunLocalTurnMissingCredential(t *testing.T) {
	c := &config.Config{
		LLM: config.LLMConfig{Provider: config.ProviderOpenAI, BaseURL: "http://127.0.0.1:1"},
		CMS: config.CMSConfig{Region: "na", APIKey: "blt", ManagementToken: "cs"},
	}

	_, err := runLocalTurn(context.Background(), c, chat.Request{Message: "hello"})
	require.Error(t, err)
	assert.Equal(t, "Missing OPENAI_API_KEY.", err.Error())
}

func TestToolsCommandListsRegistry(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Bool("json", true, "")
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, toolsCmd.RunE(cmd, nil))

	var descriptors []struct {
		Definition struct {
			Name string `json:"name"`
		} `json:"definition"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &descriptors))
	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		names = append(names, d.Definition.Name)
	}
	assert.Equal(t, []string{
		"get_all_content_types",
		"get_content_type",
		"get_all_entries",
		"get_entry",
		"create_entry",
		"update_entry",
	}, names)
}

func TestFormatter(t *testing.T) {
	f := newFormatter()

	assert.Equal(t, "No activity recorded yet.", f.FormatActivity(nil))
	table := f.FormatActivity([]activity.Entry{{
		SessionID: "tab-1",
		Summary:   "Listed content types.",
		ToolsUsed: []string{"get_all_content_types"},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Truncated: true,
	}})
	assert.Contains(t, table, "Listed content types. (truncated)")
	assert.Contains(t, table, "get_all_content_types")

	reply := f.FormatReply(&chat.Response{SessionID: "tab-1", Reply: "Two types.", ToolsUsed: []string{}})
	assert.Contains(t, reply, "Two types.")
	assert.Contains(t, reply, "none")
	assert.NotContains(t, reply, "Summary:")

	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "ab...", truncateString("abcdefgh", 5))
	assert.Equal(t, "ключ...", truncateString("ключница", 7))
}
