package ingress

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harunnryd/polaris/internal/activity"
	"github.com/harunnryd/polaris/internal/chat"
	"github.com/harunnryd/polaris/internal/cms"
	"github.com/harunnryd/polaris/internal/config"
	polarisErrors "github.com/harunnryd/polaris/internal/errors"
	"github.com/harunnryd/polaris/internal/model/providers/openai"
	"github.com/harunnryd/polaris/internal/session"
	toolcore "github.com/harunnryd/polaris/internal/tool"
	"github.com/harunnryd/polaris/internal/tool/contentstack"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOpenAI answers the first loop call with a get_all_content_types call,
// later loop calls with a plain reply and summary calls with a summary.
func fakeOpenAI(t *testing.T, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)

		var body struct {
			Messages []map[string]interface{} `json:"messages"`
			Tools    []interface{}             `json:"tools"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		hasToolResult := false
		for _, m := range body.Messages {
			if m["role"] == "tool" {
				hasToolResult = true
			}
		}

		var message string
		switch {
		case len(body.Tools) == 0:
			message = `{"role":"assistant","content":"Listed the stack's content types."}`
		case !hasToolResult:
			message = `{"role":"assistant","content":"","tool_calls":[{"id":"call_1","type":"function","function":{"name":"get_all_content_types","arguments":"{}"}}]}`
		default:
			message = `{"role":"assistant","content":"You have two content types: blog_post and page."}`
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","choices":[{"index":0,"message":` + message + `}]}`))
	}))
}

func fakeCMS(t *testing.T, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "/v3/content_types", r.URL.Path)
		assert.Equal(t, "blt-key", r.Header.Get("api_key"))
		assert.Equal(t, "cs-token", r.Header.Get("authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content_types":[{"uid":"blog_post"},{"uid":"page"}]}`))
	}))
}

type stack struct {
	handler   http.Handler
	llmHits   int32
	cmsHits   int32
	store     *session.MemoryStore
	activity  *activity.Log
	llmServer *httptest.Server
	cmsServer *httptest.Server
}

func newStack(t *testing.T, openAIKey string) *stack {
	t.Helper()
	s := &stack{store: session.NewMemoryStore()}
	s.llmServer = fakeOpenAI(t, &s.llmHits)
	s.cmsServer = fakeCMS(t, &s.cmsHits)
	t.Cleanup(s.llmServer.Close)
	t.Cleanup(s.cmsServer.Close)

	cmsClient := &cms.Client{
		HTTPClient:      s.cmsServer.Client(),
		BaseURL:         s.cmsServer.URL,
		APIKey:          "blt-key",
		ManagementToken: "cs-token",
	}
	runner := toolcore.NewRunner(contentstack.NewRegistry(cmsClient))

	log, err := activity.NewLog(config.ActivityConfig{Path: filepath.Join(t.TempDir(), "activity.json")})
	require.NoError(t, err)
	require.NoError(t, log.Init(context.Background()))
	s.activity = log

	service := chat.NewService(openai.New(openAIKey, s.llmServer.URL, time.Second), runner, s.store, log, chat.Options{
		Model:          "gpt-4o-mini",
		SummaryEnabled: true,
		Credentials: []config.Credential{
			{Name: config.EnvOpenAIAPIKey, Value: openAIKey},
			{Name: config.EnvCMSAPIKey, Value: "blt-key"},
			{Name: config.EnvCMSManagementToken, Value: "cs-token"},
			{Name: config.EnvCMSRegion, Value: "na"},
		},
	})

	api := &API{Chat: service, Activity: log, Sessions: service, Tools: runner, MaxBodyBytes: 1 << 10}
	mux := http.NewServeMux()
	api.Register(mux)
	s.handler = WithTrace(mux)
	return s
}

func (s *stack) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestChatEndpointListsContentTypes(t *testing.T) {
	s := newStack(t, "sk-test")

	for _, path := range []string{"/api/polaris", "/api/polaris/chat"} {
		t.Run(path, func(t *testing.T) {
			rec := s.do(http.MethodPost, path, `{"message":"List content types"}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, rec.Header().Get(TraceHeader))

			var resp chat.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.SessionID)
			assert.Equal(t, "You have two content types: blog_post and page.", resp.Reply)
			assert.Equal(t, []string{"get_all_content_types"}, resp.ToolsUsed)
			assert.Equal(t, "Listed the stack's content types.", resp.Summary)
			assert.False(t, resp.Truncated)
		})
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&s.cmsHits))
	assert.Equal(t, int32(6), atomic.LoadInt32(&s.llmHits))

	rec := s.do(http.MethodGet, "/api/polaris/activity?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var feed struct {
		Entries []activity.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	require.Len(t, feed.Entries, 1)
	assert.Equal(t, "Listed the stack's content types.", feed.Entries[0].Summary)
}

func TestChatEndpointRejectsEmptyMessage(t *testing.T) {
	s := newStack(t, "sk-test")

	for _, body := range []string{`{"message":""}`, `{"message":"   "}`, `{}`, ``} {
		rec := s.do(http.MethodPost, "/api/polaris", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Message is required.", decodeError(t, rec), body)
	}
	assert.Zero(t, atomic.LoadInt32(&s.llmHits))
}

func TestChatEndpointRejectsMalformedBody(t *testing.T) {
	s := newStack(t, "sk-test")

	rec := s.do(http.MethodPost, "/api/polaris", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body.", decodeError(t, rec))

	rec = s.do(http.MethodPost, "/api/polaris", `{"message":"`+strings.Repeat("a", 2048)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request body too large.", decodeError(t, rec))

	rec = s.do(http.MethodPost, "/api/polaris", `{"sessionId":"bad id","message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid sessionId.", decodeError(t, rec))

	assert.Zero(t, atomic.LoadInt32(&s.llmHits))
}

func TestChatEndpointMissingCredential(t *testing.T) {
	s := newStack(t, "")

	rec := s.do(http.MethodPost, "/api/polaris", `{"message":"List content types"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Missing OPENAI_API_KEY.", decodeError(t, rec))
	assert.Zero(t, atomic.LoadInt32(&s.llmHits))
	assert.Zero(t, atomic.LoadInt32(&s.cmsHits))
}

func TestChatEndpointMethodNotAllowed(t *testing.T) {
	s := newStack(t, "sk-test")

	rec := s.do(http.MethodGet, "/api/polaris", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestClearSessionEndpoint(t *testing.T) {
	s := newStack(t, "sk-test")

	rec := s.do(http.MethodPost, "/api/polaris", `{"sessionId":"tab-1","message":"List content types"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, s.store.Len())

	rec = s.do(http.MethodDelete, "/api/polaris/sessions/tab-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.store.Len())

	rec = s.do(http.MethodDelete, "/api/polaris/sessions/"+strings.Repeat("x", session.MaxIDLength+1), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActivityEndpointLimit(t *testing.T) {
	s := newStack(t, "sk-test")

	for _, target := range []string{"/api/polaris/activity?limit=0", "/api/polaris/activity?limit=abc"} {
		rec := s.do(http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, "Invalid limit.", decodeError(t, rec))
	}

	rec := s.do(http.MethodGet, "/api/polaris/activity", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[]}`, rec.Body.String())
}

func TestOptionalRoutesAnswerNotFoundWhenUnset(t *testing.T) {
	mux := http.NewServeMux()
	(&API{}).Register(mux)

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/api/polaris/activity"},
		{http.MethodGet, "/api/polaris/tools"},
		{http.MethodDelete, "/api/polaris/sessions/abc"},
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, tc.target)
	}
}

func TestToolsEndpoint(t *testing.T) {
	s := newStack(t, "sk-test")

	rec := s.do(http.MethodGet, "/api/polaris/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tools []toolcore.ToolDescriptor `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Tools, 6)
	assert.Equal(t, contentstack.NameGetAllContentTypes, body.Tools[0].Definition.Name)
	assert.Equal(t, toolcore.RiskMedium, body.Tools[5].Metadata.Risk)
}

func TestWithTraceReusesIncomingID(t *testing.T) {
	handler := WithTrace(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceHeader, "01HZX5TRACE")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "01HZX5TRACE", rec.Header().Get(TraceHeader))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceHeader, "not a valid id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.NotEqual(t, "not a valid id", rec.Header().Get(TraceHeader))
	assert.NotEmpty(t, rec.Header().Get(TraceHeader))
}

func TestWriteErrorMapsCategories(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, polarisErrors.Upstream("contentstack", 422, `{"error_message":"bad"}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeError(t, rec), "contentstack request failed (422)")
}
