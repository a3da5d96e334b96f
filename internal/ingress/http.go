// Package ingress exposes the chat service and its supporting reads over HTTP.
package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/harunnryd/polaris/internal/activity"
	"github.com/harunnryd/polaris/internal/chat"
	polarisErrors "github.com/harunnryd/polaris/internal/errors"
	"github.com/harunnryd/polaris/internal/logger"
	"github.com/harunnryd/polaris/internal/session"
	"github.com/harunnryd/polaris/internal/tool"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 200
)

type ChatService interface {
	HandleTurn(ctx context.Context, req chat.Request) (*chat.Response, error)
}

type ActivityReader interface {
	List(ctx context.Context, limit int) ([]activity.Entry, error)
}

// SessionClearer resets a transcript. chat.Service implements it so a reset
// waits for any turn running on the same session.
type SessionClearer interface {
	Clear(ctx context.Context, sessionID string) error
}

type ToolCatalog interface {
	GetDescriptors() []tool.ToolDescriptor
}

// API serves the /api/polaris routes. Activity, Sessions and Tools are
// optional; their routes answer 404 when unset.
type API struct {
	Chat         ChatService
	Activity     ActivityReader
	Sessions     SessionClearer
	Tools        ToolCatalog
	MaxBodyBytes int64
}

// Register mounts the API routes on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/polaris", a.handleChat)
	mux.HandleFunc("POST /api/polaris/chat", a.handleChat)
	mux.HandleFunc("GET /api/polaris/activity", a.handleActivity)
	mux.HandleFunc("DELETE /api/polaris/sessions/{id}", a.handleClearSession)
	mux.HandleFunc("GET /api/polaris/tools", a.handleTools)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	body := io.Reader(r.Body)
	if a.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, a.MaxBodyBytes)
	}

	var req chat.Request
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(r.Context(), w, polarisErrors.InvalidInput("Request body too large."))
			return
		}
		if errors.Is(err, io.EOF) {
			writeError(r.Context(), w, polarisErrors.InvalidInput("Message is required."))
			return
		}
		writeError(r.Context(), w, polarisErrors.InvalidInput("Invalid request body."))
		return
	}

	resp, err := a.Chat.HandleTurn(r.Context(), req)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleActivity(w http.ResponseWriter, r *http.Request) {
	if a.Activity == nil {
		writeError(r.Context(), w, polarisErrors.NotFound("Activity log is disabled."))
		return
	}

	limit := defaultActivityLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(r.Context(), w, polarisErrors.InvalidInput("Invalid limit."))
			return
		}
		limit = min(n, maxActivityLimit)
	}

	entries, err := a.Activity.List(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, polarisErrors.Wrap(err, "read activity"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (a *API) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if a.Sessions == nil {
		writeError(r.Context(), w, polarisErrors.NotFound("Sessions are not available."))
		return
	}

	id := r.PathValue("id")
	if err := session.ValidateID(id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := a.Sessions.Clear(r.Context(), id); err != nil {
		writeError(r.Context(), w, polarisErrors.Wrap(err, "clear session"))
		return
	}

	slog.Info("Session cleared", logger.Attrs(logger.WithSessionID(r.Context(), id))...)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleTools(w http.ResponseWriter, r *http.Request) {
	if a.Tools == nil {
		writeError(r.Context(), w, polarisErrors.NotFound("Tools are not available."))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": a.Tools.GetDescriptors()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// writeError sends the {error} envelope with the status mapped from the
// error category.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := polarisErrors.HTTPStatus(err)
	message := err.Error()
	if message == "" {
		message = fmt.Sprintf("%d %s", status, http.StatusText(status))
	}

	attrs := append(logger.Attrs(ctx), "status", status, "category", polarisErrors.Category(err), "error", err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", attrs...)
	} else {
		slog.Warn("Request rejected", attrs...)
	}

	writeJSON(w, status, errorResponse{Error: message})
}
