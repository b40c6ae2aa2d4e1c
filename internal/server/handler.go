package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/msto63/dolmetscher/internal/conversation"
	"github.com/msto63/dolmetscher/internal/session"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
	"github.com/msto63/dolmetscher/pkg/core/health"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// commandTimeout bounds how long a request waits for the coordinator
const commandTimeout = 5 * time.Second

// Handler routes API requests to the controller
type Handler struct {
	ctl      Controller
	registry *health.Registry
	hub      *Hub
	logger   *logging.Logger
	version  string
	mux      *http.ServeMux
}

// StateResponse describes the session as seen by observers
type StateResponse struct {
	State    session.State    `json:"state"`
	Label    string           `json:"label"`
	Level    float64          `json:"level"`
	Settings session.Settings `json:"settings"`
	Messages int              `json:"messages"`
}

// CommandResponse reports the result of a session command
type CommandResponse struct {
	Command string        `json:"command"`
	Changed bool          `json:"changed"`
	State   session.State `json:"state"`
}

// ConversationResponse lists conversation messages
type ConversationResponse struct {
	Messages []conversation.Message `json:"messages"`
	Total    int                    `json:"total"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// NewHandler creates the API handler
func NewHandler(ctl Controller, registry *health.Registry, cfg Config, logger *logging.Logger) *Handler {
	h := &Handler{
		ctl:      ctl,
		registry: registry,
		hub:      NewHub(ctl, cfg.AllowedOrigins, logger.Named("ws")),
		logger:   logger,
		version:  cfg.Version,
		mux:      http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /api/v1/state", h.handleState)
	h.mux.HandleFunc("GET /api/v1/conversation", h.handleConversation)
	h.mux.HandleFunc("DELETE /api/v1/conversation", h.handleClear)
	h.mux.HandleFunc("GET /api/v1/settings", h.handleGetSettings)
	h.mux.HandleFunc("PUT /api/v1/settings", h.handlePutSettings)
	h.mux.HandleFunc("POST /api/v1/session/{command}", h.handleCommand)
	h.mux.Handle("GET /api/v1/events", h.hub)
	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": string(health.StatusHealthy), "version": h.version})
		return
	}
	report := h.registry.Check(r.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, report)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, stateSnapshot(h.ctl))
}

func (h *Handler) handleConversation(w http.ResponseWriter, r *http.Request) {
	log := h.ctl.Conversation()
	messages := log.Snapshot()
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer", v)
			return
		}
		messages = log.Last(limit)
	}
	if messages == nil {
		messages = []conversation.Message{}
	}
	h.writeJSON(w, http.StatusOK, ConversationResponse{Messages: messages, Total: log.Len()})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	if err := h.ctl.ClearConversation(ctx); err != nil {
		h.writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ctl.Settings())
}

func (h *Handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	settings := h.ctl.Settings()
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	if err := h.ctl.Configure(ctx, settings); err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.ctl.Settings())
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	command := r.PathValue("command")

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	changed, err := runCommand(ctx, h.ctl, command)
	if errors.Is(err, errUnknownCommand) {
		h.writeError(w, http.StatusNotFound, "not_found", "Unknown session command", command)
		return
	}
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CommandResponse{Command: command, Changed: changed, State: h.ctl.State()})
}

var errUnknownCommand = errors.New("unknown command")

// runCommand dispatches a named command; shared by HTTP and websocket
func runCommand(ctx context.Context, ctl Controller, command string) (bool, error) {
	switch command {
	case "start":
		return ctl.Start(ctx)
	case "stop":
		return ctl.Stop(ctx)
	case "toggle":
		return ctl.Toggle(ctx)
	case "reset":
		return ctl.Reset(ctx)
	case "clear":
		return true, ctl.ClearConversation(ctx)
	case "switch_languages":
		return true, ctl.SwitchLanguages(ctx)
	case "stop_speaking":
		return true, ctl.StopSpeaking(ctx)
	default:
		return false, errUnknownCommand
	}
}

func errorCode(err error) string {
	if errors.Is(err, errUnknownCommand) {
		return "unknown_command"
	}
	if errors.Is(err, session.ErrNotRunning) {
		return "not_running"
	}
	return string(apperr.CodeOf(err))
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	status := http.StatusInternalServerError
	switch {
	case code == apperr.CodeInvalidConfig:
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNotRunning), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	h.writeError(w, status, errorCode(err), err.Error(), "")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("Failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, details string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
