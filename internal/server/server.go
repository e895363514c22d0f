// Package server exposes the conversation over a single HTTP endpoint.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/manno/shipmate/internal/conversation"
)

// Conversation is the part of the controller the endpoint needs.
type Conversation interface {
	HandleMessage(ctx context.Context, key, message string) (conversation.Reply, error)
}

type chatRequest struct {
	SessionKey string `json:"session_key"`
	Message    string `json:"message"`
}

type chatResponse struct {
	Message   string `json:"message"`
	Stage     string `json:"stage"`
	SessionID string `json:"session_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler returns the HTTP handler for the conversational endpoint.
func NewHandler(conv Conversation, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat", func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}
		if req.SessionKey == "" || req.Message == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session_key and message are required"})
			return
		}

		reply, err := conv.HandleMessage(r.Context(), req.SessionKey, req.Message)
		if err != nil {
			logger.Error("failed to handle message", "session_key", req.SessionKey, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			return
		}

		writeJSON(w, http.StatusOK, chatResponse{
			Message:   reply.Message,
			Stage:     string(reply.Stage),
			SessionID: reply.SessionID,
		})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
