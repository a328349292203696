package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/wellbeingchat/backend/internal/apperr"
	authService "github.com/wellbeingchat/backend/internal/service/auth"
	chatService "github.com/wellbeingchat/backend/internal/service/chat"
	"github.com/wellbeingchat/backend/pkg/utils"
)

// Handler runs a chat turn over Server-Sent Events: the pending placeholder
// is pushed first, then the settled reply.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates a new stream handler
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册流式聊天路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/stream", h.handleStream)
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event          string `json:"event"`
	ConversationID string `json:"conversationId,omitempty"`
	Data           any    `json:"data,omitempty"`
	Finished       bool   `json:"finished,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	userMessage := r.URL.Query().Get("message")
	if userMessage == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	session, _ := authService.FromContext(r.Context())
	if err := h.HandleStreamRequest(r.Context(), w, session, userMessage); err != nil {
		log.Warn().Err(err).Str("component", "stream").Str("profile", session.ProfileID).Msg("stream request failed")
	}
}

// HandleStreamRequest processes one chat turn for session.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, session authService.Session, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return fmt.Errorf("streaming unsupported")
	}

	// 先开启回合，失败时仍可返回普通的 JSON 错误。
	turn, err := h.chatSvc.BeginTurn(ctx, session, userMessage)
	if err != nil {
		utils.RespondServiceError(w, err)
		return err
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	h.sendSSE(w, flusher, StreamResponse{
		Event: "start",
		Data: map[string]any{
			"userMessage": turn.UserMessage,
			"placeholder": turn.Placeholder,
		},
	})

	result, err := h.chatSvc.FinishTurn(ctx, turn)
	if err != nil && !errors.Is(err, apperr.ErrGateway) {
		h.sendSSEError(w, flusher, err.Error())
		return err
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:          "message",
		ConversationID: result.ConversationID,
		Data:           result.Reply,
	})

	if err != nil {
		h.sendSSEError(w, flusher, chatService.ApologyText)
	}

	if result.Safety != nil {
		h.sendSSE(w, flusher, StreamResponse{
			Event:          "safety",
			ConversationID: result.ConversationID,
			Data:           result.Safety,
		})
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:          "end",
		ConversationID: result.ConversationID,
		Finished:       true,
	})

	log.Debug().Str("component", "stream").Str("profile", session.ProfileID).Msg("completed streamed turn")
	return nil
}

// sendSSE sends a Server-Sent Event
func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}

// sendSSEError sends an error via Server-Sent Events
func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	h.sendSSE(w, flusher, StreamResponse{
		Event: "error",
		Error: errorMsg,
	})
}
