package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/wellbeingchat/backend/internal/apperr"
	"github.com/wellbeingchat/backend/internal/model/mood"
	authService "github.com/wellbeingchat/backend/internal/service/auth"
	chatService "github.com/wellbeingchat/backend/internal/service/chat"
	moodService "github.com/wellbeingchat/backend/internal/service/mood"
	"github.com/wellbeingchat/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	moodSvc *moodService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, moodSvc *moodService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		moodSvc: moodSvc,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat", h.handleOpen)
	r.Post("/chat/messages", h.handleSend)
	r.Post("/chat/mood", h.handleMood)
	r.Get("/history", h.handleHistory)
}

// TurnResponse 是一次对话回合的响应体
type TurnResponse struct {
	chatService.TurnResult
	Error string `json:"error,omitempty"`
}

// handleOpen 恢复或开启会话
func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())
	snapshot, err := h.chatSvc.Open(r.Context(), session)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

// handleSend 发送一条用户消息并等待回复
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondServiceError(w, err)
		return
	}

	session, _ := authService.FromContext(r.Context())
	result, err := h.chatSvc.Send(r.Context(), session, payload.Text)
	if err != nil {
		// 网关失败时回合已经以致歉消息收尾，仍返回 200 并附带提示。
		if errors.Is(err, apperr.ErrGateway) {
			utils.RespondJSON(w, http.StatusOK, TurnResponse{TurnResult: result, Error: chatService.ApologyText})
			return
		}
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, TurnResponse{TurnResult: result})
}

// handleMood 在聊天界面记录心情并追加确认消息
func (h *Handler) handleMood(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Mood string `json:"mood"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	selected, ok := mood.Parse(payload.Mood)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "unknown mood")
		return
	}

	session, _ := authService.FromContext(r.Context())
	entry, err := h.moodSvc.Record(r.Context(), session.ProfileID, selected)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}

	// 心情已保存；确认消息失败时仍返回 201 并附带 warning
	ack, err := h.chatSvc.AcknowledgeMood(r.Context(), session, selected)
	if err != nil {
		log.Warn().Err(err).Str("component", "chat").Str("profile", session.ProfileID).Msg("mood acknowledgement failed")
		utils.RespondJSON(w, http.StatusCreated, map[string]any{
			"entry":   entry,
			"warning": "mood recorded but the chat acknowledgement could not be added",
		})
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"entry":   entry,
		"message": ack,
	})
}

// handleHistory 列出历史会话
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())
	conversations, err := h.chatSvc.History(r.Context(), session.ProfileID)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, conversations)
}
