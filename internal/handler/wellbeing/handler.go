package wellbeing

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wellbeingchat/backend/internal/apperr"
	authService "github.com/wellbeingchat/backend/internal/service/auth"
	wellbeingService "github.com/wellbeingchat/backend/internal/service/wellbeing"
	"github.com/wellbeingchat/backend/pkg/utils"
)

// Handler 每日任务处理器
type Handler struct {
	wellbeingSvc *wellbeingService.Service
}

type completionPayload struct {
	Day       string `json:"day"`
	Completed bool   `json:"completed"`
}

type timerPayload struct {
	Day string `json:"day"`
}

// New 创建处理器
func New(wellbeingSvc *wellbeingService.Service) *Handler {
	return &Handler{wellbeingSvc: wellbeingSvc}
}

// RegisterRoutes 注册每日任务路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/wellbeing", func(r chi.Router) {
		r.Get("/", h.handleOverview)
		r.Put("/today", h.handleSetCompleted)
		r.Post("/timer/{action}", h.handleTimer)
	})
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())
	overview, err := h.wellbeingSvc.Overview(r.Context(), session.ProfileID)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, overview)
}

func (h *Handler) handleSetCompleted(w http.ResponseWriter, r *http.Request) {
	var payload completionPayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondServiceError(w, err)
		return
	}

	session, _ := authService.FromContext(r.Context())
	day := payload.Day
	if day == "" {
		overview, err := h.wellbeingSvc.Overview(r.Context(), session.ProfileID)
		if err != nil {
			utils.RespondServiceError(w, err)
			return
		}
		day = overview.Today
	}
	if err := h.wellbeingSvc.SetCompleted(r.Context(), session.ProfileID, day, payload.Completed); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	h.handleOverview(w, r)
}

// handleTimer 处理 start / pause / reset
func (h *Handler) handleTimer(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())

	switch chi.URLParam(r, "action") {
	case "start":
		var payload timerPayload
		if r.ContentLength > 0 {
			if err := utils.DecodeJSON(r, &payload); err != nil {
				utils.RespondServiceError(w, err)
				return
			}
		}
		if payload.Day == "" {
			overview, err := h.wellbeingSvc.Overview(r.Context(), session.ProfileID)
			if err != nil {
				utils.RespondServiceError(w, err)
				return
			}
			payload.Day = overview.Today
		}
		state, err := h.wellbeingSvc.Start(r.Context(), session.ProfileID, payload.Day)
		if err != nil {
			utils.RespondServiceError(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, state)
	case "pause":
		state, err := h.wellbeingSvc.Pause(r.Context(), session.ProfileID)
		if err != nil {
			utils.RespondServiceError(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, state)
	case "reset":
		h.wellbeingSvc.Reset(r.Context(), session.ProfileID)
		w.WriteHeader(http.StatusNoContent)
	default:
		utils.RespondServiceError(w, apperr.Validation("unknown timer action"))
	}
}
