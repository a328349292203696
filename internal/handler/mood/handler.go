package mood

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wellbeingchat/backend/internal/model/mood"
	authService "github.com/wellbeingchat/backend/internal/service/auth"
	moodService "github.com/wellbeingchat/backend/internal/service/mood"
	"github.com/wellbeingchat/backend/pkg/utils"
)

// Handler 心情记录的HTTP处理器
type Handler struct {
	moodSvc *moodService.Service
}

// New 创建心情处理器
func New(moodSvc *moodService.Service) *Handler {
	return &Handler{moodSvc: moodSvc}
}

// RegisterRoutes 注册心情相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/moods", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleRecord)
		r.Get("/weekly", h.handleWeekly)
		r.Get("/day", h.handleDay)
		r.Post("/recommendations", h.handleRecommend)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())
	entries, err := h.moodSvc.Entries(r.Context(), session.ProfileID)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
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
	utils.RespondJSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleWeekly(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())
	points, err := h.moodSvc.Weekly(r.Context(), session.ProfileID)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, points)
}

func (h *Handler) handleDay(w http.ResponseWriter, r *http.Request) {
	day, err := h.moodSvc.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}

	session, _ := authService.FromContext(r.Context())
	summary, err := h.moodSvc.Day(r.Context(), session.ProfileID, day)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())
	items, err := h.moodSvc.Recommend(r.Context(), session.ProfileID)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string][]string{"recommendations": items})
}
