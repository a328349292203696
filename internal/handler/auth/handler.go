package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authService "github.com/wellbeingchat/backend/internal/service/auth"
	"github.com/wellbeingchat/backend/pkg/utils"
)

// Handler 登录与登出的HTTP处理器
type Handler struct {
	authSvc *authService.Service
}

// New 创建登录处理器
func New(authSvc *authService.Service) *Handler {
	return &Handler{authSvc: authSvc}
}

// RegisterPublicRoutes 注册无需会话的路由
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
}

// RegisterRoutes 注册需要会话的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondServiceError(w, err)
		return
	}

	session, err := h.authSvc.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())
	if err := h.authSvc.Logout(r.Context(), session.Token); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())
	user, err := h.authSvc.CurrentUser(r.Context(), session.ProfileID)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session": session,
		"user":    user,
	})
}
