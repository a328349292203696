package health

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/wellbeingchat/backend/pkg/utils"
)

const checkTimeout = 5 * time.Second

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler 健康检查处理器
type Handler struct {
	store Pinger
}

// New 创建健康检查处理器
func New(store Pinger) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册健康检查路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok", "store": "ok"}
	status, code := "healthy", http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		log.Error().Err(err).Str("component", "health").Msg("store ping failed")
		checks["store"] = "unreachable"
		status, code = "degraded", http.StatusServiceUnavailable
	}

	utils.RespondJSON(w, code, map[string]any{
		"status": status,
		"checks": checks,
	})
}
