package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wellbeingchat/backend/internal/handler/auth"
	"github.com/wellbeingchat/backend/internal/handler/chat"
	"github.com/wellbeingchat/backend/internal/handler/health"
	"github.com/wellbeingchat/backend/internal/handler/mood"
	"github.com/wellbeingchat/backend/internal/handler/notify"
	"github.com/wellbeingchat/backend/internal/handler/profile"
	"github.com/wellbeingchat/backend/internal/handler/resource"
	"github.com/wellbeingchat/backend/internal/handler/stream"
	"github.com/wellbeingchat/backend/internal/handler/wellbeing"
	"github.com/wellbeingchat/backend/internal/metrics"
	middlewarePkg "github.com/wellbeingchat/backend/internal/middleware"
	resourceModel "github.com/wellbeingchat/backend/internal/model/resource"
	notifyService "github.com/wellbeingchat/backend/internal/notify"
	authService "github.com/wellbeingchat/backend/internal/service/auth"
	chatService "github.com/wellbeingchat/backend/internal/service/chat"
	moodService "github.com/wellbeingchat/backend/internal/service/mood"
	profileService "github.com/wellbeingchat/backend/internal/service/profile"
	wellbeingService "github.com/wellbeingchat/backend/internal/service/wellbeing"
)

// Services 汇总路由依赖的核心服务
type Services struct {
	Auth      *authService.Service
	Chat      *chatService.Service
	Mood      *moodService.Service
	Profile   *profileService.Service
	Notify    *notifyService.Service
	Wellbeing *wellbeingService.Service
	Resources resourceModel.Store
	Store     health.Pinger
	Metrics   *metrics.Metrics
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	if svc.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", svc.Metrics.Handler())
	}

	if svc.Store != nil {
		health.New(svc.Store).RegisterRoutes(r)
	}

	authHandler := auth.New(svc.Auth)

	r.Route("/api", func(api chi.Router) {
		// 无需登录
		authHandler.RegisterPublicRoutes(api)
		resource.New(svc.Resources).RegisterRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(middlewarePkg.RequireSession(svc.Auth))

			authHandler.RegisterRoutes(protected)
			chat.New(svc.Chat, svc.Mood).RegisterRoutes(protected)
			stream.New(svc.Chat).RegisterRoutes(protected)
			mood.New(svc.Mood).RegisterRoutes(protected)
			profile.New(svc.Profile).RegisterRoutes(protected)
			notify.New(svc.Notify).RegisterRoutes(protected)
			wellbeing.New(svc.Wellbeing).RegisterRoutes(protected)
		})
	})

	return r
}
