package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/wellbeingchat/backend/internal/clock"
	"github.com/wellbeingchat/backend/internal/config"
	"github.com/wellbeingchat/backend/internal/handler"
	"github.com/wellbeingchat/backend/internal/logger"
	"github.com/wellbeingchat/backend/internal/metrics"
	"github.com/wellbeingchat/backend/internal/model/resource"
	"github.com/wellbeingchat/backend/internal/notify"
	"github.com/wellbeingchat/backend/internal/service/ai"
	"github.com/wellbeingchat/backend/internal/service/auth"
	"github.com/wellbeingchat/backend/internal/service/chat"
	"github.com/wellbeingchat/backend/internal/service/mood"
	"github.com/wellbeingchat/backend/internal/service/profile"
	"github.com/wellbeingchat/backend/internal/service/reminder"
	"github.com/wellbeingchat/backend/internal/service/wellbeing"
	"github.com/wellbeingchat/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Setup(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	if envErr != nil {
		log.Warn().Err(envErr).Msg("failed to load .env file, continuing with system environment variables only")
	}

	st, err := openStore(cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("store health check failed")
	}

	m := metrics.New()

	items, err := resource.Seed()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load resource directory")
	}
	resources := resource.NewMemoryStore(items)

	// Initialize AI service
	var (
		responder   chat.ResponseGateway
		recommender mood.RecommendationGateway
	)
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI, m)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize AI service, continuing without AI functionality - 请检查 Ark 模型相关环境变量")
		} else {
			responder, recommender = aiService, aiService
			log.Info().Msg("AI service initialized successfully")
		}
	} else {
		log.Warn().Msg("Ark 凭证未配置，聊天回复与推荐将返回网关错误")
	}

	authService := auth.NewService(st)
	chatService := chat.NewService(st, responder, chat.Config{
		ContinuityWindow: cfg.Chat.ContinuityWindow,
		HistoryLimit:     cfg.AI.HistoryLimit,
		Metrics:          m,
	})
	authService.OnClose(chatService.Close)

	moodService := mood.NewService(st, recommender, mood.Config{
		Location:  cfg.Locale.Location,
		WeekStart: cfg.Locale.WeekStart,
		Metrics:   m,
	})

	notifyService := notify.NewService(st, notify.NewHub(), notify.Config{
		Icon:          cfg.Notify.Icon,
		PromptTimeout: cfg.Notify.PromptTimeout,
		Metrics:       m,
	})

	scheduler := reminder.NewScheduler(notifyService, reminder.Config{
		Clock:    clock.Real{},
		Location: cfg.Locale.Location,
		Icon:     cfg.Notify.Icon,
		Metrics:  m,
	})
	defer scheduler.Stop()

	wellbeingService := wellbeing.NewService(st, notifyService, wellbeing.Config{
		Clock:    clock.Real{},
		Location: cfg.Locale.Location,
		Icon:     cfg.Notify.Icon,
	})

	router := handler.NewRouter(handler.Services{
		Auth:      authService,
		Chat:      chatService,
		Mood:      moodService,
		Profile:   profile.NewService(st, scheduler),
		Notify:    notifyService,
		Wellbeing: wellbeingService,
		Resources: resources,
		Store:     st,
		Metrics:   m,
	})

	startServer(ctx, cfg.Server, router)
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	if cfg.Driver == "memory" {
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}
	st, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("Wellbeing Chat backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Error().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
