package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthmate/internal/audit"
	"healthmate/internal/auth"
	"healthmate/internal/booking"
	"healthmate/internal/calls"
	"healthmate/internal/catalog"
	"healthmate/internal/config"
	"healthmate/internal/dashboard"
	"healthmate/internal/directory"
	"healthmate/internal/guidelines"
	"healthmate/internal/httpapi"
	"healthmate/internal/llm"
	"healthmate/internal/reporting"
	"healthmate/internal/ultravox"
	"healthmate/internal/voice"
	"healthmate/internal/webhook"
	"healthmate/pkg/logger"
	"healthmate/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tickets, err := auth.NewManager(cfg.Ticket)
	if err != nil {
		log.Error("ticket manager init failed", "err", err)
		os.Exit(1)
	}

	db, err := openDB(rootCtx, cfg)
	if err != nil {
		log.Error("database init failed", "driver", cfg.DB.Driver, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	callRepo := calls.NewSQLRepo(db, cfg.DB.Driver)
	auditRepo := audit.NewSQLRepo(db, cfg.DB.Driver)
	if err := callRepo.Migrate(rootCtx); err != nil {
		log.Error("calls migration failed", "err", err)
		os.Exit(1)
	}
	if err := auditRepo.Migrate(rootCtx); err != nil {
		log.Error("audit migration failed", "err", err)
		os.Exit(1)
	}

	var limiter calls.Limiter
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		limiter = calls.NewRedisLimiter(rdb, 2*time.Minute)
	} else {
		log.Warn("redis not configured, call slots are per process")
		limiter = calls.NewMemoryLimiter()
	}

	cat, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		log.Error("catalog load failed", "err", err)
		os.Exit(1)
	}
	catalogStore := catalog.NewStore(cat, log)
	if cfg.Catalog.Watch && cfg.Catalog.Path != "" {
		if err := catalogStore.Watch(rootCtx, cfg.Catalog.Path); err != nil {
			log.Error("catalog watch failed", "err", err)
			os.Exit(1)
		}
	}

	var model llm.Client
	if cfg.LLMEnabled() {
		model = llm.NewOpenAIClient(cfg.OpenAI)
		log.Info("guideline chat uses llm", "model", cfg.OpenAI.ChatModel)
	}

	hook := webhook.NewClient(cfg.Ultravox.UpstreamTimeout)
	callSvc := calls.NewService(callRepo)
	auditSvc := audit.NewService(auditRepo)

	uv := ultravox.Handlers{
		Service: ultravox.NewService(ultravox.ServiceConfig{
			WebhookURL: cfg.Ultravox.WebhookURL,
			APIKey:     cfg.Ultravox.APIKey,
		}, hook, callSvc, auditSvc, tickets, log),
		Calls:  callSvc,
		Events: auditSvc,
		Stream: ultravox.NewStreamHandler(ultravox.StreamConfig{
			APIKey: cfg.Ultravox.APIKey,
			Session: voice.Options{
				DegradeToMock: cfg.Ultravox.DegradeToMock,
				JoinTimeout:   cfg.Ultravox.JoinTimeout,
				Logger:        log,
			},
		}, callSvc, limiter, auditSvc),
	}

	api := httpapi.Handlers{
		Catalog:   catalogStore,
		Directory: directory.NewService(catalogStore),
		Booking:   booking.NewService(hook, cfg.Booking.WebhookURL, catalogStore, auditSvc, log),
		Renderer:  guidelines.NewRenderer(),
		Chat:      guidelines.NewChatService(catalogStore, model, log),
		Dashboard: dashboard.NewService(cat, nil),
		Reporting: reporting.NewService(callSvc, auditSvc),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		DB:          db,
		Ultravox:    uv,
		API:         api,
		Credentials: auth.RequireCredentials(cfg.Ultravox.APIKey, cfg.Ultravox.AgentID),
		CallTicket:  auth.RequireCallTicket(tickets),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// The call stream hijacks its connection, so this bounds plain
		// responses only.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "db", cfg.DB.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	pool := utils.PoolConfig{}
	if cfg.DB.Driver == "sqlite" {
		pool = utils.SQLitePool()
	}
	return utils.OpenDB(ctx, cfg.DB.Driver, cfg.DSN(), pool)
}
