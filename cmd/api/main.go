package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	"smarttv-backend/internal/audit"
	"smarttv-backend/internal/calls"
	"smarttv-backend/internal/config"
	"smarttv-backend/internal/contacts"
	"smarttv-backend/internal/httpapi"
	"smarttv-backend/internal/jobs"
	"smarttv-backend/internal/migrations"
	"smarttv-backend/internal/presence"
	"smarttv-backend/internal/realtime"
	"smarttv-backend/internal/reconcile"
	"smarttv-backend/internal/users"
	"smarttv-backend/internal/video"
	"smarttv-backend/pkg/logger"
	"smarttv-backend/pkg/utils"
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

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.Up(rootCtx, db); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Services
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))

	userSvc := users.NewService(users.NewPostgresRepo(db))

	presenceCache := presence.NewCache(rdb, cfg.Jobs.PresenceFreshness)
	presenceSvc := presence.NewService(presence.NewPostgresRepo(db), userSvc, presenceCache, cfg.Jobs.PresenceFreshness)

	contactSvc := contacts.NewService(contacts.NewPostgresRepo(db), userSvc, presenceSvc, log)

	twilioCfg := video.TwilioConfig{
		AccountSID:     cfg.Twilio.AccountSID,
		APIKey:         cfg.Twilio.APIKey,
		APISecret:      cfg.Twilio.APISecret,
		RequestTimeout: cfg.Twilio.RequestTimeout,
	}
	var provider video.Provider
	var tokens video.TokenIssuer
	if cfg.IsLocal() && cfg.Twilio.AccountSID == "" {
		log.Warn("no twilio credentials, using fake video provider")
		provider = video.NewFakeProvider()
		tokens = video.FakeTokenIssuer{}
	} else {
		provider = video.NewTwilioProvider(twilioCfg)
		tokens = video.NewTwilioTokenIssuer(twilioCfg, cfg.Twilio.TokenTTL)
	}

	callSvc := calls.NewService(calls.NewPostgresRepo(db), userSvc, provider, auditSvc, log)

	hub := realtime.NewHub(presenceSvc, log)
	defer hub.Close()

	// Background jobs
	reconciler := reconcile.New(callSvc, provider, logger.ForJob(log, "reconcile"))
	scheduler := jobs.NewScheduler(log)
	scheduler.Register(jobs.Job{
		Name:     "presence_sweep",
		Interval: cfg.Jobs.PresenceSweepInterval,
		Run: func(ctx context.Context) error {
			n, err := presenceSvc.MarkStaleOffline(ctx, cfg.Jobs.PresenceFreshness)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.ForJob(log, "presence_sweep").Info("stale presence marked offline", "count", n)
				_ = auditSvc.PresenceSweep(ctx, fmt.Sprintf("marked %d stale presence rows offline", n))
			}
			return nil
		},
	})
	scheduler.Register(jobs.Job{
		Name:     "reconcile",
		Interval: cfg.Jobs.ReconcileInterval,
		Run: func(ctx context.Context) error {
			_, err := reconciler.Run(ctx)
			return err
		},
	})
	scheduler.Register(jobs.Job{
		Name:     "call_retention",
		Interval: cfg.Jobs.RetentionInterval,
		Run: func(ctx context.Context) error {
			_, err := callSvc.RetentionSweep(ctx, cfg.Jobs.RetentionMaxAge)
			return err
		},
	})
	scheduler.Start(rootCtx)
	defer scheduler.Stop()

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Users:    userSvc,
		Contacts: contactSvc,
		Presence: presenceSvc,
		Calls:    callSvc,
		Tokens:   tokens,
		Hub:      hub,
		Jobs:     scheduler,
		DB:       db,
		Redis:    rdb,
	}
	registerRoutes(r, h)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	scheduler.Stop()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
