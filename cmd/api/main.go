package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"softphone-core/internal/agentstate"
	"softphone-core/internal/audit"
	"softphone-core/internal/auth"
	"softphone-core/internal/callcontrol"
	"softphone-core/internal/calllog"
	"softphone-core/internal/config"
	"softphone-core/internal/httpapi"
	"softphone-core/internal/presence"
	"softphone-core/pkg/logger"
	"softphone-core/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Local env file is optional; real deployments inject the environment.
	_ = godotenv.Load()

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

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	workspaceID := cfg.Softphone.WorkspaceID
	agentID := cfg.Softphone.AgentID

	// One process drives one agent line; the lease keeps a second login
	// from hijacking it.
	lease := presence.NewLineLease(rdb, workspaceID, agentID, uuid.NewString(), cfg.Softphone.LineLeaseTTL)
	if err := lease.Acquire(rootCtx); err != nil {
		log.Error("line lease acquire failed", "agent_id", agentID, "err", err)
		os.Exit(1)
	}
	leaseLost := make(chan error, 1)
	go lease.KeepAlive(rootCtx, leaseLost)
	go func() {
		if err := <-leaseLost; err != nil {
			log.Error("line lease lost", "agent_id", agentID, "err", err)
			stop()
		}
	}()

	binding, agentAdapter, hooks, err := newProviderBinding(cfg, log)
	if err != nil {
		log.Error("provider init failed", "provider", cfg.Provider.Name, "err", err)
		os.Exit(1)
	}

	callLog := calllog.NewService(db, workspaceID, agentID, logger.ForComponent(log, "calllog"))
	auditSvc := audit.NewService(audit.NewMemoryRepo())
	publisher := presence.NewPublisher(rdb, workspaceID, logger.ForComponent(log, "presence"))

	session := callcontrol.NewSession(binding, agentAdapter, callcontrol.Config{
		ACWMax:   time.Duration(cfg.Softphone.ACWMaxSeconds) * time.Second,
		Recorder: callLog,
		Logger:   logger.ForComponent(log, "callcontrol"),
	})

	// Fan session events out to history, audit, and presence. Sinks must
	// not block; each gets a short deadline.
	session.Subscribe(func(ev callcontrol.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		switch ev.Type {
		case callcontrol.EventContactConnected:
			if contact, ok := session.ActiveContact(); ok {
				if err := callLog.OpenRecord(ctx, contact.ContactID, string(contact.Direction), "", "", contact.StartedAt); err != nil {
					log.Warn("call record open failed", "contact_id", contact.ContactID, "err", err)
				}
			}
		case callcontrol.EventContactEnded:
			if err := callLog.CloseRecord(ctx, ev.ContactID, ev.At); err != nil {
				log.Warn("call record close failed", "contact_id", ev.ContactID, "err", err)
			}
		}

		if err := auditSvc.LogCallOperation(ctx, workspaceID, agentID, ev.ContactID, "", string(ev.Type), ev.Detail); err != nil {
			log.Warn("audit append failed", "contact_id", ev.ContactID, "err", err)
		}
		if err := publisher.PublishCallUpdate(ctx, presence.CallUpdate{
			AgentID:   agentID,
			ContactID: ev.ContactID,
			Event:     string(ev.Type),
			Muted:     ev.Muted,
			At:        ev.At,
		}); err != nil {
			log.Warn("presence publish failed", "contact_id", ev.ContactID, "err", err)
		}
	})

	if notifier, ok := agentAdapter.(changeNotifier); ok {
		notifier.OnChange(publisher.StateSink())
		notifier.OnChange(func(ch agentstate.Change) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := auditSvc.LogStateChange(ctx, workspaceID, agentID, ch.Previous.Name, ch.Current.Name); err != nil {
				log.Warn("audit append failed", "agent_id", agentID, "err", err)
			}
		})
	}

	h := httpapi.Handlers{
		Auth:    authManager,
		Call:    session,
		Agent:   agentAdapter,
		CallLog: callLog,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, auth.RequireAccessToken(authManager), h, hooks, cfg)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "provider", cfg.Provider.Name)
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
	if err := lease.Release(shutdownCtx); err != nil {
		log.Warn("line lease release failed", "agent_id", agentID, "err", err)
	}
}
