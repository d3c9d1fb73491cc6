package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sirahlabs/smartchat/cmd/mainconfig"
	"github.com/sirahlabs/smartchat/internal/api/router"
	"github.com/sirahlabs/smartchat/internal/chat"
	"github.com/sirahlabs/smartchat/internal/compliance"
	appconfig "github.com/sirahlabs/smartchat/internal/config"
	httpmiddleware "github.com/sirahlabs/smartchat/internal/http/middleware"
	"github.com/sirahlabs/smartchat/internal/leads"
	"github.com/sirahlabs/smartchat/internal/session"
	"github.com/sirahlabs/smartchat/internal/webchat"
	"github.com/sirahlabs/smartchat/pkg/logging"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting smartchat API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	aws := mainconfig.NewAWSClients(awsCfg, cfg)

	bundle, err := loadKnowledge(ctx, cfg, aws.S3)
	if err != nil {
		logger.Error("failed to load knowledge documents", "error", err)
		os.Exit(1)
	}
	businessName := bundle.Business.BusinessName
	logger.Info("knowledge loaded",
		"business", businessName,
		"services", len(bundle.Business.Services),
		"mode", bundle.Client.Mode,
	)

	metricsHandler, chatMetrics := setupMetrics()

	// Lead storage and delivery
	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	}
	leadRepo := leadRepository(pool)
	submitter := leads.NewSubmitter(logger, chatMetrics, cfg.LeadSubmitTimeout,
		buildSinks(cfg, bundle.Client, leadRepo, aws, logger)...)
	logger.Info("lead sinks configured", "sinks", submitter.Sinks())

	var (
		auditHandler *compliance.Handler
		auditLog     *webchat.AuditLog
	)
	if db := openAuditDB(cfg.DatabaseURL, logger); db != nil {
		defer db.Close()
		audit := compliance.NewAuditService(db)
		auditHandler = compliance.NewHandler(audit, logger)
		auditLog = webchat.NewAuditLog(audit, logger)
	}

	loc := cfg.Location()
	engine, err := chat.NewEngine(chat.Options{
		Business:      bundle.Business,
		Client:        bundle.Client,
		Sink:          auditLog.Sink(submitter),
		Logger:        logger,
		Now:           func() time.Time { return time.Now().In(loc) },
		TypingDelay:   cfg.TypingDelay,
		FollowUpDelay: cfg.FollowUpDelay,
	})
	if err != nil {
		logger.Error("failed to build chat engine", "error", err)
		os.Exit(1)
	}

	// Session persistence
	store, ready, closeStore := setupSessionStore(ctx, cfg, businessName, logger)
	defer closeStore()
	writer := session.NewAsyncWriter(store, cfg.SessionQueueSize, logger, chatMetrics)

	svc := webchat.NewService(webchat.ServiceOptions{
		Engine:  engine,
		Store:   store,
		Saver:   writer,
		Audit:   auditLog,
		Metrics: chatMetrics,
		Logger:  logger,
	})

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	done := make(chan struct{})
	go limiter.Run(time.Minute, done)
	go evictLoop(svc, 5*time.Minute, done, logger)

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        webchat.NewHandler(svc, nil, logger),
		LeadsHandler:       leads.NewHandler(leadRepo, logger),
		AuditHandler:       auditHandler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		Ready:              ready,
	})

	// Create HTTP server. No WriteTimeout: WebSocket connections stay open
	// for the whole conversation.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("shutting down server...")
	close(done)

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := writer.Close(shutdownCtx); err != nil {
		logger.Error("session writer did not drain", "error", err)
	}
	if err := submitter.Wait(shutdownCtx); err != nil {
		logger.Error("lead deliveries did not finish", "error", err)
	}
	if err := auditLog.Wait(shutdownCtx); err != nil {
		logger.Error("consent audit writes did not finish", "error", err)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func evictLoop(svc *webchat.Service, interval time.Duration, done <-chan struct{}, logger *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if n := svc.Evict(); n > 0 {
				logger.Debug("evicted idle sessions", "count", n)
			}
		}
	}
}
