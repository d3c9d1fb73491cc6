package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"path"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/sirahlabs/smartchat/cmd/mainconfig"
	appconfig "github.com/sirahlabs/smartchat/internal/config"
	"github.com/sirahlabs/smartchat/internal/knowledge"
	"github.com/sirahlabs/smartchat/internal/leads"
	"github.com/sirahlabs/smartchat/internal/notify"
	"github.com/sirahlabs/smartchat/internal/observability/metrics"
	"github.com/sirahlabs/smartchat/internal/session"
	"github.com/sirahlabs/smartchat/pkg/logging"
)

// loadKnowledge picks the document source: explicit URLs, then S3, then
// local files.
func loadKnowledge(ctx context.Context, cfg *appconfig.Config, s3 knowledge.S3API) (*knowledge.Bundle, error) {
	clientName, businessName := cfg.ClientConfigPath, cfg.BusinessInfoPath
	var src knowledge.Source
	switch {
	case cfg.ClientConfigURL != "" && cfg.BusinessInfoURL != "":
		src = knowledge.HTTPSource{Client: &http.Client{Timeout: 10 * time.Second}}
		clientName, businessName = cfg.ClientConfigURL, cfg.BusinessInfoURL
	case cfg.UseS3Knowledge():
		src = knowledge.S3Source{Client: s3, Bucket: cfg.KnowledgeS3Bucket, Prefix: cfg.KnowledgeS3Prefix}
		clientName, businessName = path.Base(filepath.ToSlash(clientName)), path.Base(filepath.ToSlash(businessName))
	default:
		src = knowledge.FileSource{}
	}
	return knowledge.Load(ctx, src, clientName, businessName)
}

func setupMetrics() (http.Handler, *metrics.ChatMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewChatMetrics(reg)
}

// connectPostgresPool returns nil when no URL is configured or the database
// is unreachable; callers fall back to in-memory storage.
func connectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if url == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("postgres unreachable, using in-memory leads", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// openAuditDB opens the database/sql handle the consent audit writes to.
func openAuditDB(url string, logger *logging.Logger) *sql.DB {
	if url == "" {
		return nil
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		logger.Error("failed to open audit database", "error", err)
		return nil
	}
	db.SetMaxOpenConns(5)
	return db
}

func leadRepository(pool *pgxpool.Pool) leads.Repository {
	if pool == nil {
		return leads.NewInMemoryRepository()
	}
	return leads.NewPostgresRepository(pool)
}

// buildSinks assembles every configured lead destination. The repository
// sink is always present so a lead is never only in flight.
func buildSinks(cfg *appconfig.Config, client *knowledge.ClientConfig, repo leads.Repository, aws mainconfig.AWSClients, logger *logging.Logger) []leads.Sink {
	sinks := []leads.Sink{leads.NewRepositorySink(repo)}
	if client.FormSubmissionEnabled() {
		sinks = append(sinks, leads.NewFormSink(client.GoogleFormEndpoint, &http.Client{Timeout: cfg.LeadSubmitTimeout}))
	}
	if cfg.LeadQueueURL != "" && aws.SQS != nil {
		sinks = append(sinks, leads.NewQueueSink(aws.SQS, cfg.LeadQueueURL))
	}
	var ses notify.SESAPI
	if aws.SES != nil {
		ses = aws.SES
	}
	if n := notify.NewLeadNotifier(notify.NewEmailSender(cfg, ses, logger), cfg.LeadNotifyEmail); n != nil {
		sinks = append(sinks, n)
	}
	return sinks
}

// setupSessionStore returns Redis when REDIS_ADDR is set, otherwise an
// in-process store. ready is nil for the in-process store.
func setupSessionStore(ctx context.Context, cfg *appconfig.Config, businessName string, logger *logging.Logger) (session.Store, func(context.Context) error, func()) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, sessions will not survive a restart")
		return session.NewMemoryStore(), nil, func() {}
	}
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "error", err)
	}
	ready := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	store := session.NewRedisStore(client, businessName, otel.Tracer("smartchat.internal.session"))
	return store, ready, func() { _ = client.Close() }
}
