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

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"attestor/internal/anchor"
	"attestor/internal/audit"
	credhandler "attestor/internal/credential/handler"
	credmetrics "attestor/internal/credential/metrics"
	credservice "attestor/internal/credential/service"
	"attestor/internal/credential/share"
	didhandler "attestor/internal/did/handler"
	didmetrics "attestor/internal/did/metrics"
	"attestor/internal/did/resolver"
	didservice "attestor/internal/did/service"
	permhandler "attestor/internal/permission/handler"
	permmetrics "attestor/internal/permission/metrics"
	permservice "attestor/internal/permission/service"
	"attestor/internal/platform/config"
	"attestor/internal/platform/httpserver"
	"attestor/internal/platform/kafka"
	"attestor/internal/platform/logger"
	"attestor/internal/platform/metrics"
	"attestor/internal/platform/redis"
	"attestor/internal/proof"
	httptransport "attestor/internal/transport/http"
	"attestor/internal/verification"
	verifyhandler "attestor/internal/verification/handler"
	id "attestor/pkg/domain"
)

const (
	shutdownTimeout  = 10 * time.Second
	auditBufferSize  = 4096
	auditPartitions  = 3
	auditReplication = 1
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.Environment, cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.DefaultRegisterer
	checks := map[string]httptransport.HealthCheck{}

	stores, err := openStores(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer stores.Close()
	if stores.Ping != nil {
		checks["postgres"] = stores.Ping
	}

	cache, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
		checks["redis"] = cache.Health
	}

	g, gctx := errgroup.WithContext(ctx)

	// Audit log, streamed to Kafka when brokers are configured.
	auditMetrics := audit.NewMetrics(reg)
	auditOpts := []audit.Option{audit.WithLogger(log), audit.WithMetrics(auditMetrics)}
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, "attestor")
		if err != nil {
			return err
		}
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, cfg.Kafka.AuditTopic, auditPartitions, auditReplication); err != nil {
			log.Warn("audit topic not ensured", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		checks["kafka"] = producer.Health

		streamer := audit.NewKafkaStreamer(producer, cfg.Kafka.AuditTopic)
		if stores.Outbox != nil {
			relay := audit.NewOutboxRelay(stores.Outbox, streamer, log, auditMetrics)
			g.Go(func() error { return relay.Run(gctx) })
		} else {
			buffered := audit.NewBufferedStreamer(streamer, auditBufferSize,
				audit.WithStreamLogger(log),
				audit.WithStreamMetrics(auditMetrics),
			)
			auditOpts = append(auditOpts, audit.WithStreamer(buffered))
			g.Go(func() error { return buffered.Run(gctx) })
		}
	}
	auditLog := audit.NewLog(stores.Audit, auditOpts...)

	proofs := proof.New()

	// DID registry behind a method-dispatching, cached resolver.
	didMetrics := didmetrics.New(reg)
	registry := resolver.NewRegistry()
	cacheOpts := []resolver.CacheOption{resolver.WithCacheLogger(log), resolver.WithCacheMetrics(didMetrics)}
	if cache != nil {
		cacheOpts = append(cacheOpts, resolver.WithRedis(cache.Client))
	}
	didResolver := resolver.NewCachingResolver(registry, cfg.DIDCache.Size, cfg.DIDCache.TTL, cacheOpts...)

	dids := didservice.New(stores.DIDs, proofs,
		didservice.WithLogger(log),
		didservice.WithMetrics(didMetrics),
		didservice.WithCacheInvalidator(didResolver),
		didservice.WithKeyTimeout(cfg.Timeouts.Proof),
		didservice.WithMinRecoveryFactors(cfg.Recovery.MinFactors),
	)
	registry.
		Register(id.DIDMethodEthr, dids).
		Register(id.DIDMethodEmail, dids).
		Register(id.DIDMethodWeb, dids).
		Register(id.DIDMethodKey, resolver.NewKeyResolver())

	credentials := credservice.New(stores.Credentials, didResolver, proofs,
		credservice.WithLogger(log),
		credservice.WithMetrics(credmetrics.New(reg)),
		credservice.WithAnchorer(newAnchorer(cfg, log)),
		credservice.WithShareLinks(share.NewTokenService(cfg.Share.SigningKey, cfg.Share.TTL), cfg.Share.BaseURL),
		credservice.WithTimeouts(cfg.Timeouts.Resolve, cfg.Timeouts.Proof, cfg.Timeouts.Anchor),
	)

	verifier := verification.New(credentials, didResolver, proofs,
		verification.WithLogger(log),
		verification.WithMetrics(verification.NewMetrics(reg)),
		verification.WithAuditRecorder(auditLog),
		verification.WithTimeouts(cfg.Timeouts.Resolve, cfg.Timeouts.Proof),
	)

	permissions := permservice.New(stores.Permissions, auditLog,
		permservice.WithLogger(log),
		permservice.WithMetrics(permmetrics.New(reg)),
		permservice.WithDisclosure(credentials, proofs),
		permservice.WithProofTimeout(cfg.Timeouts.Proof),
	)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		Metrics:        metrics.NewWithRegisterer(reg),
		RequestTimeout: cfg.Server.RequestTimeout,
		HealthChecks:   checks,
	},
		didhandler.New(dids, log),
		credhandler.New(credentials, log),
		verifyhandler.New(verifier, log),
		permhandler.New(permissions, log),
	)

	srv := httpserver.New(cfg.Server, router)
	g.Go(func() error {
		log.Info("starting attestor", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newAnchorer(cfg config.Config, log *slog.Logger) anchor.Anchorer {
	if cfg.Ledger.URL == "" {
		return anchor.Disabled{}
	}
	return anchor.NewHTTPAnchorer(cfg.Ledger.URL,
		anchor.WithTimeout(cfg.Timeouts.Anchor),
		anchor.WithLogger(log),
	)
}
