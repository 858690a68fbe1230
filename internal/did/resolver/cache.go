package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	didmetrics "attestor/internal/did/metrics"
	"attestor/internal/did/models"
	id "attestor/pkg/domain"
)

const redisKeyPrefix = "did:doc:"

var tracer = otel.Tracer("attestor/did/resolver")

// CachingResolver fronts a Resolver with an in-process expirable LRU and an
// optional shared Redis layer. Concurrent misses for the same DID share one
// upstream call. Failures are never cached.
type CachingResolver struct {
	next    Resolver
	local   *expirable.LRU[id.DID, *models.Document]
	redis   *redis.Client
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	metrics *didmetrics.Metrics
}

type CacheOption func(*CachingResolver)

// WithRedis adds a shared cache layer behind the in-process one.
func WithRedis(client *redis.Client) CacheOption {
	return func(c *CachingResolver) { c.redis = client }
}

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *CachingResolver) { c.logger = logger }
}

func WithCacheMetrics(m *didmetrics.Metrics) CacheOption {
	return func(c *CachingResolver) { c.metrics = m }
}

func NewCachingResolver(next Resolver, size int, ttl time.Duration, opts ...CacheOption) *CachingResolver {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &CachingResolver{
		next:   next,
		local:  expirable.NewLRU[id.DID, *models.Document](size, nil, ttl),
		ttl:    ttl,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachingResolver) Resolve(ctx context.Context, did id.DID) (*models.Document, error) {
	ctx, span := tracer.Start(ctx, "did.resolve")
	defer span.End()
	span.SetAttributes(attribute.String("did.method", did.Method().String()))

	start := time.Now()
	defer func() { c.metrics.ObserveResolve(time.Since(start)) }()

	if doc, ok := c.local.Get(did); ok {
		span.SetAttributes(attribute.String("did.source", "cache"))
		c.metrics.IncResolution("cache", "hit")
		return doc.Clone(), nil
	}

	v, err, _ := c.group.Do(did.String(), func() (any, error) {
		if doc, ok := c.fromRedis(ctx, did); ok {
			span.SetAttributes(attribute.String("did.source", "redis"))
			c.local.Add(did, doc)
			return doc, nil
		}
		doc, err := c.next.Resolve(ctx, did)
		if err != nil {
			c.metrics.IncResolution("resolver", "error")
			return nil, err
		}
		span.SetAttributes(attribute.String("did.source", "resolver"))
		c.metrics.IncResolution("resolver", "ok")
		c.local.Add(did, doc.Clone())
		c.toRedis(ctx, did, doc)
		return doc, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolution failed")
		return nil, err
	}
	return v.(*models.Document).Clone(), nil
}

// Invalidate drops did from every cache layer.
func (c *CachingResolver) Invalidate(ctx context.Context, did id.DID) {
	c.local.Remove(did)
	c.group.Forget(did.String())
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, redisKeyPrefix+did.String()).Err(); err != nil {
		c.logger.WarnContext(ctx, "failed to invalidate cached DID document", "did", did, "error", err)
	}
}

func (c *CachingResolver) fromRedis(ctx context.Context, did id.DID) (*models.Document, bool) {
	if c.redis == nil {
		return nil, false
	}
	raw, err := c.redis.Get(ctx, redisKeyPrefix+did.String()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "redis DID cache read failed", "did", did, "error", err)
		}
		return nil, false
	}
	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		c.logger.WarnContext(ctx, "discarding undecodable cached DID document", "did", did, "error", err)
		return nil, false
	}
	c.metrics.IncResolution("redis", "hit")
	return &doc, true
}

func (c *CachingResolver) toRedis(ctx context.Context, did id.DID, doc *models.Document) {
	if c.redis == nil {
		return
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, redisKeyPrefix+did.String(), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "redis DID cache write failed", "did", did, "error", err)
	}
}
