//go:build integration

package resolver_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attestor/internal/did/models"
	"attestor/internal/did/resolver"
	"attestor/internal/proof"
	id "attestor/pkg/domain"
	"attestor/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestSharedLayer() {
	ctx := context.Background()
	var calls atomic.Int32
	upstream := resolver.Func(func(_ context.Context, did id.DID) (*models.Document, error) {
		calls.Add(1)
		return models.NewDocument(did, proof.Ed25519KeyType, "z6MkShared"), nil
	})

	first := resolver.NewCachingResolver(upstream, 16, time.Minute, resolver.WithRedis(s.redis.Client.Client))
	second := resolver.NewCachingResolver(upstream, 16, time.Minute, resolver.WithRedis(s.redis.Client.Client))

	doc, err := first.Resolve(ctx, "did:email:shared")
	s.Require().NoError(err)

	s.Run("a second instance reads the shared layer", func() {
		got, err := second.Resolve(ctx, "did:email:shared")
		s.Require().NoError(err)
		s.Equal(doc, got)
		s.Equal(int32(1), calls.Load())
	})

	s.Run("invalidation clears the shared layer", func() {
		first.Invalidate(ctx, "did:email:shared")
		n, err := s.redis.Client.Exists(ctx, "did:doc:did:email:shared").Result()
		s.Require().NoError(err)
		s.Zero(n)
	})
}
