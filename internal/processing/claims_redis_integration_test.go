//go:build integration

package processing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "filer/pkg/domain"
	"filer/pkg/testutil/containers"
)

type RedisClaimsSuite struct {
	suite.Suite
	ctx    context.Context
	redis  *containers.RedisContainer
	claims *RedisClaims
}

func TestRedisClaimsSuite(t *testing.T) {
	suite.Run(t, new(RedisClaimsSuite))
}

func (s *RedisClaimsSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.GetManager().Redis(s.T())
	s.claims = NewRedisClaims(s.redis.Client.Client, time.Minute)
}

func (s *RedisClaimsSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisClaimsSuite) TestClaimIsExclusive() {
	release, ok, err := s.claims.Acquire(s.ctx, id.FilingID(1))
	s.Require().NoError(err)
	s.Require().True(ok)

	_, ok, err = s.claims.Acquire(s.ctx, id.FilingID(1))
	s.Require().NoError(err)
	s.False(ok)

	other, ok, err := s.claims.Acquire(s.ctx, id.FilingID(2))
	s.Require().NoError(err)
	s.True(ok)
	other()

	release()
	again, ok, err := s.claims.Acquire(s.ctx, id.FilingID(1))
	s.Require().NoError(err)
	s.True(ok)
	again()
}

func (s *RedisClaimsSuite) TestReleaseLeavesAnotherHoldersClaim() {
	short := NewRedisClaims(s.redis.Client.Client, 50*time.Millisecond)
	stale, ok, err := short.Acquire(s.ctx, id.FilingID(3))
	s.Require().NoError(err)
	s.Require().True(ok)

	s.Eventually(func() bool {
		n, err := s.redis.Client.Exists(s.ctx, claimKeyPrefix+"3").Result()
		return err == nil && n == 0
	}, 2*time.Second, 20*time.Millisecond)

	fresh, ok, err := s.claims.Acquire(s.ctx, id.FilingID(3))
	s.Require().NoError(err)
	s.Require().True(ok)
	defer fresh()

	stale()
	_, ok, err = s.claims.Acquire(s.ctx, id.FilingID(3))
	s.Require().NoError(err)
	s.False(ok)
}
