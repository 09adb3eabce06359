package cache

import (
	"context"
	"fmt"

	"go-clm/internal/config"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
)

// CacheService invalidates org-scoped caches after a committed workflow
// transition. Readers compare the version key against the version they cached
// under, so invalidation is a single INCR.
type CacheService interface {
	InvalidateOrg(ctx context.Context, orgID primitive.ObjectID) error
	OrgVersion(ctx context.Context, orgID primitive.ObjectID) (int64, error)
}

type CacheServiceImpl struct {
	client *redis.Client
}

func NewCacheService(lc fx.Lifecycle, cfg *config.Config) CacheService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return &CacheServiceImpl{client: client}
}

func orgVersionKey(orgID primitive.ObjectID) string {
	return fmt.Sprintf("org:%s:cache_version", orgID.Hex())
}

func (s *CacheServiceImpl) InvalidateOrg(ctx context.Context, orgID primitive.ObjectID) error {
	return s.client.Incr(ctx, orgVersionKey(orgID)).Err()
}

func (s *CacheServiceImpl) OrgVersion(ctx context.Context, orgID primitive.ObjectID) (int64, error) {
	v, err := s.client.Get(ctx, orgVersionKey(orgID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}
