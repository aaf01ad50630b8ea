package messages

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedis creates a Redis-backed message log with default configuration
func NewRedis(client redis.UniversalClient, logger *zap.Logger) Repository {
	return NewRedisRepository(&RedisRepoConfig{
		Client: client,
		Logger: logger,
	})
}
