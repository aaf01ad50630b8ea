package services

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/KirkDiggler/sheet-sync/internal/domain/character"
	"github.com/KirkDiggler/sheet-sync/internal/events"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/messages"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/presence"
	"github.com/KirkDiggler/sheet-sync/internal/services/connection"
)

// Provider holds the shared repositories every connection in a process uses
type Provider struct {
	Messages messages.Repository
	Presence presence.Repository

	logger          *zap.Logger
	historyLimit    int
	retryAttempts   uint64
	presenceRefresh time.Duration
}

// ProviderConfig holds configuration for creating services
type ProviderConfig struct {
	RedisClient redis.UniversalClient

	MessagesRepository messages.Repository
	PresenceRepository presence.Repository

	StreamMaxLen  int64
	PresenceTTL   time.Duration
	HistoryLimit  int
	RetryAttempts uint64

	Logger *zap.Logger
}

// NewProvider wires repositories. Explicit repositories win, then redis,
// then in-memory stores that only sync connections inside this process.
func NewProvider(cfg *ProviderConfig) *Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	msgRepo := cfg.MessagesRepository
	if msgRepo == nil {
		if cfg.RedisClient != nil {
			msgRepo = messages.NewRedisRepository(&messages.RedisRepoConfig{
				Client: cfg.RedisClient,
				MaxLen: cfg.StreamMaxLen,
				Logger: logger,
			})
		} else {
			msgRepo = messages.NewInMemoryRepository(nil)
		}
	}

	presenceRepo := cfg.PresenceRepository
	if presenceRepo == nil {
		if cfg.RedisClient != nil {
			presenceRepo = presence.NewRedisRepository(&presence.RedisRepoConfig{
				Client: cfg.RedisClient,
				TTL:    cfg.PresenceTTL,
				Logger: logger,
			})
		} else {
			presenceRepo = presence.NewInMemoryRepository(nil)
		}
	}

	return &Provider{
		Messages:        msgRepo,
		Presence:        presenceRepo,
		logger:          logger,
		historyLimit:    cfg.HistoryLimit,
		retryAttempts:   cfg.RetryAttempts,
		presenceRefresh: cfg.PresenceTTL / 3,
	}
}

// ConnectionOptions are the per-client parts of a connection
type ConnectionOptions struct {
	SessionID string
	Identity  string
	Character *character.Character
	Bus       *events.Bus
	Notifier  connection.Notifier
}

// NewConnection builds a connection bound to the provider's repositories
func (p *Provider) NewConnection(opts *ConnectionOptions) *connection.Connection {
	return connection.New(&connection.Config{
		SessionID:       opts.SessionID,
		Identity:        opts.Identity,
		Character:       opts.Character,
		Messages:        p.Messages,
		Presence:        p.Presence,
		Bus:             opts.Bus,
		Notifier:        opts.Notifier,
		Logger:          p.logger,
		HistoryLimit:    p.historyLimit,
		RetryAttempts:   p.retryAttempts,
		PresenceRefresh: p.presenceRefresh,
	})
}
