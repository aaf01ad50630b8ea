package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/feed"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	hashKeyPattern    = "session:%s:presence"
	channelKeyPattern = "session:%s:presence:events"

	// DefaultTTL is how long an entry stays visible without a refresh
	DefaultTTL = 2 * time.Minute

	watchBuffer = 32
)

var errChannelClosed = errors.New("presence channel closed")

// RedisRepoConfig holds configuration for the Redis presence repository
type RedisRepoConfig struct {
	Client       redis.UniversalClient
	TimeProvider TimeProvider
	TTL          time.Duration
	Logger       *zap.Logger
}

type redisRepo struct {
	client       redis.UniversalClient
	timeProvider TimeProvider
	ttl          time.Duration
	logger       *zap.Logger
}

// NewRedisRepository creates a presence channel backed by a Redis hash and pub/sub
func NewRedisRepository(cfg *RedisRepoConfig) Repository {
	if cfg.Client == nil {
		panic("redis client is required")
	}

	repo := &redisRepo{
		client:       cfg.Client,
		timeProvider: cfg.TimeProvider,
		ttl:          cfg.TTL,
		logger:       cfg.Logger,
	}
	if repo.timeProvider == nil {
		repo.timeProvider = &RealTimeProvider{}
	}
	if repo.ttl <= 0 {
		repo.ttl = DefaultTTL
	}
	if repo.logger == nil {
		repo.logger = zap.NewNop()
	}
	return repo
}

// NewRedis creates a presence repository with default TTL and clock
func NewRedis(client redis.UniversalClient, logger *zap.Logger) Repository {
	return NewRedisRepository(&RedisRepoConfig{
		Client: client,
		Logger: logger,
	})
}

func hashKey(sessionID string) string {
	return fmt.Sprintf(hashKeyPattern, sessionID)
}

func channelKey(sessionID string) string {
	return fmt.Sprintf(channelKeyPattern, sessionID)
}

// Track stores the snapshot, refreshes the hash TTL and notifies watchers
func (r *redisRepo) Track(ctx context.Context, sessionID string, p *session.Presence) error {
	if err := validate(sessionID, p); err != nil {
		return err
	}

	stamped := *p
	stamped.PublishedAt = r.timeProvider.Now()

	entry, err := json.Marshal(&stamped)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}
	event, err := json.Marshal(session.PresenceEvent{Identity: p.Identity, Presence: &stamped})
	if err != nil {
		return fmt.Errorf("failed to marshal presence event: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, hashKey(sessionID), p.Identity, string(entry))
	pipe.Expire(ctx, hashKey(sessionID), r.ttl)
	pipe.Publish(ctx, channelKey(sessionID), string(event))
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to track presence: %w", err)
	}

	return nil
}

// Untrack drops identity and publishes a leave event
func (r *redisRepo) Untrack(ctx context.Context, sessionID, identity string) error {
	if sessionID == "" {
		return errSessionRequired
	}
	if identity == "" {
		return errIdentityRequired
	}

	event, err := json.Marshal(session.PresenceEvent{Identity: identity})
	if err != nil {
		return fmt.Errorf("failed to marshal presence event: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.HDel(ctx, hashKey(sessionID), identity)
	pipe.Publish(ctx, channelKey(sessionID), string(event))
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to untrack presence: %w", err)
	}

	return nil
}

// List reads the hash and hides entries not refreshed within the TTL
func (r *redisRepo) List(ctx context.Context, sessionID string) ([]*session.Presence, error) {
	if sessionID == "" {
		return nil, errSessionRequired
	}

	entries, err := r.client.HGetAll(ctx, hashKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list presence: %w", err)
	}

	cutoff := r.timeProvider.Now().Add(-r.ttl)
	out := make([]*session.Presence, 0, len(entries))
	for identity, raw := range entries {
		var p session.Presence
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			r.logger.Warn("skipping undecodable presence",
				zap.String("session_id", sessionID),
				zap.String("identity", identity),
				zap.Error(err))
			continue
		}
		if p.PublishedAt.Before(cutoff) {
			continue
		}
		out = append(out, &p)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Identity < out[j].Identity
	})
	return out, nil
}

// Watch subscribes to the session's presence channel
func (r *redisRepo) Watch(ctx context.Context, sessionID string) (*Watch, error) {
	if sessionID == "" {
		return nil, errSessionRequired
	}

	pubsub := r.client.Subscribe(ctx, channelKey(sessionID))
	// Receive confirms the subscription before any Track can be missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to watch presence: %w", err)
	}

	w := feed.New[session.PresenceEvent](ctx, watchBuffer)
	go func() {
		defer pubsub.Close()
		w.End(r.forward(w, sessionID, pubsub.Channel()))
	}()

	return w, nil
}

func (r *redisRepo) forward(w *Watch, sessionID string, ch <-chan *redis.Message) error {
	ctx := w.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errChannelClosed
			}

			var event session.PresenceEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Warn("skipping undecodable presence event",
					zap.String("session_id", sessionID),
					zap.Error(err))
				continue
			}
			if !w.Send(event) {
				return nil
			}
		}
	}
}
