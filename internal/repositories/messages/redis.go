package messages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/feed"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// One stream per session; stream IDs are the server-assigned timestamps
	streamKeyPattern = "session:%s:messages"
	payloadField     = "payload"

	defaultBlock     = 5 * time.Second
	defaultBatchSize = 50
	feedBuffer       = 64
)

// Data is the stored form of a message. ID and CreatedAt come from the stream entry ID.
type Data struct {
	ClientID   string              `json:"client_id,omitempty"`
	SessionID  string              `json:"session_id"`
	SenderName string              `json:"sender_name"`
	Kind       session.MessageKind `json:"kind"`
	Content    string              `json:"content"`
	RollData   *session.RollData   `json:"roll_data,omitempty"`
	CombatData *session.CombatData `json:"combat_data,omitempty"`
}

// RedisRepoConfig holds configuration for the Redis repository
type RedisRepoConfig struct {
	Client redis.UniversalClient
	// MaxLen approximately caps each session stream; 0 keeps everything
	MaxLen int64
	// Block is how long one XREAD waits before looping
	Block  time.Duration
	Logger *zap.Logger
}

type redisRepository struct {
	client redis.UniversalClient
	maxLen int64
	block  time.Duration
	logger *zap.Logger
}

// NewRedisRepository creates a message log backed by Redis Streams
func NewRedisRepository(cfg *RedisRepoConfig) Repository {
	if cfg.Client == nil {
		panic("redis client is required")
	}

	repo := &redisRepository{
		client: cfg.Client,
		maxLen: cfg.MaxLen,
		block:  cfg.Block,
		logger: cfg.Logger,
	}
	if repo.block <= 0 {
		repo.block = defaultBlock
	}
	if repo.logger == nil {
		repo.logger = zap.NewNop()
	}
	return repo
}

func streamKey(sessionID string) string {
	return fmt.Sprintf(streamKeyPattern, sessionID)
}

// Append adds msg to the session stream
func (r *redisRepository) Append(ctx context.Context, msg *session.Message) (*session.Message, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}

	data, err := json.Marshal(toData(msg))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: streamKey(msg.SessionID),
		ID:     "*",
		Values: []interface{}{payloadField, string(data)},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	id, err := r.client.XAdd(ctx, args).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	createdAt, err := timeFromID(id)
	if err != nil {
		return nil, err
	}

	stored := *msg
	stored.ID = id
	stored.CreatedAt = createdAt
	return &stored, nil
}

// History reads the tail of the session stream
func (r *redisRepository) History(ctx context.Context, sessionID string, limit int) ([]*session.Message, error) {
	if sessionID == "" {
		return nil, errSessionRequired
	}

	key := streamKey(sessionID)

	var entries []redis.XMessage
	var err error
	if limit > 0 {
		entries, err = r.client.XRevRangeN(ctx, key, "+", "-", int64(limit)).Result()
		slices.Reverse(entries)
	} else {
		entries, err = r.client.XRange(ctx, key, "-", "+").Result()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read message history: %w", err)
	}

	out := make([]*session.Message, 0, len(entries))
	for _, entry := range entries {
		msg, decodeErr := fromEntry(entry)
		if decodeErr != nil {
			r.logger.Warn("skipping undecodable message",
				zap.String("session_id", sessionID),
				zap.String("id", entry.ID),
				zap.Error(decodeErr))
			continue
		}
		out = append(out, msg)
	}

	return out, nil
}

// Subscribe tails the stream with blocking XREAD from the cursor
func (r *redisRepository) Subscribe(ctx context.Context, sessionID, after string) (*Subscription, error) {
	if sessionID == "" {
		return nil, errSessionRequired
	}

	key := streamKey(sessionID)
	cursor := after
	if cursor == "" {
		// Pin "now" to a concrete ID so nothing slips in between reads
		latest, err := r.client.XRevRangeN(ctx, key, "+", "-", 1).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve stream tail: %w", err)
		}
		cursor = Beginning
		if len(latest) > 0 {
			cursor = latest[0].ID
		}
	}

	sub := feed.New[*session.Message](ctx, feedBuffer)
	go func() {
		sub.End(r.tail(sub, sessionID, key, cursor))
	}()

	return sub, nil
}

func (r *redisRepository) tail(sub *Subscription, sessionID, key, cursor string) error {
	ctx := sub.Context()
	for {
		streams, err := r.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{key, cursor},
			Count:   defaultBatchSize,
			Block:   r.block,
		}).Result()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("failed to read message stream: %w", err)
		}

		for _, stream := range streams {
			for _, entry := range stream.Messages {
				cursor = entry.ID
				msg, decodeErr := fromEntry(entry)
				if decodeErr != nil {
					r.logger.Warn("skipping undecodable message",
						zap.String("session_id", sessionID),
						zap.String("id", entry.ID),
						zap.Error(decodeErr))
					continue
				}
				if !sub.Send(msg) {
					return nil
				}
			}
		}
	}
}

func toData(msg *session.Message) *Data {
	return &Data{
		ClientID:   msg.ClientID,
		SessionID:  msg.SessionID,
		SenderName: msg.SenderName,
		Kind:       msg.Kind,
		Content:    msg.Content,
		RollData:   msg.RollData,
		CombatData: msg.CombatData,
	}
}

func fromEntry(entry redis.XMessage) (*session.Message, error) {
	raw, ok := entry.Values[payloadField].(string)
	if !ok {
		return nil, fmt.Errorf("entry %s has no %s field", entry.ID, payloadField)
	}

	var data Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	createdAt, err := timeFromID(entry.ID)
	if err != nil {
		return nil, err
	}

	return &session.Message{
		ID:         entry.ID,
		ClientID:   data.ClientID,
		SessionID:  data.SessionID,
		SenderName: data.SenderName,
		Kind:       data.Kind,
		Content:    data.Content,
		CreatedAt:  createdAt,
		RollData:   data.RollData,
		CombatData: data.CombatData,
	}, nil
}

// timeFromID reads the millisecond part of a "<ms>-<seq>" stream ID
func timeFromID(id string) (time.Time, error) {
	ms, _, found := strings.Cut(id, "-")
	if !found {
		return time.Time{}, fmt.Errorf("malformed stream id %q", id)
	}
	millis, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed stream id %q: %w", id, err)
	}
	return time.UnixMilli(millis).UTC(), nil
}
