package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/relaychat/coordinator/config"
	"github.com/relaychat/coordinator/src/types"
)

// RedisStore backs the two external collaborators the coordinator
// consumes: the user directory and the message store. Users live
// under "<prefix>user:<id>" hashes; messages get a sequence id from
// "<prefix>message:seq" and land under "<prefix>message:<id>".
type RedisStore struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewRedisStore creates a store over a fresh Redis client.
func NewRedisStore(cfg config.RedisConfig, logger zerolog.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{
		client: client,
		prefix: cfg.Prefix,
		logger: logger.With().Str("component", "redis-store").Logger(),
	}
}

// Ping verifies the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Resolve implements types.UserDirectory. Unknown users resolve to
// (nil, nil), not an error.
func (s *RedisStore) Resolve(ctx context.Context, userID string) (*types.UserProfile, error) {
	fields, err := s.client.HGetAll(ctx, s.prefix+"user:"+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", userID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	username := fields["username"]
	if username == "" {
		username = userID
	}
	return &types.UserProfile{ID: userID, Username: username}, nil
}

// Persist implements types.MessageStore. The message id and creation
// timestamp are assigned here, not by the caller.
func (s *RedisStore) Persist(ctx context.Context, userID, roomID, content string) (*types.StoredMessage, error) {
	id, err := s.client.Incr(ctx, s.prefix+"message:seq").Result()
	if err != nil {
		return nil, fmt.Errorf("allocate message id: %w", err)
	}

	createdAt := time.Now().UTC()
	key := fmt.Sprintf("%smessage:%d", s.prefix, id)
	err = s.client.HSet(ctx, key, map[string]any{
		"user_id":    userID,
		"room_id":    roomID,
		"content":    content,
		"created_at": createdAt.Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return nil, fmt.Errorf("persist message %d: %w", id, err)
	}

	s.logger.Debug().Int64("message_id", id).Str("room_id", roomID).Msg("message persisted")
	return &types.StoredMessage{ID: id, CreatedAt: createdAt}, nil
}
