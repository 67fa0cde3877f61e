package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/dialogflow/types"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	// Addr is the Redis address, e.g. "localhost:6379".
	Addr string `yaml:"addr" json:"addr"`
	// Password is optional.
	Password string `yaml:"password" json:"password"`
	// DB selects the Redis database number.
	DB int `yaml:"db" json:"db"`
	// TTL is how long an idle session survives; 0 keeps sessions forever.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
	// KeyPrefix namespaces session keys.
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

// DefaultRedisConfig returns the Redis store defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		TTL:       30 * time.Minute,
		KeyPrefix: "dialogflow:session:",
	}
}

// RedisStore persists session contexts in Redis as JSON with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	config RedisConfig
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(config RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "dialogflow:session:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		config: config,
		logger: logger.With(zap.String("component", "session_store")),
	}, nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.config.KeyPrefix + sessionID
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Context, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, types.NewErrorf(types.ErrSessionNotFound, "session %s not found", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var sc Context
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	if sc.Entities == nil {
		sc.Entities = make(map[string]any)
	}
	return &sc, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, sc *Context) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sc.SessionID, err)
	}
	if err := s.client.Set(ctx, s.key(sc.SessionID), data, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
