package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "predlozhka:session:"

// RedisStore keeps interactions in redis with a TTL matching their deadline,
// so several bot replicas share them and expiry needs no sweeper.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		now:    time.Now,
	}
}

// NewRedisClient parses the url and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

func redisKey(actorID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, actorID)
}

func (s *RedisStore) Get(ctx context.Context, actorID int64) (*Interaction, error) {
	raw, err := s.client.Get(ctx, redisKey(actorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoInteraction
	}
	if err != nil {
		return nil, fmt.Errorf("reading interaction: %w", err)
	}

	var in Interaction
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decoding interaction: %w", err)
	}
	return &in, nil
}

func (s *RedisStore) Put(ctx context.Context, actorID int64, in *Interaction) error {
	ttl := in.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Clear(ctx, actorID)
	}

	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding interaction: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(actorID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("writing interaction: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, actorID int64) error {
	if err := s.client.Del(ctx, redisKey(actorID)).Err(); err != nil {
		return fmt.Errorf("deleting interaction: %w", err)
	}
	return nil
}
