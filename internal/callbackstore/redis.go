package callbackstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	entryKeyPrefix    = "planbot:cb:entry:"
	consumedKeyPrefix = "planbot:cb:used:"
)

// Redis хранит токены в Redis; срок жизни обеспечивает TTL ключей
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis создаёт хранилище поверх клиента Redis
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Save(ctx context.Context, batch string, data []byte) (string, error) {
	key := NewKey()
	raw, err := json.Marshal(Entry{Batch: batch, Data: data})
	if err != nil {
		return "", fmt.Errorf("marshal callback entry: %w", err)
	}
	if err := r.client.Set(ctx, entryKeyPrefix+key, raw, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("save callback entry: %w", err)
	}
	return key, nil
}

func (r *Redis) Load(ctx context.Context, key string) (Entry, error) {
	raw, err := r.client.Get(ctx, entryKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("load callback entry: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// Повреждённую запись считаем устаревшей
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (r *Redis) Consume(ctx context.Context, batch string) (bool, error) {
	first, err := r.client.SetNX(ctx, consumedKeyPrefix+batch, 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("consume callback batch: %w", err)
	}
	return first, nil
}
