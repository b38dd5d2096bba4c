package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DisplayNameTTL       = 6 * time.Hour
	DisplayNameKeyPrefix = "profile:name"
)

type RedisRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func RedisNewRepo(client *redis.Client) *RedisRepo {
	return &RedisRepo{
		client: client,
		ttl:    DisplayNameTTL,
	}
}

func (r *RedisRepo) displayNameKey(userID string) string {
	return fmt.Sprintf("%s:%s", DisplayNameKeyPrefix, userID)
}

func (r *RedisRepo) GetDisplayName(ctx context.Context, userID string) (string, bool, error) {
	name, err := r.client.Get(ctx, r.displayNameKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

func (r *RedisRepo) SetDisplayName(ctx context.Context, userID, name string) error {
	return r.client.Set(ctx, r.displayNameKey(userID), name, r.ttl).Err()
}

func (r *RedisRepo) InvalidateDisplayName(ctx context.Context, userID string) error {
	err := r.client.Del(ctx, r.displayNameKey(userID)).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
