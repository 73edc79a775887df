package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type RedisConnection struct {
	Host     string
	Port     int
	Username string
	Password string
	Database int
}

func NewRedisClient(rc RedisConnection) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", rc.Host, rc.Port),
		Username: rc.Username,
		Password: rc.Password,
		DB:       rc.Database,
	})
}

// RedisStore keeps each record's json envelope under <prefix>:<id>.
type RedisStore[T ValidatingSpec] struct {
	client redis.Cmdable
	prefix string
}

func NewRedisStore[T ValidatingSpec](client redis.Cmdable, prefix string) *RedisStore[T] {
	return &RedisStore[T]{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore[T]) key(id string) string {
	if s.prefix == "" {
		return id
	}
	return fmt.Sprintf("%s:%s", s.prefix, id)
}

func (s *RedisStore[T]) Save(ctx context.Context, id string, o T) error {
	if err := validateId(id); err != nil {
		return err
	}

	jsonData, err := encodeAsset(id, o)
	if err != nil {
		return err
	}

	err = s.client.Set(ctx, s.key(id), jsonData, 0).Err()
	if err != nil {
		return fmt.Errorf("setting %s: %w", s.key(id), err)
	}
	return nil
}

func (s *RedisStore[T]) Load(ctx context.Context, id string) (T, error) {
	var zero T

	jsonData, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("getting %s: %w", s.key(id), err)
	}

	return decodeAsset[T](id, jsonData)
}

func (s *RedisStore[T]) Delete(ctx context.Context, id string) error {
	err := s.client.Del(ctx, s.key(id)).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("deleting %s: %w", s.key(id), err)
	}
	return nil
}
