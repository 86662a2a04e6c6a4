package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/songzhibin97/offboarding/types"
)

// DefaultRedisPrefix namespaces every key written by RedisStorage.
const DefaultRedisPrefix = "offboarding"

// RedisStorage is a Redis-backed implementation of the Storage interface.
// Each instance is a JSON string under <prefix>:instance:<id>; the set
// <prefix>:instances indexes the ids.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// RedisOptions extends redis.Options with additional configuration.
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	Prefix       string
	PoolSize     int
	MinIdleConns int
	IdleTimeout  time.Duration
}

// NewRedisStorage creates a new RedisStorage instance with configurable options.
func NewRedisStorage(opts RedisOptions) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		IdleTimeout:  opts.IdleTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStorage{client: client, prefix: prefix}, nil
}

func (s *RedisStorage) instanceKey(id string) string {
	return s.prefix + ":instance:" + id
}

func (s *RedisStorage) indexKey() string {
	return s.prefix + ":instances"
}

// SaveInstance saves an instance to Redis.
func (s *RedisStorage) SaveInstance(ctx context.Context, inst *types.Instance) error {
	return s.SaveInstances(ctx, []*types.Instance{inst})
}

// GetInstance retrieves an instance from Redis.
func (s *RedisStorage) GetInstance(ctx context.Context, id string) (*types.Instance, error) {
	return withContext(ctx, func() (*types.Instance, error) {
		key := s.instanceKey(id)
		data, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: key=%s", ErrInstanceNotFound, key)
		} else if err != nil {
			return nil, fmt.Errorf("failed to get %s from Redis: %w", key, err)
		}
		return decodeInstance(key, data)
	})
}

// ListInstances returns every indexed instance ordered by id. Index entries
// whose record has vanished are skipped.
func (s *RedisStorage) ListInstances(ctx context.Context) ([]*types.Instance, error) {
	return withContext(ctx, func() ([]*types.Instance, error) {
		ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read instance index: %w", err)
		}
		if len(ids) == 0 {
			return []*types.Instance{}, nil
		}
		sort.Strings(ids)

		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = s.instanceKey(id)
		}
		values, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to load instances: %w", err)
		}

		res := make([]*types.Instance, 0, len(values))
		for i, v := range values {
			str, ok := v.(string)
			if !ok {
				continue
			}
			inst, err := decodeInstance(keys[i], []byte(str))
			if err != nil {
				return nil, err
			}
			res = append(res, inst)
		}
		return res, nil
	})
}

// SaveInstances saves multiple instances to Redis using pipelining.
func (s *RedisStorage) SaveInstances(ctx context.Context, insts []*types.Instance) error {
	return withContextError(ctx, func() error {
		if len(insts) == 0 {
			return nil
		}
		pipe := s.client.TxPipeline()
		for _, inst := range insts {
			data, err := json.Marshal(inst)
			if err != nil {
				return fmt.Errorf("failed to marshal instance %s: %w", inst.ID, err)
			}
			pipe.Set(ctx, s.instanceKey(inst.ID), data, 0)
			pipe.SAdd(ctx, s.indexKey(), inst.ID)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to execute pipeline for instances: %w", err)
		}
		return nil
	})
}

// Close closes the Redis client connection.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

func decodeInstance(key string, data []byte) (*types.Instance, error) {
	var inst types.Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return &inst, nil
}
