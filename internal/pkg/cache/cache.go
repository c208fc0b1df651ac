// Package cache keeps the latest device and output state in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/anicoll/fancontrol/internal/pkg/model"
)

const (
	keyPrefix   = "fancontrol:"
	entitiesKey = keyPrefix + "entities"

	StateOnline  = "online"
	StateOffline = "offline"
)

var ErrMiss = errors.New("cache miss")

type Cache struct {
	c      *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		c:      client,
		ttl:    ttl,
		logger: zap.L(),
	}
}

func DeviceKey(name string) string { return keyPrefix + "device:" + name }

func OutputKey(name string) string { return keyPrefix + "output:" + name }

// Write stores the state of every device and every applied output. Keys
// expire after the configured TTL so a stopped daemon leaves no stale state.
func (c *Cache) Write(ctx context.Context, report *model.TickReport) error {
	_, err := c.c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, name := range report.Online {
			pipe.Set(ctx, DeviceKey(name), StateOnline, c.ttl)
		}
		for _, name := range report.Offline {
			pipe.Set(ctx, DeviceKey(name), StateOffline, c.ttl)
		}
		for _, out := range report.AppliedOutputs() {
			payload, err := json.Marshal(out)
			if err != nil {
				return err
			}
			pipe.Set(ctx, OutputKey(out.Output), payload, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write state to redis: %w", err)
	}
	return nil
}

// RegisterEntities records every known entity in a hash keyed by device/name.
func (c *Cache) RegisterEntities(ctx context.Context, entities []model.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	values := make(map[string]any, len(entities))
	for _, e := range entities {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		values[e.Device+"/"+e.Name] = payload
	}
	if err := c.c.HSet(ctx, entitiesKey, values).Err(); err != nil {
		return fmt.Errorf("failed to register entities in redis: %w", err)
	}
	c.logger.Debug("registered entities in redis", zap.Int("count", len(entities)))
	return nil
}

func (c *Cache) DeviceState(ctx context.Context, name string) (string, error) {
	state, err := c.c.Get(ctx, DeviceKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return state, err
}

func (c *Cache) Output(ctx context.Context, name string) (model.OutputValue, error) {
	var out model.OutputValue
	payload, err := c.c.Get(ctx, OutputKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return out, ErrMiss
	}
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(payload, &out)
	return out, err
}
