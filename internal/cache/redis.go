package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Redis is a cache shared between server instances.
type Redis struct {
	rdb    *goredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis connects to addr and checks the connection.
func NewRedis(ctx context.Context, addr string, ttl time.Duration, logger *slog.Logger) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{rdb: rdb, ttl: ttl, logger: logger}, nil
}

// Ping checks the connection. The server's health probe calls it.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func generationRedisKey(scope string, group Group) string {
	return "gen:" + scope + ":" + string(group)
}

func (r *Redis) generation(ctx context.Context, scope string, group Group) (int64, error) {
	raw, err := r.rdb.Get(ctx, generationRedisKey(scope, group)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (r *Redis) Get(ctx context.Context, key Key) ([]byte, int64, bool) {
	gen, err := r.generation(ctx, key.Scope, key.Group)
	if err != nil {
		r.logger.Warn("cache generation lookup failed", "scope", key.Scope, "group", key.Group, "error", err)
		return nil, -1, false
	}
	raw, err := r.rdb.Get(ctx, key.format(gen)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			r.logger.Warn("cache get failed", "op", key.Op, "error", err)
		}
		return nil, gen, false
	}
	return raw, gen, true
}

func (r *Redis) Set(ctx context.Context, key Key, gen int64, value []byte) {
	if err := r.rdb.Set(ctx, key.format(gen), value, r.ttl).Err(); err != nil {
		r.logger.Warn("cache set failed", "op", key.Op, "error", err)
	}
}

func (r *Redis) Invalidate(ctx context.Context, scope string, groups ...Group) {
	pipe := r.rdb.TxPipeline()
	for _, g := range groupsOrAll(groups) {
		pipe.Incr(ctx, generationRedisKey(scope, g))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("cache invalidation failed", "scope", scope, "error", err)
	}
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
