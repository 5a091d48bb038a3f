package dictionary

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Siyun/carbondata/utils"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

type (
	// RedisStore holds one hash per table column, keyed by surrogate.
	RedisStore struct {
		client *redis.Client
	}
)

func NewRedisStore(ctx context.Context) (*RedisStore, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Msg("connecting to redis dictionary store")
	rs := &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:        utils.REDIS_ADDR,
			Password:    utils.REDIS_PASSWORD,
			DB:          0,
			DialTimeout: time.Second * 3,
		}),
	}

	// Ping test first to ensure valid connection
	if os.Getenv("REDIS_PING_TEST") == "1" {
		logger.Debug().Msg("running redis ping test")
		s := time.Now()
		_, err := rs.client.Ping(ctx).Result()
		if err != nil {
			rs.client.Close()
			return nil, fmt.Errorf("error pinging redis: %w", err)
		}
		logger.Debug().Msgf("redis ping test successful in %s", time.Since(s))
	}

	return rs, nil
}

func (rs *RedisStore) ColumnKey(table, column string) string {
	return "dict_" + table + "_" + column
}

func (rs *RedisStore) Lookup(ctx context.Context, table, column string, surrogate int64) (string, error) {
	val, err := rs.client.HGet(ctx, rs.ColumnKey(table, column), strconv.FormatInt(surrogate, 10)).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("surrogate %d for column '%s': %w", surrogate, column, ErrSurrogateNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("error in redis HGET: %w", err)
	}
	return val, nil
}

// Insert registers surrogate mappings for a column, used by loads and tests.
func (rs *RedisStore) Insert(ctx context.Context, table, column string, values map[int64]string) error {
	hash := make([]any, 0, len(values)*2)
	for surrogate, val := range values {
		hash = append(hash, strconv.FormatInt(surrogate, 10), val)
	}

	_, err := rs.client.HSet(ctx, rs.ColumnKey(table, column), hash...).Result()
	if err != nil {
		return fmt.Errorf("error in redis HSET: %w", err)
	}

	return nil
}

func (rs *RedisStore) Shutdown(_ context.Context) error {
	err := rs.client.Close()
	if err != nil {
		return fmt.Errorf("error closing redis client: %w", err)
	}
	return nil
}
