package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const updateAttempts = 8

// DialRedis opens a client and verifies the server answers.
func DialRedis(ctx context.Context, addr string, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("kv: ping redis %s: %w", addr, err)
	}
	return client, nil
}

// RedisStore keeps each record under KeyPrefix+name. Records never expire.
// Update watches the named keys and writes them in one MULTI/EXEC, retrying
// when another client changed them first.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getRecord(ctx context.Context, c stringGetter, name string) ([]byte, error) {
	val, err := c.Get(ctx, KeyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: get %s: %w", name, err)
	}
	return val, nil
}

func (r *RedisStore) Get(ctx context.Context, name string) ([]byte, error) {
	return getRecord(ctx, r.client, name)
}

func (r *RedisStore) Set(ctx context.Context, name string, value []byte) error {
	if err := r.client.Set(ctx, KeyPrefix+name, value, 0).Err(); err != nil {
		return fmt.Errorf("kv: set %s: %w", name, err)
	}
	return nil
}

func (r *RedisStore) Update(ctx context.Context, names []string, fn func(Tx) error) error {
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = KeyPrefix + name
	}

	txf := func(rtx *redis.Tx) error {
		tx := &bufferedTx{read: func(ctx context.Context, name string) ([]byte, error) {
			return getRecord(ctx, rtx, name)
		}}
		if err := fn(tx); err != nil {
			return err
		}
		if len(tx.writes) == 0 {
			return nil
		}
		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, w := range tx.writes {
				pipe.Set(ctx, KeyPrefix+w.name, w.value, 0)
			}
			return nil
		})
		return err
	}

	for range updateAttempts {
		err := r.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return ErrConflict
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
