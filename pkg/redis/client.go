// Package redis is the shared tier of the topic vector cache. Vectors are
// stored as packed little-endian float64 values under build-scoped keys.
package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

const (
	pingTimeout = 5 * time.Second
	scanBatch   = 256
)

type Client struct {
	rdb redis.UniversalClient
}

// NewClient connects to cfg.Addr and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// GetVector returns the vector stored under key. A missing key yields
// ok false and a nil error.
func (c *Client) GetVector(ctx context.Context, key string) ([]float64, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	v, err := decodeVector(data)
	if err != nil {
		return nil, false, fmt.Errorf("key %s: %w", key, err)
	}
	return v, true, nil
}

func (c *Client) SetVector(ctx context.Context, key string, v []float64, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, encodeVector(v), ttl).Err()
}

// DeletePrefix unlinks every key starting with prefix and returns how many
// were removed. Keys are collected with SCAN and unlinked in batches.
func (c *Client) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	var deleted int64
	iter := c.rdb.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.rdb.Unlink(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("unlinking %d keys under %s: %w", len(batch), prefix, err)
		}
		deleted += n
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scanning %s*: %w", prefix, err)
	}
	return deleted, flush()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func encodeVector(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(x))
	}
	return buf
}

func decodeVector(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, apperrors.Newf(apperrors.ErrCorruptFile, "vector payload of %d bytes", len(data))
	}
	v := make([]float64, len(data)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
	}
	return v, nil
}
