package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"coinledger/service"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// RedisEnvelope is the list element format. A bare JSON payload without an
// envelope is accepted too and then carries no id or signature.
type RedisEnvelope struct {
	ID        string          `json:"id"`
	Signature string          `json:"signature"`
	Payload   json.RawMessage `json:"payload"`
}

// RedisSource pops terminal events from a Redis list
type RedisSource struct {
	client redis.Cmdable
	key    string
}

// NewRedisClient opens a client and checks it answers
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	log.WithField("addr", addr).Info("Redis connection established")
	return rdb, nil
}

// NewRedisSource creates a source reading the list at key
func NewRedisSource(client redis.Cmdable, key string) *RedisSource {
	return &RedisSource{client: client, key: key}
}

// Ping checks Redis answers
func (s *RedisSource) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Fetch pops up to max elements. An empty list yields no messages.
func (s *RedisSource) Fetch(ctx context.Context, max int) ([]service.QueueMessage, error) {
	raw, err := s.client.LPopCount(ctx, s.key, max).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from %s: %w", s.key, err)
	}

	msgs := make([]service.QueueMessage, 0, len(raw))
	for _, r := range raw {
		msgs = append(msgs, s.decode(r))
	}
	return msgs, nil
}

func (s *RedisSource) decode(raw string) *redisMessage {
	m := &redisMessage{client: s.client, key: s.key, raw: raw, data: []byte(raw)}

	var env RedisEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err == nil && len(env.Payload) > 0 {
		m.id = env.ID
		m.signature = env.Signature
		m.data = env.Payload
	}
	return m
}

type redisMessage struct {
	client    redis.Cmdable
	key       string
	raw       string
	id        string
	signature string
	data      []byte
}

func (m *redisMessage) ID() string { return m.id }

func (m *redisMessage) Data() []byte { return m.data }

func (m *redisMessage) Signature() string { return m.signature }

// Ack is a no-op, the element left the list when it was popped
func (m *redisMessage) Ack(ctx context.Context) error { return nil }

// Nak puts the element back at the tail for a later cycle
func (m *redisMessage) Nak(ctx context.Context) error {
	if err := m.client.RPush(ctx, m.key, m.raw).Err(); err != nil {
		return fmt.Errorf("failed to requeue message on %s: %w", m.key, err)
	}
	return nil
}
