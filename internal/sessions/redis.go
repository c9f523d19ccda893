package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Billy-Davies-2/esports-draft/internal/draft"
)

const (
	keyPrefix = "draft:session:"
	// DefaultTTL keeps an idle draft around for a day
	DefaultTTL = 24 * time.Hour
)

// RedisOptions configures a RedisStore
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisStore keeps session snapshots as JSON values with a sliding TTL.
// A per-round set tracks which sessions belong to each round.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   3,
		PoolSize:     100,
		MinIdleConns: 10,
		PoolTimeout:  30 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func sessionKey(id string) string {
	return keyPrefix + id
}

func roundKey(roundID string) string {
	return keyPrefix + "round:" + roundID
}

func (r *RedisStore) Load(ctx context.Context, id string) (*draft.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var snap draft.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return draft.RestoreSession(snap), nil
}

func (r *RedisStore) Save(ctx context.Context, s *draft.Session) error {
	snap := s.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", s.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(s.ID), data, r.ttl)
	pipe.SAdd(ctx, roundKey(snap.Round.ID), s.ID)
	pipe.Expire(ctx, roundKey(snap.Round.ID), r.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	s, err := r.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, roundKey(s.RoundID()), id)
	_, err = pipe.Exec(ctx)
	return err
}

// IDs lists the session ids of a round. Expired sessions are pruned from
// the round set as they are found. An empty roundID scans every session.
func (r *RedisStore) IDs(ctx context.Context, roundID string) ([]string, error) {
	if roundID == "" {
		return r.scanAll(ctx)
	}

	members, err := r.client.SMembers(ctx, roundKey(roundID)).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(members))
	for _, id := range members {
		n, err := r.client.Exists(ctx, sessionKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			r.client.SRem(ctx, roundKey(roundID), id)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *RedisStore) scanAll(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id := strings.TrimPrefix(iter.Val(), keyPrefix)
		if strings.HasPrefix(id, "round:") {
			continue
		}
		ids = append(ids, id)
	}
	return ids, iter.Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
