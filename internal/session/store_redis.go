package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kapu/marrakech-go/internal/domain"
)

const ttlSession = 24 * time.Hour

// RedisStore persists each session as two JSON blobs with a shared TTL so
// abandoned sessions age out on their own.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects and pings the server described by redisURL
// (redis:// or rediss://).
func NewRedisStore(redisURL string) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis session store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisStore) keySession(id string) string { return "sess:" + strings.TrimSpace(id) }
func (s *RedisStore) keyState(id string) string   { return s.keySession(id) + ":state" }

func (s *RedisStore) Save(ctx context.Context, sess *domain.Session, g *domain.GameState) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keySession(sess.ID), raw, ttlSession)
	if g != nil {
		graw, err := json.Marshal(g)
		if err != nil {
			return err
		}
		pipe.Set(ctx, s.keyState(sess.ID), graw, ttlSession)
	} else {
		pipe.Del(ctx, s.keyState(sess.ID))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*domain.Session, *domain.GameState, error) {
	raw, err := s.rdb.Get(ctx, s.keySession(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, nil, err
	}

	graw, err := s.rdb.Get(ctx, s.keyState(sessionID)).Bytes()
	if err == redis.Nil {
		return &sess, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	var g domain.GameState
	if err := json.Unmarshal(graw, &g); err != nil {
		return nil, nil, err
	}
	return &sess, &g, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, s.keySession(sessionID), s.keyState(sessionID)).Err()
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
