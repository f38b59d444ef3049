// Package idempotency replays the first response to a request carrying an
// Idempotency-Key header. Responses are kept in Redis for a fixed TTL.
package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"
)

var ErrNotConfigured = errors.New("redis_not_configured")

type Response struct {
	Status int    `json:"status"`
	Body   string `json:"body,omitempty"`
}

type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{redis: client, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, scope, endpoint, key string) (Response, bool, error) {
	if s == nil || s.redis == nil {
		return Response{}, false, ErrNotConfigured
	}
	value, err := s.redis.Get(ctx, redisKey(scope, endpoint, key)).Result()
	if err == redis.Nil {
		return Response{}, false, nil
	}
	if err != nil {
		return Response{}, false, err
	}
	var resp Response
	if err := json.Unmarshal([]byte(value), &resp); err != nil {
		return Response{}, false, err
	}
	return resp, true, nil
}

// Put stores resp unless a response is already recorded for the key.
func (s *Store) Put(ctx context.Context, scope, endpoint, key string, resp Response) error {
	if s == nil || s.redis == nil {
		return ErrNotConfigured
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.redis.SetNX(ctx, redisKey(scope, endpoint, key), data, s.ttl).Err()
}

// Middleware replays stored responses for requests with an Idempotency-Key.
// scope partitions keys per caller; requests without a key, or with no Redis
// configured, pass straight through. Server errors are never recorded.
func (s *Store) Middleware(scope func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(HeaderKey))
			if key == "" || s == nil || s.redis == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			caller := scope(r)
			endpoint := r.Method + " " + r.URL.Path

			if stored, ok, err := s.Get(ctx, caller, endpoint, key); err == nil && ok {
				w.Header().Set(HeaderReplayed, "true")
				if stored.Body != "" {
					w.Header().Set("Content-Type", "application/json")
				}
				w.WriteHeader(stored.Status)
				_, _ = w.Write([]byte(stored.Body))
				return
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status >= http.StatusInternalServerError {
				return
			}
			_ = s.Put(ctx, caller, endpoint, key, Response{Status: rec.status, Body: rec.body.String()})
		})
	}
}

type recorder struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (r *recorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}

func redisKey(scope, endpoint, key string) string {
	return fmt.Sprintf("idempotency:%s:%s:%s", scope, endpoint, key)
}
