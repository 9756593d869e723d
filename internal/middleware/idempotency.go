package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxIdempotencyBodySize = 1 << 20
	idempotencyKeyPrefix   = "idempotency:response"
)

// IdempotencyStore caches HTTP responses by client-supplied idempotency key
// so a retried POST replays the original response instead of creating a
// second checkout.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

type cachedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

func (s *IdempotencyStore) get(ctx context.Context, key string) (*cachedResponse, bool) {
	raw, err := s.client.Get(ctx, idempotencyKeyPrefix+":"+key).Bytes()
	if err != nil {
		return nil, false
	}
	var resp cachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (s *IdempotencyStore) set(ctx context.Context, key string, resp cachedResponse) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	s.client.Set(ctx, idempotencyKeyPrefix+":"+key, raw, s.ttl)
}

// Idempotency replays cached responses for repeated Idempotency-Key headers.
// Requests without the header pass through untouched.
func Idempotency(store *IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			if cached, ok := store.get(r.Context(), key); ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotency-Replayed", "true")
				w.WriteHeader(cached.Status)
				w.Write([]byte(cached.Body))
				return
			}

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Server errors are not cached; the client should retry those.
			if rec.statusCode >= 200 && rec.statusCode < 500 && !rec.bodyTruncated {
				store.set(r.Context(), key, cachedResponse{
					Status: rec.statusCode,
					Body:   rec.body.String(),
				})
			}
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode    int
	body          *bytes.Buffer
	bodyTruncated bool
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.bodyTruncated {
		if r.body.Len()+len(b) > maxIdempotencyBodySize {
			r.bodyTruncated = true
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}
