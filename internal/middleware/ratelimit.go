package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims the window, then records the hit only if the
// subject is still under the limit. Rejected hits do not extend the window.
var slidingWindowScript = redis.NewScript(`
	redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
	if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[3]) then
		return 0
	end
	redis.call('ZADD', KEYS[1], ARGV[2], ARGV[4])
	redis.call('PEXPIRE', KEYS[1], ARGV[5])
	return 1
`)

// SubjectFunc names who a request is counted against. It returns false
// when the request carries no subject.
type SubjectFunc func(r *http.Request) (string, bool)

// RateLimiter is a sliding-window limiter backed by Redis sorted sets.
// Without a SubjectFunc requests are counted per peer address.
type RateLimiter struct {
	client  redis.Scripter
	scope   string
	maxReqs int
	window  time.Duration
	subject SubjectFunc
	now     func() time.Time
}

// NewRateLimiter creates a limiter that allows maxReqs per windowSec seconds
// and counts requests per client IP. Limiters with different scopes count
// independently.
func NewRateLimiter(client redis.Scripter, scope string, maxReqs, windowSec int) *RateLimiter {
	return &RateLimiter{
		client:  client,
		scope:   scope,
		maxReqs: maxReqs,
		window:  time.Duration(windowSec) * time.Second,
		now:     time.Now,
	}
}

// PerSubject counts requests against the subject returned by fn instead of
// the client IP. Requests without a subject are rejected with 401, so the
// limiter must sit behind authentication.
func (rl *RateLimiter) PerSubject(fn SubjectFunc) *RateLimiter {
	rl.subject = fn
	return rl
}

// Middleware enforces the limit. On Redis errors it fails open.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := rl.subjectOf(r)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "authentication required", "unauthorized")
			return
		}

		allowed, err := rl.allow(r.Context(), "ratelimit:"+rl.scope+":"+subject)
		if err != nil {
			slog.Warn("rate limiter: redis error, failing open", "scope", rl.scope, "subject", subject, "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window/time.Second)))
			writeJSONError(w, http.StatusTooManyRequests, "too many requests", "rate_limited")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) subjectOf(r *http.Request) (string, bool) {
	if rl.subject == nil {
		return "ip:" + peerIP(r), true
	}
	s, ok := rl.subject(r)
	if !ok || s == "" {
		return "", false
	}
	return "user:" + s, true
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, error) {
	now := rl.now()
	res, err := slidingWindowScript.Run(ctx, rl.client, []string{key},
		now.Add(-rl.window).UnixMilli(),
		now.UnixMilli(),
		rl.maxReqs,
		strconv.FormatInt(now.UnixNano(), 10),
		(rl.window + time.Second).Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// peerIP is the address of the connected peer. Forwarding headers are
// client-controlled and ignored.
func peerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSONError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `","code":"` + code + `"}`))
}
