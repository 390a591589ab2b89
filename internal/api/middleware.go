package api

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"lexgate/internal/gateway"
	"lexgate/internal/logging"
)

// bearerAuth rejects requests whose bearer token does not equal the shared secret.
// An unset secret rejects everything.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok || s.opts.SharedSecret == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.SharedSecret)) != 1 {
			logging.APIWarn("rejected unauthenticated request from %s", r.RemoteAddr)
			w.Header().Set("WWW-Authenticate", `Bearer realm="lexgate"`)
			respondJSON(w, http.StatusUnauthorized, gateway.Failure{
				Message: "unauthorized",
				Hint:    "Send the gateway shared secret as a bearer token.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// clientLimiter keeps one token bucket per client address.
type clientLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu      sync.Mutex
	clients map[string]*clientBucket
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(perMinute, burst int, idle time.Duration) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		idle:    idle,
		clients: make(map[string]*clientBucket),
	}
}

func (c *clientLimiter) allow(client string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.clients[client]
	if !ok {
		if len(c.clients) >= 1024 {
			c.pruneLocked(now)
		}
		b = &clientBucket{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[client] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (c *clientLimiter) pruneLocked(now time.Time) {
	for k, b := range c.clients {
		if now.Sub(b.lastSeen) > c.idle {
			delete(c.clients, k)
		}
	}
}

func (c *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := r.RemoteAddr
		if host, _, err := net.SplitHostPort(client); err == nil {
			client = host
		}
		if !c.allow(client, time.Now()) {
			w.Header().Set("Retry-After", "60")
			respondJSON(w, http.StatusTooManyRequests, gateway.Failure{
				Message: "rate limit exceeded",
				Hint:    "Too many searches, wait a minute and try again.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
