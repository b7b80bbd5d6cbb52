package handlers

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sdko-org/shortlink/internal/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	bytesSent  int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesSent += n
	return n, err
}

func LoggingMiddleware(logger *logrus.Logger) func(http.Handler) http.Handler {
	logEntry := logger.WithField("component", "http_middleware")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(lrw, r)

			logEntry.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     lrw.statusCode,
				"duration":   time.Since(start),
				"client_ip":  getClientIP(r),
				"bytes":      lrw.bytesSent,
				"user_agent": r.UserAgent(),
			}).Info("Request processed")
		})
	}
}

// RateLimiter keeps one token bucket per client IP. It owns its state and
// its cleanup goroutine; Close stops the goroutine.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stop     chan struct{}
	stopOnce sync.Once
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(cfg *config.Config) *RateLimiter {
	rl := &RateLimiter{
		limit:   cfg.RateLimit,
		window:  cfg.RateLimitWindow,
		clients: make(map[string]*clientLimiter),
		stop:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		if !rl.allow(getClientIP(r)) {
			respondError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	client, ok := rl.clients[clientIP]
	if !ok {
		client = &clientLimiter{
			limiter: rate.NewLimiter(
				rate.Limit(float64(rl.limit)/rl.window.Seconds()),
				rl.limit,
			),
		}
		rl.clients[clientIP] = client
	}
	client.lastSeen = time.Now()
	rl.mu.Unlock()

	return client.limiter.Allow()
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, client := range rl.clients {
				if time.Since(client.lastSeen) > 3*time.Minute {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// RequireOwner gates the API routes on the identity supplied by the external
// auth layer via the X-User-ID header.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User-ID") == "" {
			respondError(w, http.StatusUnauthorized, "missing user identity")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ownerID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func getClientIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		var err error
		ip, _, err = net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
	}
	if strings.Contains(ip, ",") {
		parts := strings.Split(ip, ",")
		ip = strings.TrimSpace(parts[0])
	}
	return ip
}
