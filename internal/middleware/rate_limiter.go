package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultLimiterIdleTTL is how long an unused per-IP bucket is kept.
const DefaultLimiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterStore holds one token bucket per client IP. Buckets idle for
// longer than ttl are swept on access.
type rateLimiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	perMin    int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func (s *rateLimiterStore) getLimiter(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.ttl {
		for k, e := range s.limiters {
			if now.Sub(e.lastSeen) >= s.ttl {
				delete(s.limiters, k)
			}
		}
		s.lastSweep = now
	}

	e, exists := s.limiters[ip]
	if !exists {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMin)), s.perMin)}
		s.limiters[ip] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (s *rateLimiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

type rateLimitConfig struct {
	trusted []*net.IPNet
	ttl     time.Duration
	now     func() time.Time
}

type RateLimitOption func(*rateLimitConfig)

// WithTrustedProxies makes the limiter read the client address from
// X-Forwarded-For and X-Real-IP, but only on requests arriving from one of
// these networks.
func WithTrustedProxies(nets []*net.IPNet) RateLimitOption {
	return func(c *rateLimitConfig) { c.trusted = nets }
}

func WithLimiterIdleTTL(d time.Duration) RateLimitOption {
	return func(c *rateLimitConfig) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// ParseTrustedProxies accepts bare IPs and CIDR blocks.
func ParseTrustedProxies(list []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(list))
	for _, raw := range list {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", raw)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// RateLimitMiddleware allows perMinute requests per IP, with the same
// number as burst. perMinute <= 0 disables limiting.
func RateLimitMiddleware(perMinute int, log *zap.Logger, opts ...RateLimitOption) func(http.Handler) http.Handler {
	mw, _ := newRateLimiter(perMinute, log, opts...)
	return mw
}

func newRateLimiter(perMinute int, log *zap.Logger, opts ...RateLimitOption) (func(http.Handler) http.Handler, *rateLimiterStore) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := rateLimitConfig{ttl: DefaultLimiterIdleTTL, now: time.Now}
	for _, o := range opts {
		o(&cfg)
	}
	store := &rateLimiterStore{
		limiters:  map[string]*limiterEntry{},
		perMin:    perMinute,
		ttl:       cfg.ttl,
		now:       cfg.now,
		lastSweep: cfg.now(),
	}

	return func(next http.Handler) http.Handler {
		if perMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, cfg.trusted)
			if !store.getLimiter(ip).Allow() {
				log.Warn("Rate limit exceeded", zap.String("ip", ip))
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}, store
}

func isTrusted(ip net.IP, trusted []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, n := range trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP returns the peer address, unless the peer is a trusted proxy.
// Then the right-most X-Forwarded-For hop that is not itself a trusted
// proxy wins, falling back to X-Real-IP.
func clientIP(r *http.Request, trusted []*net.IPNet) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !isTrusted(net.ParseIP(host), trusted) {
		return host
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			ip := net.ParseIP(hop)
			if ip == nil {
				break
			}
			if !isTrusted(ip, trusted) {
				return hop
			}
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(real) != nil {
		return real
	}
	return host
}
