package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/metrics"
)

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit rejects requests with 429 once a client exceeds its quota.
// Clients are identified by clients; a nil resolver trusts no proxy and
// keys on the remote IP. Health probes are never limited. If the limiter
// itself fails the request is let through. m may be nil.
func RateLimit(limiter Limiter, clients *ClientResolver, window time.Duration, m *metrics.Metrics) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(max(int(window.Seconds()), 1))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}
			key := clients.Key(r)
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.FromContext(r.Context()).Warn("rate limiter unavailable, allowing request", "client", key, "error", err)
				allowed = true
			}
			if !allowed {
				if m != nil {
					m.RateLimitedTotal.Inc()
				}
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientResolver works out which client a request comes from. It honours
// X-Forwarded-For only when the direct peer is a trusted proxy, and then
// takes the rightmost hop that is not itself trusted.
type ClientResolver struct {
	trusted []netip.Prefix
}

// NewClientResolver parses proxies, each an IP address or a CIDR prefix.
func NewClientResolver(proxies []string) (*ClientResolver, error) {
	c := &ClientResolver{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			addr, err := netip.ParseAddr(p)
			if err != nil {
				return nil, fmt.Errorf("parsing trusted proxy %q: %w", p, err)
			}
			c.trusted = append(c.trusted, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(p)
		if err != nil {
			return nil, fmt.Errorf("parsing trusted proxy %q: %w", p, err)
		}
		c.trusted = append(c.trusted, prefix.Masked())
	}
	return c, nil
}

// Key returns the client address used as the rate-limit key.
func (c *ClientResolver) Key(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !c.isTrusted(peer) {
		return host
	}
	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			// Anything left of a malformed hop is unverifiable.
			return host
		}
		if !c.isTrusted(addr) {
			return addr.Unmap().String()
		}
	}
	return host
}

func (c *ClientResolver) isTrusted(addr netip.Addr) bool {
	if c == nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
