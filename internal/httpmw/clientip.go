package httpmw

import (
	"context"
	"net"
	"net/http"
	"strings"
)

const unknownClientIP = "0.0.0.0"

type clientIPKey struct{}

// ClientIPOptions controls how far X-Forwarded-For is trusted.
type ClientIPOptions struct {
	// TrustedHops is the number of proxies in front of the server. 0 ignores
	// X-Forwarded-For, 1 takes its last entry (one load balancer), 2 the one
	// before it (CDN then load balancer).
	TrustedHops int
}

// ClientIP resolves the client address with no trusted proxies.
func ClientIP(next http.Handler) http.Handler {
	return ClientIPWithOptions(ClientIPOptions{})(next)
}

// ClientIPWithOptions stores the resolved client address on the request
// context for the rate limiter and the request logger.
func ClientIPWithOptions(opts ClientIPOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClientIP(r, opts.TrustedHops)
			next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ip)))
		})
	}
}

// resolveClientIP only honours forwarding headers from a private peer with at
// least one trusted hop. In every other case the headers are stripped so
// nothing downstream can read a spoofed value.
func resolveClientIP(r *http.Request, hops int) string {
	if r.RemoteAddr == "" {
		return unknownClientIP
	}
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	peerIP := net.ParseIP(peer)
	if peerIP == nil {
		return unknownClientIP
	}

	if hops <= 0 || !(peerIP.IsPrivate() || peerIP.IsLoopback()) {
		dropForwarded(r)
		return peer
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return peer
	}
	entries := strings.Split(xff, ",")
	idx := len(entries) - hops
	if idx < 0 {
		// shorter chain than the configured proxies: ignore the header
		dropForwarded(r)
		return peer
	}
	if candidate := strings.TrimSpace(entries[idx]); net.ParseIP(candidate) != nil {
		return candidate
	}
	return peer
}

func dropForwarded(r *http.Request) {
	r.Header.Del("X-Forwarded-For")
	r.Header.Del("X-Forwarded-Proto")
}

// ClientIPFromContext returns the address stored by ClientIPWithOptions.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}
