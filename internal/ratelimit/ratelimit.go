package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/brilliantaksan/brilliantaksan-web/internal/httpmw"
)

// overflowKey is the shared bucket for new addresses once the table is full.
const overflowKey = "overflow"

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// reported is set on the first denial and cleared on eviction
	reported bool
}

// IPLimiter holds one token bucket per client address.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perSecond   rate.Limit
	burst       int
	ttl         time.Duration
	maxVisitors int
	retryAfter  time.Duration
	body        []byte

	onFirstDenied func(ip string)
	onDenied      func(ip string)
	onCapacity    func(size int)
	now           func() time.Time
}

type Option func(*IPLimiter)

// WithRate sets the refill rate and bucket size. WithRate(10, 50) admits 50
// at once then 10 per second.
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithPerMinute is WithRate for budgets counted per minute, as the login
// limiter is. The bucket holds the full minute.
func WithPerMinute(n int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(float64(n) / 60)
		l.burst = n
	}
}

// WithTTL is how long an idle address keeps its bucket.
func WithTTL(d time.Duration) Option {
	return func(l *IPLimiter) { l.ttl = d }
}

// WithMaxVisitors bounds the table. Past the bound new addresses share one
// overflow bucket until eviction frees room.
func WithMaxVisitors(n int) Option {
	return func(l *IPLimiter) { l.maxVisitors = n }
}

// WithRetryAfter sets the Retry-After hint on 429 responses.
func WithRetryAfter(d time.Duration) Option {
	return func(l *IPLimiter) { l.retryAfter = d }
}

// WithMessage replaces the 429 error message.
func WithMessage(msg string) Option {
	return func(l *IPLimiter) { l.body = errorBody(msg) }
}

// WithOnFirstDenied fires once per address until it is evicted (log line).
func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.onFirstDenied = fn }
}

// WithOnDenied fires on every denial (counter).
func WithOnDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.onDenied = fn }
}

// WithOnCapacity fires when a new address lands in the overflow bucket.
func WithOnCapacity(fn func(size int)) Option {
	return func(l *IPLimiter) { l.onCapacity = fn }
}

// New builds a limiter and starts eviction, which stops with ctx.
func New(ctx context.Context, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		visitors:    make(map[string]*visitor),
		perSecond:   10,
		burst:       30,
		ttl:         5 * time.Minute,
		maxVisitors: 50_000,
		retryAfter:  30 * time.Second,
		body:        errorBody("Too many requests. Try again shortly."),
		now:         time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	go l.evictLoop(ctx)
	return l
}

func errorBody(msg string) []byte {
	return []byte(`{"error":` + strconv.Quote(msg) + "}\n")
}

// Allow spends one token for ip.
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	key := ip
	v, ok := l.visitors[key]
	full := false
	if !ok && len(l.visitors) >= l.maxVisitors && l.maxVisitors > 0 {
		key, full = overflowKey, true
		v, ok = l.visitors[key]
	}
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = l.now()
	allowed := v.limiter.Allow()
	first := !allowed && !v.reported
	if first {
		v.reported = true
	}
	size := len(l.visitors)
	l.mu.Unlock()

	// hooks run unlocked; they log and count
	if full && l.onCapacity != nil {
		l.onCapacity(size)
	}
	if allowed {
		return true
	}
	if first && l.onFirstDenied != nil {
		l.onFirstDenied(ip)
	}
	if l.onDenied != nil {
		l.onDenied(ip)
	}
	return false
}

// Len is the number of tracked addresses.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *IPLimiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, ip)
		}
	}
}

func (l *IPLimiter) evictLoop(ctx context.Context) {
	t := time.NewTicker(l.ttl / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			l.evict(now)
		}
	}
}

// Middleware answers 429 once the client address from httpmw.ClientIP is
// out of tokens. The body never reveals the budget.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	retry := strconv.Itoa(int(l.retryAfter.Seconds()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.Allow(httpmw.ClientIPFromContext(r.Context())) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Retry-After", retry)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write(l.body)
	})
}
