package httpmw

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/brilliantaksan/brilliantaksan-web/internal/log"
)

const tracerName = "brilliantaksan/httpmw"

// statusRecorder captures status and size for the access log and opens a
// response.write child span on the first byte, measuring time to first byte
// and time spent blocked on the client.
type statusRecorder struct {
	http.ResponseWriter
	ctx   context.Context
	start time.Time

	status  int
	bytes   int64
	blocked time.Duration
	err     error

	span    trace.Span
	started bool
}

func (sr *statusRecorder) begin() {
	if sr.started {
		return
	}
	sr.started = true
	if !trace.SpanFromContext(sr.ctx).IsRecording() {
		return
	}
	_, sr.span = otel.Tracer(tracerName).Start(sr.ctx, "response.write",
		trace.WithAttributes(attribute.Float64("http.server.ttfb_seconds", time.Since(sr.start).Seconds())),
	)
}

func (sr *statusRecorder) end() {
	if sr.span == nil {
		return
	}
	sr.span.SetAttributes(
		attribute.Int("http.response.status_code", sr.code()),
		attribute.Int64("http.response.body.size", sr.bytes),
		attribute.Float64("http.server.write.block_seconds", sr.blocked.Seconds()),
	)
	if sr.err != nil {
		sr.span.RecordError(sr.err)
		sr.span.SetStatus(codes.Error, sr.err.Error())
	}
	sr.span.End()
}

func (sr *statusRecorder) code() int {
	if sr.status == 0 {
		return http.StatusOK
	}
	return sr.status
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.begin()
	if sr.status == 0 {
		sr.status = code
	}
	t := time.Now()
	sr.ResponseWriter.WriteHeader(code)
	sr.blocked += time.Since(t)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.begin()
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	t := time.Now()
	n, err := sr.ResponseWriter.Write(b)
	sr.blocked += time.Since(t)
	sr.bytes += int64(n)
	if err != nil && sr.err == nil {
		sr.err = err
	}
	return n, err
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("httpmw: underlying ResponseWriter cannot hijack")
	}
	return h.Hijack()
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

// WithLogger stores a request-scoped logger derived from base on the context.
// Handlers log through log.FromContext and inherit these fields.
func WithLogger(base log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqID := RequestIDFromContext(ctx)
			client := ClientIPFromContext(ctx)
			peer := r.RemoteAddr
			if host, _, err := net.SplitHostPort(peer); err == nil {
				peer = host
			}
			scheme := schemeFromRequest(r)

			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(
					attribute.String("request_id", reqID),
					attribute.String("client.address", client),
					attribute.String("network.peer.address", peer),
					attribute.String("server.address", r.Host),
					attribute.String("url.scheme", scheme),
				)
			}

			L := base.With(
				"request_id", reqID,
				"client.address", client,
				"network.peer.address", peer,
				"server.address", r.Host,
				"http.request.method", r.Method,
				"url.path", r.URL.Path,
				"url.scheme", scheme,
			)
			next.ServeHTTP(w, r.WithContext(log.WithContext(ctx, L)))
		})
	}
}

// quietPath reports requests left out of the access log: probes and static
// assets, which the metrics middleware still counts.
func quietPath(p string) bool {
	if p == "/-/ready" || p == "/-/healthy" || strings.HasPrefix(p, "/static/") {
		return true
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".css", ".js", ".png", ".jpg", ".jpeg", ".webp", ".svg", ".ico", ".woff", ".woff2", ".map":
		return true
	}
	return false
}

// AccessLog writes one line per request through the request-scoped logger.
// 5xx responses log at warn.
func AccessLog() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sr := &statusRecorder{ResponseWriter: w, ctx: r.Context(), start: time.Now()}
			next.ServeHTTP(sr, r)
			sr.end()

			if quietPath(r.URL.Path) {
				return
			}
			var reqSize int64
			if r.ContentLength > 0 {
				reqSize = r.ContentLength
			}
			kv := []any{
				"http.response.status_code", sr.code(),
				"http.server.request.duration", time.Since(sr.start).Seconds(),
				"http.response.body.size", sr.bytes,
				"http.request.body.size", reqSize,
				"http.route", routePattern(r),
			}
			L := log.FromContext(r.Context())
			if sr.code() >= http.StatusInternalServerError {
				L.Warn(r.Context(), "http request", kv...)
				return
			}
			L.Info(r.Context(), "http request", kv...)
		})
	}
}

// schemeFromRequest trusts X-Forwarded-Proto only because ClientIPWithOptions
// strips it from untrusted peers before this runs.
func schemeFromRequest(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-Proto"); xf != "" {
		s := strings.ToLower(strings.TrimSpace(strings.Split(xf, ",")[0]))
		if s == "http" || s == "https" {
			return s
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// Scope tags the request logger and span with a handler name.
func Scope(handler string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = log.WithContext(ctx, log.FromContext(ctx).With("handler", handler))
			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(attribute.String("app.handler", handler))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
