package httpmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/brilliantaksan/brilliantaksan-web/internal/log"
)

func loggedRouter(spy *spyLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(AccessLog(), AnnotateHTTPRoute)
	r.Get("/api/admin/mux/upload/{uploadId}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"waiting"}`))
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	r.Get("/static/*", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/-/ready", func(w http.ResponseWriter, r *http.Request) {})
	return Chain(r, RequestID(""), ClientIP, WithLogger(spy))
}

func TestAccessLog(t *testing.T) {
	tests := []struct {
		path   string
		level  string
		status int
		route  string
	}{
		{"/api/admin/mux/upload/up-1", "info", http.StatusOK, "/api/admin/mux/upload/{uploadId}"},
		{"/boom", "warn", http.StatusBadGateway, "/boom"},
		{"/static/site.css", "", 0, ""},
		{"/-/ready", "", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			spy := newSpyLogger()
			loggedRouter(spy).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			e, logged := spy.last()
			if tt.level == "" {
				if logged {
					t.Fatalf("logged %+v for quiet path", e)
				}
				return
			}
			if !logged {
				t.Fatal("no access log line")
			}
			if e.level != tt.level || e.msg != "http request" {
				t.Fatalf("entry = %s %q, want %s", e.level, e.msg, tt.level)
			}
			if got := kvValue(e.kv, "http.response.status_code"); got != tt.status {
				t.Fatalf("status = %v, want %d", got, tt.status)
			}
			if got := kvValue(e.kv, "http.route"); got != tt.route {
				t.Fatalf("route = %v, want %q", got, tt.route)
			}
		})
	}
}

func TestWithLogger_Fields(t *testing.T) {
	spy := newSpyLogger()
	var fromCtx log.Logger
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = log.FromContext(r.Context())
	}), RequestID(""), ClientIP, WithLogger(spy))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/session?next=/admin/studio", http.NoBody)
	req.RemoteAddr = "203.0.113.7:4242"
	req.Header.Set(DefaultRequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if fromCtx != spy {
		t.Fatal("request logger not stored on context")
	}
	for key, want := range map[string]any{
		"request_id":          "req-1",
		"client.address":      "203.0.113.7",
		"http.request.method": http.MethodPost,
		"url.path":            "/api/admin/session",
	} {
		if got := spy.field(key); got != want {
			t.Fatalf("%s = %v, want %v", key, got, want)
		}
	}
	if got := spy.field("url.query"); got != nil {
		t.Fatalf("url.query logged: %v", got)
	}
}

func TestScope(t *testing.T) {
	spy := newSpyLogger()
	h := Scope("content")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	h.ServeHTTP(httptest.NewRecorder(), req.WithContext(log.WithContext(req.Context(), spy)))

	if got := spy.field("handler"); got != "content" {
		t.Fatalf("handler = %v, want content", got)
	}
}

func TestAnnotateHTTPRoute_SpanName(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exp)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r := chi.NewRouter()
	r.Use(AnnotateHTTPRoute)
	r.Get("/api/admin/mux/upload/{uploadId}", func(http.ResponseWriter, *http.Request) {})

	ctx, span := tp.Tracer("test").Start(context.Background(), "GET")
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/admin/mux/upload/abc", http.NoBody).WithContext(ctx))
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if got, want := spans[0].Name, "GET /api/admin/mux/upload/{uploadId}"; got != want {
		t.Fatalf("span name = %q, want %q", got, want)
	}
}
