package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const shortRevisionLen = 12

// ContentInfo describes the document the site is currently serving.
type ContentInfo interface {
	ContentRevision() string
	ContentMedium() string
}

// ContentHeaders stamps X-Content-Revision and X-Content-Medium on every
// response and on the server span, so a stale page can be traced to the
// save that produced it.
func ContentHeaders(info ContentInfo) Middleware {
	return func(next http.Handler) http.Handler {
		if info == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rev, medium := info.ContentRevision(), info.ContentMedium()
			if rev != "" {
				short := rev
				if len(short) > shortRevisionLen {
					short = short[:shortRevisionLen]
				}
				w.Header().Set("X-Content-Revision", short)
			}
			if medium != "" {
				w.Header().Set("X-Content-Medium", medium)
			}
			if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
				span.SetAttributes(
					attribute.String("content.revision", rev),
					attribute.String("content.medium", medium),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}
