package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brilliantaksan/brilliantaksan-web/internal/health"
	"github.com/brilliantaksan/brilliantaksan-web/internal/httpmw"
	"github.com/brilliantaksan/brilliantaksan-web/internal/log"
)

// Registrar mounts a group of routes. Both the site handler and the admin
// API satisfy it.
type Registrar interface {
	RegisterRoutes(r chi.Router)
}

type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	OnPanic      func()

	MetricsMW   httpmw.Middleware
	RateLimitMW httpmw.Middleware

	ClientIPOpts httpmw.ClientIPOptions
	Security     httpmw.SecurityOptions
	// ContentInfo stamps X-Content-Revision and X-Content-Medium when set.
	ContentInfo httpmw.ContentInfo

	// MaxBodyBytes caps every request body; 0 leaves bodies unbounded.
	MaxBodyBytes int64

	Health    health.Probe
	Readiness health.Probe

	// Routes are mounted in order after the health endpoints.
	Routes []Registrar
	// NotFound also answers unmatched methods; chi defaults apply when nil.
	NotFound http.HandlerFunc
}
