package opshttp

import (
	"net/http"
	"time"

	"github.com/brilliantaksan/brilliantaksan-web/internal/health"
)

const (
	DefaultPort            = 9000
	DefaultShutdownTimeout = 5 * time.Second
)

// Options configures the ops listener. It is bound separately from the site
// so /metrics and pprof never share a port with public traffic.
type Options struct {
	Port    int
	Metrics http.Handler

	// EnablePprof mounts net/http/pprof under /debug/pprof/. When false the
	// prefix is shadowed with 404s.
	EnablePprof bool

	Health    health.Probe
	Readiness health.Probe

	UseRecoverMW bool
	OnPanic      func()

	ShutdownTimeout time.Duration
}

func (o *Options) port() int {
	if o.Port == 0 {
		return DefaultPort
	}
	return o.Port
}

func (o *Options) shutdownTimeout() time.Duration {
	if o.ShutdownTimeout <= 0 {
		return DefaultShutdownTimeout
	}
	return o.ShutdownTimeout
}
