// Package health holds the liveness and readiness probes served on the ops
// listener and the shutdown gate that drains readiness before the site
// listener stops.
package health
