// Package ratelimit is per-client-IP token bucket limiting for the site
// listener and, with a much tighter budget, for admin login attempts.
//
// State is in-memory and per process. It blunts a single address hammering
// the server or guessing at the login endpoint; it does nothing against
// distributed traffic, which belongs to the CDN in front.
package ratelimit
