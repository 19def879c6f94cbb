// Package httpmw holds the middleware shared by the public site listener.
//
// httpserver.NewHandler composes them outermost first: security headers,
// panic recovery, request id, client ip, rate limiting, tracing, content
// headers, metrics, request logger, and finally the chi router with access
// logging, route annotation, compression and body limits.
//
// Request logs carry the request id, client address, method and path only.
// Query strings, user agents and cookies stay out of them.
package httpmw
