package httpmw

import "net/http"

// Middleware is the shape every constructor in this package returns.
type Middleware = func(http.Handler) http.Handler

// Chain wraps h so the first middleware runs first. Nil entries are skipped
// so optional layers can be passed unconditionally.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mw := mws[i]; mw != nil {
			h = mw(h)
		}
	}
	return h
}
