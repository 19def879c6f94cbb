package httpmw

import "net/http"

// MaxBody caps request bodies at limit bytes. Reading past the cap fails
// with *http.MaxBytesError and the connection is closed after the response.
// A limit <= 0 disables the cap.
func MaxBody(limit int64) Middleware {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
