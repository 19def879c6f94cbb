package httpmw

import (
	"net/http"
	"strings"
)

// CSP origins the admin studio needs: the Firebase sign-in SDK and popup,
// Mux playback and the direct-upload bucket.
var (
	identityScriptOrigins = []string{"https://www.gstatic.com", "https://apis.google.com"}
	identityConnect       = []string{"https://identitytoolkit.googleapis.com", "https://securetoken.googleapis.com"}
	identityFrames        = []string{"https://*.firebaseapp.com"}
	videoMedia            = []string{"https://stream.mux.com", "blob:"}
	videoImages           = []string{"https://image.mux.com"}
	videoConnect          = []string{"https://*.mux.com", "https://storage.googleapis.com"}
)

// SecurityOptions extends the policy with deployment-specific origins.
type SecurityOptions struct {
	// MediaOrigins are the object storage origins images are uploaded to
	// and served from, e.g. https://bucket.s3.eu-west-1.amazonaws.com.
	MediaOrigins []string
	// HSTS is off for plain-http local development.
	HSTS bool
}

// BuildCSP renders the Content-Security-Policy for opts.
func BuildCSP(opts SecurityOptions) string {
	directive := func(name string, sources ...[]string) string {
		parts := []string{name, "'self'"}
		for _, s := range sources {
			parts = append(parts, s...)
		}
		return strings.Join(parts, " ")
	}
	return strings.Join([]string{
		"default-src 'self'",
		directive("script-src", identityScriptOrigins),
		"style-src 'self'",
		directive("img-src", []string{"data:"}, videoImages, opts.MediaOrigins),
		directive("media-src", videoMedia),
		directive("connect-src", identityConnect, videoConnect, opts.MediaOrigins),
		directive("frame-src", identityFrames),
		"font-src 'self'",
		"base-uri 'self'",
		"form-action 'self'",
		"frame-ancestors 'none'",
		"object-src 'none'",
	}, "; ")
}

// SecurityHeaders sets the response hardening headers on every response.
//
// The admin surface authenticates with a cookie, so cross-site writes are
// blocked separately by SameOrigin; SameSite=Lax on the cookie covers
// top-level navigations.
func SecurityHeaders(opts SecurityOptions) Middleware {
	csp := BuildCSP(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if opts.HSTS {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
			// the sign-in popup needs to message its opener
			h.Set("Cross-Origin-Opener-Policy", "same-origin-allow-popups")
			h.Set("Cross-Origin-Resource-Policy", "same-site")
			next.ServeHTTP(w, r)
		})
	}
}
