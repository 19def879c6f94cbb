package session

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	LoginPath  = "/admin"
	StudioPath = "/admin/studio"
)

func isAdminRoot(p string) bool { return p == LoginPath || p == LoginPath+"/" }

func isAdminPath(p string) bool { return isAdminRoot(p) || strings.HasPrefix(p, LoginPath+"/") }

// Guard gates every /admin page. It fully verifies the session once and
// hands the result to downstream handlers through the request context, so
// pages behind it never re-verify and cannot disagree with it.
//
//	/admin   + authorized   -> redirect to /admin/studio
//	/admin   + anonymous    -> login page
//	/admin/* + authorized   -> pass through
//	/admin/* + anonymous    -> redirect to /admin?next=<path>
func (s *Service) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if !isAdminPath(p) {
			next.ServeHTTP(w, r)
			return
		}

		sess, state := s.Authenticate(r)
		authorized := state == StateAuthorized

		switch {
		case isAdminRoot(p) && authorized:
			http.Redirect(w, r, StudioPath, http.StatusTemporaryRedirect)
		case isAdminRoot(p):
			next.ServeHTTP(w, r)
		case authorized:
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		default:
			http.Redirect(w, r, LoginPath+"?"+url.Values{"next": {p}}.Encode(), http.StatusTemporaryRedirect)
		}
	})
}

// RequireAdmin is the API form of Guard: anonymous requests get a bare 401.
func (s *Service) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		sess, state := s.Authenticate(r)
		if state != StateAuthorized {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}
