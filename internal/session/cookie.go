package session

import (
	"net/http"
	"time"
)

const CookieName = "ba_admin_session"

func (s *Service) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetCookie stores token on the response for Lifetime.
func (s *Service) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, s.sessionCookie(token, int(Lifetime/time.Second)))
}

// ClearCookie overwrites the session cookie with an empty, already expired value.
func (s *Service) ClearCookie(w http.ResponseWriter) {
	// negative MaxAge renders as Max-Age=0
	http.SetCookie(w, s.sessionCookie("", -1))
}

func tokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
