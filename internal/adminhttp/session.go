package adminhttp

import (
	"errors"
	"net/http"

	"github.com/brilliantaksan/brilliantaksan-web/internal/log"
	"github.com/brilliantaksan/brilliantaksan-web/internal/session"
)

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
}

type loginRequest struct {
	AccessToken string `json:"accessToken"`
}

// HandleSessionGet reports whether the cookie carries an authorized session.
func (api *API) HandleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, state := api.sessions.Authenticate(r)
	if state != session.StateAuthorized {
		writeJSON(r.Context(), w, http.StatusOK, sessionResponse{})
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Authenticated: true, Email: sess.Email})
}

// HandleSessionCreate exchanges an identity provider token for the session cookie.
func (api *API) HandleSessionCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	L := log.FromContext(ctx)

	var body loginRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	tok, sess, err := api.sessions.Login(ctx, body.AccessToken)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrMissingToken):
		writeError(ctx, w, http.StatusBadRequest, "Missing access token.")
		return
	case errors.Is(err, session.ErrInvalidIdentity):
		L.Info(ctx, "admin login rejected", "reason", "invalid_identity")
		writeError(ctx, w, http.StatusUnauthorized, "Invalid identity session.")
		return
	case errors.Is(err, session.ErrForbidden):
		L.Warn(ctx, "admin login rejected", "reason", "not_allowlisted")
		writeError(ctx, w, http.StatusForbidden, "Account is not authorized for admin access.")
		return
	default:
		L.Error(ctx, err, "admin login failed")
		writeError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}

	api.sessions.SetCookie(w, tok)
	L.Info(ctx, "admin session created", "email", sess.Email)
	writeJSON(ctx, w, http.StatusOK, sessionResponse{Authenticated: true, Email: sess.Email})
}

// HandleSessionDelete clears the cookie. It succeeds without a session.
func (api *API) HandleSessionDelete(w http.ResponseWriter, r *http.Request) {
	api.sessions.ClearCookie(w)
	writeJSON(r.Context(), w, http.StatusOK, sessionResponse{})
}
