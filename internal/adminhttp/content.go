package adminhttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/brilliantaksan/brilliantaksan-web/internal/contentstore"
	"github.com/brilliantaksan/brilliantaksan-web/internal/log"
	"github.com/brilliantaksan/brilliantaksan-web/internal/session"
	"github.com/brilliantaksan/brilliantaksan-web/internal/sitecontent"
)

const (
	msgInvalidContent = "Invalid content payload."
	msgConflict       = "Content was changed by another save. Reload and try again."
)

type contentResponse struct {
	Content  sitecontent.SiteContent `json:"content"`
	Revision string                  `json:"revision,omitempty"`
	Medium   string                  `json:"medium"`
}

type contentRequest struct {
	Content  json.RawMessage `json:"content"`
	Revision string          `json:"revision,omitempty"`
}

type saveResponse struct {
	OK       bool   `json:"ok"`
	Revision string `json:"revision,omitempty"`
	Medium   string `json:"medium"`
}

// HandleContentGet returns the stored document with its revision marker.
func (api *API) HandleContentGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc, err := api.store.Read(ctx)
	if err != nil {
		log.FromContext(ctx).Error(ctx, err, "admin content read failed", "medium", doc.Medium.String())
		writeError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(ctx, w, http.StatusOK, contentResponse{
		Content:  doc.Content,
		Revision: doc.Revision,
		Medium:   doc.Medium.String(),
	})
}

// HandleContentPut replaces the document. A revision from an earlier GET
// turns the save into a compare-and-swap where the medium supports it.
func (api *API) HandleContentPut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	L := log.FromContext(ctx)

	var body contentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Content) == 0 {
		writeError(ctx, w, http.StatusBadRequest, msgInvalidContent)
		return
	}

	doc, err := api.store.WriteWithRevision(ctx, body.Content, body.Revision)
	switch {
	case err == nil:
	case errors.Is(err, sitecontent.ErrInvalidContent):
		L.Info(ctx, "rejected content payload", "reason", err.Error())
		writeError(ctx, w, http.StatusBadRequest, msgInvalidContent)
		return
	case errors.Is(err, contentstore.ErrConflict):
		L.Warn(ctx, "content save conflict", "revision", body.Revision)
		writeError(ctx, w, http.StatusConflict, msgConflict)
		return
	default:
		L.Error(ctx, err, "admin content save failed")
		writeError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}

	if api.snapshots != nil {
		api.snapshots.Remember(doc)
	}
	sess, _ := session.FromContext(ctx)
	L.Info(ctx, "content saved", "editor", sess.Email, "medium", doc.Medium.String(), "revision", doc.Revision)
	writeJSON(ctx, w, http.StatusOK, saveResponse{OK: true, Revision: doc.Revision, Medium: doc.Medium.String()})
}
