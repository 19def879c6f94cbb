package adminhttp

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brilliantaksan/brilliantaksan-web/internal/log"
	"github.com/brilliantaksan/brilliantaksan-web/internal/media"
)

type directUploadRequest struct {
	CORSOrigin string `json:"corsOrigin"`
}

type directUploadResponse struct {
	UploadID  string `json:"uploadId"`
	UploadURL string `json:"uploadUrl"`
}

type imageUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// HandleDirectUpload creates a video upload URL. The CORS origin comes from
// the body, then the Origin header; an opaque "null" origin is dropped.
func (api *API) HandleDirectUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !api.videoReady(ctx, w) {
		return
	}

	var body directUploadRequest
	_ = decodeBody(r, &body)
	origin := strings.TrimSpace(body.CORSOrigin)
	if origin == "" {
		origin = r.Header.Get("Origin")
	}
	if origin == "null" {
		origin = ""
	}

	up, err := api.video.CreateDirectUpload(ctx, origin)
	if err != nil {
		log.FromContext(ctx).Error(ctx, err, "mux direct upload failed")
		writeError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(ctx, w, http.StatusOK, directUploadResponse{UploadID: up.ID, UploadURL: up.URL})
}

// HandleUploadStatus reports waiting, ready or errored for one upload.
func (api *API) HandleUploadStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !api.videoReady(ctx, w) {
		return
	}
	id := chi.URLParam(r, "uploadId")
	if id == "" {
		writeError(ctx, w, http.StatusBadRequest, "Missing upload id.")
		return
	}

	st, err := api.video.UploadStatus(ctx, id)
	if err != nil {
		log.FromContext(ctx).Error(ctx, err, "mux upload status failed", "upload_id", id)
		writeError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(ctx, w, http.StatusOK, st)
}

func (api *API) videoReady(ctx context.Context, w http.ResponseWriter) bool {
	if api.video == nil || !api.video.Configured() {
		writeError(ctx, w, http.StatusInternalServerError, "Missing MUX token id or secret. Set BA_MUX_TOKEN_ID and BA_MUX_TOKEN_SECRET.")
		return false
	}
	return true
}

// HandleImageUpload returns a presigned PUT for an image.
func (api *API) HandleImageUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if api.images == nil || !api.images.Configured() {
		writeError(ctx, w, http.StatusInternalServerError, "Image uploads are not configured. Set BA_MEDIA_S3_BUCKET.")
		return
	}
	var body imageUploadRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	up, err := api.images.PresignImageUpload(ctx, body.Filename, body.ContentType)
	switch {
	case err == nil:
		writeJSON(ctx, w, http.StatusOK, up)
	case errors.Is(err, media.ErrUnsupportedMedia):
		writeError(ctx, w, http.StatusBadRequest, "Only image uploads are supported.")
	default:
		log.FromContext(ctx).Error(ctx, err, "image presign failed")
		writeError(ctx, w, http.StatusInternalServerError, err.Error())
	}
}
