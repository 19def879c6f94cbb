package adminhttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brilliantaksan/brilliantaksan-web/internal/contentstore"
	"github.com/brilliantaksan/brilliantaksan-web/internal/httpmw"
	"github.com/brilliantaksan/brilliantaksan-web/internal/log"
	"github.com/brilliantaksan/brilliantaksan-web/internal/media"
	"github.com/brilliantaksan/brilliantaksan-web/internal/session"
	"github.com/brilliantaksan/brilliantaksan-web/internal/video"
)

// ContentStore is the read/write half of contentstore.Store.
type ContentStore interface {
	Read(ctx context.Context) (contentstore.Document, error)
	WriteWithRevision(ctx context.Context, raw []byte, rev string) (contentstore.Document, error)
}

// SnapshotRecorder receives every saved document so page renders see it
// even if the next store read fails.
type SnapshotRecorder interface {
	Remember(doc contentstore.Document)
}

type VideoClient interface {
	Configured() bool
	CreateDirectUpload(ctx context.Context, corsOrigin string) (video.DirectUpload, error)
	UploadStatus(ctx context.Context, uploadID string) (video.Status, error)
}

type ImagePresigner interface {
	Configured() bool
	PresignImageUpload(ctx context.Context, filename, contentType string) (media.Upload, error)
}

type Options struct {
	Sessions  *session.Service
	Store     ContentStore
	Snapshots SnapshotRecorder
	Video     VideoClient
	Images    ImagePresigner

	// WebhookSecret verifies Mux-Signature on deliveries.
	WebhookSecret string
	// LoginLimiter wraps POST /api/admin/session.
	LoginLimiter func(http.Handler) http.Handler
	// OnWebhook is called with the event type of each accepted delivery.
	OnWebhook func(eventType string)
	Now       func() time.Time
}

// API implements the admin endpoints.
type API struct {
	sessions      *session.Service
	store         ContentStore
	snapshots     SnapshotRecorder
	video         VideoClient
	images        ImagePresigner
	webhookSecret string
	loginLimiter  func(http.Handler) http.Handler
	onWebhook     func(string)
	now           func() time.Time
}

func NewAPI(opts Options) *API {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LoginLimiter == nil {
		opts.LoginLimiter = func(h http.Handler) http.Handler { return h }
	}
	return &API{
		sessions:      opts.Sessions,
		store:         opts.Store,
		snapshots:     opts.Snapshots,
		video:         opts.Video,
		images:        opts.Images,
		webhookSecret: opts.WebhookSecret,
		loginLimiter:  opts.LoginLimiter,
		onWebhook:     opts.OnWebhook,
		now:           opts.Now,
	}
}

// RegisterRoutes attaches the admin API and the webhook to r.
func (api *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(httpmw.SameOrigin)
		r.Get("/session", api.HandleSessionGet)
		r.With(api.loginLimiter).Post("/session", api.HandleSessionCreate)
		r.Delete("/session", api.HandleSessionDelete)

		r.Group(func(r chi.Router) {
			r.Use(api.sessions.RequireAdmin)
			r.With(httpmw.Scope("content")).Get("/content", api.HandleContentGet)
			r.With(httpmw.Scope("content")).Put("/content", api.HandleContentPut)
			r.Post("/mux/direct-upload", api.HandleDirectUpload)
			r.Get("/mux/upload/{uploadId}", api.HandleUploadStatus)
			r.Post("/media/image-upload", api.HandleImageUpload)
		})
	})
	r.With(httpmw.Scope("mux_webhook")).Post("/api/mux/webhook", api.HandleMuxWebhook)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(ctx).Warn(ctx, "failed to encode JSON response", "err", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, errorResponse{Error: msg})
}

// decodeBody decodes an optional JSON body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
