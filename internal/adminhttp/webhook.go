package adminhttp

import (
	"errors"
	"io"
	"net/http"

	"github.com/brilliantaksan/brilliantaksan-web/internal/log"
	"github.com/brilliantaksan/brilliantaksan-web/internal/video"
)

type okResponse struct {
	OK bool `json:"ok"`
}

// HandleMuxWebhook verifies and logs a video pipeline event. Events are not
// acted on; the studio learns about readiness by polling.
func (api *API) HandleMuxWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	L := log.FromContext(ctx)

	if api.webhookSecret == "" {
		writeError(ctx, w, http.StatusInternalServerError, "Mux webhook secret is not configured.")
		return
	}
	sig := r.Header.Get(video.SignatureHeader)
	if sig == "" {
		writeError(ctx, w, http.StatusBadRequest, "Missing mux-signature header.")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "Could not read request body.")
		return
	}
	if err := video.VerifyWebhookSignature(body, sig, api.webhookSecret, api.now()); err != nil {
		L.Warn(ctx, "mux webhook signature rejected")
		writeError(ctx, w, http.StatusUnauthorized, "Invalid webhook signature.")
		return
	}

	ev, err := video.ParseEvent(body)
	switch {
	case errors.Is(err, video.ErrInvalidJSON):
		writeError(ctx, w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	case err != nil:
		writeError(ctx, w, http.StatusBadRequest, "Invalid Mux event payload.")
		return
	}

	switch ev.Type {
	case "video.asset.ready":
		L.Info(ctx, "mux webhook video.asset.ready", "asset_id", ev.AssetID(), "playback_ids", ev.PlaybackIDs())
	case "video.asset.errored":
		L.Warn(ctx, "mux webhook video.asset.errored", "asset_id", ev.AssetID(), "event_id", ev.ID)
	default:
		L.Info(ctx, "mux webhook event received", "type", ev.Type, "asset_id", ev.AssetID(), "event_id", ev.ID)
	}
	if api.onWebhook != nil {
		api.onWebhook(ev.Type)
	}
	writeJSON(ctx, w, http.StatusOK, okResponse{OK: true})
}
