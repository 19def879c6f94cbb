package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/brilliantaksan/brilliantaksan-web/internal/xerrors"
)

const (
	DefaultBaseURL = "https://api.mux.com"

	// uploadTimeoutSeconds is how long a direct upload URL stays usable.
	uploadTimeoutSeconds = 3600
	maxResponseBytes     = 1 << 20
)

// ErrNotConfigured is returned when the API token id or secret is missing.
var ErrNotConfigured = errors.New("missing MUX token id or secret")

// APIError carries the message Mux returned for a failed request.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

type Options struct {
	TokenID     string
	TokenSecret string
	BaseURL     string
	HTTPClient  *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	tokenID, tokenSecret string
	base                 string
	hc                   *http.Client
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		tokenID:     strings.TrimSpace(opts.TokenID),
		tokenSecret: strings.TrimSpace(opts.TokenSecret),
		base:        strings.TrimSuffix(base, "/"),
		hc:          hc,
	}
}

// Configured reports whether both credentials are set.
func (c *Client) Configured() bool {
	return c != nil && c.tokenID != "" && c.tokenSecret != ""
}

// DirectUpload is a one-shot URL the browser PUTs the file to.
type DirectUpload struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Upload struct {
	ID      string `json:"id"`
	Status  string `json:"status,omitempty"`
	AssetID string `json:"asset_id,omitempty"`
}

type PlaybackID struct {
	ID     string `json:"id,omitempty"`
	Policy string `json:"policy,omitempty"`
}

type Asset struct {
	ID          string       `json:"id"`
	Status      string       `json:"status,omitempty"`
	PlaybackIDs []PlaybackID `json:"playback_ids,omitempty"`
}

// PlaybackID prefers a public playback id, then the first one listed.
func (a Asset) PlaybackID() string {
	for _, p := range a.PlaybackIDs {
		if p.Policy == "public" && p.ID != "" {
			return p.ID
		}
	}
	if len(a.PlaybackIDs) > 0 {
		return a.PlaybackIDs[0].ID
	}
	return ""
}

// PlaybackURL is the public HLS stream for a playback id.
func PlaybackURL(playbackID string) string {
	return "https://stream.mux.com/" + playbackID + ".m3u8"
}

type dataEnvelope[T any] struct {
	Data *T `json:"data"`
}

// CreateDirectUpload creates an upload whose asset gets a public playback
// policy. corsOrigin is passed through when non-empty.
func (c *Client) CreateDirectUpload(ctx context.Context, corsOrigin string) (DirectUpload, error) {
	body := map[string]any{
		"timeout": uploadTimeoutSeconds,
		"new_asset_settings": map[string]any{
			"playback_policy": []string{"public"},
			"video_quality":   "basic",
		},
	}
	if corsOrigin != "" {
		body["cors_origin"] = corsOrigin
	}
	var out dataEnvelope[DirectUpload]
	if err := c.do(ctx, http.MethodPost, "/video/v1/uploads", body, &out); err != nil {
		return DirectUpload{}, err
	}
	if out.Data == nil || out.Data.ID == "" || out.Data.URL == "" {
		return DirectUpload{}, xerrors.New("Mux did not return a direct upload URL.")
	}
	return *out.Data, nil
}

func (c *Client) GetUpload(ctx context.Context, uploadID string) (Upload, error) {
	var out dataEnvelope[Upload]
	if err := c.do(ctx, http.MethodGet, "/video/v1/uploads/"+url.PathEscape(uploadID), nil, &out); err != nil {
		return Upload{}, err
	}
	if out.Data == nil || out.Data.ID == "" {
		return Upload{}, xerrors.New("Mux upload lookup failed.")
	}
	return *out.Data, nil
}

func (c *Client) GetAsset(ctx context.Context, assetID string) (Asset, error) {
	var out dataEnvelope[Asset]
	if err := c.do(ctx, http.MethodGet, "/video/v1/assets/"+url.PathEscape(assetID), nil, &out); err != nil {
		return Asset{}, err
	}
	if out.Data == nil || out.Data.ID == "" {
		return Asset{}, xerrors.New("Mux asset lookup failed.")
	}
	return *out.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return xerrors.Wrap(err, "encode mux request")
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return xerrors.Wrap(err, "build mux request")
	}
	req.SetBasicAuth(c.tokenID, c.tokenSecret)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return xerrors.Wrapf(err, "mux %s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return xerrors.Wrapf(err, "read mux response %s", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Status:  resp.StatusCode,
			Message: errorMessage(raw, fmt.Sprintf("Mux API request failed (%d).", resp.StatusCode)),
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("Mux API request failed (%d).", resp.StatusCode)}
	}
	return nil
}

// errorMessage digs the human message out of a Mux error body. Mux has used
// several shapes over time; the first non-blank candidate wins.
func errorMessage(raw []byte, fallback string) string {
	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		return fallback
	}
	if s := nonBlank(root["error"]); s != "" {
		return s
	}
	if obj, ok := root["error"].(map[string]any); ok {
		if s := firstString(obj["messages"]); s != "" {
			return s
		}
		if s := nonBlank(obj["message"]); s != "" {
			return s
		}
	}
	if s := firstString(root["messages"]); s != "" {
		return s
	}
	return fallback
}

func nonBlank(v any) string {
	s, _ := v.(string)
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

func firstString(v any) string {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	return nonBlank(list[0])
}
