// Package studioclient talks to the admin API the way the studio page does,
// for scripted edits and uploads from a terminal.
package studioclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brilliantaksan/brilliantaksan-web/internal/contentstore"
	"github.com/brilliantaksan/brilliantaksan-web/internal/media"
	"github.com/brilliantaksan/brilliantaksan-web/internal/session"
	"github.com/brilliantaksan/brilliantaksan-web/internal/video"
	"github.com/brilliantaksan/brilliantaksan-web/internal/xerrors"
)

// maxResponseBytes bounds API responses; the content document is the largest.
const maxResponseBytes = 8 << 20

// APIError is a non-2xx answer from the admin API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("admin api: %d %s", e.Status, e.Message)
}

// Is lets a 409 match contentstore.ErrConflict.
func (e *APIError) Is(target error) bool {
	return target == contentstore.ErrConflict && e.Status == http.StatusConflict
}

type Options struct {
	BaseURL string
	// Session is the value of the admin session cookie.
	Session    string
	HTTPClient *http.Client
}

type Client struct {
	base    *url.URL
	session string
	hc      *http.Client
}

func New(opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, xerrors.Newf("studioclient: invalid base url %q", opts.BaseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{base: u, session: opts.Session, hc: hc}, nil
}

// Session returns the cookie value in use, set by Login.
func (c *Client) Session() string { return c.session }

// Content is the editable document as the API returns it.
type Content struct {
	Content  json.RawMessage `json:"content"`
	Revision string          `json:"revision,omitempty"`
	Medium   string          `json:"medium"`
}

type saved struct {
	OK       bool   `json:"ok"`
	Revision string `json:"revision,omitempty"`
	Medium   string `json:"medium"`
}

// Login exchanges an identity provider token for a session and keeps the
// cookie for later calls.
func (c *Client) Login(ctx context.Context, accessToken string) (string, error) {
	var out struct {
		Authenticated bool   `json:"authenticated"`
		Email         string `json:"email"`
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/admin/session", map[string]string{"accessToken": accessToken}, &out)
	if err != nil {
		return "", err
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == session.CookieName {
			c.session = ck.Value
		}
	}
	if c.session == "" {
		return "", xerrors.New("studioclient: login succeeded without a session cookie")
	}
	return out.Email, nil
}

func (c *Client) GetContent(ctx context.Context) (Content, error) {
	var out Content
	_, err := c.do(ctx, http.MethodGet, "/api/admin/content", nil, &out)
	return out, err
}

// PutContent saves raw. A non-empty revision makes the save fail with an
// error matching contentstore.ErrConflict when someone saved in between.
func (c *Client) PutContent(ctx context.Context, raw json.RawMessage, revision string) (string, error) {
	var out saved
	_, err := c.do(ctx, http.MethodPut, "/api/admin/content", Content{Content: raw, Revision: revision}, &out)
	return out.Revision, err
}

// UploadVideo sends the file to a fresh direct upload and returns its id.
func (c *Client) UploadVideo(ctx context.Context, body io.Reader, size int64) (string, error) {
	var up struct {
		UploadID  string `json:"uploadId"`
		UploadURL string `json:"uploadUrl"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/api/admin/mux/direct-upload", struct{}{}, &up); err != nil {
		return "", err
	}
	if err := c.putObject(ctx, up.UploadURL, body, size, nil); err != nil {
		return "", err
	}
	return up.UploadID, nil
}

func (c *Client) UploadStatus(ctx context.Context, uploadID string) (video.Status, error) {
	var st video.Status
	_, err := c.do(ctx, http.MethodGet, "/api/admin/mux/upload/"+url.PathEscape(uploadID), nil, &st)
	return st, err
}

// WaitForVideo polls the upload until it is playable.
func (c *Client) WaitForVideo(ctx context.Context, uploadID string, opts video.PollOptions) (video.PollResult, error) {
	res, err := video.Poll(ctx, func(ctx context.Context) (video.Status, error) {
		return c.UploadStatus(ctx, uploadID)
	}, opts)
	if err != nil {
		return res, err
	}
	return res, res.Err()
}

// UploadImage presigns and uploads one image, returning its public URL.
func (c *Client) UploadImage(ctx context.Context, filename, contentType string, body io.Reader, size int64) (string, error) {
	var up media.Upload
	req := map[string]string{"filename": filename, "contentType": contentType}
	if _, err := c.do(ctx, http.MethodPost, "/api/admin/media/image-upload", req, &up); err != nil {
		return "", err
	}
	if err := c.putObject(ctx, up.UploadURL, body, size, up.Headers); err != nil {
		return "", err
	}
	return up.PublicURL, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, xerrors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, xerrors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: c.session})
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, xerrors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp, xerrors.Wrapf(err, "read %s %s", method, path)
	}

	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return resp, &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp, xerrors.Wrapf(err, "decode %s %s", method, path)
		}
	}
	return resp, nil
}

// putObject uploads to a presigned or direct-upload URL. No session cookie
// is sent off-site.
func (c *Client) putObject(ctx context.Context, target string, body io.Reader, size int64, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, body)
	if err != nil {
		return xerrors.Wrap(err, "build upload request")
	}
	req.ContentLength = size
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return xerrors.Wrap(err, "upload")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode/100 != 2 {
		return xerrors.Newf("upload rejected: %s", resp.Status)
	}
	return nil
}
