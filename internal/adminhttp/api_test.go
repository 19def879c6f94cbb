package adminhttp

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brilliantaksan/brilliantaksan-web/internal/contentstore"
	"github.com/brilliantaksan/brilliantaksan-web/internal/identity"
	"github.com/brilliantaksan/brilliantaksan-web/internal/media"
	"github.com/brilliantaksan/brilliantaksan-web/internal/session"
	"github.com/brilliantaksan/brilliantaksan-web/internal/sitecontent"
	"github.com/brilliantaksan/brilliantaksan-web/internal/video"
)

// test stubs

// memStore keeps the document in memory with an integer revision.
type memStore struct {
	mu       sync.Mutex
	raw      []byte
	rev      int
	readErr  error
	writeErr error
}

func newMemStore(t *testing.T) *memStore {
	t.Helper()
	raw, err := sitecontent.Encode(sitecontent.SiteContent{Meta: sitecontent.SiteMeta{Name: "Brilliant"}})
	if err != nil {
		t.Fatal(err)
	}
	return &memStore{raw: raw, rev: 1}
}

func (m *memStore) Read(context.Context) (contentstore.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return contentstore.Document{Medium: contentstore.GitBacked}, m.readErr
	}
	doc, err := sitecontent.Decode(m.raw)
	if err != nil {
		return contentstore.Document{}, err
	}
	return contentstore.Document{Content: doc, Raw: m.raw, Revision: "r" + strconv.Itoa(m.rev), Medium: contentstore.GitBacked}, nil
}

func (m *memStore) WriteWithRevision(_ context.Context, raw []byte, rev string) (contentstore.Document, error) {
	data, doc, err := sitecontent.Canonicalize(raw)
	if err != nil {
		return contentstore.Document{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return contentstore.Document{}, m.writeErr
	}
	if rev != "" && rev != "r"+strconv.Itoa(m.rev) {
		return contentstore.Document{}, fmt.Errorf("update: %w", contentstore.ErrConflict)
	}
	m.raw = data
	m.rev++
	return contentstore.Document{Content: doc, Raw: data, Revision: "r" + strconv.Itoa(m.rev), Medium: contentstore.GitBacked}, nil
}

type recorder struct{ docs []contentstore.Document }

func (r *recorder) Remember(doc contentstore.Document) { r.docs = append(r.docs, doc) }

type stubVideo struct {
	configured bool
	origin     string
	status     video.Status
	err        error
}

func (s *stubVideo) Configured() bool { return s.configured }

func (s *stubVideo) CreateDirectUpload(_ context.Context, origin string) (video.DirectUpload, error) {
	s.origin = origin
	if s.err != nil {
		return video.DirectUpload{}, s.err
	}
	return video.DirectUpload{ID: "up1", URL: "https://upload.example/up1"}, nil
}

func (s *stubVideo) UploadStatus(_ context.Context, id string) (video.Status, error) {
	if s.err != nil {
		return video.Status{}, s.err
	}
	st := s.status
	st.AssetID = id
	return st, nil
}

type stubImages struct{ configured bool }

func (s stubImages) Configured() bool { return s.configured }

func (s stubImages) PresignImageUpload(_ context.Context, filename, ct string) (media.Upload, error) {
	if !strings.HasPrefix(ct, "image/") {
		return media.Upload{}, media.ErrUnsupportedMedia
	}
	return media.Upload{Key: "uploads/1-" + filename, UploadURL: "https://s3.example/put", Method: http.MethodPut}, nil
}

const (
	owner         = "owner@example.com"
	webhookSecret = "whsec_test"
)

var testNow = time.Unix(1_700_000_000, 0)

type fixture struct {
	router   http.Handler
	store    *memStore
	snaps    *recorder
	video    *stubVideo
	codec    *session.Codec
	webhooks []string
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		store: newMemStore(t),
		snaps: &recorder{},
		video: &stubVideo{configured: true},
		codec: session.NewCodec([]byte("0123456789abcdef0123456789abcdef")),
	}
	verifier := identity.VerifierFunc(func(_ context.Context, tok string) (identity.Identity, error) {
		switch tok {
		case "good":
			return identity.Identity{UID: "u1", Email: "Owner@Example.com"}, nil
		case "stranger":
			return identity.Identity{UID: "u2", Email: "stranger@example.com"}, nil
		case "down":
			return identity.Identity{}, errors.New("identity provider unavailable")
		default:
			return identity.Identity{}, identity.ErrInvalidToken
		}
	})
	opts := Options{
		Sessions:      session.NewService(f.codec, session.ParseAllowlist(owner), verifier),
		Store:         f.store,
		Snapshots:     f.snaps,
		Video:         f.video,
		Images:        stubImages{configured: true},
		WebhookSecret: webhookSecret,
		OnWebhook:     func(typ string) { f.webhooks = append(f.webhooks, typ) },
		Now:           func() time.Time { return testNow },
	}
	for _, m := range mutate {
		m(&opts)
	}
	r := chi.NewRouter()
	NewAPI(opts).RegisterRoutes(r)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body string, cookie bool, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, rd)
	if cookie {
		tok, err := f.codec.Issue(owner)
		if err != nil {
			t.Fatal(err)
		}
		r.AddCookie(&http.Cookie{Name: session.CookieName, Value: tok})
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		r.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, r)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	if got := decode(t, rec)["error"]; got != msg {
		t.Fatalf("error = %q, want %q", got, msg)
	}
}

// content

func TestContent_RequiresSession(t *testing.T) {
	f := newFixture(t)
	for _, m := range []string{http.MethodGet, http.MethodPut} {
		rec := f.do(t, m, "/api/admin/content", `{"content":{}}`, false)
		wantError(t, rec, http.StatusUnauthorized, "Unauthorized")
	}
	if f.store.rev != 1 {
		t.Fatal("store mutated by unauthorized request")
	}
}

func TestContentGet(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/admin/content", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("Cache-Control = %q", cc)
	}
	body := decode(t, rec)
	content := body["content"].(map[string]any)
	if content["meta"].(map[string]any)["name"] != "Brilliant" || body["revision"] != "r1" || body["medium"] != "git" {
		t.Fatalf("body = %v", body)
	}
}

func TestContentGet_StoreError(t *testing.T) {
	f := newFixture(t)
	f.store.readErr = errors.New("github content fetch: 502")
	rec := f.do(t, http.MethodGet, "/api/admin/content", "", true)
	wantError(t, rec, http.StatusInternalServerError, "github content fetch: 502")
}

func TestContentPut(t *testing.T) {
	f := newFixture(t)
	doc, _ := sitecontent.Encode(sitecontent.SiteContent{Meta: sitecontent.SiteMeta{Name: "Edited"}})
	rec := f.do(t, http.MethodPut, "/api/admin/content", `{"content":`+string(doc)+`,"revision":"r1"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["ok"] != true || body["revision"] != "r2" {
		t.Fatalf("body = %v", body)
	}
	if !bytes.Contains(f.store.raw, []byte(`"Edited"`)) {
		t.Fatal("store not updated")
	}
	if len(f.snaps.docs) != 1 || f.snaps.docs[0].Content.Meta.Name != "Edited" {
		t.Fatalf("snapshots = %+v", f.snaps.docs)
	}
}

func TestContentPut_Invalid(t *testing.T) {
	f := newFixture(t)
	before := append([]byte(nil), f.store.raw...)
	for _, body := range []string{
		`not json`,
		`{}`,
		`{"content":null}`,
		`{"content":{"meta":{}}}`,
		`{"content":[]}`,
	} {
		rec := f.do(t, http.MethodPut, "/api/admin/content", body, true)
		wantError(t, rec, http.StatusBadRequest, "Invalid content payload.")
	}
	if !bytes.Equal(before, f.store.raw) || len(f.snaps.docs) != 0 {
		t.Fatal("invalid payload mutated state")
	}
}

func TestContentPut_StaleRevision(t *testing.T) {
	f := newFixture(t)
	doc, _ := sitecontent.Encode(sitecontent.SiteContent{})
	rec := f.do(t, http.MethodPut, "/api/admin/content", `{"content":`+string(doc)+`,"revision":"r0"}`, true)
	wantError(t, rec, http.StatusConflict, msgConflict)
}

func TestContentPut_NoWritableMedium(t *testing.T) {
	f := newFixture(t)
	f.store.writeErr = &contentstore.NoWritableMediumError{Path: "content/site.json", Err: errors.New("read-only file system")}
	doc, _ := sitecontent.Encode(sitecontent.SiteContent{})
	rec := f.do(t, http.MethodPut, "/api/admin/content", `{"content":`+string(doc)+`}`, true)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if msg := decode(t, rec)["error"].(string); !strings.Contains(msg, "BA_CONTENT_S3_BUCKET") {
		t.Fatalf("error = %q, should name the missing configuration", msg)
	}
}

// session

func TestSessionGet(t *testing.T) {
	f := newFixture(t)

	if body := decode(t, f.do(t, http.MethodGet, "/api/admin/session", "", false)); body["authenticated"] != false {
		t.Fatalf("anonymous body = %v", body)
	}
	body := decode(t, f.do(t, http.MethodGet, "/api/admin/session", "", true))
	if body["authenticated"] != true || body["email"] != owner {
		t.Fatalf("authorized body = %v", body)
	}

	// valid token for an email that is not allowlisted
	tok, _ := f.codec.Issue("stranger@example.com")
	r := httptest.NewRequest(http.MethodGet, "/api/admin/session", nil)
	r.AddCookie(&http.Cookie{Name: session.CookieName, Value: tok})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, r)
	if body := decode(t, rec); body["authenticated"] != false {
		t.Fatalf("non-allowlisted body = %v", body)
	}
}

func TestSessionCreate(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/admin/session", `{"accessToken":"good"}`, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["authenticated"] != true || body["email"] != owner {
		t.Fatalf("body = %v", body)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %v", cookies)
	}
	c := cookies[0]
	if c.Name != session.CookieName || !c.HttpOnly || c.SameSite != http.SameSiteLaxMode || c.Path != "/" || c.MaxAge != 43200 {
		t.Fatalf("cookie = %+v", c)
	}
	if _, ok := f.codec.Verify(c.Value); !ok {
		t.Fatal("issued cookie does not verify")
	}
}

func TestSessionCreate_Errors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		body   string
		status int
		msg    string
	}{
		{`{}`, http.StatusBadRequest, "Missing access token."},
		{`{"accessToken":"   "}`, http.StatusBadRequest, "Missing access token."},
		{``, http.StatusBadRequest, "Missing access token."},
		{`{"accessToken":`, http.StatusBadRequest, "Invalid request body."},
		{`{"accessToken":"forged"}`, http.StatusUnauthorized, "Invalid identity session."},
		{`{"accessToken":"stranger"}`, http.StatusForbidden, "Account is not authorized for admin access."},
		{`{"accessToken":"down"}`, http.StatusInternalServerError, "identity provider unavailable"},
	}
	for _, tt := range tests {
		rec := f.do(t, http.MethodPost, "/api/admin/session", tt.body, false)
		wantError(t, rec, tt.status, tt.msg)
		if len(rec.Result().Cookies()) != 0 {
			t.Fatalf("%s: cookie set on failed login", tt.body)
		}
	}
}

func TestSessionCreate_RateLimited(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.LoginLimiter = func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			})
		}
	})
	if rec := f.do(t, http.MethodPost, "/api/admin/session", `{"accessToken":"good"}`, false); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	// only login is limited
	if rec := f.do(t, http.MethodGet, "/api/admin/session", "", false); rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
}

func TestSessionDelete(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodDelete, "/api/admin/session", "", false)
	if rec.Code != http.StatusOK || decode(t, rec)["authenticated"] != false {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	c := rec.Result().Cookies()
	if len(c) != 1 || c[0].Value != "" || c[0].MaxAge >= 0 {
		t.Fatalf("cookies = %+v", c)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Fatalf("Set-Cookie = %q", rec.Header().Get("Set-Cookie"))
	}
}

// video and media

func TestDirectUpload_Origin(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		header string
		want   string
	}{
		{"body wins", `{"corsOrigin":"https://a.example"}`, "https://example.com", "https://a.example"},
		{"header fallback", `{}`, "https://example.com", "https://example.com"},
		{"empty body", ``, "https://example.com", "https://example.com"},
		{"null origin dropped", ``, "null", ""},
		{"none", ``, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, "/api/admin/mux/direct-upload", tt.body, true, "Origin", tt.header)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}
			body := decode(t, rec)
			if body["uploadId"] != "up1" || body["uploadUrl"] != "https://upload.example/up1" {
				t.Fatalf("body = %v", body)
			}
			if f.video.origin != tt.want {
				t.Fatalf("origin = %q, want %q", f.video.origin, tt.want)
			}
		})
	}
}

func TestAdminAPI_RejectsCrossOriginWrites(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/admin/mux/direct-upload", `{}`, true, "Origin", "https://evil.example")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if f.video.origin != "" {
		t.Fatal("cross-origin request reached the video client")
	}

	rec = f.do(t, http.MethodPut, "/api/admin/content", `{"content":{}}`, true, "Sec-Fetch-Site", "cross-site")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("PUT status = %d, want 403", rec.Code)
	}

	// reads stay open so the studio can load from any tab
	rec = f.do(t, http.MethodGet, "/api/admin/session", "", true, "Origin", "https://evil.example")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", rec.Code)
	}
}

func TestDirectUpload_Errors(t *testing.T) {
	f := newFixture(t)
	wantError(t, f.do(t, http.MethodPost, "/api/admin/mux/direct-upload", "", false), http.StatusUnauthorized, "Unauthorized")

	f.video.err = errors.New("cors_origin is invalid")
	wantError(t, f.do(t, http.MethodPost, "/api/admin/mux/direct-upload", "", true), http.StatusInternalServerError, "cors_origin is invalid")

	f.video.configured = false
	rec := f.do(t, http.MethodPost, "/api/admin/mux/direct-upload", "", true)
	if rec.Code != http.StatusInternalServerError || !strings.Contains(decode(t, rec)["error"].(string), "BA_MUX_TOKEN_ID") {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestUploadStatus(t *testing.T) {
	f := newFixture(t)
	f.video.status = video.Status{State: video.StateReady, PlaybackID: "p1", PlaybackURL: video.PlaybackURL("p1")}

	rec := f.do(t, http.MethodGet, "/api/admin/mux/upload/abc", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "ready" || body["assetId"] != "abc" || body["playbackUrl"] != "https://stream.mux.com/p1.m3u8" {
		t.Fatalf("body = %v", body)
	}
}

func TestImageUpload(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/admin/media/image-upload", `{"filename":"a.png","contentType":"image/png"}`, true)
	if rec.Code != http.StatusOK || decode(t, rec)["key"] != "uploads/1-a.png" {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	wantError(t, f.do(t, http.MethodPost, "/api/admin/media/image-upload", `{"filename":"a.mp4","contentType":"video/mp4"}`, true),
		http.StatusBadRequest, "Only image uploads are supported.")

	unset := newFixture(t, func(o *Options) { o.Images = stubImages{} })
	rec = unset.do(t, http.MethodPost, "/api/admin/media/image-upload", `{"filename":"a.png","contentType":"image/png"}`, true)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

// webhook

func signed(body string, ts time.Time, secret string) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(t + "." + body))
	return "t=" + t + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestMuxWebhook(t *testing.T) {
	const ready = `{"id":"ev1","type":"video.asset.ready","data":{"id":"a1","playback_ids":[{"id":"p1"}]}}`
	tests := []struct {
		name   string
		body   string
		sig    string
		status int
		msg    string
	}{
		{"ok", ready, signed(ready, testNow, webhookSecret), http.StatusOK, ""},
		{"missing header", ready, "", http.StatusBadRequest, "Missing mux-signature header."},
		{"wrong secret", ready, signed(ready, testNow, "other"), http.StatusUnauthorized, "Invalid webhook signature."},
		{"stale", ready, signed(ready, testNow.Add(-6*time.Minute), webhookSecret), http.StatusUnauthorized, "Invalid webhook signature."},
		{"bad json", `{nope`, signed(`{nope`, testNow, webhookSecret), http.StatusBadRequest, "Invalid JSON payload."},
		{"no type", `{"id":"x"}`, signed(`{"id":"x"}`, testNow, webhookSecret), http.StatusBadRequest, "Invalid Mux event payload."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var hdr []string
			if tt.sig != "" {
				hdr = []string{video.SignatureHeader, tt.sig}
			}
			rec := f.do(t, http.MethodPost, "/api/mux/webhook", tt.body, false, hdr...)
			if tt.status == http.StatusOK {
				if rec.Code != http.StatusOK || decode(t, rec)["ok"] != true {
					t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
				}
				if len(f.webhooks) != 1 || f.webhooks[0] != "video.asset.ready" {
					t.Fatalf("observed = %v", f.webhooks)
				}
				return
			}
			wantError(t, rec, tt.status, tt.msg)
			if len(f.webhooks) != 0 {
				t.Fatal("rejected delivery was observed")
			}
		})
	}
}

func TestMuxWebhook_SecretMissing(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.WebhookSecret = "" })
	rec := f.do(t, http.MethodPost, "/api/mux/webhook", `{}`, false, video.SignatureHeader, "t=1,v1=00")
	wantError(t, rec, http.StatusInternalServerError, "Mux webhook secret is not configured.")
}
