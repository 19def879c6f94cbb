package sitehandler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/go-chi/chi/v5"

	"github.com/brilliantaksan/brilliantaksan-web/internal/contentstore"
	"github.com/brilliantaksan/brilliantaksan-web/internal/session"
	"github.com/brilliantaksan/brilliantaksan-web/internal/sitecontent"
	"github.com/brilliantaksan/brilliantaksan-web/internal/webassets"
)

const ownerEmail = "owner@example.com"

type stubResolver struct {
	doc sitecontent.SiteContent
	src contentstore.Source
	err error
}

func (s stubResolver) Resolve(context.Context) (sitecontent.SiteContent, contentstore.Source, error) {
	return s.doc, s.src, s.err
}

type fixture struct {
	router http.Handler
	cookie *http.Cookie
}

func newFixture(t *testing.T, res ContentResolver) *fixture {
	t.Helper()
	codec := session.NewCodec([]byte(strings.Repeat("k", 32)))
	svc := session.NewService(codec, session.ParseAllowlist(ownerEmail), nil)

	h, err := New(&Options{
		Content:   res,
		Templates: webassets.TemplatesFS(),
		Static:    webassets.StaticFS(),
		Fallback:  webassets.FallbackFS(),
		Identity:  IdentityConfig{APIKey: "public-key", AuthDomain: "site.firebaseapp.com", ProjectID: "site"},
		Guard:     svc.Guard,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.NotFound)

	tok, err := codec.Issue(ownerEmail)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return &fixture{router: r, cookie: &http.Cookie{Name: session.CookieName, Value: tok}}
}

func (f *fixture) do(method, target string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	if authed {
		req.AddCookie(f.cookie)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func bundled(t *testing.T) sitecontent.SiteContent {
	t.Helper()
	doc, err := sitecontent.Bundled()
	if err != nil {
		t.Fatalf("Bundled: %v", err)
	}
	return doc
}

// homepage

func TestHome_RendersDocument(t *testing.T) {
	doc := bundled(t)
	doc.Hero.Headline = "Hello <from> the store"
	doc.Projects = append(doc.Projects, sitecontent.ProjectItem{Title: "Reel", Video: "https://stream.mux.com/abc123.m3u8"})
	f := newFixture(t, stubResolver{doc: doc, src: contentstore.SourceLastGood})

	rec := f.do(http.MethodGet, "/", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get(ContentSourceHeader); got != "last-good" {
		t.Fatalf("%s = %q, want last-good", ContentSourceHeader, got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Fatalf("Cache-Control = %q", got)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"Hello &lt;from&gt; the store",
		doc.Meta.Name,
		`poster="https://image.mux.com/abc123/thumbnail.jpg?time=1"`,
		`data-icon="github"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q", want)
		}
	}
}

func TestHome_HeadHasNoBody(t *testing.T) {
	f := newFixture(t, stubResolver{doc: bundled(t), src: contentstore.SourceLive})
	rec := f.do(http.MethodHead, "/", false)
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("HEAD = %d with %d bytes", rec.Code, rec.Body.Len())
	}
}

func TestHome_Maintenance(t *testing.T) {
	f := newFixture(t, stubResolver{err: errors.New("bundled copy corrupt")})
	rec := f.do(http.MethodGet, "/", false)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After missing")
	}
	if !strings.Contains(strings.ToLower(rec.Body.String()), "maintenance") {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

// admin pages

func TestAdminPages(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		authed   bool
		status   int
		location string
		contains string
	}{
		{"login anonymous", "/admin", false, http.StatusOK, "", `data-api-key="public-key"`},
		{"login keeps safe next", "/admin?next=/admin/studio", false, http.StatusOK, "", `data-next="/admin/studio"`},
		{"login drops offsite next", "/admin?next=https://evil.example", false, http.StatusOK, "", `data-next=""`},
		{"login authorized redirects", "/admin", true, http.StatusTemporaryRedirect, "/admin/studio", ""},
		{"studio anonymous redirects", "/admin/studio", false, http.StatusTemporaryRedirect, "/admin?next=%2Fadmin%2Fstudio", ""},
		{"studio authorized", "/admin/studio", true, http.StatusOK, "", ownerEmail},
		{"unknown admin anonymous", "/admin/settings", false, http.StatusTemporaryRedirect, "/admin?next=%2Fadmin%2Fsettings", ""},
		{"unknown admin authorized", "/admin/settings", true, http.StatusNotFound, "", ""},
	}
	f := newFixture(t, stubResolver{doc: bundled(t)})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodGet, tt.target, tt.authed)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get("Location"); got != tt.location {
				t.Fatalf("Location = %q, want %q", got, tt.location)
			}
			if tt.contains != "" && !strings.Contains(rec.Body.String(), tt.contains) {
				t.Fatalf("body missing %q", tt.contains)
			}
		})
	}
}

func TestStudio_NotCached(t *testing.T) {
	f := newFixture(t, stubResolver{doc: bundled(t)})
	rec := f.do(http.MethodGet, "/admin/studio", true)
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q, want no-store", got)
	}
}

// static and fallbacks

func TestStatic(t *testing.T) {
	tests := []struct {
		target string
		status int
		cache  string
	}{
		{"/static/site.css", http.StatusOK, "public, max-age=3600"},
		{"/static/studio.js", http.StatusOK, "public, max-age=3600"},
		{"/static/missing.css", http.StatusNotFound, "no-store"},
		{"/static/", http.StatusNotFound, "no-store"},
		{"/static/..%2fsite.css", http.StatusNotFound, "no-store"},
	}
	f := newFixture(t, stubResolver{doc: bundled(t)})
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := f.do(http.MethodGet, tt.target, false)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get("Cache-Control"); got != tt.cache {
				t.Fatalf("Cache-Control = %q, want %q", got, tt.cache)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	f := newFixture(t, stubResolver{doc: bundled(t)})

	rec := f.do(http.MethodGet, "/wp-login.php", false)
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Page not found") {
		t.Fatalf("GET unknown = %d %q", rec.Code, rec.Body.String())
	}

	rec = f.do(http.MethodPost, "/", false)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST / = %d, want 405", rec.Code)
	}
	if got := rec.Header().Get("Allow"); got != "GET, HEAD" {
		t.Fatalf("Allow = %q", got)
	}
}

func TestNew_Validation(t *testing.T) {
	guard := func(h http.Handler) http.Handler { return h }
	base := func() *Options {
		return &Options{
			Content:   stubResolver{},
			Templates: webassets.TemplatesFS(),
			Static:    webassets.StaticFS(),
			Fallback:  webassets.FallbackFS(),
			Guard:     guard,
		}
	}
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"no content", func(o *Options) { o.Content = nil }},
		{"no guard", func(o *Options) { o.Guard = nil }},
		{"no maintenance page", func(o *Options) { o.Fallback = fstest.MapFS{} }},
		{"no templates", func(o *Options) { o.Templates = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := base()
			tt.mutate(o)
			if _, err := New(o); !errors.Is(err, ErrInvalidOptions) {
				t.Fatalf("err = %v, want ErrInvalidOptions", err)
			}
		})
	}
	if _, err := New(base()); err != nil {
		t.Fatalf("valid options: %v", err)
	}
}

func TestResolveStatic(t *testing.T) {
	fsys := fstest.MapFS{
		"site.css":       {Data: []byte("body{}")},
		"img/avatar.jpg": {Data: []byte{0xff}},
	}
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"site.css", "site.css", true},
		{"/img/avatar.jpg", "img/avatar.jpg", true},
		{"img", "", false},
		{"img/", "", false},
		{"../site.css", "", false},
		{"img/./avatar.jpg", "", false},
		{`img\avatar.jpg`, "", false},
		{"site.css\x00", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := resolveStatic(tt.in, fsys)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("resolveStatic(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
