package sitehandler

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brilliantaksan/brilliantaksan-web/internal/log"
	"github.com/brilliantaksan/brilliantaksan-web/internal/session"
	"github.com/brilliantaksan/brilliantaksan-web/internal/sitecontent"
)

// ContentSourceHeader reports which copy of the document a page came from.
const ContentSourceHeader = "X-Content-Source"

var funcs = template.FuncMap{
	"shortcuts": sitecontent.SocialShortcuts,
	"thumbnail": sitecontent.ThumbnailURL,
}

// Handler renders the public homepage and the admin pages.
type Handler struct {
	opts   Options
	home   *template.Template
	login  *template.Template
	studio *template.Template
}

func New(opts *Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	h := &Handler{opts: *opts}
	for _, p := range []struct {
		dst  **template.Template
		name string
	}{
		{&h.home, "home.html.tmpl"},
		{&h.login, "login.html.tmpl"},
		{&h.studio, "studio.html.tmpl"},
	} {
		t, err := template.New(p.name).Funcs(funcs).ParseFS(opts.Templates, "layout.html.tmpl", p.name)
		if err != nil {
			return nil, err
		}
		*p.dst = t
	}
	return h, nil
}

// RegisterRoutes mounts the pages on r. Every /admin page sits behind the
// guard; unknown /admin paths are guarded before they 404.
func (h *Handler) RegisterRoutes(r chi.Router) {
	getHead(r, "/", http.HandlerFunc(h.serveHome))
	getHead(r, "/static/*", http.HandlerFunc(h.serveStatic))

	r.Group(func(r chi.Router) {
		r.Use(h.opts.Guard)
		getHead(r, "/admin", http.HandlerFunc(h.serveLogin))
		getHead(r, "/admin/", http.HandlerFunc(h.serveLogin))
		getHead(r, "/admin/studio", http.HandlerFunc(h.serveStudio))
		getHead(r, "/admin/*", http.HandlerFunc(h.NotFound))
	})
}

func getHead(r chi.Router, pattern string, h http.Handler) {
	r.Method(http.MethodGet, pattern, h)
	r.Method(http.MethodHead, pattern, h)
}

func (h *Handler) serveHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc, src, err := h.opts.Content.Resolve(ctx)
	if err != nil {
		log.FromContext(ctx).Error(ctx, err, "no content document could be resolved")
		h.serveMaintenance(w, r)
		return
	}
	w.Header().Set(ContentSourceHeader, string(src))
	h.render(w, r, h.home, doc)
}

type loginData struct {
	Identity IdentityConfig
	Next     string
}

func (h *Handler) serveLogin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, h.login, loginData{Identity: h.opts.Identity, Next: safeNext(r.URL.Query().Get("next"))})
}

type studioData struct {
	Email string
}

func (h *Handler) serveStudio(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		// the guard only passes authorized sessions through
		http.Redirect(w, r, session.LoginPath, http.StatusTemporaryRedirect)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.render(w, r, h.studio, studioData{Email: sess.Email})
}

// safeNext keeps post-login redirects on the admin surface.
func safeNext(next string) string {
	if strings.HasPrefix(next, session.LoginPath+"/") && !strings.HasPrefix(next, "//") && !strings.Contains(next, "\\") {
		return next
	}
	return ""
}

// render executes into a buffer so a template error becomes a clean 500
// rather than a half-written page.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, t *template.Template, data any) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		log.FromContext(r.Context()).Error(r.Context(), err, "template render failed", "template", t.Name())
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	hdr := w.Header()
	hdr.Set("Content-Type", "text/html; charset=utf-8")
	if hdr.Get("Cache-Control") == "" {
		hdr.Set("Cache-Control", h.opts.HTMLCacheControl)
	}
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(buf.Bytes())
	}
}

func (h *Handler) serveStatic(w http.ResponseWriter, r *http.Request) {
	name, ok := resolveStatic(chi.URLParam(r, "*"), h.opts.Static)
	if !ok {
		h.NotFound(w, r)
		return
	}
	if cc := cacheControlFor(name, &h.opts); cc != "" {
		w.Header().Set("Cache-Control", cc)
	}
	http.ServeFileFS(w, r, h.opts.Static, name)
}

// NotFound is the router's fallback: GET/HEAD get the 404 page, anything
// else a bare 405 for unknown paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	if _, err := fs.Stat(h.opts.Fallback, h.opts.NotFoundFile); err == nil {
		serveFileWithStatus(w, r, http.StatusNotFound, h.opts.Fallback, h.opts.NotFoundFile)
		return
	}
	http.Error(w, "404 page not found", http.StatusNotFound)
}

func (h *Handler) serveMaintenance(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", "60")
	serveFileWithStatus(w, r, http.StatusServiceUnavailable, h.opts.Fallback, h.opts.MaintenanceFile)
}

// statusOverrideWriter swaps the status http.ServeFileFS writes, so a
// fallback page can be served as 404 or 503.
type statusOverrideWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusOverrideWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		code = w.status
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusOverrideWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(w.status)
	}
	return w.ResponseWriter.Write(b)
}

func serveFileWithStatus(w http.ResponseWriter, r *http.Request, status int, fsys fs.FS, name string) {
	// conditional requests would turn a 404/503 into a 304
	r.Header.Del("If-Modified-Since")
	r.Header.Del("If-None-Match")
	http.ServeFileFS(&statusOverrideWriter{ResponseWriter: w, status: status}, r, fsys, name)
}
