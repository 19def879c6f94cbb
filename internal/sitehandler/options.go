package sitehandler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/brilliantaksan/brilliantaksan-web/internal/contentstore"
	"github.com/brilliantaksan/brilliantaksan-web/internal/log"
	"github.com/brilliantaksan/brilliantaksan-web/internal/sitecontent"
)

var ErrInvalidOptions = errors.New("sitehandler: invalid options")

// ContentResolver is satisfied by *contentstore.Manager.
type ContentResolver interface {
	Resolve(ctx context.Context) (sitecontent.SiteContent, contentstore.Source, error)
}

// IdentityConfig is the public web config of the identity provider, handed
// to the sign-in page. None of it is secret.
type IdentityConfig struct {
	APIKey     string
	AuthDomain string
	ProjectID  string
}

type Options struct {
	Logger  log.Logger
	Content ContentResolver

	// Templates holds home, login and studio templates plus the shared layout.
	Templates fs.FS
	// Static is served under /static/.
	Static fs.FS
	// Fallback holds pages that render without a document.
	Fallback fs.FS

	Identity IdentityConfig
	// Guard wraps every /admin page (session.Service.Guard).
	Guard func(http.Handler) http.Handler

	MaintenanceFile string // default: "maintenance.html"
	NotFoundFile    string // default: "404.html"

	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=3600"
	OtherCacheControl string // default: "public, max-age=300"
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.MaintenanceFile == "" {
		o.MaintenanceFile = "maintenance.html"
	}
	if o.NotFoundFile == "" {
		o.NotFoundFile = "404.html"
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	// static files are not fingerprinted, so they cannot be immutable
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=3600"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=300"
	}
}

func (o *Options) validate() error {
	switch {
	case o.Content == nil:
		return fmt.Errorf("%w: Content is nil", ErrInvalidOptions)
	case o.Templates == nil:
		return fmt.Errorf("%w: Templates is nil", ErrInvalidOptions)
	case o.Static == nil:
		return fmt.Errorf("%w: Static is nil", ErrInvalidOptions)
	case o.Fallback == nil:
		return fmt.Errorf("%w: Fallback is nil", ErrInvalidOptions)
	case o.Guard == nil:
		return fmt.Errorf("%w: Guard is nil, admin pages would be public", ErrInvalidOptions)
	}
	// fail on boot when mispackaged
	if _, err := fs.Stat(o.Fallback, o.MaintenanceFile); err != nil {
		return fmt.Errorf("%w: missing %q in fallback FS: %v", ErrInvalidOptions, o.MaintenanceFile, err)
	}
	return nil
}
