// Package webassets embeds the page templates, static files and fallback
// pages into the binary.
package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed templates static fallback
var embedded embed.FS

func sub(dir string) fs.FS {
	s, err := fs.Sub(embedded, dir)
	if err != nil {
		panic(fmt.Errorf("webassets: %s subfs: %w", dir, err))
	}
	return s
}

// TemplatesFS holds the html/template sources (*.html.tmpl).
func TemplatesFS() fs.FS { return sub("templates") }

// StaticFS is served under /static/.
func StaticFS() fs.FS { return sub("static") }

// FallbackFS holds maintenance.html and 404.html, which render without any
// content document.
func FallbackFS() fs.FS { return sub("fallback") }
