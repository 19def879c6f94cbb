package sitehandler

import (
	"io/fs"
	"strings"

	"github.com/brilliantaksan/brilliantaksan-web/internal/pathutil"
)

// resolveStatic maps the remainder of a /static/ URL to a file in fsys.
// Directories, dot segments, backslashes and NULs never resolve.
func resolveStatic(rest string, fsys fs.FS) (string, bool) {
	name := strings.TrimPrefix(rest, "/")
	if name == "" || strings.HasSuffix(name, "/") {
		return "", false
	}
	if strings.ContainsAny(name, "\x00\\") || pathutil.HasDotSegments(name) {
		return "", false
	}
	if !fs.ValidPath(name) {
		return "", false
	}
	info, err := fs.Stat(fsys, name)
	if err != nil || info.IsDir() {
		return "", false
	}
	return name, true
}
