// Package pathutil holds path checks shared by static file serving and
// content location config.
package pathutil

import "strings"

// HasDotSegments reports whether any slash-separated segment of p is "." or
// "..". Repository paths, object keys and /static/ names with such segments
// are refused.
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case ".", "..":
			return true
		}
	}
	return false
}
