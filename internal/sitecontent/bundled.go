package sitecontent

import (
	_ "embed"
	"sync"
)

//go:embed bundled/site.json
var bundledRaw []byte

var bundled = sync.OnceValues(func() (SiteContent, error) {
	return Decode(bundledRaw)
})

// Bundled returns the copy baked into the binary at build time. It is the
// last resort when no store can be read.
func Bundled() (SiteContent, error) { return bundled() }

// BundledRaw returns the embedded document bytes.
func BundledRaw() []byte { return bundledRaw }
