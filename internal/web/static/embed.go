package static

import (
	"embed"
	"io/fs"
)

//go:embed index.html
var assets embed.FS

// Index returns the dashboard page.
func Index() []byte {
	b, err := fs.ReadFile(assets, "index.html")
	if err != nil {
		// embedded at build time
		panic(err)
	}
	return b
}
