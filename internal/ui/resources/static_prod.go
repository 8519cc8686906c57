//go:build !dev

package resources

import (
	"embed"
	"io/fs"
	"net/http"
	"sync"
)

//go:embed static/*
var staticFS embed.FS

var compiled = sync.OnceValues(func() ([]byte, error) {
	return CompileScript(sheetSource, true)
})

// Handler returns an HTTP handler for serving static files.
// In production mode, files are embedded in the binary and the script is
// compiled once.
func Handler() http.Handler {
	fsys, _ := fs.Sub(staticFS, "static")
	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(fsys)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		if r.URL.Path == StaticPath(ScriptName) {
			code, err := compiled()
			serveScript(w, code, err)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
