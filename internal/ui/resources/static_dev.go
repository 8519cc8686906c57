//go:build dev

package resources

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
)

// resourceDir derives the absolute path of this package's directory
// regardless of where the binary is run from.
func resourceDir() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return filepath.Dir(StaticDirectoryPath)
	}
	return filepath.Dir(filename)
}

// Handler returns an HTTP handler for serving static files.
// In dev mode, files are read from the filesystem and the script is
// recompiled on every request.
func Handler() http.Handler {
	dir := resourceDir()
	staticDir := filepath.Join(dir, "static")
	slog.Info("static assets served from filesystem", "path", staticDir)
	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(os.DirFS(staticDir))))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == StaticPath(ScriptName) {
			src, err := os.ReadFile(filepath.Join(dir, "src", "sheet.ts"))
			if err != nil {
				serveScript(w, nil, err)
				return
			}
			code, err := CompileScript(string(src), false)
			serveScript(w, code, err)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
