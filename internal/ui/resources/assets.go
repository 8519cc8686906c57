// Package resources serves the sheet UI's static assets.
package resources

import (
	_ "embed"
	"fmt"
	"net/http"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// StaticDirectoryPath is the path to static assets from the project root.
const StaticDirectoryPath = "internal/ui/resources/static"

// ScriptName is the served name of the compiled drag glue.
const ScriptName = "sheet.js"

//go:embed src/sheet.ts
var sheetSource string

// StaticPath returns the URL path for a static asset.
func StaticPath(path string) string {
	return "/static/" + path
}

// CompileScript transpiles the drag glue TypeScript to a browser script.
func CompileScript(src string, minify bool) ([]byte, error) {
	result := api.Transform(src, api.TransformOptions{
		Loader:            api.LoaderTS,
		Format:            api.FormatIIFE,
		Target:            api.ES2020,
		Sourcefile:        "sheet.ts",
		MinifyWhitespace:  minify,
		MinifyIdentifiers: minify,
		MinifySyntax:      minify,
		LogLevel:          api.LogLevelWarning,
	})
	if len(result.Errors) > 0 {
		var b strings.Builder
		for _, err := range result.Errors {
			if err.Location != nil {
				fmt.Fprintf(&b, "%s:%d:%d: ", err.Location.File, err.Location.Line, err.Location.Column)
			}
			b.WriteString(err.Text)
			b.WriteByte('\n')
		}
		return nil, fmt.Errorf("esbuild errors:\n%s", b.String())
	}
	return result.Code, nil
}

func serveScript(w http.ResponseWriter, code []byte, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write(code)
}
