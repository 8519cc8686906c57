package resources

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileScript(t *testing.T) {
	code, err := CompileScript(sheetSource, false)
	require.NoError(t, err)
	js := string(code)
	assert.Contains(t, js, "sheet-reorder")
	assert.NotContains(t, js, "interface ReorderDetail", "types are stripped")

	_, err = CompileScript("let x: = ;", false)
	assert.ErrorContains(t, err, "esbuild errors")
}

func TestHandler(t *testing.T) {
	h := Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, StaticPath(ScriptName), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")
	assert.NotEmpty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, StaticPath("sheet.css"), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "table.sheet")
}
