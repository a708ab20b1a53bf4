package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpopts "github.com/kart-io/docchat/pkg/options/server/http"
)

func newStaticServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>docchat</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.css"), []byte("body {}"), 0o644))

	opts := httpopts.NewOptions()
	opts.StaticDir = dir
	return New(opts)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServeStaticIndex(t *testing.T) {
	s := newStaticServer(t)

	w := get(t, s, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "docchat")
}

func TestServeStaticRootAssets(t *testing.T) {
	s := newStaticServer(t)

	w := get(t, s, "/app.css")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "body {}", w.Body.String())

	w = get(t, s, "/static/app.css")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServeStaticMissingFile(t *testing.T) {
	s := newStaticServer(t)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/missing.js").Code)
}

func TestServeStaticNoTraversal(t *testing.T) {
	s := newStaticServer(t)

	w := get(t, s, "/../server.go")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
