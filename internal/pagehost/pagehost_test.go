package pagehost

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestStartAndStop(t *testing.T) {
	content := []byte(`<html><body><div id="card">hi</div></body></html>`)
	h, err := Start(content, "index.html")
	require.NoError(t, err)

	url := h.EntryURL()
	assert.Contains(t, url, "http://127.0.0.1:")
	assert.Contains(t, url, "/index.html")

	status, body := get(t, url)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(content), body)

	status, _ = get(t, h.URL("nonexistent.html"))
	assert.Equal(t, http.StatusNotFound, status)

	dir := h.dir
	h.Stop()
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "temp dir removed on stop")
}

func TestServeFile_ResolvesSiblings(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "card.html")
	require.NoError(t, os.WriteFile(page, []byte(`<link rel="stylesheet" href="card.css">`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "card.css"), []byte("#card{display:flex}"), 0o644))

	h, err := ServeFile(page)
	require.NoError(t, err)

	assert.Contains(t, h.EntryURL(), "/card.html")
	status, body := get(t, h.URL("card.css"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "#card{display:flex}", body)

	h.Stop()
	_, err = os.Stat(page)
	assert.NoError(t, err, "caller-owned files are kept")
}

func TestServeFile_Errors(t *testing.T) {
	_, err := ServeFile(filepath.Join(t.TempDir(), "missing.html"))
	assert.Error(t, err)

	_, err = ServeFile(t.TempDir())
	assert.ErrorContains(t, err, "is a directory")
}
