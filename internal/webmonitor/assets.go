package webmonitor

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// assetHandler serves /assets/ files from an optional override directory and
// falls back to the built-in stylesheet.
type assetHandler struct {
	dir string
}

func newAssetHandler(dir string) *assetHandler {
	return &assetHandler{dir: dir}
}

func (h *assetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(r.URL.Path)
	if h.dir != "" {
		path := filepath.Join(h.dir, filename)
		if fileExists(path) {
			http.ServeFile(w, r, path)
			return
		}
	}

	if filename == "monitor.css" {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		_, _ = w.Write([]byte(strings.TrimSpace(monitorCSS)))
		return
	}
	http.NotFound(w, r)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
