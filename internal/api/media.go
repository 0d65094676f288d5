package api

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

const mediaDir = "media"

// MediaHandler serves skin media files.
type MediaHandler struct {
	skinRoot string
}

// NewMediaHandler creates a handler rooted at the skin directory.
func NewMediaHandler(skinRoot string) *MediaHandler {
	return &MediaHandler{skinRoot: skinRoot}
}

func (h *MediaHandler) mediaPath() string {
	return filepath.Join(h.skinRoot, mediaDir)
}

// safePath returns the absolute path of name under the media directory,
// rejecting traversal.
func (h *MediaHandler) safePath(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	abs := filepath.Join(h.mediaPath(), filepath.FromSlash(filepath.Clean("/"+name)))
	if !strings.HasPrefix(abs, h.mediaPath()+string(os.PathSeparator)) {
		return "", false
	}
	return abs, true
}

// ServeFile handles GET /api/media/*.
func (h *MediaHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	abs, ok := h.safePath(name)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid media path"))
		return
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}
