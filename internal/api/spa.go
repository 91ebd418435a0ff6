package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// hashedAssetPrefix is where the dashboard build emits content-hashed bundles.
const hashedAssetPrefix = "assets/"

const (
	cacheImmutable = "public, max-age=31536000, immutable"
	cacheNone      = "no-store"
)

// spaHandler serves the dashboard build. Paths that are not files resolve to
// index.html so client-side routes work on reload.
type spaHandler struct {
	api   http.Handler
	dir   string
	index string
	files http.Handler
}

// WithSPA serves the dashboard build from webDir and routes /api/ to apiHandler.
func WithSPA(apiHandler http.Handler, webDir string) http.Handler {
	return &spaHandler{
		api:   apiHandler,
		dir:   webDir,
		index: filepath.Join(webDir, "index.html"),
		files: http.FileServer(http.Dir(webDir)),
	}
}

func (s *spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		s.api.ServeHTTP(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	rel := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if rel != "" && s.isFile(rel) {
		if strings.HasPrefix(rel, hashedAssetPrefix) {
			w.Header().Set("Cache-Control", cacheImmutable)
		} else {
			w.Header().Set("Cache-Control", cacheNone)
		}
		s.files.ServeHTTP(w, r)
		return
	}
	s.serveIndex(w, r)
}

func (s *spaHandler) isFile(rel string) bool {
	info, err := os.Stat(filepath.Join(s.dir, filepath.FromSlash(rel)))
	return err == nil && !info.IsDir()
}

func (s *spaHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.index)
	if err != nil {
		http.Error(w, "index.html not found", http.StatusNotFound)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.Error(w, "index.html not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Cache-Control", cacheNone)
	http.ServeContent(w, r, "index.html", info.ModTime(), f)
}
