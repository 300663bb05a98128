package web

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Server serves the built feed frontend. Paths that do not name a file fall
// back to index.html so client-side routes load the app.
type Server struct {
	Dir string
}

func (s *Server) Handler() http.Handler {
	fs := http.FileServer(http.Dir(s.Dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		if !s.exists(r.URL.Path) {
			r = r.Clone(r.Context())
			r.URL.Path = "/"
		}
		fs.ServeHTTP(w, r)
	})
}

func (s *Server) exists(urlPath string) bool {
	clean := path.Clean("/" + urlPath)
	if clean == "/" {
		return true
	}
	name := filepath.Join(s.Dir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	_, err := os.Stat(name)
	return err == nil
}
