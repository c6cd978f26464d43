package http

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// spaHandler отдаёт файлы сборки клиента; неизвестные пути получают
// index.html, маршрутизацию делает клиент.
type spaHandler struct {
	root  string
	files http.Handler
}

func newSPAHandler(root string) *spaHandler {
	return &spaHandler{root: root, files: http.FileServer(http.Dir(root))}
}

func (h *spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	full := filepath.Join(h.root, filepath.FromSlash(name))
	if fi, err := os.Stat(full); err == nil && !fi.IsDir() && !strings.HasSuffix(name, "/index.html") {
		h.files.ServeHTTP(w, r)
		return
	}

	index := filepath.Join(h.root, "index.html")
	if _, err := os.Stat(index); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, index)
}
