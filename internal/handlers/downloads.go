package handlers

import (
	"net/http"
	"strings"

	"github.com/code-networkershome/certificate-generator/internal/platform/httpx"
)

// NewDownloadsHandler serves generated artefacts from the storage root.
// Directory listings are refused; only concrete files are exposed.
func NewDownloadsHandler(root string) http.Handler {
	fileServer := http.StripPrefix("/downloads/", http.FileServer(http.Dir(root)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			httpx.WriteError(r.Context(), w, httpx.NewError("method_not_allowed", "method not allowed", http.StatusMethodNotAllowed))
			return
		}
		if strings.HasSuffix(r.URL.Path, "/") {
			httpx.WriteError(r.Context(), w, httpx.NewError("download_not_found", "file not found", http.StatusNotFound))
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
