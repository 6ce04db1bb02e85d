package adapthttp

import (
	"encoding/json"
	"maps"
	"net/http"
	"os"
	"path"
)

// envelope is the {success, message, ...} body every API response uses.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// reply writes body with status, except on the legacy endpoint whose client
// only inspects the success flag and always expects 200.
func (s *Server) reply(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	if isLegacy(r.Context()) {
		status = http.StatusOK
	}
	writeJSON(w, status, body)
}

func (s *Server) ok(w http.ResponseWriter, r *http.Request, message string, extra envelope) {
	body := envelope{"success": true, "message": message}
	maps.Copy(body, extra)
	s.reply(w, r, http.StatusOK, body)
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func spaFromDisk(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))
	indexPath := path.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqPath := path.Clean(r.URL.Path)
		if reqPath == "/" {
			http.ServeFile(w, r, indexPath)
			return
		}

		staticPath := path.Join(dir, reqPath)
		if info, err := os.Stat(staticPath); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}

		http.ServeFile(w, r, indexPath)
	})
}
