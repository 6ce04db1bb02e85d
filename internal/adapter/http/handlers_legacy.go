package adapthttp

import "net/http"

// handleLegacy serves the single-endpoint api.php?action=... protocol of the
// bundled editor client. GET and POST each have their own action set.
func (s *Server) handleLegacy(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(withLegacy(r.Context()))

	action := paramsFrom(r.Context()).bodyValue("action")
	if action == "" {
		action = r.URL.Query().Get("action")
	}

	var actions map[string]http.Handler
	switch r.Method {
	case http.MethodGet:
		actions = s.legacyGet
	case http.MethodPost:
		actions = s.legacyPost
	default:
		s.reply(w, r, http.StatusMethodNotAllowed, envelope{"success": false, "message": "unsupported request method"})
		return
	}

	h, ok := actions[action]
	if !ok {
		s.reply(w, r, http.StatusBadRequest, envelope{"success": false, "message": "unknown " + r.Method + " action: " + action})
		return
	}
	h.ServeHTTP(w, r)
}
