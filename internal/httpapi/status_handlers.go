package httpapi

import "net/http"

type StatusHandler struct {
	Loader StatusSource
}

func (h StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.Loader == nil {
		WriteError(w, r, http.StatusServiceUnavailable, "no_loader", "loader not configured")
		return
	}
	writeJSON(w, h.Loader.Status())
}
