package httpapi

import (
	"net/http"

	"employers-engine/internal/events"
	"employers-engine/internal/page"
)

type PageHandler struct {
	Page *page.Page
	Hub  *events.Hub
}

func (h PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, r, http.StatusNotFound, "not_found", "no such page")
		return
	}
	doc, err := h.Page.HTML()
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}
	writeHTML(w, http.StatusOK, doc)
}

// Click activates the trigger element named in the path. Listeners start
// their work in the background, so the response does not wait for it.
func (h PageHandler) Click(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "/click/")
	if id == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid element id")
		return
	}
	tr, ok := h.Page.Bound(id)
	if !ok {
		if h.Page.Has(id) {
			WriteError(w, r, http.StatusNotFound, "not_a_trigger", "element "+id+" is not a trigger")
			return
		}
		WriteError(w, r, http.StatusNotFound, "no_element", "no element "+id)
		return
	}

	n := tr.Fire()
	if h.Hub != nil {
		h.Hub.Publish(events.MakeEvent(RequestIDFrom(r.Context()), events.TypeTriggered, 1, map[string]any{"id": id}))
	}

	if wantsHTML(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true, "id": id, "listeners": n})
}

func (h PageHandler) Region(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "/regions/")
	if id == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid element id")
		return
	}
	reg, err := h.Page.Region(id)
	if err != nil {
		WriteError(w, r, http.StatusNotFound, "no_element", err.Error())
		return
	}
	writeHTML(w, http.StatusOK, reg.HTML())
}
