package api

import "net/http"

func (h *Handler) ticketStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTicketID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	view, found, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.log.WithError(err).Error("failed to fetch ticket")
		writeError(w, http.StatusInternalServerError, "failed to fetch ticket")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, toPayload(view, false))
}

// ticketView resolves the authorization and expired/forbidden/live
// decision for a ticket's live view, returning it as data for an
// external renderer rather than HTML.
func (h *Handler) ticketView(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTicketID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	view, found, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.log.WithError(err).Error("failed to fetch ticket")
		writeError(w, http.StatusInternalServerError, "failed to fetch ticket")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if !h.authorizeView(r, id, view.Token) {
		// The forbidden response carries no ticket fields.
		writeJSON(w, http.StatusForbidden, map[string]string{"view": "forbidden"})
		return
	}

	if view.Expired() {
		writeJSON(w, http.StatusOK, map[string]any{
			"view":   "expired",
			"number": view.ID,
			"status": string(view.Status),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"view":    "live",
		"service": view.Service,
		"ticket":  toPayload(view, true),
	})
}
