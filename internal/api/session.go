package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) sessionCreateTicket(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Read(r)
	if sess.HasTicket() {
		writeError(w, http.StatusBadRequest, "already_has_ticket")
		return
	}

	t, err := h.repo.Create(r.Context(), defaultService, "")
	if err != nil {
		h.log.WithError(err).Error("failed to create ticket")
		writeError(w, http.StatusInternalServerError, "failed to create ticket")
		return
	}

	sess.TicketID = t.ID
	sess.Service = t.Service
	if err := h.sessions.Write(w, sess); err != nil {
		h.log.WithError(err).Warn("failed to write session cookie")
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"ticket_id":  t.ID,
		"number":     t.ID,
		"service":    t.Service,
		"created_at": t.CreatedAt,
		"token":      t.Token,
	})
}

func (h *Handler) sessionCancel(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Read(r)
	if sess.HasTicket() {
		if _, err := h.repo.Cancel(r.Context(), sess.TicketID); err != nil {
			h.log.WithError(err).Warn("failed to cancel session ticket")
		}
		sess.TicketID = 0
		sess.Service = ""
		if err := h.sessions.Write(w, sess); err != nil {
			h.log.WithError(err).Warn("failed to write session cookie")
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "cancelled"})
}

func (h *Handler) sessionClear(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Read(r)
	sess.TicketID = 0
	sess.Service = ""
	if err := h.sessions.Write(w, sess); err != nil {
		h.log.WithError(err).Warn("failed to write session cookie")
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "cleared"})
}

func (h *Handler) sessionStatus(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Read(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"has_ticket": sess.HasTicket(),
		"ticket_id":  sess.TicketID,
		"service":    sess.Service,
	})
}

// authorizeView reports whether the request's session or ?token query
// param grants access to ticketID: either capability is enough, so a
// chat deep link works in a browser that never held the session.
func (h *Handler) authorizeView(r *http.Request, ticketID int64, storedToken string) bool {
	sess := h.sessions.Read(r)
	if sess.HasTicket() && sess.TicketID == ticketID {
		return true
	}
	urlToken := r.URL.Query().Get("token")
	return urlToken != "" && storedToken != "" && urlToken == storedToken
}

func parseTicketID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}
