package api

import (
	"encoding/json"
	"net/http"
)

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// adminLogin checks the configured username/password pair and marks the
// session as admin. It is the only gate in front of the analytics API.
func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username != h.cfg.AdminUsername || req.Password != h.cfg.AdminPassword {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sess := h.sessions.Read(r)
	sess.AdminLoggedIn = true
	sess.AdminName = req.Username
	if err := h.sessions.Write(w, sess); err != nil {
		h.log.WithError(err).Warn("failed to write admin session cookie")
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged in"})
}

func (h *Handler) requireAdmin(r *http.Request) bool {
	return h.sessions.Read(r).AdminLoggedIn
}

// adminSummary surfaces the overall-summary analytics object. Store
// errors are already swallowed inside analytics.Reader so the operator
// dashboard degrades to zeros instead of failing.
func (h *Handler) adminSummary(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, h.readerA.Overall(r.Context(), defaultService))
}

func (h *Handler) adminDemand(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, h.readerA.HourlyDemand(r.Context(), defaultService))
}
