package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anyotin/queueline/internal/dispatch"
)

type counterNextRequest struct {
	Counter string `json:"counter"`
}

func (h *Handler) counterNext(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")

	var req counterNextRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // absent/invalid body just means no counter override
	if req.Counter == "" {
		req.Counter = "counter-1"
	}

	view, err := h.dispatch.CallNext(r.Context(), service, req.Counter)
	if errors.Is(err, dispatch.ErrEmpty) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "no one in queue"})
		return
	}
	if err != nil {
		h.log.WithError(err).Error("call_next failed")
		writeError(w, http.StatusInternalServerError, "dispatch failed")
		return
	}

	writeJSON(w, http.StatusOK, toPayload(view, false))
}
