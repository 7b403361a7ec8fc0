package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anyotin/queueline/internal/bus"
	"github.com/anyotin/queueline/internal/chanutil"
)

// events is the long-lived client stream fed by the fan-out bus. On
// connect it synthesizes an initial frame carrying the service's
// current_number so a freshly-loaded page is never blank, then relays
// every subsequent bus message verbatim until the bus evicts this
// listener (slow consumer) or the client disconnects.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	current, _ := h.repo.CurrentNumber(service)
	initial := bus.Event{TicketID: 0, Number: current, Service: service, Status: "update"}
	if err := writeFrame(w, initial); err != nil {
		return
	}
	flusher.Flush()

	listener := h.bus.Listen()
	defer h.bus.Remove(listener)

	ctx := r.Context()
	done := chanutil.Or(ctx.Done(), listener.Done())
	events := chanutil.OrDone(ctx, listener.Events())
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Service != service {
				continue
			}
			if err := writeFrame(w, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, ev bus.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
