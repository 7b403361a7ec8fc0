// Package api is the thin HTTP surface: each endpoint is a direct
// translation of a repository, dispatch, or analytics call. No business
// logic lives here beyond request parsing and authorization.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/anyotin/queueline/internal/analytics"
	"github.com/anyotin/queueline/internal/bus"
	"github.com/anyotin/queueline/internal/chatintent"
	"github.com/anyotin/queueline/internal/dispatch"
	"github.com/anyotin/queueline/internal/push"
	"github.com/anyotin/queueline/internal/session"
	"github.com/anyotin/queueline/internal/ticket"
	"github.com/anyotin/queueline/internal/ticketrepo"
)

const defaultService = "register"

// Config carries the external-facing knobs the handlers need: the admin
// gate credentials and the base URL used to build chat deep links.
type Config struct {
	AdminUsername string
	AdminPassword string
	ViewBaseURL   string
	ChatSecret    string
}

// Handler wires the HTTP surface to the core components. Deps are kept as
// interfaces where the core defines a narrow contract, and concrete types
// where the dependency already is one (the repo, the bus).
type Handler struct {
	repo     *ticketrepo.Repo
	dispatch *dispatch.Engine
	readerA  *analytics.Reader
	bus      *bus.Bus
	pusher   push.Pusher
	sessions *session.Manager
	cfg      Config
	log      *logrus.Entry
}

func New(repo *ticketrepo.Repo, eng *dispatch.Engine, reader *analytics.Reader, b *bus.Bus, pusher push.Pusher, sessions *session.Manager, cfg Config) *Handler {
	return &Handler{
		repo:     repo,
		dispatch: eng,
		readerA:  reader,
		bus:      b,
		pusher:   pusher,
		sessions: sessions,
		cfg:      cfg,
		log:      logrus.WithFields(logrus.Fields{"component": "api"}),
	}
}

// RegisterRoutes mounts every endpoint onto r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/session", func(r chi.Router) {
		r.Post("/ticket", h.sessionCreateTicket)
		r.Post("/cancel", h.sessionCancel)
		r.Post("/clear", h.sessionClear)
		r.Get("/status", h.sessionStatus)
	})

	r.Route("/ticket/{id}", func(r chi.Router) {
		r.Get("/status", h.ticketStatus)
		r.Get("/view", h.ticketView)
	})

	r.Get("/events/{service}", h.events)

	r.Route("/counter/{service}", func(r chi.Router) {
		r.Post("/next", h.counterNext)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.adminLogin)
		r.Route("/api", func(r chi.Router) {
			r.Get("/summary", h.adminSummary)
			r.Get("/demand", h.adminDemand)
		})
	})

	r.Post("/line/webhook", h.lineWebhook)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ticketViewPayload is the wire shape for a ticket view response,
// flattened from ticket.View.
type ticketViewPayload struct {
	TicketID      int64  `json:"ticket_id"`
	Number        int64  `json:"number"`
	Service       string `json:"service"`
	Status        string `json:"status"`
	CreatedAt     int64  `json:"created_at"`
	CalledAt      int64  `json:"called_at,omitempty"`
	Counter       string `json:"counter,omitempty"`
	AheadCount    int64  `json:"ahead_count"`
	CurrentNumber int64  `json:"current_number"`
	Token         string `json:"token,omitempty"`
}

func toPayload(v ticket.View, includeToken bool) ticketViewPayload {
	p := ticketViewPayload{
		TicketID:      v.ID,
		Number:        v.ID,
		Service:       v.Service,
		Status:        string(v.Status),
		CreatedAt:     v.CreatedAt,
		CalledAt:      v.CalledAt,
		Counter:       v.Counter,
		AheadCount:    v.AheadCount,
		CurrentNumber: v.CurrentNumber,
	}
	if includeToken {
		p.Token = v.Token
	}
	return p
}

func chatStatusFromView(v ticket.View) chatintent.Status {
	return chatintent.Status{
		Status:        string(v.Status),
		Number:        v.ID,
		AheadCount:    v.AheadCount,
		Counter:       v.Counter,
		CurrentNumber: v.CurrentNumber,
	}
}
