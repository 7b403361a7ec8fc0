// Package dispatch implements the hot-path call_next operation: the
// consumer-group-based queue pull that hands the next waiting ticket of a
// service to a counter, preceded by the auto-complete sweep that closes
// out whatever that service's previous serving ticket was.
package dispatch

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anyotin/queueline/internal/bus"
	"github.com/anyotin/queueline/internal/store/stream"
	"github.com/anyotin/queueline/internal/ticket"
)

const consumerGroup = "counters_group"

// Repo is the slice of the ticket repository the dispatch engine depends on.
type Repo interface {
	ServingTickets(ctx context.Context, service string) ([]int64, error)
	MarkDone(ctx context.Context, ticketID int64) error
	MarkServing(ctx context.Context, ticketID int64, counter string, calledAt int64) error
	Get(ctx context.Context, ticketID int64) (ticket.View, bool, error)
	SetCurrentNumber(service string, number int64) error
}

// StatsRecorder receives one callback per successful dispatch.
type StatsRecorder interface {
	RecordDispatch(service, counter string, t time.Time) error
}

// Guard is a best-effort mutual exclusion handle around the auto-complete
// sweep. Losing the race just means another counter is already sweeping.
type Guard interface {
	TryAcquire() (bool, error)
	Release() error
}

// GuardFactory builds a Guard scoped to one service's sweep. A nil
// factory runs every sweep unguarded, which is still correct: the done
// writes are idempotent.
type GuardFactory func(service string) Guard

// Engine implements call_next: auto-complete sweep, ensure consumer
// group, then a pull loop that skips entries no longer waiting.
type Engine struct {
	repo    Repo
	streams stream.Store
	stats   StatsRecorder
	pub     bus.Publisher
	guards  GuardFactory
	log     *logrus.Entry

	// readBlock bounds how long ReadGroup waits for a new entry before
	// call_next reports the queue empty. A real counter poller calls
	// this in a loop, so a short block keeps the HTTP handler responsive.
	readBlock time.Duration
}

func New(repo Repo, streams stream.Store, stats StatsRecorder, pub bus.Publisher, guards GuardFactory) *Engine {
	return &Engine{
		repo:      repo,
		streams:   streams,
		stats:     stats,
		pub:       pub,
		guards:    guards,
		log:       logrus.WithFields(logrus.Fields{"component": "dispatch"}),
		readBlock: 200 * time.Millisecond,
	}
}

// ErrEmpty is returned when the service's stream currently has no new
// entries for this consumer.
var ErrEmpty = emptyError{}

type emptyError struct{}

func (emptyError) Error() string { return "no one in queue" }

// CallNext dispatches the next eligible waiting ticket of service to
// counter, auto-completing the service's previously serving ticket first.
// Returns ErrEmpty (not a failure) when the stream yields nothing new.
func (e *Engine) CallNext(ctx context.Context, service, counter string) (ticket.View, error) {
	e.autoComplete(ctx, service)

	if err := e.streams.EnsureGroup(service, consumerGroup); err != nil {
		return ticket.View{}, err
	}

	for {
		entries, err := e.streams.ReadGroup(service, consumerGroup, counter, 1, e.readBlock)
		if err != nil {
			return ticket.View{}, err
		}
		if len(entries) == 0 {
			return ticket.View{}, ErrEmpty
		}

		entry := entries[0]
		// At-most-once: acknowledge on read, before any processing. A
		// crash here loses the delivery, but the ticket stays waiting
		// and is surfaced again by the operator's next action.
		if ackErr := e.streams.Ack(service, consumerGroup, entry.ID); ackErr != nil {
			e.log.WithError(ackErr).Warn("ack failed")
		}

		view, found, err := e.repo.Get(ctx, entry.TicketID)
		if err != nil {
			e.log.WithError(err).Warn("ticket lookup failed during dispatch, skipping entry")
			continue
		}
		if !found {
			continue // stream entry pointing at a vanished ticket
		}
		if !ticket.CanTransition(view.Status, ticket.StatusServing) {
			continue // cancelled, or a duplicated enqueue
		}

		now := time.Now()
		if err := e.repo.MarkServing(ctx, view.ID, counter, now.Unix()); err != nil {
			return ticket.View{}, err
		}
		if err := e.repo.SetCurrentNumber(service, view.ID); err != nil {
			e.log.WithError(err).Warn("failed to advance current_number")
		}
		if err := e.stats.RecordDispatch(service, counter, now); err != nil {
			e.log.WithError(err).Warn("stats recorder failed")
		}

		view.Status = ticket.StatusServing
		view.CalledAt = now.Unix()
		view.Counter = counter
		view.CurrentNumber = view.ID

		ev := bus.Event{TicketID: view.ID, Number: view.ID, Service: service, Counter: counter, Status: string(ticket.StatusServing)}
		if err := bus.Publish(e.pub, ev); err != nil {
			e.log.WithError(err).Warn("failed to publish dispatch event")
		}

		return view, nil
	}
}

// autoComplete closes out every still-serving ticket of service before
// the pull, restoring the at-most-one-serving steady state. The guard
// keeps concurrently dispatching counters from both issuing the same
// sweep writes; if it can't be acquired or checked, sweeping anyway is
// safe because the done write is idempotent.
func (e *Engine) autoComplete(ctx context.Context, service string) {
	if e.guards != nil {
		g := e.guards(service)
		acquired, err := g.TryAcquire()
		if err != nil {
			e.log.WithError(err).Warn("autocomplete guard check failed, sweeping anyway")
		} else if !acquired {
			return
		} else {
			defer func() {
				if relErr := g.Release(); relErr != nil {
					e.log.WithError(relErr).Warn("autocomplete guard release failed")
				}
			}()
		}
	}

	serving, err := e.repo.ServingTickets(ctx, service)
	if err != nil {
		e.log.WithError(err).Warn("auto-complete sweep query failed, skipping")
		return
	}
	for _, id := range serving {
		if err := e.repo.MarkDone(ctx, id); err != nil {
			e.log.WithError(err).Warnf("auto-complete failed to close ticket %d", id)
		}
	}
}
