// Package push implements the push dispatcher: dedup-leased, at-most-once
// delivery of an external chat notification per (ticket, number) pair.
package push

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anyotin/queueline/internal/bus"
)

const defaultLeaseTTL = 60 * time.Second

// Pusher is the narrow external transport contract. The real LINE
// Messaging API call is out of scope; Stub below satisfies this for
// local development and tests. Reply carries the chat intent handler's
// free-text replies (issue/query/cancel confirmations); Push carries the
// dedup-leased dispatch notification. Both are the same external chat
// transport, just two LINE Messaging API calls (reply vs. push).
type Pusher interface {
	Push(lineUserID string, number int64, counter string) error
	Reply(lineUserID, text string) error
}

// Stub logs the message it would have sent instead of calling out to a
// real chat provider.
type Stub struct {
	log *logrus.Entry
}

func NewStub() *Stub {
	return &Stub{log: logrus.WithFields(logrus.Fields{"component": "push.stub"})}
}

func (s *Stub) Push(lineUserID string, number int64, counter string) error {
	s.log.Infof("would push to %s: number %d is being called at counter %s", lineUserID, number, counter)
	return nil
}

func (s *Stub) Reply(lineUserID, text string) error {
	s.log.Infof("would reply to %s: %s", lineUserID, text)
	return nil
}

// LineUserLookup resolves a ticket id to the chat user id bound to it, if
// any. Satisfied by the ticket repository.
type LineUserLookup interface {
	LineUserID(ticketID int64) (string, error)
}

// Leaser is the set-if-absent primitive behind the dedup lease,
// satisfied by kv.RedisClient.
type Leaser interface {
	SetNX(key, value string, expire time.Duration) (bool, error)
}

// Dispatcher wires the bus to a Pusher via the dedup lease.
type Dispatcher struct {
	leaser   Leaser
	lookup   LineUserLookup
	pusher   Pusher
	leaseTTL time.Duration
	log      *logrus.Entry
}

func New(leaser Leaser, lookup LineUserLookup, pusher Pusher, leaseTTL time.Duration) *Dispatcher {
	if leaseTTL <= 0 {
		leaseTTL = defaultLeaseTTL
	}
	return &Dispatcher{
		leaser:   leaser,
		lookup:   lookup,
		pusher:   pusher,
		leaseTTL: leaseTTL,
		log:      logrus.WithFields(logrus.Fields{"component": "push"}),
	}
}

func dedupKey(ticketID, number int64) string {
	return fmt.Sprintf("dedup:push:%d:%d", ticketID, number)
}

// Handle is the bus event hook: acquire the dedup lease (set-if-absent),
// look up the ticket's chat user, and push. A held lease or an empty chat
// user means this process has nothing to do.
func (d *Dispatcher) Handle(ev bus.Event) {
	acquired, err := d.leaser.SetNX(dedupKey(ev.TicketID, ev.Number), "1", d.leaseTTL)
	if err != nil {
		d.log.WithError(err).Warn("dedup lease check failed")
		return
	}
	if !acquired {
		return
	}

	userID, err := d.lookup.LineUserID(ev.TicketID)
	if err != nil || userID == "" {
		return
	}

	if err := d.pusher.Push(userID, ev.Number, ev.Counter); err != nil {
		d.log.WithError(err).Warn("push failed, lease left in place, no retry")
	}
}
