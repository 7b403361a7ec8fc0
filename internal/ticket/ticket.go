// Package ticket holds the ticket state machine: the one piece of the
// system with no backing-store dependency at all.
package ticket

import "fmt"

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusServing   Status = "serving"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// Ticket mirrors the `ticket:{id}` hash fields exactly.
type Ticket struct {
	ID         int64
	Service    string
	Status     Status
	CreatedAt  int64
	CalledAt   int64
	Counter    string
	LineUserID string
	Token      string
}

// View adds the fields a client response needs beyond the raw hash:
// ahead_count and the service's current_number, both derived at read time.
type View struct {
	Ticket
	AheadCount    int64
	CurrentNumber int64
}

// Passed reports whether a serving ticket has already been skipped past by
// the counter (the view-time "passed" derivation from the glossary).
func (v View) Passed() bool {
	return v.Status == StatusServing && v.CurrentNumber > v.ID
}

// Expired reports whether a view should render the "expired" template:
// terminal status, or passed-while-serving.
func (v View) Expired() bool {
	return v.Status == StatusDone || v.Status == StatusCancelled || v.Passed()
}

// legal holds the state machine's transition graph. done and cancelled are
// terminal — they have no outgoing edges.
var legal = map[Status]map[Status]bool{
	StatusWaiting: {StatusServing: true, StatusCancelled: true},
	StatusServing: {StatusDone: true, StatusCancelled: true},
}

// CanTransition reports whether from -> to is a legal edge in the ticket
// state machine.
func CanTransition(from, to Status) bool {
	return legal[from][to]
}

// ErrIllegalTransition is returned by callers that choose to enforce the
// state machine strictly rather than tolerate the idempotent cancel
// described in the repository's design notes.
type ErrIllegalTransition struct {
	From, To Status
}

func (e ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal ticket transition: %s -> %s", e.From, e.To)
}
