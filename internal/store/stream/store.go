// Package stream is the redigo-backed half of the backing store: the
// per-service FIFO queue stream and its consumer group, used by the
// dispatch engine to pull the next waiting ticket.
package stream

import "time"

// Entry is one XREADGROUP record: a stream entry id and the ticket id it
// carries. The entry id, not the ticket id, is what XACK needs.
type Entry struct {
	ID       string
	TicketID int64
}

// Store is the stream-store surface the dispatch engine depends on. It is
// satisfied by both the real redigo-backed client and the in-memory
// fallback used in tests and local development.
type Store interface {
	// EnsureGroup idempotently creates the consumer group for service,
	// creating the stream itself if it doesn't exist yet (MKSTREAM).
	EnsureGroup(service, group string) error

	// Append adds a ticket id to the end of a service's queue stream,
	// trimming the stream to an approximate maximum length.
	Append(service string, ticketID int64, maxLen int64) (entryID string, err error)

	// ReadGroup pulls up to count unclaimed entries for consumer in
	// group, blocking up to block for new entries when the stream is
	// currently empty.
	ReadGroup(service, group, consumer string, count int64, block time.Duration) ([]Entry, error)

	// Ack acknowledges an entry so it won't be redelivered to the group.
	Ack(service, group, entryID string) error

	Close() error
}
