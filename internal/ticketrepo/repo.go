// Package ticketrepo implements the ticket repository: CRUD and state
// transitions on the ticket record, backed by the kv hash store for the
// record of truth, the stream store for FIFO dispatch ordering, and the
// index mirror for ahead-count and analytics queries.
package ticketrepo

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"github.com/anyotin/queueline/internal/randutil"
	"github.com/anyotin/queueline/internal/store/index"
	"github.com/anyotin/queueline/internal/store/stream"
	"github.com/anyotin/queueline/internal/ticket"
)

const (
	globalIDKey   = "ticket:global:id"
	defaultMaxLen = int64(1000)
	mirrorTable   = "ticket_index"
)

func ticketKey(id int64) string              { return "ticket:" + strconv.FormatInt(id, 10) }
func currentNumberKey(service string) string { return "current_number:" + service }
func lineUserKey(userID string) string       { return "line_user:" + userID }

// KV is the slice of the kv store the repository reads and writes,
// satisfied by kv.RedisClient.
type KV interface {
	Incr(key string) (int64, error)
	HSet(key string, values map[string]interface{}) error
	HGet(key, field string) (string, error)
	HGetAll(key string) (map[string]string, error)
	Get(key string) (string, error)
	Set(key, value string, expire time.Duration) error
	Del(keys ...string) error
}

// Repo is the ticket repository: it owns the hash record of truth, the
// per-service FIFO stream, and the mirror index used to answer
// ahead_count without touching the hot path's store.
type Repo struct {
	kv      KV
	streams stream.Store
	idx     *index.MysqlClient
	maxLen  int64
	log     *logrus.Entry
}

func New(kvClient KV, streams stream.Store, idx *index.MysqlClient) *Repo {
	return &Repo{
		kv:      kvClient,
		streams: streams,
		idx:     idx,
		maxLen:  defaultMaxLen,
		log:     logrus.WithFields(logrus.Fields{"component": "ticketrepo"}),
	}
}

// EnsureSchema creates the ticket_index mirror table if it doesn't exist
// yet — called at startup and again whenever a query hits a missing-index
// error, per the error handling policy of recreating the index in place.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.idx.DB.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS ticket_index (
  id          BIGINT PRIMARY KEY,
  service     VARCHAR(64) NOT NULL,
  status      VARCHAR(16) NOT NULL,
  created_at  BIGINT NOT NULL,
  INDEX idx_service_status (service, status),
  INDEX idx_created_at (created_at)
)`)
	return err
}

// Create allocates a new ticket: bump the global id, write the hash,
// append to the service's stream, and mirror the row into the index. These
// sub-steps are not wrapped in a distributed transaction: a reader
// that only sees the stream entry will find the hash on a later attempt.
func (r *Repo) Create(ctx context.Context, service, lineUserID string) (ticket.Ticket, error) {
	id, err := r.kv.Incr(globalIDKey)
	if err != nil {
		return ticket.Ticket{}, errors.Wrap(err, "allocate ticket id")
	}

	token, err := randutil.GenerateRandomBytes(24)
	if err != nil {
		return ticket.Ticket{}, errors.Wrap(err, "generate ticket token")
	}

	now := time.Now().Unix()
	t := ticket.Ticket{
		ID:         id,
		Service:    service,
		Status:     ticket.StatusWaiting,
		CreatedAt:  now,
		LineUserID: lineUserID,
		Token:      token,
	}

	if err := r.kv.HSet(ticketKey(id), map[string]interface{}{
		"id":           t.ID,
		"service":      t.Service,
		"status":       string(t.Status),
		"created_at":   t.CreatedAt,
		"called_at":    "",
		"counter":      "",
		"line_user_id": t.LineUserID,
		"token":        t.Token,
	}); err != nil {
		return ticket.Ticket{}, errors.Wrap(err, "write ticket hash")
	}

	if _, err := r.streams.Append(service, id, r.maxLen); err != nil {
		return ticket.Ticket{}, errors.Wrap(err, "append ticket to stream")
	}

	if err := r.mirror(ctx, t); err != nil {
		r.log.WithError(err).Warn("failed to mirror ticket into index, ahead_count may degrade")
	}

	if lineUserID != "" {
		if err := r.kv.HSet(lineUserKey(lineUserID), map[string]interface{}{
			"ticket_id": t.ID,
			"service":   t.Service,
		}); err != nil {
			r.log.WithError(err).Warn("failed to bind chat user to ticket")
		}
	}

	return t, nil
}

// mirror upserts a ticket_index row, re-creating the table on a failure
// and retrying once, the same repair-in-place policy the read side uses
// for a missing index.
func (r *Repo) mirror(ctx context.Context, t ticket.Ticket) error {
	row := index.InsertCond{Arg: []any{t.ID, t.Service, string(t.Status), t.CreatedAt}}
	upsert := index.InsertFrom(mirrorTable).
		Values(&row).
		OnDuplicateKeyUpdate("service", "status", "created_at")

	_, err := upsert.Exec(ctx, r.idx.DB)
	if err == nil {
		return nil
	}
	if schemaErr := r.EnsureSchema(ctx); schemaErr != nil {
		return errors.Wrap(err, "mirror insert failed and schema repair also failed")
	}
	_, err = upsert.Exec(ctx, r.idx.DB)
	return err
}

// mirrorStatus reflects a status transition into the mirror row. A
// missing row (create's mirror failed) makes this a no-op rather than an
// error; the mirror is eventually consistent by design.
func (r *Repo) mirrorStatus(ctx context.Context, ticketID int64, status ticket.Status) error {
	_, err := index.UpdateFrom(mirrorTable).
		Set(index.UpdateCond{Set: "status", Arg: string(status)}).
		Where(index.Eq("id", ticketID)).
		Exec(ctx, r.idx.DB)
	return err
}

// Cancel sets a ticket's status to cancelled unconditionally if the
// ticket exists. No reverse-transition check: cancelling an already-done
// ticket is tolerated as an idempotent write, last writer wins.
func (r *Repo) Cancel(ctx context.Context, ticketID int64) (bool, error) {
	existing, err := r.kv.HGetAll(ticketKey(ticketID))
	if err != nil {
		return false, err
	}
	if len(existing) == 0 {
		return false, nil
	}

	if err := r.kv.HSet(ticketKey(ticketID), map[string]interface{}{
		"status": string(ticket.StatusCancelled),
	}); err != nil {
		return false, err
	}

	if err := r.mirrorStatus(ctx, ticketID, ticket.StatusCancelled); err != nil {
		r.log.WithError(err).Warn("failed to mirror cancellation into index")
	}

	return true, nil
}

// Get returns the full ticket view, including ahead_count (meaningful
// only while waiting) and the service's current_number.
func (r *Repo) Get(ctx context.Context, ticketID int64) (ticket.View, bool, error) {
	fields, err := r.kv.HGetAll(ticketKey(ticketID))
	if err != nil {
		return ticket.View{}, false, err
	}
	if len(fields) == 0 {
		return ticket.View{}, false, nil
	}

	t := parseFields(fields)

	var ahead int64
	if t.Status == ticket.StatusWaiting {
		ahead, err = r.aheadCount(ctx, t)
		if err != nil {
			r.log.WithError(err).Warn("ahead_count query failed, degrading to 0")
			ahead = 0
		}
	}

	current, err := r.CurrentNumber(t.Service)
	if err != nil {
		current = 0
	}

	return ticket.View{Ticket: t, AheadCount: ahead, CurrentNumber: current}, true, nil
}

// countRow is the destination shape for the index builder's COUNT(*)
// probes (aheadCount, ServingTickets).
type countRow struct {
	N int64 `db:"n"`
}

// aheadCount counts waiting tickets of the same service with a strictly
// smaller id. Ordering by id rather than created_at sidesteps the
// same-second collision problem entirely (an exact resolution of the
// ordering question the created_at-epsilon approach only approximates).
func (r *Repo) aheadCount(ctx context.Context, t ticket.Ticket) (int64, error) {
	row, err := index.SelectFrom[countRow](mirrorTable).
		Columns("COUNT(*) AS n").
		Where(index.And(
			index.Eq("service", t.Service),
			index.Eq("status", string(ticket.StatusWaiting)),
			index.Lt("id", t.ID),
		)).
		Fetch(ctx, r.idx.DB)
	if err != nil {
		if schemaErr := r.EnsureSchema(ctx); schemaErr != nil {
			return 0, err
		}
		return 0, nil
	}
	return row.N, nil
}

func (r *Repo) CurrentNumber(service string) (int64, error) {
	s, err := r.kv.Get(currentNumberKey(service))
	if err != nil {
		return 0, nil //nolint:nilerr // absent pointer means nothing has been served yet
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Repo) SetCurrentNumber(service string, number int64) error {
	return r.kv.Set(currentNumberKey(service), strconv.FormatInt(number, 10), 0)
}

func parseFields(fields map[string]string) ticket.Ticket {
	id, _ := strconv.ParseInt(fields["id"], 10, 64)
	createdAt, _ := strconv.ParseInt(fields["created_at"], 10, 64)
	calledAt, _ := strconv.ParseInt(fields["called_at"], 10, 64)
	return ticket.Ticket{
		ID:         id,
		Service:    fields["service"],
		Status:     ticket.Status(fields["status"]),
		CreatedAt:  createdAt,
		CalledAt:   calledAt,
		Counter:    fields["counter"],
		LineUserID: fields["line_user_id"],
		Token:      fields["token"],
	}
}

// MarkServing transitions a ticket to serving, used by the dispatch engine.
func (r *Repo) MarkServing(ctx context.Context, ticketID int64, counter string, calledAt int64) error {
	if err := r.kv.HSet(ticketKey(ticketID), map[string]interface{}{
		"status":    string(ticket.StatusServing),
		"called_at": calledAt,
		"counter":   counter,
	}); err != nil {
		return err
	}
	if err := r.mirrorStatus(ctx, ticketID, ticket.StatusServing); err != nil {
		r.log.WithError(err).Warn("failed to mirror serving transition into index")
	}
	return nil
}

// MarkDone transitions a ticket to done, used by the dispatch engine's
// auto-complete sweep.
func (r *Repo) MarkDone(ctx context.Context, ticketID int64) error {
	if err := r.kv.HSet(ticketKey(ticketID), map[string]interface{}{
		"status": string(ticket.StatusDone),
	}); err != nil {
		return err
	}
	if err := r.mirrorStatus(ctx, ticketID, ticket.StatusDone); err != nil {
		r.log.WithError(err).Warn("failed to mirror done transition into index")
	}
	return nil
}

// LineUserBinding reads line_user:{userID}, the most recent ticket bound
// to a chat user. Returns
// ok=false when the user has no binding at all.
func (r *Repo) LineUserBinding(userID string) (ticketID int64, service string, ok bool) {
	fields, err := r.kv.HGetAll(lineUserKey(userID))
	if err != nil || len(fields) == 0 {
		return 0, "", false
	}
	id, err := strconv.ParseInt(fields["ticket_id"], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, fields["service"], true
}

// ClearLineUserBinding removes a chat user's ticket binding. It is used
// once a bound ticket is found to be stale: not found, or no longer
// waiting or serving-but-not-yet-passed.
func (r *Repo) ClearLineUserBinding(userID string) error {
	return r.kv.Del(lineUserKey(userID))
}

// LineUserID returns the chat user id bound to a ticket at creation time,
// satisfying push.LineUserLookup.
func (r *Repo) LineUserID(ticketID int64) (string, error) {
	v, err := r.kv.HGet(ticketKey(ticketID), "line_user_id")
	if err != nil {
		return "", nil //nolint:nilerr // missing ticket means nothing to push to
	}
	return v, nil
}

type idRow struct {
	ID int64 `db:"id"`
}

// ServingTickets returns every ticket currently serving for a service,
// used by the dispatch engine's auto-complete sweep.
func (r *Repo) ServingTickets(ctx context.Context, service string) ([]int64, error) {
	rows, err := index.SelectFrom[idRow](mirrorTable).
		Columns("id").
		Where(index.And(
			index.Eq("service", service),
			index.Eq("status", string(ticket.StatusServing)),
		)).
		FetchAll(ctx, r.idx.DB)
	if err != nil {
		if schemaErr := r.EnsureSchema(ctx); schemaErr != nil {
			return nil, err
		}
		return nil, nil
	}
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, nil
}
