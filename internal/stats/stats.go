// Package stats implements the per-day, per-(service,counter) statistics
// recorder updated atomically from the dispatch engine on every
// successful call_next.
package stats

import (
	"fmt"
	"time"
)

const maxServiceTimeGap = 3600 // seconds; longer gaps are discarded, not sampled

// Store is the slice of the kv store the recorder writes through,
// satisfied by kv.RedisClient. Each increment is atomic on the store
// side, so no cross-field transaction is needed.
type Store interface {
	HIncrBy(key, field string, delta int64) (int64, error)
	Get(key string) (string, error)
	Set(key, value string, expire time.Duration) error
}

type Recorder struct {
	kv Store
}

func New(store Store) *Recorder {
	return &Recorder{kv: store}
}

func statsKey(date, service, counter string) string {
	return fmt.Sprintf("stats:%s:%s:%s", date, service, counter)
}

func lastActivityKey(service, counter string) string {
	return fmt.Sprintf("counter:last_activity:%s:%s", service, counter)
}

// RecordDispatch bumps the counter-scoped and ALL-scoped stats rows for a
// successful dispatch at time t, folding in a service-time sample when the
// gap since this counter's previous dispatch is under an hour.
func (r *Recorder) RecordDispatch(service, counter string, t time.Time) error {
	date := t.Format("20060102")
	now := t.Unix()

	for _, bucket := range []string{counter, "ALL"} {
		key := statsKey(date, service, bucket)
		if _, err := r.kv.HIncrBy(key, "count", 1); err != nil {
			return err
		}
	}

	lastKey := lastActivityKey(service, counter)
	lastStr, err := r.kv.Get(lastKey)
	if err == nil && lastStr != "" {
		var last int64
		if _, scanErr := fmt.Sscanf(lastStr, "%d", &last); scanErr == nil {
			if gap := now - last; gap >= 0 && gap < maxServiceTimeGap {
				for _, bucket := range []string{counter, "ALL"} {
					key := statsKey(date, service, bucket)
					if _, err := r.kv.HIncrBy(key, "total_svc_time", gap); err != nil {
						return err
					}
					if _, err := r.kv.HIncrBy(key, "svc_count", 1); err != nil {
						return err
					}
				}
			}
		}
	}

	return r.kv.Set(lastKey, fmt.Sprintf("%d", now), 0)
}

// Row is one stats:{date}:{service}:{counter} record, with the derived
// average service time analytics reports instead of the raw totals.
type Row struct {
	Date         string `json:"date"`
	Service      string `json:"service"`
	Counter      string `json:"counter"`
	Count        int64  `json:"count"`
	TotalSvcTime int64  `json:"total_svc_time"`
	SvcCount     int64  `json:"svc_count"`
}

func (row Row) AverageServiceTime() float64 {
	if row.SvcCount == 0 {
		return 0
	}
	return float64(row.TotalSvcTime) / float64(row.SvcCount)
}
