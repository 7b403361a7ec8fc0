// Package analytics implements the read-only aggregate queries behind the
// operator dashboard: overall summary, hourly demand, and per-date
// per-counter stats. All three read from the index mirror or the kv store
// directly rather than the hot dispatch path, and all three degrade to
// zero-valued results on a store error rather than fail outright.
package analytics

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anyotin/queueline/internal/stats"
	"github.com/anyotin/queueline/internal/store/index"
)

// KV is the slice of the kv store the reader consults, satisfied by
// kv.RedisClient.
type KV interface {
	Get(key string) (string, error)
	HGetAll(key string) (map[string]string, error)
	ScanKeys(pattern string) ([]string, error)
}

type Reader struct {
	kv       KV
	idx      *index.MysqlClient
	tzOffset int64
	log      *logrus.Entry
}

func New(kvClient KV, idx *index.MysqlClient, tzOffsetSeconds int64) *Reader {
	return &Reader{
		kv:       kvClient,
		idx:      idx,
		tzOffset: tzOffsetSeconds,
		log:      logrus.WithFields(logrus.Fields{"component": "analytics"}),
	}
}

// Summary is the overall-summary object: the four cardinality probes,
// the global id counter, and today's ALL stats.
type Summary struct {
	Waiting     int64 `json:"waiting"`
	Serving     int64 `json:"serving"`
	Done        int64 `json:"done"`
	Cancelled   int64 `json:"cancelled"`
	TotalIssued int64 `json:"total_issued"`
	TodayCount  int64 `json:"today_count"`
}

// Overall runs the four cardinality probes plus the global id and today's
// ALL stats read, swallowing errors per field so a partial store outage
// still returns a usable, zero-degraded object.
func (r *Reader) Overall(ctx context.Context, service string) Summary {
	var s Summary
	s.Waiting = r.countByStatus(ctx, service, "waiting")
	s.Serving = r.countByStatus(ctx, service, "serving")
	s.Done = r.countByStatus(ctx, service, "done")
	s.Cancelled = r.countByStatus(ctx, service, "cancelled")

	if idStr, err := r.kv.Get("ticket:global:id"); err == nil {
		if n, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			s.TotalIssued = n
		}
	}

	date := time.Now().Format("20060102")
	if fields, err := r.kv.HGetAll("stats:" + date + ":" + service + ":ALL"); err == nil {
		if n, err := strconv.ParseInt(fields["count"], 10, 64); err == nil {
			s.TodayCount = n
		}
	}

	return s
}

type countRow struct {
	N int64 `db:"n"`
}

func (r *Reader) countByStatus(ctx context.Context, service, status string) int64 {
	row, err := index.SelectFrom[countRow]("ticket_index").
		Columns("COUNT(*) AS n").
		Where(index.And(index.Eq("service", service), index.Eq("status", status))).
		Fetch(ctx, r.idx.DB)
	if err != nil {
		r.log.WithError(err).Warnf("cardinality probe for status=%s failed, degrading to 0", status)
		return 0
	}
	return row.N
}

// HourlyBucket is one row of the hourly-demand aggregate.
type HourlyBucket struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// HourlyDemand groups all tickets of a service by
// floor((created_at + tz_offset) / 3600) mod 24, sorted ascending by hour.
func (r *Reader) HourlyDemand(ctx context.Context, service string) []HourlyBucket {
	const q = `
SELECT FLOOR(MOD((created_at + ?) / 3600, 24)) AS hour, COUNT(*) AS cnt
FROM ticket_index
WHERE service = ?
GROUP BY hour
ORDER BY hour ASC`

	rows, err := r.idx.DB.QueryContext(ctx, q, r.tzOffset, service)
	if err != nil {
		r.log.WithError(err).Warn("hourly demand query failed, degrading to empty")
		return nil
	}
	defer rows.Close()

	var out []HourlyBucket
	for rows.Next() {
		var b HourlyBucket
		if err := rows.Scan(&b.Hour, &b.Count); err != nil {
			continue
		}
		out = append(out, b)
	}
	return out
}

// DateStats scans stats:{date}:* and parses each key into a Row, one per
// (service, counter) key — the per-date per-counter stats listing.
func (r *Reader) DateStats(date string) []stats.Row {
	keys, err := r.kv.ScanKeys("stats:" + date + ":*")
	if err != nil {
		r.log.WithError(err).Warn("stats scan failed, degrading to empty")
		return nil
	}

	var out []stats.Row
	for _, key := range keys {
		parts := strings.SplitN(key, ":", 4)
		if len(parts) != 4 {
			continue
		}
		fields, err := r.kv.HGetAll(key)
		if err != nil {
			continue
		}
		count, _ := strconv.ParseInt(fields["count"], 10, 64)
		totalSvc, _ := strconv.ParseInt(fields["total_svc_time"], 10, 64)
		svcCount, _ := strconv.ParseInt(fields["svc_count"], 10, 64)
		out = append(out, stats.Row{
			Date:         parts[1],
			Service:      parts[2],
			Counter:      parts[3],
			Count:        count,
			TotalSvcTime: totalSvc,
			SvcCount:     svcCount,
		})
	}
	return out
}
