package analytics

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyotin/queueline/internal/store/index"
)

type fakeKV struct {
	keys   map[string]string
	hashes map[string]map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{
		keys:   make(map[string]string),
		hashes: make(map[string]map[string]string),
	}
}

func (f *fakeKV) Get(key string) (string, error) {
	v, ok := f.keys[key]
	if !ok {
		return "", assert.AnError
	}
	return v, nil
}

func (f *fakeKV) HGetAll(key string) (map[string]string, error) {
	return f.hashes[key], nil
}

func (f *fakeKV) ScanKeys(pattern string) ([]string, error) {
	var out []string
	for k := range f.hashes {
		if ok, _ := regexp.MatchString("^"+regexp.QuoteMeta(pattern[:len(pattern)-1]), k); ok {
			out = append(out, k)
		}
	}
	return out, nil
}

func newTestReader(t *testing.T, tzOffset int64) (*Reader, *fakeKV, sqlmock.Sqlmock) {
	t.Helper()

	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = rawDB.Close() })

	kvStore := newFakeKV()
	reader := New(kvStore, &index.MysqlClient{DB: sqlx.NewDb(rawDB, "mysql")}, tzOffset)
	return reader, kvStore, mock
}

const countSQL = "SELECT COUNT(*) AS n FROM ticket_index WHERE (service = ?) AND (status = ?)"

func TestOverallSummary(t *testing.T) {
	reader, kvStore, mock := newTestReader(t, 0)

	for _, probe := range []struct {
		status string
		n      int64
	}{
		{"waiting", 4}, {"serving", 1}, {"done", 10}, {"cancelled", 2},
	} {
		mock.ExpectQuery(regexp.QuoteMeta(countSQL)).
			WithArgs("register", probe.status).
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(probe.n))
	}

	kvStore.keys["ticket:global:id"] = "17"
	today := time.Now().Format("20060102")
	kvStore.hashes["stats:"+today+":register:ALL"] = map[string]string{"count": "11"}

	s := reader.Overall(context.Background(), "register")

	assert.EqualValues(t, 4, s.Waiting)
	assert.EqualValues(t, 1, s.Serving)
	assert.EqualValues(t, 10, s.Done)
	assert.EqualValues(t, 2, s.Cancelled)
	assert.EqualValues(t, 17, s.TotalIssued)
	assert.EqualValues(t, 11, s.TodayCount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverallSummaryDegradesToZero(t *testing.T) {
	reader, _, mock := newTestReader(t, 0)

	// Every probe fails; the dashboard still gets an object.
	for i := 0; i < 4; i++ {
		mock.ExpectQuery(regexp.QuoteMeta(countSQL)).WillReturnError(assert.AnError)
	}

	s := reader.Overall(context.Background(), "register")
	assert.Zero(t, s.Waiting)
	assert.Zero(t, s.Serving)
	assert.Zero(t, s.Done)
	assert.Zero(t, s.Cancelled)
	assert.Zero(t, s.TotalIssued)
	assert.Zero(t, s.TodayCount)
}

func TestHourlyDemand(t *testing.T) {
	reader, _, mock := newTestReader(t, 28800)

	mock.ExpectQuery("SELECT FLOOR").
		WithArgs(int64(28800), "register").
		WillReturnRows(sqlmock.NewRows([]string{"hour", "cnt"}).
			AddRow(9, 12).
			AddRow(10, 30).
			AddRow(11, 18))

	buckets := reader.HourlyDemand(context.Background(), "register")
	require.Len(t, buckets, 3)
	assert.Equal(t, 9, buckets[0].Hour)
	assert.EqualValues(t, 30, buckets[1].Count)
}

func TestHourlyDemandDegradesToEmpty(t *testing.T) {
	reader, _, mock := newTestReader(t, 28800)

	mock.ExpectQuery("SELECT FLOOR").WillReturnError(assert.AnError)

	assert.Empty(t, reader.HourlyDemand(context.Background(), "register"))
}

func TestDateStats(t *testing.T) {
	reader, kvStore, _ := newTestReader(t, 0)

	kvStore.hashes["stats:20260801:register:c1"] = map[string]string{
		"count": "10", "total_svc_time": "50", "svc_count": "9",
	}
	kvStore.hashes["stats:20260801:register:ALL"] = map[string]string{
		"count": "10", "total_svc_time": "50", "svc_count": "9",
	}

	rows := reader.DateStats("20260801")
	require.Len(t, rows, 2)

	byCounter := map[string]bool{}
	for _, row := range rows {
		byCounter[row.Counter] = true
		assert.Equal(t, "20260801", row.Date)
		assert.Equal(t, "register", row.Service)
		assert.EqualValues(t, 10, row.Count)
		assert.InDelta(t, 50.0/9.0, row.AverageServiceTime(), 1e-9)
	}
	assert.True(t, byCounter["c1"])
	assert.True(t, byCounter["ALL"])
}
