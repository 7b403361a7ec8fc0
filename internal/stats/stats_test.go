package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	hashes map[string]map[string]int64
	keys   map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		hashes: make(map[string]map[string]int64),
		keys:   make(map[string]string),
	}
}

func (f *fakeStore) HIncrBy(key, field string, delta int64) (int64, error) {
	if f.hashes[key] == nil {
		f.hashes[key] = make(map[string]int64)
	}
	f.hashes[key][field] += delta
	return f.hashes[key][field], nil
}

func (f *fakeStore) Get(key string) (string, error) {
	v, ok := f.keys[key]
	if !ok {
		return "", errNotFound
	}
	return v, nil
}

func (f *fakeStore) Set(key, value string, expire time.Duration) error {
	f.keys[key] = value
	return nil
}

var errNotFound = assert.AnError

func at(sec int64) time.Time { return time.Unix(sec, 0) }

func TestFirstDispatchCountsWithoutSample(t *testing.T) {
	store := newFakeStore()
	r := New(store)

	require.NoError(t, r.RecordDispatch("register", "c1", at(1000)))

	date := at(1000).Format("20060102")
	counterKey := "stats:" + date + ":register:c1"
	allKey := "stats:" + date + ":register:ALL"

	assert.EqualValues(t, 1, store.hashes[counterKey]["count"])
	assert.EqualValues(t, 1, store.hashes[allKey]["count"])

	// No previous activity, so no service-time sample yet.
	assert.Zero(t, store.hashes[counterKey]["svc_count"])
	assert.Zero(t, store.hashes[counterKey]["total_svc_time"])

	assert.Equal(t, "1000", store.keys["counter:last_activity:register:c1"])
}

func TestSecondDispatchRecordsServiceTime(t *testing.T) {
	store := newFakeStore()
	r := New(store)

	require.NoError(t, r.RecordDispatch("register", "c1", at(1000)))
	require.NoError(t, r.RecordDispatch("register", "c1", at(1005)))

	date := at(1000).Format("20060102")
	for _, key := range []string{
		"stats:" + date + ":register:c1",
		"stats:" + date + ":register:ALL",
	} {
		assert.EqualValues(t, 2, store.hashes[key]["count"], key)
		assert.EqualValues(t, 1, store.hashes[key]["svc_count"], key)
		assert.EqualValues(t, 5, store.hashes[key]["total_svc_time"], key)
	}

	assert.Equal(t, "1005", store.keys["counter:last_activity:register:c1"])
}

func TestLongGapDiscarded(t *testing.T) {
	store := newFakeStore()
	r := New(store)

	require.NoError(t, r.RecordDispatch("register", "c1", at(1000)))
	// An hour or more since the previous dispatch: lunch break, not a
	// service time.
	require.NoError(t, r.RecordDispatch("register", "c1", at(1000+3600)))

	date := at(1000).Format("20060102")
	key := "stats:" + date + ":register:c1"
	assert.EqualValues(t, 2, store.hashes[key]["count"])
	assert.Zero(t, store.hashes[key]["svc_count"])
	assert.Zero(t, store.hashes[key]["total_svc_time"])

	// The activity marker still advances, so the next gap measures from
	// here.
	assert.Equal(t, "4600", store.keys["counter:last_activity:register:c1"])
}

func TestCountersSampleIndependently(t *testing.T) {
	store := newFakeStore()
	r := New(store)

	require.NoError(t, r.RecordDispatch("register", "c1", at(1000)))
	require.NoError(t, r.RecordDispatch("register", "c2", at(1003)))
	require.NoError(t, r.RecordDispatch("register", "c1", at(1010)))

	date := at(1000).Format("20060102")
	c1 := store.hashes["stats:"+date+":register:c1"]
	c2 := store.hashes["stats:"+date+":register:c2"]
	all := store.hashes["stats:"+date+":register:ALL"]

	// c2's first dispatch has no previous; c1's second measures from its
	// own last activity, not c2's.
	assert.EqualValues(t, 10, c1["total_svc_time"])
	assert.EqualValues(t, 1, c1["svc_count"])
	assert.Zero(t, c2["svc_count"])
	assert.EqualValues(t, 3, all["count"])
	assert.EqualValues(t, 1, all["svc_count"])
}

func TestAverageServiceTime(t *testing.T) {
	row := Row{TotalSvcTime: 30, SvcCount: 4}
	assert.InDelta(t, 7.5, row.AverageServiceTime(), 1e-9)

	empty := Row{Count: 3}
	assert.Zero(t, empty.AverageServiceTime())
}
