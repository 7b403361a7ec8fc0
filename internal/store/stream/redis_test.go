package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	rs, err := NewRedisStore(Config{DialMaxBackoff: time.Second})
	if err != nil {
		t.Skipf("redis not reachable, skipping: %v", err)
	}
	return rs
}

func TestEnsureGroupIsIdempotent(t *testing.T) {
	rs := newTestStore(t)
	defer rs.Close()

	require.NoError(t, rs.EnsureGroup("streamtest", "counters_group"))
	// A second create hits BUSYGROUP, which must be swallowed.
	require.NoError(t, rs.EnsureGroup("streamtest", "counters_group"))
}

func TestAppendReadAck(t *testing.T) {
	rs := newTestStore(t)
	defer rs.Close()

	service := "streamtest-rw"
	require.NoError(t, rs.EnsureGroup(service, "counters_group"))

	entryID, err := rs.Append(service, 41, 1000)
	require.NoError(t, err)
	assert.NotEmpty(t, entryID)

	entries, err := rs.ReadGroup(service, "counters_group", "c1", 1, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.EqualValues(t, 41, entries[0].TicketID)

	require.NoError(t, rs.Ack(service, "counters_group", entries[0].ID))

	// Nothing new left for any consumer.
	entries, err = rs.ReadGroup(service, "counters_group", "c2", 1, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
