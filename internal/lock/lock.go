// Package lock provides a Redis-backed distributed lock, used by the
// dispatch engine to serialize the auto-complete sweep per service.
package lock

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anyotin/queueline/internal/store/kv"
)

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`

// Lock is a SetNX-based mutual exclusion lock with a Lua compare-and-delete
// release, so a lock can only be released by the holder that acquired it.
type Lock struct {
	rc     *kv.RedisClient
	key    string
	value  string
	expiry time.Duration
}

// New creates a lock scoped to name, expiring automatically after expiry
// if never released (protects against a crashed holder wedging the sweep
// forever). A zero expiry defaults to 30s.
func New(rc *kv.RedisClient, name string, expiry time.Duration) *Lock {
	if expiry <= 0 {
		expiry = 30 * time.Second
	}
	return &Lock{
		rc:     rc,
		key:    fmt.Sprintf("lock:%s", name),
		value:  uuid.New().String(),
		expiry: expiry,
	}
}

// TryAcquire attempts a non-blocking acquire, returning false if another
// holder currently owns the lock.
func (l *Lock) TryAcquire() (bool, error) {
	return l.rc.SetNX(l.key, l.value, l.expiry)
}

// Release gives up the lock, but only if this Lock instance is still the
// owner (prevents releasing a lock some other holder re-acquired after
// this one's expiry).
func (l *Lock) Release() error {
	result, err := l.rc.Native().Eval(l.rc.Context(), releaseScript, []string{l.key}, l.value).Result()
	if err != nil {
		return err
	}
	if n, ok := result.(int64); !ok || n == 0 {
		return fmt.Errorf("lock not owned: %s", l.key)
	}
	return nil
}
