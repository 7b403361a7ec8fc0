package stream

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gomodule/redigo/redis"
	"github.com/sirupsen/logrus"
)

// Config controls how the redigo connection pool dials the stream-carrying
// Redis instance.
type Config struct {
	Addr            string
	Password        string
	MaxIdle         int
	MaxActive       int
	IdleTimeout     time.Duration
	DialMaxBackoff  time.Duration
	UseTLS          bool
	TLSSkipVerify   bool
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.MaxIdle == 0 {
		c.MaxIdle = 8
	}
	if c.MaxActive == 0 {
		c.MaxActive = 10
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.DialMaxBackoff == 0 {
		c.DialMaxBackoff = 15 * time.Second
	}
	return c
}

// RedisStore is the queue stream store backed by gomodule/redigo, keeping
// the dial-with-backoff/jitter and signal-aware cancellation the rest of
// the backing store's stream pool used, now aimed at each service's
// `queue_stream:{service}` entries instead of a single replication stream.
type RedisStore struct {
	pool   *redis.Pool
	cfg    Config
	cancel context.CancelFunc
	log    *logrus.Entry
}

func streamKey(service string) string {
	return fmt.Sprintf("queue_stream:%s", service)
}

func NewRedisStore(cfg Config) (*RedisStore, error) {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)

	log := logrus.WithFields(logrus.Fields{"component": "stream", "addr": cfg.Addr})

	pool := newConnectionPool(ctx, cfg, cancel, signalChan, log)

	conn, err := pool.GetContext(context.Background())
	if err != nil {
		cancel()
		return nil, err
	}
	conn.Close()

	if ctx.Err() != nil {
		cancel()
		return nil, ctx.Err()
	}

	return &RedisStore{pool: pool, cfg: cfg, cancel: cancel, log: log}, nil
}

func newConnectionPool(ctx context.Context, cfg Config, cancel context.CancelFunc, sigChan chan os.Signal, log *logrus.Entry) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     cfg.MaxIdle,
		MaxActive:   cfg.MaxActive,
		IdleTimeout: cfg.IdleTimeout,
		Wait:        true,
		TestOnBorrow: func(c redis.Conn, lastUsed time.Time) error {
			if time.Since(lastUsed) < 15*time.Second {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
		Dial: func() (redis.Conn, error) {
			var conn redis.Conn
			err := backoff.RetryNotify(
				func() error {
					var err error
					select {
					case <-sigChan:
						cancel()
					default:
						dialOptions := []redis.DialOption{
							redis.DialPassword(cfg.Password),
							redis.DialConnectTimeout(10 * time.Second),
							redis.DialReadTimeout(30 * time.Second),
						}
						if cfg.UseTLS {
							dialOptions = append(dialOptions, redis.DialUseTLS(true))
						}
						if cfg.TLSSkipVerify {
							dialOptions = append(dialOptions, redis.DialTLSSkipVerify(true))
						}
						conn, err = redis.Dial("tcp", cfg.Addr, dialOptions...)
						if err != nil {
							log.WithError(err).Debug("failure dialing redis")
						}
					}
					return err
				},
				backoff.WithContext(
					backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(cfg.DialMaxBackoff)), ctx),
				func(err error, d time.Duration) {
					log.WithError(err).Debugf("retrying dial in %s", d)
				},
			)
			return conn, err
		},
	}
}

func (rs *RedisStore) Close() error {
	rs.cancel()
	return rs.pool.Close()
}

// EnsureGroup issues XGROUP CREATE ... MKSTREAM, swallowing the BUSYGROUP
// error returned when the group already exists — idempotent the same way
// the dispatch engine it backs expects.
func (rs *RedisStore) EnsureGroup(service, group string) error {
	conn := rs.pool.Get()
	defer conn.Close()

	_, err := conn.Do("XGROUP", "CREATE", streamKey(service), group, "0", "MKSTREAM")
	if err != nil {
		if rerr, ok := err.(redis.Error); ok && isBusyGroup(rerr) {
			return nil
		}
		return err
	}
	return nil
}

func isBusyGroup(err redis.Error) bool {
	msg := err.Error()
	return len(msg) >= 9 && msg[:9] == "BUSYGROUP"
}

// Append XADDs a ticket id onto the end of a service's stream and trims it
// to an approximate maxLen in the same XADD command.
func (rs *RedisStore) Append(service string, ticketID int64, maxLen int64) (string, error) {
	conn := rs.pool.Get()
	defer conn.Close()

	entryID, err := redis.String(conn.Do("XADD", streamKey(service), "MAXLEN", "~", maxLen, "*", "ticket_id", ticketID))
	if err != nil {
		return "", err
	}
	return entryID, nil
}

// ReadGroup pulls up to count new entries for consumer using XREADGROUP,
// blocking for block if the stream currently has nothing new.
func (rs *RedisStore) ReadGroup(service, group, consumer string, count int64, block time.Duration) ([]Entry, error) {
	conn := rs.pool.Get()
	defer conn.Close()

	reply, err := conn.Do("XREADGROUP",
		"GROUP", group, consumer,
		"COUNT", count,
		"BLOCK", int64(block/time.Millisecond),
		"STREAMS", streamKey(service), ">",
	)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, nil
	}

	streams, ok := reply.([]interface{})
	if !ok || len(streams) == 0 {
		return nil, nil
	}
	records, ok := streams[0].([]interface{})
	if !ok || len(records) < 2 {
		return nil, nil
	}
	entries, ok := records[1].([]interface{})
	if !ok {
		return nil, nil
	}

	out := make([]Entry, 0, len(entries))
	for _, raw := range entries {
		fields, ok := raw.([]interface{})
		if !ok || len(fields) != 2 {
			continue
		}
		id, err := redis.String(fields[0], nil)
		if err != nil {
			continue
		}
		kv, err := redis.Strings(fields[1], nil)
		if err != nil || len(kv) < 2 {
			continue
		}
		ticketID, err := parseTicketID(kv[1])
		if err != nil {
			continue
		}
		out = append(out, Entry{ID: id, TicketID: ticketID})
	}
	return out, nil
}

func parseTicketID(s string) (int64, error) {
	var id int64
	_, err := fmt.Sscanf(s, "%d", &id)
	return id, err
}

// Ack acknowledges entryID so it's removed from the group's pending list.
func (rs *RedisStore) Ack(service, group, entryID string) error {
	conn := rs.pool.Get()
	defer conn.Close()

	_, err := conn.Do("XACK", streamKey(service), group, entryID)
	return err
}
