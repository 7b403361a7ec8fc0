// queueline-counter is a terminal-side poller: it repeatedly calls
// next for one counter, printing each dispatched ticket. Useful for a
// kiosk that should drain the queue continuously instead of waiting for
// an operator click per ticket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	bo "github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"

	"github.com/anyotin/queueline/internal/backoff"
	"github.com/anyotin/queueline/internal/config"
	"github.com/anyotin/queueline/internal/dispatch"
	"github.com/anyotin/queueline/internal/lock"
	"github.com/anyotin/queueline/internal/randutil"
	"github.com/anyotin/queueline/internal/stats"
	"github.com/anyotin/queueline/internal/store/index"
	"github.com/anyotin/queueline/internal/store/kv"
	"github.com/anyotin/queueline/internal/store/stream"
	"github.com/anyotin/queueline/internal/ticket"
	"github.com/anyotin/queueline/internal/ticketrepo"
)

func main() {
	service := flag.String("service", "register", "queue partition to consume")
	counter := flag.String("counter", "counter-1", "consumer name within the counter group")
	idleSleep := flag.Duration("idle-sleep", 3*time.Second, "base sleep between polls when the queue is empty")
	flag.Parse()

	log := logrus.WithFields(logrus.Fields{
		"app":     "queueline-counter",
		"service": *service,
		"counter": *counter,
	})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kvClient, err := kv.NewRedisClient(ctx, kv.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer kvClient.Close()

	streams, err := stream.NewRedisStore(stream.Config{
		Addr:      cfg.Stream.Addr,
		Password:  cfg.Stream.Password,
		MaxIdle:   cfg.Stream.MaxIdle,
		MaxActive: cfg.Stream.MaxActive,
		UseTLS:    cfg.Stream.UseTLS,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to stream redis")
	}
	defer streams.Close()

	idx, err := index.NewMysqlClient(index.Config{
		DSN:          cfg.Mysql.DSN,
		Addr:         cfg.Mysql.Addr,
		DBName:       cfg.Mysql.DBName,
		User:         cfg.Mysql.User,
		Password:     cfg.Mysql.Password,
		MaxOpenConns: cfg.Mysql.MaxOpenConns,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to open mysql")
	}
	defer idx.Close()

	repo := ticketrepo.New(kvClient, streams, idx)
	pubsub := kv.NewPubSubService(kvClient)
	guards := func(service string) dispatch.Guard {
		return lock.New(kvClient, "autocomplete:"+service, 5*time.Second)
	}
	engine := dispatch.New(repo, streams, stats.New(kvClient), pubsub, guards)

	log.Info("polling for tickets")

	for ctx.Err() == nil {
		view, err := callWithRetry(ctx, engine, *service, *counter)
		switch {
		case err == nil:
			fmt.Printf("number %d -> %s\n", view.ID, *counter)
			log.WithFields(logrus.Fields{"number": view.ID}).Info("dispatched")
		case ctx.Err() != nil:
			// Shutting down.
		default:
			// Empty queue, or the store stayed down past the retry
			// budget. Either way, back off before polling again, with
			// jitter so a fleet of counters doesn't stampede the stream.
			jitter := time.Duration(randutil.RandomIntBetweenInclusive(0, 1000, true, true)) * time.Millisecond
			select {
			case <-ctx.Done():
			case <-time.After(*idleSleep + jitter):
			}
		}
	}

	log.Info("counter stopped")
}

// callWithRetry runs one call_next, retrying transient store errors a few
// times before giving the ticket back to the outer poll loop. An empty
// queue is not retried; it is the steady state.
func callWithRetry(ctx context.Context, engine *dispatch.Engine, service, counter string) (ticket.View, error) {
	r := backoff.New(ctx, 200*time.Millisecond, 0.3, 2.0, 4)
	return backoff.Do(r, func() (ticket.View, error) {
		view, err := engine.CallNext(ctx, service, counter)
		if err == dispatch.ErrEmpty {
			return ticket.View{}, bo.Permanent(err)
		}
		return view, err
	})
}
