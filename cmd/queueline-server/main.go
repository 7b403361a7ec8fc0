// queueline-server runs the HTTP surface: ticket issue and status,
// counter dispatch, live event streams, the operator analytics API and
// the chat webhook.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/anyotin/queueline/internal/analytics"
	"github.com/anyotin/queueline/internal/api"
	"github.com/anyotin/queueline/internal/bus"
	"github.com/anyotin/queueline/internal/config"
	"github.com/anyotin/queueline/internal/dispatch"
	"github.com/anyotin/queueline/internal/lock"
	"github.com/anyotin/queueline/internal/push"
	"github.com/anyotin/queueline/internal/session"
	"github.com/anyotin/queueline/internal/stats"
	"github.com/anyotin/queueline/internal/store/index"
	"github.com/anyotin/queueline/internal/store/kv"
	"github.com/anyotin/queueline/internal/store/stream"
	"github.com/anyotin/queueline/internal/ticketrepo"
)

func main() {
	log := logrus.WithFields(logrus.Fields{"app": "queueline-server", "env": config.AppEnv()})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kvClient, err := kv.NewRedisClient(ctx, kv.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		ReadTimeout:  time.Duration(cfg.Redis.SocketTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Redis.SocketTimeout) * time.Second,
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
	if err := repo.EnsureSchema(ctx); err != nil {
		log.WithError(err).Warn("mirror schema check failed, ahead_count will degrade until it recovers")
	}

	pubsub := kv.NewPubSubService(kvClient)
	recorder := stats.New(kvClient)
	guards := func(service string) dispatch.Guard {
		return lock.New(kvClient, "autocomplete:"+service, 5*time.Second)
	}
	engine := dispatch.New(repo, streams, recorder, pubsub, guards)
	reader := analytics.New(kvClient, idx, cfg.Analytics.TzOffsetSeconds)

	pusher := push.NewStub()
	pushDispatcher := push.New(kvClient, repo, pusher, cfg.Dedup.LeaseTTL())

	b := bus.New(pubsub, cfg.Bus.ListenerQueueSize)
	b.OnEvent(pushDispatcher.Handle)
	b.Start(ctx)

	sessions, err := session.New(cfg.Session.AesKey, cfg.Session.AesIV, cfg.Session.SecureCookie)
	if err != nil {
		log.WithError(err).Fatal("failed to build session manager")
	}

	handler := api.New(repo, engine, reader, b, pusher, sessions, api.Config{
		AdminUsername: cfg.Admin.Username,
		AdminPassword: cfg.Admin.Password,
		ViewBaseURL:   cfg.View.BaseURL,
		ChatSecret:    cfg.Chat.ChannelSecret,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("shutdown did not complete cleanly")
		}
	}()

	log.WithField("addr", cfg.Server.Addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server exited")
	}
	log.Info("server stopped")
}
