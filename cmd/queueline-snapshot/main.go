// queueline-snapshot dumps one day's analytics (overall summary, hourly
// demand, per-counter stats) to a JSON file, optionally compressed, for
// offline reporting.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anyotin/queueline/internal/analytics"
	"github.com/anyotin/queueline/internal/compressor"
	"github.com/anyotin/queueline/internal/config"
	"github.com/anyotin/queueline/internal/filer"
	"github.com/anyotin/queueline/internal/stats"
	"github.com/anyotin/queueline/internal/store/index"
	"github.com/anyotin/queueline/internal/store/kv"
)

type snapshot struct {
	Date    string                   `json:"date"`
	Service string                   `json:"service"`
	Summary analytics.Summary        `json:"summary"`
	Demand  []analytics.HourlyBucket `json:"demand"`
	Rows    []statsRow               `json:"rows"`
}

type statsRow struct {
	stats.Row
	AverageServiceTime float64 `json:"average_service_time"`
}

func main() {
	service := flag.String("service", "register", "queue partition to report on")
	date := flag.String("date", time.Now().Format("20060102"), "stats date, YYYYMMDD")
	out := flag.String("out", "snapshot.json", "output file path")
	codec := flag.String("codec", "none", "compression codec: none, zstd, ddzstd or lz4")
	flag.Parse()

	log := logrus.WithFields(logrus.Fields{"app": "queueline-snapshot", "date": *date})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	ctx := context.Background()

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

	reader := analytics.New(kvClient, idx, cfg.Analytics.TzOffsetSeconds)

	snap := snapshot{
		Date:    *date,
		Service: *service,
		Summary: reader.Overall(ctx, *service),
		Demand:  reader.HourlyDemand(ctx, *service),
	}
	for _, row := range reader.DateStats(*date) {
		snap.Rows = append(snap.Rows, statsRow{Row: row, AverageServiceTime: row.AverageServiceTime()})
	}

	f := filer.NewCompressedJSONFiler(compressor.ForName(*codec))
	if err := f.Save(*out, snap); err != nil {
		log.WithError(err).Fatal("failed to write snapshot")
	}

	log.WithFields(logrus.Fields{"out": *out, "rows": len(snap.Rows)}).Info("snapshot written")
}
