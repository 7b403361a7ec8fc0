package index

import (
	"time"

	"github.com/cockroachdb/errors"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Config describes how to reach the MySQL mirror used as the secondary
// index (ahead_count ranges, cardinality probes, hourly-demand GROUP BY).
type Config struct {
	DSN          string // overrides the fields below when non-empty
	Addr         string
	DBName       string
	User         string
	Password     string
	Loc          *time.Location
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLife  time.Duration
}

func (c Config) dsn() string {
	if c.DSN != "" {
		return c.DSN
	}
	loc := c.Loc
	if loc == nil {
		loc = time.UTC
	}
	cfg := gomysql.Config{
		DBName:               c.DBName,
		User:                 c.User,
		Passwd:               c.Password,
		Addr:                 c.Addr,
		Net:                  "tcp",
		ParseTime:            true,
		Collation:            "utf8mb4_unicode_ci",
		AllowNativePasswords: true,
		Loc:                  loc,
	}
	return cfg.FormatDSN()
}

// MysqlClient wraps the sqlx.DB driving the ticket_index mirror table.
type MysqlClient struct {
	DB *sqlx.DB
}

func NewMysqlClient(cfg Config) (*MysqlClient, error) {
	if cfg.Addr == "" && cfg.DSN == "" {
		cfg.Addr = "127.0.0.1:3306"
	}
	if cfg.DBName == "" {
		cfg.DBName = "queueline"
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 10
	}
	if cfg.ConnMaxLife == 0 {
		cfg.ConnMaxLife = 10 * time.Minute
	}

	db, err := sqlx.Open("mysql", cfg.dsn())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open mysql")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLife)

	return &MysqlClient{DB: db}, nil
}

func (c *MysqlClient) Close() error {
	return c.DB.Close()
}
