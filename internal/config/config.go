// Package config loads queueline's configuration from a YAML file under
// configs/, selected by APP_ENV, with environment-variable overrides.
package config

import "time"

type Config struct {
	Server    Server    `mapstructure:"server"`
	Redis     Redis     `mapstructure:"redis"`
	Stream    Stream    `mapstructure:"stream"`
	Mysql     Mysql     `mapstructure:"mysql"`
	View      View      `mapstructure:"view"`
	Chat      Chat      `mapstructure:"chat"`
	Admin     Admin     `mapstructure:"admin"`
	Session   Session   `mapstructure:"session"`
	Analytics Analytics `mapstructure:"analytics"`
	Bus       Bus       `mapstructure:"bus"`
	Dedup     Dedup     `mapstructure:"dedup"`
}

type Server struct {
	Addr string `mapstructure:"addr"`
}

// Redis covers the go-redis side of the backing store: ticket hashes, the
// global id counter, current-number pointers, dedup leases and pub/sub.
type Redis struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	PoolSize      int    `mapstructure:"pool_size"`
	SocketTimeout int    `mapstructure:"socket_timeout_seconds"`
}

// Stream covers the redigo side: the per-service queue stream and its
// consumer group. Usually the same instance as Redis, but dialed through
// its own pool so stream reads never starve request-scoped traffic.
type Stream struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	MaxIdle   int    `mapstructure:"max_idle"`
	MaxActive int    `mapstructure:"max_active"`
	UseTLS    bool   `mapstructure:"use_tls"`
}

type Mysql struct {
	DSN          string `mapstructure:"dsn"`
	Addr         string `mapstructure:"addr"`
	DBName       string `mapstructure:"db_name"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type View struct {
	BaseURL string `mapstructure:"base_url"`
}

type Chat struct {
	ChannelSecret string `mapstructure:"channel_secret"`
	AccessToken   string `mapstructure:"access_token"`
}

type Admin struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Session holds the AES key and IV for the encrypted session cookie. The
// key must be 16, 24 or 32 bytes; the IV exactly 16.
type Session struct {
	AesKey       string `mapstructure:"aes_key"`
	AesIV        string `mapstructure:"aes_iv"`
	SecureCookie bool   `mapstructure:"secure_cookie"`
}

type Analytics struct {
	TzOffsetSeconds int64 `mapstructure:"tz_offset_seconds"`
}

type Bus struct {
	ListenerQueueSize int `mapstructure:"listener_queue_size"`
}

type Dedup struct {
	LeaseTTLSeconds int `mapstructure:"lease_ttl_seconds"`
}

func (d Dedup) LeaseTTL() time.Duration {
	return time.Duration(d.LeaseTTLSeconds) * time.Second
}
