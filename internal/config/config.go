// Package config loads gateway configuration from an INI file with
// environment variable overrides, following the same layout tqdbproxy used
// for its protocol sections.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// Config holds the full gateway configuration.
type Config struct {
	Listen  string // TCP listen address, e.g. ":5432"
	Socket  string // optional Unix socket path

	Auth AuthConfig
	IRIS IRISConfig
	Pool PoolConfig

	MaxFrameSize    int           // inbound frame limit outside COPY (default 1 MiB)
	IdleTimeout     time.Duration
	StatementTimeout time.Duration
	AuthTimeout     time.Duration

	// CopyBatchSize is how many COPY FROM STDIN rows pass between updates of
	// the COPY row metric. Each row is still sent as its own INSERT; rows are
	// not grouped into multi-row INSERTs.
	CopyBatchSize int

	// VectorOID is the vendor OID this deployment reports for IRIS's VECTOR
	// column type, since PostgreSQL itself has no built-in vector type and
	// pgtype's registry doesn't know one (spec §4.1, §6 "VECTOR -> a
	// configured vendor OID").
	VectorOID uint32

	// ShutdownGrace bounds how long graceful shutdown waits for in-flight
	// sessions to drain after the courtesy admin-shutdown notice, before the
	// listener closes their connections outright (spec §4.5).
	ShutdownGrace time.Duration

	MetricsListen string
}

// AuthConfig selects and configures the authentication strategy.
type AuthConfig struct {
	Method           string // "trust", "scram-wallet", "scram-oauth"
	OAuthEnabled     bool
	OAuthClientID    string
	OAuthClientSecret string
	OAuthTokenURL    string
	WalletQuery      string // optional override for the Wallet secret lookup query
}

// IRISConfig holds the backend connection parameters.
type IRISConfig struct {
	Host       string
	Port       int
	Namespace  string
	User       string
	Password   string
	DriverName string // database/sql driver name registered for IRIS

	// LegacyPercentS makes the translator also accept bare "%s" positional
	// placeholders from clients and rewrite them to "?", as it does "$N"
	// (spec §4.2 bind-parameter rewriting). IRIS always receives "?".
	LegacyPercentS bool
}

// DSN builds the connect string backend.Open hands to database/sql's IRIS
// driver from connect(host, port, namespace, user, password) (spec §4.3
// Backend interface to IRIS).
func (c IRISConfig) DSN() string {
	return fmt.Sprintf("%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.Namespace)
}

// PoolConfig holds connection pool tunables (spec §4.3, §6).
type PoolConfig struct {
	Size             int
	MaxOverflow      int
	Timeout          time.Duration
	Recycle          time.Duration
	HealthCheckEvery time.Duration
}

// Load reads configuration from an INI file with environment variable overrides.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, err
	}

	gw := f.Section("gateway")
	auth := f.Section("auth")
	iris := f.Section("iris")
	pool := f.Section("pool")

	cfg := &Config{
		Listen:           gw.Key("listen").MustString(":5432"),
		Socket:           gw.Key("socket").String(),
		MaxFrameSize:     gw.Key("max_frame_size").MustInt(1 << 20),
		IdleTimeout:      gw.Key("idle_timeout").MustDuration(0),
		StatementTimeout: gw.Key("statement_timeout").MustDuration(0),
		AuthTimeout:      gw.Key("auth_timeout").MustDuration(5 * time.Second),
		CopyBatchSize:    gw.Key("copy_batch_size").MustInt(100),
		VectorOID:        uint32(gw.Key("vector_oid").MustUint64(16385)),
		ShutdownGrace:    gw.Key("shutdown_grace").MustDuration(10 * time.Second),
		MetricsListen:    gw.Key("metrics_listen").MustString(":9090"),

		Auth: AuthConfig{
			Method:            strings.ToLower(auth.Key("method").MustString("trust")),
			OAuthEnabled:      auth.Key("oauth_enabled").MustBool(false),
			OAuthClientID:     auth.Key("oauth_client_id").String(),
			OAuthClientSecret: auth.Key("oauth_client_secret").String(),
			OAuthTokenURL:     auth.Key("oauth_token_url").String(),
			WalletQuery:       auth.Key("wallet_query").String(),
		},

		IRIS: IRISConfig{
			Host:           iris.Key("host").MustString("127.0.0.1"),
			Port:           iris.Key("port").MustInt(1972),
			Namespace:      iris.Key("namespace").MustString("USER"),
			User:           iris.Key("user").MustString("_SYSTEM"),
			Password:       iris.Key("password").String(),
			DriverName:     iris.Key("driver").MustString("iris"),
			LegacyPercentS: iris.Key("legacy_percent_s").MustBool(false),
		},

		Pool: PoolConfig{
			Size:             pool.Key("size").MustInt(10),
			MaxOverflow:      pool.Key("max_overflow").MustInt(10),
			Timeout:          pool.Key("timeout").MustDuration(30 * time.Second),
			Recycle:          pool.Key("recycle").MustDuration(time.Hour),
			HealthCheckEvery: pool.Key("health_check_interval").MustDuration(10 * time.Second),
		},
	}

	if v := os.Getenv("IRISPGWIRE_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("IRISPGWIRE_IRIS_HOST"); v != "" {
		cfg.IRIS.Host = v
	}
	if v := os.Getenv("IRISPGWIRE_AUTH_METHOD"); v != "" {
		cfg.Auth.Method = strings.ToLower(v)
	}

	return cfg, nil
}
