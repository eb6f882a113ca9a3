// Command irispgwire runs the PostgreSQL-wire-protocol gateway in front of
// an InterSystems IRIS backend.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mevdschee/irispgwire/internal/auth"
	"github.com/mevdschee/irispgwire/internal/backend"
	"github.com/mevdschee/irispgwire/internal/catalog"
	"github.com/mevdschee/irispgwire/internal/config"
	"github.com/mevdschee/irispgwire/internal/listener"
	"github.com/mevdschee/irispgwire/internal/metrics"
	"github.com/mevdschee/irispgwire/internal/session"
)

func main() {
	configPath := flag.String("config", "gateway.ini", "Path to configuration file")
	metricsAddr := flag.String("metrics", "", "Metrics endpoint address (overrides config [gateway] metrics_listen)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *metricsAddr != "" {
		cfg.MetricsListen = *metricsAddr
	}

	metrics.Init()
	go func() {
		http.Handle("/metrics", metrics.Handler())
		log.Printf("metrics endpoint at http://localhost%s/metrics", cfg.MetricsListen)
		if err := http.ListenAndServe(cfg.MetricsListen, nil); err != nil {
			log.Printf("metrics server error: %v", err)
		}
	}()

	// cfg.IRIS.DriverName must already be registered with database/sql by
	// the deployment's build (no IRIS driver ships in this module).
	pool, err := backend.Open(cfg.Pool, cfg.IRIS.DriverName, cfg.IRIS.DSN())
	if err != nil {
		log.Fatalf("failed to open IRIS pool: %v", err)
	}

	healthCtx, healthCancel := context.WithCancel(context.Background())
	defer healthCancel()
	go pool.RunHealthChecks(healthCtx, cfg.Pool.HealthCheckEvery)

	authStrategy, err := auth.New(cfg.Auth, pool)
	if err != nil {
		log.Fatalf("failed to configure auth: %v", err)
	}

	oidCache, err := catalog.NewOIDCache()
	if err != nil {
		log.Fatalf("failed to create OID cache: %v", err)
	}
	defer oidCache.Close()

	sessionCfg := session.Config{
		Auth:             authStrategy,
		Executor:         backend.NewExecutor(pool, cfg.IRIS.LegacyPercentS),
		Pool:             pool,
		OIDCache:         oidCache,
		DBName:           cfg.IRIS.Namespace,
		MaxFrameSize:     cfg.MaxFrameSize,
		VectorOID:        cfg.VectorOID,
		LegacyPercentS:   cfg.IRIS.LegacyPercentS,
		AuthTimeout:      cfg.AuthTimeout,
		IdleTimeout:      cfg.IdleTimeout,
		StatementTimeout: cfg.StatementTimeout,
		CopyBatchSize:    cfg.CopyBatchSize,
	}

	l := listener.New(cfg.Listen, cfg.Socket, sessionCfg, pool, cfg.ShutdownGrace)
	if err := l.Start(); err != nil {
		log.Fatalf("failed to start listener: %v", err)
	}
	log.Println("irispgwire started. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace+5*time.Second)
	defer cancel()
	if err := l.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
