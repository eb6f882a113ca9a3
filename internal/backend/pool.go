// Package backend owns the IRIS connection pool and statement execution
// (spec §4.3). IRIS itself is reached through database/sql with a
// configurable driver name (spec §1: IRIS is an external black-box
// collaborator; no IRIS Go driver ships in this repo or the example pack).
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/mevdschee/irispgwire/internal/config"
	"github.com/mevdschee/irispgwire/internal/metrics"
)

// Pool wraps *sql.DB with the health-check loop and acquire-timeout
// discipline of mevdschee-tqdbproxy/replica.Pool and
// JeelKantaria-db-bouncer/internal/pool.TenantPool, applied to a single
// IRIS endpoint rather than a primary/replica set — IRIS's own
// database/sql driver already multiplexes physical connections, so this
// layer's job is bounded acquisition, health observation, and metrics, not
// reimplementing connection lifecycle management database/sql already
// does well.
type Pool struct {
	db             *sql.DB
	acquireTimeout time.Duration
	healthy        atomic.Bool
}

// Open dials IRIS via database/sql and configures pool limits from cfg
// (spec §4.3: pool_size hard minimum, pool_max_overflow burst, pool_timeout
// lease wait, pool_recycle max connection age).
func Open(cfg config.PoolConfig, driverName, dsn string) (*Pool, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening IRIS connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.Size + cfg.MaxOverflow)
	db.SetMaxIdleConns(cfg.Size)
	db.SetConnMaxLifetime(cfg.Recycle)

	p := &Pool{db: db, acquireTimeout: cfg.Timeout}
	p.healthy.Store(true)
	return p, nil
}

// Acquire leases a connection, bounded by the pool's configured timeout
// (or an earlier deadline already on ctx).
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	start := time.Now()
	acquireCtx := ctx
	var cancel context.CancelFunc
	if p.acquireTimeout > 0 {
		acquireCtx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}
	conn, err := p.db.Conn(acquireCtx)
	metrics.PoolAcquireLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PoolExhausted.Inc()
		return nil, fmt.Errorf("acquiring IRIS connection: %w", err)
	}
	stats := p.db.Stats()
	metrics.PoolInUse.Set(float64(stats.InUse))
	metrics.PoolIdle.Set(float64(stats.Idle))
	return conn, nil
}

// Healthy reports the pool's most recent health-check result.
func (p *Pool) Healthy() bool { return p.healthy.Load() }

// RunHealthChecks periodically pings IRIS until ctx is canceled, flipping
// Healthy()/metrics.PoolHealthDegraded on transition (grounded on
// replica.Pool.StartHealthChecks's ticker-driven checkAllReplicas loop).
func (p *Pool) RunHealthChecks(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.checkHealth(ctx)
		}
	}
}

func (p *Pool) checkHealth(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := p.db.PingContext(pingCtx)
	wasHealthy := p.healthy.Load()
	nowHealthy := err == nil
	p.healthy.Store(nowHealthy)
	if wasHealthy && !nowHealthy {
		log.Printf("[Backend] IRIS health check failed, marking pool degraded: %v", err)
		metrics.PoolHealthDegraded.Set(1)
	} else if !wasHealthy && nowHealthy {
		log.Printf("[Backend] IRIS health check recovered, pool healthy again")
		metrics.PoolHealthDegraded.Set(0)
	}
}

// Close releases the underlying *sql.DB.
func (p *Pool) Close() error {
	return p.db.Close()
}
