// Package listener owns the gateway's single bound TCP (and optional Unix
// socket) listener, one goroutine per accepted connection, and the shared
// cancellation registry those connections register themselves in (spec
// §4.5), grounded on mevdschee-tqdbproxy/postgres.Proxy's
// Start/acceptLoop/handleConnection shape.
package listener

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/irispgwire/internal/backend"
	"github.com/mevdschee/irispgwire/internal/codec"
	"github.com/mevdschee/irispgwire/internal/session"
)

var connCounter uint32

// Listener binds the gateway's TCP (and optional Unix) socket and spawns one
// Session per accepted connection, all sharing a single cancellation
// registry (spec §4.5).
type Listener struct {
	tcpAddr string
	socket  string

	sessionCfg session.Config
	pool       *backend.Pool

	shutdownGrace time.Duration

	tcpListener net.Listener
	uxListener  net.Listener

	reg *registry

	wg      sync.WaitGroup
	closing atomic.Bool
}

// New builds a Listener. sessionCfg is reused, unmodified, for every
// accepted connection; pool is drained last during graceful shutdown.
func New(tcpAddr, socket string, sessionCfg session.Config, pool *backend.Pool, shutdownGrace time.Duration) *Listener {
	return &Listener{
		tcpAddr:       tcpAddr,
		socket:        socket,
		sessionCfg:    sessionCfg,
		pool:          pool,
		shutdownGrace: shutdownGrace,
		reg:           newRegistry(),
	}
}

// Start binds the listener(s) and begins accepting connections in the
// background. It returns once both listeners (if configured) are bound, so
// callers can log "ready" immediately after.
func (l *Listener) Start() error {
	tcpListener, err := net.Listen("tcp", l.tcpAddr)
	if err != nil {
		return fmt.Errorf("listener: tcp listen %s: %w", l.tcpAddr, err)
	}
	l.tcpListener = tcpListener
	log.Printf("[listener] listening on %s (tcp)", l.tcpAddr)
	l.wg.Add(1)
	go l.acceptLoop(tcpListener)

	if l.socket != "" {
		if err := os.Remove(l.socket); err != nil && !os.IsNotExist(err) {
			log.Printf("[listener] warning: could not remove existing socket %s: %v", l.socket, err)
		}
		uxListener, err := net.Listen("unix", l.socket)
		if err != nil {
			tcpListener.Close()
			return fmt.Errorf("listener: unix listen %s: %w", l.socket, err)
		}
		l.uxListener = uxListener
		log.Printf("[listener] listening on %s (unix)", l.socket)
		l.wg.Add(1)
		go l.acceptLoop(uxListener)
	}

	return nil
}

// Addr reports the bound TCP address, useful when tcpAddr was ":0" (tests,
// ephemeral ports). It is nil until Start has returned successfully.
func (l *Listener) Addr() net.Addr {
	if l.tcpListener == nil {
		return nil
	}
	return l.tcpListener.Addr()
}

func (l *Listener) acceptLoop(ln net.Listener) {
	defer l.wg.Done()
	for {
		raw, err := ln.Accept()
		if err != nil {
			if l.closing.Load() {
				return
			}
			log.Printf("[listener] accept error: %v", err)
			continue
		}
		id := atomic.AddUint32(&connCounter, 1)
		l.wg.Add(1)
		go l.handleConnection(raw, id)
	}
}

func (l *Listener) handleConnection(raw net.Conn, connID uint32) {
	defer l.wg.Done()
	conn := codec.NewConn(raw, l.sessionCfg.MaxFrameSize, l.sessionCfg.VectorOID)
	s := session.New(conn, l.sessionCfg, l.reg)
	s.Run(context.Background())
	log.Printf("[listener] conn %d closed", connID)
}

// Shutdown stops accepting new connections, sends every live session a
// courtesy admin-shutdown notice, waits up to the configured grace period
// for them to finish on their own, then closes the backend pool (spec
// §4.5 graceful shutdown).
func (l *Listener) Shutdown(ctx context.Context) error {
	l.closing.Store(true)
	if l.tcpListener != nil {
		l.tcpListener.Close()
	}
	if l.uxListener != nil {
		l.uxListener.Close()
	}

	l.reg.notifyAll(&pgproto3.ErrorResponse{
		Severity: "FATAL",
		Code:     "57P01",
		Message:  "terminating connection due to administrator command",
	})

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	grace := l.shutdownGrace
	if grace <= 0 {
		grace = 10 * time.Second
	}
	select {
	case <-done:
	case <-time.After(grace):
		log.Printf("[listener] shutdown grace period elapsed, closing remaining sessions")
		l.reg.closeAll()
		<-done
	case <-ctx.Done():
		l.reg.closeAll()
		<-done
	}

	if l.pool != nil {
		return l.pool.Close()
	}
	return nil
}
