package listener

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/irispgwire/internal/auth"
	"github.com/mevdschee/irispgwire/internal/backend"
	"github.com/mevdschee/irispgwire/internal/config"
	"github.com/mevdschee/irispgwire/internal/session"
)

// noopDriver is the minimal database/sql/driver mock used throughout this
// module's tests (grounded on mevdschee-tqdbproxy/clients/go/postgres's
// MockDriver pattern); the listener tests below never reach the backend, so
// it only needs to exist for backend.Open to succeed.
type noopDriver struct{}

func (noopDriver) Open(name string) (driver.Conn, error) { return noopConn{}, nil }

type noopConn struct{}

func (noopConn) Prepare(q string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (noopConn) Close() error                          { return nil }
func (noopConn) Begin() (driver.Tx, error)             { return nil, driver.ErrSkip }

func newTestListener(t *testing.T, driverName string) *Listener {
	t.Helper()
	sql.Register(driverName, noopDriver{})
	pool, err := backend.Open(config.PoolConfig{Size: 1}, driverName, "dsn")
	if err != nil {
		t.Fatalf("backend.Open: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	sessionCfg := session.Config{
		Auth:         auth.Trust{},
		Executor:     backend.NewExecutor(pool, false),
		Pool:         pool,
		MaxFrameSize: 1 << 20,
		AuthTimeout:  2 * time.Second,
	}
	return New("127.0.0.1:0", "", sessionCfg, pool, 200*time.Millisecond)
}

func dialAndHandshake(t *testing.T, addr net.Addr) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	frontend := pgproto3.NewFrontend(conn, conn)
	startup := &pgproto3.StartupMessage{
		ProtocolVersion: pgproto3.ProtocolVersionNumber,
		Parameters:      map[string]string{"user": "alice", "database": "alice"},
	}
	buf, err := startup.Encode(nil)
	if err != nil {
		t.Fatalf("encode startup: %v", err)
	}
	if _, err := conn.Write(buf); err != nil {
		t.Fatalf("write startup: %v", err)
	}

	// Trust auth: AuthenticationOk, BackendKeyData, ParameterStatus*, ReadyForQuery.
	for {
		msg, err := frontend.Receive()
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if _, ok := msg.(*pgproto3.ReadyForQuery); ok {
			break
		}
	}
	return conn
}

func TestListener_AcceptsAndRunsSession(t *testing.T) {
	l := newTestListener(t, "irispgwire-listener-accept")
	if err := l.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer l.Shutdown(context.Background())

	conn := dialAndHandshake(t, l.Addr())
	defer conn.Close()
}

func TestListener_ShutdownSendsCourtesyNoticeAndCloses(t *testing.T) {
	l := newTestListener(t, "irispgwire-listener-shutdown")
	if err := l.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	conn := dialAndHandshake(t, l.Addr())
	defer conn.Close()

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- l.Shutdown(context.Background()) }()

	frontend := pgproto3.NewFrontend(conn, conn)
	msg, err := frontend.Receive()
	if err != nil {
		t.Fatalf("receive after shutdown: %v", err)
	}
	errResp, ok := msg.(*pgproto3.ErrorResponse)
	if !ok {
		t.Fatalf("got %T, want *pgproto3.ErrorResponse", msg)
	}
	if errResp.Code != "57P01" {
		t.Errorf("Code = %q, want 57P01", errResp.Code)
	}

	if err := <-shutdownDone; err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestListener_ShutdownWithNoSessionsReturnsQuickly(t *testing.T) {
	l := newTestListener(t, "irispgwire-listener-shutdown-empty")
	if err := l.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	start := time.Now()
	if err := l.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if elapsed := time.Since(start); elapsed > l.shutdownGrace {
		t.Errorf("Shutdown with no live sessions took %v, want well under the grace period", elapsed)
	}
}
