package session

import (
	"context"
	"database/sql"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/irispgwire/internal/auth"
	"github.com/mevdschee/irispgwire/internal/backend"
	"github.com/mevdschee/irispgwire/internal/codec"
	"github.com/mevdschee/irispgwire/internal/config"
)

// newExtendedQueryTestSession wires a Session against a net.Pipe and a
// mock-driver backed Executor, the same two techniques trust_test.go and
// txverb_test.go each use alone, combined here to drive the wire-level
// Extended Query dispatcher end to end. net.Pipe has no internal buffering,
// so the server side must be driven from its own goroutine exactly like a
// real connection — the test's main goroutine plays the frontend, sending
// one message and reading its reply at a time.
func newExtendedQueryTestSession(t *testing.T, driverName string) (*Session, *pgproto3.Frontend) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	t.Cleanup(func() { serverSide.Close(); clientSide.Close() })

	mock := &mockTxDriver{}
	sql.Register(driverName, mock)
	pool, err := backend.Open(config.PoolConfig{Size: 1}, driverName, "dsn")
	if err != nil {
		t.Fatalf("backend.Open: %v", err)
	}

	s := &Session{
		cfg: Config{
			Executor: backend.NewExecutor(pool, false),
			Pool:     pool,
		},
		conn:     codec.NewConn(serverSide, 1<<20, 0),
		prepared: make(map[string]*PreparedStatement),
		portals:  make(map[string]*Portal),
	}
	s.txState = TxIdle

	frontend := pgproto3.NewFrontend(clientSide, clientSide)
	clientSide.SetDeadline(time.Now().Add(5 * time.Second))
	return s, frontend
}

// runServerMessages drives n frontend messages through s.runExtendedQuery on
// a background goroutine, reporting any dispatch error on errc once all n
// have been processed (or sooner, on the first transport failure).
func runServerMessages(ctx context.Context, s *Session, n int) <-chan error {
	errc := make(chan error, 1)
	go func() {
		for i := 0; i < n; i++ {
			msg, err := s.conn.Receive()
			if err != nil {
				errc <- err
				return
			}
			if err := s.runExtendedQuery(ctx, msg); err != nil {
				errc <- err
				return
			}
		}
		errc <- nil
	}()
	return errc
}

func TestExtendedQuery_BeginLifecycle(t *testing.T) {
	s, frontend := newExtendedQueryTestSession(t, "irispgwire-mock-extended-begin")
	ctx := context.Background()
	errc := runServerMessages(ctx, s, 5) // Parse, Bind, Describe, Execute, Sync

	send(t, frontend, &pgproto3.Parse{Name: "stmt1", Query: "BEGIN"})
	expectReply(t, frontend, &pgproto3.ParseComplete{})

	send(t, frontend, &pgproto3.Bind{DestinationPortal: "p1", PreparedStatement: "stmt1"})
	expectReply(t, frontend, &pgproto3.BindComplete{})

	send(t, frontend, &pgproto3.Describe{ObjectType: 'P', Name: "p1"})
	expectReply(t, frontend, &pgproto3.NoData{})

	send(t, frontend, &pgproto3.Execute{Portal: "p1"})
	cc := expectReply(t, frontend, &pgproto3.CommandComplete{})
	if string(cc.(*pgproto3.CommandComplete).CommandTag) != "BEGIN" {
		t.Errorf("CommandTag = %q, want BEGIN", cc.(*pgproto3.CommandComplete).CommandTag)
	}

	send(t, frontend, &pgproto3.Sync{})
	if err := <-errc; err != nil {
		t.Fatalf("server dispatch loop: %v", err)
	}

	if s.txState != TxInTx {
		t.Errorf("txState = %v, want TxInTx", s.txState)
	}
	if s.extendedFailed {
		t.Errorf("extendedFailed = true, want false after a clean Sync-terminated exchange")
	}
}

func TestExtendedQuery_CopyRejected(t *testing.T) {
	s, frontend := newExtendedQueryTestSession(t, "irispgwire-mock-extended-copy")
	ctx := context.Background()
	errc := runServerMessages(ctx, s, 3) // Parse, Bind, Sync

	send(t, frontend, &pgproto3.Parse{Name: "stmt1", Query: "COPY users FROM STDIN"})
	expectReply(t, frontend, &pgproto3.ParseComplete{})

	send(t, frontend, &pgproto3.Bind{DestinationPortal: "p1", PreparedStatement: "stmt1"})
	errMsg := expectReply(t, frontend, &pgproto3.ErrorResponse{})
	if errMsg.(*pgproto3.ErrorResponse).Code != "0A000" {
		t.Errorf("Code = %q, want 0A000", errMsg.(*pgproto3.ErrorResponse).Code)
	}

	send(t, frontend, &pgproto3.Sync{})
	if err := <-errc; err != nil {
		t.Fatalf("server dispatch loop: %v", err)
	}
	if s.extendedFailed {
		t.Errorf("extendedFailed should clear on Sync")
	}
}

// TestExtendedQuery_PipelinedMessagesGetExactlyOneReadyForQuery drives a full
// Parse/Bind/Execute/Sync pipeline through Session.Run itself (not
// runExtendedQuery in isolation, which never exercises sendReadyForQuery at
// all) and asserts ReadyForQuery appears exactly once, after Sync — the
// property TestExtendedQuery_BeginLifecycle's direct-dispatch style cannot
// observe.
func TestExtendedQuery_PipelinedMessagesGetExactlyOneReadyForQuery(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	t.Cleanup(func() { serverSide.Close(); clientSide.Close() })

	driverName := "irispgwire-mock-extended-pipeline"
	mock := &mockTxDriver{}
	sql.Register(driverName, mock)
	pool, err := backend.Open(config.PoolConfig{Size: 1}, driverName, "dsn")
	if err != nil {
		t.Fatalf("backend.Open: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	s := New(codec.NewConn(serverSide, 1<<20, 0), Config{
		Auth:     auth.Trust{},
		Executor: backend.NewExecutor(pool, false),
		Pool:     pool,
	}, nil)

	runDone := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(runDone)
	}()

	frontend := pgproto3.NewFrontend(clientSide, clientSide)
	clientSide.SetDeadline(time.Now().Add(5 * time.Second))

	startup := &pgproto3.StartupMessage{
		ProtocolVersion: pgproto3.ProtocolVersionNumber,
		Parameters:      map[string]string{"user": "alice", "database": "alice"},
	}
	buf, err := startup.Encode(nil)
	if err != nil {
		t.Fatalf("encode startup: %v", err)
	}
	if _, err := clientSide.Write(buf); err != nil {
		t.Fatalf("write startup: %v", err)
	}
	for {
		msg, err := frontend.Receive()
		if err != nil {
			t.Fatalf("receive during startup: %v", err)
		}
		if _, ok := msg.(*pgproto3.ReadyForQuery); ok {
			break
		}
	}

	send(t, frontend, &pgproto3.Parse{Name: "stmt1", Query: "BEGIN"})
	send(t, frontend, &pgproto3.Bind{DestinationPortal: "p1", PreparedStatement: "stmt1"})
	send(t, frontend, &pgproto3.Execute{Portal: "p1"})
	send(t, frontend, &pgproto3.Sync{})

	wantSeq := []string{"ParseComplete", "BindComplete", "CommandComplete", "ReadyForQuery"}
	for _, want := range wantSeq {
		msg, err := frontend.Receive()
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if got := backendTypeName(msg); got != want {
			t.Fatalf("got %s, want %s (sequence so far expected %v)", got, want, wantSeq)
		}
	}

	clientSide.Close()
	<-runDone
}

func backendTypeName(msg pgproto3.BackendMessage) string {
	switch msg.(type) {
	case *pgproto3.ParseComplete:
		return "ParseComplete"
	case *pgproto3.BindComplete:
		return "BindComplete"
	case *pgproto3.CommandComplete:
		return "CommandComplete"
	case *pgproto3.ReadyForQuery:
		return "ReadyForQuery"
	case *pgproto3.NoData:
		return "NoData"
	case *pgproto3.ErrorResponse:
		return "ErrorResponse"
	default:
		return "unknown"
	}
}

func send(t *testing.T, frontend *pgproto3.Frontend, msg pgproto3.FrontendMessage) {
	t.Helper()
	frontend.Send(msg)
	if err := frontend.Flush(); err != nil {
		t.Fatalf("Flush(%T): %v", msg, err)
	}
}

// expectReply reads the next backend message the frontend receives and
// fails the test unless its type matches want.
func expectReply(t *testing.T, frontend *pgproto3.Frontend, want pgproto3.BackendMessage) pgproto3.BackendMessage {
	t.Helper()
	msg, err := frontend.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	gotType := typeName(msg)
	wantType := typeName(want)
	if gotType != wantType {
		t.Fatalf("got %s, want %s", gotType, wantType)
	}
	return msg
}

func typeName(msg any) string {
	switch msg.(type) {
	case *pgproto3.ParseComplete:
		return "ParseComplete"
	case *pgproto3.BindComplete:
		return "BindComplete"
	case *pgproto3.NoData:
		return "NoData"
	case *pgproto3.CommandComplete:
		return "CommandComplete"
	case *pgproto3.ErrorResponse:
		return "ErrorResponse"
	default:
		return "unknown"
	}
}
