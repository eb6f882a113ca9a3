package session

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/irispgwire/internal/auth"
	"github.com/mevdschee/irispgwire/internal/backend"
	"github.com/mevdschee/irispgwire/internal/catalog"
	"github.com/mevdschee/irispgwire/internal/codec"
	"github.com/mevdschee/irispgwire/internal/metrics"
)

// serverVersion is reported via ParameterStatus to satisfy clients that
// gate feature use on it (spec §4.4 AuthPending ParameterStatus list).
const serverVersion = "14.9 (irispgwire)"

// Config bundles the fixed, session-independent dependencies a Listener
// hands to every new Session.
type Config struct {
	Auth             auth.Strategy
	Executor         *backend.Executor
	Pool             *backend.Pool
	OIDCache         *catalog.OIDCache
	DBName           string
	MaxFrameSize     int
	VectorOID        uint32
	LegacyPercentS   bool
	AuthTimeout      time.Duration
	IdleTimeout      time.Duration
	StatementTimeout time.Duration
	CopyBatchSize    int
	HighWaterMark    int
	LowWaterMark     int
}

// Session is one client connection's execution context (spec §4.4). Exactly
// one goroutine drives Run; it is not safe to call any other method
// concurrently with Run except Cancel and Terminate.
type Session struct {
	cfg  Config
	conn *codec.Conn

	state   atomicState
	txState TxStatus

	processID uint32
	secretKey uint32
	user      string
	database  string

	prepared map[string]*PreparedStatement
	portals  map[string]*Portal

	// extendedFailed suppresses Parse/Bind/Describe/Execute/Close processing
	// after one of them errors, until the next Sync (spec §4.4 Extended
	// Query error recovery) — mirrors the Simple Query batch's error
	// suppression rule at the sub-protocol level the wire format actually
	// requires it for.
	extendedFailed bool

	cancelRequested atomic.Bool

	registry CancelRegistry
}

// CancelRegistry is the subset of the listener's registry a Session needs
// to register/unregister itself (spec §4.5). A narrow interface here keeps
// internal/session independent of internal/listener.
type CancelRegistry interface {
	Register(pid, secret uint32, s *Session)
	Unregister(pid, secret uint32)
	Cancel(pid, secret uint32) bool
}

// New wraps an accepted connection in a Session. Run must be called to
// actually drive it.
func New(conn *codec.Conn, cfg Config, registry CancelRegistry) *Session {
	return &Session{
		cfg:      cfg,
		conn:     conn,
		prepared: make(map[string]*PreparedStatement),
		portals:  make(map[string]*Portal),
		registry: registry,
	}
}

// Cancel marks this session's current statement for cooperative
// cancellation (spec §4.4 Cancellation, §5 Cancellation semantics). It may
// be called from the Listener's cancellation-registry goroutine.
func (s *Session) Cancel() { s.cancelRequested.Store(true) }

// cancelPending consumes the cancel flag, reporting whether a cancel was
// requested since the last check.
func (s *Session) cancelPending() bool { return s.cancelRequested.Swap(false) }

// CancelPending exposes cancelPending to other packages' tests (notably
// internal/listener's registry tests), without letting production code
// outside this package consume the flag.
func (s *Session) CancelPending() bool { return s.cancelPending() }

// Terminate sends a courtesy ErrorResponse (e.g. admin shutdown, 57P01) and
// forcibly closes the underlying connection. It may be called from the
// Listener's shutdown goroutine concurrently with Run; the resulting read/
// write errors on the connection unwind Run's dispatch loop on its own
// goroutine (spec §4.5 graceful shutdown).
func (s *Session) Terminate(errResp *pgproto3.ErrorResponse) {
	if buf, err := errResp.Encode(nil); err == nil {
		_ = s.conn.Send(buf)
	}
	s.conn.Close()
}

// Run drives the session to completion: startup, auth, then ReadyForQuery
// dispatch until Terminating. It always closes the underlying connection
// before returning.
func (s *Session) Run(ctx context.Context) {
	defer s.conn.Close()
	defer s.closePortals()
	metrics.SessionsActive.Inc()
	defer metrics.SessionsActive.Dec()

	s.state.Store(StartupPending)
	if err := s.runStartup(ctx); err != nil {
		log.Printf("[Session] startup failed: %v", err)
		return
	}
	if s.state.Load() == Terminating {
		return
	}

	defer func() {
		if s.registry != nil {
			s.registry.Unregister(s.processID, s.secretKey)
		}
	}()

	s.state.Store(ReadyForQuery)
	s.txState = TxIdle

	if err := s.sendReadyForQuery(); err != nil {
		return
	}
	for {
		readyForQuery, err := s.dispatchNext(ctx)
		if err != nil {
			return
		}
		if s.state.Load() == Terminating {
			return
		}
		if readyForQuery {
			if err := s.sendReadyForQuery(); err != nil {
				return
			}
		}
	}
}

// closePortals releases every still-open portal's IRIS resources when the
// session ends without an explicit Close for each (client disconnect,
// Terminate, or transport failure).
func (s *Session) closePortals() {
	for _, p := range s.portals {
		p.Close()
	}
}

func (s *Session) sendReadyForQuery() error {
	msg := &pgproto3.ReadyForQuery{TxStatus: byte(s.txState)}
	buf, err := msg.Encode(nil)
	if err != nil {
		return err
	}
	return s.conn.Send(buf)
}

// dispatchNext reads one frontend message and routes it to the Simple Query
// or Extended Query sub-state (spec §4.4). It reports whether a
// ReadyForQuery should now be sent: always true after a Simple Query's
// batch completes, but only after a Sync for the Extended Query protocol —
// Parse/Bind/Describe/Execute/Close/Flush leave the session "busy" so a
// pipelined client gets exactly one ReadyForQuery per Sync, not one per
// message (spec §4.4 "do NOT emit ReadyForQuery until Sync").
func (s *Session) dispatchNext(ctx context.Context) (readyForQuery bool, err error) {
	msg, err := s.conn.Receive()
	if err != nil {
		return false, err
	}
	if limit := s.conn.MaxFrameSize(); limit > 0 {
		size := 0
		switch m := msg.(type) {
		case *pgproto3.Query:
			size = len(m.String)
		case *pgproto3.Parse:
			size = len(m.Query)
		}
		if size > limit {
			return false, s.protocolViolation(fmt.Sprintf("message of %d bytes exceeds the %d-byte frame limit", size, limit))
		}
	}
	switch m := msg.(type) {
	case *pgproto3.Query:
		s.state.Store(SimpleQueryBusy)
		s.runSimpleQuery(ctx, m.String)
		s.state.Store(ReadyForQuery)
		return true, nil
	case *pgproto3.Parse, *pgproto3.Bind, *pgproto3.Describe, *pgproto3.Execute,
		*pgproto3.Close, *pgproto3.Sync, *pgproto3.Flush:
		s.state.Store(ExtendedBusy)
		err := s.runExtendedQuery(ctx, m)
		_, isSync := m.(*pgproto3.Sync)
		s.state.Store(ReadyForQuery)
		return isSync, err
	case *pgproto3.Terminate:
		s.state.Store(Terminating)
		return false, nil
	default:
		err := s.protocolViolation(fmt.Sprintf("unexpected message %T in ReadyForQuery", m))
		return false, err
	}
}

func (s *Session) protocolViolation(detail string) error {
	errResp := &pgproto3.ErrorResponse{
		Severity: "FATAL",
		Code:     "08P01",
		Message:  detail,
	}
	buf, err := errResp.Encode(nil)
	if err == nil {
		_ = s.conn.Send(buf)
	}
	s.state.Store(Terminating)
	return fmt.Errorf("protocol violation: %s", detail)
}

// sendError writes a non-fatal ErrorResponse (the caller decides whether to
// move txState to Failed).
func (s *Session) sendError(code, message string) error {
	errResp := &pgproto3.ErrorResponse{Severity: "ERROR", Code: code, Message: message}
	buf, err := errResp.Encode(nil)
	if err != nil {
		return err
	}
	return s.conn.Send(buf)
}

// sendWarning writes a NoticeResponse at WARNING severity — used where
// PostgreSQL itself warns but still completes the command (e.g. BEGIN
// issued inside an already-open transaction).
func (s *Session) sendWarning(code, message string) error {
	notice := &pgproto3.NoticeResponse{Severity: "WARNING", Code: code, Message: message}
	buf, err := notice.Encode(nil)
	if err != nil {
		return err
	}
	return s.conn.Send(buf)
}
