package session

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"

	"github.com/mevdschee/irispgwire/internal/backend"
	"github.com/mevdschee/irispgwire/internal/config"
	"github.com/mevdschee/irispgwire/internal/translator"
)

// mockTxDriver is a minimal database/sql/driver mock, same shape as
// mevdschee-tqdbproxy/clients/go/postgres's MockDriver, used to exercise
// execTransactionVerb's ExecuteCommand calls without a real IRIS backend.
type mockTxDriver struct{ execCount int }

func (d *mockTxDriver) Open(name string) (driver.Conn, error) { return &mockTxConn{d: d}, nil }

type mockTxConn struct{ d *mockTxDriver }

func (c *mockTxConn) Prepare(query string) (driver.Stmt, error) { return &mockTxStmt{c: c}, nil }
func (c *mockTxConn) Close() error                              { return nil }
func (c *mockTxConn) Begin() (driver.Tx, error)                 { return nil, nil }

type mockTxStmt struct{ c *mockTxConn }

func (s *mockTxStmt) Close() error  { return nil }
func (s *mockTxStmt) NumInput() int { return -1 }
func (s *mockTxStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.c.d.execCount++
	return driver.RowsAffected(0), nil
}
func (s *mockTxStmt) Query(args []driver.Value) (driver.Rows, error) { return &mockTxRows{}, nil }

type mockTxRows struct{}

func (r *mockTxRows) Columns() []string              { return []string{} }
func (r *mockTxRows) Close() error                   { return nil }
func (r *mockTxRows) Next(dest []driver.Value) error { return nil }

func newTestSession(t *testing.T, driverName string) (*Session, *mockTxDriver) {
	t.Helper()
	mock := &mockTxDriver{}
	sql.Register(driverName, mock)
	pool, err := backend.Open(config.PoolConfig{Size: 1}, driverName, "dsn")
	if err != nil {
		t.Fatalf("backend.Open: %v", err)
	}
	s := &Session{cfg: Config{Executor: backend.NewExecutor(pool, false)}}
	return s, mock
}

func tx(verb translator.TxVerb, sqlText string) *translator.TransactionCommand {
	return &translator.TransactionCommand{Verb: verb, SQL: sqlText}
}

func TestExecTransactionVerb_BeginFromIdle(t *testing.T) {
	s, mock := newTestSession(t, "irispgwire-mock-begin-idle")
	s.txState = TxIdle

	tag, warnCode, _, err := s.execTransactionVerb(context.Background(), tx(translator.TxBegin, "BEGIN"))
	if err != nil {
		t.Fatalf("execTransactionVerb: %v", err)
	}
	if tag != "BEGIN" || warnCode != "" {
		t.Errorf("got tag=%q warnCode=%q, want tag=BEGIN warnCode=empty", tag, warnCode)
	}
	if s.txState != TxInTx {
		t.Errorf("txState = %v, want TxInTx", s.txState)
	}
	if mock.execCount != 1 {
		t.Errorf("execCount = %d, want 1", mock.execCount)
	}
}

func TestExecTransactionVerb_BeginFromInTx_Warns(t *testing.T) {
	s, mock := newTestSession(t, "irispgwire-mock-begin-intx")
	s.txState = TxInTx

	tag, warnCode, warnMsg, err := s.execTransactionVerb(context.Background(), tx(translator.TxBegin, "BEGIN"))
	if err != nil {
		t.Fatalf("execTransactionVerb: %v", err)
	}
	if tag != "BEGIN" || warnCode != "25001" || warnMsg == "" {
		t.Errorf("got tag=%q warnCode=%q warnMsg=%q", tag, warnCode, warnMsg)
	}
	if s.txState != TxInTx {
		t.Errorf("txState = %v, want unchanged TxInTx", s.txState)
	}
	if mock.execCount != 0 {
		t.Errorf("execCount = %d, want 0 (no statement sent to IRIS)", mock.execCount)
	}
}

func TestExecTransactionVerb_BeginFromFailed_ReturnsAbortedError(t *testing.T) {
	s, _ := newTestSession(t, "irispgwire-mock-begin-failed")
	s.txState = TxFailed

	_, _, _, err := s.execTransactionVerb(context.Background(), tx(translator.TxBegin, "BEGIN"))
	gwErr, ok := err.(*backend.GatewayError)
	if !ok {
		t.Fatalf("err = %T, want *backend.GatewayError", err)
	}
	if gwErr.State != "25P02" {
		t.Errorf("State = %q, want 25P02", gwErr.State)
	}
	if s.txState != TxFailed {
		t.Errorf("txState = %v, want unchanged TxFailed", s.txState)
	}
}

func TestExecTransactionVerb_CommitWhileFailed_TagsRollback(t *testing.T) {
	s, mock := newTestSession(t, "irispgwire-mock-commit-failed")
	s.txState = TxFailed

	tag, warnCode, _, err := s.execTransactionVerb(context.Background(), tx(translator.TxCommit, "COMMIT"))
	if err != nil {
		t.Fatalf("execTransactionVerb: %v", err)
	}
	if tag != "ROLLBACK" || warnCode != "" {
		t.Errorf("got tag=%q warnCode=%q, want tag=ROLLBACK", tag, warnCode)
	}
	if s.txState != TxIdle {
		t.Errorf("txState = %v, want TxIdle", s.txState)
	}
	if mock.execCount != 0 {
		t.Errorf("execCount = %d, want 0 (a failed transaction's COMMIT never reaches IRIS)", mock.execCount)
	}
}

func TestExecTransactionVerb_CommitNormal(t *testing.T) {
	s, mock := newTestSession(t, "irispgwire-mock-commit-ok")
	s.txState = TxInTx

	tag, _, _, err := s.execTransactionVerb(context.Background(), tx(translator.TxCommit, "COMMIT"))
	if err != nil {
		t.Fatalf("execTransactionVerb: %v", err)
	}
	if tag != "COMMIT" {
		t.Errorf("tag = %q, want COMMIT", tag)
	}
	if s.txState != TxIdle {
		t.Errorf("txState = %v, want TxIdle", s.txState)
	}
	if mock.execCount != 1 {
		t.Errorf("execCount = %d, want 1", mock.execCount)
	}
}

func TestExecTransactionVerb_RollbackFromIdle_SkipsIRIS(t *testing.T) {
	s, mock := newTestSession(t, "irispgwire-mock-rollback-idle")
	s.txState = TxIdle

	tag, _, _, err := s.execTransactionVerb(context.Background(), tx(translator.TxRollback, "ROLLBACK"))
	if err != nil {
		t.Fatalf("execTransactionVerb: %v", err)
	}
	if tag != "ROLLBACK" {
		t.Errorf("tag = %q, want ROLLBACK", tag)
	}
	if mock.execCount != 0 {
		t.Errorf("execCount = %d, want 0", mock.execCount)
	}
}

func TestExecTransactionVerb_RollbackFromInTx(t *testing.T) {
	s, mock := newTestSession(t, "irispgwire-mock-rollback-intx")
	s.txState = TxInTx

	tag, _, _, err := s.execTransactionVerb(context.Background(), tx(translator.TxRollback, "ROLLBACK"))
	if err != nil {
		t.Fatalf("execTransactionVerb: %v", err)
	}
	if tag != "ROLLBACK" || s.txState != TxIdle {
		t.Errorf("tag=%q txState=%v", tag, s.txState)
	}
	if mock.execCount != 1 {
		t.Errorf("execCount = %d, want 1", mock.execCount)
	}
}

func TestExecTransactionVerb_SavepointAndRelease(t *testing.T) {
	s, _ := newTestSession(t, "irispgwire-mock-savepoint")
	s.txState = TxInTx

	tag, _, _, err := s.execTransactionVerb(context.Background(), tx(translator.TxSavepoint, "SAVEPOINT sp1"))
	if err != nil || tag != "SAVEPOINT" {
		t.Fatalf("savepoint: tag=%q err=%v", tag, err)
	}

	tag, _, _, err = s.execTransactionVerb(context.Background(), tx(translator.TxRelease, "RELEASE sp1"))
	if err != nil || tag != "RELEASE" {
		t.Fatalf("release: tag=%q err=%v", tag, err)
	}
}
