package backend

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mevdschee/irispgwire/internal/translator"
)

// GatewayError carries a SQLSTATE alongside the human-readable message, so
// the session layer can fill pgproto3.ErrorResponse.Code directly.
type GatewayError struct {
	State   SQLState
	Message string
}

func (e *GatewayError) Error() string { return fmt.Sprintf("%s: %s", e.State, e.Message) }

// ColumnDescription describes one result column for RowDescription.
type ColumnDescription struct {
	Name     string
	IRISType string
}

// Result is what Execute returns for a statement that produces rows. The
// dedicated IRIS connection Rows was read from is held open until Close,
// not released back to the pool when the statement completes (spec §4.3
// Execute: a row-returning statement owns its connection for the Portal's
// lifetime).
type Result struct {
	Columns []ColumnDescription
	Rows    *sql.Rows
	conn    *sql.Conn
}

// Close releases Rows and returns the underlying connection to the pool.
// Callers must call Close exactly once instead of closing Rows directly —
// closing the *sql.Conn before Rows is done reading blocks until Rows
// finishes, so the two must be closed together in this order.
func (r *Result) Close() error {
	r.Rows.Close()
	return r.conn.Close()
}

// CommandTag is what Execute returns for a statement with no result set
// (INSERT/UPDATE/DELETE and friends), mirroring PostgreSQL's CommandComplete tag.
type CommandTag struct {
	Tag          string
	RowsAffected int64
}

// Executor ties the translator and the connection pool together for
// direct statements (spec §4.3 execute). Catalog synthesis lives in
// internal/catalog.Probe, COPY in NewCopyInSink/NewCopyOutStream, and
// cancellation in the session's cancel flag; Executor has no methods for
// those.
type Executor struct {
	pool          *Pool
	legacyPercentS bool
}

func NewExecutor(pool *Pool, legacyPercentS bool) *Executor {
	return &Executor{pool: pool, legacyPercentS: legacyPercentS}
}

// Translate exposes the translator so the session layer can classify a
// statement once and decide which Executor method to call.
func (e *Executor) Translate(sql string) (*translator.TranslationResult, error) {
	return translator.Translate(sql, translator.Options{LegacyPercentS: e.legacyPercentS})
}

// Execute runs a translated DirectQuery or CatalogProbe pass-through
// statement against IRIS and returns either rows or a command tag.
func (e *Executor) Execute(ctx context.Context, result *translator.TranslationResult, args []any) (*Result, *CommandTag, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, &GatewayError{State: ConnectionFailure, Message: err.Error()}
	}

	rows, err := conn.QueryContext(ctx, result.SQL, args...)
	if err != nil {
		conn.Close()
		state, msg := classifyIRISError(err)
		return nil, nil, &GatewayError{State: state, Message: msg}
	}

	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		conn.Close()
		return nil, nil, &GatewayError{State: InternalError, Message: err.Error()}
	}
	if len(cols) == 0 {
		rows.Close()
		conn.Close()
		return nil, &CommandTag{Tag: commandTagFor(result.SQL)}, nil
	}

	colTypes, _ := rows.ColumnTypes()
	descs := make([]ColumnDescription, len(cols))
	for i, c := range cols {
		typeName := "VARCHAR"
		if colTypes != nil && i < len(colTypes) {
			typeName = colTypes[i].DatabaseTypeName()
		}
		descs[i] = ColumnDescription{Name: c, IRISType: typeName}
	}
	return &Result{Columns: descs, Rows: rows, conn: conn}, nil, nil
}

// ExecuteCommand runs a statement (INSERT/UPDATE/DELETE/DDL/transaction
// verb) that produces only a command tag, not a row set.
func (e *Executor) ExecuteCommand(ctx context.Context, sqlText string, args []any) (*CommandTag, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, &GatewayError{State: ConnectionFailure, Message: err.Error()}
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, sqlText, args...)
	if err != nil {
		state, msg := classifyIRISError(err)
		return nil, &GatewayError{State: state, Message: msg}
	}
	affected, _ := res.RowsAffected()
	return &CommandTag{Tag: commandTagFor(sqlText), RowsAffected: affected}, nil
}

func commandTagFor(sqlText string) string {
	// A terse heuristic is enough: the session layer only needs the verb
	// PostgreSQL clients key CommandComplete parsing on.
	for _, verb := range []string{"INSERT", "UPDATE", "DELETE", "SELECT", "CREATE", "DROP", "ALTER",
		"START TRANSACTION", "COMMIT", "ROLLBACK", "SAVEPOINT", "RELEASE"} {
		if hasPrefixFold(sqlText, verb) {
			return verb
		}
	}
	return "OK"
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		a, b := s[i], prefix[i]
		if a >= 'a' && a <= 'z' {
			a -= 'a' - 'A'
		}
		if b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}
