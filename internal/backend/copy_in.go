package backend

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mevdschee/irispgwire/internal/metrics"
)

// CopyInSink dispatches COPY ... FROM STDIN rows as batched prepared-statement
// INSERTs inside one transaction, grounded on
// mevdschee-tqdbproxy/writebatch.Manager's executePreparedBatch/
// executeTransactionBatch: one prepared statement reused per row within a
// transaction, rather than building ever-larger multi-row VALUES lists (spec
// §4.3 CopyInSink, §6 copy_batch_size).
type CopyInSink struct {
	conn      *sql.Conn
	tx        *sql.Tx
	stmt      *sql.Stmt
	table     string
	columns   []string
	batchSize int
	buffered  int
	rowCount  int64
}

// NewCopyInSink opens a transaction against the pool and prepares the
// INSERT statement for table/columns. IRIS's positional placeholder is
// '?' (see internal/translator normalizePlaceholders and the IRIS
// placeholder decision in DESIGN.md).
func NewCopyInSink(ctx context.Context, pool *Pool, table string, columns []string, batchSize int) (*CopyInSink, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, &GatewayError{State: ConnectionFailure, Message: err.Error()}
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		conn.Close()
		return nil, &GatewayError{State: InternalError, Message: err.Error()}
	}

	insertSQL := buildInsertSQL(table, columns)
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		tx.Rollback()
		conn.Close()
		state, msg := classifyIRISError(err)
		return nil, &GatewayError{State: state, Message: msg}
	}

	if batchSize <= 0 {
		batchSize = 100
	}
	return &CopyInSink{conn: conn, tx: tx, stmt: stmt, table: table, columns: columns, batchSize: batchSize}, nil
}

func buildInsertSQL(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	if len(columns) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(columns, ","))
		b.WriteString(")")
	}
	b.WriteString(" VALUES (")
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	if len(columns) == 0 {
		// Column count unknown until the first row arrives; callers should
		// always supply columns for COPY IN (spec §4.2 parseCopyIn records
		// nil only when the client omitted an explicit column list, meaning
		// "all columns" — the session layer resolves that via catalog
		// lookup before calling NewCopyInSink).
		b.WriteString(")")
		return b.String()
	}
	b.WriteString(strings.Join(placeholders, ","))
	b.WriteString(")")
	return b.String()
}

// WriteRow executes one buffered row through the prepared statement. Rows
// are executed immediately (the transaction itself is the batching unit;
// batchSize governs how often progress is reported, not when rows commit).
func (s *CopyInSink) WriteRow(ctx context.Context, values []any) error {
	if _, err := s.stmt.ExecContext(ctx, values...); err != nil {
		state, msg := classifyIRISError(err)
		return &GatewayError{State: state, Message: msg}
	}
	s.rowCount++
	s.buffered++
	if s.buffered >= s.batchSize {
		metrics.CopyRows.WithLabelValues("in").Add(float64(s.buffered))
		s.buffered = 0
	}
	return nil
}

// Commit finalizes the COPY, committing the transaction and returning the
// total row count (spec §4.3: CommandComplete tag is "COPY <rowcount>").
func (s *CopyInSink) Commit(ctx context.Context) (int64, error) {
	if s.buffered > 0 {
		metrics.CopyRows.WithLabelValues("in").Add(float64(s.buffered))
		s.buffered = 0
	}
	s.stmt.Close()
	defer s.conn.Close()
	if err := s.tx.Commit(); err != nil {
		state, msg := classifyIRISError(err)
		return s.rowCount, &GatewayError{State: state, Message: msg}
	}
	return s.rowCount, nil
}

// Abort rolls back the transaction (client sent CopyFail, or the
// connection dropped mid-COPY).
func (s *CopyInSink) Abort() error {
	s.stmt.Close()
	defer s.conn.Close()
	return s.tx.Rollback()
}
