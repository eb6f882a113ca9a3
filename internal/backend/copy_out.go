package backend

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mevdschee/irispgwire/internal/metrics"
)

// CopyOutStream streams a COPY ... TO STDOUT result row by row so the
// session layer can emit bounded CopyData frames instead of buffering the
// whole result set (spec §4.3 CopyOutStream).
type CopyOutStream struct {
	conn *sql.Conn
	rows *sql.Rows
	cols []string
}

// NewCopyOutStream runs the COPY's source query (either the literal table
// scan or the embedded SELECT) and returns a stream ready for Next.
func NewCopyOutStream(ctx context.Context, pool *Pool, table string, columns []string, query string) (*CopyOutStream, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, &GatewayError{State: ConnectionFailure, Message: err.Error()}
	}

	sqlText := query
	if sqlText == "" {
		sqlText = "SELECT "
		if len(columns) == 0 {
			sqlText += "*"
		} else {
			sqlText += strings.Join(columns, ",")
		}
		sqlText += " FROM " + table
	}

	rows, err := conn.QueryContext(ctx, sqlText)
	if err != nil {
		conn.Close()
		state, msg := classifyIRISError(err)
		return nil, &GatewayError{State: state, Message: msg}
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		conn.Close()
		return nil, &GatewayError{State: InternalError, Message: err.Error()}
	}
	return &CopyOutStream{conn: conn, rows: rows, cols: cols}, nil
}

// Next scans the next row into the driver's native Go values; the session
// layer renders each one as text when it builds the COPY TEXT/CSV line.
// It returns (nil, false, nil) once the result set is exhausted.
func (s *CopyOutStream) Next() ([]any, bool, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			state, msg := classifyIRISError(err)
			return nil, false, &GatewayError{State: state, Message: msg}
		}
		return nil, false, nil
	}
	values := make([]any, len(s.cols))
	ptrs := make([]any, len(s.cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return nil, false, &GatewayError{State: InternalError, Message: err.Error()}
	}
	metrics.CopyRows.WithLabelValues("out").Inc()
	return values, true, nil
}

// Columns reports the result set's column names, in order.
func (s *CopyOutStream) Columns() []string { return s.cols }

// Close releases the result set and connection.
func (s *CopyOutStream) Close() error {
	s.rows.Close()
	return s.conn.Close()
}
