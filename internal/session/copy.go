package session

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/irispgwire/internal/backend"
	"github.com/mevdschee/irispgwire/internal/translator"
)

// runCopyIn implements spec §4.3/§4.4's COPY ... FROM STDIN sub-state: drive
// the client through CopyInResponse/CopyData*/CopyDone (or CopyFail) into a
// single backend.CopyInSink transaction, grounded on
// mevdschee-tqdbproxy/writebatch.Manager's one-prepared-statement-per-row
// batching.
func (s *Session) runCopyIn(ctx context.Context, result *translator.TranslationResult) bool {
	cp := result.Copy
	if cp.Options.Format == "BINARY" {
		return s.reportGatewayError("0A000", "COPY BINARY is not supported")
	}

	columns := cp.Columns
	if columns == nil {
		cols, err := s.resolveCopyColumns(ctx, cp.Table)
		if err != nil {
			return s.reportGatewayError("42P01", err.Error())
		}
		columns = cols
	}

	sink, err := backend.NewCopyInSink(ctx, s.cfg.Pool, cp.Table, columns, s.cfg.CopyBatchSize)
	if err != nil {
		return s.reportExecError(err)
	}

	if !s.sendSimple(&pgproto3.CopyInResponse{OverallFormat: 0, ColumnFormats: make([]int16, len(columns))}) {
		sink.Abort()
		return false
	}

	s.state.Store(CopyInBusy)

	var buf []byte
	for {
		if s.cancelPending() {
			sink.Abort()
			return s.reportGatewayError("57014", "canceling statement due to user request")
		}
		msg, err := s.conn.Receive()
		if err != nil {
			sink.Abort()
			return false
		}
		switch m := msg.(type) {
		case *pgproto3.CopyData:
			var lines [][]byte
			buf, lines = appendAndSplitLines(buf, m.Data)
			for _, line := range lines {
				if err := sink.WriteRow(ctx, parseCopyLine(line, cp.Options)); err != nil {
					sink.Abort()
					return s.reportExecError(err)
				}
			}
		case *pgproto3.CopyDone:
			if len(bytes.TrimSpace(buf)) > 0 {
				if err := sink.WriteRow(ctx, parseCopyLine(buf, cp.Options)); err != nil {
					sink.Abort()
					return s.reportExecError(err)
				}
			}
			n, err := sink.Commit(ctx)
			if err != nil {
				return s.reportExecError(err)
			}
			return s.sendCommandComplete(fmt.Sprintf("COPY %d", n))
		case *pgproto3.CopyFail:
			sink.Abort()
			return s.reportGatewayError("57014", fmt.Sprintf("COPY aborted by client: %s", m.Message))
		default:
			sink.Abort()
			return s.reportGatewayError("08P01", fmt.Sprintf("unexpected message %T during COPY IN", m))
		}
	}
}

// runCopyOut implements spec §4.3/§4.4's COPY ... TO STDOUT sub-state,
// streaming CopyData frames directly from backend.CopyOutStream rather than
// buffering the whole result.
func (s *Session) runCopyOut(ctx context.Context, result *translator.TranslationResult) bool {
	cp := result.Copy
	if cp.Options.Format == "BINARY" {
		return s.reportGatewayError("0A000", "COPY BINARY is not supported")
	}

	stream, err := backend.NewCopyOutStream(ctx, s.cfg.Pool, cp.Table, cp.Columns, cp.Query)
	if err != nil {
		return s.reportExecError(err)
	}
	defer stream.Close()

	if !s.sendSimple(&pgproto3.CopyOutResponse{OverallFormat: 0, ColumnFormats: make([]int16, len(stream.Columns()))}) {
		return false
	}

	s.state.Store(CopyOutBusy)

	var rowCount int64
	for {
		if s.cancelPending() {
			return s.reportGatewayError("57014", "canceling statement due to user request")
		}
		values, ok, err := stream.Next()
		if err != nil {
			return s.reportExecError(err)
		}
		if !ok {
			break
		}
		if !s.sendSimple(&pgproto3.CopyData{Data: encodeCopyRow(values, cp.Options)}) {
			return false
		}
		rowCount++
	}
	if !s.sendSimple(&pgproto3.CopyDone{}) {
		return false
	}
	return s.sendCommandComplete(fmt.Sprintf("COPY %d", rowCount))
}

// resolveCopyColumns looks up a table's column names in declaration order
// when the client's COPY statement omitted an explicit column list (spec
// §4.2 parseCopyIn: nil Columns means "all columns").
func (s *Session) resolveCopyColumns(ctx context.Context, table string) ([]string, error) {
	conn, err := s.cfg.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	schema, name := splitTableRef(table)
	q := "SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_NAME = ?"
	args := []any{name}
	if schema != "" {
		q += " AND TABLE_SCHEMA = ?"
		args = append(args, schema)
	}
	q += " ORDER BY ORDINAL_POSITION"

	rows, err := conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q has no columns or does not exist", table)
	}
	return cols, nil
}

func splitTableRef(table string) (schema, name string) {
	for i := 0; i < len(table); i++ {
		if table[i] == '.' {
			return trimIdentQuotes(table[:i]), trimIdentQuotes(table[i+1:])
		}
	}
	return "", trimIdentQuotes(table)
}

func trimIdentQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// appendAndSplitLines appends data to buf and returns the complete
// newline-terminated lines found (CRLF-tolerant), plus whatever partial
// line remains buffered for the next CopyData frame.
func appendAndSplitLines(buf, data []byte) ([]byte, [][]byte) {
	buf = append(buf, data...)
	var lines [][]byte
	start := 0
	for i := 0; i < len(buf); i++ {
		if buf[i] == '\n' {
			line := bytes.TrimSuffix(buf[start:i], []byte("\r"))
			lines = append(lines, append([]byte(nil), line...))
			start = i + 1
		}
	}
	rest := append([]byte(nil), buf[start:]...)
	return rest, lines
}

func parseCopyLine(line []byte, opts translator.CopyOptions) []any {
	if opts.Format == "CSV" {
		return parseCopyCSVLine(line, opts)
	}
	fields := bytes.Split(line, []byte{opts.Delimiter})
	out := make([]any, len(fields))
	for i, f := range fields {
		if opts.Null != "" && string(f) == opts.Null {
			out[i] = nil
			continue
		}
		out[i] = string(unescapeCopyText(f))
	}
	return out
}

func unescapeCopyText(f []byte) []byte {
	if !bytes.ContainsRune(f, '\\') {
		return f
	}
	var b bytes.Buffer
	for i := 0; i < len(f); i++ {
		if f[i] == '\\' && i+1 < len(f) {
			i++
			switch f[i] {
			case 't':
				b.WriteByte('\t')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(f[i])
			}
			continue
		}
		b.WriteByte(f[i])
	}
	return b.Bytes()
}

func parseCopyCSVLine(line []byte, opts translator.CopyOptions) []any {
	r := csv.NewReader(bytes.NewReader(line))
	r.Comma = rune(opts.Delimiter)
	rec, err := r.Read()
	if err != nil {
		return nil
	}
	out := make([]any, len(rec))
	for i, v := range rec {
		if v == opts.Null {
			out[i] = nil
		} else {
			out[i] = v
		}
	}
	return out
}

func encodeCopyRow(values []any, opts translator.CopyOptions) []byte {
	if opts.Format == "CSV" {
		return encodeCopyCSVRow(values, opts)
	}
	return encodeCopyTextRow(values, opts)
}

func encodeCopyTextRow(values []any, opts translator.CopyOptions) []byte {
	var b bytes.Buffer
	for i, v := range values {
		if i > 0 {
			b.WriteByte(opts.Delimiter)
		}
		if v == nil {
			b.WriteString(opts.Null)
			continue
		}
		b.Write(escapeCopyText(textEncode(v), opts.Delimiter))
	}
	b.WriteByte('\n')
	return b.Bytes()
}

func escapeCopyText(v []byte, delim byte) []byte {
	var b bytes.Buffer
	for _, c := range v {
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case delim:
			b.WriteByte('\\')
			b.WriteByte(delim)
		default:
			b.WriteByte(c)
		}
	}
	return b.Bytes()
}

func encodeCopyCSVRow(values []any, opts translator.CopyOptions) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = rune(opts.Delimiter)
	rec := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			rec[i] = opts.Null
			continue
		}
		rec[i] = string(textEncode(v))
	}
	_ = w.Write(rec)
	w.Flush()
	return buf.Bytes()
}
