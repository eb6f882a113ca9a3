package session

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/irispgwire/internal/backend"
	"github.com/mevdschee/irispgwire/internal/catalog"
	"github.com/mevdschee/irispgwire/internal/metrics"
	"github.com/mevdschee/irispgwire/internal/translator"
)

// runSimpleQuery drives the Simple Query sub-state for one Query message
// (spec §4.4). It never returns an error for statement-level failures —
// those become an ErrorResponse on the wire and, inside an explicit
// transaction, move txState to Failed. A send failure only stops the
// batch; Run ends when its next send or receive fails.
func (s *Session) runSimpleQuery(ctx context.Context, text string) {
	stmts := translator.SplitStatements(text)
	errored := false
	for _, raw := range stmts {
		if errored {
			// Spec §4.4: "subsequent statements in the batch are skipped
			// with their own errors suppressed" once one has failed.
			continue
		}
		if !s.runOneSimpleStatement(ctx, raw) {
			errored = true
		}
	}
}

// runOneSimpleStatement executes one split statement and reports whether
// the batch should continue (false on error).
func (s *Session) runOneSimpleStatement(ctx context.Context, raw string) bool {
	result, err := s.cfg.Executor.Translate(raw)
	if err != nil {
		s.reportTranslateError(err)
		return false
	}

	switch result.Classification {
	case translator.ClassEmpty:
		return s.sendEmptyQueryResponse()

	case translator.ClassTransactionVerb:
		return s.runTransactionVerb(ctx, result)

	case translator.ClassCatalogProbe:
		return s.runCatalogProbe(ctx, raw)

	case translator.ClassCopyIn:
		return s.runCopyIn(ctx, result)

	case translator.ClassCopyOut:
		return s.runCopyOut(ctx, result)

	default: // ClassDirectQuery
		return s.runDirectQuery(ctx, result, nil)
	}
}

func (s *Session) sendEmptyQueryResponse() bool {
	buf, err := (&pgproto3.EmptyQueryResponse{}).Encode(nil)
	if err != nil {
		return false
	}
	return s.conn.Send(buf) == nil
}

// runTransactionVerb implements spec §4.4 steps 3-5, wiring
// execTransactionVerb's state transition to the Simple Query wire replies.
func (s *Session) runTransactionVerb(ctx context.Context, result *translator.TranslationResult) bool {
	tag, warnCode, warnMsg, err := s.execTransactionVerb(ctx, result.TxCommand)
	if err != nil {
		return s.reportExecError(err)
	}
	if warnCode != "" {
		_ = s.sendWarning(warnCode, warnMsg)
	}
	return s.sendCommandComplete(tag)
}

// runCatalogProbe implements spec §4.4 step 6.
func (s *Session) runCatalogProbe(ctx context.Context, raw string) bool {
	rel, rows, err := catalog.Probe(ctx, s.cfg.Pool, s.cfg.OIDCache, s.cfg.VectorOID, s.cfg.DBName, raw)
	if err != nil {
		return s.reportGatewayError("XX000", err.Error())
	}
	order := catalog.ColumnOrder(rel)
	if rd := rowDescriptionFromRelation(order); rd != nil {
		if buf, err := rd.Encode(nil); err == nil {
			if s.conn.Send(buf) != nil {
				return false
			}
		}
	}
	for _, row := range rows {
		dr := dataRowFromRow(row, order)
		buf, err := dr.Encode(nil)
		if err != nil {
			return false
		}
		if s.conn.Send(buf) != nil {
			return false
		}
	}
	return s.sendCommandComplete(fmt.Sprintf("SELECT %d", len(rows)))
}

// runDirectQuery implements spec §4.4 step 9.
func (s *Session) runDirectQuery(ctx context.Context, result *translator.TranslationResult, args []any) bool {
	metrics.QueryTotal.WithLabelValues(result.Classification.String(), "attempted").Inc()
	res, tag, err := s.cfg.Executor.Execute(ctx, result, args)
	if err != nil {
		metrics.QueryTotal.WithLabelValues(result.Classification.String(), "error").Inc()
		return s.reportExecError(err)
	}
	if tag != nil {
		metrics.QueryTotal.WithLabelValues(result.Classification.String(), "ok").Inc()
		return s.sendCommandComplete(commandTagString(tag))
	}
	defer res.Close()

	rd := s.rowDescriptionFromColumns(res.Columns, nil)
	if buf, err := rd.Encode(nil); err != nil || s.conn.Send(buf) != nil {
		return false
	}

	cols, _ := res.Rows.Columns()
	scanDest := make([]any, len(cols))
	scanPtrs := make([]any, len(cols))
	for i := range scanDest {
		scanPtrs[i] = &scanDest[i]
	}

	var rowCount int64
	for res.Rows.Next() {
		if s.cancelPending() {
			return s.reportGatewayError("57014", "canceling statement due to user request")
		}
		if err := res.Rows.Scan(scanPtrs...); err != nil {
			return s.reportGatewayError("XX000", err.Error())
		}
		dr := s.dataRowFromValues(res.Columns, nil, scanDest)
		buf, err := dr.Encode(nil)
		if err != nil {
			return false
		}
		if s.conn.Send(buf) != nil {
			return false
		}
		rowCount++
	}
	if err := res.Rows.Err(); err != nil {
		return s.reportExecError(err)
	}
	metrics.QueryTotal.WithLabelValues(result.Classification.String(), "ok").Inc()
	return s.sendCommandComplete(fmt.Sprintf("SELECT %d", rowCount))
}

func commandTagString(tag *backend.CommandTag) string {
	switch tag.Tag {
	case "INSERT":
		return fmt.Sprintf("INSERT 0 %d", tag.RowsAffected)
	case "UPDATE", "DELETE":
		return fmt.Sprintf("%s %d", tag.Tag, tag.RowsAffected)
	default:
		return tag.Tag
	}
}

func (s *Session) sendCommandComplete(tag string) bool {
	buf, err := (&pgproto3.CommandComplete{CommandTag: []byte(tag)}).Encode(nil)
	if err != nil {
		return false
	}
	return s.conn.Send(buf) == nil
}

func (s *Session) reportTranslateError(err error) bool {
	return s.reportGatewayError("42601", err.Error())
}

func (s *Session) reportExecError(err error) bool {
	if ge, ok := err.(*backend.GatewayError); ok {
		return s.reportGatewayError(string(ge.State), ge.Message)
	}
	return s.reportGatewayError("XX000", err.Error())
}

func (s *Session) reportGatewayError(code, message string) bool {
	if s.txState == TxInTx {
		s.txState = TxFailed
	}
	_ = s.sendError(code, message)
	return false
}
