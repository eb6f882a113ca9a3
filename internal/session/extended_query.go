package session

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/irispgwire/internal/catalog"
	"github.com/mevdschee/irispgwire/internal/codec"
	"github.com/mevdschee/irispgwire/internal/metrics"
	"github.com/mevdschee/irispgwire/internal/translator"
)

// runExtendedQuery drives one frontend message through the Extended Query
// sub-state (spec §4.4 ExtendedBusy). Parse/Bind/Describe/Execute/Close are
// silently skipped once one of them has errored, until the matching Sync —
// PostgreSQL's own error-recovery contract for this sub-protocol. It
// returns a non-nil error (a protocol violation that ends the session) only
// for a message type it does not handle; a failed send just sets
// extendedFailed, and Run ends when its next send or receive fails.
func (s *Session) runExtendedQuery(ctx context.Context, msg pgproto3.FrontendMessage) error {
	switch m := msg.(type) {
	case *pgproto3.Parse:
		if !s.extendedFailed {
			s.dispatchParse(m)
		}
	case *pgproto3.Bind:
		if !s.extendedFailed {
			s.dispatchBind(ctx, m)
		}
	case *pgproto3.Describe:
		if !s.extendedFailed {
			s.dispatchDescribe(m)
		}
	case *pgproto3.Execute:
		if !s.extendedFailed {
			s.dispatchExecute(ctx, m)
		}
	case *pgproto3.Close:
		if !s.extendedFailed {
			s.dispatchClose(m)
		}
	case *pgproto3.Flush:
		// Every reply above is written to the wire as soon as it is
		// produced; there is no internal buffering left to flush.
	case *pgproto3.Sync:
		s.extendedFailed = false
	default:
		return s.protocolViolation(fmt.Sprintf("unexpected message %T in ExtendedQuery", m))
	}
	return nil
}

func (s *Session) dispatchParse(m *pgproto3.Parse) {
	result, err := s.cfg.Executor.Translate(m.Query)
	if err != nil {
		s.reportTranslateError(err)
		s.extendedFailed = true
		return
	}
	s.prepared[m.Name] = &PreparedStatement{
		Name:       m.Name,
		RawSQL:     m.Query,
		Translated: result,
		ParamOIDs:  m.ParameterOIDs,
	}
	if !s.sendSimple(&pgproto3.ParseComplete{}) {
		s.extendedFailed = true
	}
}

// dispatchBind resolves parameters (including vector-literal splicing) and
// runs the statement immediately, storing whatever it produces on the new
// Portal (spec §4.4: Bind). There is no IRIS-side "plan without running"
// step, so Bind is the earliest point real column/row metadata exists —
// Describe(Portal) and Execute both read from what Bind already ran.
func (s *Session) dispatchBind(ctx context.Context, m *pgproto3.Bind) {
	stmt, ok := s.prepared[m.PreparedStatement]
	if !ok {
		s.reportGatewayError("26000", fmt.Sprintf("prepared statement %q does not exist", m.PreparedStatement))
		s.extendedFailed = true
		return
	}

	portal := &Portal{Name: m.DestinationPortal, Statement: stmt, ResultFormatCodes: m.ResultFormatCodes}

	switch stmt.Translated.Classification {
	case translator.ClassEmpty:
		portal.kind = portalEmpty

	case translator.ClassTransactionVerb:
		tag, warnCode, warnMsg, err := s.execTransactionVerb(ctx, stmt.Translated.TxCommand)
		if err != nil {
			s.reportExecError(err)
			s.extendedFailed = true
			return
		}
		if warnCode != "" {
			_ = s.sendWarning(warnCode, warnMsg)
		}
		portal.kind = portalCommand
		portal.tag = tag

	case translator.ClassCopyIn, translator.ClassCopyOut:
		// Real PostgreSQL rejects COPY ... FROM/TO STDIN in the extended
		// query protocol outright; clients that need COPY always use
		// Simple Query for it.
		s.reportGatewayError("0A000", "COPY not supported in extended query protocol")
		s.extendedFailed = true
		return

	case translator.ClassCatalogProbe:
		rel, rows, err := catalog.Probe(ctx, s.cfg.Pool, s.cfg.OIDCache, s.cfg.VectorOID, s.cfg.DBName, stmt.RawSQL)
		if err != nil {
			s.reportGatewayError("XX000", err.Error())
			s.extendedFailed = true
			return
		}
		portal.kind = portalCatalogRows
		portal.catalogRel = rel
		portal.catalogRows = rows

	default: // ClassDirectQuery
		sqlText, args, err := s.resolveBindSQL(stmt, m)
		if err != nil {
			s.reportGatewayError("22P02", err.Error())
			s.extendedFailed = true
			return
		}
		spliced := *stmt.Translated
		spliced.SQL = sqlText
		res, tag, err := s.cfg.Executor.Execute(ctx, &spliced, args)
		if err != nil {
			s.reportExecError(err)
			s.extendedFailed = true
			return
		}
		if tag != nil {
			portal.kind = portalCommand
			portal.tag = commandTagString(tag)
		} else {
			portal.kind = portalRows
			portal.result = res
		}
	}

	if old, ok := s.portals[m.DestinationPortal]; ok {
		old.Close()
	}
	s.portals[m.DestinationPortal] = portal
	if !s.sendSimple(&pgproto3.BindComplete{}) {
		s.extendedFailed = true
	}
}

// resolveBindSQL substitutes concrete bind values into stmt.Translated.SQL:
// ordinary parameters become driver args in IRISPosition order, and
// parameters flagged by VectorParamPositions are spliced into the SQL text
// as JSON array literals instead, since IRIS's prepared-statement literal
// size cannot carry a large vector as a bound parameter (spec §4.2 stage 4,
// §4.4 Bind).
func (s *Session) resolveBindSQL(stmt *PreparedStatement, m *pgproto3.Bind) (string, []any, error) {
	tr := stmt.Translated
	vecSet := make(map[int]bool, len(tr.VectorParamPositions))
	for _, p := range tr.VectorParamPositions {
		vecSet[p] = true
	}
	offsets := translator.QuestionMarkOffsets(tr.SQL)

	type patch struct {
		offset int
		lit    string
	}
	var patches []patch
	var args []any

	for _, f := range tr.ParamFixups {
		if f.ClientParam-1 < 0 || f.ClientParam-1 >= len(m.Parameters) {
			return "", nil, fmt.Errorf("bind: parameter $%d not supplied", f.ClientParam)
		}
		raw := m.Parameters[f.ClientParam-1]
		format := bindFormatAt(m.ParameterFormatCodes, f.ClientParam-1)

		if vecSet[f.ClientParam] {
			vec, err := codec.DecodeVectorParam(format, raw)
			if err != nil {
				return "", nil, err
			}
			lit, _ := vec.MarshalJSON()
			if f.IRISPosition-1 < len(offsets) {
				patches = append(patches, patch{offset: offsets[f.IRISPosition-1], lit: string(lit)})
			}
			continue
		}

		var oid uint32
		if f.ClientParam-1 < len(stmt.ParamOIDs) {
			oid = stmt.ParamOIDs[f.ClientParam-1]
		}
		args = append(args, s.decodeParam(oid, format, raw))
	}

	sort.Slice(patches, func(i, j int) bool { return patches[i].offset > patches[j].offset })
	sqlText := tr.SQL
	for _, p := range patches {
		sqlText = sqlText[:p.offset] + p.lit + sqlText[p.offset+1:]
	}
	return sqlText, args, nil
}

func bindFormatAt(codes []int16, i int) int16 {
	switch len(codes) {
	case 0:
		return 0
	case 1:
		return codes[0]
	default:
		if i < len(codes) {
			return codes[i]
		}
		return 0
	}
}

// decodeParam turns one raw bind value into the Go type database/sql should
// receive, using the pgtype registry (which already knows every built-in
// OID plus the deployment's VECTOR OID) when the declared type is known,
// and falling back to the raw text/bytes otherwise.
func (s *Session) decodeParam(oid uint32, format int16, raw []byte) any {
	if raw == nil {
		return nil
	}
	if t, ok := s.conn.TypeMap.TypeForOID(oid); ok {
		if v, err := t.Codec.DecodeValue(s.conn.TypeMap, oid, format, raw); err == nil {
			return v
		}
	}
	if format == 1 {
		return raw
	}
	return string(raw)
}

// dispatchDescribe implements spec §4.4 Describe. Statement-level describe
// can only answer from static knowledge (parameter OIDs, and — for a
// catalog probe — its fixed column set); everything else reports NoData
// until the portal exists and Bind has actually run the statement.
func (s *Session) dispatchDescribe(m *pgproto3.Describe) {
	switch m.ObjectType {
	case 'S':
		stmt, ok := s.prepared[m.Name]
		if !ok {
			s.reportGatewayError("26000", fmt.Sprintf("prepared statement %q does not exist", m.Name))
			s.extendedFailed = true
			return
		}
		if !s.sendSimple(&pgproto3.ParameterDescription{ParameterOIDs: stmt.ParamOIDs}) {
			s.extendedFailed = true
			return
		}
		if stmt.Translated.Classification == translator.ClassCatalogProbe {
			rel := catalog.IdentifyRelation(stmt.RawSQL)
			if !s.sendSimple(rowDescriptionFromRelation(catalog.ColumnOrder(rel))) {
				s.extendedFailed = true
			}
			return
		}
		if !s.sendSimple(&pgproto3.NoData{}) {
			s.extendedFailed = true
		}

	case 'P':
		portal, ok := s.portals[m.Name]
		if !ok {
			s.reportGatewayError("34000", fmt.Sprintf("portal %q does not exist", m.Name))
			s.extendedFailed = true
			return
		}
		switch portal.kind {
		case portalRows:
			if !s.sendSimple(s.rowDescriptionFromColumns(portal.result.Columns, portal.ResultFormatCodes)) {
				s.extendedFailed = true
			}
		case portalCatalogRows:
			if !s.sendSimple(rowDescriptionFromRelation(catalog.ColumnOrder(portal.catalogRel))) {
				s.extendedFailed = true
			}
		default:
			if !s.sendSimple(&pgproto3.NoData{}) {
				s.extendedFailed = true
			}
		}

	default:
		s.extendedFailed = true
		_ = s.protocolViolation(fmt.Sprintf("unexpected Describe object type %q", m.ObjectType))
	}
}

// dispatchExecute streams a bound portal's result, up to maxRows (0 means
// unlimited), reporting PortalSuspended instead of CommandComplete when
// more rows remain (spec §4.4 Execute).
func (s *Session) dispatchExecute(ctx context.Context, m *pgproto3.Execute) {
	portal, ok := s.portals[m.Portal]
	if !ok {
		s.reportGatewayError("34000", fmt.Sprintf("portal %q does not exist", m.Portal))
		s.extendedFailed = true
		return
	}

	switch portal.kind {
	case portalEmpty:
		if !s.sendEmptyQueryResponse() {
			s.extendedFailed = true
		}
	case portalCommand:
		if !s.sendCommandComplete(portal.tag) {
			s.extendedFailed = true
		}
	case portalCatalogRows:
		if !s.executeCatalogPortal(portal, m.MaxRows) {
			s.extendedFailed = true
		}
	case portalRows:
		if !s.executeRowsPortal(ctx, portal, m.MaxRows) {
			s.extendedFailed = true
		}
	}
}

func (s *Session) executeCatalogPortal(portal *Portal, maxRows uint32) bool {
	order := catalog.ColumnOrder(portal.catalogRel)
	remaining := portal.catalogRows[portal.rowsSent:]
	limit := len(remaining)
	suspend := false
	if maxRows > 0 && uint32(limit) > maxRows {
		limit = int(maxRows)
		suspend = true
	}
	for _, row := range remaining[:limit] {
		dr := dataRowFromRow(row, order)
		buf, err := dr.Encode(nil)
		if err != nil || s.conn.Send(buf) != nil {
			return false
		}
	}
	portal.rowsSent += int64(limit)
	if suspend {
		return s.sendSimple(&pgproto3.PortalSuspended{})
	}
	return s.sendCommandComplete(fmt.Sprintf("SELECT %d", portal.rowsSent))
}

// executeRowsPortal streams up to maxRows rows from the portal's still-open
// Rows cursor. When the loop stops because maxRows was reached rather than
// because Rows was exhausted, it always replies PortalSuspended — exactly
// what PostgreSQL itself does when a fetch happens to end precisely at the
// row-count boundary, deferring the "no more rows" determination to the
// client's next Execute on the same portal rather than peeking ahead (a
// peek would consume and lose the next row, since database/sql's Rows has
// no way to push a row back after Next()).
func (s *Session) executeRowsPortal(ctx context.Context, portal *Portal, maxRows uint32) bool {
	rows := portal.result.Rows
	cols, _ := rows.Columns()
	scanDest := make([]any, len(cols))
	scanPtrs := make([]any, len(cols))
	for i := range scanDest {
		scanPtrs[i] = &scanDest[i]
	}

	var sentThisCall uint32
	exhausted := false
	for maxRows == 0 || sentThisCall < maxRows {
		if s.cancelPending() {
			return s.reportGatewayError("57014", "canceling statement due to user request")
		}
		if !rows.Next() {
			exhausted = true
			break
		}
		if err := rows.Scan(scanPtrs...); err != nil {
			return s.reportGatewayError("XX000", err.Error())
		}
		dr := s.dataRowFromValues(portal.result.Columns, portal.ResultFormatCodes, scanDest)
		buf, err := dr.Encode(nil)
		if err != nil || s.conn.Send(buf) != nil {
			return false
		}
		portal.rowsSent++
		sentThisCall++
	}
	if err := rows.Err(); err != nil {
		return s.reportExecError(err)
	}
	if !exhausted && maxRows > 0 && sentThisCall == maxRows {
		return s.sendSimple(&pgproto3.PortalSuspended{})
	}
	metrics.QueryTotal.WithLabelValues("direct_query", "ok").Inc()
	return s.sendCommandComplete(fmt.Sprintf("SELECT %d", portal.rowsSent))
}

func (s *Session) dispatchClose(m *pgproto3.Close) {
	switch m.ObjectType {
	case 'S':
		delete(s.prepared, m.Name)
	case 'P':
		if p, ok := s.portals[m.Name]; ok {
			p.Close()
			delete(s.portals, m.Name)
		}
	}
	if !s.sendSimple(&pgproto3.CloseComplete{}) {
		s.extendedFailed = true
	}
}

// sendSimple encodes and sends any pgproto3 backend message with no further
// per-message logic attached.
func (s *Session) sendSimple(msg interface{ Encode([]byte) ([]byte, error) }) bool {
	buf, err := msg.Encode(nil)
	if err != nil {
		return false
	}
	return s.conn.Send(buf) == nil
}

