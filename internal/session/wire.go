package session

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/irispgwire/internal/backend"
	"github.com/mevdschee/irispgwire/internal/catalog"
	"github.com/mevdschee/irispgwire/internal/codec"
)

// rowDescriptionFromColumns builds a RowDescription for a DirectQuery/
// CatalogProbe result, resolving each column's PostgreSQL OID from its IRIS
// type name (spec §4.1, §6) and its wire format from the portal's
// ResultFormatCodes (spec §4.4 Bind: 0/1/N-codes convention, same as bind
// parameter formats).
func (s *Session) rowDescriptionFromColumns(cols []backend.ColumnDescription, resultFormatCodes []int16) *pgproto3.RowDescription {
	fields := make([]pgproto3.FieldDescription, len(cols))
	for i, c := range cols {
		fields[i] = pgproto3.FieldDescription{
			Name:                 []byte(c.Name),
			TableOID:             0,
			TableAttributeNumber: 0,
			DataTypeOID:          codec.OIDForIRISType(c.IRISType, s.cfg.VectorOID),
			DataTypeSize:         -1,
			TypeModifier:         -1,
			Format:               bindFormatAt(resultFormatCodes, i),
		}
	}
	return &pgproto3.RowDescription{Fields: fields}
}

// rowDescriptionFromRelation builds a RowDescription for a synthesized
// catalog relation using its fixed ColumnOrder, defaulting every column to
// text (OID 25) since the synthesized Row values are heterogeneous Go
// types formatted as text in dataRowFromRow.
func rowDescriptionFromRelation(order []string) *pgproto3.RowDescription {
	fields := make([]pgproto3.FieldDescription, len(order))
	for i, name := range order {
		fields[i] = pgproto3.FieldDescription{
			Name:         []byte(name),
			DataTypeOID:  codec.OIDText,
			DataTypeSize: -1,
			TypeModifier: -1,
			Format:       0,
		}
	}
	return &pgproto3.RowDescription{Fields: fields}
}

// dataRowFromRow renders one synthesized catalog.Row as PostgreSQL text
// wire format, in the given column order.
func dataRowFromRow(row catalog.Row, order []string) *pgproto3.DataRow {
	values := make([][]byte, len(order))
	for i, col := range order {
		values[i] = textEncode(row[col])
	}
	return &pgproto3.DataRow{Values: values}
}

// dataRowFromValues renders a DirectQuery result row (already Scan'd into Go
// values) as a DataRow, honoring each column's requested result format
// (spec §4.1, §4.4 Bind) by routing the value through the codec's pgtype.Map
// so text columns get PostgreSQL canonical text rather than Go's default
// formatting, and binary-requested columns (including VECTOR) get the
// type's actual binary encoding.
func (s *Session) dataRowFromValues(cols []backend.ColumnDescription, resultFormatCodes []int16, vals []any) *pgproto3.DataRow {
	values := make([][]byte, len(vals))
	for i, v := range vals {
		oid := codec.OIDForIRISType(cols[i].IRISType, s.cfg.VectorOID)
		format := bindFormatAt(resultFormatCodes, i)
		values[i] = s.encodeValue(oid, format, v)
	}
	return &pgproto3.DataRow{Values: values}
}

// encodeValue renders one Go value (as database/sql hands it back from Scan)
// for the wire in the given format, using the pgtype type registry so the
// bytes match what a real PostgreSQL server would send for that OID (spec
// §4.1 "ASCII, PostgreSQL canonical"). It falls back to textEncode's plain
// rendering when the registry has no codec for the OID/value combination —
// the same fallback shape decodeParam uses on the read side.
func (s *Session) encodeValue(oid uint32, format int16, v any) []byte {
	if v == nil {
		return nil
	}
	if buf, err := s.conn.TypeMap.Encode(oid, format, v, nil); err == nil {
		return buf
	}
	return textEncode(v)
}

// textEncode renders one Go value the way database/sql hands it back
// (scanned into any) as a PostgreSQL text-format field, or nil for SQL
// NULL. It is also the fallback encodeValue uses when the pgtype registry
// cannot encode a given OID/value pair.
func textEncode(v any) []byte {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		if x == nil {
			return nil
		}
		return x
	case string:
		return []byte(x)
	case bool:
		if x {
			return []byte("t")
		}
		return []byte("f")
	case fmt.Stringer:
		return []byte(x.String())
	default:
		return []byte(fmt.Sprint(x))
	}
}
