package session

import (
	"net"
	"testing"
	"time"

	"github.com/mevdschee/irispgwire/internal/backend"
	"github.com/mevdschee/irispgwire/internal/codec"
)

func newWireTestSession(t *testing.T) *Session {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	t.Cleanup(func() { serverSide.Close(); clientSide.Close() })
	return &Session{conn: codec.NewConn(serverSide, 1<<20, 0)}
}

func TestRowDescriptionFromColumns_HonorsResultFormatCodes(t *testing.T) {
	s := newWireTestSession(t)
	cols := []backend.ColumnDescription{{Name: "a", IRISType: "INTEGER"}, {Name: "b", IRISType: "VARCHAR"}}

	rd := s.rowDescriptionFromColumns(cols, nil)
	for i, f := range rd.Fields {
		if f.Format != 0 {
			t.Errorf("col %d: Format = %d, want 0 (nil codes defaults to text)", i, f.Format)
		}
	}

	rd = s.rowDescriptionFromColumns(cols, []int16{1})
	for i, f := range rd.Fields {
		if f.Format != 1 {
			t.Errorf("col %d: Format = %d, want 1 (single code applies to all columns)", i, f.Format)
		}
	}

	rd = s.rowDescriptionFromColumns(cols, []int16{0, 1})
	if rd.Fields[0].Format != 0 || rd.Fields[1].Format != 1 {
		t.Errorf("Format = [%d %d], want [0 1] (per-column codes)", rd.Fields[0].Format, rd.Fields[1].Format)
	}
}

func TestDataRowFromValues_BinaryFormatDiffersFromText(t *testing.T) {
	s := newWireTestSession(t)
	cols := []backend.ColumnDescription{{Name: "n", IRISType: "INTEGER"}}

	textRow := s.dataRowFromValues(cols, []int16{0}, []any{int64(258)})
	binRow := s.dataRowFromValues(cols, []int16{1}, []any{int64(258)})

	if string(textRow.Values[0]) != "258" {
		t.Errorf("text encoding = %q, want %q", textRow.Values[0], "258")
	}
	want := []byte{0x00, 0x00, 0x01, 0x02}
	if string(binRow.Values[0]) != string(want) {
		t.Errorf("binary encoding = %v, want %v (big-endian int4)", binRow.Values[0], want)
	}
}

func TestDataRowFromValues_CanonicalTimestampText(t *testing.T) {
	s := newWireTestSession(t)
	cols := []backend.ColumnDescription{{Name: "t", IRISType: "TIMESTAMP"}}
	ts := time.Date(2009, time.November, 10, 23, 0, 0, 0, time.UTC)

	row := s.dataRowFromValues(cols, nil, []any{ts})
	got := string(row.Values[0])
	if got != "2009-11-10 23:00:00" {
		t.Errorf("timestamp text = %q, want PostgreSQL canonical %q (not Go's default time.Time.String())", got, "2009-11-10 23:00:00")
	}
}

func TestDataRowFromValues_NullStaysNil(t *testing.T) {
	s := newWireTestSession(t)
	cols := []backend.ColumnDescription{{Name: "n", IRISType: "INTEGER"}}
	row := s.dataRowFromValues(cols, nil, []any{nil})
	if row.Values[0] != nil {
		t.Errorf("Values[0] = %v, want nil", row.Values[0])
	}
}

func TestEncodeValue_FallsBackToTextEncodeForUnregisteredOID(t *testing.T) {
	s := newWireTestSession(t)
	// OID 0 has no registered codec, so encodeValue must fall back to
	// textEncode rather than error out.
	got := s.encodeValue(0, 0, true)
	if string(got) != "t" {
		t.Errorf("got %q, want %q (textEncode bool fallback)", got, "t")
	}
}
