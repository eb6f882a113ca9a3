package codec

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// Vector is the in-memory representation of an IRIS/pgvector VECTOR value:
// a fixed-width slice of float32 components.
type Vector []float32

// RegisterVectorType teaches m how to encode/decode the pgvector wire
// format under oid (configured per-deployment since pgvector does not ship
// a well-known OID — spec §4.1, §6 vector OID mapping).
func RegisterVectorType(m *pgtype.Map, oid uint32) {
	if oid == 0 {
		return
	}
	m.RegisterType(&pgtype.Type{
		Name:  "vector",
		OID:   oid,
		Codec: vectorCodec{},
	})
}

type vectorCodec struct{}

func (vectorCodec) FormatSupported(format int16) bool {
	return format == pgtype.TextFormatCode || format == pgtype.BinaryFormatCode
}

func (vectorCodec) PreferredFormat() int16 { return pgtype.BinaryFormatCode }

func (c vectorCodec) PlanEncode(m *pgtype.Map, oid uint32, format int16, value any) pgtype.EncodePlan {
	if _, ok := value.(Vector); !ok {
		return nil
	}
	if format == pgtype.BinaryFormatCode {
		return vectorBinaryEncodePlan{}
	}
	return vectorTextEncodePlan{}
}

func (c vectorCodec) PlanScan(m *pgtype.Map, oid uint32, format int16, target any) pgtype.ScanPlan {
	if _, ok := target.(*Vector); !ok {
		return nil
	}
	if format == pgtype.BinaryFormatCode {
		return vectorBinaryScanPlan{}
	}
	return vectorTextScanPlan{}
}

func (c vectorCodec) DecodeDatabaseSQLValue(m *pgtype.Map, oid uint32, format int16, src []byte) (driver.Value, error) {
	v, err := c.DecodeValue(m, oid, format, src)
	if err != nil {
		return nil, err
	}
	if vec, ok := v.(Vector); ok {
		return string(mustJSON(vec)), nil
	}
	return v, nil
}

func mustJSON(v Vector) []byte {
	b, _ := v.MarshalJSON()
	return b
}

func (c vectorCodec) DecodeValue(m *pgtype.Map, oid uint32, format int16, src []byte) (any, error) {
	if src == nil {
		return nil, nil
	}
	var v Vector
	if format == pgtype.BinaryFormatCode {
		if err := (vectorBinaryScanPlan{}).Scan(src, &v); err != nil {
			return nil, err
		}
	} else {
		if err := (vectorTextScanPlan{}).Scan(src, &v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

type vectorTextEncodePlan struct{}

// Encode writes the bracketed comma-separated float form pgvector clients
// expect over text-format results, e.g. "[0.1,0.2,0.3]".
func (vectorTextEncodePlan) Encode(value any, buf []byte) ([]byte, error) {
	v, ok := value.(Vector)
	if !ok {
		return nil, fmt.Errorf("vector codec: unexpected Go type %T", value)
	}
	buf = append(buf, '[')
	for i, f := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendFloat(buf, float64(f), 'g', -1, 32)
	}
	buf = append(buf, ']')
	return buf, nil
}

type vectorBinaryEncodePlan struct{}

// Encode writes pgvector's binary wire form: uint16 dimensions, uint16
// unused (reserved, always 0), then dimensions*float32 big-endian.
func (vectorBinaryEncodePlan) Encode(value any, buf []byte) ([]byte, error) {
	v, ok := value.(Vector)
	if !ok {
		return nil, fmt.Errorf("vector codec: unexpected Go type %T", value)
	}
	header := make([]byte, 4)
	binary.BigEndian.PutUint16(header[0:2], uint16(len(v)))
	binary.BigEndian.PutUint16(header[2:4], 0)
	buf = append(buf, header...)
	for _, f := range v {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], math.Float32bits(f))
		buf = append(buf, b[:]...)
	}
	return buf, nil
}

type vectorTextScanPlan struct{}

func (vectorTextScanPlan) Scan(src []byte, dst any) error {
	out, ok := dst.(*Vector)
	if !ok {
		return fmt.Errorf("vector codec: unexpected scan target %T", dst)
	}
	s := strings.TrimSpace(string(src))
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		*out = Vector{}
		return nil
	}
	parts := strings.Split(s, ",")
	v := make(Vector, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("vector codec: invalid component %q: %w", p, err)
		}
		v[i] = float32(f)
	}
	*out = v
	return nil
}

type vectorBinaryScanPlan struct{}

func (vectorBinaryScanPlan) Scan(src []byte, dst any) error {
	out, ok := dst.(*Vector)
	if !ok {
		return fmt.Errorf("vector codec: unexpected scan target %T", dst)
	}
	if len(src) < 4 {
		return fmt.Errorf("vector codec: binary payload too short (%d bytes)", len(src))
	}
	dims := int(binary.BigEndian.Uint16(src[0:2]))
	want := 4 + dims*4
	if len(src) < want {
		return fmt.Errorf("vector codec: binary payload truncated: got %d want %d", len(src), want)
	}
	v := make(Vector, dims)
	for i := 0; i < dims; i++ {
		off := 4 + i*4
		v[i] = math.Float32frombits(binary.BigEndian.Uint32(src[off : off+4]))
	}
	*out = v
	return nil
}

// DecodeVectorParam parses a bound VECTOR parameter from either wire format,
// used by the session layer's vector-literal-as-bound-parameter inlining
// (spec §4.2 stage 4) to turn a Bind parameter into the JSON literal that
// gets spliced into the SQL text.
func DecodeVectorParam(format int16, raw []byte) (Vector, error) {
	var v Vector
	if format == 1 {
		if err := (vectorBinaryScanPlan{}).Scan(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	if err := (vectorTextScanPlan{}).Scan(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// MarshalJSON renders a Vector as a JSON array, used by the translator's
// vector-literal-as-bound-parameter inlining (spec §4.2 stage 4): the
// session layer decodes a bound parameter into a Vector and inlines this
// JSON form directly into the SQL text sent to IRIS.
func (v Vector) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return []byte(b.String()), nil
}
