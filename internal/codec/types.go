package codec

import "strings"

// PostgreSQL well-known type OIDs the gateway reports in RowDescription
// (spec §4.1, §6 catalog type mapping). These never change; they are part
// of the wire protocol's fixed type catalog.
const (
	OIDBool        = 16
	OIDBytea       = 17
	OIDChar        = 18
	OIDInt8        = 20
	OIDInt2        = 21
	OIDInt4        = 23
	OIDText        = 25
	OIDOID         = 26
	OIDJSON        = 114
	OIDFloat4      = 700
	OIDFloat8      = 701
	OIDVarchar     = 1043
	OIDBPChar      = 1042
	OIDDate        = 1082
	OIDTime        = 1083
	OIDTimestamp   = 1114
	OIDTimestampTZ = 1184
	OIDNumeric     = 1700
	OIDUUID        = 2950
	OIDJSONB       = 3802
)

// OIDForIRISType maps an IRIS/ODBC column type name (as reported by
// INFORMATION_SCHEMA.COLUMNS.DATA_TYPE) to the PostgreSQL OID clients
// expect in RowDescription. vectorOID is the deployment-configured OID for
// VECTOR columns (spec §6); 0 means the gateway has no vector support
// configured, and vector columns fall back to text.
func OIDForIRISType(irisType string, vectorOID uint32) uint32 {
	switch strings.ToUpper(irisType) {
	case "BIGINT":
		return OIDInt8
	case "INTEGER", "INT":
		return OIDInt4
	case "SMALLINT", "TINYINT":
		return OIDInt2
	case "BIT", "BOOLEAN":
		return OIDBool
	case "DOUBLE", "FLOAT", "DOUBLE PRECISION":
		return OIDFloat8
	case "REAL":
		return OIDFloat4
	case "NUMERIC", "DECIMAL", "NUMBER":
		return OIDNumeric
	case "VARCHAR", "VARCHAR2":
		return OIDVarchar
	case "CHAR", "CHARACTER":
		return OIDBPChar
	case "LONGVARCHAR", "TEXT", "CLOB":
		return OIDText
	case "VARBINARY", "BINARY", "LONGVARBINARY", "BLOB":
		return OIDBytea
	case "DATE":
		return OIDDate
	case "TIME":
		return OIDTime
	case "TIMESTAMP":
		return OIDTimestamp
	case "TIMESTAMP WITH TIME ZONE", "TIMESTAMPTZ":
		return OIDTimestampTZ
	case "UUID", "GUID":
		return OIDUUID
	case "JSON":
		return OIDJSON
	case "VECTOR":
		if vectorOID != 0 {
			return vectorOID
		}
		return OIDText
	default:
		return OIDText
	}
}
