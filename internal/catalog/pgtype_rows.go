package catalog

// pgTypeRows is the closed set of built-in pg_type rows the gateway reports
// (spec §6); IRIS has no equivalent relation to source these from, so they
// are fixed data matching real PostgreSQL's pg_type for the OIDs the
// gateway actually emits in RowDescription (see codec.OIDForIRISType).
var pgTypeRows = []Row{
	{"oid": uint32(16), "typname": "bool", "typlen": int16(1)},
	{"oid": uint32(17), "typname": "bytea", "typlen": int16(-1)},
	{"oid": uint32(18), "typname": "char", "typlen": int16(1)},
	{"oid": uint32(20), "typname": "int8", "typlen": int16(8)},
	{"oid": uint32(21), "typname": "int2", "typlen": int16(2)},
	{"oid": uint32(23), "typname": "int4", "typlen": int16(4)},
	{"oid": uint32(25), "typname": "text", "typlen": int16(-1)},
	{"oid": uint32(114), "typname": "json", "typlen": int16(-1)},
	{"oid": uint32(700), "typname": "float4", "typlen": int16(4)},
	{"oid": uint32(701), "typname": "float8", "typlen": int16(8)},
	{"oid": uint32(1042), "typname": "bpchar", "typlen": int16(-1)},
	{"oid": uint32(1043), "typname": "varchar", "typlen": int16(-1)},
	{"oid": uint32(1082), "typname": "date", "typlen": int16(4)},
	{"oid": uint32(1083), "typname": "time", "typlen": int16(8)},
	{"oid": uint32(1114), "typname": "timestamp", "typlen": int16(8)},
	{"oid": uint32(1184), "typname": "timestamptz", "typlen": int16(8)},
	{"oid": uint32(1700), "typname": "numeric", "typlen": int16(-1)},
	{"oid": uint32(2950), "typname": "uuid", "typlen": int16(16)},
	{"oid": uint32(3802), "typname": "jsonb", "typlen": int16(-1)},
}

// PGTypeRows returns the static pg_type rows, optionally appending a vector
// pseudo-type row when the deployment configured a vector OID.
func PGTypeRows(vectorOID uint32) []Row {
	rows := make([]Row, len(pgTypeRows))
	copy(rows, pgTypeRows)
	if vectorOID != 0 {
		rows = append(rows, Row{"oid": vectorOID, "typname": "vector", "typlen": int16(-1)})
	}
	return rows
}
