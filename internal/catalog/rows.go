package catalog

import "github.com/mevdschee/irispgwire/internal/codec"

// TableInfo and ColumnInfo are what the fetch functions in query.go extract
// from IRIS's own INFORMATION_SCHEMA (spec §4.3 execute_catalog) to feed row
// synthesis here; the synthesis functions themselves do no I/O.
type TableInfo struct {
	Schema string
	Name   string
	Kind   string // "TABLE" or "VIEW"
}

type ColumnInfo struct {
	Schema     string
	Table      string
	Name       string
	OrdinalPos int
	IRISType   string
	Nullable   bool
	MaxLength  int
}

type IndexInfo struct {
	Schema  string
	Table   string
	Name    string
	Unique  bool
	Primary bool
	Columns []string
}

// Row is a synthesized catalog row: column name -> value, in the order a
// consumer should expect (Postgres clients mostly SELECT * or a fixed
// projection from these relations, so exact column sets matter).
type Row map[string]any

// Relation identifies a closed-set catalog/information_schema target the
// gateway answers locally (spec §4.2 ClassCatalogProbe).
type Relation int

const (
	RelUnknown Relation = iota
	RelPGClass
	RelPGNamespace
	RelPGAttribute
	RelPGType
	RelPGIndex
	RelPGProc
	RelPGDescription
	RelInfoSchemaTables
	RelInfoSchemaColumns
)

// PGClassRows synthesizes pg_class rows, one per table/view/index (spec §6).
func PGClassRows(oids *OIDCache, tables []TableInfo, indexes []IndexInfo) []Row {
	rows := make([]Row, 0, len(tables)+len(indexes))
	for _, t := range tables {
		relkind := "r"
		if t.Kind == "VIEW" {
			relkind = "v"
		}
		rows = append(rows, Row{
			"oid":             oids.Lookup(t.Schema, t.Name),
			"relname":         t.Name,
			"relnamespace":    oids.Lookup("namespace", t.Schema),
			"relkind":         relkind,
			"relowner":        10,
			"reltuples":       float32(-1),
			"relhasindex":     false,
			"relpersistence":  "p",
			"relchecks":       int16(0),
			"relhasrules":     false,
			"relhastriggers":  false,
			"relrowsecurity":  false,
		})
	}
	for _, idx := range indexes {
		rows = append(rows, Row{
			"oid":            oids.Lookup(idx.Schema, idx.Table+"."+idx.Name),
			"relname":        idx.Name,
			"relnamespace":   oids.Lookup("namespace", idx.Schema),
			"relkind":        "i",
			"relowner":       10,
			"reltuples":      float32(-1),
			"relhasindex":    false,
			"relpersistence": "p",
		})
	}
	return rows
}

// PGNamespaceRows synthesizes pg_namespace rows, one per distinct IRIS
// schema observed among the tables passed in.
func PGNamespaceRows(oids *OIDCache, schemas []string) []Row {
	rows := make([]Row, 0, len(schemas))
	for _, s := range schemas {
		rows = append(rows, Row{
			"oid":     oids.Lookup("namespace", s),
			"nspname": s,
			"nspowner": 10,
		})
	}
	return rows
}

// PGAttributeRows synthesizes pg_attribute rows for every column of every
// table passed in.
func PGAttributeRows(oids *OIDCache, columns []ColumnInfo, vectorOID uint32) []Row {
	rows := make([]Row, 0, len(columns))
	for _, c := range columns {
		rows = append(rows, Row{
			"attrelid":   oids.Lookup(c.Schema, c.Table),
			"attname":    c.Name,
			"atttypid":   codec.OIDForIRISType(c.IRISType, vectorOID),
			"attnum":     int16(c.OrdinalPos),
			"attnotnull": !c.Nullable,
			"atthasdef":  false,
			"attisdropped": false,
		})
	}
	return rows
}

// PGIndexRows synthesizes pg_index rows.
func PGIndexRows(oids *OIDCache, indexes []IndexInfo) []Row {
	rows := make([]Row, 0, len(indexes))
	for _, idx := range indexes {
		rows = append(rows, Row{
			"indexrelid": oids.Lookup(idx.Schema, idx.Table+"."+idx.Name),
			"indrelid":   oids.Lookup(idx.Schema, idx.Table),
			"indisunique": idx.Unique,
			"indisprimary": idx.Primary,
			"indnatts":    int16(len(idx.Columns)),
		})
	}
	return rows
}

// InformationSchemaTablesRows synthesizes information_schema.tables rows.
func InformationSchemaTablesRows(dbName string, tables []TableInfo) []Row {
	rows := make([]Row, 0, len(tables))
	for _, t := range tables {
		tableType := "BASE TABLE"
		if t.Kind == "VIEW" {
			tableType = "VIEW"
		}
		rows = append(rows, Row{
			"table_catalog": dbName,
			"table_schema":  t.Schema,
			"table_name":    t.Name,
			"table_type":    tableType,
		})
	}
	return rows
}

// InformationSchemaColumnsRows synthesizes information_schema.columns rows.
func InformationSchemaColumnsRows(dbName string, columns []ColumnInfo) []Row {
	rows := make([]Row, 0, len(columns))
	for _, c := range columns {
		nullable := "NO"
		if c.Nullable {
			nullable = "YES"
		}
		rows = append(rows, Row{
			"table_catalog":       dbName,
			"table_schema":        c.Schema,
			"table_name":          c.Table,
			"column_name":         c.Name,
			"ordinal_position":    c.OrdinalPos,
			"is_nullable":         nullable,
			"data_type":           c.IRISType,
			"character_maximum_length": c.MaxLength,
		})
	}
	return rows
}
