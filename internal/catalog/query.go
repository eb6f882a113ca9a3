package catalog

import (
	"context"
	"fmt"

	"github.com/mevdschee/irispgwire/internal/backend"
)

// Probe answers one ClassCatalogProbe statement (spec §4.2, §4.4 step 6):
// it identifies which relation the client is introspecting, pulls the
// matching live metadata from IRIS's own INFORMATION_SCHEMA, and returns
// synthesized rows in ColumnOrder(rel) order. RelUnknown (a catalog
// function call with no relation reference) is the caller's cue to fall
// back to the translator's inlined scalar result instead.
func Probe(ctx context.Context, pool *backend.Pool, oids *OIDCache, vectorOID uint32, dbName, sql string) (Relation, []Row, error) {
	rel := IdentifyRelation(sql)
	schemaFilter, _ := ExtractSchemaNameFilter(sql)
	tableFilter, _ := ExtractTableNameFilter(sql)

	switch rel {
	case RelPGType:
		return rel, PGTypeRows(vectorOID), nil
	case RelPGProc:
		return rel, PGProcRows(), nil
	case RelPGDescription:
		return rel, PGDescriptionRows(), nil
	case RelPGClass:
		tables, err := fetchTables(ctx, pool, schemaFilter, tableFilter)
		if err != nil {
			return rel, nil, err
		}
		indexes, err := fetchIndexes(ctx, pool, schemaFilter, tableFilter)
		if err != nil {
			return rel, nil, err
		}
		return rel, PGClassRows(oids, tables, indexes), nil
	case RelPGNamespace:
		schemas, err := fetchSchemas(ctx, pool)
		if err != nil {
			return rel, nil, err
		}
		return rel, PGNamespaceRows(oids, schemas), nil
	case RelPGAttribute:
		cols, err := fetchColumns(ctx, pool, schemaFilter, tableFilter)
		if err != nil {
			return rel, nil, err
		}
		return rel, PGAttributeRows(oids, cols, vectorOID), nil
	case RelPGIndex:
		indexes, err := fetchIndexes(ctx, pool, schemaFilter, tableFilter)
		if err != nil {
			return rel, nil, err
		}
		return rel, PGIndexRows(oids, indexes), nil
	case RelInfoSchemaTables:
		tables, err := fetchTables(ctx, pool, schemaFilter, tableFilter)
		if err != nil {
			return rel, nil, err
		}
		return rel, InformationSchemaTablesRows(dbName, tables), nil
	case RelInfoSchemaColumns:
		cols, err := fetchColumns(ctx, pool, schemaFilter, tableFilter)
		if err != nil {
			return rel, nil, err
		}
		return rel, InformationSchemaColumnsRows(dbName, cols), nil
	default:
		return RelUnknown, nil, nil
	}
}

func fetchTables(ctx context.Context, pool *backend.Pool, schemaFilter, tableFilter string) ([]TableInfo, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: acquiring IRIS connection: %w", err)
	}
	defer conn.Close()

	q := "SELECT TABLE_SCHEMA, TABLE_NAME, TABLE_TYPE FROM INFORMATION_SCHEMA.TABLES WHERE 1=1"
	var args []any
	if schemaFilter != "" {
		q += " AND TABLE_SCHEMA = ?"
		args = append(args, schemaFilter)
	}
	if tableFilter != "" {
		q += " AND TABLE_NAME = ?"
		args = append(args, tableFilter)
	}
	rows, err := conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: querying INFORMATION_SCHEMA.TABLES: %w", err)
	}
	defer rows.Close()

	var out []TableInfo
	for rows.Next() {
		var t TableInfo
		var tableType string
		if err := rows.Scan(&t.Schema, &t.Name, &tableType); err != nil {
			return nil, err
		}
		if tableType == "VIEW" {
			t.Kind = "VIEW"
		} else {
			t.Kind = "TABLE"
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func fetchColumns(ctx context.Context, pool *backend.Pool, schemaFilter, tableFilter string) ([]ColumnInfo, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: acquiring IRIS connection: %w", err)
	}
	defer conn.Close()

	q := `SELECT TABLE_SCHEMA, TABLE_NAME, COLUMN_NAME, ORDINAL_POSITION, DATA_TYPE,
	       IS_NULLABLE, CHARACTER_MAXIMUM_LENGTH FROM INFORMATION_SCHEMA.COLUMNS WHERE 1=1`
	var args []any
	if schemaFilter != "" {
		q += " AND TABLE_SCHEMA = ?"
		args = append(args, schemaFilter)
	}
	if tableFilter != "" {
		q += " AND TABLE_NAME = ?"
		args = append(args, tableFilter)
	}
	rows, err := conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: querying INFORMATION_SCHEMA.COLUMNS: %w", err)
	}
	defer rows.Close()

	var out []ColumnInfo
	for rows.Next() {
		var c ColumnInfo
		var nullable string
		var maxLen *int
		if err := rows.Scan(&c.Schema, &c.Table, &c.Name, &c.OrdinalPos, &c.IRISType, &nullable, &maxLen); err != nil {
			return nil, err
		}
		c.Nullable = nullable == "YES"
		if maxLen != nil {
			c.MaxLength = *maxLen
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func fetchIndexes(ctx context.Context, pool *backend.Pool, schemaFilter, tableFilter string) ([]IndexInfo, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: acquiring IRIS connection: %w", err)
	}
	defer conn.Close()

	q := `SELECT TABLE_SCHEMA, TABLE_NAME, INDEX_NAME, NON_UNIQUE, PRIMARY_KEY
	       FROM INFORMATION_SCHEMA.INDEXES WHERE 1=1`
	var args []any
	if schemaFilter != "" {
		q += " AND TABLE_SCHEMA = ?"
		args = append(args, schemaFilter)
	}
	if tableFilter != "" {
		q += " AND TABLE_NAME = ?"
		args = append(args, tableFilter)
	}
	rows, err := conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: querying INFORMATION_SCHEMA.INDEXES: %w", err)
	}
	defer rows.Close()

	byKey := make(map[string]*IndexInfo)
	var order []string
	for rows.Next() {
		var schema, table, name string
		var nonUnique, primary bool
		if err := rows.Scan(&schema, &table, &name, &nonUnique, &primary); err != nil {
			return nil, err
		}
		key := schema + "." + table + "." + name
		idx, ok := byKey[key]
		if !ok {
			idx = &IndexInfo{Schema: schema, Table: table, Name: name, Unique: !nonUnique, Primary: primary}
			byKey[key] = idx
			order = append(order, key)
		}
	}
	out := make([]IndexInfo, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out, rows.Err()
}

func fetchSchemas(ctx context.Context, pool *backend.Pool) ([]string, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: acquiring IRIS connection: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, "SELECT DISTINCT TABLE_SCHEMA FROM INFORMATION_SCHEMA.TABLES")
	if err != nil {
		return nil, fmt.Errorf("catalog: querying INFORMATION_SCHEMA.TABLES schemas: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
