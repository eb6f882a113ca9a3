package catalog

// ColumnOrder fixes the column order each relation's synthesized Row values
// are read back out in. Row is a map for readability where it's built, but
// RowDescription/DataRow ordering must be deterministic, so callers always
// iterate this slice rather than ranging over a Row directly.
func ColumnOrder(rel Relation) []string {
	switch rel {
	case RelPGClass:
		return []string{"oid", "relname", "relnamespace", "relkind", "relowner", "reltuples",
			"relhasindex", "relpersistence", "relchecks", "relhasrules", "relhastriggers", "relrowsecurity"}
	case RelPGNamespace:
		return []string{"oid", "nspname", "nspowner"}
	case RelPGAttribute:
		return []string{"attrelid", "attname", "atttypid", "attnum", "attnotnull", "atthasdef", "attisdropped"}
	case RelPGType:
		return []string{"oid", "typname", "typlen"}
	case RelPGIndex:
		return []string{"indexrelid", "indrelid", "indisunique", "indisprimary", "indnatts"}
	case RelPGProc:
		return []string{"oid", "proname", "pronamespace", "prorettype"}
	case RelPGDescription:
		return []string{"objoid", "classoid", "objsubid", "description"}
	case RelInfoSchemaTables:
		return []string{"table_catalog", "table_schema", "table_name", "table_type"}
	case RelInfoSchemaColumns:
		return []string{"table_catalog", "table_schema", "table_name", "column_name",
			"ordinal_position", "is_nullable", "data_type", "character_maximum_length"}
	default:
		return nil
	}
}
