package catalog

// pgProcRows is the closed set of built-in functions the gateway advertises
// via pg_proc (spec §6: "functions version(), current_database(),
// current_schema(), pg_backend_pid(), pg_get_expr, format_type"). These
// never execute through pg_proc lookups themselves — the translator inlines
// calls to them directly (spec §4.2 stage: catalog-function inlining) — but
// clients that reflect over pg_proc before calling them (JDBC, SQLAlchemy)
// need to find a row here first.
var pgProcRows = []Row{
	{"oid": uint32(89), "proname": "version", "pronamespace": uint32(11), "prorettype": uint32(25)},
	{"oid": uint32(745), "proname": "current_database", "pronamespace": uint32(11), "prorettype": uint32(25)},
	{"oid": uint32(1402), "proname": "current_schema", "pronamespace": uint32(11), "prorettype": uint32(25)},
	{"oid": uint32(2026), "proname": "pg_backend_pid", "pronamespace": uint32(11), "prorettype": uint32(23)},
	{"oid": uint32(1716), "proname": "pg_get_expr", "pronamespace": uint32(11), "prorettype": uint32(25)},
	{"oid": uint32(1081), "proname": "format_type", "pronamespace": uint32(11), "prorettype": uint32(25)},
}

// PGProcRows returns the static pg_proc rows.
func PGProcRows() []Row {
	rows := make([]Row, len(pgProcRows))
	copy(rows, pgProcRows)
	return rows
}

// PGDescriptionRows returns pg_description rows. The gateway tracks no
// object comments of its own, so this is always empty — kept as a function
// rather than a literal nil so the probe dispatch table in query.go is
// uniform across every RelPG* target.
func PGDescriptionRows() []Row {
	return nil
}
