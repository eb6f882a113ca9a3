package catalog

import "regexp"

var relationPatterns = []struct {
	pattern *regexp.Regexp
	rel     Relation
}{
	{regexp.MustCompile(`(?i)\bpg_class\b`), RelPGClass},
	{regexp.MustCompile(`(?i)\bpg_namespace\b`), RelPGNamespace},
	{regexp.MustCompile(`(?i)\bpg_attribute\b`), RelPGAttribute},
	{regexp.MustCompile(`(?i)\bpg_type\b`), RelPGType},
	{regexp.MustCompile(`(?i)\bpg_index\b`), RelPGIndex},
	{regexp.MustCompile(`(?i)\bpg_proc\b`), RelPGProc},
	{regexp.MustCompile(`(?i)\bpg_description\b`), RelPGDescription},
	{regexp.MustCompile(`(?i)\binformation_schema\.columns\b`), RelInfoSchemaColumns},
	{regexp.MustCompile(`(?i)\binformation_schema\.tables\b`), RelInfoSchemaTables},
}

// IdentifyRelation reports which catalog relation a ClassCatalogProbe
// statement targets, so the executor knows which synthesis function to run.
// It returns RelUnknown for a statement that merely calls a catalog
// function (current_database(), version(), ...) without referencing a
// catalog relation; those are answered by the translator's catalog-function
// inlining instead (spec §4.2 stage 5), not by row synthesis.
func IdentifyRelation(sql string) Relation {
	for _, p := range relationPatterns {
		if p.pattern.MatchString(sql) {
			return p.rel
		}
	}
	return RelUnknown
}

// tableNamePredicate extracts a simple "relname = 'x'" / "table_name = 'x'"
// equality predicate, the overwhelmingly common shape drivers use to probe
// for one specific table (spec §4.2 edge cases).
var tableNamePredicate = regexp.MustCompile(`(?i)(relname|table_name)\s*=\s*'([^']*)'`)

func ExtractTableNameFilter(sql string) (string, bool) {
	m := tableNamePredicate.FindStringSubmatch(sql)
	if m == nil {
		return "", false
	}
	return m[2], true
}

var schemaNamePredicate = regexp.MustCompile(`(?i)(nspname|table_schema)\s*=\s*'([^']*)'`)

func ExtractSchemaNameFilter(sql string) (string, bool) {
	m := schemaNamePredicate.FindStringSubmatch(sql)
	if m == nil {
		return "", false
	}
	return m[2], true
}
