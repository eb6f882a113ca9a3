package translator

import "regexp"

// catalogFuncInline maps a PostgreSQL introspection function call to its
// IRIS-equivalent inline expression (spec §4.2 stage 5). This runs on every
// DirectQuery, independent of catalog-probe classification, so a function
// call mixed into an otherwise ordinary query (e.g.
// "SELECT name, current_database() FROM t") still gets rewritten even
// though the statement as a whole is not routed to catalog synthesis.
var catalogFuncInline = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`(?i)\bCURRENT_DATABASE\s*\(\s*\)`), "$NAMESPACE"},
	{regexp.MustCompile(`(?i)\bCURRENT_SCHEMA\s*\(\s*\)`), "'SQLUser'"},
	{regexp.MustCompile(`(?i)\bVERSION\s*\(\s*\)`), "'PostgreSQL 16.0 (irispgwire)'"},
	{regexp.MustCompile(`(?i)\bPG_BACKEND_PID\s*\(\s*\)`), "$JOB"},
}

// inlineCatalogFunctions rewrites catalog-introspection function calls in
// code regions to IRIS equivalents or constant expressions.
func inlineCatalogFunctions(sql string) string {
	segs := scanSegments(sql)
	for i, s := range segs {
		if s.kind != segCode {
			continue
		}
		text := s.text
		for _, rule := range catalogFuncInline {
			text = rule.pattern.ReplaceAllLiteralString(text, rule.replace)
		}
		segs[i].text = text
	}
	return joinSegments(segs)
}
