package translator

import "testing"

func TestInlineCatalogFunctions(t *testing.T) {
	cases := []struct{ in, want string }{
		{`select current_database()`, `select $NAMESPACE`},
		{`select current_schema()`, `select 'SQLUser'`},
		{`select version()`, `select 'PostgreSQL 16.0 (irispgwire)'`},
		{`select pg_backend_pid()`, `select $JOB`},
		{`select 'current_database()' as literal`, `select 'current_database()' as literal`},
	}
	for _, c := range cases {
		if got := inlineCatalogFunctions(c.in); got != c.want {
			t.Errorf("inlineCatalogFunctions(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
