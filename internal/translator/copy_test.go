package translator

import "testing"

func TestParseCopyIn(t *testing.T) {
	cp := parseCopyIn(`COPY users (id, name) FROM STDIN WITH (FORMAT CSV, HEADER TRUE)`)
	if cp.Table != "users" {
		t.Errorf("table = %q, want users", cp.Table)
	}
	if len(cp.Columns) != 2 || cp.Columns[0] != "id" || cp.Columns[1] != "name" {
		t.Errorf("columns = %v", cp.Columns)
	}
	if cp.Options.Format != "CSV" || !cp.Options.Header || cp.Options.Delimiter != ',' {
		t.Errorf("options = %+v", cp.Options)
	}
}

func TestParseCopyIn_Defaults(t *testing.T) {
	cp := parseCopyIn(`COPY users FROM STDIN`)
	if cp.Table != "users" || cp.Columns != nil {
		t.Errorf("got %+v", cp)
	}
	if cp.Options.Format != "TEXT" || cp.Options.Delimiter != '\t' || cp.Options.Null != `\N` {
		t.Errorf("options = %+v", cp.Options)
	}
}

func TestParseCopyOut_Query(t *testing.T) {
	cp := parseCopyOut(`COPY (SELECT id FROM users WHERE active = true) TO STDOUT WITH (FORMAT CSV)`)
	if cp.Table != "" {
		t.Errorf("table = %q, want empty", cp.Table)
	}
	if cp.Query != "SELECT id FROM users WHERE active = true" {
		t.Errorf("query = %q", cp.Query)
	}
	if cp.Options.Format != "CSV" {
		t.Errorf("options = %+v", cp.Options)
	}
}

func TestParseCopyOut_Table(t *testing.T) {
	cp := parseCopyOut(`COPY users TO STDOUT`)
	if cp.Table != "users" || cp.Query != "" {
		t.Errorf("got %+v", cp)
	}
}
