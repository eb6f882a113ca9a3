package translator

import "testing"

func TestTranslate_DirectQuery(t *testing.T) {
	result, err := Translate(`select name from users where created_at = '2024-01-15' and id = $1;`, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Classification != ClassDirectQuery {
		t.Fatalf("classification = %v, want ClassDirectQuery", result.Classification)
	}
	want := `SELECT NAME FROM USERS WHERE CREATED_AT = TO_DATE('2024-01-15','YYYY-MM-DD') AND ID = ?`
	if result.SQL != want {
		t.Fatalf("sql = %q, want %q", result.SQL, want)
	}
	if len(result.ParamFixups) != 1 || result.ParamFixups[0].ClientParam != 1 {
		t.Fatalf("fixups = %+v", result.ParamFixups)
	}
	if result.Metrics.DatesTranslated != 1 {
		t.Fatalf("metrics = %+v", result.Metrics)
	}
}

func TestStripTrailingSemicolon_StripsAny(t *testing.T) {
	cases := map[string]string{
		"SELECT 1":          "SELECT 1",
		"SELECT 1;":         "SELECT 1",
		"SELECT 1;;":        "SELECT 1",
		"SELECT 1; ; ;  ":   "SELECT 1  ",
		"SELECT ';' FROM t": "SELECT ';' FROM t",
		"SELECT ';';;":      "SELECT ';'",
	}
	for in, want := range cases {
		if got := stripTrailingSemicolon(in); got != want {
			t.Errorf("stripTrailingSemicolon(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTranslate_TransactionVerb(t *testing.T) {
	result, err := Translate(`BEGIN;`, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Classification != ClassTransactionVerb {
		t.Fatalf("classification = %v", result.Classification)
	}
	if result.TxCommand == nil || result.TxCommand.Verb != TxBegin {
		t.Fatalf("tx command = %+v", result.TxCommand)
	}
	if result.SQL != "START TRANSACTION" {
		t.Fatalf("sql = %q", result.SQL)
	}
}

func TestTranslate_CopyIn(t *testing.T) {
	result, err := Translate(`COPY users (id, name) FROM STDIN WITH (FORMAT CSV)`, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Classification != ClassCopyIn {
		t.Fatalf("classification = %v", result.Classification)
	}
	if result.Copy == nil || result.Copy.Table != "users" {
		t.Fatalf("copy = %+v", result.Copy)
	}
}

func TestTranslate_Empty(t *testing.T) {
	result, err := Translate(`   `, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Classification != ClassEmpty {
		t.Fatalf("classification = %v", result.Classification)
	}
}

// TestTranslate_Idempotent exercises testable property 1: translating an
// already-translated DirectQuery statement a second time is a no-op.
func TestTranslate_Idempotent(t *testing.T) {
	sql := `select embedding <-> $1 as dist from docs where tag = 'hot' order by dist limit $2`
	first, err := Translate(sql, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Translate(first.SQL, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.SQL != second.SQL {
		t.Fatalf("not idempotent: first=%q second=%q", first.SQL, second.SQL)
	}
}

// TestTranslate_StringLiteralImmunity exercises testable property 3: SQL
// keywords and placeholder-shaped text inside a string literal are left
// untouched by every rewrite stage.
func TestTranslate_StringLiteralImmunity(t *testing.T) {
	result, err := Translate(`select * from logs where msg = 'error at $1 on 2024-01-15 begin'`, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `SELECT * FROM LOGS WHERE MSG = 'error at $1 on 2024-01-15 begin'`
	if result.SQL != want {
		t.Fatalf("sql = %q, want %q", result.SQL, want)
	}
}
