package translator

import (
	"reflect"
	"testing"
)

func TestNormalizePlaceholders(t *testing.T) {
	sql, fixups := normalizePlaceholders(`select * from t where a = $1 and b = $2 or a = $1`, false)
	want := `select * from t where a = ? and b = ? or a = ?`
	if sql != want {
		t.Fatalf("sql = %q, want %q", sql, want)
	}
	wantFixups := []ParamFixup{{1, 1}, {2, 2}, {3, 1}}
	if !reflect.DeepEqual(fixups, wantFixups) {
		t.Fatalf("fixups = %+v, want %+v", fixups, wantFixups)
	}
}

func TestNormalizePlaceholders_IgnoresStrings(t *testing.T) {
	sql, fixups := normalizePlaceholders(`select '$1 literal' as label where a = $1`, false)
	want := `select '$1 literal' as label where a = ?`
	if sql != want {
		t.Fatalf("sql = %q, want %q", sql, want)
	}
	if len(fixups) != 1 || fixups[0].ClientParam != 1 {
		t.Fatalf("fixups = %+v", fixups)
	}
}

func TestNormalizePlaceholders_LegacyPercentS(t *testing.T) {
	sql, fixups := normalizePlaceholders(`select * from t where a = %s and b = %s`, true)
	want := `select * from t where a = ? and b = ?`
	if sql != want {
		t.Fatalf("sql = %q, want %q", sql, want)
	}
	if len(fixups) != 2 {
		t.Fatalf("fixups = %+v", fixups)
	}
}
