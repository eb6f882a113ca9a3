package translator

import (
	"reflect"
	"testing"
)

func TestSplitStatements_Basic(t *testing.T) {
	got := SplitStatements("SELECT 1; SELECT 2;")
	want := []string{"SELECT 1", " SELECT 2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSplitStatements_SemicolonInString(t *testing.T) {
	got := SplitStatements("SELECT ';' ; SELECT 2")
	want := []string{"SELECT ';' ", " SELECT 2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSplitStatements_Empty(t *testing.T) {
	got := SplitStatements("")
	want := []string{""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSplitStatements_WhitespaceOnly(t *testing.T) {
	got := SplitStatements("   \n  ")
	want := []string{""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}
