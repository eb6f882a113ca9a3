package backend

import (
	"errors"
	"testing"
)

func TestClassifyIRISError(t *testing.T) {
	cases := []struct {
		err  error
		want SQLState
	}{
		{errors.New("SQLCODE <-1>: syntax error near FROM"), InvalidSQLStatement},
		{errors.New("%Table does not exist"), UndefinedTable},
		{errors.New("dial tcp: connection refused"), ConnectionFailure},
		{errors.New("context deadline exceeded"), QueryCanceled},
		{errors.New("something unexpected"), InternalError},
	}
	for _, c := range cases {
		state, _ := classifyIRISError(c.err)
		if state != c.want {
			t.Errorf("classifyIRISError(%v) = %v, want %v", c.err, state, c.want)
		}
	}
}

func TestClassifyIRISError_Nil(t *testing.T) {
	state, msg := classifyIRISError(nil)
	if state != "" || msg != "" {
		t.Fatalf("expected empty result for nil error, got %q %q", state, msg)
	}
}
