package translator

import "testing"

func TestNormalizeIdentifiers(t *testing.T) {
	cases := []struct{ in, want string }{
		{`select name from users`, `SELECT NAME FROM USERS`},
		{`SELECT "Name" FROM users`, `SELECT "Name" FROM USERS`},
		{`select 'Name' from users`, `SELECT 'Name' FROM USERS`},
		{`select name from users -- keep case here`, `SELECT NAME FROM USERS -- keep case here`},
	}
	for _, c := range cases {
		if got := normalizeIdentifiers(c.in); got != c.want {
			t.Errorf("normalizeIdentifiers(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeIdentifiers_Idempotent(t *testing.T) {
	in := `select "Col1", name from "My Table" where x = 'Lower'`
	once := normalizeIdentifiers(in)
	twice := normalizeIdentifiers(once)
	if once != twice {
		t.Errorf("not idempotent: once=%q twice=%q", once, twice)
	}
}
