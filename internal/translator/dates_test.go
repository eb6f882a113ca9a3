package translator

import "testing"

func TestTranslateDates(t *testing.T) {
	cases := []struct{ in, want string }{
		{
			in:   `select * from t where d = '2024-01-15'`,
			want: `select * from t where d = TO_DATE('2024-01-15','YYYY-MM-DD')`,
		},
		{
			in:   `select * from t where d between '2024-01-01' and '2024-01-31'`,
			want: `select * from t where d between TO_DATE('2024-01-01','YYYY-MM-DD') and '2024-01-31'`,
		},
		{
			// Not in value position (no leading operator) -> left alone.
			in:   `select '2024-01-15' as label`,
			want: `select '2024-01-15' as label`,
		},
		{
			// Comment containing a date-shaped literal-looking text is untouched.
			in:   `select 1 -- see '2024-01-15'`,
			want: `select 1 -- see '2024-01-15'`,
		},
	}
	for _, c := range cases {
		if got := translateDates(c.in); got != c.want {
			t.Errorf("translateDates(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTranslateDates_Idempotent(t *testing.T) {
	in := `select * from t where d = '2024-01-15'`
	once := translateDates(in)
	twice := translateDates(once)
	if once != twice {
		t.Errorf("not idempotent: once=%q twice=%q", once, twice)
	}
}
