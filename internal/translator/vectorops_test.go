package translator

import (
	"reflect"
	"testing"
)

func TestTranslateVectorOps(t *testing.T) {
	cases := []struct {
		in       string
		want     string
		wantPos  []int
	}{
		{
			in:      `select id from docs order by embedding <-> $1 limit 5`,
			want:    `select id from docs order by VECTOR_L2(embedding,$1) limit 5`,
			wantPos: []int{1},
		},
		{
			in:      `select 1 - (embedding <#> $2) as score from docs`,
			want:    `select 1 - (-VECTOR_DOT_PRODUCT(embedding,$2)) as score from docs`,
			wantPos: []int{2},
		},
		{
			in:      `select embedding <=> to_vector($1) from docs`,
			want:    `select 1 - VECTOR_COSINE(embedding,to_vector($1)) from docs`,
			wantPos: []int{1},
		},
		{
			in:      `select 1 -- note: <-> not an operator here`,
			want:    `select 1 -- note: <-> not an operator here`,
			wantPos: nil,
		},
	}
	for _, c := range cases {
		got, pos := translateVectorOps(c.in)
		if got != c.want {
			t.Errorf("translateVectorOps(%q) sql = %q, want %q", c.in, got, c.want)
		}
		if !reflect.DeepEqual(pos, c.wantPos) {
			t.Errorf("translateVectorOps(%q) positions = %v, want %v", c.in, pos, c.wantPos)
		}
	}
}
