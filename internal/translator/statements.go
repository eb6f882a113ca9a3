package translator

import "strings"

// SplitStatements splits a Simple Query message's text on top-level ';'
// (spec §4.4 Simple Query sub-state: "split the received text on top-level
// ';' respecting literals/comments"), reusing scanSegments so a ';' inside
// a string, quoted identifier, comment, or dollar-quoted block never splits
// a statement in two. Text after the last ';' is dropped when it is empty
// or whitespace-only; an empty statement between two ';' (as in
// "SELECT 1;;") is kept. An entirely empty or whitespace-only input yields
// one empty statement so callers still see an EmptyQueryResponse-worthy
// entry.
func SplitStatements(sql string) []string {
	segs := scanSegments(sql)
	var stmts []string
	var cur strings.Builder
	for _, seg := range segs {
		if seg.kind != segCode {
			cur.WriteString(seg.text)
			continue
		}
		text := seg.text
		for len(text) > 0 {
			idx := strings.IndexByte(text, ';')
			if idx < 0 {
				cur.WriteString(text)
				break
			}
			cur.WriteString(text[:idx])
			stmts = append(stmts, cur.String())
			cur.Reset()
			text = text[idx+1:]
		}
	}
	if cur.Len() > 0 && strings.TrimSpace(cur.String()) != "" {
		stmts = append(stmts, cur.String())
	}
	if len(stmts) == 0 {
		stmts = append(stmts, "")
	}
	return stmts
}
