package translator

import "strings"

// CopyStatement is the parsed shape of a COPY ... FROM STDIN / COPY ... TO
// STDOUT statement (spec §4.2, §4.3 CopyInSink/CopyOutStream).
type CopyStatement struct {
	Table   string   // empty when Query is set (COPY (query) TO STDOUT)
	Columns []string // nil means "all columns, in table order"
	Query   string   // set only for COPY (SELECT ...) TO STDOUT
	Options CopyOptions
}

// parseCopyIn parses a COPY ... FROM STDIN statement already known (by
// classify) to match copyInRe.
func parseCopyIn(trimmed string) CopyStatement {
	m := copyInRe.FindStringSubmatch(trimmed)
	return CopyStatement{
		Table:   m[1],
		Columns: splitColumns(m[3]),
		Options: parseCopyOptions(m[5]),
	}
}

// parseCopyOut parses a COPY ... TO STDOUT statement, either the
// table-reference form or the COPY (query) TO STDOUT form.
func parseCopyOut(trimmed string) CopyStatement {
	if m := copyOutTableRe.FindStringSubmatch(trimmed); m != nil {
		return CopyStatement{
			Table:   m[1],
			Columns: splitColumns(m[3]),
			Options: parseCopyOptions(m[5]),
		}
	}
	m := copyOutQueryRe.FindStringSubmatch(trimmed)
	return CopyStatement{
		Query:   strings.TrimSpace(m[1]),
		Options: parseCopyOptions(m[3]),
	}
}

func splitColumns(cols string) []string {
	cols = strings.TrimSpace(cols)
	if cols == "" {
		return nil
	}
	parts := strings.Split(cols, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.Trim(strings.TrimSpace(p), `"`))
	}
	return out
}
