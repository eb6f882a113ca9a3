package translator

import (
	"regexp"
	"strconv"
	"strings"
)

var dollarPlaceholderRe = regexp.MustCompile(`\$(\d+)`)
var percentSRe = regexp.MustCompile(`%s`)

// ParamFixup records that the Nth IRIS positional parameter (1-based, in
// the order '?' markers appear in the translated SQL) corresponds to the
// clientParam'th parameter the client originally declared (1-based, from
// the $N it used). Order is preserved even when the client used $N out of
// sequence or repeated a $N more than once.
type ParamFixup struct {
	IRISPosition int
	ClientParam  int
}

// normalizePlaceholders rewrites PostgreSQL "$1,$2,…" placeholders into
// IRIS's positional "?" marker syntax, in code regions only, and returns the
// fixup list plus the rewritten SQL. legacyPercentS additionally rewrites
// bare "%s" markers (a simple-query legacy path some old driver shims emit)
// to "?" — restricted to code regions so "%s" inside a literal is untouched.
func normalizePlaceholders(sql string, legacyPercentS bool) (string, []ParamFixup) {
	segs := scanSegments(sql)
	var fixups []ParamFixup
	var out strings.Builder

	for _, s := range segs {
		if s.kind != segCode {
			out.WriteString(s.text)
			continue
		}
		text := s.text
		for len(text) > 0 {
			loc := dollarPlaceholderRe.FindStringIndex(text)
			pctLoc := -1
			if legacyPercentS {
				if l := percentSRe.FindStringIndex(text); l != nil {
					pctLoc = l[0]
				}
			}
			if loc == nil && pctLoc < 0 {
				out.WriteString(text)
				break
			}
			if loc != nil && (pctLoc < 0 || loc[0] <= pctLoc) {
				out.WriteString(text[:loc[0]])
				n, _ := strconv.Atoi(dollarPlaceholderRe.FindStringSubmatch(text[loc[0]:loc[1]])[1])
				fixups = append(fixups, ParamFixup{IRISPosition: len(fixups) + 1, ClientParam: n})
				out.WriteString("?")
				text = text[loc[1]:]
				continue
			}
			out.WriteString(text[:pctLoc])
			fixups = append(fixups, ParamFixup{IRISPosition: len(fixups) + 1, ClientParam: len(fixups) + 1})
			out.WriteString("?")
			text = text[pctLoc+2:]
		}
	}
	return out.String(), fixups
}
