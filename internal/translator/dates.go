package translator

import "regexp"

// exactDateLiteral matches a complete 'YYYY-MM-DD' string literal, nothing more.
var exactDateLiteral = regexp.MustCompile(`^'(\d{4}-\d{2}-\d{2})'$`)

// valuePositionSuffix matches the end of a code region that makes the
// following literal a "value position": after a comparison operator,
// "IN (", "VALUES (", a comma inside a values list, or BETWEEN.
var valuePositionSuffix = regexp.MustCompile(`(?i)(=|<=|>=|<>|!=|<|>|\(|,|\bBETWEEN)\s*$`)

// toDateCallSuffix matches code ending in "TO_DATE(", whose literal argument
// is already wrapped and must not be wrapped a second time.
var toDateCallSuffix = regexp.MustCompile(`(?i)\bTO_DATE\s*\(\s*$`)

// translateDates wraps standalone 'YYYY-MM-DD' literals that appear in a
// value position as TO_DATE('YYYY-MM-DD','YYYY-MM-DD'). Literals inside
// comments, longer strings, or outside a value position are left untouched
// (spec §4.2 stage 3, testable property 4).
func translateDates(sql string) string {
	segs := scanSegments(sql)
	var precedingCode string
	out := make([]segment, 0, len(segs))
	for _, s := range segs {
		if s.kind == segString && exactDateLiteral.MatchString(s.text) && valuePositionSuffix.MatchString(precedingCode) && !toDateCallSuffix.MatchString(precedingCode) {
			m := exactDateLiteral.FindStringSubmatch(s.text)
			out = append(out, segment{segCode, "TO_DATE('" + m[1] + "','YYYY-MM-DD')"})
		} else {
			out = append(out, s)
		}
		if s.kind == segCode {
			precedingCode = s.text
		} else {
			// Non-code segments (other strings, comments) break "value
			// position" continuity; treat as neutral so we never key off
			// something further back than the immediately preceding code.
			precedingCode = ""
		}
	}
	return joinSegments(out)
}
