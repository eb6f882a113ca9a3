// Package translator rewrites PostgreSQL-flavored SQL into IRIS-compatible
// SQL and classifies statements (catalog probe? transaction verb? vector
// query?). It is intentionally lightweight — regex and hand-rolled scanning
// rather than a full SQL grammar — to stay inside the per-statement latency
// budget on the proxy hot path, the same tradeoff tqdbproxy's parser package
// made for its comment-hint extraction.
package translator

// segmentKind classifies a run of SQL text produced by scanSegments.
type segmentKind int

const (
	segCode segmentKind = iota
	segString
	segQuotedIdent
	segLineComment
	segBlockComment
	segDollarQuote
)

// segment is a contiguous run of the input belonging to exactly one kind.
// Text includes any delimiting quotes/comment markers verbatim so that
// reassembling all segments in order reproduces the original input.
type segment struct {
	kind segmentKind
	text string
}

// scanSegments splits sql into literal-safe regions (strings, quoted
// identifiers, comments, dollar-quoted strings) and code regions, so that
// later stages never rewrite inside a literal or comment (spec §4.2,
// testable property 3: "string-literal immunity").
func scanSegments(sql string) []segment {
	var segs []segment
	n := len(sql)
	i := 0
	codeStart := 0

	flushCode := func(end int) {
		if end > codeStart {
			segs = append(segs, segment{segCode, sql[codeStart:end]})
		}
	}

	for i < n {
		c := sql[i]
		switch {
		case c == '\'':
			flushCode(i)
			j := i + 1
			for j < n {
				if sql[j] == '\'' {
					if j+1 < n && sql[j+1] == '\'' {
						j += 2
						continue
					}
					j++
					break
				}
				j++
			}
			segs = append(segs, segment{segString, sql[i:j]})
			i = j
			codeStart = i
		case c == '"':
			flushCode(i)
			j := i + 1
			for j < n {
				if sql[j] == '"' {
					if j+1 < n && sql[j+1] == '"' {
						j += 2
						continue
					}
					j++
					break
				}
				j++
			}
			segs = append(segs, segment{segQuotedIdent, sql[i:j]})
			i = j
			codeStart = i
		case c == '-' && i+1 < n && sql[i+1] == '-':
			flushCode(i)
			j := i
			for j < n && sql[j] != '\n' {
				j++
			}
			segs = append(segs, segment{segLineComment, sql[i:j]})
			i = j
			codeStart = i
		case c == '/' && i+1 < n && sql[i+1] == '*':
			flushCode(i)
			j := i + 2
			for j+1 < n && !(sql[j] == '*' && sql[j+1] == '/') {
				j++
			}
			end := j + 2
			if end > n {
				end = n
			}
			segs = append(segs, segment{segBlockComment, sql[i:end]})
			i = end
			codeStart = i
		case c == '$':
			if tag, end, ok := scanDollarQuote(sql, i); ok {
				flushCode(i)
				segs = append(segs, segment{segDollarQuote, sql[i:end]})
				i = end
				codeStart = i
				_ = tag
				continue
			}
			i++
		default:
			i++
		}
	}
	flushCode(n)
	return segs
}

// scanDollarQuote recognizes a $tag$ ... $tag$ dollar-quoted string starting
// at position i (sql[i] == '$'). tag may be empty ("$$...$$").
func scanDollarQuote(sql string, i int) (tag string, end int, ok bool) {
	n := len(sql)
	j := i + 1
	for j < n && (isIdentByte(sql[j])) {
		j++
	}
	if j >= n || sql[j] != '$' {
		return "", 0, false
	}
	tag = sql[i : j+1] // includes both '$'
	closeAt := -1
	search := j + 1
	for {
		idx := indexFrom(sql, tag, search)
		if idx < 0 {
			break
		}
		closeAt = idx
		break
	}
	if closeAt < 0 {
		return "", 0, false
	}
	return tag, closeAt + len(tag), true
}

func indexFrom(s, sub string, from int) int {
	if from > len(s) {
		return -1
	}
	rel := indexOf(s[from:], sub)
	if rel < 0 {
		return -1
	}
	return from + rel
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// joinSegments reassembles segments back into a single string.
func joinSegments(segs []segment) string {
	total := 0
	for _, s := range segs {
		total += len(s.text)
	}
	buf := make([]byte, 0, total)
	for _, s := range segs {
		buf = append(buf, s.text...)
	}
	return string(buf)
}
