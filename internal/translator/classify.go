package translator

import (
	"regexp"
	"strings"
)

// Classification is the tagged union the translator assigns to a statement
// (spec §3 TranslationResult, §4.2 "classification first").
type Classification int

const (
	ClassEmpty Classification = iota
	ClassTransactionVerb
	ClassCopyIn
	ClassCopyOut
	ClassCatalogProbe
	ClassDirectQuery
)

func (c Classification) String() string {
	switch c {
	case ClassEmpty:
		return "empty"
	case ClassTransactionVerb:
		return "transaction_verb"
	case ClassCopyIn:
		return "copy_in"
	case ClassCopyOut:
		return "copy_out"
	case ClassCatalogProbe:
		return "catalog_probe"
	default:
		return "direct_query"
	}
}

// TxVerb identifies which transaction control command a TransactionVerb
// classification carries.
type TxVerb int

const (
	TxNone TxVerb = iota
	TxBegin
	TxCommit
	TxRollback
	TxSavepoint
	TxRelease
)

// CopyOptions holds the recognized WITH-clause options for COPY (spec §4.2).
type CopyOptions struct {
	Format    string // "CSV", "TEXT", or "BINARY"
	Header    bool
	Delimiter byte
	Null      string
	Quote     byte
	Escape    byte
}

func defaultCopyOptions() CopyOptions {
	return CopyOptions{Format: "TEXT", Delimiter: '\t', Null: `\N`, Quote: '"', Escape: '"'}
}

var (
	emptyRe = regexp.MustCompile(`^\s*$`)

	beginRe = regexp.MustCompile(`(?i)^\s*(BEGIN|START\s+TRANSACTION)\s*(WORK|TRANSACTION)?\s*(.*)$`)
	commitRe = regexp.MustCompile(`(?i)^\s*COMMIT\s*(WORK|TRANSACTION)?\s*$`)
	rollbackRe = regexp.MustCompile(`(?i)^\s*ROLLBACK\s*(WORK|TRANSACTION)?\s*$`)
	savepointRe = regexp.MustCompile(`(?i)^\s*SAVEPOINT\s+`)
	releaseRe = regexp.MustCompile(`(?i)^\s*RELEASE\s+`)

	copyInRe  = regexp.MustCompile(`(?is)^\s*COPY\s+([A-Za-z0-9_."]+)\s*(\(([^)]*)\))?\s*FROM\s+STDIN\s*(WITH\s*\((.*)\))?\s*;?\s*$`)
	copyOutTableRe = regexp.MustCompile(`(?is)^\s*COPY\s+([A-Za-z0-9_."]+)\s*(\(([^)]*)\))?\s*TO\s+STDOUT\s*(WITH\s*\((.*)\))?\s*;?\s*$`)
	copyOutQueryRe = regexp.MustCompile(`(?is)^\s*COPY\s*\((.+)\)\s*TO\s+STDOUT\s*(WITH\s*\((.*)\))?\s*;?\s*$`)

	// catalogRelations is the closed set of PostgreSQL catalog relations the
	// gateway synthesizes answers for (spec §4.2, §6).
	catalogRelations = regexp.MustCompile(`(?i)\b(pg_class|pg_namespace|pg_attribute|pg_type|pg_index|pg_proc|pg_description|information_schema\.\w+)\b`)
	catalogFuncRef   = regexp.MustCompile(`(?i)\b(current_database|current_schema|version|pg_get_\w+|format_type|has_\w+_privilege)\s*\(`)
)

// classify performs the cheap shape checks that happen before any rewrite
// pipeline runs (spec §4.2 "Classification first"). sql must have already
// had comments stripped of influence by virtue of scanSegments-based callers
// — here we work on the raw segments ourselves since classification must
// not be fooled by a verb appearing inside a string or comment.
func classify(sql string) Classification {
	codeOnly := codeOnlyText(sql)
	trimmed := strings.TrimSpace(codeOnly)

	if emptyRe.MatchString(trimmed) || isCommentOnly(sql) {
		return ClassEmpty
	}
	if beginRe.MatchString(trimmed) || commitRe.MatchString(trimmed) || rollbackRe.MatchString(trimmed) ||
		savepointRe.MatchString(trimmed) || releaseRe.MatchString(trimmed) {
		return ClassTransactionVerb
	}
	if copyInRe.MatchString(trimmed) {
		return ClassCopyIn
	}
	if copyOutTableRe.MatchString(trimmed) || copyOutQueryRe.MatchString(trimmed) {
		return ClassCopyOut
	}
	if catalogRelations.MatchString(codeOnly) || catalogFuncRef.MatchString(codeOnly) {
		return ClassCatalogProbe
	}
	return ClassDirectQuery
}

// codeOnlyText returns the sql with every non-code segment (string literal,
// quoted identifier, comment, dollar-quote) blanked out to spaces of the
// same length, so regex classification can never match inside one while
// still preserving byte offsets for callers that need them.
func codeOnlyText(sql string) string {
	segs := scanSegments(sql)
	var b strings.Builder
	b.Grow(len(sql))
	for _, s := range segs {
		if s.kind == segCode {
			b.WriteString(s.text)
		} else {
			b.WriteString(strings.Repeat(" ", len(s.text)))
		}
	}
	return b.String()
}

func isCommentOnly(sql string) bool {
	segs := scanSegments(sql)
	for _, s := range segs {
		if s.kind == segCode && strings.TrimSpace(s.text) != "" {
			return false
		}
	}
	return true
}

func txVerbOf(trimmed string) TxVerb {
	switch {
	case beginRe.MatchString(trimmed):
		return TxBegin
	case commitRe.MatchString(trimmed):
		return TxCommit
	case rollbackRe.MatchString(trimmed):
		return TxRollback
	case savepointRe.MatchString(trimmed):
		return TxSavepoint
	case releaseRe.MatchString(trimmed):
		return TxRelease
	default:
		return TxNone
	}
}

// rewriteTransactionVerb implements spec §4.2: BEGIN / BEGIN WORK / BEGIN
// TRANSACTION all become START TRANSACTION, preserving modifiers
// byte-for-byte modulo collapsed whitespace. COMMIT/ROLLBACK/SAVEPOINT/
// RELEASE pass through unchanged (IRIS accepts them as-is).
func rewriteTransactionVerb(trimmed string) string {
	if m := beginRe.FindStringSubmatch(trimmed); m != nil {
		modifiers := strings.TrimSpace(m[3])
		if modifiers == "" {
			return "START TRANSACTION"
		}
		return "START TRANSACTION " + modifiers
	}
	return strings.TrimRight(strings.TrimSpace(trimmed), ";")
}

func parseCopyOptions(with string) CopyOptions {
	opts := defaultCopyOptions()
	if strings.TrimSpace(with) == "" {
		return opts
	}
	if m := regexp.MustCompile(`(?i)FORMAT\s+(CSV|TEXT|BINARY)`).FindStringSubmatch(with); m != nil {
		opts.Format = strings.ToUpper(m[1])
		if opts.Format == "CSV" {
			opts.Delimiter = ','
		}
	}
	if m := regexp.MustCompile(`(?i)HEADER\s*(TRUE|FALSE|1|0)?`).FindStringSubmatch(with); m != nil {
		opts.Header = strings.ToUpper(m[1]) != "FALSE" && m[1] != "0"
	}
	if m := regexp.MustCompile(`(?i)DELIMITER\s+'(.)'`).FindStringSubmatch(with); m != nil {
		opts.Delimiter = m[1][0]
	}
	if m := regexp.MustCompile(`(?i)NULL\s+'([^']*)'`).FindStringSubmatch(with); m != nil {
		opts.Null = m[1]
	}
	if m := regexp.MustCompile(`(?i)QUOTE\s+'(.)'`).FindStringSubmatch(with); m != nil {
		opts.Quote = m[1][0]
	}
	if m := regexp.MustCompile(`(?i)ESCAPE\s+'(.)'`).FindStringSubmatch(with); m != nil {
		opts.Escape = m[1][0]
	}
	return opts
}
