package backend

import "strings"

// SQLState is a PostgreSQL five-character error code, the identifier
// clients actually branch on (drivers rarely parse Message text) — spec §7.
type SQLState string

// The gateway's own raised conditions (spec §7, §9 Non-goals: translator
// and protocol errors that never reach IRIS).
const (
	ProtocolViolation    SQLState = "08P01"
	FeatureNotSupported  SQLState = "0A000"
	InvalidSQLStatement  SQLState = "42601" // syntax_error
	UndefinedTable       SQLState = "42P01"
	QueryCanceled        SQLState = "57014"
	AdminShutdown        SQLState = "57P01"
	ConnectionFailure    SQLState = "08006"
	InternalError        SQLState = "XX000"
)

// classifyIRISError maps an error surfaced by the IRIS database/sql driver
// into a SQLSTATE the client can branch on (spec §7 error classification).
// Grounded on lib/pq's error.go: that file maps PostgreSQL's own wire-level
// error codes into Go's error type; here the mapping runs the other way —
// from whatever the IRIS driver reports (it has no SQLSTATE vocabulary
// shared with PostgreSQL) into the PostgreSQL class lib/pq's callers
// already know how to branch on.
func classifyIRISError(err error) (SQLState, string) {
	if err == nil {
		return "", ""
	}
	msg := err.Error()
	switch {
	case containsAny(msg, "no such table", "table not found", "undefined table", "%Table does not exist"):
		return UndefinedTable, msg
	case containsAny(msg, "syntax error", "SQLCODE <-1"):
		return InvalidSQLStatement, msg
	case containsAny(msg, "connection refused", "broken pipe", "connection reset", "i/o timeout"):
		return ConnectionFailure, msg
	case containsAny(msg, "context canceled", "context deadline exceeded"):
		return QueryCanceled, msg
	default:
		return InternalError, msg
	}
}

func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
