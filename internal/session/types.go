package session

import (
	"github.com/mevdschee/irispgwire/internal/backend"
	"github.com/mevdschee/irispgwire/internal/catalog"
	"github.com/mevdschee/irispgwire/internal/translator"
)

// PreparedStatement is the result of Parse(name, sql, param_oids) (spec
// §4.4 Extended Query). Mirrors mevdschee-tqdbproxy/postgres.connState's
// preparedStatements map, generalized to carry the full translation result
// instead of a raw SQL string so Bind/Execute never re-translate.
type PreparedStatement struct {
	Name       string
	RawSQL     string
	Translated *translator.TranslationResult
	ParamOIDs  []uint32
}

// portalContentKind tags which of Portal's result fields is populated,
// since a bound statement resolves to exactly one of: a command tag, an
// open IRIS row set, a synthesized catalog row set, or an empty query.
type portalContentKind int

const (
	portalEmpty portalContentKind = iota
	portalCommand
	portalRows
	portalCatalogRows
)

// Portal is the result of Bind(portal, stmt, params, result_format_codes).
// Bind resolves parameters (including vector-literal splicing) and runs the
// statement immediately — IRIS gives this gateway no separate "plan" step,
// so the earliest point concrete parameter values exist is also the only
// point at which real row/column metadata exists, which Describe(Portal)
// and Execute then read from here (spec §4.4 Extended Query: Bind/Describe/
// Execute).
type Portal struct {
	Name              string
	Statement         *PreparedStatement
	ResultFormatCodes []int16

	kind        portalContentKind
	tag         string // CommandComplete tag for portalCommand (e.g. "BEGIN", "INSERT 0 3")
	result      *backend.Result
	catalogRel  catalog.Relation
	catalogRows []catalog.Row
	rowsSent    int64
}

// Close releases any IRIS resources the bound portal is still holding.
func (p *Portal) Close() {
	if p.result != nil {
		p.result.Close()
		p.result = nil
	}
}
