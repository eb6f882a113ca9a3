// Package session implements the per-connection state machine (spec §4.4):
// startup/auth handshake, Simple Query and Extended Query dispatch, COPY
// IN/OUT sub-states, cancellation, and termination. Grounded on
// mevdschee-tqdbproxy/postgres/postgres.go's handleConnection shape (one
// goroutine per accepted connection, a per-connection state struct holding
// prepared statements and portals), generalized from hand-rolled framing to
// pgproto3 messages and from a single passthrough backend to the
// translate-then-execute pipeline in internal/translator and
// internal/backend.
package session

import "sync/atomic"

// State names the session's position in the spec §4.4 state machine.
type State int32

const (
	StartupPending State = iota
	AuthPending
	ReadyForQuery
	SimpleQueryBusy
	ExtendedBusy
	CopyInBusy
	CopyOutBusy
	Terminating
)

func (s State) String() string {
	switch s {
	case StartupPending:
		return "StartupPending"
	case AuthPending:
		return "AuthPending"
	case ReadyForQuery:
		return "ReadyForQuery"
	case SimpleQueryBusy:
		return "SimpleQueryBusy"
	case ExtendedBusy:
		return "ExtendedBusy"
	case CopyInBusy:
		return "CopyInBusy"
	case CopyOutBusy:
		return "CopyOutBusy"
	case Terminating:
		return "Terminating"
	default:
		return "Unknown"
	}
}

// TxStatus is the single byte PostgreSQL's ReadyForQuery reports: idle,
// in-transaction, or failed-transaction (spec §4.4).
type TxStatus byte

const (
	TxIdle   TxStatus = 'I'
	TxInTx   TxStatus = 'T'
	TxFailed TxStatus = 'E'
)

// atomicState is a small wrapper so Session.state can be read from the
// cancellation registry's goroutine without a lock (mirrors
// mevdschee-tqdbproxy/replica/pool.go's use of atomic flags for
// cross-goroutine health state).
type atomicState struct{ v atomic.Int32 }

func (a *atomicState) Load() State      { return State(a.v.Load()) }
func (a *atomicState) Store(s State)    { a.v.Store(int32(s)) }
