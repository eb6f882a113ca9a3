package listener

import (
	"sync"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/irispgwire/internal/metrics"
	"github.com/mevdschee/irispgwire/internal/session"
)

// cancelKey is the (pid, secret) tuple BackendKeyData hands a client, which
// it plays back unmodified on a fresh connection to request cancellation
// of its original session (spec §4.5 Cancellation Registry).
type cancelKey struct {
	pid    uint32
	secret uint32
}

// registry is the shared, concurrently-accessed map of live sessions
// implementing session.CancelRegistry, grounded on panoplyio/pgsrv's package
// level `allSessions sync.Map` keyed by backend pid. Registrations and
// cancel lookups are expected to vastly outnumber the rare full-iteration
// calls (notifyAll/closeAll at shutdown), which is exactly sync.Map's
// read-mostly sweet spot.
type registry struct {
	sessions sync.Map // cancelKey -> *session.Session
}

func newRegistry() *registry {
	return &registry{}
}

// Register implements session.CancelRegistry.
func (r *registry) Register(pid, secret uint32, s *session.Session) {
	r.sessions.Store(cancelKey{pid, secret}, s)
}

// Unregister implements session.CancelRegistry.
func (r *registry) Unregister(pid, secret uint32) {
	r.sessions.Delete(cancelKey{pid, secret})
}

// Cancel implements session.CancelRegistry: looks up the (pid, secret) pair
// and, if it matches a live session, marks it for cooperative cancellation.
// A non-matching tuple (unknown pid, wrong secret, or already-closed
// session) is reported but otherwise ignored, matching real PostgreSQL's
// silence toward cancellation requests it cannot honor.
func (r *registry) Cancel(pid, secret uint32) bool {
	v, ok := r.sessions.Load(cancelKey{pid, secret})

	outcome := "not_found"
	if ok {
		v.(*session.Session).Cancel()
		outcome = "ok"
	}
	metrics.CancelRequests.WithLabelValues(outcome).Inc()
	return ok
}

// notifyAll sends errResp to every currently-registered session without
// waiting for it to actually disconnect (spec §4.5 graceful shutdown's
// courtesy notice).
func (r *registry) notifyAll(errResp *pgproto3.ErrorResponse) {
	r.sessions.Range(func(_, v any) bool {
		v.(*session.Session).Terminate(errResp)
		return true
	})
}

// closeAll forcibly closes every still-registered session's connection
// after the shutdown grace period elapses.
func (r *registry) closeAll() {
	r.sessions.Range(func(_, v any) bool {
		v.(*session.Session).Terminate(&pgproto3.ErrorResponse{
			Severity: "FATAL",
			Code:     "57P01",
			Message:  "admin shutdown grace period elapsed",
		})
		return true
	})
}
