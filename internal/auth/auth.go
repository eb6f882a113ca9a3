// Package auth implements the gateway's client-authentication strategies
// (spec §4.4 AuthPending) — trust, SCRAM-SHA-256, and the wallet/OAuth
// credential sources supplementing SCRAM per original_source/'s auth
// backends (spec §9 supplemented features).
package auth

import (
	"context"

	"github.com/mevdschee/irispgwire/internal/codec"
)

// Strategy drives the wire-level authentication exchange for one connecting
// client during AuthPending, after StartupMessage parameters are known and
// before AuthenticationOk/ReadyForQuery is sent. Implementations read
// further frontend messages from conn and write challenge frames to it
// directly, matching how the rest of the session state machine talks to
// the connection.
type Strategy interface {
	Authenticate(ctx context.Context, conn *codec.Conn, user string) error
}

// Credential is the stored SCRAM credential material for one user —
// independent of how it was obtained (static wallet file, OAuth token
// introspection, or an operator-managed user table).
type Credential struct {
	Username  string
	Salt      []byte
	Iters     int
	StoredKey []byte
	ServerKey []byte
}

// CredentialSource resolves a username to its stored SCRAM credential. The
// SCRAM strategy is parameterized by one of these rather than owning
// storage itself (spec §9). Wallet is the only implementation in this
// package; OAuth is a separate Strategy and does not supply SCRAM
// credentials.
type CredentialSource interface {
	Lookup(ctx context.Context, user string) (Credential, error)
}

// ErrNoSuchUser is returned by a CredentialSource when the user is unknown.
// The SCRAM conversation still runs to completion against a fabricated
// credential in this case, rather than failing fast, to avoid leaking
// which usernames exist via response timing/shape.
type ErrNoSuchUser struct{ User string }

func (e ErrNoSuchUser) Error() string { return "auth: no such user: " + e.User }
