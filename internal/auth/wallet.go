package auth

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/mevdschee/irispgwire/internal/backend"
)

// walletKeyPrefix matches the key format original_source/'s Wallet
// contract tests assert on ("pgwire-user-{username}"), letting an operator
// provision secrets with the same naming IRIS's own Wallet tooling uses.
const walletKeyPrefix = "pgwire-user-"

// Wallet resolves a user's SCRAM credential from a secret stored in IRIS's
// own Wallet (a key/value secret store queried like any other IRIS table).
// The secret value is the user's plaintext password; deriveCredential turns
// it into SCRAM StoredKey/ServerKey material on the fly rather than
// persisting derived keys, so rotating a Wallet secret takes effect
// immediately with no separate migration step.
//
// Grounded on original_source/tests/contract/test_wallet_credentials_contract.go
// (WalletCredentialsProtocol: key format, not-found vs API-failure
// distinction) and this repo's internal/backend.Pool for the actual IRIS
// round trip (spec §4.3).
type Wallet struct {
	Pool  *backend.Pool
	Query string // SQL returning one column: the secret value for ? = wallet key
}

// NewWallet builds a Wallet credential source. query defaults to a
// single-column lookup against a conventional secrets table when empty.
func NewWallet(pool *backend.Pool, query string) *Wallet {
	if query == "" {
		query = "SELECT secret_value FROM pgwire_wallet WHERE secret_key = ?"
	}
	return &Wallet{Pool: pool, Query: query}
}

func (w *Wallet) Lookup(ctx context.Context, user string) (Credential, error) {
	conn, err := w.Pool.Acquire(ctx)
	if err != nil {
		return Credential{}, fmt.Errorf("wallet: acquiring IRIS connection: %w", err)
	}
	defer conn.Close()

	key := walletKeyPrefix + user
	var secret string
	row := conn.QueryRowContext(ctx, w.Query, key)
	if err := row.Scan(&secret); err != nil {
		return Credential{}, ErrNoSuchUser{User: user}
	}

	salt := sha256.Sum256([]byte(user))
	return deriveCredential(user, secret, salt[:16], DefaultIters), nil
}
