package auth

import (
	"fmt"

	"github.com/mevdschee/irispgwire/internal/backend"
	"github.com/mevdschee/irispgwire/internal/config"
)

// New builds the configured authentication Strategy (spec §4.4, §9).
// pool is only used by "scram-wallet" (Wallet looks up secrets through the
// IRIS backend); it may be nil for "trust" and "scram-oauth".
func New(cfg config.AuthConfig, pool *backend.Pool) (Strategy, error) {
	switch cfg.Method {
	case "", "trust":
		return Trust{}, nil
	case "scram-wallet":
		if pool == nil {
			return nil, fmt.Errorf("auth: scram-wallet requires an IRIS pool")
		}
		return NewSCRAM(NewWallet(pool, cfg.WalletQuery)), nil
	case "scram-oauth":
		if !cfg.OAuthEnabled {
			return nil, fmt.Errorf("auth: scram-oauth method configured but oauth_enabled is false")
		}
		return NewOAuth(cfg.OAuthTokenURL, cfg.OAuthClientID, cfg.OAuthClientSecret), nil
	default:
		return nil, fmt.Errorf("auth: unknown method %q", cfg.Method)
	}
}
