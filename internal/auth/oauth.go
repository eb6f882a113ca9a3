package auth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/irispgwire/internal/codec"
	"golang.org/x/oauth2"
)

// OAuth authenticates a client by exchanging the password it sends over
// the wire for an access token from IRIS's own OAuth2 server (password
// grant), per original_source/tests/integration/test_oauth_integration.py's
// OAuthBridge.exchange_password_for_token contract. The gateway never
// stores or compares credentials itself; a successful token exchange IS
// the authentication decision. Declined to send AuthenticationSASL here —
// OAuth's presentation to the PostgreSQL client is a plain cleartext
// password prompt (AuthenticationCleartextPassword), matching how
// psql-compatible clients already handle a password prompt with no SASL
// awareness required.
//
// Grounded on golang.org/x/oauth2 (declared in gravitational-teleport's
// go.mod, used there for Google's OAuth2 variant; Config.
// PasswordCredentialsToken is the same package's password-grant entry
// point) rather than a hand-rolled HTTP token-exchange client.
type OAuth struct {
	Config oauth2.Config
}

func NewOAuth(tokenURL, clientID, clientSecret string) *OAuth {
	return &OAuth{
		Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
	}
}

func (o *OAuth) Authenticate(ctx context.Context, conn *codec.Conn, user string) error {
	cleartext := &pgproto3.AuthenticationCleartextPassword{}
	buf, err := cleartext.Encode(nil)
	if err != nil {
		return err
	}
	if err := conn.Send(buf); err != nil {
		return err
	}

	msg, err := conn.Receive()
	if err != nil {
		return fmt.Errorf("oauth: receive password: %w", err)
	}
	pw, ok := msg.(*pgproto3.PasswordMessage)
	if !ok {
		return fmt.Errorf("oauth: expected PasswordMessage, got %T", msg)
	}

	token, err := o.Config.PasswordCredentialsToken(ctx, user, pw.Password)
	if err != nil || !token.Valid() {
		errResp := &pgproto3.ErrorResponse{
			Severity: "FATAL",
			Code:     "28P01",
			Message:  fmt.Sprintf("OAuth token exchange failed for user %q", user),
		}
		if eb, encErr := errResp.Encode(nil); encErr == nil {
			_ = conn.Send(eb)
		}
		return fmt.Errorf("oauth: token exchange failed for %q: %w", user, err)
	}

	ok1, err := (&pgproto3.AuthenticationOk{}).Encode(nil)
	if err != nil {
		return err
	}
	return conn.Send(ok1)
}
