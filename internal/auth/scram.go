package auth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/irispgwire/internal/codec"
	"github.com/xdg-go/scram"
)

const scramMechanism = "SCRAM-SHA-256"

// SCRAM authenticates clients via SCRAM-SHA-256 (RFC 5802/7677), backed by
// a CredentialSource (Wallet, or any future user table). Channel
// binding is declined (DESIGN.md Open Question decisions): the gateway
// only ever advertises "SCRAM-SHA-256", never the "-PLUS" variant.
//
// Grounded on other_examples/d4ccdc44_sausheong-pprox__handler.go.go's
// performSCRAMAuth for the message sequence (AuthenticationSASL ->
// SASLInitialResponse -> AuthenticationSASLContinue -> SASLResponse ->
// AuthenticationSASLFinal), with the conversation itself delegated to
// github.com/xdg-go/scram instead of a hand-rolled implementation.
type SCRAM struct {
	Credentials CredentialSource
}

func NewSCRAM(src CredentialSource) *SCRAM {
	return &SCRAM{Credentials: src}
}

func (s *SCRAM) Authenticate(ctx context.Context, conn *codec.Conn, user string) error {
	saslAuth := &pgproto3.AuthenticationSASL{AuthMechanisms: []string{scramMechanism}}
	buf, err := saslAuth.Encode(nil)
	if err != nil {
		return err
	}
	if err := conn.Send(buf); err != nil {
		return err
	}

	lookup := func(username string) (scram.StoredCredentials, error) {
		cred, err := s.Credentials.Lookup(ctx, username)
		if err != nil {
			// Fabricate credential material so the conversation runs to
			// completion and fails at proof verification rather than here,
			// avoiding a user-existence oracle.
			cred = fabricateCredential(username)
		}
		return scram.StoredCredentials{
			KeyFactors: scram.KeyFactors{Salt: string(cred.Salt), Iters: cred.Iters},
			StoredKey:  cred.StoredKey,
			ServerKey:  cred.ServerKey,
		}, nil
	}

	server, err := scram.SHA256.NewServer(lookup)
	if err != nil {
		return fmt.Errorf("scram: new server: %w", err)
	}
	conv := server.NewConversation()

	msg, err := conn.Receive()
	if err != nil {
		return fmt.Errorf("scram: receive initial response: %w", err)
	}
	initial, ok := msg.(*pgproto3.SASLInitialResponse)
	if !ok {
		return fmt.Errorf("scram: expected SASLInitialResponse, got %T", msg)
	}
	if initial.AuthMechanism != scramMechanism {
		return fmt.Errorf("scram: unsupported mechanism %q", initial.AuthMechanism)
	}

	serverFirst, err := conv.Step(string(initial.Data))
	if err != nil {
		return s.sendAuthFailure(conn, user, fmt.Errorf("client-first: %w", err))
	}
	cont := &pgproto3.AuthenticationSASLContinue{Data: []byte(serverFirst)}
	buf, err = cont.Encode(nil)
	if err != nil {
		return err
	}
	if err := conn.Send(buf); err != nil {
		return err
	}

	msg, err = conn.Receive()
	if err != nil {
		return fmt.Errorf("scram: receive final response: %w", err)
	}
	final, ok := msg.(*pgproto3.SASLResponse)
	if !ok {
		return fmt.Errorf("scram: expected SASLResponse, got %T", msg)
	}

	serverFinal, err := conv.Step(string(final.Data))
	if err != nil || !conv.Valid() {
		return s.sendAuthFailure(conn, user, fmt.Errorf("client-final: %w", err))
	}

	saslFinal := &pgproto3.AuthenticationSASLFinal{Data: []byte(serverFinal)}
	buf, err = saslFinal.Encode(nil)
	if err != nil {
		return err
	}
	if err := conn.Send(buf); err != nil {
		return err
	}

	ok1, err := (&pgproto3.AuthenticationOk{}).Encode(nil)
	if err != nil {
		return err
	}
	return conn.Send(ok1)
}

func (s *SCRAM) sendAuthFailure(conn *codec.Conn, user string, cause error) error {
	errResp := &pgproto3.ErrorResponse{
		Severity: "FATAL",
		Code:     "28P01",
		Message:  fmt.Sprintf("password authentication failed for user %q", user),
	}
	buf, encErr := errResp.Encode(nil)
	if encErr == nil {
		_ = conn.Send(buf)
	}
	return fmt.Errorf("scram: authentication failed for %q: %w", user, cause)
}

// fabricateCredential derives deterministic-looking but unusable key
// material for an unknown username, so SCRAM proof verification always
// fails the same way it would for a real user with the wrong password.
func fabricateCredential(username string) Credential {
	salt := []byte("no-such-user:" + username)
	return Credential{
		Username:  username,
		Salt:      salt,
		Iters:     4096,
		StoredKey: []byte(username + "-stored"),
		ServerKey: []byte(username + "-server"),
	}
}
