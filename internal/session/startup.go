package session

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/irispgwire/internal/codec"
)

// runStartup drives StartupPending then AuthPending (spec §4.4). It leaves
// s.state at AuthPending on success (Run then moves it to ReadyForQuery) or
// Terminating on any failure/cancel.
func (s *Session) runStartup(ctx context.Context) error {
	for {
		result, err := s.conn.ReceiveStartup()
		if err != nil {
			s.state.Store(Terminating)
			return err
		}
		switch result.Kind {
		case codec.StartupSSL:
			if err := s.conn.RejectSSL(); err != nil {
				s.state.Store(Terminating)
				return err
			}
			continue
		case codec.StartupGSSEnc:
			if err := s.conn.RejectGSSEnc(); err != nil {
				s.state.Store(Terminating)
				return err
			}
			continue
		case codec.StartupCancel:
			s.handleOutOfBandCancel(result.ProcessID, result.SecretKey)
			s.state.Store(Terminating)
			return nil
		case codec.StartupPlain:
			s.user = result.Parameters["user"]
			s.database = result.Parameters["database"]
			if s.database == "" {
				s.database = s.user
			}
			return s.runAuth(ctx)
		}
	}
}

// handleOutOfBandCancel looks up (pid, secret) in the shared registry and,
// if it matches an active session, invokes that session's Cancel
// cooperatively (spec §4.1/§4.4: CancelRequest on a fresh connection with
// no reply, then close). A non-matching tuple is silently ignored.
func (s *Session) handleOutOfBandCancel(pid, secret uint32) {
	if s.registry != nil {
		s.registry.Cancel(pid, secret)
	}
}

func (s *Session) runAuth(ctx context.Context) error {
	s.state.Store(AuthPending)
	if s.cfg.Auth == nil {
		return s.failAuth("auth: no strategy configured")
	}
	authCtx := ctx
	var cancel context.CancelFunc
	if s.cfg.AuthTimeout > 0 {
		authCtx, cancel = context.WithTimeout(ctx, s.cfg.AuthTimeout)
		defer cancel()
	}
	if err := s.cfg.Auth.Authenticate(authCtx, s.conn, s.user); err != nil {
		s.state.Store(Terminating)
		return err
	}

	pid, secret, err := generateBackendKey()
	if err != nil {
		return s.failAuth(fmt.Sprintf("auth: generating backend key: %v", err))
	}
	s.processID = pid
	s.secretKey = secret
	if s.registry != nil {
		s.registry.Register(pid, secret, s)
	}

	keyData := &pgproto3.BackendKeyData{ProcessID: pid, SecretKey: secret}
	buf, err := keyData.Encode(nil)
	if err != nil {
		return err
	}
	if err := s.conn.Send(buf); err != nil {
		return err
	}

	for _, ps := range startupParameterStatus() {
		buf, err := (&pgproto3.ParameterStatus{Name: ps[0], Value: ps[1]}).Encode(nil)
		if err != nil {
			return err
		}
		if err := s.conn.Send(buf); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) failAuth(message string) error {
	errResp := &pgproto3.ErrorResponse{Severity: "FATAL", Code: "28P01", Message: message}
	if buf, err := errResp.Encode(nil); err == nil {
		_ = s.conn.Send(buf)
	}
	s.state.Store(Terminating)
	return fmt.Errorf("%s", message)
}

func generateBackendKey() (uint32, uint32, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, 0, err
	}
	return binary.BigEndian.Uint32(b[:4]), binary.BigEndian.Uint32(b[4:]), nil
}

func startupParameterStatus() [][2]string {
	return [][2]string{
		{"server_version", serverVersion},
		{"server_encoding", "UTF8"},
		{"client_encoding", "UTF8"},
		{"DateStyle", "ISO, MDY"},
		{"TimeZone", "UTC"},
		{"integer_datetimes", "on"},
		{"standard_conforming_strings", "on"},
	}
}
