// Package codec wraps jackc/pgx/v5's pgproto3 wire-protocol encoder/decoder
// and pgtype type registry into the framing and type-conversion layer the
// session state machine builds on (spec §4.1).
package codec

import (
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/jackc/pgx/v5/pgtype"
)

// sslRequestCode and gssEncRequestCode are the magic protocol-version values
// PostgreSQL clients send in place of a real startup message to negotiate
// TLS/GSSAPI before falling back to a plain StartupMessage.
const (
	sslRequestCode    = 80877103
	gssEncRequestCode = 80877104
)

// StartupKind distinguishes which variant of the startup handshake a client
// opened with (spec §4.1 Startup).
type StartupKind int

const (
	StartupPlain StartupKind = iota
	StartupSSL
	StartupGSSEnc
	StartupCancel
)

// StartupResult is what ReceiveStartup reports back to the listener/session.
type StartupResult struct {
	Kind       StartupKind
	Parameters map[string]string // set when Kind == StartupPlain
	ProcessID  uint32            // set when Kind == StartupCancel
	SecretKey  uint32            // set when Kind == StartupCancel
}

// Conn wraps one client TCP connection: the pgproto3 Backend transport, a
// pgtype registry (extended with the vector codec), and the maximum frame
// size the gateway is willing to buffer.
type Conn struct {
	net.Conn
	backend      *pgproto3.Backend
	TypeMap      *pgtype.Map
	maxFrameSize int
}

// NewConn constructs a Conn over an already-accepted TCP connection.
// maxFrameSize bounds the SQL text of a Query or Parse message (spec §4.1
// framing limits); the session answers a larger one with
// PROTOCOL_VIOLATION and disconnects. Zero means no limit.
func NewConn(nc net.Conn, maxFrameSize int, vectorOID uint32) *Conn {
	backend := pgproto3.NewBackend(nc, nc)
	tm := pgtype.NewMap()
	RegisterVectorType(tm, vectorOID)
	return &Conn{Conn: nc, backend: backend, TypeMap: tm, maxFrameSize: maxFrameSize}
}

// MaxFrameSize reports the configured limit; the session checks
// Query.String and Parse.Query against it after the message is read and
// raises PROTOCOL_VIOLATION, since pgproto3 does not expose a hook to reject
// an oversized frame before fully buffering it. CopyData is not checked.
func (c *Conn) MaxFrameSize() int { return c.maxFrameSize }

// ReceiveStartup reads the very first frame on the wire and classifies it
// (spec §4.1: SSLRequest / GSSENCRequest / CancelRequest / StartupMessage).
func (c *Conn) ReceiveStartup() (StartupResult, error) {
	msg, err := c.backend.ReceiveStartupMessage()
	if err != nil {
		return StartupResult{}, fmt.Errorf("receiving startup message: %w", err)
	}
	switch m := msg.(type) {
	case *pgproto3.StartupMessage:
		return StartupResult{Kind: StartupPlain, Parameters: m.Parameters}, nil
	case *pgproto3.SSLRequest:
		return StartupResult{Kind: StartupSSL}, nil
	case *pgproto3.GSSEncRequest:
		return StartupResult{Kind: StartupGSSEnc}, nil
	case *pgproto3.CancelRequest:
		return StartupResult{Kind: StartupCancel, ProcessID: m.ProcessID, SecretKey: m.SecretKey}, nil
	default:
		return StartupResult{}, fmt.Errorf("unexpected startup message type %T", msg)
	}
}

// RejectSSL tells the client we will not upgrade to TLS; the client is
// expected to retry the handshake in plaintext (or GSSAPI, or give up).
func (c *Conn) RejectSSL() error {
	_, err := c.Write([]byte{'N'})
	return err
}

// RejectGSSEnc mirrors RejectSSL for the GSSAPI encryption negotiation.
func (c *Conn) RejectGSSEnc() error {
	_, err := c.Write([]byte{'N'})
	return err
}

// Receive reads the next frontend message once the connection is past the
// startup handshake (Simple/Extended Query protocol messages, Terminate,
// CopyData, etc).
func (c *Conn) Receive() (pgproto3.FrontendMessage, error) {
	return c.backend.Receive()
}

// Send writes one or more already-buffered backend messages. Callers
// accumulate a []byte via repeated msg.Encode(buf) and flush with Send.
func (c *Conn) Send(buf []byte) error {
	_, err := c.Write(buf)
	return err
}
