package auth

import (
	"context"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/irispgwire/internal/codec"
)

// Trust accepts every client without a credential exchange, matching
// PostgreSQL's pg_hba.conf "trust" method. Grounded on
// other_examples/bf227aab_ha1tch-aulsql__pkg-protocol-postgres-listener.go.go,
// which sends AuthenticationOk immediately after StartupMessage with no
// further round trip.
type Trust struct{}

func (Trust) Authenticate(_ context.Context, conn *codec.Conn, _ string) error {
	buf, err := (&pgproto3.AuthenticationOk{}).Encode(nil)
	if err != nil {
		return err
	}
	return conn.Send(buf)
}
