package session

import (
	"context"

	"github.com/mevdschee/irispgwire/internal/backend"
	"github.com/mevdschee/irispgwire/internal/translator"
)

// execTransactionVerb performs the IRIS-side exec and txState transition for
// one transaction-control statement (spec §4.4 steps 3-5), independent of
// which sub-protocol is driving it. It never touches the wire — callers
// send CommandComplete/ErrorResponse/NoticeResponse at the point their
// sub-protocol actually requires it (Simple Query sends them inline;
// Extended Query defers CommandComplete to the matching Execute message).
//
// warnCode/warnMsg, when non-empty, should be sent as a NoticeResponse
// alongside the returned tag rather than instead of it — PostgreSQL itself
// warns on a redundant BEGIN but still completes the command.
func (s *Session) execTransactionVerb(ctx context.Context, tc *translator.TransactionCommand) (tag, warnCode, warnMsg string, gwErr error) {
	switch tc.Verb {
	case translator.TxBegin:
		switch s.txState {
		case TxIdle:
			if _, err := s.cfg.Executor.ExecuteCommand(ctx, tc.SQL, nil); err != nil {
				return "", "", "", err
			}
			s.txState = TxInTx
			return "BEGIN", "", "", nil
		case TxInTx:
			return "BEGIN", "25001", "there is already a transaction in progress", nil
		default: // TxFailed
			return "", "", "", &backend.GatewayError{State: "25P02", Message: "current transaction is aborted"}
		}
	case translator.TxCommit:
		if s.txState == TxFailed {
			s.txState = TxIdle
			return "ROLLBACK", "", "", nil
		}
		if _, err := s.cfg.Executor.ExecuteCommand(ctx, tc.SQL, nil); err != nil {
			return "", "", "", err
		}
		s.txState = TxIdle
		return "COMMIT", "", "", nil
	case translator.TxRollback:
		if s.txState != TxIdle {
			// Rollback itself failing still returns the session to Idle;
			// there is nothing left to roll back to.
			_, _ = s.cfg.Executor.ExecuteCommand(ctx, tc.SQL, nil)
		}
		s.txState = TxIdle
		return "ROLLBACK", "", "", nil
	default: // SAVEPOINT / RELEASE pass through verbatim
		if _, err := s.cfg.Executor.ExecuteCommand(ctx, tc.SQL, nil); err != nil {
			return "", "", "", err
		}
		if tc.Verb == translator.TxRelease {
			return "RELEASE", "", "", nil
		}
		return "SAVEPOINT", "", "", nil
	}
}
