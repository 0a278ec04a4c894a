// Package ledger maintains per-session sat balances and the flags that
// hang off a session: the one-time bonus marker, the active withdraw
// link record, and the per-link processed-claim marker used for
// idempotent claim settlement.
package ledger

import (
	"context"
	"fmt"

	"github.com/artdesignbySF/MadameSatoshi/logging"
	"github.com/artdesignbySF/MadameSatoshi/pkg/providers"
	"github.com/rs/zerolog"
)

// Service exposes the session ledger. All balance mutation goes through
// Adjust; no other component writes balance keys directly.
type Service struct {
	store  providers.LedgerStore
	logger zerolog.Logger
}

// NewService creates a ledger service.
func NewService(store providers.LedgerStore, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "ledger").Logger(),
	}
}

func balanceKey(sessionID string) string     { return "balance_" + sessionID }
func bonusKey(sessionID string) string       { return "bonus_given_" + sessionID }
func activeLinkKey(sessionID string) string  { return "active_lnurl_" + sessionID }
func processedClaimKey(linkID string) string { return "processed_claim_" + linkID }
func depositCreditedKey(hash string) string  { return "deposit_credited_" + hash }

// Balance returns the current balance for a session. A session with no
// ledger entry has balance 0.
func (s *Service) Balance(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("session id required")
	}
	v, _, err := s.store.GetInt64(ctx, balanceKey(sessionID))
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, nil
	}
	return v, nil
}

// Adjust applies a signed delta to a session balance and returns the
// new balance. The result is floored at zero: a debit larger than the
// balance yields 0, not an error. This is a deliberate policy, not a
// guard against bugs; see the warning log for observability.
//
// Read-modify-write here is not safe across processes. Single-process
// deployment serializes settlements per request; horizontal scaling
// would need per-key CAS or external locking.
func (s *Service) Adjust(ctx context.Context, sessionID string, delta int64) (int64, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("session id required")
	}
	current, err := s.Balance(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	next := current + delta
	if next < 0 {
		s.logger.Warn().
			Str("session_id", logging.ShortID(sessionID)).
			Int64("balance", current).
			Int64("delta", delta).
			Msg("Balance adjustment clamped to zero")
		next = 0
	}
	if err := s.store.SetInt64(ctx, balanceKey(sessionID), next); err != nil {
		return 0, err
	}
	s.logger.Debug().
		Str("session_id", logging.ShortID(sessionID)).
		Int64("from", current).
		Int64("delta", delta).
		Int64("to", next).
		Msg("Balance updated")
	return next, nil
}

// BonusGranted reports whether the session already used its first-play
// bonus.
func (s *Service) BonusGranted(ctx context.Context, sessionID string) (bool, error) {
	return s.store.GetBool(ctx, bonusKey(sessionID))
}

// MarkBonusGranted records that the first-play bonus was used.
func (s *Service) MarkBonusGranted(ctx context.Context, sessionID string) error {
	return s.store.SetBool(ctx, bonusKey(sessionID), true)
}

// ActiveWithdrawLink returns the session's currently tracked withdraw
// link id, if any.
func (s *Service) ActiveWithdrawLink(ctx context.Context, sessionID string) (string, bool, error) {
	return s.store.GetString(ctx, activeLinkKey(sessionID))
}

// SetActiveWithdrawLink records a funded link as the session's active
// withdrawal. At most one link per session is tracked at a time.
func (s *Service) SetActiveWithdrawLink(ctx context.Context, sessionID, linkID string) error {
	return s.store.SetString(ctx, activeLinkKey(sessionID), linkID)
}

// ClearActiveWithdrawLink removes the active link record.
func (s *Service) ClearActiveWithdrawLink(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, activeLinkKey(sessionID))
}

// ClaimProcessed reports whether a withdraw link was already settled
// against the balance. The marker is persisted so a process restart
// cannot cause a second debit.
func (s *Service) ClaimProcessed(ctx context.Context, linkID string) (bool, error) {
	return s.store.GetBool(ctx, processedClaimKey(linkID))
}

// MarkClaimProcessed records that a link's claim has been settled.
func (s *Service) MarkClaimProcessed(ctx context.Context, linkID string) error {
	return s.store.SetBool(ctx, processedClaimKey(linkID), true)
}

// DepositCredited reports whether a deposit invoice was already
// credited to a balance.
func (s *Service) DepositCredited(ctx context.Context, paymentHash string) (bool, error) {
	return s.store.GetBool(ctx, depositCreditedKey(paymentHash))
}

// MarkDepositCredited records that a deposit invoice was credited.
func (s *Service) MarkDepositCredited(ctx context.Context, paymentHash string) error {
	return s.store.SetBool(ctx, depositCreditedKey(paymentHash), true)
}
