package server

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/artdesignbySF/MadameSatoshi/config"
	"github.com/artdesignbySF/MadameSatoshi/errors"
	"github.com/artdesignbySF/MadameSatoshi/logging"
	"github.com/artdesignbySF/MadameSatoshi/pkg/ledger"
	"github.com/artdesignbySF/MadameSatoshi/pkg/providers"
)

// WithdrawResult is the API payload for a freshly funded withdraw
// link.
type WithdrawResult struct {
	LNURL           string `json:"lnurl"`
	LinkID          string `json:"link_id"`
	WithdrawnAmount int64  `json:"withdrawn_amount"`
}

// ClaimResult reports whether a withdraw link has been claimed.
type ClaimResult struct {
	Claimed bool  `json:"claimed"`
	Amount  int64 `json:"amount,omitempty"`
}

// WithdrawService runs the LNURL-withdraw lifecycle. Generating a link
// is a small saga: reconcile and retire any earlier link, create the
// new one, fund it with an internal transfer, and persist it as the
// session's active link only once the funding settles. Any failure
// after link creation deletes the link again so the payout wallet
// never carries an unfunded promise.
type WithdrawService struct {
	cfg    *config.Config
	ledger *ledger.Service
	wallet providers.Wallet
	events providers.EventLog
	logger zerolog.Logger
}

// NewWithdrawService creates a withdraw service.
func NewWithdrawService(
	cfg *config.Config,
	ledgerSvc *ledger.Service,
	wallet providers.Wallet,
	events providers.EventLog,
	logger zerolog.Logger,
) *WithdrawService {
	return &WithdrawService{
		cfg:    cfg,
		ledger: ledgerSvc,
		wallet: wallet,
		events: events,
		logger: logger.With().Str("component", "withdraw_service").Logger(),
	}
}

// GenerateWithdrawLink creates and funds a single-use withdraw link.
// requestedAmount of zero withdraws the full balance; a positive
// amount withdraws exactly that many sats.
func (s *WithdrawService) GenerateWithdrawLink(ctx context.Context, sessionID string, requestedAmount int64) (*WithdrawResult, error) {
	if sessionID == "" {
		return nil, errors.New(errors.ErrSessionRequired, "Session ID is required")
	}
	if s.cfg.LNbits.PayoutAdminKey == "" || s.cfg.LNbits.AdminKey == "" {
		return nil, errors.New(errors.ErrWalletMisconfig, "Withdrawal service misconfigured")
	}

	log := s.logger.With().Str("session", logging.ShortID(sessionID)).Logger()

	if err := s.reconcilePriorLink(ctx, sessionID, log); err != nil {
		return nil, err
	}

	balance, err := s.ledger.Balance(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to fetch balance")
	}
	if balance <= 0 {
		return nil, errors.NewWithDebug(errors.ErrInsufficientBalance,
			"Insufficient balance.", "Balance is zero or negative.")
	}

	amount := balance
	if requestedAmount > 0 {
		if requestedAmount > balance {
			return nil, errors.NewWithDebug(errors.ErrInsufficientBalance,
				"Insufficient balance.",
				fmt.Sprintf("Requested %d sats, but only %d available.", requestedAmount, balance))
		}
		amount = requestedAmount
	}

	log.Info().Int64("amount_sats", amount).Msg("Generating withdraw link")

	link, err := s.wallet.CreateWithdrawLink(ctx, s.cfg.Withdrawal.LinkTitle, amount)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrWithdrawalFailed, "Failed to prepare withdrawal")
	}

	transferAmount := amount + s.cfg.Withdrawal.FeeSats(amount)
	memo := fmt.Sprintf("Funding LNURL %s for session %s (%d sats)", link.ID, logging.ShortID(sessionID), amount)

	if err := s.wallet.Transfer(ctx, s.cfg.LNbits.AdminKey, s.cfg.LNbits.PayoutAdminKey, transferAmount, memo); err != nil {
		s.compensate(ctx, sessionID, link.ID, log)
		if err == providers.ErrInsufficientFunds {
			log.Warn().Msg("Operator funding wallet low, withdrawal unavailable")
			return nil, errors.NewWithDebug(errors.ErrOperatorFundsLow,
				"Withdrawal Temporarily Unavailable", "Operator funding low. Please try again later.")
		}
		return nil, errors.Wrap(err, errors.ErrWithdrawalFailed, "Failed to prepare withdrawal")
	}

	if err := s.ledger.SetActiveWithdrawLink(ctx, sessionID, link.ID); err != nil {
		s.compensate(ctx, sessionID, link.ID, log)
		return nil, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to record withdrawal")
	}

	log.Info().
		Str("link_id", link.ID).
		Int64("amount_sats", amount).
		Int64("funded_sats", transferAmount).
		Msg("Withdraw link funded and active")

	s.audit(func() error {
		return s.events.LogWithdrawal(ctx, &providers.WithdrawalEvent{
			SessionID:  sessionID,
			LinkID:     link.ID,
			AmountSats: amount,
			Action:     "requested",
			Timestamp:  time.Now().UTC(),
		})
	})

	return &WithdrawResult{
		LNURL:           link.LNURL,
		LinkID:          link.ID,
		WithdrawnAmount: amount,
	}, nil
}

// reconcilePriorLink settles and retires a session's earlier active
// link before a new one is issued. The claim check runs first so a
// link that was claimed after the last poll still debits the balance.
func (s *WithdrawService) reconcilePriorLink(ctx context.Context, sessionID string, log zerolog.Logger) error {
	existingID, found, err := s.ledger.ActiveWithdrawLink(ctx, sessionID)
	if err != nil {
		return errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to check active withdrawal")
	}
	if !found {
		return nil
	}

	log.Info().Str("link_id", existingID).Msg("Reconciling prior withdraw link")

	if result, err := s.CheckClaim(ctx, existingID, sessionID); err != nil {
		log.Warn().Err(err).Str("link_id", existingID).Msg("Claim check of prior link failed, continuing")
	} else if result.Claimed {
		log.Info().Str("link_id", existingID).Msg("Prior link was claimed, balance reconciled")
	}

	if err := s.wallet.DeleteWithdrawLink(ctx, existingID); err != nil {
		log.Warn().Err(err).Str("link_id", existingID).Msg("Deletion of prior link failed, proceeding")
	}
	if err := s.ledger.ClearActiveWithdrawLink(ctx, sessionID); err != nil {
		return errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to clear prior withdrawal")
	}

	s.audit(func() error {
		return s.events.LogWithdrawal(ctx, &providers.WithdrawalEvent{
			SessionID: sessionID,
			LinkID:    existingID,
			Action:    "superseded",
			Timestamp: time.Now().UTC(),
		})
	})
	return nil
}

// compensate undoes a half-built withdrawal: the unfunded link is
// deleted and the active record cleared.
func (s *WithdrawService) compensate(ctx context.Context, sessionID, linkID string, log zerolog.Logger) {
	if err := s.wallet.DeleteWithdrawLink(ctx, linkID); err != nil {
		log.Error().Err(err).Str("link_id", linkID).Msg("Failed to delete unfunded withdraw link")
	}
	if err := s.ledger.ClearActiveWithdrawLink(ctx, sessionID); err != nil {
		log.Error().Err(err).Msg("Failed to clear active link record during rollback")
	}
}

// CheckClaim polls a withdraw link and, on first sight of a claim,
// debits the session balance. The per-link processed marker makes the
// debit idempotent across repeated polls.
func (s *WithdrawService) CheckClaim(ctx context.Context, linkID, sessionID string) (*ClaimResult, error) {
	if linkID == "" || sessionID == "" {
		return nil, errors.New(errors.ErrInvalidRequest, "Link ID and Session ID required")
	}

	log := s.logger.With().
		Str("session", logging.ShortID(sessionID)).
		Str("link_id", linkID).
		Logger()

	link, err := s.wallet.GetWithdrawLink(ctx, linkID)
	if err != nil {
		if err == providers.ErrNotFound {
			log.Debug().Msg("Withdraw link not found, treating as unclaimed")
			return &ClaimResult{Claimed: false}, nil
		}
		return nil, errors.Wrap(err, errors.ErrClaimCheckFailed, "Failed to check withdrawal status")
	}

	if link.Used < 1 {
		return &ClaimResult{Claimed: false}, nil
	}

	amount := link.MaxWithdrawable
	if amount > 0 {
		processed, err := s.ledger.ClaimProcessed(ctx, linkID)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to check claim state")
		}
		if processed {
			log.Debug().Msg("Claim already processed, skipping debit")
		} else {
			if _, err := s.ledger.Adjust(ctx, sessionID, -amount); err != nil {
				return nil, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to debit claim")
			}
			if err := s.ledger.MarkClaimProcessed(ctx, linkID); err != nil {
				return nil, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to mark claim processed")
			}
			log.Info().Int64("amount_sats", amount).Msg("Withdraw claim settled")

			s.audit(func() error {
				return s.events.LogWithdrawal(ctx, &providers.WithdrawalEvent{
					SessionID:  sessionID,
					LinkID:     linkID,
					AmountSats: amount,
					Action:     "claimed",
					Timestamp:  time.Now().UTC(),
				})
			})
		}

		storedID, found, err := s.ledger.ActiveWithdrawLink(ctx, sessionID)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to read active link")
		}
		if found && storedID == linkID {
			if err := s.ledger.ClearActiveWithdrawLink(ctx, sessionID); err != nil {
				return nil, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to clear active link")
			}
		} else if found {
			log.Warn().Str("stored_link_id", storedID).Msg("Claimed link does not match stored active link")
		}
	} else {
		log.Error().Msg("Could not determine claimed amount from link data, balance not updated")
	}

	return &ClaimResult{Claimed: true, Amount: amount}, nil
}

func (s *WithdrawService) audit(publish func() error) {
	if s.events == nil {
		return
	}
	if err := publish(); err != nil {
		s.logger.Warn().Err(err).Msg("Audit event not published")
	}
}
