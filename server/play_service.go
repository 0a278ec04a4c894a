package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/artdesignbySF/MadameSatoshi/config"
	"github.com/artdesignbySF/MadameSatoshi/errors"
	"github.com/artdesignbySF/MadameSatoshi/logging"
	"github.com/artdesignbySF/MadameSatoshi/pkg/fortune"
	"github.com/artdesignbySF/MadameSatoshi/pkg/jackpot"
	"github.com/artdesignbySF/MadameSatoshi/pkg/ledger"
	"github.com/artdesignbySF/MadameSatoshi/pkg/providers"
)

// DrawResult is the API payload for a settled draw.
type DrawResult struct {
	Cards            []fortune.Card `json:"cards"`
	Fortune          string         `json:"fortune"`
	SatsWonThisRound int64          `json:"sats_won_this_round"`
	UserBalance      int64          `json:"user_balance"`
	CurrentJackpot   int64          `json:"current_jackpot"`
}

// PlayService settles draws against the ledger and the jackpot pool.
// Each draw funds the pool with the stake contribution, evaluates the
// spread, and credits any win to the session balance. The one-time
// first-play bonus and the operator profit share both live here so the
// invoice-funded and balance-funded paths behave identically.
type PlayService struct {
	cfg    *config.Config
	ledger *ledger.Service
	pool   *jackpot.Service
	engine *fortune.Engine
	wallet providers.Wallet
	events providers.EventLog
	logger zerolog.Logger
}

// NewPlayService creates a play service.
func NewPlayService(
	cfg *config.Config,
	ledgerSvc *ledger.Service,
	poolSvc *jackpot.Service,
	engine *fortune.Engine,
	wallet providers.Wallet,
	events providers.EventLog,
	logger zerolog.Logger,
) *PlayService {
	return &PlayService{
		cfg:    cfg,
		ledger: ledgerSvc,
		pool:   poolSvc,
		engine: engine,
		wallet: wallet,
		events: events,
		logger: logger.With().Str("component", "play_service").Logger(),
	}
}

// NewSession mints a fresh session identifier. Sessions are anonymous;
// the identifier is the only credential.
func (s *PlayService) NewSession() string {
	id := uuid.New().String()
	s.logger.Info().Str("session", logging.ShortID(id)).Msg("Session created")
	return id
}

// Balance reads the current session balance.
func (s *PlayService) Balance(ctx context.Context, sessionID string) (int64, error) {
	balance, err := s.ledger.Balance(ctx, sessionID)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to fetch balance")
	}
	return balance, nil
}

// CreatePlayInvoice mints a stake-sized invoice on the operator's main
// wallet.
func (s *PlayService) CreatePlayInvoice(ctx context.Context) (*providers.Invoice, error) {
	inv, err := s.wallet.CreateInvoice(ctx, s.cfg.LNbits.InvoiceKey, s.cfg.Game.StakeSats, s.cfg.Game.InvoiceMemo)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrWalletUnavailable, "Failed to create invoice")
	}
	return inv, nil
}

// CreateDepositInvoice mints a deposit invoice for an arbitrary
// positive amount.
func (s *PlayService) CreateDepositInvoice(ctx context.Context, sessionID string, amountSats int64) (*providers.Invoice, error) {
	if amountSats <= 0 {
		return nil, errors.New(errors.ErrInvalidAmount, "Deposit amount must be positive")
	}

	memo := fmt.Sprintf("Deposit %d sats for Madame Satoshi (Session: %s)", amountSats, logging.ShortID(sessionID))
	inv, err := s.wallet.CreateInvoice(ctx, s.cfg.LNbits.InvoiceKey, amountSats, memo)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrWalletUnavailable, "Failed to create deposit invoice")
	}
	return inv, nil
}

// CheckInvoice reports whether an invoice settled, with the amount in
// sats.
func (s *PlayService) CheckInvoice(ctx context.Context, paymentHash string) (bool, int64, error) {
	if paymentHash == "" {
		return false, 0, errors.New(errors.ErrInvalidPaymentHash, "Payment hash is required")
	}

	status, err := s.wallet.CheckInvoice(ctx, s.cfg.LNbits.InvoiceKey, paymentHash)
	if err != nil {
		return false, 0, errors.Wrap(err, errors.ErrWalletUnavailable, "Failed to check invoice")
	}
	return status.Paid, status.AmountMsat / 1000, nil
}

// ConfirmDeposit credits a settled deposit invoice to the session
// balance exactly once. The payment hash doubles as the idempotency
// key, so retries and double-submits cannot credit twice.
func (s *PlayService) ConfirmDeposit(ctx context.Context, sessionID, paymentHash string) (int64, error) {
	if paymentHash == "" {
		return 0, errors.New(errors.ErrInvalidPaymentHash, "Payment hash is required")
	}

	credited, err := s.ledger.DepositCredited(ctx, paymentHash)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to check deposit state")
	}
	if credited {
		s.logger.Info().
			Str("session", logging.ShortID(sessionID)).
			Str("payment_hash", logging.ShortID(paymentHash)).
			Msg("Deposit already credited, returning current balance")
		return s.Balance(ctx, sessionID)
	}

	status, err := s.wallet.CheckInvoice(ctx, s.cfg.LNbits.InvoiceKey, paymentHash)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrWalletUnavailable, "Failed to verify deposit")
	}
	if !status.Paid {
		return 0, errors.New(errors.ErrInvalidPaymentHash, "Deposit invoice is not paid")
	}

	amountSats := status.AmountMsat / 1000
	if amountSats <= 0 {
		return 0, errors.New(errors.ErrInvalidAmount, "Deposit amount is zero")
	}

	balance, err := s.ledger.Adjust(ctx, sessionID, amountSats)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to credit deposit")
	}
	if err := s.ledger.MarkDepositCredited(ctx, paymentHash); err != nil {
		return 0, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to mark deposit credited")
	}

	s.logger.Info().
		Str("session", logging.ShortID(sessionID)).
		Int64("amount_sats", amountSats).
		Int64("balance", balance).
		Msg("Deposit credited")

	s.audit(func() error {
		return s.events.LogDeposit(ctx, &providers.DepositEvent{
			SessionID:   sessionID,
			PaymentHash: paymentHash,
			AmountSats:  amountSats,
			Timestamp:   time.Now().UTC(),
		})
	})

	return balance, nil
}

// Draw settles an invoice-funded play. The stake already arrived on
// the operator wallet over Lightning, so no balance debit happens
// here.
func (s *PlayService) Draw(ctx context.Context, sessionID string) (*DrawResult, error) {
	if sessionID == "" {
		return nil, errors.New(errors.ErrSessionRequired, "Session ID is required")
	}
	return s.settle(ctx, sessionID)
}

// DrawFromBalance settles a play funded from the session balance. The
// stake is debited up front; the rest of the settlement is identical
// to the invoice path.
func (s *PlayService) DrawFromBalance(ctx context.Context, sessionID string) (*DrawResult, error) {
	if sessionID == "" {
		return nil, errors.New(errors.ErrSessionRequired, "Session ID is required")
	}

	stake := s.cfg.Game.StakeSats
	balance, err := s.ledger.Balance(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to fetch balance")
	}
	if balance < stake {
		return nil, errors.New(errors.ErrInsufficientBalance,
			fmt.Sprintf("Insufficient balance. Requires %d sats.", stake))
	}

	if _, err := s.ledger.Adjust(ctx, sessionID, -stake); err != nil {
		return nil, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to debit stake")
	}

	return s.settle(ctx, sessionID)
}

// settle runs the draw lifecycle shared by both funding paths.
func (s *PlayService) settle(ctx context.Context, sessionID string) (*DrawResult, error) {
	granted, err := s.ledger.BonusGranted(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to check bonus state")
	}
	if !granted {
		return s.settleBonus(ctx, sessionID)
	}
	return s.settleRegular(ctx, sessionID)
}

// settleBonus plays the one-time first draw: a fixed tableau, the
// stake handed back, and the pool credited then debited by the stake
// so observers see both mutations while the pool nets zero.
func (s *PlayService) settleBonus(ctx context.Context, sessionID string) (*DrawResult, error) {
	stake := s.cfg.Game.StakeSats

	if _, err := s.pool.Adjust(ctx, stake); err != nil {
		return nil, errors.Wrap(err, errors.ErrDrawFailed, "Failed to credit pool")
	}
	poolValue, err := s.pool.Adjust(ctx, -stake)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDrawFailed, "Failed to debit pool")
	}

	balance, err := s.ledger.Adjust(ctx, sessionID, stake)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to credit bonus")
	}
	if err := s.ledger.MarkBonusGranted(ctx, sessionID); err != nil {
		return nil, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to mark bonus granted")
	}

	cards := fortune.BonusTableau()
	fortuneText := fmt.Sprintf("Beginner's luck! Madame Satoshi returns your %d sat stake! Use it wisely...", stake)

	s.logger.Info().
		Str("session", logging.ShortID(sessionID)).
		Int64("sats_won", stake).
		Msg("First play bonus awarded")

	s.audit(func() error {
		return s.events.LogPlay(ctx, &providers.PlayEvent{
			SessionID: sessionID,
			Cards:     cardNames(cards),
			SatsWon:   stake,
			IsBonus:   true,
			Balance:   balance,
			Pool:      poolValue,
			Timestamp: time.Now().UTC(),
		})
	})

	return &DrawResult{
		Cards:            cards,
		Fortune:          fortuneText,
		SatsWonThisRound: stake,
		UserBalance:      balance,
		CurrentJackpot:   poolValue,
	}, nil
}

func (s *PlayService) settleRegular(ctx context.Context, sessionID string) (*DrawResult, error) {
	contribution := s.cfg.Game.ContributionSats()
	poolValue, err := s.pool.Adjust(ctx, contribution)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDrawFailed, "Failed to fund pool")
	}

	s.transferProfitShare(ctx, sessionID)

	cards := s.engine.DrawThree()
	result := s.engine.Evaluate(cards, poolValue, s.pool.MinSeed())

	fortuneText := result.Fortune
	if result.Clamped {
		fortuneText += " (Pool limit reached)"
	}

	balance, err := s.ledger.Balance(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to fetch balance")
	}

	if result.SatsWon > 0 {
		poolValue, err = s.pool.Adjust(ctx, -result.SatsWon)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrDrawFailed, "Failed to debit pool")
		}
		balance, err = s.ledger.Adjust(ctx, sessionID, result.SatsWon)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrLedgerStoreError, "Failed to credit win")
		}
	}

	s.logger.Info().
		Str("session", logging.ShortID(sessionID)).
		Strs("cards", cardNames(cards)).
		Int64("sats_won", result.SatsWon).
		Bool("jackpot", result.IsJackpot).
		Int64("balance", balance).
		Int64("pool", poolValue).
		Msg("Draw settled")

	s.audit(func() error {
		return s.events.LogPlay(ctx, &providers.PlayEvent{
			SessionID: sessionID,
			Cards:     cardNames(cards),
			SatsWon:   result.SatsWon,
			IsJackpot: result.IsJackpot,
			Balance:   balance,
			Pool:      poolValue,
			Timestamp: time.Now().UTC(),
		})
	})

	return &DrawResult{
		Cards:            cards,
		Fortune:          fortuneText,
		SatsWonThisRound: result.SatsWon,
		UserBalance:      balance,
		CurrentJackpot:   poolValue,
	}, nil
}

// transferProfitShare moves the flat per-play operator cut to the
// profit wallet. Strictly best-effort: the draw proceeds whatever
// happens here.
func (s *PlayService) transferProfitShare(ctx context.Context, sessionID string) {
	amount := s.cfg.Game.ProfitShareSats
	if amount <= 0 || s.cfg.LNbits.ProfitAdminKey == "" {
		return
	}

	memo := fmt.Sprintf("Profit from session %s", logging.ShortID(sessionID))
	if err := s.wallet.Transfer(ctx, s.cfg.LNbits.AdminKey, s.cfg.LNbits.ProfitAdminKey, amount, memo); err != nil {
		if err == providers.ErrInsufficientFunds {
			s.logger.Error().Msg("Profit transfer failed: operator main wallet has insufficient funds")
		} else {
			s.logger.Error().Err(err).Msg("Profit transfer failed, game will proceed")
		}
		return
	}
	s.logger.Debug().Int64("amount_sats", amount).Msg("Profit share transferred")
}

func (s *PlayService) audit(publish func() error) {
	if s.events == nil {
		return
	}
	if err := publish(); err != nil {
		s.logger.Warn().Err(err).Msg("Audit event not published")
	}
}

func cardNames(cards []fortune.Card) []string {
	return lo.Map(cards, func(c fortune.Card, _ int) string { return c.Name })
}
