package providers

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Wallet lookups when the remote resource
// (invoice or withdraw link) does not exist. Callers usually treat it
// as a benign "not yet happened" rather than a failure.
var ErrNotFound = errors.New("wallet resource not found")

// ErrInsufficientFunds is returned when the funding wallet cannot cover
// an outgoing payment. It is kept distinct so callers can surface a
// "temporarily unavailable" message instead of a generic failure.
var ErrInsufficientFunds = errors.New("operator wallet has insufficient funds")

// LedgerStore is the durable key-value persistence backing balances,
// the jackpot pool, and idempotency flags. Missing keys read as zero
// values with found=false, never as errors.
type LedgerStore interface {
	GetInt64(ctx context.Context, key string) (int64, bool, error)
	SetInt64(ctx context.Context, key string, value int64) error
	GetBool(ctx context.Context, key string) (bool, error)
	SetBool(ctx context.Context, key string, value bool) error
	GetString(ctx context.Context, key string) (string, bool, error)
	SetString(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// Invoice is a freshly created Lightning invoice.
type Invoice struct {
	PaymentHash    string `json:"payment_hash"`
	PaymentRequest string `json:"payment_request"`
}

// InvoiceStatus is the settlement state of an invoice. AmountMsat is
// the amount actually paid, in millisatoshis, as reported by the
// wallet provider.
type InvoiceStatus struct {
	Paid       bool  `json:"paid"`
	AmountMsat int64 `json:"amount_msat"`
}

// WithdrawLink is a single-use LNURL-withdraw resource.
type WithdrawLink struct {
	ID              string `json:"id"`
	LNURL           string `json:"lnurl"`
	Used            int    `json:"used"`
	MaxWithdrawable int64  `json:"max_withdrawable"`
}

// Wallet wraps the remote Lightning payment processor. Wallet keys are
// passed per call because operations span several operator wallets
// (main, payout, profit).
type Wallet interface {
	// CreateInvoice mints an incoming invoice on the wallet identified
	// by walletKey.
	CreateInvoice(ctx context.Context, walletKey string, amountSats int64, memo string) (*Invoice, error)

	// CheckInvoice reports settlement state. An unknown payment hash
	// reports Paid=false, not an error.
	CheckInvoice(ctx context.Context, walletKey, paymentHash string) (*InvoiceStatus, error)

	// PayInvoice pays a bolt11 invoice from the wallet identified by
	// fromKey and returns the payment hash. Returns
	// ErrInsufficientFunds when that wallet cannot cover it.
	PayInvoice(ctx context.Context, fromKey, bolt11 string) (string, error)

	// Transfer moves sats between two operator wallets by minting an
	// invoice on the receiving wallet and paying it from the sending
	// one.
	Transfer(ctx context.Context, fromKey, toInvoiceKey string, amountSats int64, memo string) error

	// CreateWithdrawLink creates a single-use withdraw link sized
	// exactly to amountSats on the payout wallet.
	CreateWithdrawLink(ctx context.Context, title string, amountSats int64) (*WithdrawLink, error)

	// DeleteWithdrawLink removes a link. A link that is already gone
	// is treated as success.
	DeleteWithdrawLink(ctx context.Context, linkID string) error

	// GetWithdrawLink fetches link state. Returns ErrNotFound when the
	// link does not exist.
	GetWithdrawLink(ctx context.Context, linkID string) (*WithdrawLink, error)
}

// PlayEvent is an audit record for one settled play.
type PlayEvent struct {
	SessionID string    `json:"session_id"`
	Cards     []string  `json:"cards"`
	SatsWon   int64     `json:"sats_won"`
	IsJackpot bool      `json:"is_jackpot"`
	IsBonus   bool      `json:"is_bonus"`
	Balance   int64     `json:"balance"`
	Pool      int64     `json:"pool"`
	Timestamp time.Time `json:"timestamp"`
}

// WithdrawalEvent is an audit record for withdrawal lifecycle steps.
type WithdrawalEvent struct {
	SessionID  string    `json:"session_id"`
	LinkID     string    `json:"link_id"`
	AmountSats int64     `json:"amount_sats"`
	Action     string    `json:"action"` // "requested", "claimed", "superseded"
	Timestamp  time.Time `json:"timestamp"`
}

// DepositEvent is an audit record for a credited deposit.
type DepositEvent struct {
	SessionID   string    `json:"session_id"`
	PaymentHash string    `json:"payment_hash"`
	AmountSats  int64     `json:"amount_sats"`
	Timestamp   time.Time `json:"timestamp"`
}

// EventLog publishes audit events. Implementations are best-effort:
// a logging failure must never fail the settlement that produced it.
type EventLog interface {
	LogPlay(ctx context.Context, event *PlayEvent) error
	LogWithdrawal(ctx context.Context, event *WithdrawalEvent) error
	LogDeposit(ctx context.Context, event *DepositEvent) error
}
