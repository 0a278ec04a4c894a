package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/artdesignbySF/MadameSatoshi/config"
	"github.com/artdesignbySF/MadameSatoshi/httpclient"
	"github.com/artdesignbySF/MadameSatoshi/pkg/providers"
)

// LNbitsProvider implements providers.Wallet against the LNbits REST
// API. Three clients carry different timeouts: status checks stay
// snappy, invoice and link creation get a bit longer, and outgoing
// payments get the longest window because routing can be slow.
type LNbitsProvider struct {
	check     *httpclient.Client
	invoice   *httpclient.Client
	payment   *httpclient.Client
	payoutKey string
	logger    zerolog.Logger
}

// NewLNbitsProvider creates a wallet provider from the LNbits config.
func NewLNbitsProvider(cfg *config.Config, logger zerolog.Logger) *LNbitsProvider {
	log := logger.With().Str("component", "lnbits_provider").Logger()
	base := strings.TrimRight(cfg.LNbits.BaseURL, "/")

	return &LNbitsProvider{
		check:     httpclient.New(httpclient.Config{BaseURL: base, Timeout: cfg.LNbits.CheckTimeout, Logger: log}),
		invoice:   httpclient.New(httpclient.Config{BaseURL: base, Timeout: cfg.LNbits.InvoiceTimeout, Logger: log}),
		payment:   httpclient.New(httpclient.Config{BaseURL: base, Timeout: cfg.LNbits.PaymentTimeout, Logger: log}),
		payoutKey: cfg.LNbits.PayoutAdminKey,
		logger:    log,
	}
}

func apiKey(key string) map[string]string {
	return map[string]string{"X-Api-Key": key}
}

// errorDetail pulls the "detail" field LNbits puts in error bodies.
func errorDetail(resp *httpclient.Response) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := resp.Unmarshal(&body); err != nil || body.Detail == "" {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return body.Detail
}

// CreateInvoice mints an incoming invoice on the wallet identified by
// walletKey.
func (p *LNbitsProvider) CreateInvoice(ctx context.Context, walletKey string, amountSats int64, memo string) (*providers.Invoice, error) {
	payload := map[string]interface{}{
		"out":    false,
		"amount": amountSats,
		"memo":   memo,
	}

	resp, err := p.invoice.Post(ctx, "/api/v1/payments", payload, apiKey(walletKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("invoice creation rejected: %s", errorDetail(resp))
	}

	var inv providers.Invoice
	if err := resp.Unmarshal(&inv); err != nil {
		return nil, fmt.Errorf("failed to decode invoice response: %w", err)
	}
	if inv.PaymentHash == "" || inv.PaymentRequest == "" {
		return nil, fmt.Errorf("invoice response missing payment_hash or payment_request")
	}

	p.logger.Debug().
		Str("payment_hash", shortHash(inv.PaymentHash)).
		Int64("amount_sats", amountSats).
		Msg("Invoice created")
	return &inv, nil
}

// CheckInvoice reports settlement state. LNbits answers 404 for a
// payment hash it has never seen; that reads as not paid.
func (p *LNbitsProvider) CheckInvoice(ctx context.Context, walletKey, paymentHash string) (*providers.InvoiceStatus, error) {
	resp, err := p.check.Get(ctx, "/api/v1/payments/"+paymentHash, apiKey(walletKey))
	if err != nil {
		return nil, fmt.Errorf("failed to check invoice: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return &providers.InvoiceStatus{Paid: false}, nil
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("invoice check rejected: %s", errorDetail(resp))
	}

	var body struct {
		Paid    bool `json:"paid"`
		Details struct {
			Amount int64 `json:"amount"`
		} `json:"details"`
	}
	if err := resp.Unmarshal(&body); err != nil {
		return nil, fmt.Errorf("failed to decode payment status: %w", err)
	}

	return &providers.InvoiceStatus{
		Paid:       body.Paid,
		AmountMsat: body.Details.Amount,
	}, nil
}

// PayInvoice pays a bolt11 invoice from the wallet identified by
// fromKey. An "insufficient balance" rejection maps to
// providers.ErrInsufficientFunds so callers can tell an underfunded
// operator wallet apart from a hard failure.
func (p *LNbitsProvider) PayInvoice(ctx context.Context, fromKey, bolt11 string) (string, error) {
	payload := map[string]interface{}{
		"out":    true,
		"bolt11": bolt11,
	}

	resp, err := p.payment.Post(ctx, "/api/v1/payments", payload, apiKey(fromKey))
	if err != nil {
		return "", fmt.Errorf("failed to pay invoice: %w", err)
	}

	detail := ""
	if !resp.IsSuccess() {
		detail = errorDetail(resp)
	}

	var body struct {
		PaymentHash string `json:"payment_hash"`
	}
	if resp.IsSuccess() {
		if err := resp.Unmarshal(&body); err != nil {
			return "", fmt.Errorf("failed to decode payment response: %w", err)
		}
	}

	if body.PaymentHash == "" {
		if strings.Contains(strings.ToLower(detail), "insufficient balance") {
			return "", providers.ErrInsufficientFunds
		}
		if detail == "" {
			detail = "payment failed (no payment_hash)"
		}
		return "", fmt.Errorf("payment rejected: %s", detail)
	}

	p.logger.Debug().
		Str("payment_hash", shortHash(body.PaymentHash)).
		Msg("Payment sent")
	return body.PaymentHash, nil
}

// Transfer moves sats between operator wallets by minting an invoice
// on the receiving wallet and paying it from the sending one.
func (p *LNbitsProvider) Transfer(ctx context.Context, fromKey, toInvoiceKey string, amountSats int64, memo string) error {
	inv, err := p.CreateInvoice(ctx, toInvoiceKey, amountSats, memo)
	if err != nil {
		return fmt.Errorf("transfer invoice failed: %w", err)
	}

	if _, err := p.PayInvoice(ctx, fromKey, inv.PaymentRequest); err != nil {
		if err == providers.ErrInsufficientFunds {
			return err
		}
		return fmt.Errorf("transfer payment failed: %w", err)
	}

	p.logger.Info().
		Int64("amount_sats", amountSats).
		Str("memo", memo).
		Msg("Internal transfer completed")
	return nil
}

// CreateWithdrawLink creates a single-use LNURL-withdraw link on the
// payout wallet, sized exactly to amountSats.
func (p *LNbitsProvider) CreateWithdrawLink(ctx context.Context, title string, amountSats int64) (*providers.WithdrawLink, error) {
	payload := map[string]interface{}{
		"title":            title,
		"min_withdrawable": amountSats,
		"max_withdrawable": amountSats,
		"uses":             1,
		"wait_time":        1,
		"is_unique":        true,
	}

	resp, err := p.invoice.Post(ctx, "/withdraw/api/v1/links", payload, apiKey(p.payoutKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create withdraw link: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("withdraw link creation rejected: %s", errorDetail(resp))
	}

	var link providers.WithdrawLink
	if err := resp.Unmarshal(&link); err != nil {
		return nil, fmt.Errorf("failed to decode withdraw link: %w", err)
	}
	if link.ID == "" || link.LNURL == "" {
		return nil, fmt.Errorf("withdraw link response missing id or lnurl")
	}

	p.logger.Info().
		Str("link_id", link.ID).
		Int64("amount_sats", amountSats).
		Msg("Withdraw link created")
	return &link, nil
}

// DeleteWithdrawLink removes a link. 404 counts as success because a
// link that is already gone is the state we want.
func (p *LNbitsProvider) DeleteWithdrawLink(ctx context.Context, linkID string) error {
	resp, err := p.invoice.Delete(ctx, "/withdraw/api/v1/links/"+linkID, apiKey(p.payoutKey))
	if err != nil {
		return fmt.Errorf("failed to delete withdraw link: %w", err)
	}
	if !resp.IsSuccess() && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("withdraw link deletion rejected: %s", errorDetail(resp))
	}
	return nil
}

// GetWithdrawLink fetches link state from the payout wallet.
func (p *LNbitsProvider) GetWithdrawLink(ctx context.Context, linkID string) (*providers.WithdrawLink, error) {
	resp, err := p.check.Get(ctx, "/withdraw/api/v1/links/"+linkID, apiKey(p.payoutKey))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch withdraw link: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, providers.ErrNotFound
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("withdraw link fetch rejected: %s", errorDetail(resp))
	}

	var link providers.WithdrawLink
	if err := resp.Unmarshal(&link); err != nil {
		return nil, fmt.Errorf("failed to decode withdraw link: %w", err)
	}
	return &link, nil
}

func shortHash(h string) string {
	if len(h) > 10 {
		return h[:10] + "..."
	}
	return h
}
