package server

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/artdesignbySF/MadameSatoshi/config"
	"github.com/artdesignbySF/MadameSatoshi/errors"
	"github.com/artdesignbySF/MadameSatoshi/pkg/fortune"
	"github.com/artdesignbySF/MadameSatoshi/pkg/jackpot"
	"github.com/artdesignbySF/MadameSatoshi/pkg/ledger"
	"github.com/artdesignbySF/MadameSatoshi/pkg/providers"
)

// memStore is an in-memory LedgerStore shared by the service tests.
type memStore struct {
	ints    map[string]int64
	bools   map[string]bool
	strings map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		ints:    make(map[string]int64),
		bools:   make(map[string]bool),
		strings: make(map[string]string),
	}
}

func (m *memStore) GetInt64(_ context.Context, key string) (int64, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *memStore) SetInt64(_ context.Context, key string, value int64) error {
	m.ints[key] = value
	return nil
}

func (m *memStore) GetBool(_ context.Context, key string) (bool, error) {
	return m.bools[key], nil
}

func (m *memStore) SetBool(_ context.Context, key string, value bool) error {
	m.bools[key] = value
	return nil
}

func (m *memStore) GetString(_ context.Context, key string) (string, bool, error) {
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *memStore) SetString(_ context.Context, key string, value string) error {
	m.strings[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.ints, key)
	delete(m.bools, key)
	delete(m.strings, key)
	return nil
}

// mockWallet is a testify mock of the Wallet provider.
type mockWallet struct {
	mock.Mock
}

func (m *mockWallet) CreateInvoice(ctx context.Context, walletKey string, amountSats int64, memo string) (*providers.Invoice, error) {
	args := m.Called(ctx, walletKey, amountSats, memo)
	if inv, ok := args.Get(0).(*providers.Invoice); ok {
		return inv, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockWallet) CheckInvoice(ctx context.Context, walletKey, paymentHash string) (*providers.InvoiceStatus, error) {
	args := m.Called(ctx, walletKey, paymentHash)
	if status, ok := args.Get(0).(*providers.InvoiceStatus); ok {
		return status, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockWallet) PayInvoice(ctx context.Context, fromKey, bolt11 string) (string, error) {
	args := m.Called(ctx, fromKey, bolt11)
	return args.String(0), args.Error(1)
}

func (m *mockWallet) Transfer(ctx context.Context, fromKey, toInvoiceKey string, amountSats int64, memo string) error {
	args := m.Called(ctx, fromKey, toInvoiceKey, amountSats, memo)
	return args.Error(0)
}

func (m *mockWallet) CreateWithdrawLink(ctx context.Context, title string, amountSats int64) (*providers.WithdrawLink, error) {
	args := m.Called(ctx, title, amountSats)
	if link, ok := args.Get(0).(*providers.WithdrawLink); ok {
		return link, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockWallet) DeleteWithdrawLink(ctx context.Context, linkID string) error {
	args := m.Called(ctx, linkID)
	return args.Error(0)
}

func (m *mockWallet) GetWithdrawLink(ctx context.Context, linkID string) (*providers.WithdrawLink, error) {
	args := m.Called(ctx, linkID)
	if link, ok := args.Get(0).(*providers.WithdrawLink); ok {
		return link, args.Error(1)
	}
	return nil, args.Error(1)
}

// recordingEventLog captures audit events for assertions.
type recordingEventLog struct {
	plays       []*providers.PlayEvent
	withdrawals []*providers.WithdrawalEvent
	deposits    []*providers.DepositEvent
}

func (r *recordingEventLog) LogPlay(_ context.Context, event *providers.PlayEvent) error {
	r.plays = append(r.plays, event)
	return nil
}

func (r *recordingEventLog) LogWithdrawal(_ context.Context, event *providers.WithdrawalEvent) error {
	r.withdrawals = append(r.withdrawals, event)
	return nil
}

func (r *recordingEventLog) LogDeposit(_ context.Context, event *providers.DepositEvent) error {
	r.deposits = append(r.deposits, event)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		LNbits: config.LNbitsConfig{
			BaseURL:        "https://lnbits.example.com",
			InvoiceKey:     "invoice-key",
			AdminKey:       "admin-key",
			PayoutAdminKey: "payout-key",
			ProfitAdminKey: "profit-key",
		},
		Game: config.GameConfig{
			StakeSats:        21,
			ContributionRate: 0.8,
			MinJackpotSeed:   500,
			ProfitShareSats:  4,
			InvoiceMemo:      "Madame Satoshi Reading",
		},
		Withdrawal: config.WithdrawalConfig{
			LinkTitle:  "Madame Satoshi Winnings",
			FeeRate:    0.02,
			FeeMinSats: 2,
		},
	}
}

type playFixture struct {
	svc    *PlayService
	store  *memStore
	ledger *ledger.Service
	pool   *jackpot.Service
	wallet *mockWallet
	events *recordingEventLog
	cfg    *config.Config
}

func newPlayFixture(t *testing.T) *playFixture {
	t.Helper()
	cfg := testConfig()
	store := newMemStore()
	wallet := &mockWallet{}
	events := &recordingEventLog{}

	ledgerSvc := ledger.NewService(store, zerolog.Nop())
	poolSvc := jackpot.NewService(jackpot.ServiceConfig{
		Store:   store,
		MinSeed: cfg.Game.MinJackpotSeed,
		Logger:  zerolog.Nop(),
	})
	store.ints[jackpot.DefaultKey] = cfg.Game.MinJackpotSeed

	svc := NewPlayService(cfg, ledgerSvc, poolSvc, fortune.NewEngineWithSeed(1), wallet, events, zerolog.Nop())
	return &playFixture{
		svc:    svc,
		store:  store,
		ledger: ledgerSvc,
		pool:   poolSvc,
		wallet: wallet,
		events: events,
		cfg:    cfg,
	}
}

func (f *playFixture) grantBonus(t *testing.T, sessionID string) {
	t.Helper()
	require.NoError(t, f.ledger.MarkBonusGranted(context.Background(), sessionID))
}

func TestNewSessionReturnsUniqueIDs(t *testing.T) {
	f := newPlayFixture(t)

	a := f.svc.NewSession()
	b := f.svc.NewSession()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestDrawRequiresSession(t *testing.T) {
	f := newPlayFixture(t)

	_, err := f.svc.Draw(context.Background(), "")
	assert.Equal(t, errors.ErrSessionRequired, errors.GetCode(err))
}

func TestFirstDrawAwardsBonus(t *testing.T) {
	f := newPlayFixture(t)
	ctx := context.Background()

	result, err := f.svc.Draw(ctx, "session-1")
	require.NoError(t, err)

	assert.Equal(t, int64(21), result.SatsWonThisRound)
	assert.Equal(t, int64(21), result.UserBalance)
	assert.Equal(t, int64(500), result.CurrentJackpot)
	assert.Contains(t, result.Fortune, "Beginner's luck!")
	assert.Contains(t, result.Fortune, "21 sat stake")

	require.Len(t, result.Cards, 3)
	assert.Equal(t, "XXI Ace of Pentacles", result.Cards[0].Name)
	assert.Equal(t, "X Wheel of Fortune", result.Cards[1].Name)
	assert.Equal(t, "XI Justice", result.Cards[2].Name)

	granted, err := f.ledger.BonusGranted(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, granted)

	require.Len(t, f.events.plays, 1)
	assert.True(t, f.events.plays[0].IsBonus)

	// The bonus draw touches no wallet.
	f.wallet.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBonusFromBalanceNetsToZero(t *testing.T) {
	f := newPlayFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Adjust(ctx, "session-1", 50)
	require.NoError(t, err)

	result, err := f.svc.DrawFromBalance(ctx, "session-1")
	require.NoError(t, err)

	// Stake debited, then handed straight back by the bonus.
	assert.Equal(t, int64(50), result.UserBalance)
	assert.Equal(t, int64(500), result.CurrentJackpot)
}

func TestBonusIsGrantedOnlyOnce(t *testing.T) {
	f := newPlayFixture(t)
	ctx := context.Background()

	f.wallet.On("Transfer", mock.Anything, "admin-key", "profit-key", int64(4), mock.Anything).Return(nil)

	_, err := f.svc.Draw(ctx, "session-1")
	require.NoError(t, err)

	result, err := f.svc.Draw(ctx, "session-1")
	require.NoError(t, err)
	assert.NotContains(t, result.Fortune, "Beginner's luck!")
}

func TestRegularDrawEconomics(t *testing.T) {
	f := newPlayFixture(t)
	ctx := context.Background()
	f.grantBonus(t, "session-1")

	f.wallet.On("Transfer", mock.Anything, "admin-key", "profit-key", int64(4), mock.Anything).Return(nil)

	result, err := f.svc.Draw(ctx, "session-1")
	require.NoError(t, err)

	require.Len(t, result.Cards, 3)
	assert.NotEmpty(t, result.Fortune)

	// Pool gains the 16 sat contribution and loses any win; the win
	// lands on the balance.
	assert.Equal(t, int64(500+16-result.SatsWonThisRound), result.CurrentJackpot)
	assert.Equal(t, result.SatsWonThisRound, result.UserBalance)

	f.wallet.AssertExpectations(t)
	require.Len(t, f.events.plays, 1)
	assert.False(t, f.events.plays[0].IsBonus)
}

func TestProfitTransferFailureDoesNotFailDraw(t *testing.T) {
	f := newPlayFixture(t)
	ctx := context.Background()
	f.grantBonus(t, "session-1")

	f.wallet.On("Transfer", mock.Anything, "admin-key", "profit-key", int64(4), mock.Anything).
		Return(fmt.Errorf("wallet offline"))

	_, err := f.svc.Draw(ctx, "session-1")
	assert.NoError(t, err)
}

func TestProfitTransferSkippedWithoutProfitWallet(t *testing.T) {
	f := newPlayFixture(t)
	ctx := context.Background()
	f.cfg.LNbits.ProfitAdminKey = ""
	f.grantBonus(t, "session-1")

	_, err := f.svc.Draw(ctx, "session-1")
	require.NoError(t, err)

	f.wallet.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDrawFromBalanceRequiresStake(t *testing.T) {
	f := newPlayFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Adjust(ctx, "session-1", 10)
	require.NoError(t, err)

	_, err = f.svc.DrawFromBalance(ctx, "session-1")
	assert.Equal(t, errors.ErrInsufficientBalance, errors.GetCode(err))
}

func TestDrawFromBalanceDebitsStake(t *testing.T) {
	f := newPlayFixture(t)
	ctx := context.Background()
	f.grantBonus(t, "session-1")

	f.wallet.On("Transfer", mock.Anything, "admin-key", "profit-key", int64(4), mock.Anything).Return(nil)

	_, err := f.ledger.Adjust(ctx, "session-1", 100)
	require.NoError(t, err)

	result, err := f.svc.DrawFromBalance(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100-21+result.SatsWonThisRound), result.UserBalance)
}

func TestCreatePlayInvoice(t *testing.T) {
	f := newPlayFixture(t)

	f.wallet.On("CreateInvoice", mock.Anything, "invoice-key", int64(21), "Madame Satoshi Reading").
		Return(&providers.Invoice{PaymentHash: "hash-1", PaymentRequest: "lnbc21..."}, nil)

	inv, err := f.svc.CreatePlayInvoice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hash-1", inv.PaymentHash)
	f.wallet.AssertExpectations(t)
}

func TestCheckInvoiceConvertsMsatToSats(t *testing.T) {
	f := newPlayFixture(t)

	f.wallet.On("CheckInvoice", mock.Anything, "invoice-key", "hash-1").
		Return(&providers.InvoiceStatus{Paid: true, AmountMsat: 21000}, nil)

	paid, amount, err := f.svc.CheckInvoice(context.Background(), "hash-1")
	require.NoError(t, err)
	assert.True(t, paid)
	assert.Equal(t, int64(21), amount)
}

func TestCreateDepositInvoiceRejectsNonPositiveAmount(t *testing.T) {
	f := newPlayFixture(t)

	_, err := f.svc.CreateDepositInvoice(context.Background(), "session-1", 0)
	assert.Equal(t, errors.ErrInvalidAmount, errors.GetCode(err))

	_, err = f.svc.CreateDepositInvoice(context.Background(), "session-1", -5)
	assert.Equal(t, errors.ErrInvalidAmount, errors.GetCode(err))
}

func TestConfirmDepositCreditsOnce(t *testing.T) {
	f := newPlayFixture(t)
	ctx := context.Background()

	f.wallet.On("CheckInvoice", mock.Anything, "invoice-key", "hash-1").
		Return(&providers.InvoiceStatus{Paid: true, AmountMsat: 50000}, nil).Once()

	balance, err := f.svc.ConfirmDeposit(ctx, "session-1", "hash-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	// Second confirm must not hit the wallet or credit again.
	balance, err = f.svc.ConfirmDeposit(ctx, "session-1", "hash-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	f.wallet.AssertExpectations(t)
	require.Len(t, f.events.deposits, 1)
	assert.Equal(t, int64(50), f.events.deposits[0].AmountSats)
}

func TestConfirmDepositRejectsUnpaidInvoice(t *testing.T) {
	f := newPlayFixture(t)

	f.wallet.On("CheckInvoice", mock.Anything, "invoice-key", "hash-1").
		Return(&providers.InvoiceStatus{Paid: false}, nil)

	_, err := f.svc.ConfirmDeposit(context.Background(), "session-1", "hash-1")
	assert.Equal(t, errors.ErrInvalidPaymentHash, errors.GetCode(err))

	balance, err := f.svc.Balance(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}
