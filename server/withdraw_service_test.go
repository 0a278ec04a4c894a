package server

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/artdesignbySF/MadameSatoshi/errors"
	"github.com/artdesignbySF/MadameSatoshi/pkg/ledger"
	"github.com/artdesignbySF/MadameSatoshi/pkg/providers"
)

type withdrawFixture struct {
	svc    *WithdrawService
	ledger *ledger.Service
	wallet *mockWallet
	events *recordingEventLog
}

func newWithdrawFixture(t *testing.T) *withdrawFixture {
	t.Helper()
	cfg := testConfig()
	store := newMemStore()
	wallet := &mockWallet{}
	events := &recordingEventLog{}
	ledgerSvc := ledger.NewService(store, zerolog.Nop())

	return &withdrawFixture{
		svc:    NewWithdrawService(cfg, ledgerSvc, wallet, events, zerolog.Nop()),
		ledger: ledgerSvc,
		wallet: wallet,
		events: events,
	}
}

func (f *withdrawFixture) fund(t *testing.T, sessionID string, amount int64) {
	t.Helper()
	_, err := f.ledger.Adjust(context.Background(), sessionID, amount)
	require.NoError(t, err)
}

func withdrawActions(events []*providers.WithdrawalEvent) []string {
	actions := make([]string, len(events))
	for i, e := range events {
		actions[i] = e.Action
	}
	return actions
}

func TestGenerateFullBalanceWithdrawal(t *testing.T) {
	f := newWithdrawFixture(t)
	ctx := context.Background()
	f.fund(t, "session-1", 2600)

	f.wallet.On("CreateWithdrawLink", mock.Anything, "Madame Satoshi Winnings", int64(2600)).
		Return(&providers.WithdrawLink{ID: "link-1", LNURL: "lnurl1abc"}, nil)
	// 2% routing fee surplus on top of the withdrawn amount.
	f.wallet.On("Transfer", mock.Anything, "admin-key", "payout-key", int64(2652), mock.Anything).
		Return(nil)

	result, err := f.svc.GenerateWithdrawLink(ctx, "session-1", 0)
	require.NoError(t, err)

	assert.Equal(t, "lnurl1abc", result.LNURL)
	assert.Equal(t, "link-1", result.LinkID)
	assert.Equal(t, int64(2600), result.WithdrawnAmount)

	linkID, found, err := f.ledger.ActiveWithdrawLink(ctx, "session-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "link-1", linkID)

	f.wallet.AssertExpectations(t)
	assert.Equal(t, []string{"requested"}, withdrawActions(f.events.withdrawals))
}

func TestGeneratePartialWithdrawal(t *testing.T) {
	f := newWithdrawFixture(t)
	f.fund(t, "session-1", 100)

	f.wallet.On("CreateWithdrawLink", mock.Anything, "Madame Satoshi Winnings", int64(50)).
		Return(&providers.WithdrawLink{ID: "link-1", LNURL: "lnurl1abc"}, nil)
	f.wallet.On("Transfer", mock.Anything, "admin-key", "payout-key", int64(52), mock.Anything).
		Return(nil)

	result, err := f.svc.GenerateWithdrawLink(context.Background(), "session-1", 50)
	require.NoError(t, err)
	assert.Equal(t, int64(50), result.WithdrawnAmount)
	f.wallet.AssertExpectations(t)
}

func TestGenerateRejectsZeroBalance(t *testing.T) {
	f := newWithdrawFixture(t)

	_, err := f.svc.GenerateWithdrawLink(context.Background(), "session-1", 0)
	assert.Equal(t, errors.ErrInsufficientBalance, errors.GetCode(err))
}

func TestGenerateRejectsRequestAboveBalance(t *testing.T) {
	f := newWithdrawFixture(t)
	f.fund(t, "session-1", 30)

	_, err := f.svc.GenerateWithdrawLink(context.Background(), "session-1", 100)
	assert.Equal(t, errors.ErrInsufficientBalance, errors.GetCode(err))
}

func TestGenerateRequiresWalletKeys(t *testing.T) {
	f := newWithdrawFixture(t)
	f.svc.cfg.LNbits.PayoutAdminKey = ""

	_, err := f.svc.GenerateWithdrawLink(context.Background(), "session-1", 0)
	assert.Equal(t, errors.ErrWalletMisconfig, errors.GetCode(err))
}

func TestGenerateDeletesLinkWhenFundingFails(t *testing.T) {
	f := newWithdrawFixture(t)
	ctx := context.Background()
	f.fund(t, "session-1", 100)

	f.wallet.On("CreateWithdrawLink", mock.Anything, mock.Anything, int64(100)).
		Return(&providers.WithdrawLink{ID: "link-1", LNURL: "lnurl1abc"}, nil)
	f.wallet.On("Transfer", mock.Anything, "admin-key", "payout-key", int64(102), mock.Anything).
		Return(fmt.Errorf("wallet offline"))
	f.wallet.On("DeleteWithdrawLink", mock.Anything, "link-1").Return(nil)

	_, err := f.svc.GenerateWithdrawLink(ctx, "session-1", 0)
	assert.Equal(t, errors.ErrWithdrawalFailed, errors.GetCode(err))

	_, found, err := f.ledger.ActiveWithdrawLink(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, found)

	// The balance was never debited, so the sats remain withdrawable.
	balance, err := f.ledger.Balance(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	f.wallet.AssertExpectations(t)
}

func TestGenerateReportsOperatorFundsLow(t *testing.T) {
	f := newWithdrawFixture(t)
	f.fund(t, "session-1", 100)

	f.wallet.On("CreateWithdrawLink", mock.Anything, mock.Anything, int64(100)).
		Return(&providers.WithdrawLink{ID: "link-1", LNURL: "lnurl1abc"}, nil)
	f.wallet.On("Transfer", mock.Anything, "admin-key", "payout-key", int64(102), mock.Anything).
		Return(providers.ErrInsufficientFunds)
	f.wallet.On("DeleteWithdrawLink", mock.Anything, "link-1").Return(nil)

	_, err := f.svc.GenerateWithdrawLink(context.Background(), "session-1", 0)
	require.Error(t, err)
	assert.Equal(t, errors.ErrOperatorFundsLow, errors.GetCode(err))

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, "Withdrawal Temporarily Unavailable", appErr.Message)
}

func TestGenerateSupersedesUnclaimedPriorLink(t *testing.T) {
	f := newWithdrawFixture(t)
	ctx := context.Background()
	f.fund(t, "session-1", 100)
	require.NoError(t, f.ledger.SetActiveWithdrawLink(ctx, "session-1", "old-link"))

	f.wallet.On("GetWithdrawLink", mock.Anything, "old-link").
		Return(&providers.WithdrawLink{ID: "old-link", Used: 0, MaxWithdrawable: 100}, nil)
	f.wallet.On("DeleteWithdrawLink", mock.Anything, "old-link").Return(nil)
	f.wallet.On("CreateWithdrawLink", mock.Anything, mock.Anything, int64(100)).
		Return(&providers.WithdrawLink{ID: "new-link", LNURL: "lnurl1new"}, nil)
	f.wallet.On("Transfer", mock.Anything, "admin-key", "payout-key", int64(102), mock.Anything).
		Return(nil)

	result, err := f.svc.GenerateWithdrawLink(ctx, "session-1", 0)
	require.NoError(t, err)
	assert.Equal(t, "new-link", result.LinkID)

	f.wallet.AssertExpectations(t)
	assert.Equal(t, []string{"superseded", "requested"}, withdrawActions(f.events.withdrawals))
}

func TestGenerateSettlesClaimedPriorLinkFirst(t *testing.T) {
	f := newWithdrawFixture(t)
	ctx := context.Background()
	f.fund(t, "session-1", 100)
	require.NoError(t, f.ledger.SetActiveWithdrawLink(ctx, "session-1", "old-link"))

	// The prior link was claimed for 30 sats since the last poll.
	f.wallet.On("GetWithdrawLink", mock.Anything, "old-link").
		Return(&providers.WithdrawLink{ID: "old-link", Used: 1, MaxWithdrawable: 30}, nil)
	f.wallet.On("DeleteWithdrawLink", mock.Anything, "old-link").Return(nil)
	f.wallet.On("CreateWithdrawLink", mock.Anything, mock.Anything, int64(70)).
		Return(&providers.WithdrawLink{ID: "new-link", LNURL: "lnurl1new"}, nil)
	f.wallet.On("Transfer", mock.Anything, "admin-key", "payout-key", int64(72), mock.Anything).
		Return(nil)

	result, err := f.svc.GenerateWithdrawLink(ctx, "session-1", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(70), result.WithdrawnAmount)

	f.wallet.AssertExpectations(t)
	assert.Equal(t, []string{"claimed", "superseded", "requested"}, withdrawActions(f.events.withdrawals))
}

func TestCheckClaimUnusedLink(t *testing.T) {
	f := newWithdrawFixture(t)

	f.wallet.On("GetWithdrawLink", mock.Anything, "link-1").
		Return(&providers.WithdrawLink{ID: "link-1", Used: 0, MaxWithdrawable: 50}, nil)

	result, err := f.svc.CheckClaim(context.Background(), "link-1", "session-1")
	require.NoError(t, err)
	assert.False(t, result.Claimed)
}

func TestCheckClaimMissingLink(t *testing.T) {
	f := newWithdrawFixture(t)

	f.wallet.On("GetWithdrawLink", mock.Anything, "link-1").
		Return(nil, providers.ErrNotFound)

	result, err := f.svc.CheckClaim(context.Background(), "link-1", "session-1")
	require.NoError(t, err)
	assert.False(t, result.Claimed)
}

func TestCheckClaimDebitsExactlyOnce(t *testing.T) {
	f := newWithdrawFixture(t)
	ctx := context.Background()
	f.fund(t, "session-1", 100)
	require.NoError(t, f.ledger.SetActiveWithdrawLink(ctx, "session-1", "link-1"))

	f.wallet.On("GetWithdrawLink", mock.Anything, "link-1").
		Return(&providers.WithdrawLink{ID: "link-1", Used: 1, MaxWithdrawable: 40}, nil)

	result, err := f.svc.CheckClaim(ctx, "link-1", "session-1")
	require.NoError(t, err)
	assert.True(t, result.Claimed)
	assert.Equal(t, int64(40), result.Amount)

	balance, err := f.ledger.Balance(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)

	_, found, err := f.ledger.ActiveWithdrawLink(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, found)

	// A second poll reports the claim without touching the balance.
	result, err = f.svc.CheckClaim(ctx, "link-1", "session-1")
	require.NoError(t, err)
	assert.True(t, result.Claimed)

	balance, err = f.ledger.Balance(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)

	require.Len(t, f.events.withdrawals, 1)
	assert.Equal(t, "claimed", f.events.withdrawals[0].Action)
}

func TestCheckClaimRequiresIDs(t *testing.T) {
	f := newWithdrawFixture(t)

	_, err := f.svc.CheckClaim(context.Background(), "", "session-1")
	assert.Equal(t, errors.ErrInvalidRequest, errors.GetCode(err))

	_, err = f.svc.CheckClaim(context.Background(), "link-1", "")
	assert.Equal(t, errors.ErrInvalidRequest, errors.GetCode(err))
}
