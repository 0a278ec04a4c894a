package ledger

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory LedgerStore for tests.
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

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	return NewService(store, zerolog.Nop()), store
}

func TestBalanceDefaultsToZero(t *testing.T) {
	svc, _ := newTestService()

	balance, err := svc.Balance(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestBalanceRequiresSession(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Balance(context.Background(), "")
	assert.Error(t, err)
}

func TestAdjustCreditAndDebit(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	balance, err := svc.Adjust(ctx, "session-1", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	balance, err = svc.Adjust(ctx, "session-1", -30)
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)

	balance, err = svc.Balance(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)
}

func TestAdjustClampsAtZero(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Adjust(ctx, "session-1", 10)
	require.NoError(t, err)

	balance, err := svc.Adjust(ctx, "session-1", -50)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestSessionsAreIsolated(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Adjust(ctx, "session-a", 42)
	require.NoError(t, err)

	balance, err := svc.Balance(ctx, "session-b")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestBonusFlag(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	granted, err := svc.BonusGranted(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, granted)

	require.NoError(t, svc.MarkBonusGranted(ctx, "session-1"))

	granted, err = svc.BonusGranted(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = svc.BonusGranted(ctx, "session-2")
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestActiveWithdrawLinkLifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, found, err := svc.ActiveWithdrawLink(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, svc.SetActiveWithdrawLink(ctx, "session-1", "link-abc"))

	linkID, found, err := svc.ActiveWithdrawLink(ctx, "session-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "link-abc", linkID)

	require.NoError(t, svc.ClearActiveWithdrawLink(ctx, "session-1"))

	_, found, err = svc.ActiveWithdrawLink(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClaimProcessedMarker(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	processed, err := svc.ClaimProcessed(ctx, "link-abc")
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, svc.MarkClaimProcessed(ctx, "link-abc"))

	processed, err = svc.ClaimProcessed(ctx, "link-abc")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestDepositCreditedMarker(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	credited, err := svc.DepositCredited(ctx, "hash-1")
	require.NoError(t, err)
	assert.False(t, credited)

	require.NoError(t, svc.MarkDepositCredited(ctx, "hash-1"))

	credited, err = svc.DepositCredited(ctx, "hash-1")
	require.NoError(t, err)
	assert.True(t, credited)
}
