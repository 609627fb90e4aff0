package usecases

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditbot/internal/entities"
)

func TestLedgerBalanceUnknownUser(t *testing.T) {
	ledger := NewLedgerUsecase(newFakeUserStore())

	balance, err := ledger.Balance(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestLedgerCheckAndDeduct(t *testing.T) {
	store := newFakeUserStore()
	store.put(&entities.User{ID: 1, Credits: 3})
	ledger := NewLedgerUsecase(store)
	ctx := context.Background()

	require.NoError(t, ledger.CheckAndDeduct(ctx, 1, 1))

	balance, err := ledger.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)
}

func TestLedgerInsufficientCreditsLeavesBalance(t *testing.T) {
	store := newFakeUserStore()
	store.put(&entities.User{ID: 1, Credits: 2})
	ledger := NewLedgerUsecase(store)
	ctx := context.Background()

	err := ledger.CheckAndDeduct(ctx, 1, 5)
	assert.ErrorIs(t, err, entities.ErrInsufficientCredits)

	balance, _ := ledger.Balance(ctx, 1)
	assert.Equal(t, 2, balance)
}

func TestLedgerDeductUnknownUser(t *testing.T) {
	ledger := NewLedgerUsecase(newFakeUserStore())

	err := ledger.CheckAndDeduct(context.Background(), 99, 1)
	assert.ErrorIs(t, err, entities.ErrInsufficientCredits)
}

func TestLedgerCreditClampsAtCap(t *testing.T) {
	store := newFakeUserStore()
	store.put(&entities.User{ID: 1, Credits: entities.MaxCredits - 1})
	ledger := NewLedgerUsecase(store)

	balance, err := ledger.Credit(context.Background(), 1, 500)
	require.NoError(t, err)
	assert.Equal(t, entities.MaxCredits, balance)
}

func TestLedgerCreditClampsAtZero(t *testing.T) {
	store := newFakeUserStore()
	store.put(&entities.User{ID: 1, Credits: 3})
	ledger := NewLedgerUsecase(store)

	balance, err := ledger.Credit(context.Background(), 1, -100)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestLedgerCreditUnknownUser(t *testing.T) {
	ledger := NewLedgerUsecase(newFakeUserStore())

	_, err := ledger.Credit(context.Background(), 99, 10)
	assert.ErrorIs(t, err, entities.ErrUserNotFound)
}

// Two concurrent spends against a balance of 1 must never both succeed.
func TestLedgerConcurrentSpendsNeverOverdraw(t *testing.T) {
	store := newFakeUserStore()
	store.put(&entities.User{ID: 1, Credits: 1})
	ledger := NewLedgerUsecase(store)
	ctx := context.Background()

	const spenders = 10
	var wg sync.WaitGroup
	results := make(chan error, spenders)
	for i := 0; i < spenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- ledger.CheckAndDeduct(ctx, 1, 1)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	balance, _ := ledger.Balance(ctx, 1)
	assert.Equal(t, 0, balance)
}
