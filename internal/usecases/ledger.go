package usecases

import (
	"context"
	"fmt"

	"creditbot/internal/entities"
	"creditbot/internal/interfaces"
)

// LedgerUsecase owns the per-user credit balance. All mutations go through
// the store as single atomic statements, so concurrent spends against the
// same balance cannot drive it negative.
type LedgerUsecase struct {
	users interfaces.UserStore
}

func NewLedgerUsecase(users interfaces.UserStore) *LedgerUsecase {
	return &LedgerUsecase{users: users}
}

// Balance returns 0 for unknown users.
func (uc *LedgerUsecase) Balance(ctx context.Context, userID int64) (int, error) {
	return uc.users.Credits(ctx, userID)
}

// CheckAndDeduct spends amount from the user's balance, or returns
// ErrInsufficientCredits without changing anything.
func (uc *LedgerUsecase) CheckAndDeduct(ctx context.Context, userID int64, amount int) error {
	ok, err := uc.users.CheckAndDeduct(ctx, userID, amount)
	if err != nil {
		return fmt.Errorf("deduct %d from %d: %w", amount, userID, err)
	}
	if !ok {
		return entities.ErrInsufficientCredits
	}
	return nil
}

// Credit adjusts the balance by amount (negative allowed), clamped to
// [0, MaxCredits], and returns the balance after the adjustment.
func (uc *LedgerUsecase) Credit(ctx context.Context, userID int64, amount int) (int, error) {
	balance, err := uc.users.Credit(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	return balance, nil
}
