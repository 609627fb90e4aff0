package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"creditbot/internal/entities"
)

type ReferralRepository struct {
	db *pgxpool.Pool
}

func NewReferralRepository(db *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// Redeem applies an invite-code redemption as a single transaction: credit
// both sides (clamped), bump the inviter's total_invites, record the invite
// row. Returns (nil, nil) when no user owns the code.
func (r *ReferralRepository) Redeem(ctx context.Context, code string, newUserID int64, reward int) (*entities.RedeemResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin redeem: %w", err)
	}
	defer tx.Rollback(ctx)

	var inviterID int64
	err = tx.QueryRow(ctx, "SELECT user_id FROM users WHERE invite_code = $1", code).Scan(&inviterID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // unknown code, new user simply gets no bonus
	}
	if err != nil {
		return nil, err
	}

	result := &entities.RedeemResult{
		InviterID: inviterID,
		InviteeID: newUserID,
		Reward:    reward,
	}

	err = tx.QueryRow(ctx, `
		UPDATE users SET credits = LEAST(credits + $2, $3), total_invites = total_invites + 1
		WHERE user_id = $1
		RETURNING credits, total_invites`,
		inviterID, reward, entities.MaxCredits).Scan(&result.InviterBalance, &result.TotalInvites)
	if err != nil {
		return nil, fmt.Errorf("credit inviter %d: %w", inviterID, err)
	}

	err = tx.QueryRow(ctx, `
		UPDATE users SET credits = LEAST(credits + $2, $3), invited_by = $4
		WHERE user_id = $1
		RETURNING credits`,
		newUserID, reward, entities.MaxCredits, inviterID).Scan(&result.InviteeBalance)
	if err != nil {
		return nil, fmt.Errorf("credit invitee %d: %w", newUserID, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO invites (inviter_id, invitee_id, invite_code, credits_awarded)
		VALUES ($1, $2, $3, TRUE)`,
		inviterID, newUserID, code)
	if err != nil {
		return nil, fmt.Errorf("record invite: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit redeem: %w", err)
	}
	return result, nil
}

// CountRewarded counts distinct invitees the inviter has been rewarded for.
func (r *ReferralRepository) CountRewarded(ctx context.Context, inviterID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT invitee_id) FROM invites
		WHERE inviter_id = $1 AND credits_awarded`, inviterID).Scan(&n)
	return n, err
}
