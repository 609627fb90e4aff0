package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"creditbot/internal/entities"
)

const (
	DefaultInviteReward    = 2
	DefaultStartingCredits = 10
)

type SettingsRepository struct {
	db *pgxpool.Pool
}

func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context) (*entities.Settings, error) {
	var s entities.Settings
	err := r.db.QueryRow(ctx, `
		SELECT channel_1, channel_2, credits_per_invite, starting_credits, last_admin_action
		FROM admin_settings WHERE id = 1`).
		Scan(&s.Channel1, &s.Channel2, &s.InviteReward, &s.StartingCredits, &s.LastAdminAction)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return &s, nil
}

func (r *SettingsRepository) UpdateChannels(ctx context.Context, channel1, channel2 string) error {
	_, err := r.db.Exec(ctx,
		"UPDATE admin_settings SET channel_1 = $1, channel_2 = $2 WHERE id = 1",
		channel1, channel2)
	return err
}

func (r *SettingsRepository) UpdateCreditSettings(ctx context.Context, inviteReward, startingCredits int) error {
	_, err := r.db.Exec(ctx,
		"UPDATE admin_settings SET credits_per_invite = $1, starting_credits = $2 WHERE id = 1",
		inviteReward, startingCredits)
	return err
}

// Reset restores channel and credit settings to their defaults. User data is
// untouched.
func (r *SettingsRepository) Reset(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		UPDATE admin_settings
		SET channel_1 = '', channel_2 = '', credits_per_invite = $1, starting_credits = $2
		WHERE id = 1`,
		DefaultInviteReward, DefaultStartingCredits)
	return err
}
