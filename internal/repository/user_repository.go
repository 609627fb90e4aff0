package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"creditbot/internal/entities"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `user_id, username, first_name, language_code, is_premium, credits,
	invited_by, invite_code, total_invites, join_date, last_active, is_banned, metadata`

func scanUser(row pgx.Row) (*entities.User, error) {
	var u entities.User
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LanguageCode, &u.IsPremium,
		&u.Credits, &u.InvitedBy, &u.InviteCode, &u.TotalInvites, &u.JoinedAt,
		&u.LastActive, &u.IsBanned, &u.Metadata)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE user_id = $1", id))
}

func (r *UserRepository) Create(ctx context.Context, u *entities.User) error {
	metadata := u.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (user_id, username, first_name, language_code, is_premium,
			credits, invited_by, invite_code, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Username, u.FirstName, u.LanguageCode, u.IsPremium,
		u.Credits, u.InvitedBy, u.InviteCode, metadata)
	if err != nil {
		return fmt.Errorf("create user %d: %w", u.ID, err)
	}
	return nil
}

// TouchProfile refreshes the mutable profile fields and last_active on every
// returning contact.
func (r *UserRepository) TouchProfile(ctx context.Context, u *entities.User) error {
	metadata := u.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	_, err := r.db.Exec(ctx, `
		UPDATE users SET username = $2, first_name = $3, language_code = $4,
			is_premium = $5, metadata = $6, last_active = now()
		WHERE user_id = $1`,
		u.ID, u.Username, u.FirstName, u.LanguageCode, u.IsPremium, metadata)
	return err
}

// Credits returns 0 for an unknown user.
func (r *UserRepository) Credits(ctx context.Context, id int64) (int, error) {
	var credits int
	err := r.db.QueryRow(ctx, "SELECT credits FROM users WHERE user_id = $1", id).Scan(&credits)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return credits, nil
}

// CheckAndDeduct subtracts amount iff the balance covers it, as one
// conditional statement. The affected-row count decides the outcome, so two
// simultaneous calls against a balance of 1 cannot both succeed.
func (r *UserRepository) CheckAndDeduct(ctx context.Context, id int64, amount int) (bool, error) {
	tag, err := r.db.Exec(ctx,
		"UPDATE users SET credits = credits - $2 WHERE user_id = $1 AND credits >= $2",
		id, amount)
	if err != nil {
		return false, fmt.Errorf("deduct %d from user %d: %w", amount, id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Credit adds amount (which may be negative), clamped to [0, MaxCredits], and
// returns the new balance.
func (r *UserRepository) Credit(ctx context.Context, id int64, amount int) (int, error) {
	var balance int
	err := r.db.QueryRow(ctx, `
		UPDATE users SET credits = LEAST(GREATEST(credits + $2, 0), $3)
		WHERE user_id = $1
		RETURNING credits`,
		id, amount, entities.MaxCredits).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, entities.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("credit user %d: %w", id, err)
	}
	return balance, nil
}

func (r *UserRepository) SetBanned(ctx context.Context, id int64, banned bool) error {
	tag, err := r.db.Exec(ctx, "UPDATE users SET is_banned = $2 WHERE user_id = $1", id, banned)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) IsBanned(ctx context.Context, id int64) (bool, error) {
	var banned bool
	err := r.db.QueryRow(ctx, "SELECT is_banned FROM users WHERE user_id = $1", id).Scan(&banned)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return banned, nil
}

func (r *UserRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE invite_code = $1)", code).Scan(&exists)
	return exists, err
}

// ActiveIDs lists every non-banned user, for broadcast-style operations.
func (r *UserRepository) ActiveIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, "SELECT user_id FROM users WHERE is_banned = FALSE ORDER BY user_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *UserRepository) Stats(ctx context.Context) (*entities.UserStats, error) {
	var s entities.UserStats
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE is_banned),
			COALESCE(SUM(credits), 0),
			COUNT(*) FILTER (WHERE last_active >= now() - interval '1 day'),
			COALESCE(SUM(total_invites), 0)
		FROM users`).Scan(&s.TotalUsers, &s.BannedUsers, &s.TotalCredits, &s.ActiveToday, &s.TotalInvites)
	if err != nil {
		return nil, err
	}
	err = r.db.QueryRow(ctx, "SELECT COUNT(*) FROM activity_log").Scan(&s.ActivityCount)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ExportAll returns the full user table ordered by join date, newest first.
func (r *UserRepository) ExportAll(ctx context.Context) ([]entities.User, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY join_date DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []entities.User{}
	for rows.Next() {
		var u entities.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LanguageCode, &u.IsPremium,
			&u.Credits, &u.InvitedBy, &u.InviteCode, &u.TotalInvites, &u.JoinedAt,
			&u.LastActive, &u.IsBanned, &u.Metadata); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
