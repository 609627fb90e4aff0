package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"creditbot/internal/entities"
)

type ActivityRepository struct {
	db *pgxpool.Pool
}

func NewActivityRepository(db *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Append records one activity row and refreshes the user's last_active stamp.
func (r *ActivityRepository) Append(ctx context.Context, userID int64, kind, details string, creditsUsed int) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO activity_log (user_id, activity_type, activity_details, credits_used) VALUES ($1, $2, $3, $4)",
		userID, kind, details, creditsUsed)
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	_, err = r.db.Exec(ctx, "UPDATE users SET last_active = now() WHERE user_id = $1", userID)
	return err
}

func (r *ActivityRepository) Recent(ctx context.Context, userID int64, limit int) ([]entities.ActivityRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, activity_type, COALESCE(activity_details, ''), credits_used, timestamp
		FROM activity_log WHERE user_id = $1 ORDER BY timestamp DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []entities.ActivityRecord
	for rows.Next() {
		var rec entities.ActivityRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Kind, &rec.Details, &rec.CreditsUsed, &rec.Timestamp); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
