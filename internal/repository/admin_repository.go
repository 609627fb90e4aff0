package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"creditbot/internal/entities"
)

type AdminRepository struct {
	db *pgxpool.Pool
}

func NewAdminRepository(db *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{db: db}
}

const adminColumns = `user_id, username, is_owner, added_by, can_export, status, added_date`

func scanAdmin(row pgx.Row) (*entities.AdminRecord, error) {
	var rec entities.AdminRecord
	err := row.Scan(&rec.UserID, &rec.Username, &rec.IsOwner, &rec.AddedBy,
		&rec.CanExport, &rec.Status, &rec.AddedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *AdminRepository) Get(ctx context.Context, userID int64) (*entities.AdminRecord, error) {
	return scanAdmin(r.db.QueryRow(ctx,
		"SELECT "+adminColumns+" FROM bot_admins WHERE user_id = $1", userID))
}

func (r *AdminRepository) GetActive(ctx context.Context, userID int64) (*entities.AdminRecord, error) {
	return scanAdmin(r.db.QueryRow(ctx,
		"SELECT "+adminColumns+" FROM bot_admins WHERE user_id = $1 AND status = 'active'", userID))
}

func (r *AdminRepository) Insert(ctx context.Context, rec *entities.AdminRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bot_admins (user_id, username, is_owner, added_by, can_export, status)
		VALUES ($1, $2, $3, $4, $5, 'active')
		ON CONFLICT (user_id) DO UPDATE SET status = 'active', username = EXCLUDED.username`,
		rec.UserID, rec.Username, rec.IsOwner, rec.AddedBy, rec.CanExport)
	if err != nil {
		return fmt.Errorf("insert admin %d: %w", rec.UserID, err)
	}
	return nil
}

// Deactivate flips status to inactive; admins are never hard-deleted. The
// owner row is excluded at the SQL level as a second line of defense behind
// the authorization guard.
func (r *AdminRepository) Deactivate(ctx context.Context, userID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bot_admins SET status = 'inactive'
		WHERE user_id = $1 AND is_owner = FALSE`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrAccessDenied
	}
	return nil
}

func (r *AdminRepository) ListActive(ctx context.Context) ([]entities.AdminRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+adminColumns+` FROM bot_admins
		WHERE status = 'active'
		ORDER BY is_owner DESC, added_date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	admins := []entities.AdminRecord{}
	for rows.Next() {
		var rec entities.AdminRecord
		if err := rows.Scan(&rec.UserID, &rec.Username, &rec.IsOwner, &rec.AddedBy,
			&rec.CanExport, &rec.Status, &rec.AddedAt); err != nil {
			return nil, err
		}
		admins = append(admins, rec)
	}
	return admins, rows.Err()
}

// LegacyAdminID reads the pre-roster single-admin id from admin_settings.
func (r *AdminRepository) LegacyAdminID(ctx context.Context) (int64, error) {
	var id *int64
	err := r.db.QueryRow(ctx, "SELECT admin_user_id FROM admin_settings WHERE id = 1").Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) || id == nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return *id, nil
}

func (r *AdminRepository) TouchLastAction(ctx context.Context) error {
	_, err := r.db.Exec(ctx, "UPDATE admin_settings SET last_admin_action = now() WHERE id = 1")
	return err
}

func (r *AdminRepository) AppendLog(ctx context.Context, entry *entities.AdminLogEntry) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO admin_log (admin_id, action_type, action_details, status, session_id)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.AdminID, entry.Action, entry.Details, entry.Status, entry.SessionID)
	return err
}

func (r *AdminRepository) RecentLog(ctx context.Context, limit int) ([]entities.AdminLogEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, admin_id, action_type, COALESCE(action_details, ''), status, session_id, timestamp
		FROM admin_log
		ORDER BY timestamp DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLogRows(rows)
}

func (r *AdminRepository) AllLog(ctx context.Context) ([]entities.AdminLogEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, admin_id, action_type, COALESCE(action_details, ''), status, session_id, timestamp
		FROM admin_log
		ORDER BY timestamp ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLogRows(rows)
}

func collectLogRows(rows pgx.Rows) ([]entities.AdminLogEntry, error) {
	entries := []entities.AdminLogEntry{}
	for rows.Next() {
		var e entities.AdminLogEntry
		if err := rows.Scan(&e.ID, &e.AdminID, &e.Action, &e.Details, &e.Status,
			&e.SessionID, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
