package usecases

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"creditbot/internal/entities"
	"creditbot/internal/interfaces"
)

// AuditUsecase appends to the user activity log and the privileged admin
// log. Every admin-log row carries one session id minted per process, so a
// restart is visible in the trail.
type AuditUsecase struct {
	activity  interfaces.ActivityStore
	admins    interfaces.AdminStore
	sessionID string
}

func NewAuditUsecase(activity interfaces.ActivityStore, admins interfaces.AdminStore) *AuditUsecase {
	return &AuditUsecase{
		activity:  activity,
		admins:    admins,
		sessionID: uuid.New().String(),
	}
}

func (uc *AuditUsecase) SessionID() string {
	return uc.sessionID
}

// Record appends one activity row; the store also refreshes the user's
// last_active stamp. Audit failures are logged, not propagated, so a broken
// log never blocks the action itself.
func (uc *AuditUsecase) Record(ctx context.Context, userID int64, kind, details string, creditsUsed int) {
	if err := uc.activity.Append(ctx, userID, kind, details, creditsUsed); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Str("kind", kind).Msg("append activity log")
	}
}

// RecordAdmin appends one admin-log row with the process session id.
func (uc *AuditUsecase) RecordAdmin(ctx context.Context, adminID int64, action, details, status string) {
	entry := &entities.AdminLogEntry{
		AdminID:   adminID,
		Action:    action,
		Details:   details,
		Status:    status,
		SessionID: uc.sessionID,
	}
	if err := uc.admins.AppendLog(ctx, entry); err != nil {
		log.Error().Err(err).Int64("admin_id", adminID).Str("action", action).Msg("append admin log")
	}
}

// RecentAdminLog returns the latest privileged-log entries for the panel
// security view.
func (uc *AuditUsecase) RecentAdminLog(ctx context.Context, limit int) ([]entities.AdminLogEntry, error) {
	return uc.admins.RecentLog(ctx, limit)
}
