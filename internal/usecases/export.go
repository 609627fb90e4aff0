package usecases

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"creditbot/internal/entities"
	"creditbot/internal/interfaces"
)

// ExportUsecase produces the owner-only database and log exports. Both
// guards check the fixed owner id directly: export rights are independent of
// admin status.
type ExportUsecase struct {
	users   interfaces.UserStore
	admins  interfaces.AdminStore
	ownerID int64
}

func NewExportUsecase(users interfaces.UserStore, admins interfaces.AdminStore, ownerID int64) *ExportUsecase {
	return &ExportUsecase{users: users, admins: admins, ownerID: ownerID}
}

// Users renders the full users table as CSV.
func (uc *ExportUsecase) Users(ctx context.Context, requesterID int64) ([]byte, error) {
	if requesterID != uc.ownerID {
		return nil, entities.ErrAccessDenied
	}

	users, err := uc.users.ExportAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"user_id", "username", "first_name", "credits", "invite_code", "total_invites", "invited_by", "join_date", "last_active", "is_banned"})
	for _, u := range users {
		invitedBy := ""
		if u.InvitedBy != nil {
			invitedBy = strconv.FormatInt(*u.InvitedBy, 10)
		}
		_ = w.Write([]string{
			strconv.FormatInt(u.ID, 10),
			u.Username,
			u.FirstName,
			strconv.Itoa(u.Credits),
			u.InviteCode,
			strconv.Itoa(u.TotalInvites),
			invitedBy,
			u.JoinedAt.Format(time.RFC3339),
			u.LastActive.Format(time.RFC3339),
			strconv.FormatBool(u.IsBanned),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AdminLog renders the complete privileged log as a plain text document.
func (uc *ExportUsecase) AdminLog(ctx context.Context, requesterID int64) ([]byte, error) {
	if requesterID != uc.ownerID {
		return nil, entities.ErrAccessDenied
	}

	entries, err := uc.admins.AllLog(ctx)
	if err != nil {
		return nil, fmt.Errorf("export admin log: %w", err)
	}

	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "[%s] admin=%d session=%s %s (%s): %s\n",
			e.Timestamp.Format(time.RFC3339), e.AdminID, e.SessionID, e.Action, e.Status, e.Details)
	}
	return buf.Bytes(), nil
}
