package usecases

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditbot/internal/entities"
)

func TestExportUsersOwnerOnly(t *testing.T) {
	users := newFakeUserStore()
	admins := newFakeAdminStore()
	uc := NewExportUsecase(users, admins, ownerID)
	ctx := context.Background()

	// An active admin who is not the owner is still refused.
	grantAdmin(t, admins, 5)
	_, err := uc.Users(ctx, 5)
	assert.ErrorIs(t, err, entities.ErrAccessDenied)

	_, err = uc.Users(ctx, ownerID)
	assert.NoError(t, err)
}

func TestExportUsersCSVContents(t *testing.T) {
	users := newFakeUserStore()
	inviter := int64(1)
	users.put(&entities.User{ID: 1, Username: "alice", Credits: 10, InviteCode: "ALICE001"})
	users.put(&entities.User{ID: 2, Username: "bob", Credits: 5, InvitedBy: &inviter, IsBanned: true})
	uc := NewExportUsecase(users, newFakeAdminStore(), ownerID)

	data, err := uc.Users(context.Background(), ownerID)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two users")
	assert.Equal(t, "user_id", rows[0][0])
	assert.Equal(t, "alice", rows[1][1])
	assert.Equal(t, "1", rows[2][6], "invited_by serialized")
	assert.Equal(t, "true", rows[2][9], "ban flag serialized")
}

func TestExportAdminLogOwnerOnly(t *testing.T) {
	admins := newFakeAdminStore()
	uc := NewExportUsecase(newFakeUserStore(), admins, ownerID)
	ctx := context.Background()

	_, err := uc.AdminLog(ctx, 5)
	assert.ErrorIs(t, err, entities.ErrAccessDenied)

	require.NoError(t, admins.AppendLog(ctx, &entities.AdminLogEntry{
		AdminID: ownerID, Action: "ban", Details: "target=7", Status: "success", SessionID: "s-1",
	}))
	data, err := uc.AdminLog(ctx, ownerID)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ban (success): target=7")
	assert.Contains(t, string(data), "session=s-1")
}
