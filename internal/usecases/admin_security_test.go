package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditbot/internal/entities"
)

const ownerID = int64(1000)

func newSecurityFixture() (*AdminSecurityUsecase, *fakeAdminStore, *fakeUserStore, *fakeClock) {
	admins := newFakeAdminStore()
	users := newFakeUserStore()
	clock := newFakeClock()

	uc := NewAdminSecurityUsecase(admins, users, ownerID)
	uc.now = clock.Now
	return uc, admins, users, clock
}

func grantAdmin(t *testing.T, admins *fakeAdminStore, userID int64) {
	t.Helper()
	require.NoError(t, admins.Insert(context.Background(), &entities.AdminRecord{
		UserID: userID,
		Status: entities.AdminStatusActive,
	}))
}

func TestListAdminsReturnsActiveRosterOwnerFirst(t *testing.T) {
	uc, admins, _, _ := newSecurityFixture()
	require.NoError(t, admins.Insert(context.Background(), &entities.AdminRecord{
		UserID: ownerID, IsOwner: true, Status: entities.AdminStatusActive,
	}))
	grantAdmin(t, admins, 5)
	grantAdmin(t, admins, 3)
	grantAdmin(t, admins, 9)
	require.NoError(t, admins.Deactivate(context.Background(), 9))

	roster, err := uc.ListAdmins(context.Background())
	require.NoError(t, err)
	require.Len(t, roster, 3)
	assert.Equal(t, ownerID, roster[0].UserID)
	assert.True(t, roster[0].IsOwner)
	assert.Equal(t, int64(3), roster[1].UserID)
	assert.Equal(t, int64(5), roster[2].UserID)
}

func TestVerifyAdminActiveRecord(t *testing.T) {
	uc, admins, users, _ := newSecurityFixture()
	users.put(&entities.User{ID: 5})
	grantAdmin(t, admins, 5)

	ok, err := uc.VerifyAdmin(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, admins.lastTouched)
}

func TestVerifyAdminRejectsNonAdmin(t *testing.T) {
	uc, _, users, _ := newSecurityFixture()
	users.put(&entities.User{ID: 5})

	ok, err := uc.VerifyAdmin(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyAdminRejectsBanned(t *testing.T) {
	uc, admins, users, _ := newSecurityFixture()
	users.put(&entities.User{ID: 5, IsBanned: true})
	grantAdmin(t, admins, 5)

	ok, err := uc.VerifyAdmin(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyAdminRejectsInactiveRecord(t *testing.T) {
	uc, admins, users, _ := newSecurityFixture()
	users.put(&entities.User{ID: 5})
	grantAdmin(t, admins, 5)
	require.NoError(t, admins.Deactivate(context.Background(), 5))

	ok, err := uc.VerifyAdmin(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

// After the attempt budget is exhausted the check fails closed, before any
// store lookup, even for a genuine admin.
func TestVerifyAdminFailsClosedAfterWindowBudget(t *testing.T) {
	uc, admins, users, clock := newSecurityFixture()
	users.put(&entities.User{ID: 5})
	ctx := context.Background()

	for i := 0; i < verifyMaxAttempts; i++ {
		ok, err := uc.VerifyAdmin(ctx, 5)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	grantAdmin(t, admins, 5)
	ok, err := uc.VerifyAdmin(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok, "budget exhausted, must fail closed")

	clock.Advance(verifyWindow + time.Minute)
	ok, err = uc.VerifyAdmin(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok, "window slid past the old attempts")
}

func TestVerifyAdminSuccessClearsWindow(t *testing.T) {
	uc, admins, users, _ := newSecurityFixture()
	users.put(&entities.User{ID: 5})
	grantAdmin(t, admins, 5)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		ok, err := uc.VerifyAdmin(ctx, 5)
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i)
	}
}

func TestVerifyAdminMigratesLegacySlot(t *testing.T) {
	uc, admins, users, _ := newSecurityFixture()
	users.put(&entities.User{ID: 7, Username: "legacy"})
	admins.legacyID = 7
	ctx := context.Background()

	ok, err := uc.VerifyAdmin(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	rec, err := admins.GetActive(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "legacy", rec.Username)
	assert.Equal(t, ownerID, rec.AddedBy)
}

func TestLockoutDurationProgression(t *testing.T) {
	assert.Equal(t, 5*time.Minute, lockoutDuration(5))
	assert.Equal(t, 10*time.Minute, lockoutDuration(6))
	assert.Equal(t, 20*time.Minute, lockoutDuration(7))
	assert.Equal(t, 24*time.Hour, lockoutDuration(14))
	assert.Equal(t, 24*time.Hour, lockoutDuration(50))
}

func TestEnterPanelLocksAfterRepeatedFailures(t *testing.T) {
	uc, _, users, clock := newSecurityFixture()
	users.put(&entities.User{ID: 5})
	ctx := context.Background()

	for i := 0; i < panelFailThreshold; i++ {
		err := uc.EnterPanel(ctx, 5)
		assert.ErrorIs(t, err, entities.ErrAccessDenied)
	}

	err := uc.EnterPanel(ctx, 5)
	var locked *entities.LockedOutError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, lockoutBase, locked.Remaining)

	clock.Advance(2 * time.Minute)
	err = uc.EnterPanel(ctx, 5)
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 3*time.Minute, locked.Remaining)
}

func TestEnterPanelLockoutResetsAfterInterval(t *testing.T) {
	uc, admins, users, clock := newSecurityFixture()
	users.put(&entities.User{ID: 5})
	ctx := context.Background()

	for i := 0; i < panelFailThreshold; i++ {
		_ = uc.EnterPanel(ctx, 5)
	}
	var locked *entities.LockedOutError
	require.ErrorAs(t, uc.EnterPanel(ctx, 5), &locked)

	// Past the interval the counter resets; the verify window must also have
	// slid for the credential to be re-checked at all.
	clock.Advance(verifyWindow + time.Minute)
	grantAdmin(t, admins, 5)
	assert.NoError(t, uc.EnterPanel(ctx, 5))
}

func TestEnterPanelSuccessClearsFailures(t *testing.T) {
	uc, admins, users, _ := newSecurityFixture()
	users.put(&entities.User{ID: 5})
	grantAdmin(t, admins, 5)
	ctx := context.Background()

	require.NoError(t, uc.EnterPanel(ctx, 5))
	require.NoError(t, uc.EnterPanel(ctx, 5))
}

func TestAddAdminOwnerOnly(t *testing.T) {
	uc, admins, users, _ := newSecurityFixture()
	users.put(&entities.User{ID: 5})
	grantAdmin(t, admins, 5)
	ctx := context.Background()

	err := uc.AddAdmin(ctx, 5, 6, "newbie")
	assert.ErrorIs(t, err, entities.ErrAccessDenied)

	require.NoError(t, uc.AddAdmin(ctx, ownerID, 6, "newbie"))
	rec, _ := admins.GetActive(ctx, 6)
	require.NotNil(t, rec)
	assert.Equal(t, ownerID, rec.AddedBy)
}

func TestRemoveAdminGuards(t *testing.T) {
	uc, admins, _, _ := newSecurityFixture()
	grantAdmin(t, admins, 5)
	ctx := context.Background()

	assert.ErrorIs(t, uc.RemoveAdmin(ctx, 5, 5), entities.ErrAccessDenied)
	assert.ErrorIs(t, uc.RemoveAdmin(ctx, ownerID, ownerID), entities.ErrAccessDenied)

	require.NoError(t, uc.RemoveAdmin(ctx, ownerID, 5))
	rec, _ := admins.GetActive(ctx, 5)
	assert.Nil(t, rec)
}

func TestAuthorizeBanGuards(t *testing.T) {
	uc, admins, _, _ := newSecurityFixture()
	grantAdmin(t, admins, 5)
	grantAdmin(t, admins, 6)
	ctx := context.Background()

	// Non-owner admin may not touch the owner or another active admin.
	assert.ErrorIs(t, uc.AuthorizeBan(ctx, 5, ownerID), entities.ErrAccessDenied)
	assert.ErrorIs(t, uc.AuthorizeBan(ctx, 5, 6), entities.ErrAccessDenied)
	assert.NoError(t, uc.AuthorizeBan(ctx, 5, 7))

	// The owner is bound by neither rule.
	assert.NoError(t, uc.AuthorizeBan(ctx, ownerID, 6))
	assert.NoError(t, uc.AuthorizeBan(ctx, ownerID, ownerID))
}

func TestAuthorizeCreditChange(t *testing.T) {
	uc, _, _, _ := newSecurityFixture()

	assert.ErrorIs(t, uc.AuthorizeCreditChange(5, ownerID), entities.ErrAccessDenied)
	assert.NoError(t, uc.AuthorizeCreditChange(ownerID, ownerID))
	assert.NoError(t, uc.AuthorizeCreditChange(5, 6))
}
