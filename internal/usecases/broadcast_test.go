package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditbot/internal/entities"
)

func newBroadcastFixture() (*BroadcastUsecase, *fakeUserStore, *fakeMessenger) {
	users := newFakeUserStore()
	messenger := newFakeMessenger()
	uc := NewBroadcastUsecase(users, NewLedgerUsecase(users), messenger)
	return uc, users, messenger
}

func TestAnnounceReachesEveryActiveUser(t *testing.T) {
	uc, users, messenger := newBroadcastFixture()
	users.put(&entities.User{ID: 1})
	users.put(&entities.User{ID: 2})
	users.put(&entities.User{ID: 3, IsBanned: true})

	result, err := uc.Announce(context.Background(), "maintenance tonight")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 0, messenger.sentTo(3), "banned users are skipped")
}

// One unreachable chat must not abort the rest of the batch.
func TestAnnounceToleratesRecipientFailures(t *testing.T) {
	uc, users, messenger := newBroadcastFixture()
	users.put(&entities.User{ID: 1})
	users.put(&entities.User{ID: 2})
	users.put(&entities.User{ID: 3})
	messenger.failFor[2] = true

	result, err := uc.Announce(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, messenger.sentTo(3), "later recipients still reached")
}

func TestGrantAllCreditsAndNotifies(t *testing.T) {
	uc, users, messenger := newBroadcastFixture()
	users.put(&entities.User{ID: 1, Credits: 10})
	users.put(&entities.User{ID: 2, Credits: 0})
	ctx := context.Background()

	result, err := uc.GrantAll(ctx, 25)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Granted)
	assert.Equal(t, 0, result.Capped)
	assert.Equal(t, 2, result.Sent)

	b1, _ := users.Credits(ctx, 1)
	b2, _ := users.Credits(ctx, 2)
	assert.Equal(t, 35, b1)
	assert.Equal(t, 25, b2)
	assert.Equal(t, 1, messenger.sentTo(1))
}

func TestGrantAllReportsCappedRecipients(t *testing.T) {
	uc, users, _ := newBroadcastFixture()
	users.put(&entities.User{ID: 1, Credits: entities.MaxCredits - 5})
	users.put(&entities.User{ID: 2, Credits: 0})
	ctx := context.Background()

	result, err := uc.GrantAll(ctx, 25)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Granted)
	assert.Equal(t, 1, result.Capped)

	b1, _ := users.Credits(ctx, 1)
	assert.Equal(t, entities.MaxCredits, b1)
}

// A grant that lands but cannot be announced counts as granted and
// notify-failed, never as a grant failure.
func TestGrantAllCountsNotifyFailuresSeparately(t *testing.T) {
	uc, users, messenger := newBroadcastFixture()
	users.put(&entities.User{ID: 1, Credits: 0})
	users.put(&entities.User{ID: 2, Credits: 0})
	messenger.failFor[1] = true
	ctx := context.Background()

	result, err := uc.GrantAll(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Granted)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, result.NotifyFailed)
	assert.Equal(t, 1, result.Sent)
	assert.LessOrEqual(t, result.Sent+result.Failed, result.Total)

	b1, _ := users.Credits(ctx, 1)
	assert.Equal(t, 10, b1, "credit sticks even when the notification bounces")
}

func TestGrantAllSkipsBanned(t *testing.T) {
	uc, users, _ := newBroadcastFixture()
	users.put(&entities.User{ID: 1, Credits: 0, IsBanned: true})
	ctx := context.Background()

	result, err := uc.GrantAll(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Granted)

	balance, _ := users.Credits(ctx, 1)
	assert.Equal(t, 0, balance)
}
