package usecases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"creditbot/internal/entities"
)

// In-memory stores mirroring the repository contracts, so the usecases run
// against real concurrency without a database.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[int64]*entities.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*entities.User)}
}

func (f *fakeUserStore) put(u *entities.User) {
	f.mu.Lock()
	cp := *u
	f.users[u.ID] = &cp
	f.mu.Unlock()
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) Create(_ context.Context, u *entities.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; ok {
		return errors.New("duplicate user")
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserStore) TouchProfile(_ context.Context, u *entities.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.users[u.ID]; ok {
		existing.Username = u.Username
		existing.FirstName = u.FirstName
		existing.LastActive = time.Now()
	}
	return nil
}

func (f *fakeUserStore) Credits(_ context.Context, id int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u.Credits, nil
	}
	return 0, nil
}

func (f *fakeUserStore) CheckAndDeduct(_ context.Context, id int64, amount int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.Credits < amount {
		return false, nil
	}
	u.Credits -= amount
	return true, nil
}

func (f *fakeUserStore) Credit(_ context.Context, id int64, amount int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return 0, entities.ErrUserNotFound
	}
	u.Credits = clamp(u.Credits + amount)
	return u.Credits, nil
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > entities.MaxCredits {
		return entities.MaxCredits
	}
	return n
}

func (f *fakeUserStore) SetBanned(_ context.Context, id int64, banned bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return entities.ErrUserNotFound
	}
	u.IsBanned = banned
	return nil
}

func (f *fakeUserStore) IsBanned(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u.IsBanned, nil
	}
	return false, nil
}

func (f *fakeUserStore) InviteCodeExists(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.InviteCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) ActiveIDs(_ context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id, u := range f.users {
		if !u.IsBanned {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeUserStore) Stats(_ context.Context) (*entities.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &entities.UserStats{}
	for _, u := range f.users {
		stats.TotalUsers++
		if u.IsBanned {
			stats.BannedUsers++
		}
		stats.TotalCredits += int64(u.Credits)
		stats.TotalInvites += u.TotalInvites
	}
	return stats, nil
}

func (f *fakeUserStore) ExportAll(_ context.Context) ([]entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeReferralStore struct {
	users   *fakeUserStore
	mu      sync.Mutex
	invites []entities.Invite
}

func newFakeReferralStore(users *fakeUserStore) *fakeReferralStore {
	return &fakeReferralStore{users: users}
}

func (f *fakeReferralStore) Redeem(_ context.Context, code string, newUserID int64, reward int) (*entities.RedeemResult, error) {
	f.users.mu.Lock()
	defer f.users.mu.Unlock()

	var inviter *entities.User
	for _, u := range f.users.users {
		if u.InviteCode == code {
			inviter = u
			break
		}
	}
	if inviter == nil {
		return nil, nil
	}
	invitee, ok := f.users.users[newUserID]
	if !ok {
		return nil, entities.ErrUserNotFound
	}

	inviter.Credits = clamp(inviter.Credits + reward)
	inviter.TotalInvites++
	invitee.Credits = clamp(invitee.Credits + reward)
	invitee.InvitedBy = &inviter.ID

	f.mu.Lock()
	f.invites = append(f.invites, entities.Invite{
		InviterID:      inviter.ID,
		InviteeID:      newUserID,
		InviteCode:     code,
		CreditsAwarded: true,
	})
	f.mu.Unlock()

	return &entities.RedeemResult{
		InviterID:      inviter.ID,
		InviteeID:      newUserID,
		Reward:         reward,
		InviterBalance: inviter.Credits,
		InviteeBalance: invitee.Credits,
		TotalInvites:   inviter.TotalInvites,
	}, nil
}

func (f *fakeReferralStore) CountRewarded(_ context.Context, inviterID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, inv := range f.invites {
		if inv.InviterID == inviterID && inv.CreditsAwarded {
			n++
		}
	}
	return n, nil
}

type fakeAdminStore struct {
	mu          sync.Mutex
	admins      map[int64]*entities.AdminRecord
	legacyID    int64
	lastTouched int
	log         []entities.AdminLogEntry
}

func newFakeAdminStore() *fakeAdminStore {
	return &fakeAdminStore{admins: make(map[int64]*entities.AdminRecord)}
}

func (f *fakeAdminStore) Get(_ context.Context, userID int64) (*entities.AdminRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.admins[userID]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeAdminStore) GetActive(_ context.Context, userID int64) (*entities.AdminRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.admins[userID]; ok && rec.Status == entities.AdminStatusActive {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeAdminStore) Insert(_ context.Context, rec *entities.AdminRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	cp.Status = entities.AdminStatusActive
	f.admins[rec.UserID] = &cp
	return nil
}

func (f *fakeAdminStore) Deactivate(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.admins[userID]
	if !ok || rec.IsOwner {
		return entities.ErrAccessDenied
	}
	rec.Status = entities.AdminStatusInactive
	return nil
}

func (f *fakeAdminStore) ListActive(_ context.Context) ([]entities.AdminRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.AdminRecord
	for _, rec := range f.admins {
		if rec.Status == entities.AdminStatusActive {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsOwner != out[j].IsOwner {
			return out[i].IsOwner
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (f *fakeAdminStore) LegacyAdminID(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.legacyID, nil
}

func (f *fakeAdminStore) TouchLastAction(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTouched++
	return nil
}

func (f *fakeAdminStore) AppendLog(_ context.Context, entry *entities.AdminLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, *entry)
	return nil
}

func (f *fakeAdminStore) RecentLog(_ context.Context, limit int) ([]entities.AdminLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.log) {
		limit = len(f.log)
	}
	out := make([]entities.AdminLogEntry, limit)
	copy(out, f.log[len(f.log)-limit:])
	return out, nil
}

func (f *fakeAdminStore) AllLog(_ context.Context) ([]entities.AdminLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entities.AdminLogEntry, len(f.log))
	copy(out, f.log)
	return out, nil
}

type fakeSettingsStore struct {
	mu       sync.Mutex
	settings entities.Settings
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{settings: entities.Settings{InviteReward: 2, StartingCredits: 10}}
}

func (f *fakeSettingsStore) Get(_ context.Context) (*entities.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := f.settings
	return &cp, nil
}

func (f *fakeSettingsStore) UpdateChannels(_ context.Context, channel1, channel2 string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.Channel1, f.settings.Channel2 = channel1, channel2
	return nil
}

func (f *fakeSettingsStore) UpdateCreditSettings(_ context.Context, inviteReward, startingCredits int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.InviteReward, f.settings.StartingCredits = inviteReward, startingCredits
	return nil
}

func (f *fakeSettingsStore) Reset(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = entities.Settings{InviteReward: 2, StartingCredits: 10}
	return nil
}

type fakeActivityStore struct {
	mu      sync.Mutex
	records []entities.ActivityRecord
}

func (f *fakeActivityStore) Append(_ context.Context, userID int64, kind, details string, creditsUsed int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, entities.ActivityRecord{
		UserID:      userID,
		Kind:        kind,
		Details:     details,
		CreditsUsed: creditsUsed,
	})
	return nil
}

func (f *fakeActivityStore) Recent(_ context.Context, userID int64, limit int) ([]entities.ActivityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.ActivityRecord
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		if f.records[i].UserID == userID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

type sentMessage struct {
	userID int64
	text   string
}

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[int64]bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{failFor: make(map[int64]bool)}
}

func (f *fakeMessenger) SendText(userID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[userID] {
		return fmt.Errorf("chat %d unreachable", userID)
	}
	f.sent = append(f.sent, sentMessage{userID: userID, text: text})
	return nil
}

func (f *fakeMessenger) SendDocument(userID int64, filename string, _ []byte, _ string) error {
	return f.SendText(userID, "doc:"+filename)
}

func (f *fakeMessenger) SendPhoto(userID int64, filename string, _ []byte, _ string) error {
	return f.SendText(userID, "photo:"+filename)
}

func (f *fakeMessenger) EditMessage(int64, int, string) error { return nil }

func (f *fakeMessenger) sentTo(userID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.sent {
		if m.userID == userID {
			n++
		}
	}
	return n
}

type fakeToolInvoker struct {
	mu       sync.Mutex
	invoked  []string
	artifact *entities.ToolArtifact
	err      error
}

func (f *fakeToolInvoker) Invoke(_ context.Context, token, input string) (*entities.ToolArtifact, error) {
	f.mu.Lock()
	f.invoked = append(f.invoked, token+":"+input)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.artifact != nil {
		return f.artifact, nil
	}
	return &entities.ToolArtifact{Text: "ok"}, nil
}

func (f *fakeToolInvoker) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.invoked)
}

// fakeClock drives the injected now() functions.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
