package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"creditbot/internal/entities"
	"creditbot/internal/interfaces"
)

const (
	// verifyWindow bounds the sliding verification-attempt window.
	verifyWindow      = time.Hour
	verifyMaxAttempts = 5

	// Progressive panel lockout: base doubles per failure past the
	// threshold, capped at one day.
	panelFailThreshold = 5
	lockoutBase        = 5 * time.Minute
	lockoutMax         = 24 * time.Hour
)

type panelState struct {
	fails    int
	lockedAt time.Time
}

// AdminSecurityUsecase decides who is an admin and guards every privileged
// mutation. Attempt counters are process-local and deliberately not durable;
// a restart resets them.
type AdminSecurityUsecase struct {
	admins  interfaces.AdminStore
	users   interfaces.UserStore
	ownerID int64

	mu       sync.Mutex
	attempts map[int64][]time.Time
	panels   map[int64]*panelState
	now      func() time.Time
}

func NewAdminSecurityUsecase(admins interfaces.AdminStore, users interfaces.UserStore, ownerID int64) *AdminSecurityUsecase {
	return &AdminSecurityUsecase{
		admins:   admins,
		users:    users,
		ownerID:  ownerID,
		attempts: make(map[int64][]time.Time),
		panels:   make(map[int64]*panelState),
		now:      time.Now,
	}
}

func (uc *AdminSecurityUsecase) IsOwner(userID int64) bool {
	return userID == uc.ownerID
}

// VerifyAdmin reports whether userID currently holds admin privilege.
// More than verifyMaxAttempts calls inside the sliding window fail closed
// before any store lookup; a successful verification clears the window.
func (uc *AdminSecurityUsecase) VerifyAdmin(ctx context.Context, userID int64) (bool, error) {
	if !uc.recordAttempt(userID) {
		log.Warn().Int64("user_id", userID).Msg("admin verification rate limit hit")
		return false, nil
	}

	banned, err := uc.users.IsBanned(ctx, userID)
	if err != nil {
		return false, err
	}
	if banned {
		return false, nil
	}

	rec, err := uc.admins.GetActive(ctx, userID)
	if err != nil {
		return false, err
	}
	if rec != nil {
		uc.clearAttempts(userID)
		if err := uc.admins.TouchLastAction(ctx); err != nil {
			log.Warn().Err(err).Msg("touch last admin action")
		}
		return true, nil
	}

	// Legacy single-admin slot: migrate into bot_admins on first success.
	legacyID, err := uc.admins.LegacyAdminID(ctx)
	if err != nil {
		return false, err
	}
	if legacyID != 0 && legacyID == userID {
		user, err := uc.users.GetByID(ctx, userID)
		if err != nil {
			return false, err
		}
		username := ""
		if user != nil {
			username = user.Username
		}
		if err := uc.admins.Insert(ctx, &entities.AdminRecord{
			UserID:   userID,
			Username: username,
			AddedBy:  uc.ownerID,
			Status:   entities.AdminStatusActive,
		}); err != nil {
			return false, fmt.Errorf("migrate legacy admin %d: %w", userID, err)
		}
		log.Info().Int64("user_id", userID).Msg("migrated legacy admin record")
		uc.clearAttempts(userID)
		return true, nil
	}

	return false, nil
}

// recordAttempt adds one attempt and reports whether the caller is still
// within the window budget.
func (uc *AdminSecurityUsecase) recordAttempt(userID int64) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	now := uc.now()
	cutoff := now.Add(-verifyWindow)
	kept := uc.attempts[userID][:0]
	for _, t := range uc.attempts[userID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= verifyMaxAttempts {
		uc.attempts[userID] = kept
		return false
	}
	uc.attempts[userID] = append(kept, now)
	return true
}

func (uc *AdminSecurityUsecase) clearAttempts(userID int64) {
	uc.mu.Lock()
	delete(uc.attempts, userID)
	uc.mu.Unlock()
}

// EnterPanel gates the admin panel behind a progressive lockout. While a
// lockout is in effect the credential is not re-checked at all.
func (uc *AdminSecurityUsecase) EnterPanel(ctx context.Context, userID int64) error {
	if err := uc.checkLockout(userID); err != nil {
		return err
	}

	ok, err := uc.VerifyAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		uc.recordPanelFailure(userID)
		return entities.ErrAccessDenied
	}

	uc.mu.Lock()
	delete(uc.panels, userID)
	uc.mu.Unlock()
	return nil
}

func (uc *AdminSecurityUsecase) checkLockout(userID int64) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	st := uc.panels[userID]
	if st == nil || st.fails < panelFailThreshold {
		return nil
	}
	lockout := lockoutDuration(st.fails)
	elapsed := uc.now().Sub(st.lockedAt)
	if elapsed < lockout {
		return &entities.LockedOutError{Remaining: lockout - elapsed}
	}
	// Interval elapsed: counter and lockout reset together.
	delete(uc.panels, userID)
	return nil
}

func (uc *AdminSecurityUsecase) recordPanelFailure(userID int64) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	st := uc.panels[userID]
	if st == nil {
		st = &panelState{}
		uc.panels[userID] = st
	}
	st.fails++
	if st.fails >= panelFailThreshold {
		st.lockedAt = uc.now()
		log.Warn().Int64("user_id", userID).Int("fails", st.fails).
			Dur("lockout", lockoutDuration(st.fails)).Msg("admin panel locked")
	}
}

func lockoutDuration(fails int) time.Duration {
	d := lockoutBase
	for i := panelFailThreshold; i < fails; i++ {
		d *= 2
		if d >= lockoutMax {
			return lockoutMax
		}
	}
	if d > lockoutMax {
		return lockoutMax
	}
	return d
}

// AddAdmin grants admin status. Owner only.
func (uc *AdminSecurityUsecase) AddAdmin(ctx context.Context, actorID, targetID int64, username string) error {
	if !uc.IsOwner(actorID) {
		return entities.ErrAccessDenied
	}
	return uc.admins.Insert(ctx, &entities.AdminRecord{
		UserID:   targetID,
		Username: username,
		AddedBy:  actorID,
		Status:   entities.AdminStatusActive,
	})
}

// RemoveAdmin deactivates an admin record. Owner only, and the owner's own
// record can never be deactivated.
func (uc *AdminSecurityUsecase) RemoveAdmin(ctx context.Context, actorID, targetID int64) error {
	if !uc.IsOwner(actorID) {
		return entities.ErrAccessDenied
	}
	if targetID == uc.ownerID {
		return entities.ErrAccessDenied
	}
	return uc.admins.Deactivate(ctx, targetID)
}

// AuthorizeBan enforces the target-side guards for ban/unban: only the owner
// may target the owner, and a non-owner admin may not ban an active admin.
func (uc *AdminSecurityUsecase) AuthorizeBan(ctx context.Context, actorID, targetID int64) error {
	if targetID == uc.ownerID && actorID != uc.ownerID {
		return entities.ErrAccessDenied
	}
	if actorID == uc.ownerID {
		return nil
	}
	rec, err := uc.admins.GetActive(ctx, targetID)
	if err != nil {
		return err
	}
	if rec != nil {
		return entities.ErrAccessDenied
	}
	return nil
}

// AuthorizeCreditChange blocks non-owner admins from touching the owner's
// balance.
func (uc *AdminSecurityUsecase) AuthorizeCreditChange(actorID, targetID int64) error {
	if targetID == uc.ownerID && actorID != uc.ownerID {
		return entities.ErrAccessDenied
	}
	return nil
}

// ListAdmins returns every active admin, owner first.
func (uc *AdminSecurityUsecase) ListAdmins(ctx context.Context) ([]entities.AdminRecord, error) {
	return uc.admins.ListActive(ctx)
}
