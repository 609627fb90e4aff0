package usecases

import (
	"context"
	"crypto/rand"
	"fmt"

	"creditbot/internal/entities"
	"creditbot/internal/interfaces"
)

const (
	inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteCodeLength   = 8
)

// ReferralUsecase issues invite codes and applies redemptions. A redemption
// rewards both sides exactly once, at account-creation time.
type ReferralUsecase struct {
	users     interfaces.UserStore
	referrals interfaces.ReferralStore
	settings  interfaces.SettingsStore
}

func NewReferralUsecase(users interfaces.UserStore, referrals interfaces.ReferralStore, settings interfaces.SettingsStore) *ReferralUsecase {
	return &ReferralUsecase{users: users, referrals: referrals, settings: settings}
}

// GenerateCode returns a fresh invite code not yet owned by any user.
// Uniqueness is re-checked after every sample, so a collision just costs
// another draw.
func (uc *ReferralUsecase) GenerateCode(ctx context.Context) (string, error) {
	for {
		code, err := sampleInviteCode()
		if err != nil {
			return "", err
		}
		exists, err := uc.users.InviteCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}

// codeByteLimit is the largest multiple of the alphabet size that fits in a
// byte. Bytes at or above it are rejected so every character stays equally
// likely.
const codeByteLimit = 256 - 256%len(inviteCodeAlphabet)

func sampleInviteCode() (string, error) {
	out := make([]byte, 0, inviteCodeLength)
	buf := make([]byte, 2*inviteCodeLength)
	for len(out) < inviteCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("sample invite code: %w", err)
		}
		for _, b := range buf {
			c, ok := codeChar(b)
			if !ok {
				continue
			}
			out = append(out, c)
			if len(out) == inviteCodeLength {
				break
			}
		}
	}
	return string(out), nil
}

func codeChar(b byte) (byte, bool) {
	if int(b) >= codeByteLimit {
		return 0, false
	}
	return inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)], true
}

// Redeem applies code on behalf of newUserID. Unknown codes are a silent
// no-op (nil, nil). Both credit grants, the referrer's total_invites bump and
// the invite row commit together or not at all.
func (uc *ReferralUsecase) Redeem(ctx context.Context, code string, newUserID int64) (*entities.RedeemResult, error) {
	settings, err := uc.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	result, err := uc.referrals.Redeem(ctx, code, newUserID, settings.InviteReward)
	if err != nil {
		return nil, fmt.Errorf("redeem invite code: %w", err)
	}
	return result, nil
}

// InviteSummary reports a user's own code, rewarded-invite count and the
// per-invite reward, for the /invite view.
func (uc *ReferralUsecase) InviteSummary(ctx context.Context, userID int64) (code string, rewarded, reward int, err error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return "", 0, 0, err
	}
	if user == nil {
		return "", 0, 0, entities.ErrUserNotFound
	}
	rewarded, err = uc.referrals.CountRewarded(ctx, userID)
	if err != nil {
		return "", 0, 0, err
	}
	settings, err := uc.settings.Get(ctx)
	if err != nil {
		return "", 0, 0, err
	}
	return user.InviteCode, rewarded, settings.InviteReward, nil
}
