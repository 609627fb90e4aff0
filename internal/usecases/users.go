package usecases

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"creditbot/internal/entities"
	"creditbot/internal/interfaces"
)

// UserUsecase handles account creation and moderation. Registration is the
// only moment a referral code can be redeemed.
type UserUsecase struct {
	users     interfaces.UserStore
	referrals *ReferralUsecase
	settings  interfaces.SettingsStore
	security  *AdminSecurityUsecase
}

func NewUserUsecase(users interfaces.UserStore, referrals *ReferralUsecase, settings interfaces.SettingsStore, security *AdminSecurityUsecase) *UserUsecase {
	return &UserUsecase{users: users, referrals: referrals, settings: settings, security: security}
}

// Register returns the existing account or creates a new one. New accounts
// start at the configured starting balance and get a fresh invite code; a
// referral code passed with the very first /start is redeemed in the same
// call. The redeem result is nil for returning users and unknown codes.
func (uc *UserUsecase) Register(ctx context.Context, profile *entities.User, referralCode string) (*entities.User, *entities.RedeemResult, error) {
	existing, err := uc.users.GetByID(ctx, profile.ID)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		if err := uc.users.TouchProfile(ctx, profile); err != nil {
			log.Warn().Err(err).Int64("user_id", profile.ID).Msg("refresh profile")
		}
		return existing, nil, nil
	}

	settings, err := uc.settings.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	code, err := uc.referrals.GenerateCode(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("issue invite code: %w", err)
	}

	user := *profile
	user.Credits = settings.StartingCredits
	user.InviteCode = code
	if err := uc.users.Create(ctx, &user); err != nil {
		return nil, nil, fmt.Errorf("create user %d: %w", profile.ID, err)
	}
	log.Info().Int64("user_id", user.ID).Int("credits", user.Credits).Msg("new user registered")

	var redeem *entities.RedeemResult
	if referralCode != "" && referralCode != code {
		redeem, err = uc.referrals.Redeem(ctx, referralCode, user.ID)
		if err != nil {
			// The account exists either way; the reward is what failed.
			log.Error().Err(err).Str("code", referralCode).Int64("user_id", user.ID).Msg("redeem on register")
		} else if redeem != nil {
			user.Credits = redeem.InviteeBalance
			user.InvitedBy = &redeem.InviterID
		}
	}
	return &user, redeem, nil
}

func (uc *UserUsecase) Get(ctx context.Context, userID int64) (*entities.User, error) {
	return uc.users.GetByID(ctx, userID)
}

func (uc *UserUsecase) IsBanned(ctx context.Context, userID int64) (bool, error) {
	return uc.users.IsBanned(ctx, userID)
}

// SetBanned flips a user's ban flag after the actor passes the target-side
// guards.
func (uc *UserUsecase) SetBanned(ctx context.Context, actorID, targetID int64, banned bool) error {
	if err := uc.security.AuthorizeBan(ctx, actorID, targetID); err != nil {
		return err
	}
	return uc.users.SetBanned(ctx, targetID, banned)
}

// Stats returns the aggregate snapshot for the admin statistics view.
func (uc *UserUsecase) Stats(ctx context.Context) (*entities.UserStats, error) {
	return uc.users.Stats(ctx)
}
