package interfaces

import (
	"context"

	"creditbot/internal/entities"
)

// Messenger is the chat-transport collaborator. The core calls it to present
// menus, confirmations and tool results; it defines no wire format of its own.
type Messenger interface {
	SendText(userID int64, text string) error
	SendDocument(userID int64, filename string, data []byte, caption string) error
	SendPhoto(userID int64, filename string, data []byte, caption string) error
	EditMessage(userID int64, messageID int, text string) error
}

// ToolInvoker performs the actual requested computation or fetch. The core
// only cares whether it succeeded, for audit purposes.
type ToolInvoker interface {
	Invoke(ctx context.Context, token, input string) (*entities.ToolArtifact, error)
}

// UserStore is the users-table port. Lookups return (nil, nil) for unknown
// ids; balance mutations are single atomic statements on the store side.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*entities.User, error)
	Create(ctx context.Context, u *entities.User) error
	TouchProfile(ctx context.Context, u *entities.User) error
	Credits(ctx context.Context, id int64) (int, error)
	CheckAndDeduct(ctx context.Context, id int64, amount int) (bool, error)
	Credit(ctx context.Context, id int64, amount int) (int, error)
	SetBanned(ctx context.Context, id int64, banned bool) error
	IsBanned(ctx context.Context, id int64) (bool, error)
	InviteCodeExists(ctx context.Context, code string) (bool, error)
	ActiveIDs(ctx context.Context) ([]int64, error)
	Stats(ctx context.Context) (*entities.UserStats, error)
	ExportAll(ctx context.Context) ([]entities.User, error)
}

// ReferralStore applies a redemption as one transaction: both credit grants,
// the total_invites bump and the invite row commit or roll back together.
// Redeem returns (nil, nil) when no user owns the code.
type ReferralStore interface {
	Redeem(ctx context.Context, code string, newUserID int64, reward int) (*entities.RedeemResult, error)
	CountRewarded(ctx context.Context, inviterID int64) (int, error)
}

type AdminStore interface {
	Get(ctx context.Context, userID int64) (*entities.AdminRecord, error)
	GetActive(ctx context.Context, userID int64) (*entities.AdminRecord, error)
	Insert(ctx context.Context, rec *entities.AdminRecord) error
	Deactivate(ctx context.Context, userID int64) error
	ListActive(ctx context.Context) ([]entities.AdminRecord, error)
	LegacyAdminID(ctx context.Context) (int64, error)
	TouchLastAction(ctx context.Context) error
	AppendLog(ctx context.Context, entry *entities.AdminLogEntry) error
	RecentLog(ctx context.Context, limit int) ([]entities.AdminLogEntry, error)
	AllLog(ctx context.Context) ([]entities.AdminLogEntry, error)
}

type SettingsStore interface {
	Get(ctx context.Context) (*entities.Settings, error)
	UpdateChannels(ctx context.Context, channel1, channel2 string) error
	UpdateCreditSettings(ctx context.Context, inviteReward, startingCredits int) error
	Reset(ctx context.Context) error
}

// ActivityStore appends to the immutable activity log. Append also touches
// the user's last_active timestamp.
type ActivityStore interface {
	Append(ctx context.Context, userID int64, kind, details string, creditsUsed int) error
	Recent(ctx context.Context, userID int64, limit int) ([]entities.ActivityRecord, error)
}
