package entities

import "time"

// MaxCredits is the hard cap on any user's balance.
const MaxCredits = 99999

type User struct {
	ID           int64     `json:"user_id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LanguageCode string    `json:"language_code"`
	IsPremium    bool      `json:"is_premium"`
	Credits      int       `json:"credits"`
	InvitedBy    *int64    `json:"invited_by,omitempty"`
	InviteCode   string    `json:"invite_code"`
	TotalInvites int       `json:"total_invites"`
	JoinedAt     time.Time `json:"join_date"`
	LastActive   time.Time `json:"last_active"`
	IsBanned     bool      `json:"is_banned"`
	Metadata     []byte    `json:"-"` // opaque profile blob, stored as JSONB, never interpreted here
}

// Invite is a single redemption record. Written once, never updated.
type Invite struct {
	ID             int64     `json:"id"`
	InviterID      int64     `json:"inviter_id"`
	InviteeID      int64     `json:"invitee_id"`
	InviteCode     string    `json:"invite_code"`
	UsedAt         time.Time `json:"used_date"`
	CreditsAwarded bool      `json:"credits_awarded"`
}

const (
	AdminStatusActive   = "active"
	AdminStatusInactive = "inactive"
)

type AdminRecord struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	IsOwner   bool      `json:"is_owner"`
	AddedBy   int64     `json:"added_by"`
	CanExport bool      `json:"can_export"`
	Status    string    `json:"status"`
	AddedAt   time.Time `json:"added_date"`
}

// Settings is the singleton admin_settings row.
type Settings struct {
	Channel1        string     `json:"channel_1"`
	Channel2        string     `json:"channel_2"`
	InviteReward    int        `json:"credits_per_invite"`
	StartingCredits int        `json:"starting_credits"`
	LastAdminAction *time.Time `json:"last_admin_action,omitempty"`
}

// ActivityRecord is one append-only row of the user activity log.
type ActivityRecord struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Kind        string    `json:"activity_type"`
	Details     string    `json:"activity_details"`
	CreditsUsed int       `json:"credits_used"`
	Timestamp   time.Time `json:"timestamp"`
}

// AdminLogEntry is one row of the privileged admin log. SessionID groups
// entries written during a single process lifetime.
type AdminLogEntry struct {
	ID        int64     `json:"id"`
	AdminID   int64     `json:"admin_id"`
	Action    string    `json:"action_type"`
	Details   string    `json:"action_details"`
	Status    string    `json:"status"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}
