package entities

// ToolArtifact is what a tool invocation hands back: either plain text or a
// binary payload with a filename. The core never looks inside.
type ToolArtifact struct {
	Text     string
	FileName string
	Data     []byte
}

// RedeemResult reports a completed referral redemption, post-commit, so the
// transport layer can notify both sides without re-reading the store.
type RedeemResult struct {
	InviterID      int64
	InviteeID      int64
	Reward         int
	InviterBalance int
	InviteeBalance int
	TotalInvites   int
}

// UserStats is the aggregate snapshot behind the admin statistics view.
type UserStats struct {
	TotalUsers    int
	BannedUsers   int
	TotalCredits  int64
	ActiveToday   int
	TotalInvites  int
	ActivityCount int64
}
