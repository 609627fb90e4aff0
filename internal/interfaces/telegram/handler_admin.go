package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"

	"creditbot/internal/entities"
)

func qrFor(link string) ([]byte, error) {
	return qrcode.Encode(link, qrcode.Medium, 512)
}

// adminPrompts tells the admin what arguments each pending action expects.
var adminPrompts = map[string]string{
	"add_credits":    "Send: `<user_id> <amount>`",
	"remove_credits": "Send: `<user_id> <amount>`",
	"ban":            "Send the user id to ban:",
	"unban":          "Send the user id to unban:",
	"add_admin":      "Send: `<user_id> [username]`",
	"remove_admin":   "Send the user id to remove from admins:",
	"set_channels":   "Send: `<channel_1> [channel_2]` (without @)",
	"set_credits":    "Send: `<credits_per_invite> <starting_credits>`",
	"announce":       "Send the announcement text:",
	"grant_all":      "Send the amount to grant every user:",
}

// ownerOnlyActions require the owner, not just an active admin. Channel and
// credit settings stay at the admin tier.
var ownerOnlyActions = map[string]bool{
	"add_admin":    true,
	"remove_admin": true,
	"export_users": true,
	"export_log":   true,
}

func (h *Handler) cmdAdmin(ctx context.Context, userID int64) {
	err := h.security.EnterPanel(ctx, userID)
	var locked *entities.LockedOutError
	switch {
	case errors.As(err, &locked):
		h.reply(userID, fmt.Sprintf("🔒 Too many failed attempts. Try again in %d seconds.", int(locked.Remaining.Seconds())))
		return
	case errors.Is(err, entities.ErrAccessDenied):
		h.audit.RecordAdmin(ctx, userID, "panel_access", "", "denied")
		h.reply(userID, "Access denied.")
		return
	case err != nil:
		log.Error().Err(err).Int64("user_id", userID).Msg("panel entry")
		h.reply(userID, "Something went wrong. Try again later.")
		return
	}

	h.audit.RecordAdmin(ctx, userID, "panel_access", "", "success")
	h.sendAdminPanel(ctx, userID, "🛠 *Admin panel*")
}

func (h *Handler) sendAdminPanel(ctx context.Context, userID int64, text string) {
	out := tgbotapi.NewMessage(userID, text)
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = adminPanelKeyboard(h.security.IsOwner(userID))
	if _, err := h.bot.Send(out); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("send admin panel")
	}
}

func (h *Handler) handleAdminCallback(ctx context.Context, userID int64, action string) {
	ok, err := h.security.VerifyAdmin(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("verify admin")
		return
	}
	if !ok {
		h.audit.RecordAdmin(ctx, userID, action, "", "denied")
		h.reply(userID, "Access denied.")
		return
	}
	if ownerOnlyActions[action] && !h.security.IsOwner(userID) {
		h.audit.RecordAdmin(ctx, userID, action, "", "denied")
		h.reply(userID, "Owner only.")
		return
	}

	switch action {
	case "stats":
		h.showAdminStats(ctx, userID)
	case "seclog":
		h.showSecurityLog(ctx, userID)
	case "view_admins":
		h.showAdminRoster(ctx, userID)
	case "reset_settings":
		if err := h.settings.Reset(ctx); err != nil {
			h.reply(userID, "Reset failed.")
			return
		}
		h.audit.RecordAdmin(ctx, userID, "reset_settings", "", "success")
		h.reply(userID, "⚙️ Settings restored to defaults.")
	case "export_users":
		h.cmdExportUsers(ctx, userID)
	case "export_log":
		h.cmdExportLog(ctx, userID)
	case "announce":
		h.cmdAnnounce(ctx, userID, "")
	case "grant_all":
		h.cmdGrantAll(ctx, userID, "")
	default:
		prompt, known := adminPrompts[action]
		if !known {
			return
		}
		h.conv.AwaitAdminInput(userID, action)
		h.reply(userID, prompt+"\n\n/cancel to abort.")
	}
}

func (h *Handler) showAdminStats(ctx context.Context, userID int64) {
	stats, err := h.users.Stats(ctx)
	if err != nil {
		h.reply(userID, "Failed to load statistics.")
		return
	}
	h.reply(userID, fmt.Sprintf(
		"📊 *Bot statistics*\nUsers: *%d* (banned: %d)\nActive today: *%d*\nCredits in circulation: *%d*\nRewarded invites: *%d*\nActivity entries: *%d*",
		stats.TotalUsers, stats.BannedUsers, stats.ActiveToday, stats.TotalCredits, stats.TotalInvites, stats.ActivityCount))
}

func (h *Handler) showAdminRoster(ctx context.Context, userID int64) {
	admins, err := h.security.ListAdmins(ctx)
	if err != nil {
		h.reply(userID, "Failed to load admin list.")
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "👥 *Admins* (%d)\n", len(admins))
	for _, a := range admins {
		role := "admin"
		if a.IsOwner {
			role = "owner"
		}
		name := a.Username
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(&b, "`%d` %s (%s, since %s)\n", a.UserID, name, role, a.AddedAt.Format("2006-01-02"))
	}
	h.reply(userID, b.String())
}

func (h *Handler) showSecurityLog(ctx context.Context, userID int64) {
	entries, err := h.audit.RecentAdminLog(ctx, 15)
	if err != nil {
		h.reply(userID, "Failed to load security log.")
		return
	}
	if len(entries) == 0 {
		h.reply(userID, "Security log is empty.")
		return
	}
	var b strings.Builder
	b.WriteString("🛡 *Recent admin actions*\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "`%s` %d %s (%s)\n", e.Timestamp.Format("01-02 15:04"), e.AdminID, e.Action, e.Status)
	}
	h.reply(userID, b.String())
}

// handleAdminInput runs one armed admin action against the admin's text.
// ErrInvalidInput keeps the prompt armed; every other outcome clears it.
func (h *Handler) handleAdminInput(ctx context.Context, userID int64, action, text string) error {
	ok, err := h.security.VerifyAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		h.reply(userID, "Access denied.")
		return entities.ErrAccessDenied
	}

	switch action {
	case "add_credits":
		return h.adjustCredits(ctx, userID, text, 1)
	case "remove_credits":
		return h.adjustCredits(ctx, userID, text, -1)
	case "ban":
		return h.setBan(ctx, userID, text, true)
	case "unban":
		return h.setBan(ctx, userID, text, false)
	case "add_admin":
		return h.addAdmin(ctx, userID, text)
	case "remove_admin":
		return h.removeAdmin(ctx, userID, text)
	case "set_channels":
		return h.setChannels(ctx, userID, text)
	case "set_credits":
		return h.setCreditSettings(ctx, userID, text)
	case "announce":
		h.stashAnnounce(userID, text)
		return nil
	case "grant_all":
		return h.stashGrantAll(userID, text)
	}
	return nil
}

func (h *Handler) adjustCredits(ctx context.Context, adminID int64, text string, sign int) error {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		h.reply(adminID, "Expected `<user_id> <amount>`. Try again or /cancel.")
		return entities.ErrInvalidInput
	}
	targetID, err1 := strconv.ParseInt(fields[0], 10, 64)
	amount, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil || amount <= 0 {
		h.reply(adminID, "Both values must be positive numbers. Try again or /cancel.")
		return entities.ErrInvalidInput
	}

	if err := h.security.AuthorizeCreditChange(adminID, targetID); err != nil {
		h.reply(adminID, "Access denied.")
		h.audit.RecordAdmin(ctx, adminID, "adjust_credits", fmt.Sprintf("target=%d", targetID), "denied")
		return err
	}

	before, err := h.ledger.Balance(ctx, targetID)
	if err != nil {
		h.reply(adminID, "Credit adjustment failed.")
		return err
	}
	balance, err := h.ledger.Credit(ctx, targetID, sign*amount)
	if errors.Is(err, entities.ErrUserNotFound) {
		h.reply(adminID, "User not found.")
		return err
	}
	if err != nil {
		h.reply(adminID, "Credit adjustment failed.")
		return err
	}

	applied := sign * (balance - before)
	h.audit.RecordAdmin(ctx, adminID, "adjust_credits", fmt.Sprintf("target=%d delta=%d", targetID, balance-before), "success")
	if applied != amount {
		// Clamped against the cap or the floor.
		h.reply(adminID, fmt.Sprintf("✅ Done, but only *%d* of %d credits applied. User %d balance: *%d*", applied, amount, targetID, balance))
	} else {
		h.reply(adminID, fmt.Sprintf("✅ Done. User %d balance: *%d*", targetID, balance))
	}
	_ = h.messenger.SendText(targetID, fmt.Sprintf("Your balance was updated by an admin. New balance: *%d*", balance))
	return nil
}

func (h *Handler) setBan(ctx context.Context, adminID int64, text string, banned bool) error {
	targetID, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		h.reply(adminID, "Send a numeric user id. Try again or /cancel.")
		return entities.ErrInvalidInput
	}

	verb := "unban"
	if banned {
		verb = "ban"
	}
	err = h.users.SetBanned(ctx, adminID, targetID, banned)
	switch {
	case errors.Is(err, entities.ErrAccessDenied):
		h.reply(adminID, "Access denied.")
		h.audit.RecordAdmin(ctx, adminID, verb, fmt.Sprintf("target=%d", targetID), "denied")
		return err
	case errors.Is(err, entities.ErrUserNotFound):
		h.reply(adminID, "User not found.")
		return err
	case err != nil:
		h.reply(adminID, "Operation failed.")
		return err
	}

	h.audit.RecordAdmin(ctx, adminID, verb, fmt.Sprintf("target=%d", targetID), "success")
	if banned {
		h.reply(adminID, fmt.Sprintf("🚫 User %d banned.", targetID))
	} else {
		h.reply(adminID, fmt.Sprintf("♻️ User %d unbanned.", targetID))
	}
	return nil
}

func (h *Handler) addAdmin(ctx context.Context, adminID int64, text string) error {
	fields := strings.Fields(text)
	if len(fields) < 1 || len(fields) > 2 {
		h.reply(adminID, "Expected `<user_id> [username]`. Try again or /cancel.")
		return entities.ErrInvalidInput
	}
	targetID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		h.reply(adminID, "User id must be numeric. Try again or /cancel.")
		return entities.ErrInvalidInput
	}
	username := ""
	if len(fields) == 2 {
		username = strings.TrimPrefix(fields[1], "@")
	}

	if err := h.security.AddAdmin(ctx, adminID, targetID, username); err != nil {
		if errors.Is(err, entities.ErrAccessDenied) {
			h.reply(adminID, "Owner only.")
		} else {
			h.reply(adminID, "Failed to add admin.")
		}
		h.audit.RecordAdmin(ctx, adminID, "add_admin", fmt.Sprintf("target=%d", targetID), "denied")
		return err
	}

	h.audit.RecordAdmin(ctx, adminID, "add_admin", fmt.Sprintf("target=%d", targetID), "success")
	h.reply(adminID, fmt.Sprintf("👤 User %d is now an admin.", targetID))
	_ = h.messenger.SendText(targetID, "You were granted admin access. Use /admin to open the panel.")
	return nil
}

func (h *Handler) removeAdmin(ctx context.Context, adminID int64, text string) error {
	targetID, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		h.reply(adminID, "Send a numeric user id. Try again or /cancel.")
		return entities.ErrInvalidInput
	}

	if err := h.security.RemoveAdmin(ctx, adminID, targetID); err != nil {
		if errors.Is(err, entities.ErrAccessDenied) {
			h.reply(adminID, "Access denied.")
		} else {
			h.reply(adminID, "Failed to remove admin.")
		}
		h.audit.RecordAdmin(ctx, adminID, "remove_admin", fmt.Sprintf("target=%d", targetID), "denied")
		return err
	}

	h.audit.RecordAdmin(ctx, adminID, "remove_admin", fmt.Sprintf("target=%d", targetID), "success")
	h.reply(adminID, fmt.Sprintf("🗑 User %d is no longer an admin.", targetID))
	return nil
}

func (h *Handler) setChannels(ctx context.Context, adminID int64, text string) error {
	fields := strings.Fields(text)
	if len(fields) < 1 || len(fields) > 2 {
		h.reply(adminID, "Expected `<channel_1> [channel_2]`. Try again or /cancel.")
		return entities.ErrInvalidInput
	}
	channel1 := strings.TrimPrefix(fields[0], "@")
	channel2 := ""
	if len(fields) == 2 {
		channel2 = strings.TrimPrefix(fields[1], "@")
	}

	if err := h.settings.UpdateChannels(ctx, channel1, channel2); err != nil {
		h.reply(adminID, "Failed to update channels.")
		return err
	}
	h.audit.RecordAdmin(ctx, adminID, "set_channels", channel1+" "+channel2, "success")
	h.reply(adminID, "📺 Channels updated.")
	return nil
}

func (h *Handler) setCreditSettings(ctx context.Context, adminID int64, text string) error {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		h.reply(adminID, "Expected `<credits_per_invite> <starting_credits>`. Try again or /cancel.")
		return entities.ErrInvalidInput
	}
	reward, err1 := strconv.Atoi(fields[0])
	starting, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil || reward < 0 || starting < 0 {
		h.reply(adminID, "Both values must be non-negative numbers. Try again or /cancel.")
		return entities.ErrInvalidInput
	}

	if err := h.settings.UpdateCreditSettings(ctx, reward, starting); err != nil {
		h.reply(adminID, "Failed to update credit settings.")
		return err
	}
	h.audit.RecordAdmin(ctx, adminID, "set_credits", fmt.Sprintf("reward=%d starting=%d", reward, starting), "success")
	h.reply(adminID, fmt.Sprintf("⚙️ Credit settings updated: %d per invite, %d starting.", reward, starting))
	return nil
}

// Broadcast and bulk-grant need an explicit second step inside a short
// window before anything is sent.

func (h *Handler) cmdAnnounce(ctx context.Context, userID int64, args string) {
	ok, err := h.security.VerifyAdmin(ctx, userID)
	if err != nil || !ok {
		h.reply(userID, "Access denied.")
		return
	}
	args = strings.TrimSpace(args)
	if args == "" {
		h.conv.AwaitAdminInput(userID, "announce")
		h.reply(userID, adminPrompts["announce"]+"\n\n/cancel to abort.")
		return
	}
	h.stashAnnounce(userID, args)
}

func (h *Handler) stashAnnounce(userID int64, text string) {
	h.conv.StashConfirmation(userID, "announce", text)
	h.reply(userID, fmt.Sprintf("📣 *Preview:*\n\n%s\n\nSend /confirm\\_announce within 30 seconds to broadcast.", text))
}

func (h *Handler) cmdConfirmAnnounce(ctx context.Context, userID int64) {
	ok, err := h.security.VerifyAdmin(ctx, userID)
	if err != nil || !ok {
		h.reply(userID, "Access denied.")
		return
	}

	text, err := h.conv.TakeConfirmation(userID, "announce")
	if err != nil {
		h.reply(userID, "⏱ Nothing to confirm, or the 30 second window passed.")
		return
	}

	h.reply(userID, "Broadcasting...")
	start := time.Now()
	result, err := h.broadcast.Announce(ctx, text)
	if err != nil {
		h.reply(userID, "Broadcast aborted.")
		return
	}
	h.audit.RecordAdmin(ctx, userID, "announce", fmt.Sprintf("sent=%d failed=%d", result.Sent, result.Failed), "success")
	h.reply(userID, fmt.Sprintf("📣 Broadcast done in %s: sent *%d*, failed *%d* of %d.",
		time.Since(start).Round(time.Second), result.Sent, result.Failed, result.Total))
}

func (h *Handler) cmdGrantAll(ctx context.Context, userID int64, args string) {
	ok, err := h.security.VerifyAdmin(ctx, userID)
	if err != nil || !ok {
		h.reply(userID, "Access denied.")
		return
	}
	args = strings.TrimSpace(args)
	if args == "" {
		h.conv.AwaitAdminInput(userID, "grant_all")
		h.reply(userID, adminPrompts["grant_all"]+"\n\n/cancel to abort.")
		return
	}
	_ = h.stashGrantAll(userID, args)
}

func (h *Handler) stashGrantAll(userID int64, text string) error {
	amount, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || amount <= 0 {
		h.reply(userID, "Send a positive number. Try again or /cancel.")
		return entities.ErrInvalidInput
	}
	h.conv.StashConfirmation(userID, "grant_all", strconv.Itoa(amount))
	h.reply(userID, fmt.Sprintf("🎁 Grant *%d* credits to every user?\n\nSend /confirm\\_givecredits within 30 seconds.", amount))
	return nil
}

func (h *Handler) cmdConfirmGrantAll(ctx context.Context, userID int64) {
	ok, err := h.security.VerifyAdmin(ctx, userID)
	if err != nil || !ok {
		h.reply(userID, "Access denied.")
		return
	}

	payload, err := h.conv.TakeConfirmation(userID, "grant_all")
	if err != nil {
		h.reply(userID, "⏱ Nothing to confirm, or the 30 second window passed.")
		return
	}
	amount, err := strconv.Atoi(payload)
	if err != nil {
		h.reply(userID, "Invalid pending amount.")
		return
	}

	h.reply(userID, "Granting credits...")
	result, err := h.broadcast.GrantAll(ctx, amount)
	if err != nil {
		h.reply(userID, "Bulk grant aborted.")
		return
	}
	h.audit.RecordAdmin(ctx, userID, "grant_all", fmt.Sprintf("amount=%d granted=%d capped=%d failed=%d unnotified=%d", amount, result.Granted, result.Capped, result.Failed, result.NotifyFailed), "success")
	h.reply(userID, fmt.Sprintf("🎁 Granted to *%d* users (%d at the cap, %d failed, %d not notified).", result.Granted, result.Capped, result.Failed, result.NotifyFailed))
}

func (h *Handler) cmdExportUsers(ctx context.Context, userID int64) {
	data, err := h.export.Users(ctx, userID)
	if errors.Is(err, entities.ErrAccessDenied) {
		h.audit.RecordAdmin(ctx, userID, "export_users", "", "denied")
		h.reply(userID, "Owner only.")
		return
	}
	if err != nil {
		h.reply(userID, "Export failed.")
		return
	}
	h.audit.RecordAdmin(ctx, userID, "export_users", "", "success")
	if err := h.messenger.SendDocument(userID, "users.csv", data, "Full user export"); err != nil {
		log.Warn().Err(err).Msg("deliver user export")
	}
}

func (h *Handler) cmdExportLog(ctx context.Context, userID int64) {
	data, err := h.export.AdminLog(ctx, userID)
	if errors.Is(err, entities.ErrAccessDenied) {
		h.audit.RecordAdmin(ctx, userID, "export_log", "", "denied")
		h.reply(userID, "Owner only.")
		return
	}
	if err != nil {
		h.reply(userID, "Export failed.")
		return
	}
	h.audit.RecordAdmin(ctx, userID, "export_log", "", "success")
	if len(data) == 0 {
		h.reply(userID, "Admin log is empty.")
		return
	}
	if err := h.messenger.SendDocument(userID, "admin_log.txt", data, "Full admin log"); err != nil {
		log.Warn().Err(err).Msg("deliver log export")
	}
}
