package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"creditbot/internal/entities"
	"creditbot/internal/infrastructure"
	"creditbot/internal/interfaces"
	"creditbot/internal/usecases"
)

// Handler owns the long-polling loop and routes every update. Each update
// runs in its own goroutine behind a recover so one bad event never stops
// the poller.
type Handler struct {
	bot       *tgbotapi.BotAPI
	messenger interfaces.Messenger
	users     *usecases.UserUsecase
	ledger    *usecases.LedgerUsecase
	referrals *usecases.ReferralUsecase
	security  *usecases.AdminSecurityUsecase
	conv      *usecases.ConversationUsecase
	broadcast *usecases.BroadcastUsecase
	export    *usecases.ExportUsecase
	audit     *usecases.AuditUsecase
	settings  interfaces.SettingsStore
	ownerID   int64
}

func NewHandler(
	bot *tgbotapi.BotAPI,
	messenger interfaces.Messenger,
	users *usecases.UserUsecase,
	ledger *usecases.LedgerUsecase,
	referrals *usecases.ReferralUsecase,
	security *usecases.AdminSecurityUsecase,
	conv *usecases.ConversationUsecase,
	broadcast *usecases.BroadcastUsecase,
	export *usecases.ExportUsecase,
	audit *usecases.AuditUsecase,
	settings interfaces.SettingsStore,
	ownerID int64,
) *Handler {
	return &Handler{
		bot:       bot,
		messenger: messenger,
		users:     users,
		ledger:    ledger,
		referrals: referrals,
		security:  security,
		conv:      conv,
		broadcast: broadcast,
		export:    export,
		audit:     audit,
		settings:  settings,
		ownerID:   ownerID,
	}
}

// Run polls for updates until ctx is cancelled.
func (h *Handler) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := h.bot.GetUpdatesChan(u)

	log.Info().Str("bot", h.bot.Self.UserName).Msg("polling started")

	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			return
		case update := <-updates:
			go h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int("update_id", update.UpdateID).Msg("update handler panicked")
			// Best effort: the owner hears about it, the poller does not care.
			_ = h.messenger.SendText(h.ownerID, fmt.Sprintf("⚠️ Handler panic on update %d: %v", update.UpdateID, r))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

// profileFromMessage lifts the sender into a domain profile. The transport's
// User type carries no premium flag, so IsPremium stays at its zero value.
func profileFromMessage(msg *tgbotapi.Message) *entities.User {
	return &entities.User{
		ID:           msg.From.ID,
		Username:     msg.From.UserName,
		FirstName:    msg.From.FirstName,
		LanguageCode: msg.From.LanguageCode,
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || !msg.Chat.IsPrivate() {
		return
	}
	userID := msg.From.ID

	banned, err := h.users.IsBanned(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("ban check")
		return
	}
	if banned && userID != h.ownerID {
		return
	}

	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
		return
	}
	h.handleText(ctx, msg)
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	switch msg.Command() {
	case "start":
		h.cmdStart(ctx, msg)
	case "credits":
		balance, err := h.ledger.Balance(ctx, userID)
		if err != nil {
			h.reply(userID, "Something went wrong. Try again later.")
			return
		}
		h.reply(userID, fmt.Sprintf("💰 Your balance: *%d* credits", balance))
	case "invite":
		h.cmdInvite(ctx, userID)
	case "stats":
		h.cmdUserStats(ctx, userID)
	case "help":
		h.reply(userID, helpText)
	case "cancel":
		h.cmdCancel(ctx, userID)
	case "admin":
		h.cmdAdmin(ctx, userID)
	case "announce":
		h.cmdAnnounce(ctx, userID, msg.CommandArguments())
	case "confirm_announce":
		h.cmdConfirmAnnounce(ctx, userID)
	case "givecreditsall":
		h.cmdGrantAll(ctx, userID, msg.CommandArguments())
	case "confirm_givecredits":
		h.cmdConfirmGrantAll(ctx, userID)
	case "export":
		h.cmdExportUsers(ctx, userID)
	case "exportlog":
		h.cmdExportLog(ctx, userID)
	default:
		h.reply(userID, "Unknown command. Try /help.")
	}
}

const helpText = `*Available commands*

/start - main menu
/credits - your balance
/invite - your invite link and code
/stats - your account summary
/help - this message
/cancel - abort a pending prompt

Every tool costs 1 credit. Invite friends to earn more.`

func (h *Handler) cmdStart(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	referralCode := strings.TrimSpace(msg.CommandArguments())

	user, redeem, err := h.users.Register(ctx, profileFromMessage(msg), referralCode)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("register")
		h.reply(userID, "Something went wrong. Try again later.")
		return
	}

	if redeem != nil {
		// Post-commit notification split: the inviter hears about the reward
		// here, after the transaction is already durable.
		_ = h.messenger.SendText(redeem.InviterID, fmt.Sprintf(
			"🎉 Someone joined with your invite code! +%d credits (balance: %d, invites: %d)",
			redeem.Reward, redeem.InviterBalance, redeem.TotalInvites))
	}

	settings, err := h.settings.Get(ctx)
	if err == nil && (settings.Channel1 != "" || settings.Channel2 != "") {
		welcome := fmt.Sprintf("👋 Welcome, %s!\n\nJoin our channels, then tap the button below.", msg.From.FirstName)
		out := tgbotapi.NewMessage(userID, welcome)
		out.ReplyMarkup = verifyKeyboard(settings.Channel1, settings.Channel2)
		_, _ = h.bot.Send(out)
		return
	}

	h.sendMainMenu(userID, fmt.Sprintf("👋 Welcome, %s!\nBalance: *%d* credits\n\nPick a category:", msg.From.FirstName, user.Credits))
}

func (h *Handler) cmdInvite(ctx context.Context, userID int64) {
	code, rewarded, reward, err := h.referrals.InviteSummary(ctx, userID)
	if err != nil {
		h.reply(userID, "Send /start first.")
		return
	}
	link := fmt.Sprintf("https://t.me/%s?start=%s", h.bot.Self.UserName, code)
	text := fmt.Sprintf("🔗 Your invite link:\n%s\n\nCode: `%s`\nRewarded invites: *%d*\nYou earn *%d* credits per invite.", link, code, rewarded, reward)

	png, err := qrFor(link)
	if err != nil {
		h.reply(userID, text)
		return
	}
	if err := h.messenger.SendPhoto(userID, "invite.png", png, text); err != nil {
		h.reply(userID, text)
	}
}

func (h *Handler) cmdUserStats(ctx context.Context, userID int64) {
	user, err := h.users.Get(ctx, userID)
	if err != nil || user == nil {
		h.reply(userID, "Send /start first.")
		return
	}
	h.reply(userID, fmt.Sprintf(
		"📋 *Your account*\nCredits: *%d*\nInvites: *%d*\nMember since: %s",
		user.Credits, user.TotalInvites, user.JoinedAt.Format("2006-01-02")))
}

func (h *Handler) cmdCancel(ctx context.Context, userID int64) {
	if _, pending := h.conv.PendingAdminAction(userID); pending {
		h.conv.Reset(userID)
		h.sendAdminPanel(ctx, userID, "Action cancelled.")
		return
	}
	h.conv.Reset(userID)
	h.sendMainMenu(userID, "Cancelled. Pick a category:")
}

func (h *Handler) handleText(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if action, ok := h.conv.PendingAdminAction(userID); ok {
		err := h.handleAdminInput(ctx, userID, action, text)
		h.conv.FinishAdminInput(userID, err)
		return
	}

	if token, ok := h.conv.PendingTool(userID); ok {
		h.runTool(ctx, userID, token, text)
		return
	}

	h.sendMainMenu(userID, "Pick a category:")
}

func (h *Handler) runTool(ctx context.Context, userID int64, token, input string) {
	artifact, err := h.conv.RunTool(ctx, userID, token, input)
	switch {
	case errors.Is(err, entities.ErrInsufficientCredits):
		balance, _ := h.ledger.Balance(ctx, userID)
		h.reply(userID, fmt.Sprintf("❌ Not enough credits (balance: *%d*). Use /invite to earn more.", balance))
		return
	case err != nil:
		log.Warn().Err(err).Str("tool", token).Int64("user_id", userID).Msg("tool invocation failed")
		h.reply(userID, "⚠️ The tool failed this time. The credit was spent; please try again.")
		return
	}
	h.sendArtifact(userID, artifact)
}

func (h *Handler) sendArtifact(userID int64, artifact *entities.ToolArtifact) {
	if len(artifact.Data) > 0 {
		name := strings.ToLower(artifact.FileName)
		if strings.HasSuffix(name, ".png") || strings.HasSuffix(name, ".jpg") || strings.HasSuffix(name, ".jpeg") {
			if err := h.messenger.SendPhoto(userID, artifact.FileName, artifact.Data, ""); err == nil {
				return
			}
		}
		if err := h.messenger.SendDocument(userID, artifact.FileName, artifact.Data, ""); err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Msg("deliver artifact")
		}
		return
	}
	text := artifact.Text
	if len(text) > 4000 {
		_ = h.messenger.SendDocument(userID, "result.txt", []byte(text), "Result too long for a message")
		return
	}
	// Tool output is untrusted; plain send, no markdown surprises.
	out := tgbotapi.NewMessage(userID, text)
	if _, err := h.bot.Send(out); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("deliver text result")
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.Message == nil {
		return
	}
	userID := cb.From.ID
	_, _ = h.bot.Request(tgbotapi.NewCallback(cb.ID, ""))

	data := cb.Data
	switch {
	case data == cbBack:
		h.sendMainMenu(userID, "Pick a category:")
	case data == cbVerify:
		// The join itself is not re-checked; the buttons are the nudge.
		h.sendMainMenu(userID, "✅ Thanks! Pick a category:")
	case strings.HasPrefix(data, cbCategory):
		h.showCategory(userID, strings.TrimPrefix(data, cbCategory))
	case strings.HasPrefix(data, cbTool):
		h.armTool(ctx, userID, strings.TrimPrefix(data, cbTool))
	case strings.HasPrefix(data, cbAdmin):
		h.handleAdminCallback(ctx, userID, strings.TrimPrefix(data, cbAdmin))
	}
}

func (h *Handler) showCategory(userID int64, category string) {
	if _, ok := toolCatalog[category]; !ok {
		h.sendMainMenu(userID, "Pick a category:")
		return
	}
	out := tgbotapi.NewMessage(userID, "Pick a tool (1 credit each):")
	out.ReplyMarkup = categoryKeyboard(category)
	_, _ = h.bot.Send(out)
}

func (h *Handler) armTool(ctx context.Context, userID int64, token string) {
	if !infrastructure.KnownToken(token) {
		h.sendMainMenu(userID, "That tool is gone. Pick a category:")
		return
	}
	balance, err := h.ledger.Balance(ctx, userID)
	if err == nil && balance < usecases.ToolCost {
		h.reply(userID, fmt.Sprintf("❌ Not enough credits (balance: *%d*). Use /invite to earn more.", balance))
		return
	}
	h.conv.AwaitToolInput(userID, token)
	prompt := toolPrompts[token]
	if prompt == "" {
		prompt = "Send your input:"
	}
	h.reply(userID, prompt+"\n\n/cancel to abort.")
}

func (h *Handler) sendMainMenu(userID int64, text string) {
	h.conv.Reset(userID)
	out := tgbotapi.NewMessage(userID, text)
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = mainMenuKeyboard()
	if _, err := h.bot.Send(out); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("send main menu")
	}
}

func (h *Handler) reply(userID int64, text string) {
	if err := h.messenger.SendText(userID, text); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("send reply")
	}
}
