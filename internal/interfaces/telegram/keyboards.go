package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data prefixes. Category and tool callbacks drive the user flow;
// admin callbacks are panel buttons and get an extra privilege check.
const (
	cbCategory = "cat:"
	cbTool     = "tool:"
	cbAdmin    = "admin:"
	cbVerify   = "verify_join"
	cbBack     = "back:main"
)

// toolCatalog maps a category key to its tools: button label -> tool token.
var toolCatalog = map[string][]struct {
	Label string
	Token string
}{
	"ai": {
		{"🎨 Text to Image", "ai_t2i"},
		{"🖼 SeaArt", "ai_seaart"},
		{"🤖 DeepSeek Chat", "ai_deepseek"},
	},
	"down": {
		{"🎵 TikTok", "down_tiktok"},
		{"📸 Instagram", "down_insta"},
	},
	"search": {
		{"📱 APK Search", "search_apk"},
		{"🌐 Web Search", "search_web"},
	},
	"tools": {
		{"📡 IP Lookup", "tools_ip"},
		{"📞 SIM Info", "tools_sim"},
		{"🔲 QR Generator", "tools_qr"},
	},
}

// toolPrompts tells the user what to send once a tool is armed.
var toolPrompts = map[string]string{
	"ai_t2i":      "Send the image prompt:",
	"ai_seaart":   "Send the image prompt:",
	"ai_deepseek": "Send your question:",
	"down_tiktok": "Send the TikTok video link:",
	"down_insta":  "Send the Instagram post link:",
	"search_apk":  "Send the app name to search:",
	"search_web":  "Send your search query:",
	"tools_ip":    "Send the IP address:",
	"tools_sim":   "Send the phone number:",
	"tools_qr":    "Send the text or link to encode:",
}

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🤖 AI Tools", cbCategory+"ai"),
			tgbotapi.NewInlineKeyboardButtonData("⬇️ Downloaders", cbCategory+"down"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔍 Search", cbCategory+"search"),
			tgbotapi.NewInlineKeyboardButtonData("🛠 Utilities", cbCategory+"tools"),
		),
	)
}

func categoryKeyboard(category string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, tool := range toolCatalog[category] {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(tool.Label, cbTool+tool.Token),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbBack),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func verifyKeyboard(channel1, channel2 string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if channel1 != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📢 Join Channel 1", "https://t.me/"+channel1),
		))
	}
	if channel2 != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📢 Join Channel 2", "https://t.me/"+channel2),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ I Joined", cbVerify),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func adminPanelKeyboard(isOwner bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Statistics", cbAdmin+"stats"),
			tgbotapi.NewInlineKeyboardButtonData("🛡 Security Log", cbAdmin+"seclog"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add Credits", cbAdmin+"add_credits"),
			tgbotapi.NewInlineKeyboardButtonData("➖ Remove Credits", cbAdmin+"remove_credits"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚫 Ban User", cbAdmin+"ban"),
			tgbotapi.NewInlineKeyboardButtonData("♻️ Unban User", cbAdmin+"unban"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📣 Broadcast", cbAdmin+"announce"),
			tgbotapi.NewInlineKeyboardButtonData("🎁 Credits For All", cbAdmin+"grant_all"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📺 Set Channels", cbAdmin+"set_channels"),
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Credit Settings", cbAdmin+"set_credits"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 View Admins", cbAdmin+"view_admins"),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Reset Settings", cbAdmin+"reset_settings"),
		),
	}
	if isOwner {
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("👤 Add Admin", cbAdmin+"add_admin"),
				tgbotapi.NewInlineKeyboardButtonData("🗑 Remove Admin", cbAdmin+"remove_admin"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📤 Export Users", cbAdmin+"export_users"),
				tgbotapi.NewInlineKeyboardButtonData("📜 Export Log", cbAdmin+"export_log"),
			),
		)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}
