package infrastructure

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramClient implements interfaces.Messenger over the Bot API.
type TelegramClient struct {
	Bot *tgbotapi.BotAPI
}

func NewTelegramClient(token string) (*TelegramClient, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &TelegramClient{Bot: bot}, nil
}

func (c *TelegramClient) SendText(userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := c.Bot.Send(msg)
	return err
}

func (c *TelegramClient) SendDocument(userID int64, filename string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(userID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	_, err := c.Bot.Send(doc)
	return err
}

func (c *TelegramClient) SendPhoto(userID int64, filename string, data []byte, caption string) error {
	photo := tgbotapi.NewPhoto(userID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	photo.Caption = caption
	_, err := c.Bot.Send(photo)
	return err
}

func (c *TelegramClient) EditMessage(userID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(userID, messageID, text)
	_, err := c.Bot.Send(edit)
	return err
}
