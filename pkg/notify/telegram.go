package notify

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/go-pkgz/lgr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/umputun/tenderscope/pkg/digest"
)

// TelegramSender delivers digests to a telegram chat. Message text is the
// plain-text rendering, telegram's HTML mode is too restrictive for the full
// HTML alternative.
type TelegramSender struct {
	bot    botAPI
	chatID int64
}

// botAPI is the subset of tgbotapi.BotAPI used here, extracted for testing.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewTelegramSender creates a telegram-backed digest sender.
func NewTelegramSender(token string, chatID int64) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &TelegramSender{bot: bot, chatID: chatID}, nil
}

// telegram caps messages at 4096 characters
const telegramMessageLimit = 4096

// Send delivers the digest text, truncated to telegram's message limit.
func (s *TelegramSender) Send(_ context.Context, d digest.Digest) error {
	text := d.Subject + "\n\n" + d.Text
	if len(text) > telegramMessageLimit {
		// cut on a rune boundary, telegram rejects invalid utf8
		cut := telegramMessageLimit - 3
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}

	msg := tgbotapi.NewMessage(s.chatID, text)
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("send digest to telegram chat %d: %w", s.chatID, err)
	}

	lgr.Printf("[INFO] digest sent to telegram chat %d", s.chatID)
	return nil
}
