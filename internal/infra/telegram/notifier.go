package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-caller-lookup/internal/config"
	"telegram-caller-lookup/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*Notifier)(nil)

// Notifier handles the Telegram side calls that are not webhook replies:
// the typing indicator and error reports to the configured channel.
type Notifier struct {
	bot             *tgbotapi.BotAPI
	reportChannelID int64
	log             *zerolog.Logger
}

func NewNotifier(cfg *config.BotConfig, logger *zerolog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Notifier{
		bot:             bot,
		reportChannelID: cfg.ReportChannelID,
		log:             logger,
	}, nil
}

func (n *Notifier) SendTyping(ctx context.Context, chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := n.bot.Request(action); err != nil {
		n.log.Debug().Err(err).Int64("chat_id", chatID).Msg("typing indicator failed")
	}
}

// ReportError sends full error detail to the report channel as a fenced
// MarkdownV2 block. Best effort: failures are logged and dropped.
func (n *Notifier) ReportError(ctx context.Context, chatID int64, reported error) {
	if n.reportChannelID == 0 {
		n.log.Warn().Msg("bot.report_channel_id is not set; dropping error report")
		return
	}

	details := fmt.Sprintf("%d: %v", chatID, reported)
	details = strings.ReplaceAll(details, `\`, `\\`)
	details = strings.ReplaceAll(details, "`", "\\`")

	msg := tgbotapi.NewMessage(n.reportChannelID, "```\n"+details+"\n```")
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := n.bot.Send(msg); err != nil {
		n.log.Error().Err(err).Msg("error report delivery failed")
	}
}
