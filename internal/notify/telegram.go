// Package notify pushes selected decision events to Telegram.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/schundi365/IndianTradingbot-sub006/internal/events"
)

// Telegram forwards noteworthy events to a chat. Routine adjustments are
// skipped; only admissions, rejections, closes and failures are pushed.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegram connects the bot. Token validation happens inside NewBotAPI.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting telegram bot: %w", err)
	}
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "notify").Logger(),
	}, nil
}

func (t *Telegram) Emit(ev events.Event) {
	text := format(ev)
	if text == "" {
		return
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("telegram send failed")
	}
}

func format(ev events.Event) string {
	switch ev.Type {
	case events.PlanAdmitted:
		return fmt.Sprintf("✅ %s: plan admitted (position %s)", ev.Symbol, ev.PositionID)
	case events.PlanRejected:
		return fmt.Sprintf("🚫 %s: plan rejected: %s", ev.Symbol, ev.Reason)
	case events.PositionClosed:
		return fmt.Sprintf("🏁 %s: position %s fully closed", ev.Symbol, ev.PositionID)
	case events.DegradedHealth:
		return fmt.Sprintf("⚠️ %s: market data unavailable, worker degraded", ev.Symbol)
	case events.ModifyFailure:
		return fmt.Sprintf("⚠️ %s: broker modify failed on position %s: %s", ev.Symbol, ev.PositionID, ev.Reason)
	default:
		return ""
	}
}
