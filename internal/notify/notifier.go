package notify

import (
	"fmt"
	"log"

	"fire_bridge/internal/modules/config"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier is the operator channel: peer connects/disconnects and fatal
// storage errors go here. It is fire-and-forget; delivery failures are
// swallowed.
type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// NewFromConfig returns a Telegram notifier when a token is configured,
// stdout otherwise.
func NewFromConfig(cfg *config.Config) (Notifier, error) {
	if cfg.Telegram.Token == "" {
		return NewStdout(), nil
	}
	return NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
}

// Telegram is a passive sender only. No command handling lives here.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
	}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	_, _ = t.bot.Send(tgbot.NewMessage(t.chatID, msg))
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Stdout is the fallback when no token is configured.
type Stdout struct{}

func NewStdout() *Stdout                           { return &Stdout{} }
func (s *Stdout) Send(msg string)                  { log.Println(msg) }
func (s *Stdout) Sendf(format string, args ...any) { log.Printf(format, args...) }
