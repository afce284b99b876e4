package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/coopco/wishbot/internal/bus"
	"github.com/coopco/wishbot/internal/identity"
)

func init() {
	Register("telegram", newTelegramChannel)
}

type telegramConfig struct {
	Token string `json:"token"`
}

// TelegramChannel long-polls the Bot API. Senders are "<user id>@telegram"
// and replies go to "<chat id>@telegram".
type TelegramChannel struct {
	bot      *tgbotapi.BotAPI
	bus      *bus.MessageBus
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newTelegramChannel(cfg json.RawMessage, msgBus *bus.MessageBus) (Channel, error) {
	var tcfg telegramConfig
	if err := json.Unmarshal(cfg, &tcfg); err != nil {
		return nil, fmt.Errorf("failed to parse telegram config: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(tcfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramChannel{
		bot:    bot,
		bus:    msgBus,
		stopCh: make(chan struct{}),
	}, nil
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				if in, ok := telegramInbound(update); ok {
					c.bus.PublishInbound(in)
				}
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case <-c.stopCh:
				c.bot.StopReceivingUpdates()
				return
			}
		}
	}()
	return nil
}

func telegramInbound(update tgbotapi.Update) (bus.InboundMessage, bool) {
	m := update.Message
	if m == nil || m.From == nil || m.Chat == nil || m.Text == "" {
		return bus.InboundMessage{}, false
	}
	return bus.InboundMessage{
		Channel:    "telegram",
		Sender:     identity.Chat("telegram", strconv.FormatInt(m.From.ID, 10)),
		ReplyTo:    identity.Chat("telegram", strconv.FormatInt(m.Chat.ID, 10)),
		Text:       m.Text,
		MessageID:  strconv.Itoa(m.MessageID),
		ReceivedAt: m.Time(),
	}, true
}

func (c *TelegramChannel) Stop() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

func (c *TelegramChannel) Send(_ context.Context, address, text string) error {
	id, err := chatID(address, "telegram")
	if err != nil {
		return err
	}
	chat, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", id, err)
	}
	if _, err := c.bot.Send(tgbotapi.NewMessage(chat, text)); err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	slog.Debug("telegram: message sent", "chat", chat)
	return nil
}
