package channels

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/coopco/wishbot/internal/bus"
	"github.com/coopco/wishbot/internal/identity"
)

func init() {
	Register("discord", newDiscordChannel)
}

type discordConfig struct {
	Token string `json:"token"`
}

// DiscordChannel listens on the gateway websocket. Senders are
// "<user id>@discord"; replies and wishes go to "<channel id>@discord".
type DiscordChannel struct {
	session *discordgo.Session
	bus     *bus.MessageBus
}

func newDiscordChannel(cfg json.RawMessage, msgBus *bus.MessageBus) (Channel, error) {
	var dcfg discordConfig
	if err := json.Unmarshal(cfg, &dcfg); err != nil {
		return nil, fmt.Errorf("failed to parse discord config: %w", err)
	}
	session, err := discordgo.New("Bot " + dcfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	return &DiscordChannel{session: session, bus: msgBus}, nil
}

func (c *DiscordChannel) Name() string { return "discord" }

func (c *DiscordChannel) Start(ctx context.Context) error {
	c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if in, ok := discordInbound(m); ok {
			c.bus.PublishInbound(in)
		}
	})
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("discord: failed to open websocket: %w", err)
	}
	return nil
}

func discordInbound(m *discordgo.MessageCreate) (bus.InboundMessage, bool) {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot || m.Content == "" {
		return bus.InboundMessage{}, false
	}
	return bus.InboundMessage{
		Channel:    "discord",
		Sender:     identity.Chat("discord", m.Author.ID),
		ReplyTo:    identity.Chat("discord", m.ChannelID),
		Text:       m.Content,
		MessageID:  m.ID,
		ReceivedAt: m.Timestamp,
	}, true
}

func (c *DiscordChannel) Stop() error {
	return c.session.Close()
}

func (c *DiscordChannel) Send(ctx context.Context, address, text string) error {
	id, err := chatID(address, "discord")
	if err != nil {
		return err
	}
	if _, err := c.session.ChannelMessageSend(id, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: failed to send message: %w", err)
	}
	return nil
}
