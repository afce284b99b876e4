package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/coopco/wishbot/internal/bus"
	"github.com/coopco/wishbot/internal/identity"
)

func init() {
	Register("slack", newSlackChannel)
}

type slackConfig struct {
	BotToken string `json:"botToken"`
	AppToken string `json:"appToken"`
}

// SlackChannel implements Channel for Slack via socket mode. Senders are
// "<user id>@slack"; replies and wishes go to "<channel id>@slack".
type SlackChannel struct {
	client       *slack.Client
	socketClient *socketmode.Client
	bus          *bus.MessageBus
}

func newSlackChannel(cfg json.RawMessage, msgBus *bus.MessageBus) (Channel, error) {
	var c slackConfig
	if err := json.Unmarshal(cfg, &c); err != nil {
		return nil, fmt.Errorf("failed to parse slack config: %w", err)
	}
	client := slack.New(c.BotToken, slack.OptionAppLevelToken(c.AppToken))
	return &SlackChannel{
		client:       client,
		socketClient: socketmode.New(client),
		bus:          msgBus,
	}, nil
}

func (c *SlackChannel) Name() string { return "slack" }

func (c *SlackChannel) Start(ctx context.Context) error {
	go func() {
		for evt := range c.socketClient.Events {
			if evt.Request != nil {
				c.socketClient.Ack(*evt.Request)
			}
			if evt.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			eventsAPI, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok || eventsAPI.Type != slackevents.CallbackEvent {
				continue
			}
			inner, ok := eventsAPI.InnerEvent.Data.(*slackevents.MessageEvent)
			if !ok {
				continue
			}
			if in, ok := slackInbound(inner); ok {
				c.bus.PublishInbound(in)
			}
		}
	}()
	go c.socketClient.RunContext(ctx)
	return nil
}

func slackInbound(ev *slackevents.MessageEvent) (bus.InboundMessage, bool) {
	// skip bot messages and edits
	if ev == nil || ev.BotID != "" || ev.SubType != "" || ev.User == "" || ev.Text == "" {
		return bus.InboundMessage{}, false
	}
	return bus.InboundMessage{
		Channel:    "slack",
		Sender:     identity.Chat("slack", ev.User),
		ReplyTo:    identity.Chat("slack", ev.Channel),
		Text:       ev.Text,
		MessageID:  ev.TimeStamp,
		ReceivedAt: slackTime(ev.TimeStamp),
	}, true
}

// slackTime parses a Slack "seconds.micros" timestamp.
func slackTime(ts string) time.Time {
	sec, frac, _ := strings.Cut(ts, ".")
	s, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Now()
	}
	us, _ := strconv.ParseInt(frac, 10, 64)
	return time.Unix(s, us*int64(time.Microsecond))
}

func (c *SlackChannel) Stop() error { return nil }

func (c *SlackChannel) Send(ctx context.Context, address, text string) error {
	id, err := chatID(address, "slack")
	if err != nil {
		return err
	}
	if _, _, err := c.client.PostMessageContext(ctx, id, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}
