package bus

import "time"

// InboundMessage is a text received from any channel.
type InboundMessage struct {
	Channel    string    // source channel name (e.g. "whatsapp", "telegram")
	Sender     string    // sender address, e.g. "15551234567@s.whatsapp.net" or "42@telegram"
	ReplyTo    string    // address replies go to; defaults to Sender
	Text       string    // raw message text
	MessageID  string    // transport message id, if any
	ReceivedAt time.Time // when the transport saw the message
}

// ReplyAddress returns where a reply to m should be delivered.
func (m InboundMessage) ReplyAddress() string {
	if m.ReplyTo != "" {
		return m.ReplyTo
	}
	return m.Sender
}

// OutboundMessage is a text to deliver through a channel.
type OutboundMessage struct {
	Channel string // target channel; empty routes by address
	Address string // recipient address
	Text    string // text content
}
