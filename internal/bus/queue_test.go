package bus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPublishConsumeInbound(t *testing.T) {
	tests := []struct {
		name string
		msg  InboundMessage
	}{
		{
			name: "whatsapp message",
			msg:  InboundMessage{Channel: "whatsapp", Sender: "15551234567@s.whatsapp.net", Text: "Bot, help"},
		},
		{
			name: "telegram message with chat",
			msg:  InboundMessage{Channel: "telegram", Sender: "7@telegram", ReplyTo: "-100@telegram", Text: "Bot, status"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewMessageBus(10)
			b.PublishInbound(tc.msg)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			got, err := b.ConsumeInbound(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.msg {
				t.Errorf("got %+v, want %+v", got, tc.msg)
			}
		})
	}
}

func TestReplyAddress(t *testing.T) {
	tests := []struct {
		name string
		msg  InboundMessage
		want string
	}{
		{"defaults to sender", InboundMessage{Sender: "1@s.whatsapp.net"}, "1@s.whatsapp.net"},
		{"explicit chat", InboundMessage{Sender: "7@telegram", ReplyTo: "-100@telegram"}, "-100@telegram"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.msg.ReplyAddress(); got != tc.want {
				t.Errorf("ReplyAddress() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestOutboundDispatch(t *testing.T) {
	tests := []struct {
		name    string
		subChan string
		pubChan string
		wantHit bool
	}{
		{"matching channel", "telegram", "telegram", true},
		{"non-matching channel", "discord", "telegram", false},
		{"unrouted message skips named subscribers", "telegram", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewMessageBus(10)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			hit := make(chan OutboundMessage, 1)
			b.Subscribe(tc.subChan, func(msg OutboundMessage) { hit <- msg })

			go b.DispatchOutbound(ctx)
			b.PublishOutbound(OutboundMessage{Channel: tc.pubChan, Address: "1@telegram", Text: "hi"})

			select {
			case <-hit:
				if !tc.wantHit {
					t.Error("unexpected delivery")
				}
			case <-time.After(100 * time.Millisecond):
				if tc.wantHit {
					t.Error("message not delivered")
				}
			}
		})
	}
}

func TestConsumeInboundCancellation(t *testing.T) {
	b := NewMessageBus(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.ConsumeInbound(ctx); err == nil {
		t.Fatal("expected error on cancelled context, got nil")
	}
}

func TestSubscribeAll(t *testing.T) {
	b := NewMessageBus(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	channels := []string{"whatsapp", "telegram", ""}
	wg.Add(len(channels))
	b.Subscribe("", func(OutboundMessage) { wg.Done() })

	go b.DispatchOutbound(ctx)
	for _, ch := range channels {
		b.PublishOutbound(OutboundMessage{Channel: ch, Text: "msg"})
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for wildcard deliveries")
	}
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	b := NewMessageBus(1)
	b.Close()
	b.Close()

	b.PublishInbound(InboundMessage{Text: "late"})
	b.PublishOutbound(OutboundMessage{Text: "late"})

	if _, err := b.ConsumeInbound(context.Background()); err == nil {
		t.Fatal("expected error from closed bus")
	}
}
