package bus

import (
	"context"
	"sync"
)

// MessageBus connects transports to the command dispatcher with buffered
// Go channels. Inbound messages are consumed by one reader; outbound
// messages fan out to subscribers by channel name.
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage
	subs     map[string][]func(OutboundMessage) // channel name -> subscribers
	mu       sync.RWMutex
	closed   bool
	closeMu  sync.RWMutex
}

// NewMessageBus creates a new MessageBus with the given buffer size.
// If bufSize is 0, defaults to 100.
func NewMessageBus(bufSize int) *MessageBus {
	if bufSize <= 0 {
		bufSize = 100
	}
	return &MessageBus{
		inbound:  make(chan InboundMessage, bufSize),
		outbound: make(chan OutboundMessage, bufSize),
		subs:     make(map[string][]func(OutboundMessage)),
	}
}

// PublishInbound queues an inbound message. It blocks while the buffer is
// full and drops the message once the bus is closed.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return
	}
	b.inbound <- msg
}

// PublishOutbound queues an outbound message, dropping it once the bus is closed.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return
	}
	b.outbound <- msg
}

// ConsumeInbound blocks until an inbound message is available or ctx is cancelled.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, error) {
	select {
	case msg, ok := <-b.inbound:
		if !ok {
			return InboundMessage{}, context.Canceled
		}
		return msg, nil
	case <-ctx.Done():
		return InboundMessage{}, ctx.Err()
	}
}

// Subscribe registers fn to receive outbound messages for the given channel.
// An empty channel string subscribes to ALL channels.
func (b *MessageBus) Subscribe(channel string, fn func(OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[channel] = append(b.subs[channel], fn)
}

// DispatchOutbound delivers outbound messages to matching subscribers until
// ctx is cancelled or the bus is closed.
func (b *MessageBus) DispatchOutbound(ctx context.Context) {
	for {
		select {
		case msg, ok := <-b.outbound:
			if !ok {
				return
			}
			b.dispatch(msg)
		case <-ctx.Done():
			return
		}
	}
}

func (b *MessageBus) dispatch(msg OutboundMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if msg.Channel != "" {
		for _, fn := range b.subs[msg.Channel] {
			fn(msg)
		}
	}
	// wildcard subscribers (empty string = all channels)
	for _, fn := range b.subs[""] {
		fn(msg)
	}
}

// Close closes both queues. Later publishes are dropped.
func (b *MessageBus) Close() {
	b.closeMu.Lock()
	defer b.closeMu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.inbound)
	close(b.outbound)
}
