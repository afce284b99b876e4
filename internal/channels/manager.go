package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coopco/wishbot/internal/bus"
	"github.com/coopco/wishbot/internal/identity"
)

// ErrNoChannel is returned when no running channel serves an address.
var ErrNoChannel = errors.New("no channel for address")

// Manager owns the configured channels and routes outgoing texts to them by
// address domain. It implements delivery.Sender.
type Manager struct {
	channels map[string]Channel
	order    []string
	bus      *bus.MessageBus
	mu       sync.RWMutex
}

func NewManager(msgBus *bus.MessageBus) *Manager {
	m := &Manager{bus: msgBus, channels: make(map[string]Channel)}
	m.setupOutboundDispatch()
	return m
}

// AddChannel creates and adds a channel from config.
func (m *Manager) AddChannel(name string, cfgJSON json.RawMessage) error {
	factory, ok := GetFactory(name)
	if !ok {
		return fmt.Errorf("no factory registered for channel %q", name)
	}
	ch, err := factory(cfgJSON, m.bus)
	if err != nil {
		return fmt.Errorf("failed to create channel %q: %w", name, err)
	}
	m.Add(ch)
	return nil
}

// Add registers an already constructed channel, replacing one with the
// same name.
func (m *Manager) Add(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.channels[ch.Name()]; !ok {
		m.order = append(m.order, ch.Name())
	}
	m.channels[ch.Name()] = ch
}

// Names returns channel names in the order they were added.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.order...)
}

func (m *Manager) snapshot() []Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chs := make([]Channel, 0, len(m.order))
	for _, name := range m.order {
		chs = append(chs, m.channels[name])
	}
	return chs
}

// StartAll starts every channel.
func (m *Manager) StartAll(ctx context.Context) error {
	for _, ch := range m.snapshot() {
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("failed to start channel %q: %w", ch.Name(), err)
		}
		slog.Info("channel started", "channel", ch.Name())
	}
	return nil
}

// StopAll stops all channels.
func (m *Manager) StopAll() error {
	var firstErr error
	for _, ch := range m.snapshot() {
		if err := ch.Stop(); err != nil {
			slog.Error("failed to stop channel", "channel", ch.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Route names the channel that delivers to address. Phone and alias
// addresses go to WhatsApp; chat-scoped ids go to their own transport.
func Route(address string) string {
	a := identity.Parse(address)
	switch a.Kind {
	case identity.KindPhone, identity.KindAlias:
		return "whatsapp"
	case identity.KindChat:
		return a.Domain
	}
	return ""
}

// Send delivers text to address through the channel that serves it.
func (m *Manager) Send(ctx context.Context, address, text string) error {
	return m.sendVia(ctx, Route(address), address, text)
}

func (m *Manager) sendVia(ctx context.Context, name, address, text string) error {
	m.mu.RLock()
	ch, ok := m.channels[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoChannel, address)
	}
	return ch.Send(ctx, address, text)
}

// setupOutboundDispatch subscribes to outbound messages and routes to channels.
func (m *Manager) setupOutboundDispatch() {
	m.bus.Subscribe("", func(msg bus.OutboundMessage) {
		name := msg.Channel
		if name == "" {
			name = Route(msg.Address)
		}
		if err := m.sendVia(context.Background(), name, msg.Address, msg.Text); err != nil {
			slog.Error("failed to send message", "channel", name, "address", msg.Address, "error", err)
		}
	})
}
