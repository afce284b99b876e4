package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/coopco/wishbot/internal/bus"
	"github.com/coopco/wishbot/internal/identity"
)

// Channel is the interface all chat transports implement. Inbound texts are
// published to the bus; Send delivers one text to one address.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Send(ctx context.Context, address, text string) error
}

// ChannelFactory creates a Channel from JSON config and a MessageBus.
type ChannelFactory func(cfg json.RawMessage, msgBus *bus.MessageBus) (Channel, error)

var registry = map[string]ChannelFactory{}

// Register adds a channel factory to the registry.
func Register(name string, factory ChannelFactory) {
	registry[name] = factory
}

// GetFactory returns the factory for a channel name.
func GetFactory(name string) (ChannelFactory, bool) {
	f, ok := registry[name]
	return f, ok
}

// RegisteredNames returns all registered channel names, sorted.
func RegisteredNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// chatID extracts the transport id from a chat-scoped address such as
// "4242@telegram".
func chatID(address, domain string) (string, error) {
	a := identity.Parse(address)
	if a.Kind != identity.KindChat || a.Domain != domain || a.Local == "" {
		return "", fmt.Errorf("%s: not a %s address: %q", domain, domain, address)
	}
	return a.Local, nil
}
