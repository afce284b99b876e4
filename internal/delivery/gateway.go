// Package delivery wraps a transport with the guarantees the scheduler and
// command surface rely on: sends never panic into the caller, and fan-out
// attempts every recipient.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrEmptyAddress is returned when a send has no recipient.
var ErrEmptyAddress = errors.New("empty recipient address")

// Sender delivers one text message to one address.
type Sender interface {
	Send(ctx context.Context, address, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, address, text string) error

func (f SenderFunc) Send(ctx context.Context, address, text string) error {
	return f(ctx, address, text)
}

type Gateway struct {
	sender  Sender
	timeout time.Duration
}

// New returns a Gateway over sender. A positive timeout bounds each send.
func New(sender Sender, timeout time.Duration) *Gateway {
	return &Gateway{sender: sender, timeout: timeout}
}

// Send delivers text to address. Transport errors and panics are returned
// as errors.
func (g *Gateway) Send(ctx context.Context, address, text string) (err error) {
	if address == "" {
		return ErrEmptyAddress
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("delivery panicked", "address", address, "panic", r)
			err = fmt.Errorf("send to %s: panic: %v", address, r)
		}
	}()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := g.sender.Send(ctx, address, text); err != nil {
		return fmt.Errorf("send to %s: %w", address, err)
	}
	return nil
}

// SendMany delivers text to each address in order and returns how many
// sends succeeded. A failure never stops the remaining sends.
func (g *Gateway) SendMany(ctx context.Context, addresses []string, text string) int {
	sent := 0
	for _, addr := range addresses {
		if err := g.Send(ctx, addr, text); err != nil {
			slog.Warn("group delivery failed", "address", addr, "error", err)
			continue
		}
		sent++
	}
	return sent
}
