package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coopco/wishbot/internal/auth"
	"github.com/coopco/wishbot/internal/bus"
	"github.com/coopco/wishbot/internal/store"
)

const (
	msgGenericError = "❌ An error occurred while processing your command. Please try again."
	msgOwnerOnly    = "❌ This command is only available to the bot owner."
	msgUnauthorized = "❌ You are not authorized to use this command."
)

// publisher is the outbound half of the message bus.
type publisher interface {
	PublishOutbound(msg bus.OutboundMessage)
}

// Dispatcher consumes inbound messages, gates them through the policy and
// runs the matching command. Messages are handled one at a time.
type Dispatcher struct {
	bus      *bus.MessageBus
	out      publisher
	registry *Registry
	store    *store.Store
	policy   *auth.Policy
	prefix   string
}

func NewDispatcher(msgBus *bus.MessageBus, registry *Registry, st *store.Store, policy *auth.Policy, prefix string) *Dispatcher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Dispatcher{
		bus:      msgBus,
		out:      msgBus,
		registry: registry,
		store:    st,
		policy:   policy,
		prefix:   prefix,
	}
}

// Run handles inbound messages until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		msg, err := d.bus.ConsumeInbound(ctx)
		if err != nil {
			return err
		}
		d.Handle(ctx, msg)
	}
}

// Handle processes a single inbound message.
func (d *Dispatcher) Handle(ctx context.Context, msg bus.InboundMessage) {
	sender := msg.Sender
	reply := func(text string) {
		for _, chunk := range Split(text, MaxReplyLength) {
			d.out.PublishOutbound(bus.OutboundMessage{
				Channel: msg.Channel,
				Address: msg.ReplyAddress(),
				Text:    chunk,
			})
		}
	}

	if !d.store.Active() && !d.policy.IsOwner(sender) {
		return
	}
	parsed, ok := Parse(d.prefix, msg.Text)
	if !ok {
		return
	}

	cmd, known := d.registry.Get(parsed.Name)
	req := auth.Request{Sender: sender, Command: parsed.Name, Known: known}
	if known {
		req.Level = cmd.Level()
	}
	switch decision := d.policy.Decide(req); decision {
	case auth.Allow:
	case auth.DenyExplain:
		reply(fmt.Sprintf("%s\n\nAsk the bot owner to whitelist you. Send \"%s checkid\" to see the ID they need.", msgUnauthorized, d.prefix))
		return
	case auth.DenyOwnerOnly:
		reply(msgOwnerOnly)
		return
	default:
		slog.Debug("command denied", "sender", sender, "command", parsed.Name, "decision", decision)
		return
	}

	if !known {
		reply(fmt.Sprintf("❌ Unknown command: %s\n\nType \"help\" for available commands.", parsed.Name))
		return
	}

	if err := d.store.Touch(ctx); err != nil {
		slog.Warn("failed to record activity", "error", err)
	}

	call := &Call{Sender: sender, Channel: msg.Channel, Args: parsed.Args, reply: reply}
	if err := d.execute(ctx, cmd, call); err != nil {
		slog.Error("command failed", "command", parsed.Name, "sender", sender, "error", err)
		reply(msgGenericError)
	}
}

func (d *Dispatcher) execute(ctx context.Context, cmd Command, call *Call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", cmd.Name(), r)
		}
	}()
	slog.Debug("executing command", "command", cmd.Name(), "sender", call.Sender, "args", len(call.Args))
	return cmd.Execute(ctx, call)
}
