package channels

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coopco/wishbot/internal/bus"
)

// mockChannel is a test double for Channel.
type mockChannel struct {
	name     string
	mu       sync.Mutex
	sent     []string
	started  bool
	stopped  bool
	startErr error
	stopErr  error
}

func (m *mockChannel) Name() string { return m.name }
func (m *mockChannel) Start(_ context.Context) error {
	m.started = true
	return m.startErr
}
func (m *mockChannel) Stop() error {
	m.stopped = true
	return m.stopErr
}
func (m *mockChannel) Send(_ context.Context, address, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, address+"|"+text)
	return nil
}

func (m *mockChannel) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.sent...)
}

func TestRoute(t *testing.T) {
	tests := map[string]string{
		"15551234567@s.whatsapp.net": "whatsapp",
		"15551234567@c.us":           "whatsapp",
		"12345@lid":                  "whatsapp",
		"15551234567":                "whatsapp",
		"42@telegram":                "telegram",
		"C1@slack":                   "slack",
		"c1@discord":                 "discord",
		"x@example.com":              "",
		"":                           "",
	}
	for address, want := range tests {
		if got := Route(address); got != want {
			t.Errorf("Route(%q) = %q, want %q", address, got, want)
		}
	}
}

func TestManagerAddChannel(t *testing.T) {
	const name = "test-manager-add"
	mock := &mockChannel{name: name}
	Register(name, func(cfg json.RawMessage, msgBus *bus.MessageBus) (Channel, error) {
		return mock, nil
	})

	mgr := NewManager(bus.NewMessageBus(10))
	if err := mgr.AddChannel(name, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("AddChannel failed: %v", err)
	}
	if err := mgr.AddChannel("no-such-channel", nil); err == nil {
		t.Fatal("expected error for unknown channel")
	}
	if names := mgr.Names(); len(names) != 1 || names[0] != name {
		t.Fatalf("Names() = %v", names)
	}
}

func TestManagerSendRoutesByAddress(t *testing.T) {
	wa := &mockChannel{name: "whatsapp"}
	tg := &mockChannel{name: "telegram"}
	mgr := NewManager(bus.NewMessageBus(10))
	mgr.Add(wa)
	mgr.Add(tg)
	ctx := context.Background()

	if err := mgr.Send(ctx, "1@s.whatsapp.net", "a"); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Send(ctx, "42@telegram", "b"); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Send(ctx, "c1@discord", "c"); !errors.Is(err, ErrNoChannel) {
		t.Fatalf("expected ErrNoChannel, got %v", err)
	}

	if got := wa.messages(); len(got) != 1 || got[0] != "1@s.whatsapp.net|a" {
		t.Errorf("whatsapp got %v", got)
	}
	if got := tg.messages(); len(got) != 1 || got[0] != "42@telegram|b" {
		t.Errorf("telegram got %v", got)
	}
}

func TestStartAllAndStopAll(t *testing.T) {
	a := &mockChannel{name: "a"}
	b := &mockChannel{name: "b", stopErr: errors.New("stuck")}
	mgr := NewManager(bus.NewMessageBus(1))
	mgr.Add(a)
	mgr.Add(b)

	if err := mgr.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if !a.started || !b.started {
		t.Fatal("not every channel started")
	}
	if err := mgr.StopAll(); err == nil {
		t.Fatal("expected first stop error to be returned")
	}
	if !a.stopped || !b.stopped {
		t.Fatal("StopAll must attempt every channel")
	}

	failing := NewManager(bus.NewMessageBus(1))
	failing.Add(&mockChannel{name: "broken", startErr: errors.New("no token")})
	if err := failing.StartAll(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
}

func TestOutboundDispatchViaBus(t *testing.T) {
	msgBus := bus.NewMessageBus(10)
	wa := &mockChannel{name: "whatsapp"}
	tg := &mockChannel{name: "telegram"}
	mgr := NewManager(msgBus)
	mgr.Add(wa)
	mgr.Add(tg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go msgBus.DispatchOutbound(ctx)

	msgBus.PublishOutbound(bus.OutboundMessage{Address: "1@s.whatsapp.net", Text: "routed"})
	msgBus.PublishOutbound(bus.OutboundMessage{Channel: "telegram", Address: "-100@telegram", Text: "reply"})

	deadline := time.After(time.Second)
	for len(wa.messages()) < 1 || len(tg.messages()) < 1 {
		select {
		case <-deadline:
			t.Fatalf("timeout: whatsapp=%v telegram=%v", wa.messages(), tg.messages())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	if got := tg.messages()[0]; got != "-100@telegram|reply" {
		t.Errorf("telegram got %q", got)
	}
}
