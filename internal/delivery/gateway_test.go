package delivery

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSender struct {
	fail map[string]error
	sent []string
}

func (f *fakeSender) Send(ctx context.Context, address, text string) error {
	if err := f.fail[address]; err != nil {
		return err
	}
	if address == "panic" {
		panic("transport exploded")
	}
	f.sent = append(f.sent, address)
	return nil
}

func TestSend(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		address string
		wantErr error
		anyErr  bool
	}{
		{name: "ok", address: "1@s.whatsapp.net"},
		{name: "transport error", address: "bad", wantErr: boom},
		{name: "empty address", address: "", wantErr: ErrEmptyAddress},
		{name: "panic becomes error", address: "panic", anyErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := New(&fakeSender{fail: map[string]error{"bad": boom}}, 0)
			err := g.Send(context.Background(), tc.address, "hi")
			switch {
			case tc.wantErr != nil:
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
			case tc.anyErr:
				if err == nil {
					t.Fatal("expected error")
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestSendTimeout(t *testing.T) {
	slow := SenderFunc(func(ctx context.Context, address, text string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})
	g := New(slow, 20*time.Millisecond)

	start := time.Now()
	err := g.Send(context.Background(), "1@s.whatsapp.net", "hi")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout not applied")
	}
}

func TestSendManyAttemptsEveryone(t *testing.T) {
	f := &fakeSender{fail: map[string]error{"b": errors.New("down")}}
	g := New(f, 0)

	n := g.SendMany(context.Background(), []string{"a", "b", "panic", "c"}, "hi")
	if n != 2 {
		t.Fatalf("SendMany = %d, want 2", n)
	}
	if len(f.sent) != 2 || f.sent[0] != "a" || f.sent[1] != "c" {
		t.Fatalf("sent = %v", f.sent)
	}
}
