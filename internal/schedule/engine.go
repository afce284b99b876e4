// Package schedule fires due wishes once per wall-clock minute.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coopco/wishbot/internal/delivery"
	"github.com/coopco/wishbot/internal/store"
	"github.com/coopco/wishbot/internal/wish"
)

// Report summarises one tick.
type Report struct {
	Stamp           wish.Stamp `json:"stamp"`
	Skipped         bool       `json:"skipped"`
	Sent            int        `json:"sent"`
	Failed          int        `json:"failed"`
	GroupWishes     int        `json:"group_wishes"`
	GroupDeliveries int        `json:"group_deliveries"`
}

// Total is the number of wishes and group wishes processed.
func (r Report) Total() int { return r.Sent + r.Failed + r.GroupWishes }

type Engine struct {
	store   *store.Store
	gateway *delivery.Gateway
	now     func() time.Time

	// ticks never overlap, whether driven by cron or run by hand
	mu sync.Mutex
}

func NewEngine(st *store.Store, gw *delivery.Gateway, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{store: st, gateway: gw, now: now}
}

// Tick runs the engine for the current minute.
func (e *Engine) Tick(ctx context.Context) Report {
	return e.RunAt(ctx, e.now())
}

// RunAt processes everything due at the minute containing now. Wishes match
// on exact date and time, so a minute that is never observed is never
// delivered.
func (e *Engine) RunAt(ctx context.Context, now time.Time) (rep Report) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rep.Stamp = wish.StampOf(now)
	if !e.store.Active() {
		rep.Skipped = true
		return rep
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduler tick panicked", "stamp", rep.Stamp.String(), "panic", r)
		}
	}()

	due := e.store.DueWishes(rep.Stamp)
	for _, w := range due {
		e.deliver(ctx, w, &rep)
	}
	if len(due) > 0 {
		if err := e.store.FlushWishes(ctx); err != nil {
			slog.Error("failed to save wishes after tick", "error", err)
		}
	}

	var fired []string
	for _, gw := range e.store.DueGroupWishes(rep.Stamp) {
		g, ok := e.store.Group(gw.GroupName)
		if !ok || len(g.Members) == 0 {
			slog.Warn("group wish skipped, group missing or empty",
				"group_wish_id", gw.ID, "group", gw.GroupName)
			continue
		}
		sent := e.gateway.SendMany(ctx, g.Addresses(), gw.Message)
		slog.Info("group wish sent", "group_wish_id", gw.ID, "group", gw.GroupName,
			"sent", sent, "members", len(g.Members))
		fired = append(fired, gw.ID)
		rep.GroupWishes++
		rep.GroupDeliveries += sent
		e.store.LogActivity(ctx, "group_wish_sent", map[string]any{
			"group_wish_id": gw.ID,
			"group":         gw.GroupName,
			"sent_count":    sent,
			"total_members": len(g.Members),
		})
	}
	if len(fired) > 0 {
		if err := e.store.RemoveGroupWishes(ctx, fired...); err != nil {
			slog.Error("failed to remove fired group wishes", "ids", fired, "error", err)
		}
	}

	if total := rep.Total(); total > 0 {
		msg := fmt.Sprintf("🎉 Sent %d scheduled wishes at %s on %s!", total, rep.Stamp.Time, rep.Stamp.Date)
		if err := e.gateway.Send(ctx, e.store.Owner().Address, msg); err != nil {
			slog.Warn("failed to notify owner", "error", err)
		}
	}
	return rep
}

func (e *Engine) deliver(ctx context.Context, w wish.Wish, rep *Report) {
	sendErr := e.gateway.Send(ctx, w.Recipient, w.Message)
	w.MarkSent(e.now(), sendErr)

	reason := wish.ReasonSent
	if sendErr != nil {
		reason = wish.ReasonSendFailed
		rep.Failed++
		slog.Error("failed to send wish", "wish_id", w.ID, "recipient", w.Recipient, "error", sendErr)
		e.store.LogActivity(ctx, "wish_send_failed", map[string]any{
			"wish_id":   w.ID,
			"recipient": w.Recipient,
			"error":     sendErr.Error(),
		})
	} else {
		rep.Sent++
		slog.Info("wish sent", "wish_id", w.ID, "recipient", w.Recipient)
		e.store.LogActivity(ctx, "wish_sent", map[string]any{
			"wish_id":   w.ID,
			"recipient": w.Recipient,
			"message":   w.Message,
			"success":   true,
		})
	}

	if _, err := e.store.ArchiveWish(ctx, w, reason); err != nil {
		slog.Error("failed to archive wish after delivery", "wish_id", w.ID, "reason", reason, "error", err)
	}
}
