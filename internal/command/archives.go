package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/coopco/wishbot/internal/store"
	"github.com/coopco/wishbot/internal/wish"
)

// maxListedArchives bounds one listarchives reply.
const maxListedArchives = 20

// archiveFilters maps the listarchives argument to a reason.
var archiveFilters = map[string]wish.ArchiveReason{
	"sent":        wish.ReasonSent,
	"manual":      wish.ReasonManual,
	"send_failed": wish.ReasonSendFailed,
	"failed":      wish.ReasonSendFailed,
	"expired":     wish.ReasonPastDate,
}

func (e *Env) listArchives(_ context.Context, c *Call) error {
	owner := e.Policy.IsOwner(c.Sender)
	all := e.Store.ArchivedWishes(e.scope(c.Sender), "")
	if len(all) == 0 {
		c.Reply("📦 No archived wishes found.")
		return nil
	}

	list := all
	if len(c.Args) > 0 {
		filter := strings.ToLower(c.Args[0])
		reason, ok := archiveFilters[filter]
		if !ok {
			reason = wish.ArchiveReason(filter)
		}
		list = e.Store.ArchivedWishes(e.scope(c.Sender), reason)
		if len(list) == 0 {
			c.Replyf("📦 No archived wishes found with reason: %s", filter)
			return nil
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📦 *Archived Wishes* (%d)\n\n", len(list))
	for _, a := range list[:min(len(list), maxListedArchives)] {
		fmt.Fprintf(&b, "🆔 *ID:* %s\n", a.ID)
		fmt.Fprintf(&b, "📅 *Original Date:* %s %s\n", a.Date, a.Time)
		fmt.Fprintf(&b, "👤 *Recipient:* %s\n", a.Recipient)
		fmt.Fprintf(&b, "💬 *Message:* \"%s\"\n", a.Message)
		fmt.Fprintf(&b, "📦 *Archived:* %s\n", e.when(a.ArchivedAt))
		fmt.Fprintf(&b, "📌 *Reason:* %s\n", a.ArchivedReason)
		if a.SentAt != nil {
			status := "❌ Failed"
			if a.Delivered() {
				status = "✅ Sent"
			}
			fmt.Fprintf(&b, "📤 *Status:* %s\n", status)
		}
		if a.ErrorMessage != "" {
			fmt.Fprintf(&b, "⚠️ *Error:* %s\n", a.ErrorMessage)
		}
		if owner {
			fmt.Fprintf(&b, "👨‍💼 *Created by:* %s\n", a.CreatedBy)
		}
		b.WriteString("\n")
	}
	if len(list) > maxListedArchives {
		fmt.Fprintf(&b, "\n_Showing %d of %d archived wishes_\n", maxListedArchives, len(list))
		b.WriteString("_Filters available: sent, manual, expired, send_failed_")
	}
	c.Reply(b.String())
	return nil
}

func (e *Env) rescheduleWish(ctx context.Context, c *Call) error {
	if len(c.Args) < 3 {
		c.Reply("❌ *Usage:* reschedulewish [archived_id] [new_date] [new_time]\n\n" +
			"*Example:* reschedulewish 1234567890 25/12/2025 09:00\n\n" +
			"This will create a new active wish from an archived one.")
		return nil
	}
	date, err := wish.ParseDate(c.Args[1])
	if err != nil {
		c.Reply("❌ Invalid date format. Use DD/MM/YYYY")
		return nil
	}
	clock, err := wish.ParseTime(c.Args[2])
	if err != nil {
		c.Reply("❌ Invalid time format. Use HH:MM")
		return nil
	}

	w, err := e.Store.RescheduleWish(ctx, c.Args[0], c.Sender, date, clock)
	switch {
	case errors.Is(err, store.ErrArchivedNotFound):
		c.Reply("❌ Archived wish not found with the provided ID.")
		return nil
	case errors.Is(err, store.ErrForbidden):
		c.Reply("❌ You can only reschedule wishes you created.")
		return nil
	case err != nil:
		slog.Error("failed to reschedule wish", "id", c.Args[0], "error", err)
		c.Reply("❌ Failed to reschedule wish. Please try again.")
		return nil
	}
	c.Replyf("✅ *Wish rescheduled successfully!*\n\n📦 *Original ID:* %s\n🆔 *New ID:* %s\n📅 *New Date:* %s\n⏰ *New Time:* %s\n👤 *Recipient:* %s\n💬 *Message:* \"%s\"\n\n"+
		"The wish has been reactivated and will be sent at the new scheduled time.",
		w.RescheduledFrom, w.ID, w.Date, w.Time, w.Recipient, w.Message)
	e.Store.LogActivity(ctx, "wish_rescheduled", map[string]any{
		"original_wish_id": w.RescheduledFrom,
		"new_wish_id":      w.ID,
		"rescheduled_by":   c.Sender,
		"new_schedule":     w.Date + " " + w.Time,
	})
	return nil
}

func (e *Env) deleteArchivedWish(ctx context.Context, c *Call) error {
	if len(c.Args) < 1 {
		c.Reply("❌ *Usage:* deletearchivedwish [id]\n\n*Example:* deletearchivedwish 1234567890\n\n" +
			"This will permanently delete the archived wish.")
		return nil
	}
	a, err := e.Store.DeleteArchivedWish(ctx, c.Args[0], c.Sender)
	switch {
	case errors.Is(err, store.ErrArchivedNotFound):
		c.Reply("❌ Archived wish not found with the provided ID.")
		return nil
	case errors.Is(err, store.ErrForbidden):
		c.Reply("❌ You can only delete wishes you created.")
		return nil
	case err != nil:
		slog.Error("failed to delete archived wish", "id", c.Args[0], "error", err)
		c.Reply("❌ Failed to delete archived wish. Please try again.")
		return nil
	}
	c.Replyf("✅ *Archived wish deleted permanently!*\n\n🆔 *ID:* %s\n📅 *Was scheduled for:* %s %s\n👤 *Recipient:* %s\n💬 *Message:* \"%s\"",
		a.ID, a.Date, a.Time, a.Recipient, a.Message)
	e.Store.LogActivity(ctx, "archived_wish_deleted", map[string]any{"wish_id": a.ID, "deleted_by": c.Sender})
	return nil
}

func (e *Env) clearArchives(ctx context.Context, c *Call) error {
	keep := 0
	if len(c.Args) > 0 {
		n, err := strconv.Atoi(c.Args[0])
		if err != nil || n < 0 {
			c.Reply("❌ Usage: cleararchives [keep_last_N]\n\nExample: cleararchives 50")
			return nil
		}
		keep = n
	}
	if e.Store.Counts().Archived == 0 {
		c.Reply("📦 Archive is already empty.")
		return nil
	}

	removed, err := e.Store.ClearArchives(ctx, keep)
	if err != nil {
		slog.Error("failed to clear archives", "error", err)
		c.Reply("❌ Failed to clear archives. Please try again.")
		return nil
	}
	if keep > 0 {
		c.Replyf("✅ Cleared old archives! Kept most recent %d wishes.\n\n📊 *Deleted:* %d archived wishes", keep, removed)
	} else {
		c.Replyf("✅ All archived wishes cleared!\n\n📊 *Deleted:* %d archived wishes", removed)
	}
	e.Store.LogActivity(ctx, "archives_cleared", map[string]any{
		"cleared_count": removed,
		"kept_count":    e.Store.Counts().Archived,
		"cleared_by":    c.Sender,
	})
	return nil
}
