package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coopco/wishbot/internal/identity"
	"github.com/coopco/wishbot/internal/store"
	"github.com/coopco/wishbot/internal/wish"
)

const usageAddWish = "❌ *Usage:* addwish [date] [time] [jid] [message]\n\n" +
	"*Example:* addwish 25/12/2025 09:00 1234567890@s.whatsapp.net \"Merry Christmas! 🎄\"\n\n" +
	"*Date Format:* DD/MM/YYYY (e.g., 25/12/2025)\n" +
	"*Time Format:* HH:MM (e.g., 09:00)"

func (e *Env) addWish(ctx context.Context, c *Call) error {
	if len(c.Args) < 4 {
		c.Reply(usageAddWish)
		return nil
	}
	date, err := wish.ParseDate(c.Args[0])
	if err != nil {
		c.Reply("❌ Invalid date format. Use DD/MM/YYYY format (e.g., 25/12/2025)")
		return nil
	}
	clock, err := wish.ParseTime(c.Args[1])
	if err != nil {
		c.Reply("❌ Invalid time format. Use HH:MM format (e.g., 09:00)")
		return nil
	}
	recipient, ok := identity.Resolve(c.Args[2])
	if !ok {
		c.Replyf("❌ Invalid recipient \"%s\".\n\n%s", c.Args[2], usageAddWish)
		return nil
	}
	text := c.rest(3)

	w, err := e.Store.AddWish(ctx, date, clock, recipient, text, c.Sender)
	if err != nil {
		slog.Error("failed to add wish", "sender", c.Sender, "error", err)
		c.Reply("❌ Failed to save wish. Please try again.")
		return nil
	}
	c.Replyf("✅ *Wish scheduled successfully!*\n\n📅 *Date:* %s\n⏰ *Time:* %s\n👤 *Recipient:* %s\n💬 *Message:* \"%s\"\n🆔 *ID:* %s",
		w.Date, w.Time, w.Recipient, w.Message, w.ID)
	e.Store.LogActivity(ctx, "wish_added", map[string]any{
		"wish_id":       w.ID,
		"created_by":    c.Sender,
		"recipient":     w.Recipient,
		"scheduled_for": w.Date + " " + w.Time,
	})
	return nil
}

func (e *Env) deleteWish(ctx context.Context, c *Call) error {
	if len(c.Args) < 1 {
		c.Reply("❌ *Usage:* deletewish [id]\n\n*Example:* deletewish 1234567890")
		return nil
	}
	w, err := e.Store.DeleteWish(ctx, c.Args[0], c.Sender)
	switch {
	case errors.Is(err, store.ErrWishNotFound):
		c.Reply("❌ Wish not found with the provided ID.")
		return nil
	case errors.Is(err, store.ErrForbidden):
		c.Reply("❌ You can only delete wishes you created.")
		return nil
	case err != nil:
		slog.Error("failed to delete wish", "id", c.Args[0], "error", err)
		c.Reply("❌ Failed to delete wish. Please try again.")
		return nil
	}
	c.Replyf("✅ *Wish deleted successfully!*\n\n🆔 *ID:* %s\n📅 *Was scheduled for:* %s %s\n👤 *Recipient:* %s\n💬 *Message:* \"%s\"",
		w.ID, w.Date, w.Time, w.Recipient, w.Message)
	e.Store.LogActivity(ctx, "wish_deleted", map[string]any{"wish_id": w.ID, "deleted_by": c.Sender})
	return nil
}

func (e *Env) archiveWish(ctx context.Context, c *Call) error {
	if len(c.Args) < 1 {
		c.Reply("❌ *Usage:* archivewish [id]\n\n*Example:* archivewish 1234567890")
		return nil
	}
	a, err := e.Store.ArchiveOwnWish(ctx, c.Args[0], c.Sender)
	switch {
	case errors.Is(err, store.ErrWishNotFound):
		c.Reply("❌ Wish not found with the provided ID.")
		return nil
	case errors.Is(err, store.ErrForbidden):
		c.Reply("❌ You can only archive wishes you created.")
		return nil
	case err != nil:
		slog.Error("failed to archive wish", "id", c.Args[0], "error", err)
		c.Reply("❌ Failed to archive wish. Please try again.")
		return nil
	}
	c.Replyf("✅ *Wish archived successfully!*\n\n🆔 *ID:* %s\n📅 *Was scheduled for:* %s %s\n👤 *Recipient:* %s\n💬 *Message:* \"%s\"\n\n"+
		"💡 *Tip:* Use `listarchives` to view archived wishes.\nUse `reschedulewish ID [date] [time]` to reschedule it.",
		a.ID, a.Date, a.Time, a.Recipient, a.Message)
	e.Store.LogActivity(ctx, "wish_archived", map[string]any{"wish_id": a.ID, "archived_by": c.Sender})
	return nil
}

func (e *Env) listWishes(_ context.Context, c *Call) error {
	owner := e.Policy.IsOwner(c.Sender)
	wishes := e.Store.Wishes(e.scope(c.Sender))
	if len(wishes) == 0 {
		c.Reply("📅 No active wishes found.")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 *Active Wishes* (%d)\n\n", len(wishes))
	for _, w := range wishes {
		fmt.Fprintf(&b, "🆔 *ID:* %s\n", w.ID)
		fmt.Fprintf(&b, "📅 *Date:* %s\n", w.Date)
		fmt.Fprintf(&b, "⏰ *Time:* %s\n", w.Time)
		fmt.Fprintf(&b, "👤 *Recipient:* %s\n", w.Recipient)
		fmt.Fprintf(&b, "💬 *Message:* \"%s\"\n", w.Message)
		fmt.Fprintf(&b, "📝 *Created:* %s\n", e.when(w.CreatedAt))
		if w.RescheduledFrom != "" {
			fmt.Fprintf(&b, "🔁 *Rescheduled from:* %s\n", w.RescheduledFrom)
		}
		if owner {
			fmt.Fprintf(&b, "👨‍💼 *Created by:* %s\n", w.CreatedBy)
		}
		b.WriteString("\n")
	}
	c.Reply(b.String())
	return nil
}
