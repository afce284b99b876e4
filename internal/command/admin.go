package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coopco/wishbot/internal/identity"
	"github.com/coopco/wishbot/internal/store"
)

func (e *Env) start(ctx context.Context, c *Call) error {
	changed, err := e.Store.SetActive(ctx, true, c.Sender)
	if err != nil {
		slog.Error("failed to activate bot", "error", err)
		c.Reply("❌ Failed to activate bot. Please try again.")
		return nil
	}
	if !changed {
		c.Reply("✅ Bot is already active.")
		return nil
	}
	c.Reply("🟢 Bot activated successfully!\n\nThe bot will now process commands and send scheduled wishes.")
	e.Store.LogActivity(ctx, "bot_activated", map[string]any{"activated_by": c.Sender})
	return nil
}

func (e *Env) stop(ctx context.Context, c *Call) error {
	changed, err := e.Store.SetActive(ctx, false, c.Sender)
	if err != nil {
		slog.Error("failed to deactivate bot", "error", err)
		c.Reply("❌ Failed to deactivate bot. Please try again.")
		return nil
	}
	if !changed {
		c.Reply("🔴 Bot is already inactive.")
		return nil
	}
	c.Reply("🔴 Bot deactivated successfully!\n\nThe bot will no longer process commands from non-owner users or send scheduled wishes.")
	e.Store.LogActivity(ctx, "bot_deactivated", map[string]any{"deactivated_by": c.Sender})
	return nil
}

const (
	usageWhitelist       = "❌ Usage: whitelist [jid] [name]\n\nExample: whitelist 1234567890@s.whatsapp.net John"
	usageRemoveWhitelist = "❌ Usage: removewhitelist [jid]\n\nExample: removewhitelist 1234567890@s.whatsapp.net"
)

func (e *Env) whitelist(ctx context.Context, c *Call) error {
	if len(c.Args) < 1 {
		c.Reply(usageWhitelist)
		return nil
	}
	address, ok := identity.Resolve(c.Args[0])
	if !ok {
		c.Replyf("❌ Invalid address \"%s\".\n\n%s", c.Args[0], usageWhitelist)
		return nil
	}
	name := c.rest(1)
	if name == "" {
		name = identity.Normalize(address)
	}
	err := e.Store.AddToWhitelist(ctx, address)
	switch {
	case errors.Is(err, store.ErrAlreadyWhitelisted):
		c.Replyf("✅ User %s (%s) is already whitelisted.", name, address)
		return nil
	case err != nil:
		slog.Error("failed to whitelist user", "address", address, "error", err)
		c.Reply("❌ Failed to add user to whitelist. Please try again.")
		return nil
	}
	c.Replyf("✅ User %s (%s) has been added to the whitelist.", name, address)
	e.Store.LogActivity(ctx, "user_whitelisted", map[string]any{
		"user_jid":  address,
		"user_name": name,
		"added_by":  c.Sender,
	})
	return nil
}

func (e *Env) removeWhitelist(ctx context.Context, c *Call) error {
	if len(c.Args) < 1 {
		c.Reply(usageRemoveWhitelist)
		return nil
	}
	address, ok := identity.Resolve(c.Args[0])
	if !ok {
		c.Replyf("❌ Invalid address \"%s\".\n\n%s", c.Args[0], usageRemoveWhitelist)
		return nil
	}
	err := e.Store.RemoveFromWhitelist(ctx, address)
	switch {
	case errors.Is(err, store.ErrOwnerProtected):
		c.Reply("❌ Cannot remove the bot owner from the whitelist.")
		return nil
	case errors.Is(err, store.ErrNotWhitelisted):
		c.Replyf("❌ User %s is not in the whitelist.", address)
		return nil
	case err != nil:
		slog.Error("failed to remove user from whitelist", "address", address, "error", err)
		c.Reply("❌ Failed to remove user from whitelist. Please try again.")
		return nil
	}
	c.Replyf("✅ User %s has been removed from the whitelist.", address)
	e.Store.LogActivity(ctx, "user_removed_from_whitelist", map[string]any{
		"user_jid":   address,
		"removed_by": c.Sender,
	})
	return nil
}

func (e *Env) listWhitelist(_ context.Context, c *Call) error {
	list := e.Store.Whitelist()
	if len(list) == 0 {
		c.Reply("📝 Whitelist is empty.")
		return nil
	}
	var b strings.Builder
	b.WriteString("📝 *Whitelisted Users:*\n\n")
	for i, address := range list {
		fmt.Fprintf(&b, "%d. %s", i+1, address)
		if e.Policy.IsOwner(address) {
			b.WriteString(" (Owner)")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n*Total:* %d users", len(list))
	c.Reply(b.String())
	return nil
}

func (e *Env) backup(ctx context.Context, c *Call) error {
	c.Reply("🔄 Creating backup...")
	name, err := e.Store.Backup(ctx)
	if err != nil {
		slog.Error("backup failed", "error", err)
		c.Reply("❌ Failed to create backup. Please try again.")
		return nil
	}
	c.Replyf("✅ Backup created successfully!\n\nBackup file: %s\n\nThis backup contains all wishes, groups, and configuration data.", name)
	e.Store.LogActivity(ctx, "backup_created", map[string]any{"backup_file": name, "created_by": c.Sender})
	return nil
}

func (e *Env) restore(ctx context.Context, c *Call) error {
	if len(c.Args) < 1 {
		c.Reply("❌ Usage: restore [backup_filename]\n\nExample: restore backup_2025-01-01_12-00-00.json")
		return nil
	}
	file := c.Args[0]
	c.Replyf("🔄 Restoring data from backup: %s...", file)

	err := e.Store.Restore(ctx, file)
	switch {
	case errors.Is(err, store.ErrRestoreIncomplete):
		c.Replyf("⚠️ Data restored from backup: %s, but some collections could not be saved.\n\n"+
			"The running bot uses the restored data. Run \"backup\" once storage recovers.", file)
		return nil
	case err != nil:
		slog.Warn("restore failed", "file", file, "error", err)
		c.Replyf("❌ Failed to restore data from backup: %s\n\nPlease check if the backup file exists and is valid.", file)
		return nil
	}
	c.Replyf("✅ Data restored successfully from backup: %s\n\nAll wishes, groups, and configuration have been restored.", file)
	e.Store.LogActivity(ctx, "data_restored", map[string]any{"backup_file": file, "restored_by": c.Sender})
	return nil
}

func (e *Env) clearLogs(ctx context.Context, c *Call) error {
	n, err := e.Store.ClearLogs(ctx)
	if err != nil {
		slog.Error("failed to clear logs", "error", err)
		c.Reply("❌ Failed to clear logs. Please try again.")
		return nil
	}
	c.Replyf("✅ Activity logs cleared successfully!\n\nCleared %d log entries.", n)
	e.Store.LogActivity(ctx, "logs_cleared", map[string]any{"cleared_by": c.Sender, "cleared_count": n})
	return nil
}

func (e *Env) archiveOldWishes(ctx context.Context, c *Call) error {
	n, err := e.Store.ArchivePastWishes(ctx)
	if err != nil {
		slog.Error("failed to archive old wishes", "archived", n, "error", err)
		c.Reply("❌ Failed to archive old wishes. Please try again.")
		return nil
	}
	if n == 0 {
		c.Reply("✅ No old wishes found to archive.")
		return nil
	}
	c.Replyf("✅ Archived %d old wishes that have passed their scheduled date.", n)
	e.Store.LogActivity(ctx, "old_wishes_archived", map[string]any{"archived_count": n, "archived_by": c.Sender})
	return nil
}

func (e *Env) status(_ context.Context, c *Call) error {
	st := e.Store.State()
	counts := e.Store.Counts()
	state := "🔴 Inactive"
	if st.Active {
		state = "🟢 Active"
	}
	c.Replyf("🤖 *Wish Bot Status*\n\n"+
		"_Bot Status:_ %s\n"+
		"_Last Activity:_ %s\n\n"+
		"_Statistics:_\n"+
		"📅 Active Wishes: %d\n"+
		"📂 Archived Wishes: %d\n"+
		"👥 Group Wishes: %d\n"+
		"🏷️ User Groups: %d\n"+
		"✅ Whitelisted Users: %d\n\n"+
		"_Owner No.:_ +%s\n\n"+
		"_Command Prefix:_ %s",
		state, e.when(st.LastActivity),
		counts.Wishes, counts.Archived, counts.GroupWishes, counts.Groups, counts.Whitelist,
		identity.Normalize(e.Policy.Owner.Address), e.Prefix)
	return nil
}
