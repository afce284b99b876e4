package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/coopco/wishbot/internal/identity"
)

func (e *Env) help(_ context.Context, c *Call) error {
	p := e.Prefix
	var b strings.Builder
	b.WriteString("🤖 *Wish Bot Commands* 🤖\n\n")
	b.WriteString("_General Commands:_\n")
	fmt.Fprintf(&b, "%s help - Shows this help menu\n", p)
	fmt.Fprintf(&b, "%s checkid - Shows how the bot sees your ID\n\n", p)

	b.WriteString("📅 _Scheduled Wishes Commands:_\n")
	fmt.Fprintf(&b, "%s addwish [date] [time] [jid] [message] - Schedule a new wish\n", p)
	fmt.Fprintf(&b, "%s deletewish [id] - Delete a scheduled wish by ID\n", p)
	fmt.Fprintf(&b, "%s archivewish [id] - Archive a scheduled wish by ID\n", p)
	fmt.Fprintf(&b, "%s listwishes - List all active scheduled wishes\n\n", p)

	b.WriteString("📦 _Archive Management Commands:_\n")
	fmt.Fprintf(&b, "%s listarchives [filter] - List archived wishes (filters: sent, manual, expired, send_failed)\n", p)
	fmt.Fprintf(&b, "%s reschedulewish [id] [date] [time] - Reschedule an archived wish\n", p)
	fmt.Fprintf(&b, "%s deletearchivedwish [id] - Permanently delete archived wish\n\n", p)

	b.WriteString("📣 _Group Wishes Commands:_\n")
	fmt.Fprintf(&b, "%s addgroupwish [date] [time] [groupName] [message] - Schedule wish for entire group\n", p)
	fmt.Fprintf(&b, "%s listgroupwishes - List all scheduled group wishes\n", p)
	fmt.Fprintf(&b, "%s sendgroupwishnow [groupName] [message] - Send wish to all group members immediately\n\n", p)

	b.WriteString("👥 _Group Management Commands:_\n")
	fmt.Fprintf(&b, "%s creategroup [groupName] [description] - Create a new user group\n", p)
	fmt.Fprintf(&b, "%s addtogroup [groupName] [jid] [name] - Add user to a group\n", p)
	fmt.Fprintf(&b, "%s removefromgroup [groupName] [jid] - Remove user from a group\n", p)
	fmt.Fprintf(&b, "%s listgroups - List all available groups\n", p)
	fmt.Fprintf(&b, "%s listgroupmembers [groupName] - List members of a group", p)

	if e.Policy.IsOwner(c.Sender) {
		b.WriteString("\n\n🔧 _Owner Commands:_\n")
		fmt.Fprintf(&b, "%s status - Show current bot status\n", p)
		fmt.Fprintf(&b, "%s start - Activates the bot\n", p)
		fmt.Fprintf(&b, "%s stop - Deactivates the bot\n", p)
		fmt.Fprintf(&b, "%s whitelist [jid] [name] - Add user to whitelist\n", p)
		fmt.Fprintf(&b, "%s removewhitelist [jid] - Remove user from whitelist\n", p)
		fmt.Fprintf(&b, "%s listwhitelist - List all whitelisted users\n", p)
		fmt.Fprintf(&b, "%s backup - Create data backup\n", p)
		fmt.Fprintf(&b, "%s restore [filename] - Restore from backup\n", p)
		fmt.Fprintf(&b, "%s clearlogs - Clear activity logs\n", p)
		fmt.Fprintf(&b, "%s archiveoldwishes - Archive wishes with past dates\n", p)
		fmt.Fprintf(&b, "%s cleararchives [keep_last_N] - Clear old archives (optional: keep last N)", p)
	}

	b.WriteString("\n\n_Examples:_\n")
	fmt.Fprintf(&b, "%s addwish 25/12/2025 09:00 1234567890@s.whatsapp.net \"Merry Christmas! 🎄\"\n", p)
	fmt.Fprintf(&b, "%s listarchives sent\n", p)
	fmt.Fprintf(&b, "%s reschedulewish 1234567890 25/12/2026 09:00\n", p)
	fmt.Fprintf(&b, "%s addgroupwish 01/01 00:00 family \"Happy New Year everyone! 🎉\"\n", p)
	fmt.Fprintf(&b, "%s creategroup family \"Close family members\"\n\n", p)
	b.WriteString("_Date Format:_ DD/MM/YYYY (e.g., 25/12/2025 for December 25th, 2025); group wishes use DD/MM\n")
	b.WriteString("_Time Format:_ HH:MM (e.g., 09:00 for 9:00 AM)\n")
	b.WriteString("_JID Format:_ Full WhatsApp JID (e.g., 1234567890@s.whatsapp.net) or a bare number")

	c.Reply(b.String())
	return nil
}

func (e *Env) checkID(ctx context.Context, c *Call) error {
	addr := identity.Parse(c.Sender)
	key := addr.Key()
	owner := e.Policy.IsOwner(c.Sender)

	var b strings.Builder
	b.WriteString("📱 *Your ID Information*\n\n")
	if addr.Kind == identity.KindChat {
		fmt.Fprintf(&b, "🔢 *Key:* %s\n", key)
	} else {
		fmt.Fprintf(&b, "🔢 *Phone Number:* %s\n", key)
	}
	fmt.Fprintf(&b, "🆔 *Full ID:* %s\n", c.Sender)
	fmt.Fprintf(&b, "📋 *Format Type:* %s\n\n", addr.Kind)

	switch addr.Kind {
	case identity.KindAlias:
		b.WriteString("⚠️ *You are using the new LID format!*\n\n")
		b.WriteString("📌 *IMPORTANT:* Your WhatsApp ID changes per conversation!\n\n")
		b.WriteString("✅ *To use bot commands:*\n")
		b.WriteString("   • Message YOUR OWN number (saved as a contact)\n")
		b.WriteString("   • Don't run commands in other people's chats\n")
		b.WriteString("   • The bot matches your phone number automatically\n\n")
		if owner {
			b.WriteString("✅ *Owner Status:* Recognized as bot owner\n\n")
			alias := e.Policy.Owner.Alias
			switch {
			case alias == c.Sender:
				b.WriteString("✅ Your LID is already configured.\n")
			case alias != "":
				b.WriteString("⚠️ *Action Required:*\nYour configured LID doesn't match this chat.\n\n")
				fmt.Fprintf(&b, "*Configured LID:*\n%s\n\n*This chat's LID:*\n%s\n\n", alias, c.Sender)
				fmt.Fprintf(&b, "To update, set:\n```\nOWNER_LID=%s\n```\n\n", c.Sender)
				b.WriteString("Note: LID changes per chat, so phone number matching is recommended.")
			default:
				b.WriteString("💡 *Optional Optimization:*\n\n")
				fmt.Fprintf(&b, "For faster owner recognition, you can set:\n\n```\nOWNER_LID=%s\n```\n\n", c.Sender)
				fmt.Fprintf(&b, "However, the bot already works by matching your phone number (%s), so this is optional.", key)
			}
		} else {
			fmt.Fprintf(&b, "ℹ️ You are not the bot owner.\nThe bot will recognize you by your phone number (%s).", key)
		}
	case identity.KindChat:
		fmt.Fprintf(&b, "✅ *You are messaging through %s*\n\n", addr.Domain)
		b.WriteString("Use your Full ID above when asking to be whitelisted.")
		if owner {
			b.WriteString("\n\n✅ *Owner Status:* Recognized as bot owner")
		}
	default:
		b.WriteString("✅ *You are using the standard JID format*\n\n")
		b.WriteString("Your WhatsApp uses the traditional ID format. No special configuration needed!\n\n")
		if owner {
			b.WriteString("✅ *Owner Status:* Recognized as bot owner\n\n")
			fmt.Fprintf(&b, "Your OWNER_NUMBER is correctly set to:\n```\n%s\n```", e.Policy.Owner.Address)
		} else {
			b.WriteString("ℹ️ You are not the bot owner.")
		}
	}

	if !owner {
		if e.Policy.IsWhitelisted(c.Sender) {
			b.WriteString("\n\n✅ *Whitelist Status:* You are whitelisted")
		} else {
			b.WriteString("\n\n❌ *Whitelist Status:* Not whitelisted")
		}
	}

	b.WriteString("\n\n---\nℹ️ *About LID vs JID:*\n")
	b.WriteString("• *JID* (old): Fixed ID like 919876543210@s.whatsapp.net\n")
	b.WriteString("• *LID* (new): Changes per chat for privacy\n")
	b.WriteString("• Wish Bot supports both formats automatically! 🎉")

	c.Reply(b.String())
	e.Store.LogActivity(ctx, "id_check", map[string]any{
		"user":         c.Sender,
		"phone_number": key,
		"format":       addr.Kind.String(),
		"is_lid":       addr.Kind == identity.KindAlias,
		"is_owner":     owner,
	})
	return nil
}
