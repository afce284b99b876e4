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

func (e *Env) createGroup(ctx context.Context, c *Call) error {
	if len(c.Args) < 2 {
		c.Reply("❌ Usage: creategroup [groupName] [description]\nExample: creategroup family \"Close family members\"")
		return nil
	}
	name := c.Args[0]
	g, err := e.Store.CreateGroup(ctx, name, c.rest(1), c.Sender)
	switch {
	case errors.Is(err, store.ErrGroupExists):
		c.Replyf("❌ Group \"%s\" already exists.", name)
		return nil
	case err != nil:
		slog.Error("failed to create group", "group", name, "error", err)
		c.Reply("❌ Failed to create group. Please try again.")
		return nil
	}
	c.Replyf("✅ Group created successfully!\n\n🏷️ *Name:* %s\n📝 *Description:* %s\n👤 *Created by:* %s\n👥 *Members:* 0",
		g.Name, g.Description, g.CreatedBy)
	e.Store.LogActivity(ctx, "group_created", map[string]any{"group_name": g.Name, "created_by": c.Sender})
	return nil
}

const (
	usageAddToGroup      = "❌ Usage: addtogroup [groupName] [jid] [name]\nExample: addtogroup family 1234567890@s.whatsapp.net \"John Doe\""
	usageRemoveFromGroup = "❌ Usage: removefromgroup [groupName] [jid]\nExample: removefromgroup family 1234567890@s.whatsapp.net"
)

func (e *Env) addToGroup(ctx context.Context, c *Call) error {
	if len(c.Args) < 3 {
		c.Reply(usageAddToGroup)
		return nil
	}
	name := c.Args[0]
	address, ok := identity.Resolve(c.Args[1])
	if !ok {
		c.Replyf("❌ Invalid address \"%s\".\n\n%s", c.Args[1], usageAddToGroup)
		return nil
	}
	g, err := e.Store.AddMember(ctx, name, wish.Member{Address: address, Name: c.rest(2), AddedBy: c.Sender})
	switch {
	case errors.Is(err, store.ErrGroupNotFound):
		c.Replyf("❌ Group \"%s\" does not exist.", name)
		return nil
	case errors.Is(err, store.ErrMemberExists):
		c.Replyf("❌ User %s is already a member of \"%s\".", address, name)
		return nil
	case err != nil:
		slog.Error("failed to add group member", "group", name, "error", err)
		c.Reply("❌ Failed to add member. Please try again.")
		return nil
	}
	c.Replyf("✅ Member added successfully!\n\n👥 *Group:* %s\n👤 *Member:* %s (%s)\n📊 *Total members:* %d",
		name, c.rest(2), address, len(g.Members))
	e.Store.LogActivity(ctx, "member_added_to_group", map[string]any{
		"group_name":    name,
		"member_jid":    address,
		"member_name":   c.rest(2),
		"added_by":      c.Sender,
		"total_members": len(g.Members),
	})
	return nil
}

func (e *Env) removeFromGroup(ctx context.Context, c *Call) error {
	if len(c.Args) < 2 {
		c.Reply(usageRemoveFromGroup)
		return nil
	}
	name := c.Args[0]
	address, ok := identity.Resolve(c.Args[1])
	if !ok {
		c.Replyf("❌ Invalid address \"%s\".\n\n%s", c.Args[1], usageRemoveFromGroup)
		return nil
	}
	m, g, err := e.Store.RemoveMember(ctx, name, address)
	switch {
	case errors.Is(err, store.ErrGroupNotFound):
		c.Replyf("❌ Group \"%s\" does not exist.", name)
		return nil
	case errors.Is(err, store.ErrMemberNotFound):
		c.Replyf("❌ User %s is not a member of \"%s\".", address, name)
		return nil
	case err != nil:
		slog.Error("failed to remove group member", "group", name, "error", err)
		c.Reply("❌ Failed to remove member. Please try again.")
		return nil
	}
	c.Replyf("✅ Member removed successfully!\n\n👥 *Group:* %s\n👤 *Removed:* %s (%s)\n📊 *Total members:* %d",
		name, m.Name, m.Address, len(g.Members))
	e.Store.LogActivity(ctx, "member_removed_from_group", map[string]any{
		"group_name": name,
		"member_jid": m.Address,
		"removed_by": c.Sender,
	})
	return nil
}

func (e *Env) listGroups(_ context.Context, c *Call) error {
	groups := e.Store.Groups()
	if len(groups) == 0 {
		c.Reply("👥 No groups found.")
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "👥 *Available Groups* (%d)\n\n", len(groups))
	for _, g := range groups {
		fmt.Fprintf(&b, "🏷️ *Name:* %s\n", g.Name)
		fmt.Fprintf(&b, "📝 *Description:* %s\n", g.Description)
		fmt.Fprintf(&b, "👤 *Created by:* %s\n", g.CreatedBy)
		fmt.Fprintf(&b, "📅 *Created:* %s\n", e.when(g.CreatedAt))
		fmt.Fprintf(&b, "👥 *Members:* %d\n\n", len(g.Members))
	}
	c.Reply(b.String())
	return nil
}

func (e *Env) listGroupMembers(_ context.Context, c *Call) error {
	if len(c.Args) < 1 {
		c.Reply("❌ Usage: listgroupmembers [groupName]\nExample: listgroupmembers family")
		return nil
	}
	name := c.Args[0]
	g, ok := e.Store.Group(name)
	if !ok {
		c.Replyf("❌ Group \"%s\" does not exist.", name)
		return nil
	}
	if len(g.Members) == 0 {
		c.Replyf("👥 Group \"%s\" has no members.", name)
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "👥 *Members of \"%s\"* (%d)\n\n", name, len(g.Members))
	for i, m := range g.Members {
		fmt.Fprintf(&b, "%d. *%s*\n   📱 %s\n   📅 Added: %s\n   👤 Added by: %s\n\n",
			i+1, m.Name, m.Address, e.when(m.AddedAt), m.AddedBy)
	}
	c.Reply(b.String())
	return nil
}

func (e *Env) addGroupWish(ctx context.Context, c *Call) error {
	if len(c.Args) < 4 {
		c.Reply("❌ Usage: addgroupwish [date] [time] [groupName] [message]\nExample: addgroupwish 01/01 00:00 family \"Happy New Year everyone! 🎉\"")
		return nil
	}
	monthDay, err := wish.ParseMonthDay(c.Args[0])
	if err != nil {
		c.Reply("❌ Invalid date format. Use DD/MM format (e.g., 01/01)")
		return nil
	}
	clock, err := wish.ParseTime(c.Args[1])
	if err != nil {
		c.Reply("❌ Invalid time format. Use HH:MM format (e.g., 00:00)")
		return nil
	}
	name := c.Args[2]

	gw, err := e.Store.AddGroupWish(ctx, monthDay, clock, name, c.rest(3), c.Sender)
	switch {
	case errors.Is(err, store.ErrGroupNotFound):
		c.Replyf("❌ Group \"%s\" does not exist.", name)
		return nil
	case errors.Is(err, store.ErrGroupEmpty):
		c.Replyf("❌ Group \"%s\" has no members.", name)
		return nil
	case err != nil:
		slog.Error("failed to add group wish", "group", name, "error", err)
		c.Reply("❌ Failed to save group wish. Please try again.")
		return nil
	}
	g, _ := e.Store.Group(name)
	c.Replyf("✅ Group wish scheduled successfully!\n\n📅 *Date:* %s\n⏰ *Time:* %s\n👥 *Group:* %s (%d members)\n💬 *Message:* \"%s\"\n🆔 *ID:* %s",
		gw.Date, gw.Time, name, len(g.Members), gw.Message, gw.ID)
	e.Store.LogActivity(ctx, "group_wish_added", map[string]any{
		"group_wish_id": gw.ID,
		"group_name":    name,
		"created_by":    c.Sender,
		"scheduled_for": gw.Date + " " + gw.Time,
		"member_count":  len(g.Members),
	})
	return nil
}

func (e *Env) listGroupWishes(_ context.Context, c *Call) error {
	owner := e.Policy.IsOwner(c.Sender)
	list := e.Store.GroupWishes(e.scope(c.Sender))
	if len(list) == 0 {
		c.Reply("📅 No group wishes found.")
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📅 *Scheduled Group Wishes* (%d)\n\n", len(list))
	for _, gw := range list {
		members := 0
		if g, ok := e.Store.Group(gw.GroupName); ok {
			members = len(g.Members)
		}
		fmt.Fprintf(&b, "🆔 *ID:* %s\n", gw.ID)
		fmt.Fprintf(&b, "📅 *Date:* %s\n", gw.Date)
		fmt.Fprintf(&b, "⏰ *Time:* %s\n", gw.Time)
		fmt.Fprintf(&b, "👥 *Group:* %s (%d members)\n", gw.GroupName, members)
		fmt.Fprintf(&b, "💬 *Message:* \"%s\"\n", gw.Message)
		fmt.Fprintf(&b, "📝 *Created:* %s\n", e.when(gw.CreatedAt))
		if owner {
			fmt.Fprintf(&b, "👨‍💼 *Created by:* %s\n", gw.CreatedBy)
		}
		b.WriteString("\n")
	}
	c.Reply(b.String())
	return nil
}

func (e *Env) sendGroupWishNow(ctx context.Context, c *Call) error {
	if len(c.Args) < 2 {
		c.Reply("❌ Usage: sendgroupwishnow [groupName] [message]\nExample: sendgroupwishnow family \"Hello everyone!\"")
		return nil
	}
	name := c.Args[0]
	g, ok := e.Store.Group(name)
	if !ok {
		c.Replyf("❌ Group \"%s\" does not exist.", name)
		return nil
	}
	if len(g.Members) == 0 {
		c.Replyf("❌ Group \"%s\" has no members.", name)
		return nil
	}
	text := c.rest(1)
	sent := e.Gateway.SendMany(ctx, g.Addresses(), text)
	c.Replyf("✅ Group wish sent successfully!\n\n👥 *Group:* %s\n📊 *Sent to:* %d/%d members\n💬 *Message:* \"%s\"",
		name, sent, len(g.Members), text)
	e.Store.LogActivity(ctx, "group_wish_sent_now", map[string]any{
		"group_name":    name,
		"sent_by":       c.Sender,
		"sent_count":    sent,
		"total_members": len(g.Members),
	})
	return nil
}
