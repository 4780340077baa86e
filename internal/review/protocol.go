// Package review implements the staff-facing moderation protocol:
// reaction handling on pending review cards and the staff command
// surface.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"whitelist-bot/internal/application"
	"whitelist-bot/internal/card"
	commonerrors "whitelist-bot/internal/common/errors"
	"whitelist-bot/internal/common/logger"
	"whitelist-bot/internal/common/metrics"
	"whitelist-bot/internal/console"
	"whitelist-bot/internal/gateway"
	"whitelist-bot/internal/store"
)

const (
	MarkApprove = "✅"
	MarkReject  = "❌"
)

// Config holds the moderation settings.
type Config struct {
	GuildID           string
	PendingChannelID  string
	ApprovedChannelID string
	RejectedChannelID string
	StaffRoleID       string
	CommandPrefix     string
	StatsPath         string
}

// Protocol reacts to staff signals and drives application records
// through their terminal states.
type Protocol struct {
	store     store.Store
	messenger gateway.Messenger
	directory gateway.Directory
	relay     *console.Relay
	cfg       Config
	log       logger.Logger
}

func NewProtocol(st store.Store, messenger gateway.Messenger, directory gateway.Directory, relay *console.Relay, cfg Config, log logger.Logger) *Protocol {
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = "!"
	}
	return &Protocol{
		store:     st,
		messenger: messenger,
		directory: directory,
		relay:     relay,
		cfg:       cfg,
		log:       log,
	}
}

// MarkPendingCard adds the approve and reject marks to a freshly posted
// review card so staff only have to click.
func (p *Protocol) MarkPendingCard(ctx context.Context, channelID, messageID string) {
	for _, emoji := range []string{MarkApprove, MarkReject} {
		if err := p.messenger.AddMark(ctx, channelID, messageID, emoji); err != nil {
			p.log.WithError(err).Warn("failed to pre-mark review card", map[string]interface{}{
				"message_id": messageID,
				"emoji":      emoji,
			})
		}
	}
}

// HandleReaction processes a reaction added in the pending channel.
func (p *Protocol) HandleReaction(ctx context.Context, r gateway.Reaction) error {
	if r.ByBot || r.ChannelID != p.cfg.PendingChannelID {
		return nil
	}

	c, err := p.messenger.FetchCard(ctx, r.ChannelID, r.MessageID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil
		}
		return err
	}
	if c.Description == "" {
		return nil
	}

	switch r.Emoji {
	case MarkApprove:
		return p.approve(ctx, c, r)
	case MarkReject:
		return p.rejectInstruction(ctx, r)
	default:
		p.log.Info("ignoring unknown reaction on review card", map[string]interface{}{
			"emoji":      r.Emoji,
			"message_id": r.MessageID,
		})
		return nil
	}
}

func (p *Protocol) approve(ctx context.Context, c gateway.Card, r gateway.Reaction) error {
	applicantID, err := card.ExtractApplicantID(c.Description)
	if err != nil {
		return err
	}
	characterName, err := card.ExtractCharacterName(c.Description)
	if err != nil {
		return err
	}

	processed := card.RenderProcessed(c, r.UserName, "", true)
	if _, err := p.messenger.SendCard(ctx, p.cfg.ApprovedChannelID, processed); err != nil {
		return err
	}

	rec, err := p.store.Get(ctx, applicantID)
	if err != nil {
		return err
	}
	if err := rec.Transition(application.StatusApproved); err != nil {
		return err
	}
	if err := p.store.Set(ctx, rec); err != nil {
		return err
	}

	if err := p.messenger.DeleteMessage(ctx, r.ChannelID, r.MessageID); err != nil {
		p.log.WithError(err).Warn("failed to delete pending review card", map[string]interface{}{
			"message_id": r.MessageID,
		})
	}

	p.relay.WhitelistAdd(ctx, characterName)
	p.dm(ctx, applicantID, "Your whitelist application has been approved. Welcome aboard!")

	metrics.ApplicationsDecided.WithLabelValues("approved").Inc()
	p.log.Info("application approved", map[string]interface{}{
		"applicant_id":   applicantID,
		"character_name": characterName,
		"staff":          r.UserName,
	})
	return nil
}

func (p *Protocol) rejectInstruction(ctx context.Context, r gateway.Reaction) error {
	if err := p.messenger.RemoveMark(ctx, r.ChannelID, r.MessageID, MarkReject, r.UserID); err != nil {
		p.log.WithError(err).Warn("failed to remove reject mark", map[string]interface{}{
			"message_id": r.MessageID,
		})
	}

	text := fmt.Sprintf("use `%sapp_reason %s %s %s <reason>` to reject the app",
		p.cfg.CommandPrefix, r.GuildID, r.ChannelID, r.MessageID)
	msgID, err := p.messenger.SendText(ctx, r.ChannelID, text)
	if err != nil {
		return err
	}
	p.messenger.DeleteAfter(r.ChannelID, msgID, 60*time.Second)
	return nil
}

// HandleCommand dispatches a prefixed staff command message.
func (p *Protocol) HandleCommand(ctx context.Context, msg gateway.Message) error {
	if msg.AuthorBot || !strings.HasPrefix(msg.Content, p.cfg.CommandPrefix) {
		return nil
	}
	fields := strings.Fields(strings.TrimPrefix(msg.Content, p.cfg.CommandPrefix))
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "app":
		return p.cmdApp(ctx, msg)
	case "app_reason":
		return p.cmdAppReason(ctx, msg, fields[1:])
	case "block_user":
		return p.cmdBlockUser(ctx, msg, fields[1:])
	case "reload_whitelist":
		return p.cmdReloadWhitelist(ctx, msg)
	case "stats_users":
		return p.cmdStatsUsers(ctx, msg)
	default:
		return nil
	}
}

func (p *Protocol) cmdApp(ctx context.Context, msg gateway.Message) error {
	rec, err := p.store.Get(ctx, msg.AuthorID)
	if errors.Is(err, store.ErrNotFound) {
		_, err := p.messenger.SendText(ctx, msg.ChannelID, "You have no application on file.")
		return err
	}
	if err != nil {
		return err
	}
	_, err = p.messenger.SendCard(ctx, msg.ChannelID, card.RenderPending(rec))
	return err
}

func (p *Protocol) cmdAppReason(ctx context.Context, msg gateway.Message, args []string) error {
	if len(args) < 4 {
		return p.usage(ctx, msg.ChannelID, "app_reason <guild_id> <channel_id> <message_id> <reason...>")
	}
	channelID, messageID := args[1], args[2]
	if !isNumeric(channelID) || !isNumeric(messageID) {
		return p.usage(ctx, msg.ChannelID, "app_reason <guild_id> <channel_id> <message_id> <reason...>")
	}
	reason := strings.Join(args[3:], " ")

	c, err := p.messenger.FetchCard(ctx, channelID, messageID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return p.usage(ctx, msg.ChannelID, "app_reason <guild_id> <channel_id> <message_id> <reason...>")
		}
		return err
	}

	applicantID, err := card.ExtractApplicantID(c.Description)
	if err != nil {
		return err
	}

	processed := card.RenderProcessed(c, msg.AuthorName, reason, false)
	if _, err := p.messenger.SendCard(ctx, p.cfg.RejectedChannelID, processed); err != nil {
		return err
	}

	rec, err := p.store.Get(ctx, applicantID)
	if err != nil {
		return err
	}
	if err := rec.Transition(application.StatusRejected); err != nil {
		return err
	}
	if err := p.store.Set(ctx, rec); err != nil {
		return err
	}

	if err := p.messenger.DeleteMessage(ctx, channelID, messageID); err != nil {
		p.log.WithError(err).Warn("failed to delete pending review card", map[string]interface{}{
			"message_id": messageID,
		})
	}
	if err := p.messenger.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		p.log.WithError(err).Warn("failed to delete command message", map[string]interface{}{
			"message_id": msg.ID,
		})
	}

	p.dm(ctx, applicantID, "Your whitelist application has been rejected: "+reason)

	metrics.ApplicationsDecided.WithLabelValues("rejected").Inc()
	p.log.Info("application rejected", map[string]interface{}{
		"applicant_id": applicantID,
		"staff":        msg.AuthorName,
		"reason":       reason,
	})
	return nil
}

func (p *Protocol) cmdBlockUser(ctx context.Context, msg gateway.Message, args []string) error {
	ok, err := p.isStaff(ctx, msg)
	if err != nil || !ok {
		return err
	}
	if len(args) < 1 || !isNumeric(args[0]) {
		return p.usage(ctx, msg.ChannelID, "block_user <user_id> [reason...]")
	}
	applicantID := args[0]
	reason := "No reason given."
	if len(args) > 1 {
		reason = strings.Join(args[1:], " ")
	}

	rec, err := p.store.Get(ctx, applicantID)
	if errors.Is(err, store.ErrNotFound) {
		rec = application.NewRecord(applicantID, "", "")
	} else if err != nil {
		return err
	}
	rec.Block(reason)
	if err := p.store.Set(ctx, rec); err != nil {
		return err
	}

	p.dm(ctx, applicantID, "You have been blacklisted from the bot. Reason: "+reason)

	metrics.ApplicationsDecided.WithLabelValues("blocked").Inc()
	p.log.Info("applicant blocked", map[string]interface{}{
		"applicant_id": applicantID,
		"staff":        msg.AuthorName,
		"reason":       reason,
	})
	_, err = p.messenger.SendText(ctx, msg.ChannelID, fmt.Sprintf("User %s has been blocked.", applicantID))
	return err
}

func (p *Protocol) cmdReloadWhitelist(ctx context.Context, msg gateway.Message) error {
	if err := p.store.Load(ctx); err != nil {
		p.log.WithError(err).Error("whitelist reload failed", nil)
		_, serr := p.messenger.SendText(ctx, msg.ChannelID, "Whitelist reload failed, check the logs.")
		if serr != nil {
			return serr
		}
		return err
	}
	_, err := p.messenger.SendText(ctx, msg.ChannelID, "Whitelist reloaded.")
	return err
}

// memberExport is one row of the stats_users dump, ranked by join order.
type memberExport struct {
	Rank     int    `json:"rank"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinedAt string `json:"joinedAt"`
}

func (p *Protocol) cmdStatsUsers(ctx context.Context, msg gateway.Message) error {
	if msg.GuildID == "" || msg.GuildID != p.cfg.GuildID {
		return nil
	}
	ok, err := p.isStaff(ctx, msg)
	if err != nil || !ok {
		return err
	}

	members, err := p.directory.Members(ctx, p.cfg.GuildID)
	if err != nil {
		return err
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})

	export := make([]memberExport, 0, len(members))
	for i, m := range members {
		export = append(export, memberExport{
			Rank:     i + 1,
			ID:       m.ID,
			Name:     m.Name,
			JoinedAt: m.JoinedAt.UTC().Format(time.RFC3339),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(p.cfg.StatsPath, data, 0o644); err != nil {
		return err
	}

	_, err = p.messenger.SendText(ctx, msg.ChannelID,
		fmt.Sprintf("Exported %d members to %s.", len(export), p.cfg.StatsPath))
	return err
}

func (p *Protocol) isStaff(ctx context.Context, msg gateway.Message) (bool, error) {
	ok, err := p.directory.HasRole(ctx, p.cfg.GuildID, msg.AuthorID, p.cfg.StaffRoleID)
	if err != nil {
		return false, err
	}
	if !ok {
		_, serr := p.messenger.SendText(ctx, msg.ChannelID, "You are not allowed to use this command.")
		return false, serr
	}
	return true, nil
}

func (p *Protocol) usage(ctx context.Context, channelID, usage string) error {
	p.log.WithError(commonerrors.NewCommandInvalidError(p.cfg.CommandPrefix+usage)).Warn("malformed staff command", nil)
	_, err := p.messenger.SendText(ctx, channelID, "Usage: "+p.cfg.CommandPrefix+usage)
	return err
}

func (p *Protocol) dm(ctx context.Context, userID, text string) {
	channelID, err := p.messenger.DirectChannel(ctx, userID)
	if err != nil {
		p.log.WithError(err).Warn("failed to open DM channel", map[string]interface{}{
			"user_id": userID,
		})
		return
	}
	if _, err := p.messenger.SendText(ctx, channelID, text); err != nil {
		p.log.WithError(err).Warn("failed to DM applicant", map[string]interface{}{
			"user_id": userID,
		})
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
