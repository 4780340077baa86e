// Package discord adapts the abstract gateway operations onto a live
// discordgo session.
package discord

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"whitelist-bot/internal/common/logger"
	"whitelist-bot/internal/gateway"
)

// Adapter wraps a discordgo session, pumping inbound events either into
// per-user awaiting conversations or into the registered handlers.
type Adapter struct {
	session  *discordgo.Session
	activity string
	log      logger.Logger

	onDirectMessage func(ctx context.Context, conv gateway.Conversation, msg gateway.Message)
	onGuildMessage  func(ctx context.Context, msg gateway.Message)
	onReaction      func(ctx context.Context, r gateway.Reaction)

	mu      sync.Mutex
	waiters map[string][]*waiter
}

type waiter struct {
	filter gateway.Filter
	ch     chan gateway.Message
}

func NewAdapter(token, activity string, log logger.Logger) (*Adapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent

	a := &Adapter{
		session:  session,
		activity: activity,
		log:      log,
		waiters:  make(map[string][]*waiter),
	}
	session.AddHandler(a.handleMessageCreate)
	session.AddHandler(a.handleReactionAdd)
	return a, nil
}

// OnDirectMessage registers the handler for DMs that no conversation is
// currently awaiting. It runs on its own goroutine since interviews
// block on further replies.
func (a *Adapter) OnDirectMessage(fn func(ctx context.Context, conv gateway.Conversation, msg gateway.Message)) {
	a.onDirectMessage = fn
}

func (a *Adapter) OnGuildMessage(fn func(ctx context.Context, msg gateway.Message)) {
	a.onGuildMessage = fn
}

func (a *Adapter) OnReaction(fn func(ctx context.Context, r gateway.Reaction)) {
	a.onReaction = fn
}

// Run opens the gateway connection and blocks until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway connection: %w", err)
	}
	if a.activity != "" {
		if err := a.session.UpdateGameStatus(0, a.activity); err != nil {
			a.log.WithError(err).Warn("failed to set presence", nil)
		}
	}
	a.log.Info("gateway connected", map[string]interface{}{
		"user": a.session.State.User.Username,
	})

	<-ctx.Done()
	return a.session.Close()
}

func (a *Adapter) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}
	msg := gateway.Message{
		ID:            m.ID,
		ChannelID:     m.ChannelID,
		GuildID:       m.GuildID,
		AuthorID:      m.Author.ID,
		AuthorName:    m.Author.Username,
		Discriminator: m.Author.Discriminator,
		AuthorBot:     m.Author.Bot,
		Content:       m.Content,
	}

	if a.deliver(msg) {
		return
	}

	ctx := context.Background()
	if m.GuildID == "" {
		if a.onDirectMessage != nil {
			conv := &conversation{adapter: a, channelID: m.ChannelID}
			go a.onDirectMessage(ctx, conv, msg)
		}
		return
	}
	if a.onGuildMessage != nil {
		a.onGuildMessage(ctx, msg)
	}
}

func (a *Adapter) handleReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if a.onReaction == nil {
		return
	}
	userName := ""
	if r.Member != nil && r.Member.User != nil {
		userName = r.Member.User.Username
	} else if u, err := s.User(r.UserID); err == nil {
		userName = u.Username
	}
	a.onReaction(context.Background(), gateway.Reaction{
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		UserName:  userName,
		ByBot:     r.UserID == s.State.User.ID,
		Emoji:     r.Emoji.Name,
	})
}

// deliver hands the message to the first matching waiter, if any.
func (a *Adapter) deliver(msg gateway.Message) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	list := a.waiters[msg.AuthorID]
	for i, w := range list {
		if w.filter.Matches(msg) {
			a.waiters[msg.AuthorID] = append(list[:i], list[i+1:]...)
			w.ch <- msg
			return true
		}
	}
	return false
}

func (a *Adapter) addWaiter(authorID string, f gateway.Filter) *waiter {
	w := &waiter{filter: f, ch: make(chan gateway.Message, 1)}
	a.mu.Lock()
	a.waiters[authorID] = append(a.waiters[authorID], w)
	a.mu.Unlock()
	return w
}

func (a *Adapter) removeWaiter(authorID string, w *waiter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	list := a.waiters[authorID]
	for i, candidate := range list {
		if candidate == w {
			a.waiters[authorID] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// conversation binds the adapter to one DM channel.
type conversation struct {
	adapter   *Adapter
	channelID string
}

func (c *conversation) Send(ctx context.Context, text string) error {
	_, err := c.adapter.session.ChannelMessageSend(c.channelID, text)
	return err
}

func (c *conversation) SendCard(ctx context.Context, card gateway.Card) error {
	_, err := c.adapter.session.ChannelMessageSendEmbed(c.channelID, toEmbed(card))
	return err
}

func (c *conversation) Await(ctx context.Context, f gateway.Filter, timeout time.Duration) (gateway.Message, error) {
	// Scope the wait to this conversation's channel so a guild message
	// from the same user is never consumed as an interview answer.
	if f.ChannelID == "" {
		f.ChannelID = c.channelID
	}
	w := c.adapter.addWaiter(f.AuthorID, f)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-w.ch:
		return msg, nil
	case <-timer.C:
		c.adapter.removeWaiter(f.AuthorID, w)
		return gateway.Message{}, gateway.ErrTimeout
	case <-ctx.Done():
		c.adapter.removeWaiter(f.AuthorID, w)
		return gateway.Message{}, ctx.Err()
	}
}

// Messenger implementation.

func (a *Adapter) SendText(ctx context.Context, channelID, text string) (string, error) {
	m, err := a.session.ChannelMessageSend(channelID, text)
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

func (a *Adapter) SendCard(ctx context.Context, channelID string, card gateway.Card) (string, error) {
	m, err := a.session.ChannelMessageSendEmbed(channelID, toEmbed(card))
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

func (a *Adapter) FetchCard(ctx context.Context, channelID, messageID string) (gateway.Card, error) {
	m, err := a.session.ChannelMessage(channelID, messageID)
	if err != nil {
		if isNotFound(err) {
			return gateway.Card{}, gateway.ErrNotFound
		}
		return gateway.Card{}, err
	}
	if len(m.Embeds) == 0 {
		return gateway.Card{}, gateway.ErrNotFound
	}
	return fromEmbed(m.Embeds[0]), nil
}

func (a *Adapter) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return a.session.ChannelMessageDelete(channelID, messageID)
}

func (a *Adapter) DeleteAfter(channelID, messageID string, d time.Duration) {
	time.AfterFunc(d, func() {
		if err := a.session.ChannelMessageDelete(channelID, messageID); err != nil {
			a.log.WithError(err).Warn("delayed delete failed", map[string]interface{}{
				"message_id": messageID,
			})
		}
	})
}

func (a *Adapter) AddMark(ctx context.Context, channelID, messageID, emoji string) error {
	return a.session.MessageReactionAdd(channelID, messageID, emoji)
}

func (a *Adapter) RemoveMark(ctx context.Context, channelID, messageID, emoji, userID string) error {
	return a.session.MessageReactionRemove(channelID, messageID, emoji, userID)
}

func (a *Adapter) DirectChannel(ctx context.Context, userID string) (string, error) {
	ch, err := a.session.UserChannelCreate(userID)
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

// Directory implementation.

func (a *Adapter) Members(ctx context.Context, guildID string) ([]gateway.Member, error) {
	var out []gateway.Member
	after := ""
	for {
		page, err := a.session.GuildMembers(guildID, after, 1000)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return out, nil
		}
		for _, m := range page {
			if m.User == nil {
				continue
			}
			out = append(out, gateway.Member{
				ID:       m.User.ID,
				Name:     m.User.Username,
				JoinedAt: m.JoinedAt,
				Roles:    m.Roles,
			})
			after = m.User.ID
		}
	}
}

func (a *Adapter) HasRole(ctx context.Context, guildID, userID, roleID string) (bool, error) {
	m, err := a.session.GuildMember(guildID, userID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	for _, r := range m.Roles {
		if r == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (a *Adapter) DisplayName(ctx context.Context, guildID, userID string) (string, error) {
	m, err := a.session.GuildMember(guildID, userID)
	if err != nil {
		if isNotFound(err) {
			return "", gateway.ErrNotFound
		}
		return "", err
	}
	if m.Nick != "" {
		return m.Nick, nil
	}
	if m.User != nil {
		return m.User.Username, nil
	}
	return "", gateway.ErrNotFound
}

func toEmbed(c gateway.Card) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       c.Title,
		URL:         c.URL,
		Description: c.Description,
		Color:       c.Color,
	}
	if c.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: c.Footer}
	}
	if c.AuthorName != "" {
		e.Author = &discordgo.MessageEmbedAuthor{Name: c.AuthorName, IconURL: c.AuthorIcon}
	}
	if c.Thumbnail != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: c.Thumbnail}
	}
	return e
}

func fromEmbed(e *discordgo.MessageEmbed) gateway.Card {
	c := gateway.Card{
		Title:       e.Title,
		URL:         e.URL,
		Description: e.Description,
		Color:       e.Color,
	}
	if e.Footer != nil {
		c.Footer = e.Footer.Text
	}
	if e.Author != nil {
		c.AuthorName = e.Author.Name
		c.AuthorIcon = e.Author.IconURL
	}
	if e.Thumbnail != nil {
		c.Thumbnail = e.Thumbnail.URL
	}
	return c
}

func isNotFound(err error) bool {
	if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}
