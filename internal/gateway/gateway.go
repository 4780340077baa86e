// Package gateway abstracts the chat platform operations the bot needs:
// sending text and cards, awaiting filtered replies, reaction marks and
// member lookups. The concrete Discord adapter lives in gateway/discord.
package gateway

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrTimeout is returned by Await when no matching message arrives
	// within the given duration.
	ErrTimeout = errors.New("timed out waiting for message")

	// ErrNotFound is returned when a referenced message, channel or
	// member does not exist.
	ErrNotFound = errors.New("not found")
)

// Message is one inbound chat message. Author name and discriminator are
// snapshotted so application records do not need a later lookup.
type Message struct {
	ID            string
	ChannelID     string
	GuildID       string
	AuthorID      string
	AuthorName    string
	Discriminator string
	AuthorBot     bool
	Content       string
}

// Filter selects which inbound messages satisfy an Await call. It is a
// plain data value so suspension points can be inspected and tested.
// An empty Contents list accepts any content from the author.
type Filter struct {
	AuthorID  string
	ChannelID string
	Contents  []string
}

// Matches reports whether m satisfies the filter. Content comparison is
// case-insensitive on the trimmed message body.
func (f Filter) Matches(m Message) bool {
	if f.AuthorID != "" && m.AuthorID != f.AuthorID {
		return false
	}
	if f.ChannelID != "" && m.ChannelID != f.ChannelID {
		return false
	}
	if len(f.Contents) == 0 {
		return true
	}
	body := strings.ToLower(strings.TrimSpace(m.Content))
	for _, want := range f.Contents {
		if body == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// Reaction is a mark added to a message.
type Reaction struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	UserName  string
	ByBot     bool
	Emoji     string
}

// Card is a formatted review message (rendered as an embed on Discord).
type Card struct {
	Title       string
	URL         string
	Description string
	Footer      string
	AuthorName  string
	AuthorIcon  string
	Thumbnail   string
	Color       int
}

// Conversation is a two-way channel bound to one user, used by the
// interview to prompt and await replies.
type Conversation interface {
	Send(ctx context.Context, text string) error
	SendCard(ctx context.Context, card Card) error
	Await(ctx context.Context, f Filter, timeout time.Duration) (Message, error)
}

// Messenger covers the one-shot messaging operations used outside an
// interview conversation.
type Messenger interface {
	SendText(ctx context.Context, channelID, text string) (messageID string, err error)
	SendCard(ctx context.Context, channelID string, card Card) (messageID string, err error)
	FetchCard(ctx context.Context, channelID, messageID string) (Card, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	DeleteAfter(channelID, messageID string, d time.Duration)
	AddMark(ctx context.Context, channelID, messageID, emoji string) error
	RemoveMark(ctx context.Context, channelID, messageID, emoji, userID string) error
	DirectChannel(ctx context.Context, userID string) (channelID string, err error)
}

// Member is a guild member snapshot.
type Member struct {
	ID       string
	Name     string
	JoinedAt time.Time
	Roles    []string
}

// Directory exposes guild member information.
type Directory interface {
	Members(ctx context.Context, guildID string) ([]Member, error)
	HasRole(ctx context.Context, guildID, userID, roleID string) (bool, error)
	DisplayName(ctx context.Context, guildID, userID string) (string, error)
}
