package interview

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whitelist-bot/internal/application"
	commonerrors "whitelist-bot/internal/common/errors"
	"whitelist-bot/internal/common/logger"
	"whitelist-bot/internal/gateway"
	"whitelist-bot/internal/resolver"
	"whitelist-bot/internal/store"
)

type fakeMessenger struct {
	mu    sync.Mutex
	texts map[string][]string
	cards map[string][]gateway.Card
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		texts: make(map[string][]string),
		cards: make(map[string][]gateway.Card),
	}
}

func (m *fakeMessenger) SendText(ctx context.Context, channelID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts[channelID] = append(m.texts[channelID], text)
	return "msg-1", nil
}

func (m *fakeMessenger) SendCard(ctx context.Context, channelID string, card gateway.Card) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[channelID] = append(m.cards[channelID], card)
	return "card-1", nil
}

func (m *fakeMessenger) FetchCard(ctx context.Context, channelID, messageID string) (gateway.Card, error) {
	return gateway.Card{}, gateway.ErrNotFound
}

func (m *fakeMessenger) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return nil
}

func (m *fakeMessenger) DeleteAfter(channelID, messageID string, d time.Duration) {}

func (m *fakeMessenger) AddMark(ctx context.Context, channelID, messageID, emoji string) error {
	return nil
}

func (m *fakeMessenger) RemoveMark(ctx context.Context, channelID, messageID, emoji, userID string) error {
	return nil
}

func (m *fakeMessenger) DirectChannel(ctx context.Context, userID string) (string, error) {
	return "dm-" + userID, nil
}

type fakeResolver struct {
	failFirst int
	calls     int
}

func (r *fakeResolver) Resolve(ctx context.Context, name string) (resolver.Profile, error) {
	r.calls++
	if r.calls <= r.failFirst {
		return resolver.Profile{}, commonerrors.NewProfileNotFoundError(name)
	}
	return resolver.Profile{Name: name, ID: "uuid-" + name}, nil
}

func newTestManager(t *testing.T, closed bool) (*Manager, store.Store, *fakeMessenger) {
	t.Helper()
	st := store.NewFileStore(filepath.Join(t.TempDir(), "whitelist.json"))
	require.NoError(t, st.Load(context.Background()))
	messenger := newFakeMessenger()
	m := NewManager(st, &fakeResolver{}, messenger, ManagerConfig{
		PendingChannelID: "pending-chan",
		Timeout:          time.Second,
		Closed:           closed,
	}, logger.NewTestLogger(t))
	return m, st, messenger
}

func happyReplies() []string {
	return []string{
		"Steve",                        // character name
		"18",                           // age
		"yes",                          // read rules
		"yes",                          // punishment
		"never NEXT",                   // ban history
		"a friend NEXT",                // referral
		"I build. I mine. I farm. NEXT", // personality
	}
}

func applicantMessage() gateway.Message {
	return gateway.Message{
		ID:            "m1",
		ChannelID:     "dm-42",
		AuthorID:      "42",
		AuthorName:    "SteveD",
		Discriminator: "0420",
		Content:       "hi",
	}
}

func TestHandleDirectMessage_HappyPath(t *testing.T) {
	m, st, messenger := newTestManager(t, false)
	ctx := context.Background()

	var markedChannel, markedMessage string
	m.OnCardPosted(func(ctx context.Context, channelID, messageID string) {
		markedChannel, markedMessage = channelID, messageID
	})

	conv := &scriptedConv{authorID: "42", replies: happyReplies()}
	require.NoError(t, m.HandleDirectMessage(ctx, conv, applicantMessage()))

	rec, err := st.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, application.StatusPending, rec.Status)
	assert.Equal(t, "Steve", rec.CharacterName)
	assert.Equal(t, "uuid-Steve", rec.CharacterUUID)
	assert.Equal(t, "SteveD", rec.DisplayName)
	assert.Equal(t, []string{"18"}, rec.Ints(application.AnswerAge))
	assert.True(t, rec.Bool(application.AnswerReadRules))
	assert.True(t, rec.Bool(application.AnswerPunishment))
	assert.Equal(t, "never", rec.Text(application.AnswerBanHistory))
	assert.Equal(t, "a friend", rec.Text(application.AnswerReferral))
	assert.Equal(t, "I build. I mine. I farm.", rec.Text(application.AnswerPersonality))
	assert.NotEmpty(t, rec.SubmittedAt)

	require.Len(t, messenger.cards["pending-chan"], 1)
	assert.Equal(t, "pending-chan", markedChannel)
	assert.Equal(t, "card-1", markedMessage)

	// Applicant saw the echo card and the under-review notice.
	require.Len(t, conv.cards, 1)
	assert.Contains(t, conv.sent, "this is the application you have made:")
	assert.Contains(t, conv.sent[len(conv.sent)-1], "under review")
}

func TestHandleDirectMessage_SelfRejectionDeletesRecord(t *testing.T) {
	m, st, messenger := newTestManager(t, false)
	ctx := context.Background()

	replies := happyReplies()
	replies[2] = "no" // has not read the rules
	conv := &scriptedConv{authorID: "42", replies: replies}

	require.NoError(t, m.HandleDirectMessage(ctx, conv, applicantMessage()))

	ok, err := st.Contains(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, messenger.cards["pending-chan"])
	assert.Contains(t, conv.sent[len(conv.sent)-1], "read the rules")
}

func TestHandleDirectMessage_TimeoutLeavesNoRecord(t *testing.T) {
	m, st, messenger := newTestManager(t, false)
	ctx := context.Background()

	// Script ends after the age answer; the next await times out.
	conv := &scriptedConv{authorID: "42", replies: []string{"Steve", "18"}}

	require.NoError(t, m.HandleDirectMessage(ctx, conv, applicantMessage()))

	ok, err := st.Contains(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, messenger.cards["pending-chan"])
	assert.Contains(t, conv.sent[len(conv.sent)-1], "took too long")
}

func TestHandleDirectMessage_BlockedMidInterviewIsNotResurrected(t *testing.T) {
	m, st, messenger := newTestManager(t, false)
	ctx := context.Background()

	conv := &scriptedConv{authorID: "42", replies: happyReplies()}
	conv.onAwait = func(n int) {
		// Staff blocks the applicant while the last question is open.
		if n == 7 {
			blocked := application.NewRecord("42", "SteveD", "0420")
			blocked.Block("ban evasion")
			require.NoError(t, st.Set(ctx, blocked))
		}
	}

	require.NoError(t, m.HandleDirectMessage(ctx, conv, applicantMessage()))

	rec, err := st.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, application.StatusBlocked, rec.Status)
	assert.Equal(t, "ban evasion", rec.BlacklistReason)
	assert.Empty(t, messenger.cards["pending-chan"])
}

func TestHandleDirectMessage_DiscardedReplyGetsNoResponse(t *testing.T) {
	m, st, _ := newTestManager(t, false)
	ctx := context.Background()

	// A reply the yes/no filter discards is re-dispatched as a fresh DM
	// while the interview is still running; it must stay unanswered.
	stray := &scriptedConv{authorID: "42"}
	conv := &scriptedConv{authorID: "42", replies: happyReplies()}
	conv.onAwait = func(n int) {
		if n == 3 { // the read-rules yes/no question is open
			msg := applicantMessage()
			msg.Content = "maybe"
			require.NoError(t, m.HandleDirectMessage(ctx, stray, msg))
		}
	}

	require.NoError(t, m.HandleDirectMessage(ctx, conv, applicantMessage()))

	assert.Empty(t, stray.sent)
	rec, err := st.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, application.StatusPending, rec.Status)
	assert.Contains(t, conv.sent[len(conv.sent)-1], "under review")
}

func TestHandleDirectMessage_ClosedIntake(t *testing.T) {
	m, st, _ := newTestManager(t, true)
	ctx := context.Background()

	conv := &scriptedConv{authorID: "42", replies: happyReplies()}
	require.NoError(t, m.HandleDirectMessage(ctx, conv, applicantMessage()))

	ok, err := st.Contains(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, conv.sent, 1)
	assert.Contains(t, conv.sent[0], "closed")
}

func TestHandleDirectMessage_ExistingPendingBlocksNewInterview(t *testing.T) {
	m, st, _ := newTestManager(t, false)
	ctx := context.Background()

	existing := application.NewRecord("42", "SteveD", "0420")
	require.NoError(t, st.Set(ctx, existing))

	conv := &scriptedConv{authorID: "42", replies: happyReplies()}
	require.NoError(t, m.HandleDirectMessage(ctx, conv, applicantMessage()))

	require.Len(t, conv.sent, 1)
	assert.Contains(t, conv.sent[0], "already made an application")
	assert.Equal(t, 0, conv.awaits)
}

func TestHandleDirectMessage_RejectedRecordAllowsReapply(t *testing.T) {
	m, st, messenger := newTestManager(t, false)
	ctx := context.Background()

	prior := application.NewRecord("42", "SteveD", "0420")
	require.NoError(t, prior.Transition(application.StatusRejected))
	require.NoError(t, st.Set(ctx, prior))

	conv := &scriptedConv{authorID: "42", replies: happyReplies()}
	require.NoError(t, m.HandleDirectMessage(ctx, conv, applicantMessage()))

	rec, err := st.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, application.StatusPending, rec.Status)
	require.Len(t, messenger.cards["pending-chan"], 1)
}

func TestHandleDirectMessage_IgnoresBots(t *testing.T) {
	m, st, _ := newTestManager(t, false)

	msg := applicantMessage()
	msg.AuthorBot = true
	conv := &scriptedConv{authorID: "42"}

	require.NoError(t, m.HandleDirectMessage(context.Background(), conv, msg))
	ok, _ := st.Contains(context.Background(), "42")
	assert.False(t, ok)
	assert.Empty(t, conv.sent)
}

func TestResolveName_LiteralNextIsReprompted(t *testing.T) {
	m, st, _ := newTestManager(t, false)
	ctx := context.Background()

	replies := append([]string{"next"}, happyReplies()...)
	conv := &scriptedConv{authorID: "42", replies: replies}

	require.NoError(t, m.HandleDirectMessage(ctx, conv, applicantMessage()))

	assert.Contains(t, conv.sent, "Please enter your real Minecraft name.")
	rec, err := st.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Steve", rec.CharacterName)
}

func TestResolveName_LoopsOnResolverFailure(t *testing.T) {
	st := store.NewFileStore(filepath.Join(t.TempDir(), "whitelist.json"))
	require.NoError(t, st.Load(context.Background()))
	messenger := newFakeMessenger()
	m := NewManager(st, &fakeResolver{failFirst: 2}, messenger, ManagerConfig{
		PendingChannelID: "pending-chan",
		Timeout:          time.Second,
	}, logger.NewTestLogger(t))

	replies := append([]string{"Stevv", "Stebe"}, happyReplies()...)
	conv := &scriptedConv{authorID: "42", replies: replies}

	require.NoError(t, m.HandleDirectMessage(context.Background(), conv, applicantMessage()))

	count := 0
	for _, s := range conv.sent {
		if s == "I couldn't find a Minecraft account with that name, please try again." {
			count++
		}
	}
	assert.Equal(t, 2, count)

	rec, err := st.Get(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "Steve", rec.CharacterName)
}

func TestHandleDirectMessage_AgeRetryLoop(t *testing.T) {
	m, st, _ := newTestManager(t, false)
	ctx := context.Background()

	replies := happyReplies()
	// "I am -5 years, 1990" extracts two runs, failing the arity check.
	replies = append(replies[:1], append([]string{"I am -5 years, 1990"}, replies[1:]...)...)
	conv := &scriptedConv{authorID: "42", replies: replies}

	require.NoError(t, m.HandleDirectMessage(ctx, conv, applicantMessage()))

	assert.Contains(t, conv.sent, "Please give a single number between 13 and 99.")
	rec, err := st.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"18"}, rec.Ints(application.AnswerAge))
}
