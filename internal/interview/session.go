package interview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"whitelist-bot/internal/application"
	"whitelist-bot/internal/card"
	commonerrors "whitelist-bot/internal/common/errors"
	"whitelist-bot/internal/common/logger"
	"whitelist-bot/internal/common/metrics"
	"whitelist-bot/internal/gateway"
	"whitelist-bot/internal/resolver"
	"whitelist-bot/internal/store"
)

// ManagerConfig holds the interview settings.
type ManagerConfig struct {
	PendingChannelID string
	Timeout          time.Duration
	Closed           bool
}

// Manager owns the session registry and runs one interview per eligible
// direct message. At most one session is active per applicant.
type Manager struct {
	store     store.Store
	resolver  resolver.Resolver
	engine    *Engine
	messenger gateway.Messenger
	cfg       ManagerConfig
	log       logger.Logger

	// cardPosted is invoked after the review card lands in the pending
	// channel, letting moderation pre-mark it.
	cardPosted func(ctx context.Context, channelID, messageID string)

	mu     sync.Mutex
	active map[string]string
}

func NewManager(st store.Store, res resolver.Resolver, messenger gateway.Messenger, cfg ManagerConfig, log logger.Logger) *Manager {
	return &Manager{
		store:     st,
		resolver:  res,
		engine:    NewEngine(cfg.Timeout, log),
		messenger: messenger,
		cfg:       cfg,
		log:       log,
		active:    make(map[string]string),
	}
}

// OnCardPosted registers the callback fired after a review card is
// posted.
func (m *Manager) OnCardPosted(fn func(ctx context.Context, channelID, messageID string)) {
	m.cardPosted = fn
}

// Active reports whether an interview is running for the applicant.
func (m *Manager) Active(applicantID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[applicantID]
	return ok
}

func (m *Manager) register(applicantID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[applicantID]; ok {
		return "", false
	}
	sessionID := uuid.NewString()
	m.active[applicantID] = sessionID
	return sessionID, true
}

func (m *Manager) unregister(applicantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, applicantID)
}

// HandleDirectMessage runs the full interview for the message author.
// The triggering message content itself is not consumed as an answer.
func (m *Manager) HandleDirectMessage(ctx context.Context, conv gateway.Conversation, msg gateway.Message) error {
	if msg.AuthorBot {
		return nil
	}

	// A message discarded by an active session's receive filter is
	// re-dispatched here; stay silent so the open wait keeps waiting.
	if m.Active(msg.AuthorID) {
		return nil
	}

	if m.cfg.Closed {
		return conv.Send(ctx, "Whitelist applications are currently closed. Please check back later.")
	}

	if rec, err := m.store.Get(ctx, msg.AuthorID); err == nil && rec.Status != application.StatusRejected {
		return conv.Send(ctx, "You have already made an application. Staff will get back to you once it has been reviewed.")
	}

	sessionID, ok := m.register(msg.AuthorID)
	if !ok {
		return nil
	}
	defer m.unregister(msg.AuthorID)

	log := m.log.WithFields(map[string]interface{}{
		"session_id":   sessionID,
		"applicant_id": msg.AuthorID,
	})

	metrics.InterviewsStarted.Inc()
	started := time.Now()

	rec := application.NewRecord(msg.AuthorID, msg.AuthorName, msg.Discriminator)
	if err := m.store.Set(ctx, rec); err != nil {
		log.WithError(err).Error("failed to persist new application", nil)
		return err
	}

	if err := conv.Send(ctx, "Hi! Let's get your whitelist application going. I will ask you a few questions; you have "+m.cfg.Timeout.String()+" to answer each one or the application is cancelled."); err != nil {
		return err
	}

	if err := m.resolveName(ctx, conv, msg.AuthorID, rec); err != nil {
		return m.abort(ctx, conv, rec, log, err)
	}

	for _, q := range Questions() {
		for {
			v, err := m.engine.Ask(ctx, conv, msg.AuthorID, q)
			if err != nil {
				return m.abort(ctx, conv, rec, log, err)
			}
			if q.Passes(v) {
				rec.Answers.Set(q.Name, v)
				break
			}
			if q.OnCheckError != nil {
				if err := q.OnCheckError(ctx, conv); err != nil {
					return m.abort(ctx, conv, rec, log, err)
				}
			}
		}
		m.persistProgress(ctx, rec, log)
	}

	if err := conv.Send(ctx, "this is the application you have made:"); err != nil {
		return err
	}
	if err := conv.SendCard(ctx, card.RenderPending(rec)); err != nil {
		log.WithError(err).Warn("failed to echo application card", nil)
	}

	if !rec.Bool(application.AnswerReadRules) || !rec.Bool(application.AnswerPunishment) {
		m.deleteUnlessBlocked(ctx, rec.ApplicantID, log)
		metrics.InterviewsAborted.WithLabelValues("self_rejected").Inc()
		log.Info("application self-rejected", nil)
		return conv.Send(ctx, "You must read the rules and agree to the punishments to join the server. Feel free to apply again once you do.")
	}

	// Staff may have blocked the applicant while the interview was
	// running; the final write must not resurrect that record.
	if latest, err := m.store.Get(ctx, rec.ApplicantID); err == nil && latest.Status == application.StatusBlocked {
		metrics.InterviewsAborted.WithLabelValues("blocked").Inc()
		log.Warn("applicant blocked mid-interview, discarding completed application", nil)
		return nil
	}

	rec.Stamp(time.Now())
	if err := m.store.Set(ctx, rec); err != nil {
		log.WithError(err).Error("failed to persist completed application", nil)
		return err
	}

	messageID, err := m.messenger.SendCard(ctx, m.cfg.PendingChannelID, card.RenderPending(rec))
	if err != nil {
		log.WithError(err).Error("failed to post review card", nil)
		return err
	}
	if m.cardPosted != nil {
		m.cardPosted(ctx, m.cfg.PendingChannelID, messageID)
	}

	metrics.InterviewsCompleted.Inc()
	metrics.InterviewDuration.Observe(time.Since(started).Seconds())
	log.Info("application submitted for review", map[string]interface{}{
		"character_name": rec.CharacterName,
	})

	return conv.Send(ctx, "Your application is now under review. Staff will get back to you soon!")
}

// persistProgress writes the in-flight record unless staff blocked the
// applicant since the interview started. A blocked record must never be
// overwritten by interview writes.
func (m *Manager) persistProgress(ctx context.Context, rec *application.Record, log logger.Logger) {
	if latest, err := m.store.Get(ctx, rec.ApplicantID); err == nil && latest.Status == application.StatusBlocked {
		return
	}
	if err := m.store.Set(ctx, rec); err != nil {
		log.WithError(err).Error("failed to persist answer", nil)
	}
}

func (m *Manager) resolveName(ctx context.Context, conv gateway.Conversation, authorID string, rec *application.Record) error {
	if err := conv.Send(ctx, "What is your Minecraft character name?"); err != nil {
		return err
	}
	for {
		msg, err := conv.Await(ctx, gateway.Filter{AuthorID: authorID}, m.cfg.Timeout)
		if err != nil {
			return err
		}
		name := strings.TrimSpace(msg.Content)
		if strings.EqualFold(name, "next") {
			if err := conv.Send(ctx, "Please enter your real Minecraft name."); err != nil {
				return err
			}
			continue
		}
		profile, err := m.resolver.Resolve(ctx, name)
		if err != nil {
			if err := conv.Send(ctx, "I couldn't find a Minecraft account with that name, please try again."); err != nil {
				return err
			}
			continue
		}
		rec.CharacterName = profile.Name
		rec.CharacterUUID = profile.ID
		return nil
	}
}

// deleteUnlessBlocked removes an interview's partial record while
// preserving a block that staff applied in the meantime.
func (m *Manager) deleteUnlessBlocked(ctx context.Context, applicantID string, log logger.Logger) {
	if latest, err := m.store.Get(ctx, applicantID); err == nil && latest.Status == application.StatusBlocked {
		return
	}
	if err := m.store.Delete(ctx, applicantID); err != nil {
		log.WithError(err).Error("failed to delete interview record", nil)
	}
}

func (m *Manager) abort(ctx context.Context, conv gateway.Conversation, rec *application.Record, log logger.Logger, cause error) error {
	m.deleteUnlessBlocked(ctx, rec.ApplicantID, log)
	if errors.Is(cause, gateway.ErrTimeout) {
		metrics.InterviewsAborted.WithLabelValues("timeout").Inc()
		log.WithError(commonerrors.NewReceiveTimeoutError(rec.ApplicantID)).Info("interview timed out", nil)
		return conv.Send(ctx, "You took too long to answer, your application has been cancelled. Send me a message to start over.")
	}
	metrics.InterviewsAborted.WithLabelValues("error").Inc()
	log.WithError(cause).Error("interview aborted", nil)
	return cause
}
