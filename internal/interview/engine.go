// Package interview runs the per-applicant question flow and owns the
// session registry.
package interview

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"whitelist-bot/internal/application"
	"whitelist-bot/internal/common/logger"
	"whitelist-bot/internal/gateway"
)

// Sentinel terminates a multi-message free-text answer.
const Sentinel = "NEXT"

var intPattern = regexp.MustCompile(`-?[0-9]+`)

// Check validates a collected answer value.
type Check func(application.Value) bool

// Question is one interview step. Checks run after the engine collects a
// typed value; on failure OnCheckError is invoked and the question is
// asked again from scratch.
type Question struct {
	Name         string
	Text         string
	Kind         application.Kind
	Checks       []Check
	OnCheckError func(ctx context.Context, conv gateway.Conversation) error
}

// Passes reports whether v satisfies all of the question's checks.
func (q Question) Passes(v application.Value) bool {
	for _, check := range q.Checks {
		if !check(v) {
			return false
		}
	}
	return true
}

// Engine collects one typed answer per Ask call. It never validates
// beyond the type shape: range and arity checks stay with the question
// definitions so numeric semantics remain pluggable.
type Engine struct {
	timeout time.Duration
	log     logger.Logger
}

func NewEngine(timeout time.Duration, log logger.Logger) *Engine {
	return &Engine{timeout: timeout, log: log}
}

// Ask prompts and collects a single raw answer of the question's kind.
func (e *Engine) Ask(ctx context.Context, conv gateway.Conversation, authorID string, q Question) (application.Value, error) {
	switch q.Kind {
	case application.KindBool:
		return e.askBool(ctx, conv, authorID, q)
	case application.KindInteger:
		return e.askInt(ctx, conv, authorID, q)
	default:
		return e.askFree(ctx, conv, authorID, q)
	}
}

func (e *Engine) askFree(ctx context.Context, conv gateway.Conversation, authorID string, q Question) (application.Value, error) {
	if err := conv.Send(ctx, q.Text+" Type NEXT to validate."); err != nil {
		return application.Value{}, err
	}

	var fragments []string
	for {
		msg, err := conv.Await(ctx, gateway.Filter{AuthorID: authorID}, e.timeout)
		if err != nil {
			return application.Value{}, err
		}
		if containsSentinel(msg.Content) {
			if len(msg.Content) > len(Sentinel) {
				if frag := stripSentinel(msg.Content); frag != "" {
					fragments = append(fragments, frag)
				}
			}
			return application.TextValue(strings.Join(fragments, " ")), nil
		}
		fragments = append(fragments, msg.Content)
	}
}

func (e *Engine) askBool(ctx context.Context, conv gateway.Conversation, authorID string, q Question) (application.Value, error) {
	if err := conv.Send(ctx, q.Text+" Type YES or NO to validate."); err != nil {
		return application.Value{}, err
	}

	msg, err := conv.Await(ctx, gateway.Filter{
		AuthorID: authorID,
		Contents: []string{"yes", "no"},
	}, e.timeout)
	if err != nil {
		return application.Value{}, err
	}
	return application.BoolValue(strings.EqualFold(strings.TrimSpace(msg.Content), "yes")), nil
}

func (e *Engine) askInt(ctx context.Context, conv gateway.Conversation, authorID string, q Question) (application.Value, error) {
	if err := conv.Send(ctx, q.Text); err != nil {
		return application.Value{}, err
	}

	msg, err := conv.Await(ctx, gateway.Filter{AuthorID: authorID}, e.timeout)
	if err != nil {
		return application.Value{}, err
	}
	return application.IntsValue(intPattern.FindAllString(msg.Content, -1)), nil
}

func containsSentinel(s string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(Sentinel))
}

func stripSentinel(s string) string {
	i := strings.Index(strings.ToLower(s), strings.ToLower(Sentinel))
	if i < 0 {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[:i] + s[i+len(Sentinel):])
}

// AgeCheck accepts exactly one extracted number within the allowed range.
func AgeCheck(v application.Value) bool {
	if v.Kind != application.KindInteger || len(v.Ints) != 1 {
		return false
	}
	n, err := strconv.Atoi(v.Ints[0])
	if err != nil {
		return false
	}
	return n >= 13 && n <= 99
}

// PersonalityCheck requires at least three sentence terminators.
func PersonalityCheck(v application.Value) bool {
	return strings.Count(v.Text, ".") >= 3
}

func reprompt(text string) func(ctx context.Context, conv gateway.Conversation) error {
	return func(ctx context.Context, conv gateway.Conversation) error {
		return conv.Send(ctx, text)
	}
}

// Questions returns the interview steps in their fixed order.
func Questions() []Question {
	return []Question{
		{
			Name:         application.AnswerAge,
			Text:         "How old are you?",
			Kind:         application.KindInteger,
			Checks:       []Check{AgeCheck},
			OnCheckError: reprompt("Please give a single number between 13 and 99."),
		},
		{
			Name: application.AnswerReadRules,
			Text: "Have you read and understood the rules?",
			Kind: application.KindBool,
		},
		{
			Name: application.AnswerPunishment,
			Text: "Do you agree to be punished or banned if you break the rules?",
			Kind: application.KindBool,
		},
		{
			Name: application.AnswerBanHistory,
			Text: "Have you ever been banned from a server? If yes, tell us what happened.",
			Kind: application.KindText,
		},
		{
			Name: application.AnswerReferral,
			Text: "Where did you hear about the pack?",
			Kind: application.KindText,
		},
		{
			Name:         application.AnswerPersonality,
			Text:         "Tell us a bit about yourself (3 sentences minimum).",
			Kind:         application.KindText,
			Checks:       []Check{PersonalityCheck},
			OnCheckError: reprompt("Please write at least three full sentences ending with '.'."),
		},
	}
}
