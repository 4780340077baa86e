// Package application holds the whitelist application record and its
// status lifecycle.
package application

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of an application.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusBlocked  Status = "blocked"
)

// ErrInvalidTransition is returned when a status change violates the
// lifecycle: pending may move to approved or rejected, any state may move
// to blocked, and nothing leaves blocked.
var ErrInvalidTransition = errors.New("invalid status transition")

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	if to == StatusBlocked {
		return true
	}
	if from == StatusPending && (to == StatusApproved || to == StatusRejected) {
		return true
	}
	return false
}

// Record is one user's whitelist application.
type Record struct {
	ApplicantID   string  `json:"applicantId"`
	DisplayName   string  `json:"applicantDisplayName"`
	Discriminator string  `json:"applicantDiscriminator"`
	CharacterName string  `json:"characterName"`
	CharacterUUID string  `json:"characterUuid"`
	Answers       Answers `json:"answers"`

	Status          Status `json:"status"`
	BlacklistReason string `json:"blacklistReason,omitempty"`
	SubmittedAt     string `json:"submittedAt,omitempty"`
}

// NewRecord creates a pending record seeded with the applicant identity.
func NewRecord(applicantID, displayName, discriminator string) *Record {
	return &Record{
		ApplicantID:   applicantID,
		DisplayName:   displayName,
		Discriminator: discriminator,
		Answers:       Answers{},
		Status:        StatusPending,
	}
}

// Transition moves the record to the given status, enforcing the
// lifecycle rules.
func (r *Record) Transition(to Status) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	r.Status = to
	return nil
}

// Block forces the record to blocked with the given reason. Blocking is
// unconditional and valid from every state.
func (r *Record) Block(reason string) {
	r.Status = StatusBlocked
	r.BlacklistReason = reason
}

// Stamp sets the submission timestamp.
func (r *Record) Stamp(t time.Time) {
	r.SubmittedAt = t.UTC().Format(time.RFC3339)
}

// Bool returns the boolean answer stored under name, or false if absent
// or of another kind.
func (r *Record) Bool(name string) bool {
	v, ok := r.Answers.Get(name)
	return ok && v.Kind == KindBool && v.Bool
}

// Text returns the free-text answer stored under name.
func (r *Record) Text(name string) string {
	v, ok := r.Answers.Get(name)
	if !ok || v.Kind != KindText {
		return ""
	}
	return v.Text
}

// Ints returns the extracted integer runs stored under name.
func (r *Record) Ints(name string) []string {
	v, ok := r.Answers.Get(name)
	if !ok || v.Kind != KindInteger {
		return nil
	}
	return v.Ints
}
