// Package store persists whitelist application records. Two backends are
// provided: a whole-file JSON snapshot and a Redis keyspace.
package store

import (
	"context"
	"errors"

	"whitelist-bot/internal/application"
)

// ErrNotFound is returned by Get when no record exists for the id.
var ErrNotFound = errors.New("record not found")

// Store is the durable applicant-id to record mapping.
type Store interface {
	// Load reads the backing snapshot into memory. Called at startup
	// and by the reload command.
	Load(ctx context.Context) error
	// Save writes the full snapshot out.
	Save(ctx context.Context) error
	Get(ctx context.Context, applicantID string) (*application.Record, error)
	Set(ctx context.Context, rec *application.Record) error
	Delete(ctx context.Context, applicantID string) error
	Contains(ctx context.Context, applicantID string) (bool, error)
	All(ctx context.Context) (map[string]*application.Record, error)
}
