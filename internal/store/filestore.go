package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"whitelist-bot/internal/application"
	commonerrors "whitelist-bot/internal/common/errors"
	"whitelist-bot/internal/common/metrics"
)

// snapshotSchema guards against loading a corrupt or foreign file as the
// whitelist snapshot.
const snapshotSchema = `{
	"type": "object",
	"additionalProperties": {
		"type": "object",
		"required": ["applicantId", "status"],
		"properties": {
			"applicantId": {"type": "string"},
			"applicantDisplayName": {"type": "string"},
			"applicantDiscriminator": {"type": "string"},
			"characterName": {"type": "string"},
			"characterUuid": {"type": "string"},
			"answers": {"type": "object"},
			"status": {"enum": ["pending", "approved", "rejected", "blocked"]},
			"blacklistReason": {"type": "string"},
			"submittedAt": {"type": "string"}
		}
	}
}`

// FileStore keeps all records in memory and rewrites the whole snapshot
// file on every mutation. Last write wins; there is no partial update.
type FileStore struct {
	path string

	mu      sync.Mutex
	records map[string]*application.Record
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:    path,
		records: make(map[string]*application.Record),
	}
}

func (s *FileStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.records = make(map[string]*application.Record)
		return s.persistLocked()
	}
	if err != nil {
		return commonerrors.NewSnapshotReadFailedError(err)
	}

	schema := gojsonschema.NewStringLoader(snapshotSchema)
	doc := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schema, doc)
	if err != nil {
		return commonerrors.NewSnapshotInvalidError(err.Error())
	}
	if !result.Valid() {
		details := ""
		for _, desc := range result.Errors() {
			details += desc.String() + "; "
		}
		return commonerrors.NewSnapshotInvalidError(details)
	}

	records := make(map[string]*application.Record)
	if err := json.Unmarshal(data, &records); err != nil {
		return commonerrors.NewSnapshotInvalidError(err.Error())
	}
	s.records = records
	return nil
}

func (s *FileStore) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

func (s *FileStore) persistLocked() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return commonerrors.NewSnapshotWriteFailedError(err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return commonerrors.NewSnapshotWriteFailedError(err)
	}
	metrics.SnapshotWrites.Inc()
	return nil
}

func (s *FileStore) Get(ctx context.Context, applicantID string) (*application.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[applicantID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, applicantID)
	}
	cp := *rec
	return &cp, nil
}

func (s *FileStore) Set(ctx context.Context, rec *application.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.ApplicantID] = &cp
	return s.persistLocked()
}

func (s *FileStore) Delete(ctx context.Context, applicantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, applicantID)
	return s.persistLocked()
}

func (s *FileStore) Contains(ctx context.Context, applicantID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[applicantID]
	return ok, nil
}

func (s *FileStore) All(ctx context.Context) (map[string]*application.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*application.Record, len(s.records))
	for id, rec := range s.records {
		cp := *rec
		out[id] = &cp
	}
	return out, nil
}
