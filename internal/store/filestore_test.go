package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whitelist-bot/internal/application"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "whitelist.json")
	s := NewFileStore(path)
	require.NoError(t, s.Load(context.Background()))
	return s, path
}

func TestFileStore_MissingFileCreatesEmptySnapshot(t *testing.T) {
	s, path := newTestFileStore(t)

	all, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileStore_SetGetDelete(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()

	rec := application.NewRecord("42", "Steve", "0420")
	rec.CharacterName = "Steve"
	require.NoError(t, s.Set(ctx, rec))

	got, err := s.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Steve", got.CharacterName)
	assert.Equal(t, application.StatusPending, got.Status)

	ok, err := s.Contains(ctx, "42")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "42"))
	ok, err = s.Contains(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, "42")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_GetReturnsCopy(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()

	rec := application.NewRecord("42", "Steve", "0420")
	require.NoError(t, s.Set(ctx, rec))

	got, err := s.Get(ctx, "42")
	require.NoError(t, err)
	got.Status = application.StatusApproved

	again, err := s.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, application.StatusPending, again.Status)
}

func TestFileStore_MutationsPersistAcrossReload(t *testing.T) {
	s, path := newTestFileStore(t)
	ctx := context.Background()

	rec := application.NewRecord("42", "Steve", "0420")
	rec.Answers.Set(application.AnswerAge, application.IntsValue([]string{"18"}))
	rec.Block("ban evasion")
	require.NoError(t, s.Set(ctx, rec))

	reloaded := NewFileStore(path)
	require.NoError(t, reloaded.Load(ctx))

	got, err := reloaded.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, application.StatusBlocked, got.Status)
	assert.Equal(t, "ban evasion", got.BlacklistReason)
	assert.Equal(t, []string{"18"}, got.Ints(application.AnswerAge))
}

func TestFileStore_LoadRejectsCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitelist.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"42": {"status": "wat"}}`), 0o644))

	s := NewFileStore(path)
	assert.Error(t, s.Load(context.Background()))
}

func TestFileStore_LoadRejectsNonObjectSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitelist.json")
	require.NoError(t, os.WriteFile(path, []byte(`["not", "a", "snapshot"]`), 0o644))

	s := NewFileStore(path)
	assert.Error(t, s.Load(context.Background()))
}
