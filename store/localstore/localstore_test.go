package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianai/taskforge/store"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	rec := &store.Record{
		TraceID: "trace-abc",
		History: []string{"line 1", "line 2"},
		SharedData: map[string]map[string]any{
			"task_1": {"result": float64(30)},
		},
	}

	require.NoError(t, s.Save(context.Background(), rec))

	loaded, found, err := s.Load(context.Background(), "trace-abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, rec.TraceID, loaded.TraceID)
	assert.Equal(t, rec.History, loaded.History)
	assert.Equal(t, float64(30), loaded.SharedData["task_1"]["result"])

	assert.FileExists(t, filepath.Join(dir, "trace-abc.json"))
}

func TestLoadMissingReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	loaded, found, err := s.Load(context.Background(), "does-not-exist")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, loaded)
}
