package agent

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextWithLockIsConcurrencySafe(t *testing.T) {
	ctx := NewContext()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx.WithLock(func(s *ContextState) {
				s.Artifacts["task"] = map[string]any{"n": i}
			})
		}()
	}
	wg.Wait()
	assert.Len(t, ctx.Artifacts(), 1)
}

func TestArtifactSnapshotIsIsolatedFromLaterWrites(t *testing.T) {
	ctx := NewContext()
	ctx.WithLock(func(s *ContextState) {
		s.Artifacts["task_1"] = map[string]any{"result": float64(1)}
	})

	snap := ctx.ArtifactSnapshot()

	ctx.WithLock(func(s *ContextState) {
		s.Artifacts["task_2"] = map[string]any{"result": float64(2)}
	})

	assert.Len(t, snap, 1)
	assert.Contains(t, snap, "task_1")
	assert.NotContains(t, snap, "task_2")
}

func TestAppendHistoryAndHistoryText(t *testing.T) {
	ctx := NewContext()
	ctx.AppendHistory("first")
	ctx.AppendHistory("second")

	assert.Equal(t, []string{"first", "second"}, ctx.HistoryLines())
	assert.Equal(t, "first\nsecond", ctx.HistoryText("\n"))
}

func TestNewContextGeneratesDistinctTraceIDs(t *testing.T) {
	a := NewContext()
	b := NewContext()
	assert.NotEqual(t, a.TraceID, b.TraceID)
	assert.NotEmpty(t, a.TraceID)
}
