package agent

import (
	"sync"

	"github.com/google/uuid"
)

// ContextState is the mutable state guarded by Context's lock: the history
// log and the artifact map. Skills, the scheduler (fold step and replan
// notes), the pipeline's reflection notes and the run entry points write to
// it; readers observe it through copies and snapshots.
type ContextState struct {
	History   []string
	Artifacts map[string]map[string]any
}

// Context is the per-run AgentContext (spec.md §3): trace id plus history
// and artifacts, held behind a mutex the way the teacher guards WorkflowDAG
// and StandardOrchestrator's history/metrics maps. WithLock is the single
// mutation entry point so skills, the scheduler fold, and reflection history
// appends all serialize on the same lock (spec.md §5).
type Context struct {
	TraceID string

	mu    sync.Mutex
	state ContextState
}

// NewContext creates an empty run context with a fresh trace id.
func NewContext() *Context {
	return &Context{
		TraceID: uuid.NewString(),
		state: ContextState{
			History:   []string{},
			Artifacts: map[string]map[string]any{},
		},
	}
}

// WithLock runs fn with exclusive access to the context's mutable state.
func (c *Context) WithLock(fn func(*ContextState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}

// AppendHistory records a log line under the context lock.
func (c *Context) AppendHistory(line string) {
	c.WithLock(func(s *ContextState) {
		s.History = append(s.History, line)
	})
}

// ArtifactSnapshot returns a shallow copy of the current artifact map, taken
// once at the start of a scheduling batch so sibling tasks resolve
// parameters against the same pre-batch view (spec.md §5).
func (c *Context) ArtifactSnapshot() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := make(map[string]any, len(c.state.Artifacts))
	for k, v := range c.state.Artifacts {
		snap[k] = v
	}
	return snap
}

// HistoryLines returns a copy of the history log, used when building a
// persistence Record.
func (c *Context) HistoryLines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.state.History))
	copy(out, c.state.History)
	return out
}

// HistoryText joins the history log for use as synthesis/replan context.
func (c *Context) HistoryText(sep string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := ""
	for i, line := range c.state.History {
		if i > 0 {
			out += sep
		}
		out += line
	}
	return out
}

// Artifacts returns a shallow copy of the artifact map for persistence or
// synthesis rendering.
func (c *Context) Artifacts() map[string]map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]map[string]any, len(c.state.Artifacts))
	for k, v := range c.state.Artifacts {
		out[k] = v
	}
	return out
}
