package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/meridianai/taskforge/store"
)

// constBackend always returns the same response text, for roles whose
// scripted behavior in a given test never varies call to call.
type constBackend string

func (c constBackend) Chat(context.Context, string, string) (string, error) {
	return string(c), nil
}

// scriptedBackend cycles through a fixed list of responses, one per call,
// repeating the last entry once exhausted. Safe for concurrent use so it
// can stand in for the verification role's 3 parallel votes.
type scriptedBackend struct {
	mu        sync.Mutex
	responses []string
	idx       int
	calls     int
}

func (s *scriptedBackend) Chat(context.Context, string, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.responses) == 0 {
		return "", fmt.Errorf("scriptedBackend: no responses configured")
	}
	i := s.idx
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	} else {
		s.idx++
	}
	return s.responses[i], nil
}

func (s *scriptedBackend) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// errBackend always fails, to test backend-error propagation paths.
type errBackend struct{ err error }

func (e errBackend) Chat(context.Context, string, string) (string, error) {
	return "", e.err
}

// addNumbersSkill mirrors spec.md S1/S2's literal example skill.
type addNumbersSkill struct{}

func (addNumbersSkill) Name() string        { return "add_numbers" }
func (addNumbersSkill) Description() string { return "Adds two numeric parameters a and b." }

func (addNumbersSkill) Execute(_ context.Context, _ *Context, payload TaskPayload) (TaskResult, error) {
	a, _ := payload.Params["a"].(float64)
	b, _ := payload.Params["b"].(float64)
	sum := a + b
	return TaskResult{
		Summary: fmt.Sprintf("Calculated %.0f+%.0f=%.0f", a, b, sum),
		Data:    map[string]any{"result": sum},
	}, nil
}

// failingSkill always returns a runtime error, for reflection/retry and
// replan-on-unrecoverable-node scenarios.
type failingSkill struct {
	name string
	err  error
}

func (f failingSkill) Name() string        { return f.name }
func (f failingSkill) Description() string { return "Always fails." }
func (f failingSkill) Execute(context.Context, *Context, TaskPayload) (TaskResult, error) {
	return TaskResult{}, f.err
}

// mockStore records every Save call and returns whatever was last saved on
// Load, so tests can assert the exactly-once persistence guarantee.
type mockStore struct {
	mu      sync.Mutex
	saves   int
	lastRec *store.Record
}

func (m *mockStore) Save(_ context.Context, rec *store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.lastRec = rec
	return nil
}

func (m *mockStore) Load(_ context.Context, traceID string) (*store.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastRec == nil || m.lastRec.TraceID != traceID {
		return nil, false, nil
	}
	return m.lastRec, true, nil
}

func (m *mockStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
