package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianai/taskforge/core"
)

type s1Answer struct {
	FinalAnswer float64 `json:"final_answer"`
	Notes       string  `json:"notes"`
}

// S1: single-task happy path (spec.md §8).
func TestRunTask_SingleTaskHappyPath(t *testing.T) {
	plan := `{"thought":"One addition suffices.","tasks":[
		{"id":"task_1","description":"Calculate 10 + 20","skill_name":"add_numbers",
		 "params":{"a":10,"b":20},"acceptance_criteria":"Result should be 30"}]}`
	synth := `{"final_answer":30,"notes":"Calculation successful"}`
	st := &mockStore{}

	m := NewBuilder("taskforge-test", constBackend(plan), st).
		WithReviewBackend(constBackend(plan)).
		WithVerificationBackend(constBackend(`{"passed":true,"reason":"matches acceptance criteria"}`)).
		WithSynthesisBackend(constBackend(synth)).
		RegisterSkill(addNumbersSkill{}).
		Build()

	result, err := RunTask[s1Answer](context.Background(), m, "Calculate 10 + 20", `{"type":"object"}`)
	require.NoError(t, err)
	assert.Equal(t, float64(30), result.FinalAnswer)
	assert.Equal(t, "Calculation successful", result.Notes)

	assert.Equal(t, 1, st.saveCount())
	require.NotNil(t, st.lastRec)
	assert.Equal(t, float64(30), st.lastRec.SharedData["task_1"]["result"])
}

type s2Answer struct {
	Total float64 `json:"total"`
}

// S2: inter-task artifact reference resolution (spec.md §8).
func TestRunTask_InterTaskReferenceResolution(t *testing.T) {
	plan := `{"thought":"Two-step addition.","tasks":[
		{"id":"task_1","description":"Add 10 and 20","skill_name":"add_numbers",
		 "params":{"a":10,"b":20},"acceptance_criteria":"Result should be 30"},
		{"id":"task_2","description":"Add task_1's result and 5","skill_name":"add_numbers",
		 "dependencies":["task_1"],
		 "params":{"a":"{{task_1.result}}","b":5},"acceptance_criteria":"Result should be 35"}]}`
	synth := `{"total":35}`
	st := &mockStore{}

	m := NewBuilder("taskforge-test", constBackend(plan), st).
		WithReviewBackend(constBackend(plan)).
		WithVerificationBackend(constBackend(`{"passed":true,"reason":"ok"}`)).
		WithSynthesisBackend(constBackend(synth)).
		RegisterSkill(addNumbersSkill{}).
		Build()

	result, err := RunTask[s2Answer](context.Background(), m, "Chain two additions", `{"type":"object"}`)
	require.NoError(t, err)
	assert.Equal(t, float64(35), result.Total)

	require.NotNil(t, st.lastRec)
	assert.Equal(t, float64(35), st.lastRec.SharedData["task_2"]["result"])
}

// S3: a split verification vote invokes the adjudicator exactly once.
func TestVerifyWithAdjudication_SplitVoteInvokesAdjudicatorOnce(t *testing.T) {
	votes := &scriptedBackend{responses: []string{
		`{"passed":true,"reason":"looks fine"}`,
		`{"passed":true,"reason":"acceptable"}`,
		`{"passed":false,"reason":"missing units"}`,
	}}
	adj := &scriptedBackend{responses: []string{
		`{"final_decision":true,"rationale":"majority view is correct"}`,
	}}
	st := &mockStore{}

	m := NewBuilder("taskforge-test", constBackend(""), st).
		WithVerificationBackend(votes).
		WithAdjudicationBackend(adj).
		Build()

	task := SubTask{ID: "task_1", Description: "Report total", AcceptanceCriteria: "Include units"}
	passed, reason := m.verifyWithAdjudication(context.Background(), task, "Total: 35")

	assert.True(t, passed)
	assert.Equal(t, "majority view is correct", reason)
	assert.Equal(t, 3, votes.callCount())
	assert.Equal(t, 1, adj.callCount())
}

func TestVerifyWithAdjudication_UnanimousPassSkipsAdjudicator(t *testing.T) {
	votes := &scriptedBackend{responses: []string{
		`{"passed":true,"reason":"a"}`,
		`{"passed":true,"reason":"b"}`,
		`{"passed":true,"reason":"c"}`,
	}}
	adj := &scriptedBackend{responses: []string{`{"final_decision":true,"rationale":"unused"}`}}
	st := &mockStore{}

	m := NewBuilder("taskforge-test", constBackend(""), st).
		WithVerificationBackend(votes).
		WithAdjudicationBackend(adj).
		Build()

	passed, reason := m.verifyWithAdjudication(context.Background(), SubTask{ID: "task_1"}, "output")
	assert.True(t, passed)
	assert.Equal(t, "Unanimous Pass", reason)
	assert.Equal(t, 0, adj.callCount())
}

// S4: reflection-then-recovery - the first skill fails, reflection reroutes
// to a working skill, and the retry succeeds.
func TestRunPipeline_ReflectionThenRecovery(t *testing.T) {
	reflectionResp := `{"new_skill":"add_numbers","new_params":{"a":1,"b":2},"reason":"switch to the reliable skill"}`
	st := &mockStore{}

	m := NewBuilder("taskforge-test", constBackend(""), st).
		WithReflectionBackend(constBackend(reflectionResp)).
		WithVerificationBackend(constBackend(`{"passed":true,"reason":"ok"}`)).
		RegisterSkill(failingSkill{name: "flaky_skill", err: errors.New("transient backend outage")}).
		RegisterSkill(addNumbersSkill{}).
		Build()

	task := SubTask{ID: "task_1", Description: "Add two numbers", SkillName: "flaky_skill",
		Params: map[string]any{"a": float64(1), "b": float64(2)}, AcceptanceCriteria: "sum is correct"}

	agentCtx := NewContext()
	outcome := m.runPipeline(context.Background(), task, agentCtx.ArtifactSnapshot(), agentCtx)

	require.True(t, outcome.Success)
	assert.Equal(t, float64(3), outcome.OutputData["result"])

	lines := agentCtx.HistoryLines()
	found := false
	for _, l := range lines {
		if l == "Task [task_1] reflecting after attempt 1: Runtime Error: transient backend outage" {
			found = true
		}
	}
	assert.True(t, found, "expected a reflection history line, got %v", lines)
}

// S5: a task that never recovers exhausts retries and all three global
// replans, and the run fails with the last failure reason surfaced.
func TestRunTask_ReplanOnUnrecoverableNode(t *testing.T) {
	plan := `{"thought":"Single doomed task.","tasks":[
		{"id":"task_x","description":"Call a dead API","skill_name":"flaky_skill",
		 "params":{},"acceptance_criteria":"n/a"}]}`
	st := &mockStore{}

	m := NewBuilder("taskforge-test", constBackend(plan), st).
		WithReviewBackend(constBackend(plan)).
		WithReflectionBackend(constBackend("not valid json")).
		WithReplanningBackend(constBackend(plan)).
		RegisterSkill(failingSkill{name: "flaky_skill", err: errors.New("API 4xx")}).
		Build()

	_, err := RunTask[s1Answer](context.Background(), m, "Call a dead API", `{"type":"object"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API 4xx")
	assert.True(t, errors.Is(err, core.ErrReplanBudgetExceeded))
	assert.Equal(t, 1, st.saveCount())
}

// S6: a self-dependent task is an immediate deadlock; no skill or
// verification backend is ever invoked.
func TestRunTask_DeadlockDetection(t *testing.T) {
	plan := `{"thought":"Broken plan.","tasks":[
		{"id":"task_1","description":"Depends on itself","skill_name":"add_numbers",
		 "dependencies":["task_1"],"params":{},"acceptance_criteria":"n/a"}]}`
	verification := &scriptedBackend{responses: []string{`{"passed":true,"reason":"unused"}`}}
	st := &mockStore{}

	m := NewBuilder("taskforge-test", constBackend(plan), st).
		WithReviewBackend(constBackend(plan)).
		WithVerificationBackend(verification).
		RegisterSkill(addNumbersSkill{}).
		Build()

	_, err := RunTask[s1Answer](context.Background(), m, "Depends on itself", `{"type":"object"}`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDeadlock))
	assert.Equal(t, 0, verification.callCount())
	assert.Equal(t, 1, st.saveCount())
}
