// Package agent implements the Manager: the planning, scheduling,
// verification, reflection and replanning core described by the
// specification, along with the secondary Debate Host mode. It is grounded
// on the teacher's orchestration package (WorkflowDAG, StandardOrchestrator)
// and on the original Rust agent crate's manager.rs/host.rs for exact
// protocol semantics.
package agent

// TaskPayload is what a Skill receives on execution.
type TaskPayload struct {
	Instruction string
	Params      map[string]any
}

// TaskResult is a Skill's successful output: a human-readable summary plus
// optional structured data that, on success, is stored under the task's id
// in the run's artifacts.
type TaskResult struct {
	Summary string
	Data    map[string]any
}

// SubTask is one node of an ExecutionPlan.
type SubTask struct {
	ID                 string         `json:"id"`
	Description        string         `json:"description"`
	Dependencies       []string       `json:"dependencies,omitempty"`
	SkillName          string         `json:"skill_name"`
	Params             map[string]any `json:"params,omitempty"`
	AcceptanceCriteria string         `json:"acceptance_criteria,omitempty"`
}

// ExecutionPlan is the Planner/Reviewer/Replanner's output shape.
type ExecutionPlan struct {
	Thought string    `json:"thought"`
	Tasks   []SubTask `json:"tasks"`
}

// PipelineOutcome is what runPipeline returns for one task.
type PipelineOutcome struct {
	Success    bool
	Summary    string
	OutputData map[string]any
	Feedback   string
}

// VerificationVote is one judge's opinion on a candidate output.
type VerificationVote struct {
	Passed     bool   `json:"passed"`
	Reason     string `json:"reason"`
	Suggestion string `json:"suggestion,omitempty"`
}

// AdjudicationVerdict resolves a split VerificationVote quorum.
type AdjudicationVerdict struct {
	FinalDecision bool   `json:"final_decision"`
	Rationale     string `json:"rationale"`
}

// reflection is the Reflector's proposed alternative skill/params, parsed
// from the reflection template's LLM response.
type reflection struct {
	NewSkill  string         `json:"new_skill"`
	NewParams map[string]any `json:"new_params"`
	Reason    string         `json:"reason"`
}

// hostDecision is the Debate Host's per-turn choice of speaker or conclusion.
type hostDecision struct {
	Action      string `json:"action"` // "next" | "conclude"
	NextSpeaker string `json:"next_speaker,omitempty"`
	Instruction string `json:"instruction,omitempty"`
	Rationale   string `json:"rationale"`
}
