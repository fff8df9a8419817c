package agent

import (
	"context"
	"fmt"
)

// Skill is one named, LLM-backed capability a plan node can dispatch to
// (spec.md §4.2/§6). Description must be a self-contained sentence an LLM
// planner can use to choose between skills.
type Skill interface {
	Name() string
	Description() string
	Execute(ctx context.Context, agentCtx *Context, payload TaskPayload) (TaskResult, error)
}

// SkillRegistry is an insertion-ordered, name-keyed map of Skills. It is
// immutable once a run starts; Register is only called during Manager setup.
type SkillRegistry struct {
	order []string
	byName map[string]Skill
}

// NewSkillRegistry returns an empty registry.
func NewSkillRegistry() *SkillRegistry {
	return &SkillRegistry{byName: map[string]Skill{}}
}

// Register adds or replaces a skill by name.
func (r *SkillRegistry) Register(s Skill) {
	if _, exists := r.byName[s.Name()]; !exists {
		r.order = append(r.order, s.Name())
	}
	r.byName[s.Name()] = s
}

// Get looks up a skill by name.
func (r *SkillRegistry) Get(name string) (Skill, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Names returns registered skill names in registration order.
func (r *SkillRegistry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Descriptions renders "- **name**: description" lines for the planning
// prompt's {{skill_descriptions}} placeholder.
func (r *SkillRegistry) Descriptions() string {
	out := ""
	for i, name := range r.order {
		if i > 0 {
			out += "\n"
		}
		s := r.byName[name]
		out += fmt.Sprintf("- **%s**: %s", s.Name(), s.Description())
	}
	return out
}

// NamesJoined returns a comma-joined list of registered skill names, used by
// the review/reflection prompts' {{available_skills}} placeholder.
func (r *SkillRegistry) NamesJoined() string {
	out := ""
	for i, name := range r.order {
		if i > 0 {
			out += ", "
		}
		out += name
	}
	return out
}
