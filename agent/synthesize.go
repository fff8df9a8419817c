package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/meridianai/taskforge/core"
	"github.com/meridianai/taskforge/telemetry"
	"github.com/meridianai/taskforge/template"
)

// synthesizeFinal implements C13 (spec.md §4.12): format the final typed
// answer from history + artifacts + schema description. It returns the raw
// JSON text; RunTask unmarshals it into the caller's type. Parse failure is
// fatal. When outputSchema parses as a JSON Schema document it is enforced
// against the synthesized document before returning, wired to
// jsonschema/v6 per SPEC_FULL's domain-stack table; a JSON document that
// does not compile as a schema is a synthesis error. A schema description
// that is not JSON at all (a plain prose description) skips validation and
// is passed through to the LLM as-is.
func (m *Manager) synthesizeFinal(ctx context.Context, instruction, historyText, artifactsJSON, outputSchema string) (string, error) {
	return m.synthesizeWithPrompt(ctx, m.prompts.SynthesisPrompt, map[string]string{
		"instruction": instruction,
		"history":     historyText,
		"artifacts":   artifactsJSON,
		"schema":      outputSchema,
	}, "schema")
}

func (m *Manager) synthesizeWithPrompt(ctx context.Context, promptTmpl string, vars map[string]string, schemaVar string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "agent.synthesize")
	defer span.End()

	prompt := template.Render(promptTmpl, vars)
	raw, err := m.llms.Synthesis.Chat(ctx, "You produce the final structured answer.", prompt)
	if err != nil {
		span.RecordError(err)
		return "", core.NewFrameworkError("Manager.synthesizeFinal", "synthesis", "", "synthesis backend call failed", fmt.Errorf("%w: %v", core.ErrSynthesisParse, err))
	}
	clean := template.StripFence(raw)

	var probe any
	if err := json.Unmarshal([]byte(clean), &probe); err != nil {
		span.RecordError(err)
		return "", core.NewFrameworkError("Manager.synthesizeFinal", "synthesis", "", "could not parse synthesized output as JSON", fmt.Errorf("%w: %v", core.ErrSynthesisParse, err))
	}

	if schema, ok := vars[schemaVar]; ok {
		if err := validateAgainstSchema(schema, clean); err != nil {
			span.RecordError(err)
			return "", core.NewFrameworkError("Manager.synthesizeFinal", "synthesis", "", "synthesized output failed schema validation", fmt.Errorf("%w: %v", core.ErrSynthesisParse, err))
		}
	}

	return clean, nil
}

// validateAgainstSchema compiles schemaDesc as a JSON Schema and validates
// doc against it. If schemaDesc does not parse as JSON (a prose
// description rather than a schema document) validation is skipped rather
// than treated as an error - the schema argument is documentation for the
// LLM either way.
func validateAgainstSchema(schemaDesc, doc string) error {
	var schemaProbe any
	if err := json.Unmarshal([]byte(schemaDesc), &schemaProbe); err != nil {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("synthesis-schema.json", schemaProbe); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile("synthesis-schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var instance any
	if err := json.Unmarshal([]byte(doc), &instance); err != nil {
		return fmt.Errorf("decode synthesized document: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}
