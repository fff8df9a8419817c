package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	c, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, MaxGlobalReplans, c.MaxGlobalReplans)
	assert.Equal(t, 5*time.Minute, c.Timeout)
}

func TestNewConfigEnvOverridesDefaults(t *testing.T) {
	t.Setenv("TASKFORGE_MAX_REPLANS", "7")
	t.Setenv("TASKFORGE_LOG_LEVEL", "debug")

	c, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, 7, c.MaxGlobalReplans)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestNewConfigOptionsOverrideEnv(t *testing.T) {
	t.Setenv("TASKFORGE_MAX_REPLANS", "7")

	c, err := NewConfig(WithMaxReplans(9), WithName("demo"))
	require.NoError(t, err)
	assert.Equal(t, 9, c.MaxGlobalReplans)
	assert.Equal(t, "demo", c.Name)
}

func TestNewConfigRejectsInvalidEnvInt(t *testing.T) {
	t.Setenv("TASKFORGE_MAX_REPLANS", "not-a-number")

	_, err := NewConfig()
	assert.Error(t, err)
}

func TestLoadPromptConfigFileOverridesOnlyNamedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	content := "planning_prompt: \"Custom planning prompt.\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	base := DefaultPromptConfig()
	merged, err := LoadPromptConfigFile(path, base)
	require.NoError(t, err)

	assert.Equal(t, "Custom planning prompt.", merged.PlanningPrompt)
	assert.Equal(t, base.ReflectionPrompt, merged.ReflectionPrompt)
}
