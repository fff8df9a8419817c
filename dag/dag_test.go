package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrontierNoDependencies(t *testing.T) {
	g := New([]Node{{ID: "a"}, {ID: "b"}})
	frontier := g.Frontier(map[string]bool{})
	assert.ElementsMatch(t, []string{"a", "b"}, frontier)
}

func TestFrontierRespectsDependencies(t *testing.T) {
	g := New([]Node{
		{ID: "a"},
		{ID: "b", Dependencies: []string{"a"}},
	})
	assert.Equal(t, []string{"a"}, g.Frontier(map[string]bool{}))
	assert.Equal(t, []string{"b"}, g.Frontier(map[string]bool{"a": true}))
}

func TestFrontierEmptyWhenAllDone(t *testing.T) {
	g := New([]Node{{ID: "a"}})
	assert.Empty(t, g.Frontier(map[string]bool{"a": true}))
	assert.False(t, g.Pending(map[string]bool{"a": true}))
}

func TestValidateDetectsSelfCycle(t *testing.T) {
	g := New([]Node{{ID: "a", Dependencies: []string{"a"}}})
	assert.Error(t, g.Validate())
}

func TestValidateDetectsMissingDependency(t *testing.T) {
	g := New([]Node{{ID: "a", Dependencies: []string{"ghost"}}})
	assert.Error(t, g.Validate())
}

func TestValidateDetectsLongerCycle(t *testing.T) {
	g := New([]Node{
		{ID: "a", Dependencies: []string{"b"}},
		{ID: "b", Dependencies: []string{"c"}},
		{ID: "c", Dependencies: []string{"a"}},
	})
	assert.Error(t, g.Validate())
}

func TestValidateAcyclicPasses(t *testing.T) {
	g := New([]Node{
		{ID: "a"},
		{ID: "b", Dependencies: []string{"a"}},
		{ID: "c", Dependencies: []string{"a", "b"}},
	})
	assert.NoError(t, g.Validate())
}
