package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoOpLoggerDiscardsEverything(t *testing.T) {
	var l Logger = NoOpLogger{}
	assert.NotPanics(t, func() {
		l.Info("msg", map[string]interface{}{"k": "v"})
		l.ErrorWithContext(context.Background(), "msg", nil)
	})
}

func TestProductionLoggerLevelFiltering(t *testing.T) {
	l := NewProductionLogger("test", "error")
	assert.Equal(t, levelError, l.level)
}

func TestContextWithTraceIDRoundTrips(t *testing.T) {
	ctx := ContextWithTraceID(context.Background(), "trace-123")
	fields := withTraceField(ctx, map[string]interface{}{"a": 1})
	assert.Equal(t, "trace-123", fields["trace_id"])
	assert.Equal(t, 1, fields["a"])
}

func TestWithComponentPreservesLevel(t *testing.T) {
	l := NewProductionLogger("root", "warn")
	child := l.WithComponent("child")
	cp, ok := child.(*ProductionLogger)
	assert.True(t, ok)
	assert.Equal(t, "child", cp.component)
	assert.Equal(t, levelWarn, cp.level)
}
