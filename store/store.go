// Package store defines the ContextStore interface (C3): persist and load an
// AgentContext by trace id. Concrete backends live in store/localstore and
// store/redisstore.
package store

import "context"

// Record is the on-disk/wire shape of a persisted AgentContext (spec.md §6):
// trace_id, history, and the artifact map under the wire name "shared_data"
// per the original crate's AgentContext.shared_data field.
type Record struct {
	TraceID    string                    `json:"trace_id"`
	History    []string                  `json:"history"`
	SharedData map[string]map[string]any `json:"shared_data"`
}

// ContextStore persists and retrieves Records keyed by trace id. Save is
// called exactly once per run by the Manager/DebateHost, regardless of
// outcome; Load is exposed to callers for debugging/resumption, not used
// internally.
type ContextStore interface {
	Save(ctx context.Context, rec *Record) error
	Load(ctx context.Context, traceID string) (*Record, bool, error)
}
