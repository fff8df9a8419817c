package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for comparison via errors.Is. FrameworkErrors for parse,
// deadlock and replan-budget failures wrap the matching sentinel; those for
// a failed planning or replanning backend call, or an artifact marshal
// failure, wrap the underlying error instead.
var (
	ErrPlanParse           = errors.New("plan could not be parsed")
	ErrReviewParse         = errors.New("plan review could not be parsed")
	ErrSkillNotFound       = errors.New("skill not registered")
	ErrSkillRuntime        = errors.New("skill execution failed")
	ErrVerificationReject  = errors.New("output rejected by verification")
	ErrReflectionParse     = errors.New("reflection response could not be parsed")
	ErrDeadlock            = errors.New("plan deadlock: no executable task but work remains")
	ErrReplanBudgetExceeded = errors.New("global replan budget exceeded")
	ErrSynthesisParse      = errors.New("synthesis response could not be parsed")
	ErrStoreSave           = errors.New("context store save failed")
)

// FrameworkError carries the operation and kind alongside a wrapped cause, so
// callers can both read a human message and errors.Is/As the underlying
// sentinel.
type FrameworkError struct {
	Op      string // e.g. "manager.MakePlan"
	Kind    string // e.g. "plan", "deadlock", "replan"
	ID      string // optional: task id, trace id
	Message string
	Err     error
}

func (e *FrameworkError) Error() string {
	switch {
	case e.Op != "" && e.ID != "" && e.Err != nil:
		return fmt.Sprintf("%s [%s]: %s: %v", e.Op, e.ID, e.Message, e.Err)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

func (e *FrameworkError) Unwrap() error { return e.Err }

// NewFrameworkError builds a FrameworkError wrapping a sentinel.
func NewFrameworkError(op, kind, id, message string, err error) *FrameworkError {
	return &FrameworkError{Op: op, Kind: kind, ID: id, Message: message, Err: err}
}

// IsFatal reports whether err should abort the run (as opposed to being
// absorbed by reflection/retry).
func IsFatal(err error) bool {
	return errors.Is(err, ErrPlanParse) ||
		errors.Is(err, ErrDeadlock) ||
		errors.Is(err, ErrReplanBudgetExceeded) ||
		errors.Is(err, ErrSynthesisParse)
}
