package chunk

import (
	"fmt"

	"uiforge/internal/design"
)

// Status is the lifecycle state of one screen within a job.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSucceeded  Status = "SUCCEEDED"
	StatusFailed     Status = "FAILED"
	StatusSkipped    Status = "SKIPPED"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Screen is one independently processable unit of the design:
// a self-contained subtree copy plus bookkeeping. Screens are created
// by extraction and mutated only through Transition.
type Screen struct {
	ID        string
	Name      string
	Root      *design.Node
	NodeCount int
	// Ordinal is the stable position of the screen within the job,
	// used for deterministic collision suffixes downstream.
	Ordinal int
	// Path holds the ancestor names from the document root down to,
	// but not including, the screen root.
	Path []string
	// Virtual marks a sub-screen synthesized by re-splitting an
	// oversized screen; its ID is derived, not a document node id.
	Virtual bool

	status  Status
	failure string
}

// Status returns the current lifecycle state.
func (s *Screen) Status() Status { return s.status }

// Failure returns the recorded failure reason, empty unless FAILED.
func (s *Screen) Failure() string { return s.failure }

// Transition moves the screen to next, enforcing the state machine:
// PENDING -> PROCESSING -> {SUCCEEDED|FAILED}, PENDING -> SKIPPED.
// Terminal states are final.
func (s *Screen) Transition(next Status) error {
	if s.status.Terminal() {
		return fmt.Errorf("screen %s: already %s, cannot become %s", s.ID, s.status, next)
	}
	switch next {
	case StatusProcessing, StatusSkipped:
		if s.status != StatusPending {
			return fmt.Errorf("screen %s: cannot go %s -> %s", s.ID, s.status, next)
		}
	case StatusSucceeded, StatusFailed:
		if s.status != StatusProcessing {
			return fmt.Errorf("screen %s: cannot go %s -> %s", s.ID, s.status, next)
		}
	default:
		return fmt.Errorf("screen %s: invalid status %q", s.ID, next)
	}
	s.status = next
	return nil
}

// Fail marks the screen FAILED and records why.
func (s *Screen) Fail(reason string) error {
	if err := s.Transition(StatusFailed); err != nil {
		return err
	}
	s.failure = reason
	return nil
}

// IDSet returns the node ids covered by the screen's subtree.
func (s *Screen) IDSet() map[string]struct{} {
	return s.Root.IDs()
}
