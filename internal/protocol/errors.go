package protocol

import (
	"errors"
	"fmt"
)

// Wire error codes.
const (
	ErrCodeBadRequest   = "E_BAD_REQUEST"
	ErrCodeNotFound     = "E_NOT_FOUND"
	ErrCodeDuplicate    = "E_DUPLICATE"
	ErrCodeInvariant    = "E_INVARIANT"
	ErrCodeCollaborator = "E_COLLABORATOR"
	ErrCodeBusy         = "E_BUSY"
	ErrCodeInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrCodeBadRequest:   {},
	ErrCodeNotFound:     {},
	ErrCodeDuplicate:    {},
	ErrCodeInvariant:    {},
	ErrCodeCollaborator: {},
	ErrCodeBusy:         {},
	ErrCodeInternal:     {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// NotFoundError reports an unknown or already-terminated entity.
// Non-fatal to the scheduler: the caller logs and skips.
type NotFoundError struct {
	Kind string // "project", "task", "agent"
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }

// DuplicateError reports a create against an id that already exists.
type DuplicateError struct {
	ID string
}

func (e *DuplicateError) Error() string { return fmt.Sprintf("project %s already exists", e.ID) }

// InvariantViolation is fatal to a single project: the project is quarantined
// (read-only) and ticking it keeps returning this error until an operator
// re-validates it. It is never repaired automatically.
type InvariantViolation struct {
	ProjectID string
	Reason    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("project %s: invariant violation: %s", e.ProjectID, e.Reason)
}

// CollaboratorError wraps a transient failure of an external collaborator
// (narrative generator). Swallowed and logged; ticks proceed without it.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string { return fmt.Sprintf("collaborator %s: %v", e.Op, e.Err) }
func (e *CollaboratorError) Unwrap() error { return e.Err }

// CodeFor maps an engine error to its wire code.
func CodeFor(err error) string {
	if err == nil {
		return ""
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return ErrCodeNotFound
	}
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return ErrCodeDuplicate
	}
	var inv *InvariantViolation
	if errors.As(err, &inv) {
		return ErrCodeInvariant
	}
	var collab *CollaboratorError
	if errors.As(err, &collab) {
		return ErrCodeCollaborator
	}
	return ErrCodeInternal
}
