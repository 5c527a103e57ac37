package service

import "errors"

// Request-creation failures. The caller can recover by adjusting the selector.
var (
	ErrEmptyScope         = errors.New("no unapproved log entries match the selection")
	ErrSupervisorNotFound = errors.New("no active placement with a supervisor email")
)

// Decision-consumption failures. Each maps to its own user-facing page.
var (
	ErrTokenNotFound        = errors.New("approval token not found")
	ErrTokenExpired         = errors.New("approval token has expired, please request a new approval")
	ErrTokenAlreadyConsumed = errors.New("this approval request has already been decided")
	ErrCommentRequired      = errors.New("a rejection requires a comment with actionable feedback")
)

// Workflow-tracker failures, surfaced to authenticated callers as validation errors.
var (
	ErrUnknownStep        = errors.New("unknown workflow step for this process type")
	ErrDependenciesUnmet  = errors.New("dependency steps are not completed yet")
	ErrAlreadyInitialized = errors.New("workflow already initialized for this student and process type")
)
