package models

import "errors"

var (
	// ErrDataUnavailable signals a collaborator could not supply data.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrConfiguration signals invalid static configuration.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrCycleDetected signals a circular dependency in a remediation workflow.
	ErrCycleDetected = errors.New("circular dependency detected")
	// ErrAlreadyActive is returned by Start on a running controller.
	ErrAlreadyActive = errors.New("orchestration already active")
	// ErrNotActive is returned by Stop on an idle controller.
	ErrNotActive = errors.New("orchestration not active")
	// ErrCycleInProgress is returned when a cycle is requested while one is running.
	ErrCycleInProgress = errors.New("analysis cycle already in progress")
	// ErrAlertNotFound is returned when acknowledging an unknown alert.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrIllegalTransition is returned for a disallowed action status change.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrNoOptions is returned when a decision has nothing to choose from.
	ErrNoOptions = errors.New("no decision options supplied")
)
