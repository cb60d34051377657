package models

import (
	"fmt"
	"time"
)

// Alert is a notification-worthy condition raised by the controller.
// Acknowledged only ever moves from false to true.
type Alert struct {
	ID           string    `json:"id"`
	Level        Severity  `json:"level"`
	Message      string    `json:"message"`
	Component    string    `json:"component"`
	Timestamp    time.Time `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
}

// Acknowledge marks the alert as seen. It reports whether the state changed.
func (a *Alert) Acknowledge() bool {
	if a.Acknowledged {
		return false
	}
	a.Acknowledged = true
	return true
}

// ActionStatus is the lifecycle state of a tracked action.
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionRunning   ActionStatus = "running"
	ActionCompleted ActionStatus = "completed"
	ActionFailed    ActionStatus = "failed"
	ActionCancelled ActionStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s ActionStatus) Terminal() bool {
	return s == ActionCompleted || s == ActionFailed || s == ActionCancelled
}

var actionTransitions = map[ActionStatus][]ActionStatus{
	ActionPending: {ActionRunning, ActionCancelled},
	ActionRunning: {ActionCompleted, ActionFailed, ActionCancelled},
}

// CanTransition reports whether from -> to is a legal action transition.
func CanTransition(from, to ActionStatus) bool {
	for _, next := range actionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Action tracks one pipeline stage invocation.
type Action struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Component   string       `json:"component"`
	Description string       `json:"description"`
	Priority    Severity     `json:"priority"`
	Status      ActionStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   time.Time    `json:"started_at,omitempty"`
	FinishedAt  time.Time    `json:"finished_at,omitempty"`
}

// Transition moves the action to the next status, rejecting illegal moves.
func (a *Action) Transition(to ActionStatus, at time.Time) error {
	if !CanTransition(a.Status, to) {
		return fmt.Errorf("action %s: %s -> %s: %w", a.ID, a.Status, to, ErrIllegalTransition)
	}
	a.Status = to
	switch {
	case to == ActionRunning:
		a.StartedAt = at
	case to.Terminal():
		a.FinishedAt = at
	}
	return nil
}
