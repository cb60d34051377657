package engine

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-quality/internal/models"
)

func (c *Controller) beginAction(actionType, component, description string, priority models.Severity) string {
	now := c.now()
	action := &models.Action{
		ID:          uuid.NewString(),
		Type:        actionType,
		Component:   component,
		Description: description,
		Priority:    priority,
		Status:      models.ActionPending,
		CreatedAt:   now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions[action.ID] = action
	c.actionIDs = append(c.actionIDs, action.ID)
	if err := action.Transition(models.ActionRunning, now); err != nil {
		c.logger.Error("action transition rejected", slog.Any("error", err))
	}
	c.trimActionsLocked()
	return action.ID
}

// endAction completes or fails an action. Actions already cancelled by Stop
// keep their terminal state.
func (c *Controller) endAction(id string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	action, ok := c.actions[id]
	if !ok {
		return
	}
	if action.Status.Terminal() {
		c.logger.Debug("action already finished", slog.String("action_id", id), slog.String("status", string(action.Status)))
		return
	}
	to := models.ActionCompleted
	if err != nil {
		to = models.ActionFailed
		action.Error = err.Error()
	}
	if terr := action.Transition(to, c.now()); terr != nil {
		c.logger.Error("action transition rejected", slog.Any("error", terr))
	}
}

func (c *Controller) cancelOpenActionsLocked(now time.Time) int {
	cancelled := 0
	for _, id := range c.actionIDs {
		action := c.actions[id]
		if action.Status.Terminal() {
			continue
		}
		if err := action.Transition(models.ActionCancelled, now); err == nil {
			cancelled++
		}
	}
	return cancelled
}

// trimActionsLocked drops the oldest finished actions beyond MaxActions.
func (c *Controller) trimActionsLocked() {
	excess := len(c.actionIDs) - c.opts.MaxActions
	if excess <= 0 {
		return
	}
	kept := c.actionIDs[:0]
	for _, id := range c.actionIDs {
		if excess > 0 && c.actions[id].Status.Terminal() {
			delete(c.actions, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	c.actionIDs = kept
}

// Actions returns every tracked action, oldest first.
func (c *Controller) Actions() []models.Action {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Action, 0, len(c.actionIDs))
	for _, id := range c.actionIDs {
		out = append(out, *c.actions[id])
	}
	return out
}
