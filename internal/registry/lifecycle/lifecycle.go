// Package lifecycle implements the account status state machine:
// pending accounts are approved or rejected, approved accounts may be
// suspended and suspended accounts unsuspended.
package lifecycle

import (
	"fmt"

	e "github.com/gartstein/redflag/internal/registry/errors"
	"github.com/gartstein/redflag/internal/registry/models"
)

// Action is a requested status change.
type Action string

const (
	Approve   Action = "approve"
	Reject    Action = "reject"
	Suspend   Action = "suspend"
	Unsuspend Action = "unsuspend"
)

type edge struct {
	from models.AccountStatus
	to   models.AccountStatus
}

var transitions = map[Action]edge{
	Approve:   {from: models.StatusPending, to: models.StatusApproved},
	Reject:    {from: models.StatusPending, to: models.StatusRejected},
	Suspend:   {from: models.StatusApproved, to: models.StatusSuspended},
	Unsuspend: {from: models.StatusSuspended, to: models.StatusApproved},
}

// Next returns the status reached by applying action to current.
func Next(current models.AccountStatus, action Action) (models.AccountStatus, error) {
	t, ok := transitions[action]
	if !ok {
		return current, fmt.Errorf("%w: unknown action %q", e.ErrInvalidTransition, action)
	}
	if t.from != current {
		return current, fmt.Errorf("%w: cannot %s an account that is %s", e.ErrInvalidTransition, action, current)
	}
	return t.to, nil
}

// ActionFor resolves the action that moves current to target. APPROVED means
// approve from PENDING and unsuspend from SUSPENDED.
func ActionFor(current, target models.AccountStatus) (Action, error) {
	for action, t := range transitions {
		if t.from == current && t.to == target {
			return action, nil
		}
	}
	return "", fmt.Errorf("%w: %s -> %s", e.ErrInvalidTransition, current, target)
}

// Terminal reports whether no action can leave status.
func Terminal(status models.AccountStatus) bool {
	for _, t := range transitions {
		if t.from == status {
			return false
		}
	}
	return true
}
