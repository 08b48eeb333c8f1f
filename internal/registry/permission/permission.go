// Package permission decides whether an actor may read or write a candidate's
// timeline. Every function is pure: it looks only at its arguments.
//
// Rules for timeline writes, in order:
//  1. an invited draft may be written only by the employer that invited it;
//  2. a verified candidate may be written only by the employer recorded as its inviter;
//  3. admins are always allowed;
//  4. an employer whose account is not approved is never allowed.
package permission

import (
	"fmt"

	e "github.com/gartstein/redflag/internal/registry/errors"
	"github.com/gartstein/redflag/internal/registry/models"
)

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Err returns nil for an allowed decision and an ErrNotAuthorized otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", e.ErrNotAuthorized, d.Reason)
}

var allow = Decision{Allowed: true}

func deny(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// activeAccount applies rule 4 to employers and the same gate to candidate-users.
// account must belong to actor; a nil account is treated as unknown.
func activeAccount(actor models.Actor, account *models.Account) Decision {
	if account == nil || account.ID != actor.ID || account.Role != actor.Role {
		return deny("%s has no registered account", actor)
	}
	if account.Status != models.StatusApproved {
		return deny("%s account is %s", actor, account.Status)
	}
	return allow
}

// CanWriteTimeline decides whether actor may append to candidate's timeline.
func CanWriteTimeline(actor models.Actor, account *models.Account, candidate *models.Candidate) Decision {
	switch actor.Role {
	case models.RoleAdmin:
		return allow
	case models.RoleEmployer:
		if d := activeAccount(actor, account); !d.Allowed {
			return d
		}
		if candidate.InvitedByEmployer(actor.ID) {
			return allow
		}
		if candidate.IsDraft() {
			return deny("draft %s belongs to another employer", candidate.ID)
		}
		return deny("%s never invited candidate %s", actor, candidate.ID)
	default:
		return deny("%s may not write timelines", actor)
	}
}

// CanModifyEntry decides whether actor may edit the notes of, or delete, entry.
// Only the original author may, and employer authors must still be approved.
func CanModifyEntry(actor models.Actor, account *models.Account, entry *models.TimelineEntry) Decision {
	if entry.AuthorID != actor.ID || entry.AuthorRole != actor.Role {
		return deny("%s is not the author of entry %d", actor, entry.Sequence)
	}
	if actor.Role == models.RoleEmployer {
		return activeAccount(actor, account)
	}
	return allow
}

// CanReadTimeline decides whether actor may list candidate's timeline.
// Drafts are private to their inviter; verified timelines are shared with every
// approved employer and with the owning candidate.
func CanReadTimeline(actor models.Actor, account *models.Account, candidate *models.Candidate) Decision {
	switch actor.Role {
	case models.RoleAdmin:
		return allow
	case models.RoleEmployer:
		if d := activeAccount(actor, account); !d.Allowed {
			return d
		}
		if candidate.IsDraft() && !candidate.InvitedByEmployer(actor.ID) {
			return deny("draft %s belongs to another employer", candidate.ID)
		}
		return allow
	case models.RoleCandidate:
		if !candidate.OwnedBy(actor.ID) {
			return deny("%s does not own candidate %s", actor, candidate.ID)
		}
		return allow
	default:
		return deny("unknown role %q", actor.Role)
	}
}

// CanComment decides whether actor may comment on an entry of candidate's timeline.
func CanComment(actor models.Actor, account *models.Account, candidate *models.Candidate) Decision {
	if actor.Role != models.RoleCandidate {
		return deny("only the candidate may comment, not %s", actor)
	}
	if !candidate.OwnedBy(actor.ID) {
		return deny("%s does not own candidate %s", actor, candidate.ID)
	}
	return activeAccount(actor, account)
}

// CanDeleteComment allows only the comment's author. Admins are not exempt.
func CanDeleteComment(actor models.Actor, comment *models.Comment) Decision {
	if actor.Role != models.RoleCandidate || comment.CreatedBy != actor.ID {
		return deny("%s did not write comment %s", actor, comment.ID)
	}
	return allow
}

// CanChangeStatus allows only admins to drive account transitions.
func CanChangeStatus(actor models.Actor) Decision {
	if !actor.IsAdmin() {
		return deny("%s may not change account status", actor)
	}
	return allow
}

// CanInvite decides whether actor may create an invited draft.
func CanInvite(actor models.Actor, account *models.Account) Decision {
	if actor.Role != models.RoleEmployer {
		return deny("only employers invite candidates, not %s", actor)
	}
	return activeAccount(actor, account)
}

// CanVerify allows only admins to promote drafts to verified candidates.
func CanVerify(actor models.Actor) Decision {
	if !actor.IsAdmin() {
		return deny("%s may not verify candidates", actor)
	}
	return allow
}
