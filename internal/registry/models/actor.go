// Package models defines the core domain models of the red-flag registry:
// actors and their accounts, candidates, timeline entries and comments.
package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ActorRole is the closed set of roles that may act on the registry.
type ActorRole string

const (
	// RoleAdmin arbitrates account approval and may write any timeline.
	RoleAdmin ActorRole = "ADMIN"
	// RoleEmployer reports red flags on candidates it has a relationship with.
	RoleEmployer ActorRole = "EMPLOYER"
	// RoleCandidate is a candidate-user commenting on their own timeline.
	RoleCandidate ActorRole = "CANDIDATE"
)

// ParseActorRole converts an upstream role string into an ActorRole.
// Matching is case-insensitive; anything outside the closed set is rejected.
func ParseActorRole(s string) (ActorRole, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(RoleAdmin):
		return RoleAdmin, nil
	case string(RoleEmployer):
		return RoleEmployer, nil
	case string(RoleCandidate), "CANDIDATE_USER", "USER":
		return RoleCandidate, nil
	default:
		return "", fmt.Errorf("unknown actor role %q", s)
	}
}

// Valid reports whether r is one of the defined roles.
func (r ActorRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployer, RoleCandidate:
		return true
	}
	return false
}

// Actor identifies who is performing an operation.
type Actor struct {
	// Role is the actor's role.
	Role ActorRole
	// ID is the account id for employers and candidates, and the admin user id for admins.
	ID uuid.UUID
	// DisplayName is the name carried by the caller's credentials.
	DisplayName string
}

// AdminActor returns an admin actor.
func AdminActor(id uuid.UUID, name string) Actor {
	return Actor{Role: RoleAdmin, ID: id, DisplayName: name}
}

// EmployerActor returns an employer actor.
func EmployerActor(id uuid.UUID) Actor {
	return Actor{Role: RoleEmployer, ID: id}
}

// CandidateActor returns a candidate-user actor.
func CandidateActor(id uuid.UUID) Actor {
	return Actor{Role: RoleCandidate, ID: id}
}

// IsAdmin reports whether the actor is an administrator.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

func (a Actor) String() string {
	return fmt.Sprintf("%s(%s)", a.Role, a.ID)
}
