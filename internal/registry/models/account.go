package models

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus is the lifecycle state of an employer or candidate-user account.
type AccountStatus string

const (
	StatusPending   AccountStatus = "PENDING"
	StatusApproved  AccountStatus = "APPROVED"
	StatusRejected  AccountStatus = "REJECTED"
	StatusSuspended AccountStatus = "SUSPENDED"
)

// ParseAccountStatus converts a status string, case-insensitively.
func ParseAccountStatus(s string) (AccountStatus, bool) {
	switch AccountStatus(upper(s)) {
	case StatusPending:
		return StatusPending, true
	case StatusApproved:
		return StatusApproved, true
	case StatusRejected:
		return StatusRejected, true
	case StatusSuspended:
		return StatusSuspended, true
	}
	return "", false
}

// Account is a registered employer or candidate-user.
type Account struct {
	// ID is the unique identifier of the account.
	ID uuid.UUID
	// Role is RoleEmployer or RoleCandidate.
	Role ActorRole
	// DisplayName is the person's name as shown on timeline entries.
	DisplayName string
	// Email is the unique contact address.
	Email string
	// CompanyName is set for employers.
	CompanyName string
	// Status is the lifecycle state.
	Status AccountStatus
	// CreatedAt records when the account was registered.
	CreatedAt time.Time
	// UpdatedAt records the last status change.
	UpdatedAt time.Time
}

// Approved reports whether the account may currently act.
func (a *Account) Approved() bool {
	return a != nil && a.Status == StatusApproved
}
