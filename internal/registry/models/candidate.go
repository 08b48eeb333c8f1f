package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CandidateKind tells which origin a candidate record comes from.
type CandidateKind string

const (
	// KindInvitedDraft is a record created unilaterally by one employer.
	KindInvitedDraft CandidateKind = "INVITED_DRAFT"
	// KindVerified is a record linked to an admin-approved candidate-user account.
	KindVerified CandidateKind = "VERIFIED"
)

// Profile holds candidate profile fields. The registry stores them but never
// interprets them.
type Profile struct {
	CurrentCompany string
	Designation    string
	Location       string
	Compensation   string
	NoticePeriod   string
	Skills         []string
}

// Candidate is a person whose red-flag timeline is kept by the registry.
type Candidate struct {
	// ID is the stable identifier of the candidate.
	ID uuid.UUID
	// Kind distinguishes invited drafts from verified accounts.
	Kind CandidateKind
	// AccountID links the candidate-user account once verified.
	AccountID *uuid.UUID
	// InvitedBy is the employer that invited the candidate, if any.
	InvitedBy *uuid.UUID
	FullName  string
	Email     string
	Phone     string
	Profile   Profile
	// LastSequence is the highest sequence number ever assigned on the timeline.
	LastSequence int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsDraft reports whether the candidate is still an invited draft.
func (c *Candidate) IsDraft() bool {
	return c.Kind == KindInvitedDraft
}

// InvitedByEmployer reports whether employerID is the recorded inviter.
func (c *Candidate) InvitedByEmployer(employerID uuid.UUID) bool {
	return c.InvitedBy != nil && *c.InvitedBy == employerID
}

// OwnedBy reports whether accountID is the candidate-user owning the timeline.
func (c *Candidate) OwnedBy(accountID uuid.UUID) bool {
	return c.Kind == KindVerified && c.AccountID != nil && *c.AccountID == accountID
}

// Clone returns a deep copy of c.
func (c *Candidate) Clone() *Candidate {
	cp := *c
	if c.AccountID != nil {
		id := *c.AccountID
		cp.AccountID = &id
	}
	if c.InvitedBy != nil {
		id := *c.InvitedBy
		cp.InvitedBy = &id
	}
	if c.Profile.Skills != nil {
		cp.Profile.Skills = append([]string(nil), c.Profile.Skills...)
	}
	return &cp
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
