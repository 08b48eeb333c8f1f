package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntryKind separates status acknowledgments from substantive red-flag entries.
type EntryKind string

const (
	// KindStatusTransition records an administrative status change.
	KindStatusTransition EntryKind = "STATUS_TRANSITION"
	// KindSubstantiveUpdate is a red-flag remark or a profile correction.
	KindSubstantiveUpdate EntryKind = "SUBSTANTIVE_UPDATE"
)

// StructuredUpdate records candidate profile fields changed alongside an entry.
// Nil pointers mean the field was not touched.
type StructuredUpdate struct {
	Company           *string
	Designation       *string
	Location          *string
	Compensation      *string
	NoticePeriod      *string
	Skills            []string
	VerificationNotes *string
}

// IsEmpty reports whether no field carries a non-blank value.
func (u *StructuredUpdate) IsEmpty() bool {
	if u == nil {
		return true
	}
	for _, p := range []*string{u.Company, u.Designation, u.Location, u.Compensation, u.NoticePeriod, u.VerificationNotes} {
		if p != nil && strings.TrimSpace(*p) != "" {
			return false
		}
	}
	for _, s := range u.Skills {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of u.
func (u *StructuredUpdate) Clone() *StructuredUpdate {
	if u == nil {
		return nil
	}
	c := &StructuredUpdate{
		Company:           cloneString(u.Company),
		Designation:       cloneString(u.Designation),
		Location:          cloneString(u.Location),
		Compensation:      cloneString(u.Compensation),
		NoticePeriod:      cloneString(u.NoticePeriod),
		VerificationNotes: cloneString(u.VerificationNotes),
	}
	if u.Skills != nil {
		c.Skills = append([]string(nil), u.Skills...)
	}
	return c
}

// TimelineEntry is one unit of a candidate's red-flag history.
// Everything but Notes and Comments is fixed at creation.
type TimelineEntry struct {
	ID          uuid.UUID
	CandidateID uuid.UUID
	// Sequence is 1-based and never reused on the candidate's timeline.
	Sequence          int64
	Kind              EntryKind
	AuthorRole        ActorRole
	AuthorID          uuid.UUID
	AuthorDisplayName string
	// CompanyName is populated only for employer authors.
	CompanyName string
	Notes       string
	Update      *StructuredUpdate
	Comments    []Comment
	// Version is bumped by every mutation and used for compare-and-swap.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of e.
func (e *TimelineEntry) Clone() *TimelineEntry {
	c := *e
	c.Update = e.Update.Clone()
	if e.Comments != nil {
		c.Comments = append([]Comment(nil), e.Comments...)
	}
	return &c
}

// FindComment returns the index of the comment with the given id, or -1.
func (e *TimelineEntry) FindComment(id uuid.UUID) int {
	for i := range e.Comments {
		if e.Comments[i].ID == id {
			return i
		}
	}
	return -1
}

// Comment is a candidate-authored justification attached to an entry.
type Comment struct {
	ID        uuid.UUID
	EntryID   uuid.UUID
	Text      string
	CreatedBy uuid.UUID
	CreatedAt time.Time
}

// EntryInput carries the caller-supplied part of a new timeline entry.
type EntryInput struct {
	Kind   EntryKind
	Notes  string
	Update *StructuredUpdate
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
