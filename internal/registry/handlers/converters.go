package handlers

import (
	"fmt"
	"time"

	"github.com/gartstein/redflag/internal/registry/controller"
	"github.com/gartstein/redflag/internal/registry/models"
	"github.com/google/uuid"
)

// Wire shapes of the registry service. Field names follow the REST resources.

type Account struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	CompanyName string    `json:"company_name,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Profile struct {
	CurrentCompany string   `json:"current_company,omitempty"`
	Designation    string   `json:"designation,omitempty"`
	Location       string   `json:"location,omitempty"`
	Compensation   string   `json:"compensation,omitempty"`
	NoticePeriod   string   `json:"notice_period,omitempty"`
	Skills         []string `json:"skills,omitempty"`
}

type Candidate struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	AccountID string    `json:"account_id,omitempty"`
	InvitedBy string    `json:"invited_by,omitempty"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Profile   Profile   `json:"profile"`
	CanUpdate *bool     `json:"can_update,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type StructuredUpdate struct {
	Company           *string  `json:"company,omitempty"`
	Designation       *string  `json:"designation,omitempty"`
	Location          *string  `json:"location,omitempty"`
	Compensation      *string  `json:"compensation,omitempty"`
	NoticePeriod      *string  `json:"notice_period,omitempty"`
	Skills            []string `json:"skills,omitempty"`
	VerificationNotes *string  `json:"verification_notes,omitempty"`
}

type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type Entry struct {
	ID                string            `json:"id"`
	CandidateID       string            `json:"candidate_id"`
	SequenceNumber    int64             `json:"sequence_number"`
	Kind              string            `json:"kind"`
	AuthorRole        string            `json:"author_role"`
	AuthorID          string            `json:"author_id"`
	AuthorDisplayName string            `json:"author_display_name,omitempty"`
	CompanyName       string            `json:"company_name,omitempty"`
	Notes             string            `json:"notes"`
	StructuredUpdate  *StructuredUpdate `json:"structured_update,omitempty"`
	Comments          []Comment         `json:"comments"`
	Version           int64             `json:"version"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

type RegisterAccountRequest struct {
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	CompanyName string `json:"company_name"`
}

type AccountRequest struct {
	AccountID string `json:"account_id"`
}

type SetAccountStatusRequest struct {
	AccountID string `json:"account_id"`
	Status    string `json:"status"`
}

type InviteCandidateRequest struct {
	FullName string  `json:"full_name"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Profile  Profile `json:"profile"`
}

type CandidateRequest struct {
	CandidateID string `json:"candidate_id"`
}

type VerifyCandidateRequest struct {
	CandidateID string `json:"candidate_id"`
	AccountID   string `json:"account_id"`
}

type SetCandidateStatusRequest struct {
	CandidateID string `json:"candidate_id"`
	Status      string `json:"status"`
}

type ListTimelineResponse struct {
	Entries []Entry `json:"entries"`
}

type AppendEntryRequest struct {
	CandidateID      string            `json:"candidate_id"`
	Kind             string            `json:"kind,omitempty"`
	Notes            string            `json:"notes"`
	StructuredUpdate *StructuredUpdate `json:"structured_update,omitempty"`
}

type EditEntryNotesRequest struct {
	CandidateID string `json:"candidate_id"`
	EntryID     string `json:"entry_id"`
	Notes       string `json:"notes"`
}

type EntryRequest struct {
	CandidateID string `json:"candidate_id"`
	EntryID     string `json:"entry_id"`
}

type AddCommentRequest struct {
	CandidateID string `json:"candidate_id"`
	EntryID     string `json:"entry_id"`
	Text        string `json:"text"`
}

type DeleteCommentRequest struct {
	CandidateID string `json:"candidate_id"`
	EntryID     string `json:"entry_id"`
	CommentID   string `json:"comment_id"`
}

type Empty struct{}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", field)
	}
	return id, nil
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func accountToWire(a *models.Account) *Account {
	return &Account{
		ID:          a.ID.String(),
		Role:        string(a.Role),
		DisplayName: a.DisplayName,
		Email:       a.Email,
		CompanyName: a.CompanyName,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func profileFromWire(p Profile) models.Profile {
	return models.Profile{
		CurrentCompany: p.CurrentCompany,
		Designation:    p.Designation,
		Location:       p.Location,
		Compensation:   p.Compensation,
		NoticePeriod:   p.NoticePeriod,
		Skills:         p.Skills,
	}
}

func candidateToWire(c *models.Candidate) *Candidate {
	return &Candidate{
		ID:        c.ID.String(),
		Kind:      string(c.Kind),
		AccountID: optionalID(c.AccountID),
		InvitedBy: optionalID(c.InvitedBy),
		FullName:  c.FullName,
		Email:     c.Email,
		Phone:     c.Phone,
		Profile: Profile{
			CurrentCompany: c.Profile.CurrentCompany,
			Designation:    c.Profile.Designation,
			Location:       c.Profile.Location,
			Compensation:   c.Profile.Compensation,
			NoticePeriod:   c.Profile.NoticePeriod,
			Skills:         c.Profile.Skills,
		},
		CreatedAt: c.CreatedAt,
	}
}

func candidateViewToWire(v *controller.CandidateView) *Candidate {
	out := candidateToWire(v.Candidate)
	canUpdate := v.CanUpdate
	out.CanUpdate = &canUpdate
	return out
}

func updateFromWire(u *StructuredUpdate) *models.StructuredUpdate {
	if u == nil {
		return nil
	}
	return &models.StructuredUpdate{
		Company:           u.Company,
		Designation:       u.Designation,
		Location:          u.Location,
		Compensation:      u.Compensation,
		NoticePeriod:      u.NoticePeriod,
		Skills:            u.Skills,
		VerificationNotes: u.VerificationNotes,
	}
}

func updateToWire(u *models.StructuredUpdate) *StructuredUpdate {
	if u == nil {
		return nil
	}
	return &StructuredUpdate{
		Company:           u.Company,
		Designation:       u.Designation,
		Location:          u.Location,
		Compensation:      u.Compensation,
		NoticePeriod:      u.NoticePeriod,
		Skills:            u.Skills,
		VerificationNotes: u.VerificationNotes,
	}
}

func commentToWire(c *models.Comment) *Comment {
	return &Comment{
		ID:        c.ID.String(),
		Text:      c.Text,
		CreatedBy: c.CreatedBy.String(),
		CreatedAt: c.CreatedAt,
	}
}

func entryToWire(en *models.TimelineEntry) *Entry {
	out := &Entry{
		ID:                en.ID.String(),
		CandidateID:       en.CandidateID.String(),
		SequenceNumber:    en.Sequence,
		Kind:              string(en.Kind),
		AuthorRole:        string(en.AuthorRole),
		AuthorID:          en.AuthorID.String(),
		AuthorDisplayName: en.AuthorDisplayName,
		CompanyName:       en.CompanyName,
		Notes:             en.Notes,
		StructuredUpdate:  updateToWire(en.Update),
		Comments:          make([]Comment, 0, len(en.Comments)),
		Version:           en.Version,
		CreatedAt:         en.CreatedAt,
		UpdatedAt:         en.UpdatedAt,
	}
	for i := range en.Comments {
		out.Comments = append(out.Comments, *commentToWire(&en.Comments[i]))
	}
	return out
}

// parseStatus accepts the status names case-insensitively.
func parseStatus(s string) (models.AccountStatus, error) {
	status, ok := models.ParseAccountStatus(s)
	if !ok {
		return "", fmt.Errorf("invalid status %q", s)
	}
	return status, nil
}
