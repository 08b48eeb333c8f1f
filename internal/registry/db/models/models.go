// Package models contains the persisted shapes of the registry,
// configured to work using GORM as the ORM.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a registered employer or candidate-user.
type Account struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role        string    `gorm:"size:16;not null"`
	DisplayName string    `gorm:"size:200"`
	Email       string    `gorm:"size:320;uniqueIndex"`
	CompanyName string    `gorm:"size:200"`
	Status      string    `gorm:"size:16;not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Profile is stored as a JSON document; the registry never queries it.
type Profile struct {
	CurrentCompany string   `json:"current_company,omitempty"`
	Designation    string   `json:"designation,omitempty"`
	Location       string   `json:"location,omitempty"`
	Compensation   string   `json:"compensation,omitempty"`
	NoticePeriod   string   `json:"notice_period,omitempty"`
	Skills         []string `json:"skills,omitempty"`
}

// Candidate holds the candidate record and the last sequence number ever
// assigned on its timeline.
type Candidate struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Kind         string     `gorm:"size:16;not null"`
	AccountID    *uuid.UUID `gorm:"type:uuid;index"`
	InvitedBy    *uuid.UUID `gorm:"type:uuid;index"`
	FullName     string     `gorm:"size:200"`
	Email        string     `gorm:"size:320;index"`
	Phone        string     `gorm:"size:40"`
	Profile      Profile    `gorm:"serializer:json"`
	LastSequence int64      `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StructuredUpdate is stored as a JSON document on the entry row.
type StructuredUpdate struct {
	Company           *string  `json:"company,omitempty"`
	Designation       *string  `json:"designation,omitempty"`
	Location          *string  `json:"location,omitempty"`
	Compensation      *string  `json:"compensation,omitempty"`
	NoticePeriod      *string  `json:"notice_period,omitempty"`
	Skills            []string `json:"skills,omitempty"`
	VerificationNotes *string  `json:"verification_notes,omitempty"`
}

// TimelineEntry is one persisted history entry. (candidate_id, sequence) is unique.
type TimelineEntry struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey"`
	CandidateID       uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_entry_candidate_sequence"`
	Sequence          int64             `gorm:"not null;uniqueIndex:idx_entry_candidate_sequence"`
	Kind              string            `gorm:"size:32;not null"`
	AuthorRole        string            `gorm:"size:16;not null"`
	AuthorID          uuid.UUID         `gorm:"type:uuid;not null;index"`
	AuthorDisplayName string            `gorm:"size:200"`
	CompanyName       string            `gorm:"size:200"`
	Notes             string            `gorm:"type:text"`
	StructuredUpdate  *StructuredUpdate `gorm:"serializer:json"`
	Comments          []Comment         `gorm:"foreignKey:EntryID"`
	Version           int64             `gorm:"not null;default:1"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Comment is a candidate justification attached to an entry.
type Comment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	EntryID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Text      string    `gorm:"type:text"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time
}

// All lists every persisted model, in migration order.
func All() []any {
	return []any{&Account{}, &Candidate{}, &TimelineEntry{}, &Comment{}}
}
