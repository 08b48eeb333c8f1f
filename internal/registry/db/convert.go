package db

import (
	dbmodels "github.com/gartstein/redflag/internal/registry/db/models"
	"github.com/gartstein/redflag/internal/registry/models"
)

func toAccountRow(a *models.Account) *dbmodels.Account {
	return &dbmodels.Account{
		ID:          a.ID,
		Role:        string(a.Role),
		DisplayName: a.DisplayName,
		Email:       a.Email,
		CompanyName: a.CompanyName,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func toAccount(r *dbmodels.Account) *models.Account {
	return &models.Account{
		ID:          r.ID,
		Role:        models.ActorRole(r.Role),
		DisplayName: r.DisplayName,
		Email:       r.Email,
		CompanyName: r.CompanyName,
		Status:      models.AccountStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toCandidateRow(c *models.Candidate) *dbmodels.Candidate {
	return &dbmodels.Candidate{
		ID:        c.ID,
		Kind:      string(c.Kind),
		AccountID: c.AccountID,
		InvitedBy: c.InvitedBy,
		FullName:  c.FullName,
		Email:     c.Email,
		Phone:     c.Phone,
		Profile: dbmodels.Profile{
			CurrentCompany: c.Profile.CurrentCompany,
			Designation:    c.Profile.Designation,
			Location:       c.Profile.Location,
			Compensation:   c.Profile.Compensation,
			NoticePeriod:   c.Profile.NoticePeriod,
			Skills:         c.Profile.Skills,
		},
		LastSequence: c.LastSequence,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toCandidate(r *dbmodels.Candidate) *models.Candidate {
	return &models.Candidate{
		ID:        r.ID,
		Kind:      models.CandidateKind(r.Kind),
		AccountID: r.AccountID,
		InvitedBy: r.InvitedBy,
		FullName:  r.FullName,
		Email:     r.Email,
		Phone:     r.Phone,
		Profile: models.Profile{
			CurrentCompany: r.Profile.CurrentCompany,
			Designation:    r.Profile.Designation,
			Location:       r.Profile.Location,
			Compensation:   r.Profile.Compensation,
			NoticePeriod:   r.Profile.NoticePeriod,
			Skills:         r.Profile.Skills,
		},
		LastSequence: r.LastSequence,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toUpdateRow(u *models.StructuredUpdate) *dbmodels.StructuredUpdate {
	if u == nil {
		return nil
	}
	return &dbmodels.StructuredUpdate{
		Company:           u.Company,
		Designation:       u.Designation,
		Location:          u.Location,
		Compensation:      u.Compensation,
		NoticePeriod:      u.NoticePeriod,
		Skills:            u.Skills,
		VerificationNotes: u.VerificationNotes,
	}
}

func toUpdate(r *dbmodels.StructuredUpdate) *models.StructuredUpdate {
	if r == nil {
		return nil
	}
	return &models.StructuredUpdate{
		Company:           r.Company,
		Designation:       r.Designation,
		Location:          r.Location,
		Compensation:      r.Compensation,
		NoticePeriod:      r.NoticePeriod,
		Skills:            r.Skills,
		VerificationNotes: r.VerificationNotes,
	}
}

func toEntryRow(en *models.TimelineEntry) *dbmodels.TimelineEntry {
	row := &dbmodels.TimelineEntry{
		ID:                en.ID,
		CandidateID:       en.CandidateID,
		Sequence:          en.Sequence,
		Kind:              string(en.Kind),
		AuthorRole:        string(en.AuthorRole),
		AuthorID:          en.AuthorID,
		AuthorDisplayName: en.AuthorDisplayName,
		CompanyName:       en.CompanyName,
		Notes:             en.Notes,
		StructuredUpdate:  toUpdateRow(en.Update),
		Version:           en.Version,
		CreatedAt:         en.CreatedAt,
		UpdatedAt:         en.UpdatedAt,
	}
	for i := range en.Comments {
		row.Comments = append(row.Comments, *toCommentRow(&en.Comments[i]))
	}
	return row
}

func toEntry(r *dbmodels.TimelineEntry) *models.TimelineEntry {
	en := &models.TimelineEntry{
		ID:                r.ID,
		CandidateID:       r.CandidateID,
		Sequence:          r.Sequence,
		Kind:              models.EntryKind(r.Kind),
		AuthorRole:        models.ActorRole(r.AuthorRole),
		AuthorID:          r.AuthorID,
		AuthorDisplayName: r.AuthorDisplayName,
		CompanyName:       r.CompanyName,
		Notes:             r.Notes,
		Update:            toUpdate(r.StructuredUpdate),
		Version:           r.Version,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	for i := range r.Comments {
		en.Comments = append(en.Comments, *toComment(&r.Comments[i]))
	}
	return en
}

func toCommentRow(c *models.Comment) *dbmodels.Comment {
	return &dbmodels.Comment{
		ID:        c.ID,
		EntryID:   c.EntryID,
		Text:      c.Text,
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
	}
}

func toComment(r *dbmodels.Comment) *models.Comment {
	return &models.Comment{
		ID:        r.ID,
		EntryID:   r.EntryID,
		Text:      r.Text,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}
}
