package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	e "github.com/gartstein/redflag/internal/registry/errors"
	"github.com/gartstein/redflag/internal/registry/events"
	"github.com/gartstein/redflag/internal/registry/models"
	"github.com/gartstein/redflag/internal/registry/permission"
	"github.com/gartstein/redflag/internal/registry/visibility"
	"github.com/google/uuid"
)

const maxNotesLength = 5000

func validateNotes(notes string) (string, error) {
	notes = strings.TrimSpace(notes)
	if len(notes) > maxNotesLength {
		return "", fmt.Errorf("%w: notes longer than %d bytes", e.ErrInvalidInput, maxNotesLength)
	}
	return notes, nil
}

// AppendEntry records a new timeline entry authored by actor and assigns it the
// candidate's next sequence number.
func (s *RegistryService) AppendEntry(ctx context.Context, actor models.Actor, candidateID uuid.UUID, input models.EntryInput) (entry *models.TimelineEntry, err error) {
	defer func(start time.Time) { err = s.finish("append_entry", start, err) }(time.Now())

	kind := input.Kind
	switch kind {
	case "":
		kind = models.KindSubstantiveUpdate
	case models.KindSubstantiveUpdate:
	case models.KindStatusTransition:
		if !actor.IsAdmin() {
			return nil, fmt.Errorf("%w: only admins record status transitions", e.ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("%w: unknown entry kind %q", e.ErrInvalidInput, kind)
	}
	notes, err := validateNotes(input.Notes)
	if err != nil {
		return nil, err
	}
	if notes == "" && input.Update.IsEmpty() {
		return nil, fmt.Errorf("%w: an entry needs notes or a structured update", e.ErrEmptyText)
	}

	candidate, err := s.repo.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	account, err := s.accountOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := permission.CanWriteTimeline(actor, account, candidate).Err(); err != nil {
		return nil, err
	}

	now := s.now()
	entry = &models.TimelineEntry{
		ID:                uuid.New(),
		CandidateID:       candidateID,
		Kind:              kind,
		AuthorRole:        actor.Role,
		AuthorID:          actor.ID,
		AuthorDisplayName: actor.DisplayName,
		Notes:             notes,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if !input.Update.IsEmpty() {
		entry.Update = input.Update.Clone()
	}
	if account != nil {
		if entry.AuthorDisplayName == "" {
			entry.AuthorDisplayName = account.DisplayName
		}
		if actor.Role == models.RoleEmployer {
			entry.CompanyName = account.CompanyName
		}
	}

	entry, err = s.repo.AppendEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	s.emit(actor, events.Event{Type: events.EntryAppended, Entry: entry, Candidate: candidate})
	return entry, nil
}

// EditEntryNotes replaces the notes of an entry. Only its author may, and an
// employer author must still be approved.
func (s *RegistryService) EditEntryNotes(ctx context.Context, actor models.Actor, candidateID, entryID uuid.UUID, notes string) (entry *models.TimelineEntry, err error) {
	defer func(start time.Time) { err = s.finish("edit_entry_notes", start, err) }(time.Now())

	notes, err = validateNotes(notes)
	if err != nil {
		return nil, err
	}
	if notes == "" {
		return nil, fmt.Errorf("%w: notes are blank", e.ErrEmptyText)
	}
	account, err := s.accountOf(ctx, actor)
	if err != nil {
		return nil, err
	}

	entry, err = s.repo.UpdateEntryNotes(ctx, candidateID, entryID, notes, func(current *models.TimelineEntry) error {
		return permission.CanModifyEntry(actor, account, current).Err()
	})
	if err != nil {
		return nil, err
	}
	s.emit(actor, events.Event{Type: events.EntryEdited, Entry: entry})
	return entry, nil
}

// DeleteEntry removes an entry and its comments. The sequence number stays retired.
func (s *RegistryService) DeleteEntry(ctx context.Context, actor models.Actor, candidateID, entryID uuid.UUID) (err error) {
	defer func(start time.Time) { err = s.finish("delete_entry", start, err) }(time.Now())

	account, err := s.accountOf(ctx, actor)
	if err != nil {
		return err
	}
	removed, err := s.repo.DeleteEntry(ctx, candidateID, entryID, func(current *models.TimelineEntry) error {
		return permission.CanModifyEntry(actor, account, current).Err()
	})
	if err != nil {
		return err
	}
	s.emit(actor, events.Event{Type: events.EntryDeleted, Entry: removed})
	return nil
}

// GetEntry returns one entry if the viewer may read the timeline and the
// entry is visible to them. Hidden entries are reported as not found.
func (s *RegistryService) GetEntry(ctx context.Context, viewer models.Actor, candidateID, entryID uuid.UUID) (entry *models.TimelineEntry, err error) {
	defer func(start time.Time) { err = s.finish("get_entry", start, err) }(time.Now())

	if _, _, err := s.readable(ctx, viewer, candidateID); err != nil {
		return nil, err
	}
	entry, err = s.repo.GetEntry(ctx, candidateID, entryID)
	if err != nil {
		return nil, err
	}
	if !visibility.Visible(viewer.Role, entry) {
		return nil, fmt.Errorf("%w: %s", e.ErrEntryNotFound, entryID)
	}
	return entry, nil
}

// ListTimeline returns the candidate's timeline in sequence order as the viewer
// may see it. Admins get every entry.
func (s *RegistryService) ListTimeline(ctx context.Context, viewer models.Actor, candidateID uuid.UUID) (entries []models.TimelineEntry, err error) {
	defer func(start time.Time) { err = s.finish("list_timeline", start, err) }(time.Now())

	if _, _, err := s.readable(ctx, viewer, candidateID); err != nil {
		return nil, err
	}
	entries, err = s.repo.ListEntries(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	return visibility.Filter(viewer.Role, entries), nil
}
