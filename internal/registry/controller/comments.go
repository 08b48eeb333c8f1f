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
	"github.com/google/uuid"
)

const maxCommentLength = 2000

// AddComment attaches a justification by the candidate who owns the timeline.
func (s *RegistryService) AddComment(ctx context.Context, actor models.Actor, candidateID, entryID uuid.UUID, text string) (comment *models.Comment, err error) {
	defer func(start time.Time) { err = s.finish("add_comment", start, err) }(time.Now())

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment is blank", e.ErrEmptyText)
	}
	if len(text) > maxCommentLength {
		return nil, fmt.Errorf("%w: comment longer than %d bytes", e.ErrInvalidInput, maxCommentLength)
	}

	candidate, err := s.repo.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	account, err := s.accountOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := permission.CanComment(actor, account, candidate).Err(); err != nil {
		return nil, err
	}

	var entry *models.TimelineEntry
	comment, err = s.repo.AddComment(ctx, candidateID, entryID, &models.Comment{
		ID:        uuid.New(),
		Text:      text,
		CreatedBy: actor.ID,
		CreatedAt: s.now(),
	}, func(current *models.TimelineEntry) error {
		entry = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(actor, events.Event{Type: events.CommentAdded, Comment: comment, Entry: entry, Candidate: candidate})
	return comment, nil
}

// DeleteComment removes a comment. Only the comment's author may, admins included.
func (s *RegistryService) DeleteComment(ctx context.Context, actor models.Actor, candidateID, entryID, commentID uuid.UUID) (err error) {
	defer func(start time.Time) { err = s.finish("delete_comment", start, err) }(time.Now())

	var removed models.Comment
	var entry *models.TimelineEntry
	err = s.repo.DeleteComment(ctx, candidateID, entryID, commentID, func(current *models.TimelineEntry, c *models.Comment) error {
		if err := permission.CanDeleteComment(actor, c).Err(); err != nil {
			return err
		}
		removed = *c
		entry = current
		return nil
	})
	if err != nil {
		return err
	}
	s.emit(actor, events.Event{Type: events.CommentDeleted, Comment: &removed, Entry: entry})
	return nil
}
