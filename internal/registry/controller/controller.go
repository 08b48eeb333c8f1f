// Package controller implements the registry service layer: it loads the
// actor's account and the candidate, asks the permission evaluator, drives
// the repository and emits domain events.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	e "github.com/gartstein/redflag/internal/registry/errors"
	"github.com/gartstein/redflag/internal/registry/events"
	"github.com/gartstein/redflag/internal/registry/metrics"
	"github.com/gartstein/redflag/internal/registry/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(ev events.Event)
}

// Repository defines the storage interface of the registry. Guards run while
// the entry is locked (or inside the transaction) and abort the write by
// returning an error.
type Repository interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	UpdateAccountStatus(ctx context.Context, id uuid.UUID, from, to models.AccountStatus) (*models.Account, error)

	CreateCandidate(ctx context.Context, candidate *models.Candidate) error
	GetCandidate(ctx context.Context, id uuid.UUID) (*models.Candidate, error)
	VerifyCandidate(ctx context.Context, id, accountID uuid.UUID) (*models.Candidate, error)

	AppendEntry(ctx context.Context, entry *models.TimelineEntry) (*models.TimelineEntry, error)
	GetEntry(ctx context.Context, candidateID, entryID uuid.UUID) (*models.TimelineEntry, error)
	UpdateEntryNotes(ctx context.Context, candidateID, entryID uuid.UUID, notes string, guard func(*models.TimelineEntry) error) (*models.TimelineEntry, error)
	DeleteEntry(ctx context.Context, candidateID, entryID uuid.UUID, guard func(*models.TimelineEntry) error) (*models.TimelineEntry, error)
	ListEntries(ctx context.Context, candidateID uuid.UUID) ([]models.TimelineEntry, error)

	AddComment(ctx context.Context, candidateID, entryID uuid.UUID, comment *models.Comment, guard func(*models.TimelineEntry) error) (*models.Comment, error)
	DeleteComment(ctx context.Context, candidateID, entryID, commentID uuid.UUID, guard func(*models.TimelineEntry, *models.Comment) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RegistryService provides the registry operations on top of a Repository.
type RegistryService struct {
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
	now      func() time.Time
}

func NewRegistryService(repo Repository, producer EventProducer, logger *zap.Logger) *RegistryService {
	return &RegistryService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("registry_service"),
		now:      time.Now,
	}
}

// Ping reports whether the repository is reachable.
func (s *RegistryService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// accountOf loads the actor's own account. Admins have none, and an unknown
// account yields nil so the evaluator denies the actor.
func (s *RegistryService) accountOf(ctx context.Context, actor models.Actor) (*models.Account, error) {
	if actor.IsAdmin() {
		return nil, nil
	}
	account, err := s.repo.GetAccount(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, e.ErrAccountNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load account of %s: %w", actor, err)
	}
	return account, nil
}

// emit hands ev to the producer on the calling goroutine so events of one
// candidate are queued in write order. Producers must not block.
func (s *RegistryService) emit(actor models.Actor, ev events.Event) {
	ev.ActorRole = actor.Role
	ev.ActorID = actor.ID
	ev.OccurredAt = s.now()
	s.producer.Produce(ev)
}

// finish records metrics for an operation and wraps errors outside the
// taxonomy with the operation name.
func (s *RegistryService) finish(operation string, start time.Time, err error) error {
	metrics.ObserveDuration(operation, start)
	if err == nil {
		metrics.RecordOperation(operation, "OK")
		return nil
	}
	kind := e.KindOf(err)
	metrics.RecordOperation(operation, kind)
	if kind == e.KindInternal {
		s.logger.Error("Operation failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
		return fmt.Errorf("failed to %s: %w", operation, err)
	}
	return err
}
