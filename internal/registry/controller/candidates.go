package controller

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	e "github.com/gartstein/redflag/internal/registry/errors"
	"github.com/gartstein/redflag/internal/registry/events"
	"github.com/gartstein/redflag/internal/registry/models"
	"github.com/gartstein/redflag/internal/registry/permission"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CandidateInput describes a candidate invited by an employer.
type CandidateInput struct {
	FullName string
	Email    string
	Phone    string
	Profile  models.Profile
}

// CandidateView is a candidate as seen by one viewer.
type CandidateView struct {
	Candidate *models.Candidate
	// CanUpdate tells whether the viewer may append to the timeline right now.
	CanUpdate bool
}

// InviteCandidate creates an invited draft owned by the calling employer.
func (s *RegistryService) InviteCandidate(ctx context.Context, actor models.Actor, input CandidateInput) (candidate *models.Candidate, err error) {
	defer func(start time.Time) { err = s.finish("invite_candidate", start, err) }(time.Now())

	account, err := s.accountOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := permission.CanInvite(actor, account).Err(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.FullName)
	if name == "" {
		return nil, fmt.Errorf("%w: candidate name is required", e.ErrInvalidInput)
	}
	email := strings.TrimSpace(input.Email)
	if email != "" {
		addr, perr := mail.ParseAddress(email)
		if perr != nil {
			return nil, fmt.Errorf("%w: invalid email", e.ErrInvalidInput)
		}
		email = strings.ToLower(addr.Address)
	}

	now := s.now()
	inviter := actor.ID
	candidate = &models.Candidate{
		ID:        uuid.New(),
		Kind:      models.KindInvitedDraft,
		InvitedBy: &inviter,
		FullName:  name,
		Email:     email,
		Phone:     strings.TrimSpace(input.Phone),
		Profile:   input.Profile,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateCandidate(ctx, candidate); err != nil {
		return nil, err
	}

	s.emit(actor, events.Event{Type: events.CandidateInvited, Candidate: candidate, Account: account})
	return candidate, nil
}

// VerifyCandidate promotes a draft to a verified candidate linked to an
// approved candidate-user account. The inviter is kept.
func (s *RegistryService) VerifyCandidate(ctx context.Context, actor models.Actor, candidateID, accountID uuid.UUID) (candidate *models.Candidate, err error) {
	defer func(start time.Time) { err = s.finish("verify_candidate", start, err) }(time.Now())

	if err := permission.CanVerify(actor).Err(); err != nil {
		return nil, err
	}
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Role != models.RoleCandidate {
		return nil, fmt.Errorf("%w: account %s is not a candidate account", e.ErrInvalidInput, accountID)
	}
	if !account.Approved() {
		return nil, fmt.Errorf("%w: account %s is %s", e.ErrInvalidInput, accountID, account.Status)
	}
	candidate, err = s.repo.VerifyCandidate(ctx, candidateID, accountID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Candidate verified",
		zap.String("candidate_id", candidateID.String()),
		zap.String("account_id", accountID.String()),
	)
	s.emit(actor, events.Event{Type: events.CandidateVerified, Candidate: candidate, Account: account})
	return candidate, nil
}

// GetCandidate returns the candidate with the viewer's can_update flag.
func (s *RegistryService) GetCandidate(ctx context.Context, viewer models.Actor, candidateID uuid.UUID) (view *CandidateView, err error) {
	defer func(start time.Time) { err = s.finish("get_candidate", start, err) }(time.Now())

	candidate, account, err := s.readable(ctx, viewer, candidateID)
	if err != nil {
		return nil, err
	}
	return &CandidateView{
		Candidate: candidate,
		CanUpdate: permission.CanWriteTimeline(viewer, account, candidate).Allowed,
	}, nil
}

// CanUpdate evaluates the append rules without attempting a write.
func (s *RegistryService) CanUpdate(ctx context.Context, actor models.Actor, candidateID uuid.UUID) (bool, error) {
	candidate, err := s.repo.GetCandidate(ctx, candidateID)
	if err != nil {
		return false, err
	}
	account, err := s.accountOf(ctx, actor)
	if err != nil {
		return false, err
	}
	return permission.CanWriteTimeline(actor, account, candidate).Allowed, nil
}

// readable loads the candidate and the viewer's account, failing unless the
// viewer may read the candidate.
func (s *RegistryService) readable(ctx context.Context, viewer models.Actor, candidateID uuid.UUID) (*models.Candidate, *models.Account, error) {
	candidate, err := s.repo.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, nil, err
	}
	account, err := s.accountOf(ctx, viewer)
	if err != nil {
		return nil, nil, err
	}
	if err := permission.CanReadTimeline(viewer, account, candidate).Err(); err != nil {
		return nil, nil, err
	}
	return candidate, account, nil
}
