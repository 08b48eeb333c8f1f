package controller

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	e "github.com/gartstein/redflag/internal/registry/errors"
	"github.com/gartstein/redflag/internal/registry/events"
	"github.com/gartstein/redflag/internal/registry/lifecycle"
	"github.com/gartstein/redflag/internal/registry/models"
	"github.com/gartstein/redflag/internal/registry/permission"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountInput describes a self-registration.
type AccountInput struct {
	Role        models.ActorRole
	DisplayName string
	Email       string
	CompanyName string
}

// RegisterAccount creates a PENDING employer or candidate-user account.
func (s *RegistryService) RegisterAccount(ctx context.Context, input AccountInput) (account *models.Account, err error) {
	defer func(start time.Time) { err = s.finish("register_account", start, err) }(time.Now())

	if input.Role != models.RoleEmployer && input.Role != models.RoleCandidate {
		return nil, fmt.Errorf("%w: accounts are employers or candidates, not %q", e.ErrInvalidInput, input.Role)
	}
	name := strings.TrimSpace(input.DisplayName)
	if name == "" || len(name) > 200 {
		return nil, fmt.Errorf("%w: invalid display name", e.ErrInvalidInput)
	}
	addr, perr := mail.ParseAddress(strings.TrimSpace(input.Email))
	if perr != nil {
		return nil, fmt.Errorf("%w: invalid email", e.ErrInvalidInput)
	}
	company := strings.TrimSpace(input.CompanyName)
	if input.Role == models.RoleEmployer && company == "" {
		return nil, fmt.Errorf("%w: employers need a company name", e.ErrInvalidInput)
	}
	if input.Role == models.RoleCandidate {
		company = ""
	}

	now := s.now()
	account = &models.Account{
		ID:          uuid.New(),
		Role:        input.Role,
		DisplayName: name,
		Email:       strings.ToLower(addr.Address),
		CompanyName: company,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.emit(models.Actor{Role: account.Role, ID: account.ID}, events.Event{Type: events.AccountRegistered, Account: account})
	return account, nil
}

// GetAccount returns an account to an admin or to its owner.
func (s *RegistryService) GetAccount(ctx context.Context, actor models.Actor, id uuid.UUID) (account *models.Account, err error) {
	defer func(start time.Time) { err = s.finish("get_account", start, err) }(time.Now())

	if !actor.IsAdmin() && actor.ID != id {
		return nil, fmt.Errorf("%w: %s may not read account %s", e.ErrNotAuthorized, actor, id)
	}
	return s.repo.GetAccount(ctx, id)
}

func (s *RegistryService) Approve(ctx context.Context, actor models.Actor, accountID uuid.UUID) (*models.Account, error) {
	return s.transition(ctx, "approve", actor, accountID, func(models.AccountStatus) (lifecycle.Action, error) {
		return lifecycle.Approve, nil
	})
}

func (s *RegistryService) Reject(ctx context.Context, actor models.Actor, accountID uuid.UUID) (*models.Account, error) {
	return s.transition(ctx, "reject", actor, accountID, func(models.AccountStatus) (lifecycle.Action, error) {
		return lifecycle.Reject, nil
	})
}

func (s *RegistryService) Suspend(ctx context.Context, actor models.Actor, accountID uuid.UUID) (*models.Account, error) {
	return s.transition(ctx, "suspend", actor, accountID, func(models.AccountStatus) (lifecycle.Action, error) {
		return lifecycle.Suspend, nil
	})
}

func (s *RegistryService) Unsuspend(ctx context.Context, actor models.Actor, accountID uuid.UUID) (*models.Account, error) {
	return s.transition(ctx, "unsuspend", actor, accountID, func(models.AccountStatus) (lifecycle.Action, error) {
		return lifecycle.Unsuspend, nil
	})
}

// SetAccountStatus moves the account to target, choosing approve or
// unsuspend for APPROVED depending on where the account is now.
func (s *RegistryService) SetAccountStatus(ctx context.Context, actor models.Actor, accountID uuid.UUID, target models.AccountStatus) (*models.Account, error) {
	return s.transition(ctx, "set_account_status", actor, accountID, func(current models.AccountStatus) (lifecycle.Action, error) {
		if lifecycle.Terminal(current) {
			return "", fmt.Errorf("%w: account is %s", e.ErrInvalidTransition, current)
		}
		return lifecycle.ActionFor(current, target)
	})
}

// SetCandidateStatus applies SetAccountStatus to the account linked to a
// verified candidate.
func (s *RegistryService) SetCandidateStatus(ctx context.Context, actor models.Actor, candidateID uuid.UUID, target models.AccountStatus) (*models.Account, error) {
	accountID, err := s.candidateAccount(ctx, actor, candidateID)
	if err != nil {
		return nil, s.finish("set_candidate_status", time.Now(), err)
	}
	return s.SetAccountStatus(ctx, actor, accountID, target)
}

func (s *RegistryService) candidateAccount(ctx context.Context, actor models.Actor, candidateID uuid.UUID) (uuid.UUID, error) {
	if err := permission.CanChangeStatus(actor).Err(); err != nil {
		return uuid.Nil, err
	}
	candidate, err := s.repo.GetCandidate(ctx, candidateID)
	if err != nil {
		return uuid.Nil, err
	}
	if candidate.AccountID == nil {
		return uuid.Nil, fmt.Errorf("%w: candidate %s has no account", e.ErrInvalidInput, candidateID)
	}
	return *candidate.AccountID, nil
}

func (s *RegistryService) transition(
	ctx context.Context,
	operation string,
	actor models.Actor,
	accountID uuid.UUID,
	resolve func(models.AccountStatus) (lifecycle.Action, error),
) (account *models.Account, err error) {
	defer func(start time.Time) { err = s.finish(operation, start, err) }(time.Now())

	if err := permission.CanChangeStatus(actor).Err(); err != nil {
		return nil, err
	}
	current, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	action, err := resolve(current.Status)
	if err != nil {
		return nil, err
	}
	next, err := lifecycle.Next(current.Status, action)
	if err != nil {
		return nil, err
	}
	account, err = s.repo.UpdateAccountStatus(ctx, accountID, current.Status, next)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account status changed",
		zap.String("account_id", accountID.String()),
		zap.String("action", string(action)),
		zap.String("from", string(current.Status)),
		zap.String("to", string(next)),
	)
	s.emit(actor, events.Event{
		Type:           events.AccountStatusChanged,
		Account:        account,
		PreviousStatus: current.Status,
	})
	return account, nil
}
