// Package handlers serves the registry over gRPC and HTTP, translating between
// wire messages and domain models and mapping error kinds to status codes.
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/gartstein/redflag/internal/registry/auth"
	"github.com/gartstein/redflag/internal/registry/controller"
	e "github.com/gartstein/redflag/internal/registry/errors"
	"github.com/gartstein/redflag/internal/registry/models"
	"github.com/gartstein/redflag/internal/registry/ratelimit"
	"github.com/gartstein/redflag/internal/registry/reporting"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const errorDomain = "redflag"

// RegistryController is the business logic invoked by the transport layer.
type RegistryController interface {
	RegisterAccount(ctx context.Context, input controller.AccountInput) (*models.Account, error)
	GetAccount(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Account, error)
	SetAccountStatus(ctx context.Context, actor models.Actor, accountID uuid.UUID, target models.AccountStatus) (*models.Account, error)
	InviteCandidate(ctx context.Context, actor models.Actor, input controller.CandidateInput) (*models.Candidate, error)
	GetCandidate(ctx context.Context, viewer models.Actor, candidateID uuid.UUID) (*controller.CandidateView, error)
	VerifyCandidate(ctx context.Context, actor models.Actor, candidateID, accountID uuid.UUID) (*models.Candidate, error)
	SetCandidateStatus(ctx context.Context, actor models.Actor, candidateID uuid.UUID, target models.AccountStatus) (*models.Account, error)
	ListTimeline(ctx context.Context, viewer models.Actor, candidateID uuid.UUID) ([]models.TimelineEntry, error)
	GetEntry(ctx context.Context, viewer models.Actor, candidateID, entryID uuid.UUID) (*models.TimelineEntry, error)
	AppendEntry(ctx context.Context, actor models.Actor, candidateID uuid.UUID, input models.EntryInput) (*models.TimelineEntry, error)
	EditEntryNotes(ctx context.Context, actor models.Actor, candidateID, entryID uuid.UUID, notes string) (*models.TimelineEntry, error)
	DeleteEntry(ctx context.Context, actor models.Actor, candidateID, entryID uuid.UUID) error
	AddComment(ctx context.Context, actor models.Actor, candidateID, entryID uuid.UUID, text string) (*models.Comment, error)
	DeleteComment(ctx context.Context, actor models.Actor, candidateID, entryID, commentID uuid.UUID) error
	Ping(ctx context.Context) error
}

// RegistryHandler implements RegistryServer on top of a RegistryController.
type RegistryHandler struct {
	service RegistryController
	logger  *zap.Logger
}

var _ RegistryServer = (*RegistryHandler)(nil)

// NewRegistryHandler constructs a RegistryHandler with the given service and logger.
func NewRegistryHandler(service RegistryController, logger *zap.Logger) *RegistryHandler {
	return &RegistryHandler{
		service: service,
		logger:  logger.Named("grpc_handler"),
	}
}

// RegisterAccount creates a pending account. It is callable without a token.
func (h *RegistryHandler) RegisterAccount(ctx context.Context, req *RegisterAccountRequest) (*Account, error) {
	role, err := models.ParseActorRole(req.Role)
	if err != nil {
		return nil, h.fail("RegisterAccount", badRequest(err))
	}
	account, err := h.service.RegisterAccount(ctx, controller.AccountInput{
		Role:        role,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		return nil, h.fail("RegisterAccount", err)
	}
	return accountToWire(account), nil
}

func (h *RegistryHandler) GetAccount(ctx context.Context, req *AccountRequest) (*Account, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, h.fail("GetAccount", err)
	}
	id, err := parseID("account_id", req.AccountID)
	if err != nil {
		return nil, h.fail("GetAccount", badRequest(err))
	}
	account, err := h.service.GetAccount(ctx, actor, id)
	if err != nil {
		return nil, h.fail("GetAccount", err)
	}
	return accountToWire(account), nil
}

// SetAccountStatus moves an account to the requested status.
func (h *RegistryHandler) SetAccountStatus(ctx context.Context, req *SetAccountStatusRequest) (*Account, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, h.fail("SetAccountStatus", err)
	}
	id, err := parseID("account_id", req.AccountID)
	if err != nil {
		return nil, h.fail("SetAccountStatus", badRequest(err))
	}
	target, err := parseStatus(req.Status)
	if err != nil {
		return nil, h.fail("SetAccountStatus", badRequest(err))
	}
	account, err := h.service.SetAccountStatus(ctx, actor, id, target)
	if err != nil {
		return nil, h.fail("SetAccountStatus", err)
	}
	return accountToWire(account), nil
}

func (h *RegistryHandler) InviteCandidate(ctx context.Context, req *InviteCandidateRequest) (*Candidate, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, h.fail("InviteCandidate", err)
	}
	candidate, err := h.service.InviteCandidate(ctx, actor, controller.CandidateInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Profile:  profileFromWire(req.Profile),
	})
	if err != nil {
		return nil, h.fail("InviteCandidate", err)
	}
	return candidateToWire(candidate), nil
}

// GetCandidate returns the candidate together with the caller's can_update flag.
func (h *RegistryHandler) GetCandidate(ctx context.Context, req *CandidateRequest) (*Candidate, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, h.fail("GetCandidate", err)
	}
	id, err := parseID("candidate_id", req.CandidateID)
	if err != nil {
		return nil, h.fail("GetCandidate", badRequest(err))
	}
	view, err := h.service.GetCandidate(ctx, actor, id)
	if err != nil {
		return nil, h.fail("GetCandidate", err)
	}
	return candidateViewToWire(view), nil
}

func (h *RegistryHandler) VerifyCandidate(ctx context.Context, req *VerifyCandidateRequest) (*Candidate, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, h.fail("VerifyCandidate", err)
	}
	candidateID, err := parseID("candidate_id", req.CandidateID)
	if err != nil {
		return nil, h.fail("VerifyCandidate", badRequest(err))
	}
	accountID, err := parseID("account_id", req.AccountID)
	if err != nil {
		return nil, h.fail("VerifyCandidate", badRequest(err))
	}
	candidate, err := h.service.VerifyCandidate(ctx, actor, candidateID, accountID)
	if err != nil {
		return nil, h.fail("VerifyCandidate", err)
	}
	return candidateToWire(candidate), nil
}

func (h *RegistryHandler) SetCandidateStatus(ctx context.Context, req *SetCandidateStatusRequest) (*Account, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, h.fail("SetCandidateStatus", err)
	}
	id, err := parseID("candidate_id", req.CandidateID)
	if err != nil {
		return nil, h.fail("SetCandidateStatus", badRequest(err))
	}
	target, err := parseStatus(req.Status)
	if err != nil {
		return nil, h.fail("SetCandidateStatus", badRequest(err))
	}
	account, err := h.service.SetCandidateStatus(ctx, actor, id, target)
	if err != nil {
		return nil, h.fail("SetCandidateStatus", err)
	}
	return accountToWire(account), nil
}

// ListTimeline returns the timeline as the caller is allowed to see it.
func (h *RegistryHandler) ListTimeline(ctx context.Context, req *CandidateRequest) (*ListTimelineResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, h.fail("ListTimeline", err)
	}
	id, err := parseID("candidate_id", req.CandidateID)
	if err != nil {
		return nil, h.fail("ListTimeline", badRequest(err))
	}
	entries, err := h.service.ListTimeline(ctx, actor, id)
	if err != nil {
		return nil, h.fail("ListTimeline", err)
	}
	resp := &ListTimelineResponse{Entries: make([]Entry, 0, len(entries))}
	for i := range entries {
		resp.Entries = append(resp.Entries, *entryToWire(&entries[i]))
	}
	return resp, nil
}

func (h *RegistryHandler) AppendEntry(ctx context.Context, req *AppendEntryRequest) (*Entry, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, h.fail("AppendEntry", err)
	}
	id, err := parseID("candidate_id", req.CandidateID)
	if err != nil {
		return nil, h.fail("AppendEntry", badRequest(err))
	}
	entry, err := h.service.AppendEntry(ctx, actor, id, models.EntryInput{
		Kind:   models.EntryKind(strings.ToUpper(strings.TrimSpace(req.Kind))),
		Notes:  req.Notes,
		Update: updateFromWire(req.StructuredUpdate),
	})
	if err != nil {
		return nil, h.fail("AppendEntry", err)
	}
	return entryToWire(entry), nil
}

func (h *RegistryHandler) EditEntryNotes(ctx context.Context, req *EditEntryNotesRequest) (*Entry, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, h.fail("EditEntryNotes", err)
	}
	candidateID, entryID, err := entryIDs(req.CandidateID, req.EntryID)
	if err != nil {
		return nil, h.fail("EditEntryNotes", badRequest(err))
	}
	entry, err := h.service.EditEntryNotes(ctx, actor, candidateID, entryID, req.Notes)
	if err != nil {
		return nil, h.fail("EditEntryNotes", err)
	}
	return entryToWire(entry), nil
}

// GetEntry returns one entry as the caller is allowed to see it.
func (h *RegistryHandler) GetEntry(ctx context.Context, req *EntryRequest) (*Entry, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, h.fail("GetEntry", err)
	}
	candidateID, entryID, err := entryIDs(req.CandidateID, req.EntryID)
	if err != nil {
		return nil, h.fail("GetEntry", badRequest(err))
	}
	entry, err := h.service.GetEntry(ctx, actor, candidateID, entryID)
	if err != nil {
		return nil, h.fail("GetEntry", err)
	}
	return entryToWire(entry), nil
}

func (h *RegistryHandler) DeleteEntry(ctx context.Context, req *EntryRequest) (*Empty, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, h.fail("DeleteEntry", err)
	}
	candidateID, entryID, err := entryIDs(req.CandidateID, req.EntryID)
	if err != nil {
		return nil, h.fail("DeleteEntry", badRequest(err))
	}
	if err := h.service.DeleteEntry(ctx, actor, candidateID, entryID); err != nil {
		return nil, h.fail("DeleteEntry", err)
	}
	return &Empty{}, nil
}

func (h *RegistryHandler) AddComment(ctx context.Context, req *AddCommentRequest) (*Comment, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, h.fail("AddComment", err)
	}
	candidateID, entryID, err := entryIDs(req.CandidateID, req.EntryID)
	if err != nil {
		return nil, h.fail("AddComment", badRequest(err))
	}
	comment, err := h.service.AddComment(ctx, actor, candidateID, entryID, req.Text)
	if err != nil {
		return nil, h.fail("AddComment", err)
	}
	return commentToWire(comment), nil
}

func (h *RegistryHandler) DeleteComment(ctx context.Context, req *DeleteCommentRequest) (*Empty, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, h.fail("DeleteComment", err)
	}
	candidateID, entryID, err := entryIDs(req.CandidateID, req.EntryID)
	if err != nil {
		return nil, h.fail("DeleteComment", badRequest(err))
	}
	commentID, err := parseID("comment_id", req.CommentID)
	if err != nil {
		return nil, h.fail("DeleteComment", badRequest(err))
	}
	if err := h.service.DeleteComment(ctx, actor, candidateID, entryID, commentID); err != nil {
		return nil, h.fail("DeleteComment", err)
	}
	return &Empty{}, nil
}

func actorFrom(ctx context.Context) (models.Actor, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return models.Actor{}, fmt.Errorf("%w: no actor in request", e.ErrUnauthenticated)
	}
	return actor, nil
}

func entryIDs(candidate, entry string) (uuid.UUID, uuid.UUID, error) {
	candidateID, err := parseID("candidate_id", candidate)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	entryID, err := parseID("entry_id", entry)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return candidateID, entryID, nil
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
}

// codeFor maps an error kind to its gRPC status code.
func codeFor(kind string) codes.Code {
	switch kind {
	case e.KindNotAuthorized:
		return codes.PermissionDenied
	case e.KindInvalidTransition:
		return codes.FailedPrecondition
	case e.KindConflict:
		return codes.Aborted
	case e.KindDuplicate:
		return codes.AlreadyExists
	case e.KindCandidateNotFound, e.KindEntryNotFound, e.KindCommentNotFound, e.KindAccountNotFound:
		return codes.NotFound
	case e.KindEmptyText, e.KindInvalidInput:
		return codes.InvalidArgument
	case e.KindUnauthenticated:
		return codes.Unauthenticated
	default:
		return codes.Internal
	}
}

// fail maps domain or repository errors to a gRPC status carrying the error
// kind as an ErrorInfo detail.
func (h *RegistryHandler) fail(method string, err error) error {
	kind := e.KindOf(err)
	code := codeFor(kind)
	message := err.Error()
	if code == codes.Internal {
		h.logger.Error("Internal server error", zap.String("method", method), zap.Error(err))
		reporting.CaptureError(err, map[string]string{"method": method})
		message = "internal server error"
	}
	return newStatus(code, kind, message)
}

func newStatus(code codes.Code, kind, message string) error {
	st := status.New(code, message)
	if detailed, err := st.WithDetails(&errdetails.ErrorInfo{Reason: kind, Domain: errorDomain}); err == nil {
		st = detailed
	}
	return st.Err()
}

// KindFromStatus recovers the error kind of a status produced by this
// package. Statuses raised outside it are classified by code.
func KindFromStatus(st *status.Status) string {
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == errorDomain {
			return info.GetReason()
		}
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return e.KindUnauthenticated
	case codes.InvalidArgument:
		return e.KindInvalidInput
	case codes.PermissionDenied:
		return e.KindNotAuthorized
	case codes.ResourceExhausted:
		return ratelimit.KindRateLimited
	default:
		return e.KindInternal
	}
}

// KindFromError is KindFromStatus for an error returned by a RegistryClient.
func KindFromError(err error) string {
	return KindFromStatus(status.Convert(err))
}
