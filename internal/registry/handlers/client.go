package handlers

import (
	"context"

	"google.golang.org/grpc"
)

// RegistryClient calls redflag.v1.RegistryService over a client connection.
type RegistryClient struct {
	cc grpc.ClientConnInterface
}

// NewRegistryClient wraps cc. Calls always use the json content-subtype.
func NewRegistryClient(cc grpc.ClientConnInterface) *RegistryClient {
	return &RegistryClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegistryClient) RegisterAccount(ctx context.Context, in *RegisterAccountRequest, opts ...grpc.CallOption) (*Account, error) {
	return invoke[Account](ctx, c.cc, "RegisterAccount", in, opts)
}

func (c *RegistryClient) GetAccount(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*Account, error) {
	return invoke[Account](ctx, c.cc, "GetAccount", in, opts)
}

func (c *RegistryClient) SetAccountStatus(ctx context.Context, in *SetAccountStatusRequest, opts ...grpc.CallOption) (*Account, error) {
	return invoke[Account](ctx, c.cc, "SetAccountStatus", in, opts)
}

func (c *RegistryClient) InviteCandidate(ctx context.Context, in *InviteCandidateRequest, opts ...grpc.CallOption) (*Candidate, error) {
	return invoke[Candidate](ctx, c.cc, "InviteCandidate", in, opts)
}

func (c *RegistryClient) GetCandidate(ctx context.Context, in *CandidateRequest, opts ...grpc.CallOption) (*Candidate, error) {
	return invoke[Candidate](ctx, c.cc, "GetCandidate", in, opts)
}

func (c *RegistryClient) VerifyCandidate(ctx context.Context, in *VerifyCandidateRequest, opts ...grpc.CallOption) (*Candidate, error) {
	return invoke[Candidate](ctx, c.cc, "VerifyCandidate", in, opts)
}

func (c *RegistryClient) SetCandidateStatus(ctx context.Context, in *SetCandidateStatusRequest, opts ...grpc.CallOption) (*Account, error) {
	return invoke[Account](ctx, c.cc, "SetCandidateStatus", in, opts)
}

func (c *RegistryClient) ListTimeline(ctx context.Context, in *CandidateRequest, opts ...grpc.CallOption) (*ListTimelineResponse, error) {
	return invoke[ListTimelineResponse](ctx, c.cc, "ListTimeline", in, opts)
}

func (c *RegistryClient) GetEntry(ctx context.Context, in *EntryRequest, opts ...grpc.CallOption) (*Entry, error) {
	return invoke[Entry](ctx, c.cc, "GetEntry", in, opts)
}

func (c *RegistryClient) AppendEntry(ctx context.Context, in *AppendEntryRequest, opts ...grpc.CallOption) (*Entry, error) {
	return invoke[Entry](ctx, c.cc, "AppendEntry", in, opts)
}

func (c *RegistryClient) EditEntryNotes(ctx context.Context, in *EditEntryNotesRequest, opts ...grpc.CallOption) (*Entry, error) {
	return invoke[Entry](ctx, c.cc, "EditEntryNotes", in, opts)
}

func (c *RegistryClient) DeleteEntry(ctx context.Context, in *EntryRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "DeleteEntry", in, opts)
}

func (c *RegistryClient) AddComment(ctx context.Context, in *AddCommentRequest, opts ...grpc.CallOption) (*Comment, error) {
	return invoke[Comment](ctx, c.cc, "AddComment", in, opts)
}

func (c *RegistryClient) DeleteComment(ctx context.Context, in *DeleteCommentRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "DeleteComment", in, opts)
}
