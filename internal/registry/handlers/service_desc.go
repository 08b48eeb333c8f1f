package handlers

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "redflag.v1.RegistryService"

// RegistryServer is the server API of redflag.v1.RegistryService.
type RegistryServer interface {
	RegisterAccount(context.Context, *RegisterAccountRequest) (*Account, error)
	GetAccount(context.Context, *AccountRequest) (*Account, error)
	SetAccountStatus(context.Context, *SetAccountStatusRequest) (*Account, error)
	InviteCandidate(context.Context, *InviteCandidateRequest) (*Candidate, error)
	GetCandidate(context.Context, *CandidateRequest) (*Candidate, error)
	VerifyCandidate(context.Context, *VerifyCandidateRequest) (*Candidate, error)
	SetCandidateStatus(context.Context, *SetCandidateStatusRequest) (*Account, error)
	ListTimeline(context.Context, *CandidateRequest) (*ListTimelineResponse, error)
	GetEntry(context.Context, *EntryRequest) (*Entry, error)
	AppendEntry(context.Context, *AppendEntryRequest) (*Entry, error)
	EditEntryNotes(context.Context, *EditEntryNotesRequest) (*Entry, error)
	DeleteEntry(context.Context, *EntryRequest) (*Empty, error)
	AddComment(context.Context, *AddCommentRequest) (*Comment, error)
	DeleteComment(context.Context, *DeleteCommentRequest) (*Empty, error)
}

// FullMethod returns the gRPC method path of name, e.g. "/redflag.v1.RegistryService/AppendEntry".
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(RegistryServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RegistryServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(RegistryServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes redflag.v1.RegistryService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("RegisterAccount", RegistryServer.RegisterAccount),
		unary("GetAccount", RegistryServer.GetAccount),
		unary("SetAccountStatus", RegistryServer.SetAccountStatus),
		unary("InviteCandidate", RegistryServer.InviteCandidate),
		unary("GetCandidate", RegistryServer.GetCandidate),
		unary("VerifyCandidate", RegistryServer.VerifyCandidate),
		unary("SetCandidateStatus", RegistryServer.SetCandidateStatus),
		unary("ListTimeline", RegistryServer.ListTimeline),
		unary("GetEntry", RegistryServer.GetEntry),
		unary("AppendEntry", RegistryServer.AppendEntry),
		unary("EditEntryNotes", RegistryServer.EditEntryNotes),
		unary("DeleteEntry", RegistryServer.DeleteEntry),
		unary("AddComment", RegistryServer.AddComment),
		unary("DeleteComment", RegistryServer.DeleteComment),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterRegistryServer registers srv with s.
func RegisterRegistryServer(s grpc.ServiceRegistrar, srv RegistryServer) {
	s.RegisterService(&ServiceDesc, srv)
}
