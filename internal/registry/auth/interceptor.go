// Package auth validates bearer JWTs on the gRPC and HTTP surfaces and puts
// the resulting Actor into the request context.
package auth

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Interceptor holds the JWT secret and the methods callable without a token.
type Interceptor struct {
	jwtSecret     string
	publicMethods map[string]bool
}

// NewAuthInterceptor creates an Interceptor; every method not listed in
// publicMethods requires a valid token.
func NewAuthInterceptor(jwtSecret string, publicMethods ...string) *Interceptor {
	public := make(map[string]bool, len(publicMethods))
	for _, m := range publicMethods {
		public[m] = true
	}
	return &Interceptor{
		jwtSecret:     jwtSecret,
		publicMethods: public,
	}
}

// Unary returns a gRPC unary interceptor for token validation.
func (i *Interceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if i.publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "metadata missing")
		}

		tokenString, err := extractTokenFromMetadata(md)
		if err != nil {
			return nil, err
		}

		actor, err := ParseActor(tokenString, i.jwtSecret)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}

		return handler(WithActor(ctx, actor), req)
	}
}

// extractTokenFromMetadata retrieves a Bearer token from gRPC metadata.
func extractTokenFromMetadata(md metadata.MD) (string, error) {
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization header missing")
	}
	token, err := bearerToken(values[0])
	if err != nil {
		return "", status.Error(codes.Unauthenticated, err.Error())
	}
	return token, nil
}

// bearerToken strips the Bearer scheme from an authorization value.
func bearerToken(value string) (string, error) {
	token, ok := strings.CutPrefix(value, "Bearer ")
	if !ok {
		return "", errors.New("invalid authorization format: missing Bearer prefix")
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", errors.New("invalid authorization format: empty token")
	}
	return token, nil
}
