package ratelimit

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/gartstein/redflag/internal/registry/auth"
	"github.com/gartstein/redflag/internal/registry/metrics"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// KindRateLimited is the error kind of throttled HTTP responses.
const KindRateLimited = "RateLimited"

// HTTPMiddleware throttles requests by actor id, falling back to client IP for
// anonymous callers.
func HTTPMiddleware(next http.Handler, limiter Limiter, logger *zap.Logger) http.Handler {
	if limiter == nil {
		return next
	}
	logger = logger.Named("ratelimit")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + ClientIP(r)
		if actor, ok := auth.ActorFromContext(r.Context()); ok {
			key = "actor:" + actor.ID.String()
		}
		allowed, err := limiter.Allow(r.Context(), key)
		if err != nil {
			logger.Warn("Rate limiter unavailable", zap.Error(err))
		}
		if !allowed {
			metrics.RecordRateLimited("http")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"kind":    KindRateLimited,
				"message": "too many requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UnaryInterceptor throttles authenticated gRPC calls by actor id. It must run
// after the auth interceptor; anonymous calls pass through.
func UnaryInterceptor(limiter Limiter, logger *zap.Logger) grpc.UnaryServerInterceptor {
	logger = logger.Named("ratelimit")
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		actor, ok := auth.ActorFromContext(ctx)
		if limiter == nil || !ok {
			return handler(ctx, req)
		}
		allowed, err := limiter.Allow(ctx, "actor:"+actor.ID.String())
		if err != nil {
			logger.Warn("Rate limiter unavailable", zap.Error(err))
		}
		if !allowed {
			metrics.RecordRateLimited("grpc")
			return nil, status.Error(codes.ResourceExhausted, "too many requests")
		}
		return handler(ctx, req)
	}
}

// ClientIP returns the first X-Forwarded-For hop or the remote host.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
