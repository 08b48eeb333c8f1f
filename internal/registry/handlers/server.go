package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gartstein/redflag/internal/registry/auth"
	"github.com/gartstein/redflag/internal/registry/metrics"
	"github.com/gartstein/redflag/internal/registry/ratelimit"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// PublicMethods are the gRPC methods callable without a token.
var PublicMethods = []string{FullMethod("RegisterAccount")}

// PublicRoutes are the HTTP routes served without a token.
var PublicRoutes = []auth.Route{
	{Method: http.MethodPost, Path: "/v1/accounts"},
	{Method: http.MethodGet, Path: "/healthz"},
	{Method: http.MethodGet, Path: "/metrics"},
}

// ServerOptions chains token validation and per-actor rate limiting.
func ServerOptions(jwtSecret string, limiter ratelimit.Limiter, logger *zap.Logger) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			auth.NewAuthInterceptor(jwtSecret, PublicMethods...).Unary(),
			ratelimit.UnaryInterceptor(limiter, logger),
		),
	}
}

// Server holds references to both a gRPC server and an HTTP server.
type Server struct {
	grpcServer   *grpc.Server
	httpServer   *http.Server
	logger       *zap.Logger
	grpcEndpoint string
	httpEndpoint string
}

// NewServer constructs a Server with separate endpoints for gRPC and HTTP.
func NewServer(
	grpcPort int,
	httpPort int,
	logger *zap.Logger,
	grpcOpts ...grpc.ServerOption,
) *Server {
	return &Server{
		grpcServer:   grpc.NewServer(grpcOpts...),
		httpServer:   &http.Server{ReadHeaderTimeout: 10 * time.Second},
		logger:       logger.Named("server"),
		grpcEndpoint: fmt.Sprintf(":%d", grpcPort),
		httpEndpoint: fmt.Sprintf(":%d", httpPort),
	}
}

// RegisterGRPCHandler registers the gRPC handler for the RegistryService.
func (s *Server) RegisterGRPCHandler(h *RegistryHandler) {
	RegisterRegistryServer(s.grpcServer, h)
}

// RegisterHTTPGateway mounts the REST routes, /metrics and /healthz on a
// gateway mux behind the auth and rate limit middleware.
func (s *Server) RegisterHTTPGateway(h *RegistryHandler, jwtSecret string, limiter ratelimit.Limiter) error {
	mux := runtime.NewServeMux()
	if err := h.RegisterRoutes(mux); err != nil {
		return err
	}
	if err := mux.HandlePath(http.MethodGet, "/healthz", h.Health); err != nil {
		return err
	}
	metricsHandler := metrics.Handler()
	err := mux.HandlePath(http.MethodGet, "/metrics", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		metricsHandler.ServeHTTP(w, r)
	})
	if err != nil {
		return err
	}

	limited := ratelimit.HTTPMiddleware(mux, limiter, s.logger)
	s.httpServer.Handler = auth.HTTPMiddleware(limited, jwtSecret, PublicRoutes...)
	s.httpServer.Addr = s.httpEndpoint
	return nil
}

// Handler returns the HTTP handler installed by RegisterHTTPGateway.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the gRPC and HTTP servers concurrently, returning on the first error.
func (s *Server) Start() error {
	var wg sync.WaitGroup
	wg.Add(2)
	errChan := make(chan error, 2)

	go func() {
		defer wg.Done()
		s.logger.Info("Starting gRPC server", zap.String("endpoint", s.grpcEndpoint))
		lis, err := net.Listen("tcp", s.grpcEndpoint)
		if err != nil {
			errChan <- fmt.Errorf("gRPC listen error: %w", err)
			return
		}
		if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC serve error: %w", err)
		}
	}()

	go func() {
		defer wg.Done()
		s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpEndpoint))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP serve error: %w", err)
		}
	}()

	go func() {
		wg.Wait()
		close(errChan)
	}()

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// Run starts both servers and stops them when ctx is cancelled or either
// server fails. It returns the serve error, if any.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return <-errCh
	case err := <-errCh:
		s.Stop()
		return err
	}
}

// Stop gracefully shuts down both gRPC and HTTP servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.grpcServer.GracefulStop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	s.logger.Info("Servers stopped")
}
