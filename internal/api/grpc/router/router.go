package router

import (
	"context"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/dirsync/internal/api/grpc/handler"
	"github.com/dtroode/dirsync/internal/api/grpc/middleware"
	"github.com/dtroode/dirsync/internal/api/grpc/syncapi"
	"github.com/dtroode/dirsync/internal/logger"
	"github.com/dtroode/dirsync/internal/model"
)

// Router builds the admin gRPC server: the UserSync service behind bearer
// authentication and an unauthenticated health service.
type Router struct {
	syncService    handler.SyncService
	tokens         middleware.TokenParser
	contextManager model.ContextManager
	health         *health.Server
	logger         *logger.Logger
}

// New creates new gRPC Router instance.
func New(
	syncService handler.SyncService,
	tokens middleware.TokenParser,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Router {
	return &Router{
		syncService:    syncService,
		tokens:         tokens,
		contextManager: contextManager,
		health:         health.NewServer(),
		logger:         logger,
	}
}

// requiresAuth reports whether a call goes through bearer authentication.
// Health checks and server reflection stay open for probes and tooling.
func requiresAuth(_ context.Context, c interceptors.CallMeta) bool {
	method := c.FullMethod()
	return !strings.HasPrefix(method, "/grpc.health.v1.Health/") &&
		!strings.HasPrefix(method, "/grpc.reflection.")
}

// Register registers all gRPC services and middleware and returns the
// configured server.
func (r *Router) Register(opts ...grpc.ServerOption) *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.tokens, r.contextManager, r.logger)
	recoveryOpts := middleware.RecoveryOptions(r.logger)

	serverOpts := append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(recoveryOpts...),
			logging.HandleGRPC,
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(requiresAuth),
			),
		),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(recoveryOpts...),
			selector.StreamServerInterceptor(
				auth.StreamServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(requiresAuth),
			),
		),
	}, opts...)

	s := grpc.NewServer(serverOpts...)
	r.registerSyncRoutes(s)
	r.registerHealth(s)

	return s
}

// Shutdown reports every service as not serving.
func (r *Router) Shutdown() {
	r.health.Shutdown()
}

func (r *Router) registerSyncRoutes(server *grpc.Server) {
	syncHandler := handler.NewSync(r.syncService, r.contextManager, r.logger)
	syncapi.RegisterUserSyncServer(server, syncHandler)
}

func (r *Router) registerHealth(server *grpc.Server) {
	healthpb.RegisterHealthServer(server, r.health)
	r.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	r.health.SetServingStatus(syncapi.ServiceName, healthpb.HealthCheckResponse_SERVING)
}
