package middleware

import (
	"runtime/debug"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/dirsync/internal/logger"
)

// RecoveryOptions turn a handler panic into codes.Internal and log the stack.
func RecoveryOptions(logger *logger.Logger) []recovery.Option {
	return []recovery.Option{
		recovery.WithRecoveryHandler(func(p any) error {
			logger.Error("gRPC: handler panicked", "panic", p, "stack", string(debug.Stack()))
			return status.Error(codes.Internal, "internal server error")
		}),
	}
}
