package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/dirsync/internal/logger"
)

// Logging is a unary interceptor that logs admin API calls and their outcome.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleGRPC logs method name, duration and status for each unary request.
// Client errors are logged at warn level, server errors at error level.
func (l *Logging) HandleGRPC(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	l.logger.Debug("gRPC: request started", "method", info.FullMethod)

	resp, err := handler(ctx, req)

	statusCode := codes.OK
	if err != nil {
		if st, ok := status.FromError(err); ok {
			statusCode = st.Code()
		} else {
			statusCode = codes.Internal
		}
	}

	args := []any{
		"method", info.FullMethod,
		"duration_ms", time.Since(start).Milliseconds(),
		"status", statusCode.String(),
	}

	switch {
	case err == nil:
		l.logger.Info("gRPC: request completed", args...)
	case isServerError(statusCode):
		l.logger.Error("gRPC: request failed", append(args, "error", err.Error())...)
	default:
		l.logger.Warn("gRPC: request rejected", append(args, "error", err.Error())...)
	}

	return resp, err
}

func isServerError(code codes.Code) bool {
	switch code {
	case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}
