package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/dirsync/internal/model"
)

// errBadRequest marks a malformed request document.
var errBadRequest = errors.New("bad request")

func handleError(err error) error {
	if _, ok := status.FromError(err); ok && err != nil {
		return err
	}

	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, model.ErrEmptyID),
		errors.Is(err, model.ErrInvalidIDType):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, model.ErrUserNotFoundUpstream):
		return status.Error(codes.NotFound, "user not found upstream")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}
