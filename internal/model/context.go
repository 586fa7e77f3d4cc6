package model

import "context"

// ContextManager carries the authenticated admin subject through a request.
type ContextManager interface {
	SetSubjectToContext(ctx context.Context, subject string) context.Context
	GetSubjectFromContext(ctx context.Context) (string, bool)
}
