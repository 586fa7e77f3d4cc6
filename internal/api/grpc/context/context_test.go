package context

import (
	stdctx "context"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/metadata"
)

func TestManager_SetAndGetSubject(t *testing.T) {
	m := NewManager()
	ctx := m.SetSubjectToContext(stdctx.Background(), "ops@example.com")

	got, ok := m.GetSubjectFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "ops@example.com", got)
}

func TestManager_GetSubject_NotFound(t *testing.T) {
	m := NewManager()
	_, ok := m.GetSubjectFromContext(stdctx.Background())
	assert.False(t, ok)

	ctx := metadata.NewIncomingContext(stdctx.Background(), metadata.New(map[string]string{"x-trace-id": "t"}))
	_, ok = m.GetSubjectFromContext(ctx)
	assert.False(t, ok)
}

func TestManager_SetSubject_WithExistingMetadata(t *testing.T) {
	m := NewManager()
	baseMD := metadata.New(map[string]string{"x-trace-id": "t"})
	base := metadata.NewIncomingContext(stdctx.Background(), baseMD)

	ctx := m.SetSubjectToContext(base, "ops")

	md, ok := metadata.FromIncomingContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, []string{"t"}, md.Get("x-trace-id"))
	assert.Equal(t, []string{"ops"}, md.Get(subjectKey))
	assert.Empty(t, baseMD.Get(subjectKey), "caller metadata is not mutated")
}
