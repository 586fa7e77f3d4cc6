package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dtroode/dirsync/internal/mocks"
	"github.com/dtroode/dirsync/internal/testutil"
)

func TestAuthenticate_AuthFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		mdAuthHeader string
		parsedSubj   string
		parseErr     error
		wantGRPCCode codes.Code
		wantErr      bool
		expectSetCtx bool
	}{
		{
			name:         "missing authorization header",
			mdAuthHeader: "",
			wantGRPCCode: codes.Unauthenticated,
			wantErr:      true,
		},
		{
			name:         "bearer prefix without token",
			mdAuthHeader: "Bearer ",
			wantGRPCCode: codes.Unauthenticated,
			wantErr:      true,
		},
		{
			name:         "invalid token",
			mdAuthHeader: "Bearer invalid",
			parseErr:     errors.New("signature is invalid"),
			wantGRPCCode: codes.Unauthenticated,
			wantErr:      true,
		},
		{
			name:         "empty subject from token",
			mdAuthHeader: "Bearer token",
			parsedSubj:   "",
			wantGRPCCode: codes.Unauthenticated,
			wantErr:      true,
		},
		{
			name:         "valid token",
			mdAuthHeader: "Bearer token",
			parsedSubj:   "ops@example.com",
			wantGRPCCode: codes.OK,
			expectSetCtx: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lg := testutil.MakeNoopLogger()
			cm := mocks.NewContextManager(t)
			if tt.expectSetCtx {
				cm.On("SetSubjectToContext", mock.Anything, tt.parsedSubj).Return(context.Background())
			}

			parser := mocks.NewTokenParser(t)
			if tt.parseErr != nil || tt.mdAuthHeader == "Bearer token" {
				parser.On("ParseAccessToken", mock.AnythingOfType("string")).Return(tt.parsedSubj, tt.parseErr)
			}
			m := NewAuthenticate(parser, cm, lg)

			ctx := context.Background()
			if tt.mdAuthHeader != "" {
				ctx = metadata.NewIncomingContext(ctx, metadata.Pairs("authorization", tt.mdAuthHeader))
			}

			newCtx, err := m.AuthFunc(ctx)

			if tt.wantErr {
				assert.Error(t, err)
				st, ok := status.FromError(err)
				assert.True(t, ok)
				assert.Equal(t, tt.wantGRPCCode, st.Code())
				assert.Nil(t, newCtx)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, newCtx)
			}
		})
	}
}
