package router

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	grpcctx "github.com/dtroode/dirsync/internal/api/grpc/context"
	"github.com/dtroode/dirsync/internal/api/grpc/syncapi"
	"github.com/dtroode/dirsync/internal/mocks"
	"github.com/dtroode/dirsync/internal/model"
	"github.com/dtroode/dirsync/internal/testutil"
	"github.com/dtroode/dirsync/internal/token"
)

const secret = "router-test-secret"

func startServer(t *testing.T, svc *mocks.SyncService) *grpc.ClientConn {
	t.Helper()

	r := New(svc, token.NewJWT(secret), grpcctx.NewManager(), testutil.MakeNoopLogger())
	s := r.Register()

	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func authorized(t *testing.T) context.Context {
	t.Helper()

	tok, err := token.NewJWT(secret).GenerateAccessToken("ops@example.com", time.Minute)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+tok)
}

func TestRouter_Register(t *testing.T) {
	t.Parallel()

	r := New(mocks.NewSyncService(t), token.NewJWT(secret), mocks.NewContextManager(t), testutil.MakeNoopLogger())
	s := r.Register()
	require.NotNil(t, s)

	info := s.GetServiceInfo()
	assert.Contains(t, info, syncapi.ServiceName)
	assert.Contains(t, info, "grpc.health.v1.Health")
}

func TestRouter_HealthIsOpen(t *testing.T) {
	conn := startServer(t, mocks.NewSyncService(t))

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: syncapi.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestRouter_SyncRequiresToken(t *testing.T) {
	conn := startServer(t, mocks.NewSyncService(t))
	client := syncapi.NewClient(conn)

	_, err := client.Invoke(context.Background(), syncapi.MethodCacheStats, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer forged")
	_, err = client.Invoke(bad, syncapi.MethodCacheStats, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestRouter_SyncUserEndToEnd(t *testing.T) {
	svc := mocks.NewSyncService(t)
	svc.On("SyncUser", mock.Anything, "u1", model.IDTypeUser, false).
		Return(&model.UserRecord{UserID: "u1", Name: "Alice"}, nil)

	conn := startServer(t, svc)
	client := syncapi.NewClient(conn)

	in, err := structpb.NewStruct(map[string]any{"id": "u1"})
	require.NoError(t, err)

	out, err := client.Invoke(authorized(t), syncapi.MethodSyncUser, in)
	require.NoError(t, err)
	assert.Equal(t, "Alice", out.GetFields()["name"].GetStringValue())
}

func TestRouter_PanicIsRecovered(t *testing.T) {
	svc := mocks.NewSyncService(t)
	svc.On("FlushDirty", mock.Anything).Panic("boom")

	conn := startServer(t, svc)

	_, err := syncapi.NewClient(conn).Invoke(authorized(t), syncapi.MethodFlushCache, nil)
	assert.Equal(t, codes.Internal, status.Code(err))
}
