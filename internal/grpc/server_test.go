package grpc

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ============================================================================
// Test Setup & Helpers
// ============================================================================

type fakePinger struct {
	down  atomic.Bool
	calls atomic.Int32
}

func (p *fakePinger) Health(ctx context.Context) error {
	p.calls.Add(1)
	if p.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func setupHealthServer(t *testing.T, pinger Pinger) (*Server, healthpb.HealthClient) {
	t.Helper()

	server, err := NewServer(pinger, "0", zap.NewNop())
	require.NoError(t, err)

	go func() {
		_ = server.Serve()
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(server.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return server, healthpb.NewHealthClient(conn)
}

func checkStatus(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

// ============================================================================
// Health Tests
// ============================================================================

func TestHealth_NotServingBeforeFirstCheck(t *testing.T) {
	_, client := setupHealthServer(t, &fakePinger{})

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, client, ""))
}

func TestHealth_FollowsDatabase(t *testing.T) {
	pinger := &fakePinger{}
	server, client := setupHealthServer(t, pinger)
	ctx := context.Background()

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, server.Check(ctx))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, client, ServiceName))

	pinger.down.Store(true)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, server.Check(ctx))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, client, ServiceName))

	pinger.down.Store(false)
	server.Check(ctx)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, client, ""))
}

func TestHealth_Job(t *testing.T) {
	pinger := &fakePinger{}
	server, client := setupHealthServer(t, pinger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server.StartHealthJob(ctx, 10*time.Millisecond)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, client, ""))

	require.Eventually(t, func() bool { return pinger.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	pinger.down.Store(true)
	require.Eventually(t, func() bool {
		return checkStatus(t, client, "") == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHealth_UnknownService(t *testing.T) {
	_, client := setupHealthServer(t, &fakePinger{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "other"})
	assert.Error(t, err)
}
