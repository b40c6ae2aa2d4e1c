package grpc

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/metadata"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/msto63/dolmetscher/pkg/core/health"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

func startServer(t *testing.T) (*Server, *health.Registry) {
	t.Helper()
	cfg := DefaultServerConfig()
	cfg.Port = 0
	cfg.HealthInterval = 20 * time.Millisecond

	srv := NewServer(cfg, logging.Discard())
	if err := srv.StartAsync(); err != nil {
		t.Fatalf("StartAsync() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Stop(ctx)
	})
	return srv, health.NewRegistry("dolmetscher", "1.0.0")
}

func TestServer_HealthFollowsRegistry(t *testing.T) {
	srv, registry := startServer(t)

	var alive bool
	registry.Register(health.LivenessCheck("coordinator", func() bool { return alive }))
	srv.Apply(registry.Check(context.Background()))

	conn, err := Dial(DefaultClientConfig(srv.Address()), logging.Discard())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	status, err := CheckHealth(t.Context(), conn, "", time.Second)
	if err != nil {
		t.Fatalf("CheckHealth() error = %v", err)
	}
	if status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", status)
	}

	alive = true
	srv.Apply(registry.Check(context.Background()))

	for _, service := range []string{"", "coordinator"} {
		status, err := CheckHealth(t.Context(), conn, service, time.Second)
		if err != nil {
			t.Fatalf("CheckHealth(%q) error = %v", service, err)
		}
		if status != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("CheckHealth(%q) = %v, want SERVING", service, status)
		}
	}
}

func TestServer_TrackHealth(t *testing.T) {
	srv, registry := startServer(t)
	registry.RegisterFunc("models", func(ctx context.Context) health.CheckResult {
		return health.CheckResult{Status: health.StatusDegraded}
	})

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go srv.TrackHealth(ctx, registry)

	conn, err := Dial(DefaultClientConfig(srv.Address()), logging.Discard())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		status, err := CheckHealth(t.Context(), conn, "models", time.Second)
		if err == nil && status == healthpb.HealthCheckResponse_SERVING {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("models status = %v, %v, want SERVING for degraded check", status, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRequestIDs(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	if got := GetRequestID(ctx); got != "abc" {
		t.Errorf("GetRequestID() = %v, want abc", got)
	}

	incoming := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDHeader, "from-client"))
	if got := GetRequestID(incoming); got != "from-client" {
		t.Errorf("GetRequestID() = %v, want from-client", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() = %v, want empty", got)
	}
}
