package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthhandler "sessionguard/internal/health/handler"
	"sessionguard/internal/server/interceptors"
)

// Deps holds the dependencies of the gRPC server.
type Deps struct {
	// Sessions validates Bearer session tokens for non-public methods. If nil, no session interceptor is installed.
	Sessions interceptors.SessionValidator
	// HealthPinger is used by the Health service for readiness (e.g. *sql.DB). If nil, Check skips the DB ping.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used by the Health service for readiness (e.g. the OPA block policy). If nil, Check skips it.
	HealthPolicyChecker healthhandler.PolicyChecker
	// PublicMethods are full method names callable without a session, in addition to the health methods.
	PublicMethods []string
}

// publicMethods returns the set of methods that skip session validation.
func publicMethods(extra []string) map[string]bool {
	m := map[string]bool{
		healthpb.Health_Check_FullMethodName: true,
		healthpb.Health_Watch_FullMethodName: true,
		"/grpc.health.v1.Health/List":         true,
	}
	for _, name := range extra {
		m[name] = true
	}
	return m
}

// NewGRPCServer returns a gRPC server instrumented with otelgrpc, guarded by the session interceptor,
// and with the Health service registered. Health is public, so the interceptor only applies to services
// callers register on the returned server before Serve; their handlers read the caller with
// interceptors.GetUserID and GetSessionID. Methods that must stay reachable without a session go in
// Deps.PublicMethods.
func NewGRPCServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}
	if deps.Sessions != nil {
		base = append(base, grpc.ChainUnaryInterceptor(
			interceptors.SessionUnary(deps.Sessions, publicMethods(deps.PublicMethods)),
		))
	}
	s := grpc.NewServer(append(base, opts...)...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers the services served by this process.
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	healthpb.RegisterHealthServer(s, healthhandler.NewServer(deps.HealthPinger, deps.HealthPolicyChecker))
}
