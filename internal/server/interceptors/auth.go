package interceptors

import (
	"context"
	"log"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"sessionguard/internal/clientip"
	"sessionguard/internal/session/domain"
)

const bearerPrefix = "bearer "

// SessionValidator validates an opaque session token and slides its expiry.
// It returns nil for unknown, inactive or expired tokens.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string, req clientip.Request) (*domain.Session, error)
}

// SessionUnary returns a unary server interceptor that validates the Bearer session token from gRPC
// metadata and sets user_id and session_id in context. publicMethods is the set of full method names
// that do not require a token (e.g. grpc.health.v1.Health/Check).
func SessionUnary(sessions SessionValidator, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		token := extractBearer(ctx)
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		s, err := sessions.ValidateSession(ctx, token, clientip.GRPC(ctx))
		if err != nil {
			log.Printf("interceptors: session validation failed for %s: %v", info.FullMethod, err)
			return nil, status.Error(codes.Unavailable, "session validation unavailable")
		}
		if s == nil {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		return handler(WithIdentity(ctx, s.UserID, s.ID), req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
