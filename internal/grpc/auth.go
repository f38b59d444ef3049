package grpc

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const serviceTokenHeader = "x-service-token"

// healthMethodPrefix is left open so orchestrator probes need no token.
const healthMethodPrefix = "/grpc.health.v1.Health/"

// serviceGuard checks the x-service-token metadata of every non-health call.
type serviceGuard struct {
	token []byte
}

func newServiceGuard(token string) (*serviceGuard, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("service auth token required")
	}
	return &serviceGuard{token: []byte(token)}, nil
}

func (g *serviceGuard) check(ctx context.Context, fullMethod string) error {
	if strings.HasPrefix(fullMethod, healthMethodPrefix) {
		return nil
	}
	presented := incomingServiceToken(ctx)
	switch {
	case presented == "":
		return status.Error(codes.Unauthenticated, "missing_service_token")
	case subtle.ConstantTimeCompare([]byte(presented), g.token) != 1:
		return status.Error(codes.PermissionDenied, "invalid_service_token")
	}
	return nil
}

func (g *serviceGuard) unary(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if err := g.check(ctx, info.FullMethod); err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

func (g *serviceGuard) stream(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if err := g.check(ss.Context(), info.FullMethod); err != nil {
		return err
	}
	return handler(srv, ss)
}

// ServiceAuthOptions returns the server options that require token on every
// unary and streaming call except the health service.
func ServiceAuthOptions(token string) ([]grpc.ServerOption, error) {
	guard, err := newServiceGuard(token)
	if err != nil {
		return nil, err
	}
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(guard.unary),
		grpc.ChainStreamInterceptor(guard.stream),
	}, nil
}

func incomingServiceToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(serviceTokenHeader); len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}
