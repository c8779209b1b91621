package grpc

import (
	"context"
	"fmt"
	"strings"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"chat-gateway/internal/identity"
)

const (
	identityService    = "identity.v1.IdentityService"
	resolveTokenMethod = "/" + identityService + "/ResolveToken"
)

// IdentityClient resolves tokens against the identity provider over gRPC.
type IdentityClient struct {
	conn   gogrpc.ClientConnInterface
	health grpc_health_v1.HealthClient
}

// NewIdentityClient constructs the wrapper.
func NewIdentityClient(conn gogrpc.ClientConnInterface) *IdentityClient {
	return &IdentityClient{conn: conn, health: grpc_health_v1.NewHealthClient(conn)}
}

// ResolveUser sends the token and returns the user id the provider knows it by.
func (c *IdentityClient) ResolveUser(ctx context.Context, token string) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, resolveTokenMethod, wrapperspb.String(token), out); err != nil {
		switch status.Code(err) {
		case codes.Unauthenticated, codes.PermissionDenied, codes.NotFound:
			return "", fmt.Errorf("%w: %s", identity.ErrInvalidToken, status.Convert(err).Message())
		default:
			return "", fmt.Errorf("%w: %v", identity.ErrLookupFailed, err)
		}
	}
	userID := strings.TrimSpace(out.GetValue())
	if userID == "" {
		return "", fmt.Errorf("%w: empty user id", identity.ErrLookupFailed)
	}
	return userID, nil
}

// Ping reports an error unless the provider's health service answers SERVING.
func (c *IdentityClient) Ping(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: identityService})
	if err != nil {
		return fmt.Errorf("identity health check: %w", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("identity provider status %s", resp.GetStatus())
	}
	return nil
}
