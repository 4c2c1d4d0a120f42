package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"recipehub/internal/auth"
	"recipehub/pkg/logger"
)

type claimsKey struct{}

func ClaimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return c
}

// AuthInterceptor requires an "authorization: Bearer <token>" metadata entry
// on every call.
func AuthInterceptor(a auth.Authenticator, log *logger.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = logger.Nop()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		raw, ok := auth.ExtractToken(values[0])
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		claims, err := a.Authenticate(ctx, raw)
		if err != nil {
			log.Debug("grpc auth rejected", "method", info.FullMethod, "error", err)
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(context.WithValue(ctx, claimsKey{}, claims), req)
	}
}
