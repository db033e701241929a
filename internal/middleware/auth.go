package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"reminder-engine/internal/auth"
)

// UserIDKey is the gin context key holding the authenticated user.
const UserIDKey = "uid"

// SharedSecret guards every gRPC method with the invocation secret.
func SharedSecret(secret string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		// Authorization: Bearer <secret>
		raw := ""
		if vals := md.Get("authorization"); len(vals) > 0 {
			raw = auth.BearerToken(vals[0])
		}
		if !auth.SecretMatches(raw, secret) {
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		}
		return next(ctx, req)
	}
}

// RequireSecret is the HTTP counterpart of SharedSecret. Rejected
// requests never reach the handler.
func RequireSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.SecretMatches(auth.BearerToken(c.GetHeader("Authorization")), secret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// RequireUser accepts identity provider access tokens and stores the
// subject under UserIDKey.
func RequireUser(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := auth.BearerToken(c.GetHeader("Authorization"))
		if raw == "" || jwtSecret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no token"})
			return
		}
		claims, err := auth.ParseToken(raw, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad token"})
			return
		}
		c.Set(UserIDKey, claims.UserID())
		c.Next()
	}
}
