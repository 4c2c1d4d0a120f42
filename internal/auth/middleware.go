package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

var ErrInvalidToken = errors.New("invalid token")

// Authenticator checks a raw token against its signature and the user's
// current token version, so logout and password changes revoke old tokens.
type Authenticator struct {
	Tokens TokenService
	Repo   *Repo
}

func (a Authenticator) Authenticate(ctx context.Context, raw string) (*Claims, error) {
	claims, err := a.Tokens.Parse(raw)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if a.Repo != nil {
		current, err := a.Repo.GetTokenVersion(ctx, claims.UserID)
		if err != nil || current != claims.TokenVersion {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// ExtractToken accepts both "Bearer <jwt>" and "Token <jwt>".
func ExtractToken(header string) (string, bool) {
	for _, scheme := range []string{"bearer ", "token "} {
		if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
			return strings.TrimSpace(header[len(scheme):]), true
		}
	}
	return "", false
}

func AuthMiddleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	a := Authenticator{Tokens: tokens, Repo: repo}
	return func(c *gin.Context) {
		raw, ok := ExtractToken(c.GetHeader("Authorization"))
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}

		claims, err := a.Authenticate(c.Request.Context(), raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid token is present and lets
// anonymous requests through. A present but invalid token is still rejected.
func OptionalAuth(tokens TokenService, repo *Repo) gin.HandlerFunc {
	a := Authenticator{Tokens: tokens, Repo: repo}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		raw, ok := ExtractToken(header)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			c.Abort()
			return
		}
		claims, err := a.Authenticate(c.Request.Context(), raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// UserID returns the authenticated user's id or "" for anonymous requests.
func UserID(c *gin.Context) string {
	if claims := MustGetClaims(c); claims != nil {
		return claims.UserID
	}
	return ""
}
