package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tastesync/pkg/ctxkeys"
)

// TokenVerifier is satisfied by *ClerkVerifier.
type TokenVerifier interface {
	Verify(token string) (*ClerkClaims, error)
}

// ClerkAuthMiddleware authenticates requests with a Clerk session token from
// the Authorization header or the __session cookie Clerk sets for same-site
// browsers. The user id is stored on both the gin and request contexts.
func ClerkAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "No authorization header"})
			c.Abort()
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			msg := "Invalid JWT token"
			if errors.Is(err, ErrExpiredJWT) {
				msg = "JWT token expired"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": msg})
			c.Abort()
			return
		}

		c.Set(string(ctxkeys.KeyUserID), claims.UserID())
		c.Set(string(ctxkeys.KeySessionID), claims.SessionID)
		c.Set(string(ctxkeys.KeyEmail), claims.Email)
		c.Set(string(ctxkeys.KeyAuthType), "clerk")

		ctx := context.WithValue(c.Request.Context(), ctxkeys.KeyUserID, claims.UserID())
		ctx = context.WithValue(ctx, ctxkeys.KeySessionID, claims.SessionID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		if cookie, err := c.Cookie("__session"); err == nil && cookie != "" {
			return cookie, true
		}
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
