package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bookreviews/pkg/apperrors"
	"bookreviews/pkg/httputil"
	"bookreviews/pkg/logger"
)

// Identify attaches the caller to the request context when a bearer token is
// present. Requests without an Authorization header pass through anonymous;
// a header that does not resolve is rejected.
func Identify(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.Next()
			return
		}

		raw, ok := BearerToken(h)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "UNAUTHENTICATED", "message": "missing bearer token"}})
			return
		}

		caller, err := a.Resolve(c.Request.Context(), raw)
		if errors.Is(err, ErrUserLookup) {
			httputil.WriteError(c, apperrors.Internal(err))
			c.Abort()
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "UNAUTHENTICATED", "message": "invalid token"}})
			return
		}

		ctx := WithCaller(c.Request.Context(), caller)
		ctx = logger.WithUserID(ctx, caller.ID)
		ctx = logger.NewContext(ctx, logger.FromContext(ctx).With("user_id", caller.ID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireCaller rejects anonymous requests. Mount it after Identify.
func RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CallerFromContext(c.Request.Context()) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "UNAUTHENTICATED", "message": "Not authenticated"}})
			return
		}
		c.Next()
	}
}

// MustGetCaller returns the caller for this request, or nil.
func MustGetCaller(c *gin.Context) *Caller {
	return CallerFromContext(c.Request.Context())
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(header[len("Bearer "):])
	return raw, raw != ""
}
