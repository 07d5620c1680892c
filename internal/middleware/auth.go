package middleware

import (
	"net/http"
	"strings"

	"confcheckin/internal/apierror"
	"confcheckin/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const ClaimsKey = "claims"

// JWTAuth admits requests carrying a valid access token. Refresh tokens
// are rejected here; they are only good for /v1/auth/refresh.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				apierror.WithCode(string(service.ReasonUnauthorized), "authentication required"))
			return
		}

		claims, err := service.ParseToken(secret, raw, service.TokenAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				apierror.WithCode(string(service.ReasonUnauthorized), "invalid or expired token"))
			return
		}

		c.Set(ClaimsKey, claims)
		// Later log lines for this request carry the caller.
		ctx := c.Request.Context()
		l := zerolog.Ctx(ctx).With().Str("user_id", claims.UserID).Str("role", claims.Role).Logger()
		c.Request = c.Request.WithContext(l.WithContext(ctx))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireRole rejects requests whose token role is not one of roles.
// Mount after JWTAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		for _, r := range roles {
			if claims != nil && claims.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden,
			apierror.WithCode(string(service.ReasonForbiddenRole), "insufficient permissions"))
	}
}

// GetClaims returns the verified token claims, or nil on routes without JWTAuth.
func GetClaims(c *gin.Context) *service.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*service.Claims)
	return claims
}
