package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"job-portal/pkg/auth"
)

const (
	contextUserID   = "user_id"
	contextUsername = "username"
	contextClaims   = "jwt_claims"
)

// AuthMiddleware validates JWT tokens
func AuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header is required",
				"code":  "MISSING_AUTH_HEADER",
			})
			return
		}

		token := auth.ExtractTokenFromBearer(authHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
				"code":  "INVALID_AUTH_FORMAT",
			})
			return
		}

		claims, err := jwtService.ValidateAccessToken(token)
		if err != nil {
			verr, ok := err.(auth.ValidationError)
			if !ok {
				verr = auth.ErrTokenInvalid
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": verr.Message,
				"code":  verr.Code,
			})
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth validates the token if present but doesn't require it
func OptionalAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.ExtractTokenFromBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}

		// an invalid token degrades to an anonymous request
		if claims, err := jwtService.ValidateAccessToken(token); err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// RequireStaff rejects requests whose token does not carry staff or
// superuser rights. Handlers still re-check against the stored user.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "MISSING_CLAIMS",
			})
			return
		}
		if !claims.IsModerator() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
				"code":  "INSUFFICIENT_PERMISSIONS",
			})
			return
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(contextUserID, claims.UserID)
	c.Set(contextUsername, claims.Username)
	c.Set(contextClaims, claims)
}

// GetCurrentUserID extracts the current user ID from context
func GetCurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get(contextUserID)
	if !exists {
		return uuid.Nil, false
	}

	id, ok := userID.(uuid.UUID)
	return id, ok
}

// GetClaims returns the validated token claims, if any.
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	v, exists := c.Get(contextClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

// IsAuthenticated checks if the current request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get(contextUserID)
	return exists
}
