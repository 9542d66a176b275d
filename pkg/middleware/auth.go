package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/response"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyRole   = "role"

	UserIDHeader = "X-User-ID"
	RoleHeader   = "X-User-Role"
)

// Roles understood by the booking core
const (
	RoleClient   = "client"
	RoleVendor   = "vendor"
	RoleInternal = "internal"
	RoleAdmin    = "admin"
)

// Claims are the access-token claims issued by the identity service
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthConfig configures bearer-token verification
type AuthConfig struct {
	Secret string
	Issuer string
	// TrustHeaders accepts identity headers set by an upstream gateway when no bearer token is present
	TrustHeaders bool
}

// Auth verifies the bearer token and stores user_id and role in the gin context
func Auth(cfg *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if cfg.TrustHeaders && c.GetHeader(UserIDHeader) != "" {
				c.Set(ContextKeyUserID, c.GetHeader(UserIDHeader))
				role := c.GetHeader(RoleHeader)
				if role == "" {
					role = RoleClient
				}
				c.Set(ContextKeyRole, role)
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Err("UNAUTHORIZED", "authorization header is required"))
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Err("UNAUTHORIZED", "invalid authorization header"))
			return
		}

		claims, err := ParseToken(token, cfg.Secret, cfg.Issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Err("UNAUTHORIZED", "invalid or expired token"))
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyRole, claims.Role)
		c.Next()
	}
}

// ParseToken validates an HS256 token and returns its claims
func ParseToken(tokenString, secret, issuer string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// GetUserID returns the authenticated user id
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextKeyUserID)
	return id, id != ""
}

// GetRole returns the authenticated user's role
func GetRole(c *gin.Context) string {
	return c.GetString(ContextKeyRole)
}

// IsInternal reports whether the caller is a trusted internal actor
func IsInternal(c *gin.Context) bool {
	role := GetRole(c)
	return role == RoleInternal || role == RoleAdmin
}
