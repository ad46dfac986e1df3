package middleware

import (
	"net/http"
	"strings"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimsKey = "claims"
	TenantKey = "tenant_id"
)

// JWTClaims are the custom claims embedded in every access token.
// TenantID scopes every operation the request performs.
type JWTClaims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// JWTAuth validates the Bearer token on every protected route and stores the
// tenant it carries. Tokens without a tenant are rejected.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
			return
		}

		tenantID, err := tenant.Parse(claims.TenantID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("token carries no tenant"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(TenantKey, tenantID)
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	claims, _ := c.MustGet(ClaimsKey).(*JWTClaims)
	return claims
}

// GetTenant returns the tenant JWTAuth resolved for this request.
func GetTenant(c *gin.Context) tenant.ID {
	id, _ := c.Get(TenantKey)
	t, _ := id.(tenant.ID)
	return t
}
