package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/andenet/shop-backend/internal/config"
)

const userIDKey = "userId"

// Auth verifies the JWTs issued by the user service. User routes carry the
// token in a "token" header with the user reference in the "id" claim; admin
// routes carry a Bearer token with "role" and "email" claims.
type Auth struct {
	secret     []byte
	adminEmail string
}

// NewAuth returns middleware bound to the shared JWT secret.
func NewAuth(cfg config.AuthConfig) *Auth {
	return &Auth{secret: []byte(cfg.JWTSecret), adminEmail: cfg.AdminEmail}
}

// User authenticates a storefront user and stashes its id in the context.
func (a *Auth) User() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("token")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Not authorized, login again",
			})
			return
		}

		claims, err := a.parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid token",
			})
			return
		}
		id, _ := claims["id"].(string)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid token",
			})
			return
		}

		c.Set(userIDKey, id)
		c.Next()
	}
}

// Admin authenticates the admin console.
func (a *Auth) Admin() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Not authorized, no token",
			})
			return
		}

		claims, err := a.parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
			})
			return
		}
		if role, _ := claims["role"].(string); role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Not authorized, not admin",
			})
			return
		}
		if email, _ := claims["email"].(string); email != a.adminEmail {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Not authorized, wrong admin",
			})
			return
		}

		c.Next()
	}
}

func (a *Auth) parse(raw string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// UserID returns the authenticated user's id set by the User middleware.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
