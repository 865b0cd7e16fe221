package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/internal/utils"
	"github.com/huangang/hackfest/pkg/response"
)

const (
	ContextUserID   = "user_id"
	ContextUserName = "user_name"
	ContextRole     = "role"
	ContextUser     = "user"
)

// UserLoader fetches the signed-in user's row.
type UserLoader interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

func bearerClaims(c *gin.Context) (*utils.Claims, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, "authorization header required"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return nil, "invalid authorization header format"
	}

	claims, err := utils.ParseToken(parts[1])
	if err != nil {
		return nil, "invalid or expired token"
	}
	return claims, ""
}

func setClaims(c *gin.Context, claims *utils.Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUserName, claims.Name)
	c.Set(ContextRole, claims.Role)
}

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, msg := bearerClaims(c)
		if claims == nil {
			response.Unauthorized(c, msg)
			c.Abort()
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth records the user when a valid token is present and lets
// anonymous requests through.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, _ := bearerClaims(c); claims != nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// LoadUser puts the signed-in user's row in the context. A token whose user
// no longer exists is rejected.
func LoadUser(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := GetUserID(c)
		if id == 0 {
			c.Next()
			return
		}
		user, err := users.GetUserByID(c.Request.Context(), id)
		if err != nil {
			response.Unauthorized(c, "user no longer exists")
			c.Abort()
			return
		}
		c.Set(ContextUser, user)
		c.Next()
	}
}

// AdminRequired admits global super-admins only. It reads the admin flag
// of the user LoadUser fetched, so a demotion applies before the token expires.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := CurrentUser(c); user == nil || !user.Admin {
			response.Forbidden(c, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

func GetUserName(c *gin.Context) string {
	return c.GetString(ContextUserName)
}

func GetRole(c *gin.Context) string {
	return c.GetString(ContextRole)
}

// CurrentUser returns the user set by LoadUser, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if u, exists := c.Get(ContextUser); exists {
		return u.(*models.User)
	}
	return nil
}
