package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"estate-video-backend/internal/config"
	"estate-video-backend/internal/models"
)

const (
	UserIDKey  = "user_id"
	IsAdminKey = "is_admin"
)

// GenerateToken mints an HS256 access token for the user. The subject
// carries the numeric user id; the admin claim gates the review portal.
func GenerateToken(cfg *config.Config, user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   strconv.FormatInt(user.ID, 10),
		"admin": user.IsAdmin,
		"guest": user.IsGuest,
		"iat":   now.Unix(),
		"exp":   now.Add(cfg.AccessTokenTTL).Unix(),
	})
	return token.SignedString([]byte(cfg.JWTSecret))
}

// AuthMiddleware validates the bearer token and stores the user id and
// admin flag in the request context.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))

		if err != nil {
			var errorMsg string
			if strings.Contains(err.Error(), "signature is invalid") {
				errorMsg = "token signature is invalid"
			} else if strings.Contains(err.Error(), "token is expired") {
				errorMsg = "token has expired"
			} else {
				errorMsg = err.Error()
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "message": errorMsg})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			c.Abort()
			return
		}

		sub, ok := claims["sub"].(string)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user id in token"})
			c.Abort()
			return
		}
		userID, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id in token"})
			c.Abort()
			return
		}

		isAdmin, _ := claims["admin"].(bool)

		c.Set(UserIDKey, userID)
		c.Set(IsAdminKey, isAdmin)
		c.Next()
	}
}

// AdminRequired rejects requests whose token lacks the admin claim. It
// must run after AuthMiddleware.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isAdmin, ok := c.Get(IsAdminKey); !ok || isAdmin != true {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID pulls the authenticated user id out of the request context.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
