package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"estate-video-backend/internal/config"
	"estate-video-backend/internal/middleware"
	"estate-video-backend/internal/models"
	"estate-video-backend/internal/store"
)

type AuthHandler struct {
	store *store.Store
	cfg   *config.Config
}

func NewAuthHandler(st *store.Store, cfg *config.Config) *AuthHandler {
	return &AuthHandler{store: st, cfg: cfg}
}

// Signup registers a new account. An existing guest account under the
// same email is upgraded in place so its orders carry over.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	existing, err := h.store.FindUserByEmail(req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to look up user", Message: err.Error()})
		return
	}
	if existing != nil && !existing.IsGuest {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to hash password"})
		return
	}

	var user *models.User
	if existing != nil {
		if err := h.store.UpgradeGuestUser(existing.ID, req.Email, string(hash)); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to upgrade guest", Message: err.Error()})
			return
		}
		user, err = h.store.GetUser(existing.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load user", Message: err.Error()})
			return
		}
	} else {
		user = &models.User{}
		user.Email.String, user.Email.Valid = req.Email, true
		user.PasswordHash.String, user.PasswordHash.Valid = string(hash), true
		if err := h.store.CreateUser(user); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create user", Message: err.Error()})
			return
		}
	}

	h.respondWithToken(c, user)
}

func (h *AuthHandler) Signin(c *gin.Context) {
	var req models.SigninRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	user, err := h.store.FindUserByEmail(req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to look up user", Message: err.Error()})
		return
	}
	if user == nil || !user.PasswordHash.Valid {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid credentials"})
		return
	}

	h.respondWithToken(c, user)
}

// Guest creates an anonymous account so a visitor can place an order
// before registering.
func (h *AuthHandler) Guest(c *gin.Context) {
	user := &models.User{IsGuest: true}
	if err := h.store.CreateUser(user); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create guest", Message: err.Error()})
		return
	}

	h.respondWithToken(c, user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, user *models.User) {
	token, err := middleware.GenerateToken(h.cfg, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to issue token", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		User: models.UserInfo{
			ID:        user.ID,
			Email:     user.Email.String,
			IsGuest:   user.IsGuest,
			CreatedAt: user.CreatedAt,
		},
		AccessToken: token,
		TokenType:   "bearer",
	})
}
