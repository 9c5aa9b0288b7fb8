package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/internal/services"
)

// AuthService is what the auth endpoints need
type AuthService interface {
	Register(ctx context.Context, actor services.Actor, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, actor services.Actor, req *models.LoginRequest) (*models.LoginResponse, error)
	UpdateProfile(ctx context.Context, actor services.Actor, req *models.UpdateProfileRequest) (*models.User, error)
	CurrentUser(ctx context.Context, actor services.Actor) (*models.User, error)
}

// AuthHandler serves registration, login and the caller's profile
type AuthHandler struct {
	auth AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register creates a traveler account
// @Summary  Register
// @Tags     auth
// @Param    body  body  models.RegisterRequest  true  "Account"
// @Success  201  {object}  map[string]interface{}
// @Failure  400  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"userId":  user.ID,
	})
}

// Login exchanges credentials for a token
// @Summary  Login
// @Tags     auth
// @Param    body  body  models.LoginRequest  true  "Credentials"
// @Success  200  {object}  models.LoginResponse
// @Failure  401  {object}  ErrorResponse
// @Router   /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetProfile returns the caller's account
// @Summary  Current user
// @Tags     auth
// @Security BearerAuth
// @Success  200  {object}  models.User
// @Router   /auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, err := h.auth.CurrentUser(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile changes name, password or phone
// @Summary  Update profile
// @Tags     auth
// @Security BearerAuth
// @Param    body  body  models.UpdateProfileRequest  true  "Changes"
// @Success  200  {object}  map[string]interface{}
// @Failure  400  {object}  ErrorResponse
// @Router   /auth/profile [patch]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    user,
	})
}
