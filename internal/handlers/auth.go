package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"job-portal/internal/jobs"
	"job-portal/internal/middleware"
	"job-portal/internal/models"
	"job-portal/pkg/auth"
)

type AuthHandler struct {
	svc        *jobs.Service
	logger     *zap.Logger
	jwtService *auth.JWTService
}

func NewAuthHandler(svc *jobs.Service, logger *zap.Logger, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		svc:        svc,
		logger:     logger,
		jwtService: jwtService,
	}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=150"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	PhoneNumber string `json:"phone_number,omitempty"`
	IsRecruiter bool   `json:"is_recruiter"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the refresh token request payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UpdateProfileRequest represents the editable profile fields
type UpdateProfileRequest struct {
	Email       *string `json:"email,omitempty" binding:"omitempty,email"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

// ChangePasswordRequest represents the password change request payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	User         models.UserResponse `json:"user"`
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token"`
	TokenType    string              `json:"token_type"`
	ExpiresAt    time.Time           `json:"expires_at"`
}

// Register handles user registration
// @Summary Register a new user
// @Description Create an account. Recruiters may publish offers.
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid registration request", zap.Error(err))
		badRequest(c, err)
		return
	}

	user, err := h.svc.RegisterUser(c.Request.Context(), jobs.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		IsRecruiter: req.IsRecruiter,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.issueTokens(c, http.StatusCreated, user)
}

// Login handles user authentication
// @Summary Login user
// @Description Authenticate user and return JWT tokens
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.svc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if e, ok := jobs.AsError(err); ok {
			h.logger.Warn("Failed login attempt", zap.String("username", req.Username))
			c.JSON(http.StatusUnauthorized, gin.H{"error": e.Message, "code": "INVALID_CREDENTIALS"})
			return
		}
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("User logged in successfully", zap.String("user_id", user.ID.String()))
	h.issueTokens(c, http.StatusOK, user)
}

// RefreshToken handles token refresh
// @Summary Refresh access token
// @Description Exchange a refresh token for a new token pair. The old refresh token is revoked.
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token", "code": "INVALID_REFRESH_TOKEN"})
		return
	}

	user, err := h.svc.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found", "code": "INVALID_REFRESH_TOKEN"})
		return
	}
	if user.IsBanned {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "This account has been banned", "code": "ACCOUNT_BANNED"})
		return
	}

	h.jwtService.BlacklistToken(claims)
	h.issueTokens(c, http.StatusOK, user)
}

// Logout revokes the access token used for the request
// @Summary Logout user
// @Tags authentication
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if claims, ok := middleware.GetClaims(c); ok {
		h.jwtService.BlacklistToken(claims)
		h.logger.Info("User logged out", zap.String("user_id", claims.UserID.String()))
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the authenticated user's profile
// @Summary Get current user
// @Tags authentication
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.UserResponse
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user.ToResponse())
}

// UpdateMe updates the authenticated user's profile
// @Summary Update current user
// @Description Change the email address or phone number of the current account
// @Tags authentication
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/auth/me [put]
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Email == nil && req.PhoneNumber == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No valid fields to update", "code": "VALIDATION_ERROR"})
		return
	}

	updated, err := h.svc.UpdateProfile(c.Request.Context(), user, jobs.ProfileInput{
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated.ToResponse())
}

// ChangePassword changes the authenticated user's password
// @Summary Change password
// @Tags authentication
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Current and new password"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), user, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// DeleteMe deletes the authenticated user's account
// @Summary Delete current user
// @Description Delete the account with its offers and applications. The access token is revoked.
// @Tags authentication
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/auth/me [delete]
func (h *AuthHandler) DeleteMe(c *gin.Context) {
	user, ok := currentUser(c, h.svc, h.logger)
	if !ok {
		return
	}

	if err := h.svc.DeleteAccount(c.Request.Context(), user); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if claims, ok := middleware.GetClaims(c); ok {
		h.jwtService.BlacklistToken(claims)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}

func (h *AuthHandler) issueTokens(c *gin.Context, status int, user *models.User) {
	pair, err := h.jwtService.GenerateTokenPair(user)
	if err != nil {
		h.logger.Error("Failed to generate tokens", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens", "code": "INTERNAL_ERROR"})
		return
	}

	c.JSON(status, AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresAt:    h.svc.Now().Add(h.jwtService.GetAccessTokenExpiry()),
	})
}
