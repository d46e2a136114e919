package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "spendify/internal/errors"
	"spendify/internal/middleware"
	"spendify/internal/models"
	"spendify/internal/money"
	"spendify/internal/services"
)

// AuthHandler handles registration, login and session requests.
type AuthHandler struct {
	userService  services.UserServicer
	tokenService services.TokenServicer
	auditService services.AuditServicer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userService services.UserServicer, tokenService services.TokenServicer, auditService services.AuditServicer) *AuthHandler {
	return &AuthHandler{userService: userService, tokenService: tokenService, auditService: auditService}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries the refresh token to redeem.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// LogoutRequest optionally carries the refresh token to revoke.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UserResponse is the public view of the authenticated user.
type UserResponse struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	Balance money.Cents `json:"balance" swaggertype:"number"`
}

// AuthData is returned by register and login.
type AuthData struct {
	User         UserResponse `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
}

// TokenData is returned by refresh.
type TokenData struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Balance: u.Balance}
}

func (h *AuthHandler) fingerprint(c *gin.Context) string {
	return h.tokenService.Fingerprint(c.Request.UserAgent(), c.ClientIP())
}

// Register handles user registration
// @Summary     Register a new user
// @Description Creates an account and signs it in. Passwords need 12+ characters with upper, lower, digit and special characters.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RegisterRequest true "User registration data"
// @Success     201 {object} AuthData "Account created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Email already registered"
// @Failure     429 {object} ErrorResponse "Too many registration attempts"
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.Validation("Please provide name, email, and password"))
		return
	}

	user, err := h.userService.Register(req.Name, req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	pair, err := h.tokenService.IssuePair(user.ID, h.fingerprint(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(user.ID, services.AuditRegister, "user", user.ID, c.ClientIP(), nil)

	respondOK(c, http.StatusCreated, "Account created successfully", AuthData{
		User:         toUserResponse(user),
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Login handles user login
// @Summary     Login user
// @Description Authenticates a user. Five consecutive failures lock the account for 15 minutes.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "User login credentials"
// @Success     200 {object} AuthData "Login successful"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Failure     423 {object} ErrorResponse "Account locked"
// @Failure     429 {object} ErrorResponse "Too many login attempts"
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.Validation("Please provide email and password"))
		return
	}

	user, err := h.userService.AttemptLogin(req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	pair, err := h.tokenService.IssuePair(user.ID, h.fingerprint(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(user.ID, services.AuditLogin, "user", user.ID, c.ClientIP(), nil)

	respondOK(c, http.StatusOK, "Login successful", AuthData{
		User:         toUserResponse(user),
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh rotates a refresh token.
// @Summary     Refresh session
// @Description Redeems a refresh token for a new access and refresh token. The presented refresh token is revoked.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RefreshRequest true "Refresh token"
// @Success     200 {object} TokenData "New token pair"
// @Failure     400 {object} ErrorResponse "Missing refresh token"
// @Failure     401 {object} ErrorResponse "Invalid, expired or reused refresh token"
// @Router      /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.Validation("Refresh token is required"))
		return
	}

	pair, err := h.tokenService.Refresh(req.RefreshToken, h.fingerprint(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "Token refreshed successfully", TokenData{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout ends the current session.
// @Summary     Logout
// @Description Revokes the presented access token and, when supplied, the refresh token.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body LogoutRequest false "Refresh token to revoke"
// @Success     200 {object} MessageResponse "Logged out"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req LogoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.Validation("Invalid JSON payload"))
			return
		}
	}

	if err := h.tokenService.Logout(userID, c.GetString(middleware.AccessTokenKey), req.RefreshToken); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditLogout, "user", userID, c.ClientIP(), nil)

	respondOK(c, http.StatusOK, "Logged out successfully", emptyData)
}

// GetMe returns the user's profile
// @Summary     Get current user
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.User "User profile"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", user)
}
