package auth

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodshare/pkg/foodshare/apperrors"
	"github.com/mikepea/foodshare/pkg/foodshare/logger"
	"github.com/mikepea/foodshare/pkg/foodshare/metrics"
	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"github.com/mikepea/foodshare/pkg/foodshare/ratelimit"
	"github.com/mikepea/foodshare/pkg/foodshare/sanitize"
	"github.com/mikepea/foodshare/pkg/foodshare/views"
	"gorm.io/gorm"
)

// Handler handles authentication requests
type Handler struct {
	db       *gorm.DB
	sessions *SessionManager
	limiter  *ratelimit.LoginLimiter
}

// NewHandler creates a new auth handler
func NewHandler(db *gorm.DB, sessions *SessionManager, limiter *ratelimit.LoginLimiter) *Handler {
	return &Handler{db: db, sessions: sessions, limiter: limiter}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse wraps the user returned after register or login
type AuthResponse struct {
	Message string             `json:"message"`
	User    views.UserResponse `json:"user"`
}

// Register handles user registration
// @Summary Register a new user
// @Description Create an account and start a session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} apperrors.Body "Validation error"
// @Failure 409 {object} apperrors.Body "Email already registered"
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("%s", err.Error()))
		return
	}

	name := sanitize.Text(req.Name)
	if name == "" {
		apperrors.Respond(c, apperrors.Validation("Name is required"))
		return
	}
	email := models.NormalizeEmail(req.Email)

	// Check if email already exists
	var existing int64
	if err := h.db.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		apperrors.Respond(c, err)
		return
	}
	if existing > 0 {
		apperrors.Respond(c, apperrors.Conflict("Email already registered"))
		return
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		apperrors.Respond(c, apperrors.Internal(err, "Failed to process password"))
		return
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
	}
	if err := h.db.Create(&user).Error; err != nil {
		if apperrors.IsUniqueViolation(err) {
			apperrors.Respond(c, apperrors.Conflict("Email already registered"))
			return
		}
		apperrors.Respond(c, apperrors.Internal(err, "Failed to create user"))
		return
	}

	if err := h.sessions.Start(c, user.ID); err != nil {
		apperrors.Respond(c, apperrors.Internal(err, "Failed to start session"))
		return
	}

	logger.Info("user registered", "user_id", user.ID)
	c.JSON(http.StatusCreated, AuthResponse{Message: "User registered successfully", User: views.User(user)})
}

// Login handles user login
// @Summary Login
// @Description Authenticate with email and password; repeated failures lock the email out
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} apperrors.Body "Validation error"
// @Failure 401 {object} apperrors.Body "Invalid credentials"
// @Failure 429 {object} apperrors.Body "Too many attempts"
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("%s", err.Error()))
		return
	}

	ctx := c.Request.Context()
	email := models.NormalizeEmail(req.Email)

	wait, err := h.limiter.Check(ctx, email)
	if err != nil {
		// The limiter store being down must not block logins
		logger.Warn("login limiter check failed", "error", err)
	}
	if wait > 0 {
		metrics.RecordLogin("locked")
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		apperrors.Respond(c, apperrors.RateLimited(ratelimit.LockoutMessage(wait)))
		return
	}

	var user models.User
	err = h.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		apperrors.Respond(c, err)
		return
	}
	if err != nil || !CheckPassword(req.Password, user.PasswordHash) {
		if _, lerr := h.limiter.RecordFailure(ctx, email); lerr != nil {
			logger.Warn("login limiter record failed", "error", lerr)
		}
		metrics.RecordLogin("failure")
		apperrors.Respond(c, apperrors.Unauthenticated("Invalid email or password"))
		return
	}

	if err := h.limiter.Reset(ctx, email); err != nil {
		logger.Warn("login limiter reset failed", "error", err)
	}

	if err := h.sessions.Start(c, user.ID); err != nil {
		apperrors.Respond(c, apperrors.Internal(err, "Failed to start session"))
		return
	}

	metrics.RecordLogin("success")
	c.JSON(http.StatusOK, AuthResponse{Message: "Login successful", User: views.User(user)})
}

// Logout ends the current session
// @Summary Logout
// @Description Revoke the session and clear the session cookie
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logged out successfully"
// @Failure 401 {object} apperrors.Body "No active session"
// @Router /auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.End(c); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			apperrors.Respond(c, apperrors.Unauthenticated("No active session found"))
			return
		}
		apperrors.Respond(c, apperrors.Internal(err, "Failed to log out"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// RegisterRoutes registers auth routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.POST("/logout", h.Logout)
}
