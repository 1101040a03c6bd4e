package users

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodshare/pkg/foodshare/apperrors"
	"github.com/mikepea/foodshare/pkg/foodshare/auth"
	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"github.com/mikepea/foodshare/pkg/foodshare/views"
	"gorm.io/gorm"
)

// Handler serves the current-user projection
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new users handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// MeResponse wraps the session user
type MeResponse struct {
	User views.UserResponse `json:"user"`
}

// Me returns the current user
// @Summary Current user
// @Description Get the user behind the session
// @Tags users
// @Produce json
// @Success 200 {object} MeResponse
// @Failure 401 {object} apperrors.Body "Not authenticated"
// @Router /users/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID := auth.MustUserID(c)

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		if apperrors.IsNotFound(err) {
			// The session outlived its user
			apperrors.Respond(c, apperrors.Unauthenticated("User not found"))
			return
		}
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, MeResponse{User: views.User(user)})
}

// RegisterRoutes registers user routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
}
