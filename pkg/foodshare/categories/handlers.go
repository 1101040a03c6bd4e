package categories

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodshare/pkg/foodshare/apperrors"
	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"github.com/mikepea/foodshare/pkg/foodshare/views"
	"gorm.io/gorm"
)

// Handler serves the category reference data
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new categories handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// ListResponse is the category list
type ListResponse struct {
	Count      int                      `json:"count"`
	Categories []views.CategoryResponse `json:"categories"`
}

// List returns all categories
// @Summary List categories
// @Description Public reference data, sorted by name
// @Tags categories
// @Produce json
// @Success 200 {object} ListResponse
// @Router /categories [get]
func (h *Handler) List(c *gin.Context) {
	var categories []models.Category
	if err := h.db.WithContext(c.Request.Context()).Order("name ASC").Find(&categories).Error; err != nil {
		apperrors.Respond(c, err)
		return
	}

	resp := ListResponse{Count: len(categories), Categories: make([]views.CategoryResponse, len(categories))}
	for i, cat := range categories {
		resp.Categories[i] = views.Category(cat)
	}
	c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers category routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
}
