package foods

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodshare/pkg/foodshare/apperrors"
	"github.com/mikepea/foodshare/pkg/foodshare/auth"
	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"github.com/mikepea/foodshare/pkg/foodshare/views"
)

// ShareLinkResponse is a link and blurb for sharing a food item
type ShareLinkResponse struct {
	ShareURL  string                `json:"share_url"`
	ShareText string                `json:"share_text"`
	Product   views.ProductResponse `json:"product"`
}

// SharedOwner names the owner on a public page without contact details
type SharedOwner struct {
	Name string `json:"name"`
}

// SharedProduct is the public projection of a food item
type SharedProduct struct {
	ID          uint                    `json:"id"`
	Name        string                  `json:"name"`
	Category    *views.CategoryResponse `json:"category"`
	ExpiresOn   string                  `json:"expires_on,omitempty"`
	Notes       *string                 `json:"notes,omitempty"`
	IsAvailable bool                    `json:"is_available"`
	Owner       *SharedOwner            `json:"owner,omitempty"`
}

// SharedResponse is returned by the public share page
type SharedResponse struct {
	Message string        `json:"message,omitempty"`
	Product SharedProduct `json:"product"`
}

// ShareURL returns the public URL of a product
func ShareURL(baseURL string, productID uint) string {
	return fmt.Sprintf("%s/share/food/%d", strings.TrimRight(baseURL, "/"), productID)
}

// ShareText returns the blurb posted alongside a share link
func ShareText(p models.Product) string {
	category := "Uncategorized"
	if p.Category != nil {
		category = p.Category.Name
	}
	return fmt.Sprintf("Check out this food: %s (%s)!", p.Name, category)
}

// ShareLink generates a share link for one of the user's items
// @Summary Get a share link
// @Tags foods
// @Produce json
// @Param id path int true "Food item ID"
// @Success 200 {object} ShareLinkResponse
// @Failure 403 {object} apperrors.Body "Not the owner"
// @Failure 404 {object} apperrors.Body "Not found"
// @Router /foods/{id}/share-link [get]
func (h *Handler) ShareLink(c *gin.Context) {
	userID := auth.MustUserID(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	var product models.Product
	if err := h.db.WithContext(c.Request.Context()).Preload("Category").Preload("Owner").First(&product, id).Error; err != nil {
		if apperrors.IsNotFound(err) {
			apperrors.Respond(c, apperrors.NotFound("Food item not found"))
			return
		}
		apperrors.Respond(c, err)
		return
	}
	if product.OwnerID != userID {
		apperrors.Respond(c, apperrors.Forbidden("You can only generate share links for your own food items"))
		return
	}

	c.JSON(http.StatusOK, ShareLinkResponse{
		ShareURL:  ShareURL(h.baseURL, product.ID),
		ShareText: ShareText(product),
		Product:   views.Product(product),
	})
}

// Shared shows a shared food item to anyone with the link
// @Summary View a shared food item
// @Description Public. Unavailable items only show their name and category.
// @Tags share
// @Produce json
// @Param id path int true "Food item ID"
// @Success 200 {object} SharedResponse
// @Failure 404 {object} apperrors.Body "Not found"
// @Router /share/food/{id} [get]
func (h *Handler) Shared(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var product models.Product
	if err := h.db.WithContext(c.Request.Context()).Preload("Category").Preload("Owner").First(&product, id).Error; err != nil {
		if apperrors.IsNotFound(err) {
			apperrors.Respond(c, apperrors.NotFound("Food item not found"))
			return
		}
		apperrors.Respond(c, err)
		return
	}

	shared := SharedProduct{ID: product.ID, Name: product.Name}
	if product.Category != nil {
		category := views.Category(*product.Category)
		shared.Category = &category
	}

	if !product.IsAvailable {
		c.JSON(http.StatusOK, SharedResponse{
			Message: "This food item is no longer available",
			Product: shared,
		})
		return
	}

	shared.ExpiresOn = product.ExpiresOn.UTC().Format(views.DateLayout)
	shared.Notes = product.Notes
	shared.IsAvailable = true
	shared.Owner = &SharedOwner{Name: product.Owner.Name}
	c.JSON(http.StatusOK, SharedResponse{Product: shared})
}

// RegisterPublicRoutes registers the unauthenticated share page
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/food/:id", h.Shared)
}
