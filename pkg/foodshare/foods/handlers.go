package foods

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodshare/pkg/foodshare/access"
	"github.com/mikepea/foodshare/pkg/foodshare/apperrors"
	"github.com/mikepea/foodshare/pkg/foodshare/auth"
	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"github.com/mikepea/foodshare/pkg/foodshare/sanitize"
	"github.com/mikepea/foodshare/pkg/foodshare/views"
	"github.com/oapi-codegen/nullable"
	"gorm.io/gorm"
)

const (
	// DefaultExpiringDays is the look-ahead of the expiring list
	DefaultExpiringDays = 3
	// MaxExpiringDays bounds the ?days parameter
	MaxExpiringDays = 30
)

// Handler handles food inventory requests
type Handler struct {
	db      *gorm.DB
	baseURL string
}

// NewHandler creates a new foods handler. baseURL prefixes share links.
func NewHandler(db *gorm.DB, baseURL string) *Handler {
	return &Handler{db: db, baseURL: baseURL}
}

// CreateRequest is the body for adding a food item
type CreateRequest struct {
	Name       string  `json:"name"`
	CategoryID *uint   `json:"category_id"`
	ExpiresOn  string  `json:"expires_on"`
	Notes      *string `json:"notes"`
}

// UpdateRequest is a partial update. Absent fields are left alone; null
// clears category_id and notes and is rejected for the other fields.
type UpdateRequest struct {
	Name        nullable.Nullable[string] `json:"name" swaggertype:"string"`
	CategoryID  nullable.Nullable[uint]   `json:"category_id" swaggertype:"integer"`
	ExpiresOn   nullable.Nullable[string] `json:"expires_on" swaggertype:"string"`
	Notes       nullable.Nullable[string] `json:"notes" swaggertype:"string"`
	IsAvailable nullable.Nullable[bool]   `json:"is_available" swaggertype:"boolean"`
}

// MarkAvailableRequest optionally scopes availability to some of the owner's groups
type MarkAvailableRequest struct {
	GroupIDs []uint `json:"group_ids"`
}

// ProductEnvelope wraps a single product with a status message
type ProductEnvelope struct {
	Message string                `json:"message"`
	Product views.ProductResponse `json:"product"`
}

// ListResponse is a product list
type ListResponse struct {
	Count      int                     `json:"count"`
	ExpiringIn string                  `json:"expiring_in,omitempty"`
	Products   []views.ProductResponse `json:"products"`
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		apperrors.Respond(c, apperrors.Validation("Invalid food item ID"))
		return 0, false
	}
	return uint(id), true
}

// withDetails preloads what the owner's views show
func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Category").
		Preload("Groups").
		Preload("Requests", func(db *gorm.DB) *gorm.DB { return db.Order("requests.created_at DESC") }).
		Preload("Requests.Claimer")
}

// loadOwned fetches a product inside db, enforcing ownership
func loadOwned(db *gorm.DB, productID, userID uint, action string) (*models.Product, error) {
	var product models.Product
	if err := db.First(&product, productID).Error; err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound("Food item not found")
		}
		return nil, err
	}
	if product.OwnerID != userID {
		return nil, apperrors.Forbidden("You are not authorized to " + action + " this food item")
	}
	return &product, nil
}

func checkCategory(db *gorm.DB, id uint) error {
	var count int64
	if err := db.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NotFound("Category not found")
	}
	return nil
}

func cleanNotes(raw string) *string {
	notes := sanitize.Text(raw)
	if notes == "" {
		return nil
	}
	return &notes
}

// List returns the user's food items
// @Summary List my food items
// @Description Owned products sorted by expiry, with category, groups and requests
// @Tags foods
// @Produce json
// @Success 200 {object} ListResponse
// @Router /foods [get]
func (h *Handler) List(c *gin.Context) {
	userID := auth.MustUserID(c)

	var products []models.Product
	err := withDetails(h.db.WithContext(c.Request.Context())).
		Where("owner_id = ?", userID).
		Order("expires_on ASC").Order("id ASC").
		Find(&products).Error
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Count: len(products), Products: views.Products(products)})
}

// Create adds a food item
// @Summary Add a food item
// @Description New items start unavailable
// @Tags foods
// @Accept json
// @Produce json
// @Param request body CreateRequest true "Food item"
// @Success 201 {object} ProductEnvelope
// @Failure 400 {object} apperrors.Body "Validation error"
// @Failure 404 {object} apperrors.Body "Category not found"
// @Router /foods [post]
func (h *Handler) Create(c *gin.Context) {
	userID := auth.MustUserID(c)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("%s", err.Error()))
		return
	}

	name := sanitize.Text(req.Name)
	if name == "" || req.ExpiresOn == "" {
		apperrors.Respond(c, apperrors.Validation("Name and expiration date are required"))
		return
	}
	expiresOn, err := views.ParseDate(req.ExpiresOn)
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("Invalid expiration date, use YYYY-MM-DD"))
		return
	}

	db := h.db.WithContext(c.Request.Context())
	if req.CategoryID != nil {
		if err := checkCategory(db, *req.CategoryID); err != nil {
			apperrors.Respond(c, err)
			return
		}
	}

	product := models.Product{
		Name:       name,
		CategoryID: req.CategoryID,
		ExpiresOn:  expiresOn,
		OwnerID:    userID,
	}
	if req.Notes != nil {
		product.Notes = cleanNotes(*req.Notes)
	}
	if err := db.Create(&product).Error; err != nil {
		apperrors.Respond(c, err)
		return
	}
	if err := withDetails(db).First(&product, product.ID).Error; err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, ProductEnvelope{Message: "Food item created successfully", Product: views.Product(product)})
}

// Update applies a partial update to a food item
// @Summary Update a food item
// @Description Absent fields are untouched; null clears category_id and notes
// @Tags foods
// @Accept json
// @Produce json
// @Param id path int true "Food item ID"
// @Param request body UpdateRequest true "Fields to change"
// @Success 200 {object} ProductEnvelope
// @Failure 400 {object} apperrors.Body "Validation error"
// @Failure 403 {object} apperrors.Body "Not the owner"
// @Failure 404 {object} apperrors.Body "Not found"
// @Router /foods/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	userID := auth.MustUserID(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("%s", err.Error()))
		return
	}

	var product *models.Product
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		if product, err = loadOwned(tx, id, userID, "update"); err != nil {
			return err
		}

		updates, err := buildUpdates(tx, req)
		if err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(product).Updates(updates).Error; err != nil {
				return err
			}
		}

		var fresh models.Product
		if err := withDetails(tx).First(&fresh, product.ID).Error; err != nil {
			return err
		}
		product = &fresh
		return nil
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ProductEnvelope{Message: "Food item updated successfully", Product: views.Product(*product)})
}

// valueOf returns the field's value when it was sent and not null
func valueOf[T any](f nullable.Nullable[T]) (T, bool) {
	v, err := f.Get()
	return v, err == nil
}

func buildUpdates(db *gorm.DB, req UpdateRequest) (map[string]interface{}, error) {
	updates := map[string]interface{}{}

	if req.Name.IsNull() {
		return nil, apperrors.Validation("name cannot be null")
	}
	if v, ok := valueOf(req.Name); ok {
		name := sanitize.Text(v)
		if name == "" {
			return nil, apperrors.Validation("name cannot be empty")
		}
		updates["name"] = name
	}

	if req.CategoryID.IsNull() {
		updates["category_id"] = nil
	}
	if v, ok := valueOf(req.CategoryID); ok {
		if err := checkCategory(db, v); err != nil {
			return nil, err
		}
		updates["category_id"] = v
	}

	if req.ExpiresOn.IsNull() {
		return nil, apperrors.Validation("expires_on cannot be null")
	}
	if v, ok := valueOf(req.ExpiresOn); ok {
		expiresOn, err := views.ParseDate(v)
		if err != nil {
			return nil, apperrors.Validation("Invalid expiration date, use YYYY-MM-DD")
		}
		updates["expires_on"] = expiresOn
	}

	if req.Notes.IsNull() {
		updates["notes"] = nil
	}
	if v, ok := valueOf(req.Notes); ok {
		if notes := cleanNotes(v); notes != nil {
			updates["notes"] = *notes
		} else {
			updates["notes"] = nil
		}
	}

	if req.IsAvailable.IsNull() {
		return nil, apperrors.Validation("is_available cannot be null")
	}
	if v, ok := valueOf(req.IsAvailable); ok {
		updates["is_available"] = v
	}

	return updates, nil
}

// Delete removes a food item with its requests and group scoping
// @Summary Delete a food item
// @Tags foods
// @Produce json
// @Param id path int true "Food item ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} apperrors.Body "Not the owner"
// @Failure 404 {object} apperrors.Body "Not found"
// @Router /foods/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID := auth.MustUserID(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		product, err := loadOwned(tx, id, userID, "delete")
		if err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.Request{}).Error; err != nil {
			return err
		}
		if err := tx.Model(product).Association("Groups").Clear(); err != nil {
			return err
		}
		return tx.Delete(product).Error
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Food item deleted successfully"})
}

// MarkAvailable offers a food item to friends
// @Summary Mark a food item available
// @Description Without group_ids every accepted friend sees it; otherwise only members of those groups
// @Tags foods
// @Accept json
// @Produce json
// @Param id path int true "Food item ID"
// @Param request body MarkAvailableRequest false "Scoping groups"
// @Success 200 {object} ProductEnvelope
// @Failure 400 {object} apperrors.Body "Invalid groups"
// @Failure 403 {object} apperrors.Body "Not the owner"
// @Failure 404 {object} apperrors.Body "Not found"
// @Router /foods/{id}/mark-available [patch]
func (h *Handler) MarkAvailable(c *gin.Context) {
	userID := auth.MustUserID(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req MarkAvailableRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apperrors.Respond(c, apperrors.Validation("%s", err.Error()))
		return
	}
	groupIDs := dedupe(req.GroupIDs)

	var product models.Product
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		owned, err := loadOwned(tx, id, userID, "modify")
		if err != nil {
			return err
		}

		var groups []models.Group
		if len(groupIDs) > 0 {
			if err := tx.Where("id IN ? AND owner_id = ?", groupIDs, userID).Find(&groups).Error; err != nil {
				return err
			}
			if len(groups) != len(groupIDs) {
				return apperrors.Validation("Some groups are invalid or do not belong to you")
			}
		}

		if err := tx.Model(owned).Update("is_available", true).Error; err != nil {
			return err
		}
		if len(groups) > 0 {
			err = tx.Model(owned).Association("Groups").Replace(groups)
		} else {
			err = tx.Model(owned).Association("Groups").Clear()
		}
		if err != nil {
			return err
		}
		return withDetails(tx).First(&product, owned.ID).Error
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ProductEnvelope{Message: "Food item marked as available", Product: views.Product(product)})
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// ExpiringWindow returns [start, end) covering today through today+days, UTC
func ExpiringWindow(now time.Time, days int) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, days+1)
}

// Expiring lists the user's items expiring soon
// @Summary List expiring food items
// @Description Owned products expiring between today and today+days
// @Tags foods
// @Produce json
// @Param days query int false "Look-ahead in days (1-30, default 3)"
// @Success 200 {object} ListResponse
// @Failure 400 {object} apperrors.Body "Invalid days"
// @Router /foods/expiring [get]
func (h *Handler) Expiring(c *gin.Context) {
	userID := auth.MustUserID(c)

	days := DefaultExpiringDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxExpiringDays {
			apperrors.Respond(c, apperrors.Validation("days must be between 1 and %d", MaxExpiringDays))
			return
		}
		days = n
	}

	start, end := ExpiringWindow(time.Now(), days)
	var products []models.Product
	err := withDetails(h.db.WithContext(c.Request.Context())).
		Where("owner_id = ?", userID).
		Where("expires_on >= ? AND expires_on < ?", start, end).
		Order("expires_on ASC").Order("id ASC").
		Find(&products).Error
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Count:      len(products),
		ExpiringIn: fmt.Sprintf("%d days", days),
		Products:   views.Products(products),
	})
}

// Available lists what friends currently offer the user
// @Summary List food available from friends
// @Description Available products of accepted friends, honouring group scoping
// @Tags foods
// @Produce json
// @Success 200 {object} ListResponse
// @Router /foods/available [get]
func (h *Handler) Available(c *gin.Context) {
	userID := auth.MustUserID(c)

	var products []models.Product
	err := h.db.WithContext(c.Request.Context()).
		Scopes(access.VisibleTo(userID)).
		Preload("Category").
		Preload("Owner").
		Order("expires_on ASC").Order("id ASC").
		Find(&products).Error
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Count: len(products), Products: views.Products(products)})
}

// RegisterRoutes registers food routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/expiring", h.Expiring)
	rg.GET("/available", h.Available)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.PATCH("/:id/mark-available", h.MarkAvailable)
	rg.GET("/:id/share-link", h.ShareLink)
}
