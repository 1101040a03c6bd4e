package importexport

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodshare/pkg/foodshare/apperrors"
	"github.com/mikepea/foodshare/pkg/foodshare/auth"
	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"github.com/mikepea/foodshare/pkg/foodshare/sanitize"
	"github.com/mikepea/foodshare/pkg/foodshare/views"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// MaxImportItems bounds a single import request
const MaxImportItems = 500

const (
	sheetName = "Inventory"
	xlsxType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handler handles inventory import/export requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new import/export handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// InventoryItem is one food item in the import/export format
type InventoryItem struct {
	Name        string  `json:"name"`
	Category    string  `json:"category,omitempty"`
	ExpiresOn   string  `json:"expires_on"`
	Notes       *string `json:"notes,omitempty"`
	IsAvailable bool    `json:"is_available"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// ImportRequest represents an import request
type ImportRequest struct {
	Items []InventoryItem `json:"items" binding:"required"`
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// categoryIndex maps lower-cased category names to IDs
func (h *Handler) categoryIndex(db *gorm.DB) (map[string]uint, error) {
	var categories []models.Category
	if err := db.Find(&categories).Error; err != nil {
		return nil, err
	}
	index := make(map[string]uint, len(categories))
	for _, c := range categories {
		index[strings.ToLower(c.Name)] = c.ID
	}
	return index, nil
}

// Import adds food items in bulk. Imported items start unavailable
// regardless of is_available in the payload.
// @Summary Import food items
// @Description Bulk-create items; invalid rows are skipped and reported
// @Tags foods
// @Accept json
// @Produce json
// @Param request body ImportRequest true "Items"
// @Success 200 {object} ImportResult
// @Failure 400 {object} apperrors.Body "Validation error"
// @Router /foods/import [post]
func (h *Handler) Import(c *gin.Context) {
	userID := auth.MustUserID(c)

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("%s", err.Error()))
		return
	}
	if len(req.Items) > MaxImportItems {
		apperrors.Respond(c, apperrors.Validation("Cannot import more than %d items at once", MaxImportItems))
		return
	}

	db := h.db.WithContext(c.Request.Context())
	categories, err := h.categoryIndex(db)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	result := ImportResult{Errors: []string{}}
	products := make([]models.Product, 0, len(req.Items))

	for i, item := range req.Items {
		skip := func(reason string) {
			result.Errors = append(result.Errors, "item "+strconv.Itoa(i)+": "+reason)
			result.Skipped++
		}

		name := sanitize.Text(item.Name)
		if name == "" {
			skip("name is required")
			continue
		}
		expiresOn, err := views.ParseDate(item.ExpiresOn)
		if err != nil {
			skip("invalid expiration date")
			continue
		}

		product := models.Product{Name: name, ExpiresOn: expiresOn, OwnerID: userID}
		if item.Category != "" {
			id, ok := categories[strings.ToLower(strings.TrimSpace(item.Category))]
			if !ok {
				skip("unknown category " + strconv.Quote(item.Category))
				continue
			}
			product.CategoryID = &id
		}
		if item.Notes != nil {
			if notes := sanitize.Text(*item.Notes); notes != "" {
				product.Notes = &notes
			}
		}
		products = append(products, product)
	}

	if len(products) > 0 {
		if err := db.Create(&products).Error; err != nil {
			apperrors.Respond(c, apperrors.Internal(err, "Failed to import food items"))
			return
		}
	}
	result.Imported = len(products)

	c.JSON(http.StatusOK, result)
}

func (h *Handler) inventory(db *gorm.DB, userID uint) ([]InventoryItem, error) {
	var products []models.Product
	if err := db.Preload("Category").Where("owner_id = ?", userID).Order("expires_on ASC").Order("id ASC").Find(&products).Error; err != nil {
		return nil, err
	}

	items := make([]InventoryItem, len(products))
	for i, p := range products {
		items[i] = InventoryItem{
			Name:        p.Name,
			ExpiresOn:   p.ExpiresOn.UTC().Format(views.DateLayout),
			Notes:       p.Notes,
			IsAvailable: p.IsAvailable,
			CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		}
		if p.Category != nil {
			items[i].Category = p.Category.Name
		}
	}
	return items, nil
}

// Export downloads the user's inventory as JSON or an Excel workbook
// @Summary Export food items
// @Tags foods
// @Produce json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "json (default) or xlsx"
// @Param download query bool false "Send as attachment"
// @Success 200 {array} InventoryItem
// @Failure 400 {object} apperrors.Body "Unknown format"
// @Router /foods/export [get]
func (h *Handler) Export(c *gin.Context) {
	userID := auth.MustUserID(c)

	format := strings.ToLower(c.DefaultQuery("format", "json"))
	if format != "json" && format != "xlsx" {
		apperrors.Respond(c, apperrors.Validation("format must be json or xlsx"))
		return
	}

	items, err := h.inventory(h.db.WithContext(c.Request.Context()), userID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	if format == "xlsx" {
		data, err := Workbook(items)
		if err != nil {
			apperrors.Respond(c, apperrors.Internal(err, "Failed to build workbook"))
			return
		}
		c.Header("Content-Disposition", "attachment; filename=foodshare-inventory.xlsx")
		c.Data(http.StatusOK, xlsxType, data)
		return
	}

	// Set content disposition for download
	if c.Query("download") == "true" {
		c.Header("Content-Disposition", "attachment; filename=foodshare-inventory.json")
	}
	c.JSON(http.StatusOK, items)
}

// Workbook renders items as a single-sheet xlsx file
func Workbook(items []InventoryItem) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	header := []interface{}{"Name", "Category", "Expires on", "Notes", "Available", "Added"}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return nil, err
	}

	for i, item := range items {
		notes := ""
		if item.Notes != nil {
			notes = *item.Notes
		}
		available := "no"
		if item.IsAvailable {
			available = "yes"
		}
		row := []interface{}{item.Name, item.Category, item.ExpiresOn, notes, available, item.CreatedAt}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(sheetName, "A", "D", 24); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RegisterRoutes registers import/export routes under /foods
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/import", h.Import)
	rg.GET("/export", h.Export)
}
