package groups

import (
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodshare/pkg/foodshare/apperrors"
	"github.com/mikepea/foodshare/pkg/foodshare/auth"
	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"github.com/mikepea/foodshare/pkg/foodshare/sanitize"
	"github.com/mikepea/foodshare/pkg/foodshare/views"
	"gorm.io/gorm"
)

// Handler handles group-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new groups handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// GroupRequest is the body for creating or renaming a group
type GroupRequest struct {
	Name string `json:"name" binding:"required"`
}

// GroupEnvelope wraps a single group with a status message
type GroupEnvelope struct {
	Message string              `json:"message,omitempty"`
	Group   views.GroupResponse `json:"group"`
}

// ListResponse is the owner's group list
type ListResponse struct {
	Count  int                   `json:"count"`
	Groups []views.GroupResponse `json:"groups"`
}

func duplicateName() error {
	return apperrors.Conflict("You already have a group with this name")
}

// insertGroup creates g, relying on the (owner, name) index for uniqueness
func insertGroup(db *gorm.DB, g *models.Group) error {
	if err := db.Create(g).Error; err != nil {
		if apperrors.IsUniqueViolation(err) {
			return duplicateName()
		}
		return err
	}
	return nil
}

func parseID(c *gin.Context, param, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		apperrors.Respond(c, apperrors.Validation("Invalid %s ID", label))
		return 0, false
	}
	return uint(id), true
}

func cleanName(raw string) (string, error) {
	name := sanitize.Text(raw)
	if name == "" {
		return "", apperrors.Validation("Group name is required")
	}
	if utf8.RuneCountInString(name) > models.MaxGroupNameLength {
		return "", apperrors.Validation("Group name cannot exceed %d characters", models.MaxGroupNameLength)
	}
	return name, nil
}

func withMembers(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("group_memberships.id") }).
		Preload("Members.Friendship.User").
		Preload("Members.Friendship.Friend")
}

// loadOwned fetches a group with members, enforcing ownership
func loadOwned(db *gorm.DB, groupID, userID uint, action string) (*models.Group, error) {
	var group models.Group
	if err := withMembers(db).First(&group, groupID).Error; err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound("Group not found")
		}
		return nil, err
	}
	if group.OwnerID != userID {
		return nil, apperrors.Forbidden("You can only " + action + " your own groups")
	}
	return &group, nil
}

// List returns the user's groups
// @Summary List groups
// @Description Get all groups owned by the current user, with members
// @Tags groups
// @Produce json
// @Success 200 {object} ListResponse
// @Router /groups [get]
func (h *Handler) List(c *gin.Context) {
	userID := auth.MustUserID(c)

	var groups []models.Group
	err := withMembers(h.db.WithContext(c.Request.Context())).
		Where("owner_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&groups).Error
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Count: len(groups), Groups: views.Groups(groups)})
}

// Create creates a new group
// @Summary Create a group
// @Description Create a named group; names are unique per owner
// @Tags groups
// @Accept json
// @Produce json
// @Param request body GroupRequest true "Group details"
// @Success 201 {object} GroupEnvelope
// @Failure 400 {object} apperrors.Body "Validation error"
// @Failure 409 {object} apperrors.Body "Duplicate name"
// @Router /groups [post]
func (h *Handler) Create(c *gin.Context) {
	userID := auth.MustUserID(c)

	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("Group name is required"))
		return
	}
	name, err := cleanName(req.Name)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	group := models.Group{Name: name, OwnerID: userID}
	if err := insertGroup(h.db.WithContext(c.Request.Context()), &group); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, GroupEnvelope{Message: "Group created successfully", Group: views.Group(group)})
}

// Get returns a specific group
// @Summary Get a group
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} GroupEnvelope
// @Failure 403 {object} apperrors.Body "Not the owner"
// @Failure 404 {object} apperrors.Body "Group not found"
// @Router /groups/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID := auth.MustUserID(c)
	groupID, ok := parseID(c, "id", "group")
	if !ok {
		return
	}

	group, err := loadOwned(h.db.WithContext(c.Request.Context()), groupID, userID, "view")
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, GroupEnvelope{Group: views.Group(*group)})
}

// Update renames a group
// @Summary Rename a group
// @Tags groups
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body GroupRequest true "New name"
// @Success 200 {object} GroupEnvelope
// @Failure 400 {object} apperrors.Body "Validation error"
// @Failure 403 {object} apperrors.Body "Not the owner"
// @Failure 404 {object} apperrors.Body "Group not found"
// @Failure 409 {object} apperrors.Body "Duplicate name"
// @Router /groups/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	userID := auth.MustUserID(c)
	groupID, ok := parseID(c, "id", "group")
	if !ok {
		return
	}

	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("Group name is required"))
		return
	}
	name, err := cleanName(req.Name)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	var group *models.Group
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		group, err = loadOwned(tx, groupID, userID, "update")
		if err != nil {
			return err
		}
		if err := tx.Model(group).Update("name", name).Error; err != nil {
			if apperrors.IsUniqueViolation(err) {
				return duplicateName()
			}
			return err
		}
		group.Name = name
		return nil
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, GroupEnvelope{Message: "Group updated successfully", Group: views.Group(*group)})
}

// Delete deletes a group, its memberships and its product scoping. Products
// left without any scoping group are made unavailable rather than opened
// up to every friend.
// @Summary Delete a group
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} apperrors.Body "Not the owner"
// @Failure 404 {object} apperrors.Body "Group not found"
// @Router /groups/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID := auth.MustUserID(c)
	groupID, ok := parseID(c, "id", "group")
	if !ok {
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.First(&group, groupID).Error; err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NotFound("Group not found")
			}
			return err
		}
		if group.OwnerID != userID {
			return apperrors.Forbidden("You can only delete your own groups")
		}

		var scoped []uint
		if err := tx.Table("product_groups").Where("group_id = ?", group.ID).Pluck("product_id", &scoped).Error; err != nil {
			return err
		}

		if err := tx.Where("group_id = ?", group.ID).Delete(&models.GroupMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM product_groups WHERE group_id = ?", group.ID).Error; err != nil {
			return err
		}
		if len(scoped) > 0 {
			err := tx.Model(&models.Product{}).
				Where("id IN ?", scoped).
				Where("NOT EXISTS (SELECT 1 FROM product_groups pg WHERE pg.product_id = products.id)").
				Update("is_available", false).Error
			if err != nil {
				return err
			}
		}
		return tx.Delete(&group).Error
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Group deleted successfully"})
}

// RegisterRoutes registers group routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
