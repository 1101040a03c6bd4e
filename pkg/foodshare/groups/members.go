package groups

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodshare/pkg/foodshare/apperrors"
	"github.com/mikepea/foodshare/pkg/foodshare/auth"
	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"github.com/mikepea/foodshare/pkg/foodshare/views"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddMembersRequest lists the owner's accepted friendships to add
type AddMembersRequest struct {
	FriendshipIDs []uint `json:"friendship_ids"`
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

// AddMembers adds friendships to a group (owner only)
// @Summary Add group members
// @Description Add ACCEPTED friendships of the owner; existing members are skipped
// @Tags groups
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body AddMembersRequest true "Friendship IDs"
// @Success 200 {object} GroupEnvelope
// @Failure 400 {object} apperrors.Body "Invalid friendships"
// @Failure 403 {object} apperrors.Body "Not the owner"
// @Failure 404 {object} apperrors.Body "Group not found"
// @Router /groups/{id}/members [post]
func (h *Handler) AddMembers(c *gin.Context) {
	userID := auth.MustUserID(c)
	groupID, ok := parseID(c, "id", "group")
	if !ok {
		return
	}

	var req AddMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("friendship_ids must be a non-empty array"))
		return
	}
	ids := dedupe(req.FriendshipIDs)
	if len(ids) == 0 {
		apperrors.Respond(c, apperrors.Validation("friendship_ids must be a non-empty array"))
		return
	}

	var group *models.Group
	var added int64
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		if group, err = loadOwned(tx, groupID, userID, "add members to"); err != nil {
			return err
		}

		var valid int64
		err = tx.Model(&models.Friendship{}).
			Where("id IN ?", ids).
			Where("status = ?", models.FriendshipAccepted).
			Where("user_id = ? OR friend_id = ?", userID, userID).
			Count(&valid).Error
		if err != nil {
			return err
		}
		if int(valid) != len(ids) {
			return apperrors.Validation("Some friendships are invalid or not accepted")
		}

		memberships := make([]models.GroupMembership, len(ids))
		for i, id := range ids {
			memberships[i] = models.GroupMembership{GroupID: group.ID, FriendshipID: id}
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&memberships)
		if result.Error != nil {
			return result.Error
		}
		added = result.RowsAffected

		group, err = loadOwned(tx, groupID, userID, "add members to")
		return err
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, GroupEnvelope{
		Message: fmt.Sprintf("%d members added to group", added),
		Group:   views.Group(*group),
	})
}

// RemoveMember removes a membership from a group (owner only)
// @Summary Remove a group member
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Param membershipId path int true "Membership ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} apperrors.Body "Membership not in group"
// @Failure 403 {object} apperrors.Body "Not the owner"
// @Failure 404 {object} apperrors.Body "Not found"
// @Router /groups/{id}/members/{membershipId} [delete]
func (h *Handler) RemoveMember(c *gin.Context) {
	userID := auth.MustUserID(c)
	groupID, ok := parseID(c, "id", "group")
	if !ok {
		return
	}
	membershipID, ok := parseID(c, "membershipId", "membership")
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
			return apperrors.Forbidden("You can only remove members from your own groups")
		}

		var membership models.GroupMembership
		if err := tx.First(&membership, membershipID).Error; err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NotFound("Membership not found")
			}
			return err
		}
		if membership.GroupID != group.ID {
			return apperrors.Validation("Membership does not belong to this group")
		}
		return tx.Delete(&membership).Error
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed from group successfully"})
}

// RegisterMemberRoutes registers member management routes
func (h *Handler) RegisterMemberRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/members", h.AddMembers)
	rg.DELETE("/:id/members/:membershipId", h.RemoveMember)
}
