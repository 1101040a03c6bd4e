package friends

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodshare/pkg/foodshare/apperrors"
	"github.com/mikepea/foodshare/pkg/foodshare/auth"
	"github.com/mikepea/foodshare/pkg/foodshare/views"
)

// Handler handles friendship requests
type Handler struct {
	service *Service
}

// NewHandler creates a new friends handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// SendRequest is the body of a friend request. One of FriendID or
// FriendEmail is required.
type SendRequest struct {
	FriendID    uint    `json:"friend_id"`
	FriendEmail string  `json:"friend_email"`
	Preference  *string `json:"preference"`
}

// FriendshipEnvelope wraps a single friendship with a status message
type FriendshipEnvelope struct {
	Message    string                   `json:"message"`
	Friendship views.FriendshipResponse `json:"friendship"`
}

// ListResponse is the friendship list
type ListResponse struct {
	Count       int                        `json:"count"`
	Friendships []views.FriendshipResponse `json:"friendships"`
}

// FriendFoodsResponse lists what a friend offers the viewer
type FriendFoodsResponse struct {
	Count    int                     `json:"count"`
	Friend   views.UserSummary       `json:"friend"`
	Products []views.ProductResponse `json:"products"`
}

func parseID(c *gin.Context, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		apperrors.Respond(c, apperrors.Validation("Invalid %s ID", label))
		return 0, false
	}
	return uint(id), true
}

// List returns the user's friendships
// @Summary List friendships
// @Description Friendships where the user is either party, optionally filtered by status
// @Tags friends
// @Produce json
// @Param status query string false "PENDING, ACCEPTED or REJECTED"
// @Success 200 {object} ListResponse
// @Failure 400 {object} apperrors.Body "Invalid status"
// @Router /friends [get]
func (h *Handler) List(c *gin.Context) {
	userID := auth.MustUserID(c)

	friendships, err := h.service.List(c.Request.Context(), userID, c.Query("status"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Count:       len(friendships),
		Friendships: views.Friendships(friendships, userID),
	})
}

// Send sends a friend request
// @Summary Send a friend request
// @Description Create a PENDING friendship addressed by user ID or email
// @Tags friends
// @Accept json
// @Produce json
// @Param request body SendRequest true "Target user"
// @Success 201 {object} FriendshipEnvelope
// @Failure 400 {object} apperrors.Body "Validation error"
// @Failure 404 {object} apperrors.Body "User not found"
// @Failure 409 {object} apperrors.Body "Friendship exists"
// @Router /friends [post]
func (h *Handler) Send(c *gin.Context) {
	userID := auth.MustUserID(c)

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.Validation("%s", err.Error()))
		return
	}

	friendship, err := h.service.Send(c.Request.Context(), userID, SendInput{
		FriendID:    req.FriendID,
		FriendEmail: req.FriendEmail,
		Preference:  req.Preference,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, FriendshipEnvelope{
		Message:    "Friend request sent successfully",
		Friendship: views.Friendship(*friendship, userID),
	})
}

// Accept accepts a pending friend request
// @Summary Accept a friend request
// @Tags friends
// @Produce json
// @Param id path int true "Friendship ID"
// @Success 200 {object} FriendshipEnvelope
// @Failure 400 {object} apperrors.Body "Already answered"
// @Failure 403 {object} apperrors.Body "Not the recipient"
// @Failure 404 {object} apperrors.Body "Not found"
// @Router /friends/{id}/accept [patch]
func (h *Handler) Accept(c *gin.Context) {
	h.respond(c, true)
}

// Reject rejects a pending friend request
// @Summary Reject a friend request
// @Tags friends
// @Produce json
// @Param id path int true "Friendship ID"
// @Success 200 {object} FriendshipEnvelope
// @Failure 400 {object} apperrors.Body "Already answered"
// @Failure 403 {object} apperrors.Body "Not the recipient"
// @Failure 404 {object} apperrors.Body "Not found"
// @Router /friends/{id}/reject [patch]
func (h *Handler) Reject(c *gin.Context) {
	h.respond(c, false)
}

func (h *Handler) respond(c *gin.Context, accept bool) {
	userID := auth.MustUserID(c)
	id, ok := parseID(c, "friendship")
	if !ok {
		return
	}

	friendship, err := h.service.Respond(c.Request.Context(), userID, id, accept)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	message := "Friend request rejected"
	if accept {
		message = "Friend request accepted"
	}
	c.JSON(http.StatusOK, FriendshipEnvelope{
		Message:    message,
		Friendship: views.Friendship(*friendship, userID),
	})
}

// Delete removes a friendship
// @Summary Delete a friendship
// @Description Either party may delete a friendship in any status
// @Tags friends
// @Produce json
// @Param id path int true "Friendship ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} apperrors.Body "Not a party"
// @Failure 404 {object} apperrors.Body "Not found"
// @Router /friends/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID := auth.MustUserID(c)
	id, ok := parseID(c, "friendship")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Friendship deleted successfully"})
}

// Foods lists a friend's available products
// @Summary List a friend's foods
// @Description Available products of an accepted friend, honouring group scoping
// @Tags friends
// @Produce json
// @Param id path int true "Friend user ID"
// @Success 200 {object} FriendFoodsResponse
// @Failure 403 {object} apperrors.Body "Not friends"
// @Failure 404 {object} apperrors.Body "User not found"
// @Router /friends/{id}/foods [get]
func (h *Handler) Foods(c *gin.Context) {
	userID := auth.MustUserID(c)
	friendID, ok := parseID(c, "user")
	if !ok {
		return
	}

	friend, products, err := h.service.FriendFoods(c.Request.Context(), userID, friendID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, FriendFoodsResponse{
		Count:    len(products),
		Friend:   views.Summary(*friend),
		Products: views.Products(products),
	})
}

// RegisterRoutes registers friend routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Send)
	rg.DELETE("/:id", h.Delete)
	rg.PATCH("/:id/accept", h.Accept)
	rg.PATCH("/:id/reject", h.Reject)
	rg.GET("/:id/foods", h.Foods)
}
