package claims

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodshare/pkg/foodshare/apperrors"
	"github.com/mikepea/foodshare/pkg/foodshare/auth"
	"github.com/mikepea/foodshare/pkg/foodshare/views"
)

// Handler handles claim requests
type Handler struct {
	service *Service
}

// NewHandler creates a new claims handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RequestEnvelope wraps a single request with a status message
type RequestEnvelope struct {
	Message string                `json:"message"`
	Request views.RequestResponse `json:"request"`
}

// ListResponse is a list of requests
type ListResponse struct {
	Count    int                     `json:"count"`
	Requests []views.RequestResponse `json:"requests"`
}

// ProductRequestsResponse lists the requests on one product
type ProductRequestsResponse struct {
	Count       int                     `json:"count"`
	ProductID   uint                    `json:"product_id"`
	ProductName string                  `json:"product_name"`
	Requests    []views.RequestResponse `json:"requests"`
}

func parseID(c *gin.Context, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		apperrors.Respond(c, apperrors.Validation("Invalid %s ID", label))
		return 0, false
	}
	return uint(id), true
}

// Claim asks the owner for a food item
// @Summary Claim a food item
// @Description Requires an available item and an accepted friendship with the owner
// @Tags claims
// @Produce json
// @Param id path int true "Food item ID"
// @Success 201 {object} RequestEnvelope
// @Failure 400 {object} apperrors.Body "Own item, unavailable or already claimed"
// @Failure 403 {object} apperrors.Body "Not friends with the owner"
// @Failure 404 {object} apperrors.Body "Not found"
// @Router /foods/{id}/claim [post]
func (h *Handler) Claim(c *gin.Context) {
	userID := auth.MustUserID(c)
	productID, ok := parseID(c, "food item")
	if !ok {
		return
	}

	request, err := h.service.Claim(c.Request.Context(), userID, productID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, RequestEnvelope{Message: "Claim request sent successfully", Request: views.Request(*request)})
}

// MyClaims lists the user's claims
// @Summary List my claims
// @Tags claims
// @Produce json
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Success 200 {object} ListResponse
// @Failure 400 {object} apperrors.Body "Invalid status"
// @Router /foods/my-claims [get]
func (h *Handler) MyClaims(c *gin.Context) {
	requests, err := h.service.Mine(c.Request.Context(), auth.MustUserID(c), c.Query("status"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Count: len(requests), Requests: views.Requests(requests)})
}

// ProductRequests lists the requests on one of the user's items
// @Summary List requests for a food item
// @Tags claims
// @Produce json
// @Param id path int true "Food item ID"
// @Success 200 {object} ProductRequestsResponse
// @Failure 403 {object} apperrors.Body "Not the owner"
// @Failure 404 {object} apperrors.Body "Not found"
// @Router /foods/{id}/requests [get]
func (h *Handler) ProductRequests(c *gin.Context) {
	productID, ok := parseID(c, "food item")
	if !ok {
		return
	}

	product, requests, err := h.service.ForProduct(c.Request.Context(), auth.MustUserID(c), productID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ProductRequestsResponse{
		Count:       len(requests),
		ProductID:   product.ID,
		ProductName: product.Name,
		Requests:    views.Requests(requests),
	})
}

// Received lists requests on the user's items
// @Summary List received requests
// @Tags claims
// @Produce json
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Success 200 {object} ListResponse
// @Failure 400 {object} apperrors.Body "Invalid status"
// @Router /requests/received [get]
func (h *Handler) Received(c *gin.Context) {
	requests, err := h.service.Received(c.Request.Context(), auth.MustUserID(c), c.Query("status"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Count: len(requests), Requests: views.Requests(requests)})
}

// Approve approves a pending request
// @Summary Approve a request
// @Tags claims
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} RequestEnvelope
// @Failure 400 {object} apperrors.Body "Already decided"
// @Failure 403 {object} apperrors.Body "Not the owner"
// @Failure 404 {object} apperrors.Body "Not found"
// @Router /requests/{id}/approve [patch]
func (h *Handler) Approve(c *gin.Context) {
	h.decide(c, true)
}

// Reject rejects a pending request
// @Summary Reject a request
// @Tags claims
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} RequestEnvelope
// @Failure 400 {object} apperrors.Body "Already decided"
// @Failure 403 {object} apperrors.Body "Not the owner"
// @Failure 404 {object} apperrors.Body "Not found"
// @Router /requests/{id}/reject [patch]
func (h *Handler) Reject(c *gin.Context) {
	h.decide(c, false)
}

func (h *Handler) decide(c *gin.Context, approve bool) {
	requestID, ok := parseID(c, "request")
	if !ok {
		return
	}

	request, err := h.service.Decide(c.Request.Context(), auth.MustUserID(c), requestID, approve)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	message := "Request rejected successfully"
	if approve {
		message = "Request approved successfully"
	}
	c.JSON(http.StatusOK, RequestEnvelope{Message: message, Request: views.Request(*request)})
}

// RegisterFoodRoutes registers claim routes under /foods
func (h *Handler) RegisterFoodRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/claim", h.Claim)
	rg.GET("/:id/requests", h.ProductRequests)
	rg.GET("/my-claims", h.MyClaims)
}

// RegisterRoutes registers routes under /requests
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/received", h.Received)
	rg.PATCH("/:id/approve", h.Approve)
	rg.PATCH("/:id/reject", h.Reject)
}
