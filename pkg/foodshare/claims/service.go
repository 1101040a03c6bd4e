// Package claims runs the request lifecycle: a friend claims an available
// item, then the owner approves or rejects the claim. Both outcomes are
// terminal.
package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mikepea/foodshare/pkg/foodshare/access"
	"github.com/mikepea/foodshare/pkg/foodshare/apperrors"
	"github.com/mikepea/foodshare/pkg/foodshare/events"
	"github.com/mikepea/foodshare/pkg/foodshare/metrics"
	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"gorm.io/gorm"
)

// Service owns claims on products
type Service struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewService creates a claim service publishing to publisher
func NewService(db *gorm.DB, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{db: db, publisher: publisher}
}

func existingClaim(status models.RequestStatus) error {
	return apperrors.StateConflict(fmt.Sprintf("You already have a %s request for this item", strings.ToLower(string(status))))
}

// insertRequest creates r; a concurrent claim that won the unique
// (product, claimer) index surfaces as the duplicate-claim conflict.
func insertRequest(tx *gorm.DB, r *models.Request) error {
	if err := tx.Create(r).Error; err != nil {
		if apperrors.IsUniqueViolation(err) {
			return existingClaim(models.RequestPending)
		}
		return err
	}
	return nil
}

// Claim creates a PENDING request by claimerID on productID. Group scoping
// narrows what friends are shown, not what an accepted friend may ask for.
func (s *Service) Claim(ctx context.Context, claimerID, productID uint) (*models.Request, error) {
	var request models.Request
	var ownerID uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NotFound("Food item not found")
			}
			return err
		}
		ownerID = product.OwnerID

		if product.OwnerID == claimerID {
			return apperrors.Validation("You cannot claim your own item")
		}
		if !product.IsAvailable {
			return apperrors.Validation("This food item is not available for claiming")
		}

		if _, err := access.AcceptedFriendship(tx, claimerID, product.OwnerID); err != nil {
			if errors.Is(err, access.ErrNotFriends) {
				return apperrors.Forbidden("You must be friends with the owner to claim their food items")
			}
			return err
		}

		var existing models.Request
		err := tx.Where("product_id = ? AND claimer_id = ?", product.ID, claimerID).First(&existing).Error
		if err == nil {
			return existingClaim(existing.Status)
		}
		if !apperrors.IsNotFound(err) {
			return err
		}

		request = models.Request{ProductID: product.ID, ClaimerID: claimerID, Status: models.RequestPending}
		if err := insertRequest(tx, &request); err != nil {
			return err
		}
		return withDetails(tx).First(&request, request.ID).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			metrics.RecordClaim("refused")
		}
		return nil, err
	}

	metrics.RecordClaim("created")
	events.Emit(ctx, s.publisher, events.Event{
		Type:        events.ClaimCreated,
		ActorID:     claimerID,
		RecipientID: ownerID,
		SubjectID:   request.ID,
		Data:        map[string]interface{}{"product_id": productID},
	})
	return &request, nil
}

// Decide approves or rejects a PENDING request on one of ownerID's products.
// Availability and other claims on the product are left as they are.
func (s *Service) Decide(ctx context.Context, ownerID, requestID uint, approve bool) (*models.Request, error) {
	next, verb := models.RequestRejected, "reject"
	if approve {
		next, verb = models.RequestApproved, "approve"
	}

	var request models.Request
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Product").First(&request, requestID).Error; err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NotFound("Request not found")
			}
			return err
		}
		if request.Product.OwnerID != ownerID {
			return apperrors.Forbidden("You can only " + verb + " requests for your own food items")
		}
		if request.Status != models.RequestPending {
			return apperrors.StateConflict(fmt.Sprintf("Request is already %s", strings.ToLower(string(request.Status))))
		}

		result := tx.Model(&models.Request{}).
			Where("id = ? AND status = ?", request.ID, models.RequestPending).
			Update("status", next)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var current models.Request
			if err := tx.First(&current, request.ID).Error; err != nil {
				return err
			}
			return apperrors.StateConflict(fmt.Sprintf("Request is already %s", strings.ToLower(string(current.Status))))
		}
		return withDetails(tx).First(&request, request.ID).Error
	})
	if err != nil {
		return nil, err
	}

	eventType := events.ClaimRejected
	if approve {
		eventType = events.ClaimApproved
	}
	metrics.RecordClaim(strings.ToLower(string(next)))
	events.Emit(ctx, s.publisher, events.Event{
		Type:        eventType,
		ActorID:     ownerID,
		RecipientID: request.ClaimerID,
		SubjectID:   request.ID,
		Data:        map[string]interface{}{"product_id": request.ProductID},
	})
	return &request, nil
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Product.Category").
		Preload("Product.Owner").
		Preload("Claimer")
}

func statusFilter(db *gorm.DB, status string) (*gorm.DB, error) {
	if status == "" {
		return db, nil
	}
	st := models.RequestStatus(strings.ToUpper(status))
	if !st.Valid() {
		return nil, apperrors.Validation("Invalid status filter: %s", status)
	}
	return db.Where("requests.status = ?", st), nil
}

// Received lists requests on ownerID's products, newest first
func (s *Service) Received(ctx context.Context, ownerID uint, status string) ([]models.Request, error) {
	db := s.db.WithContext(ctx)
	owned := db.Model(&models.Product{}).Select("id").Where("owner_id = ?", ownerID)
	query := withDetails(db).Where("requests.product_id IN (?)", owned)
	query, err := statusFilter(query, status)
	if err != nil {
		return nil, err
	}

	var requests []models.Request
	if err := query.Order("requests.created_at DESC").Order("requests.id DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// Mine lists requests made by claimerID, newest first
func (s *Service) Mine(ctx context.Context, claimerID uint, status string) ([]models.Request, error) {
	query := withDetails(s.db.WithContext(ctx)).Where("requests.claimer_id = ?", claimerID)
	query, err := statusFilter(query, status)
	if err != nil {
		return nil, err
	}

	var requests []models.Request
	if err := query.Order("requests.created_at DESC").Order("requests.id DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// ForProduct lists the requests on one of ownerID's products
func (s *Service) ForProduct(ctx context.Context, ownerID, productID uint) (*models.Product, []models.Request, error) {
	db := s.db.WithContext(ctx)

	var product models.Product
	if err := db.First(&product, productID).Error; err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.NotFound("Food item not found")
		}
		return nil, nil, err
	}
	if product.OwnerID != ownerID {
		return nil, nil, apperrors.Forbidden("You can only view requests for your own food items")
	}

	var requests []models.Request
	err := withDetails(db).
		Where("requests.product_id = ?", productID).
		Order("requests.created_at DESC").Order("requests.id DESC").
		Find(&requests).Error
	if err != nil {
		return nil, nil, err
	}
	return &product, requests, nil
}
