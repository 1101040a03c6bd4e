package friends

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

// Service owns the friendship ledger
type Service struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewService creates a friendship service publishing to publisher
func NewService(db *gorm.DB, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{db: db, publisher: publisher}
}

// SendInput names the target by ID or by email
type SendInput struct {
	FriendID    uint
	FriendEmail string
	Preference  *string
}

func duplicateFriendship() error {
	return apperrors.Conflict("Friendship already exists or pending")
}

// insertFriendship creates f; the pair_key index rejects a request that
// raced in from either side.
func insertFriendship(tx *gorm.DB, f *models.Friendship) error {
	if err := tx.Create(f).Error; err != nil {
		if apperrors.IsUniqueViolation(err) {
			return duplicateFriendship()
		}
		return err
	}
	return nil
}

// Send creates a PENDING friendship from initiatorID to the target
func (s *Service) Send(ctx context.Context, initiatorID uint, in SendInput) (*models.Friendship, error) {
	var preference *models.Preference
	if in.Preference != nil && *in.Preference != "" {
		p := models.Preference(strings.ToUpper(*in.Preference))
		if !p.Valid() {
			return nil, apperrors.Validation("Invalid preference value")
		}
		preference = &p
	}
	if in.FriendID == 0 && strings.TrimSpace(in.FriendEmail) == "" {
		return nil, apperrors.Validation("Friend ID or email is required")
	}
	if in.FriendID == initiatorID {
		return nil, apperrors.Validation("You cannot add yourself as a friend")
	}

	var friendship models.Friendship
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.User
		query := tx.Select("id")
		if in.FriendID != 0 {
			query = query.Where("id = ?", in.FriendID)
		} else {
			query = query.Where("email = ?", models.NormalizeEmail(in.FriendEmail))
		}
		if err := query.First(&target).Error; err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NotFound("User not found")
			}
			return err
		}
		if target.ID == initiatorID {
			return apperrors.Validation("You cannot add yourself as a friend")
		}

		if _, err := access.Friendship(tx, initiatorID, target.ID); err == nil {
			return duplicateFriendship()
		} else if !apperrors.IsNotFound(err) {
			return err
		}

		friendship = models.Friendship{
			UserID:     initiatorID,
			FriendID:   target.ID,
			Status:     models.FriendshipPending,
			Preference: preference,
		}
		if err := insertFriendship(tx, &friendship); err != nil {
			return err
		}
		return tx.Preload("User").Preload("Friend").First(&friendship, friendship.ID).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordFriendRequest("sent")
	events.Emit(ctx, s.publisher, events.Event{
		Type:        events.FriendshipRequested,
		ActorID:     initiatorID,
		RecipientID: friendship.FriendID,
		SubjectID:   friendship.ID,
	})
	return &friendship, nil
}

// Respond accepts or rejects a PENDING request addressed to responderID
func (s *Service) Respond(ctx context.Context, responderID, friendshipID uint, accept bool) (*models.Friendship, error) {
	next := models.FriendshipRejected
	if accept {
		next = models.FriendshipAccepted
	}

	var friendship models.Friendship
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&friendship, friendshipID).Error; err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NotFound("Friendship request not found")
			}
			return err
		}
		if friendship.FriendID != responderID {
			return apperrors.Forbidden("Only the recipient can respond to this friend request")
		}
		if friendship.Status != models.FriendshipPending {
			return alreadyResolved(friendship.Status)
		}

		result := tx.Model(&models.Friendship{}).
			Where("id = ? AND status = ?", friendship.ID, models.FriendshipPending).
			Update("status", next)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Lost a race with another response
			if err := tx.First(&friendship, friendship.ID).Error; err != nil {
				return err
			}
			return alreadyResolved(friendship.Status)
		}
		return tx.Preload("User").Preload("Friend").First(&friendship, friendship.ID).Error
	})
	if err != nil {
		return nil, err
	}

	eventType := events.FriendshipRejected
	if accept {
		eventType = events.FriendshipAccepted
	}
	metrics.RecordFriendRequest(strings.ToLower(string(next)))
	events.Emit(ctx, s.publisher, events.Event{
		Type:        eventType,
		ActorID:     responderID,
		RecipientID: friendship.UserID,
		SubjectID:   friendship.ID,
	})
	return &friendship, nil
}

func alreadyResolved(status models.FriendshipStatus) error {
	return apperrors.StateConflict(fmt.Sprintf("Friendship request is already %s", strings.ToLower(string(status))))
}

// List returns every friendship userID is part of, newest first
func (s *Service) List(ctx context.Context, userID uint, status string) ([]models.Friendship, error) {
	query := s.db.WithContext(ctx).
		Preload("User").
		Preload("Friend").
		Where("user_id = ? OR friend_id = ?", userID, userID)

	if status != "" {
		st := models.FriendshipStatus(strings.ToUpper(status))
		if !st.Valid() {
			return nil, apperrors.Validation("Invalid status filter: %s", status)
		}
		query = query.Where("status = ?", st)
	}

	var friendships []models.Friendship
	if err := query.Order("created_at DESC").Order("id DESC").Find(&friendships).Error; err != nil {
		return nil, err
	}
	return friendships, nil
}

// Delete removes a friendship in any status, along with its group memberships
func (s *Service) Delete(ctx context.Context, actorID, friendshipID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var friendship models.Friendship
		if err := tx.First(&friendship, friendshipID).Error; err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NotFound("Friendship not found")
			}
			return err
		}
		if !friendship.Involves(actorID) {
			return apperrors.Forbidden("You are not authorized to delete this friendship")
		}

		if err := tx.Where("friendship_id = ?", friendship.ID).Delete(&models.GroupMembership{}).Error; err != nil {
			return err
		}
		return tx.Delete(&friendship).Error
	})
}

// FriendFoods returns the friend's products that viewerID may see
func (s *Service) FriendFoods(ctx context.Context, viewerID, friendID uint) (*models.User, []models.Product, error) {
	db := s.db.WithContext(ctx)

	var friend models.User
	if err := db.First(&friend, friendID).Error; err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.NotFound("User not found")
		}
		return nil, nil, err
	}

	if _, err := access.AcceptedFriendship(db, viewerID, friendID); err != nil {
		if errors.Is(err, access.ErrNotFriends) {
			return nil, nil, apperrors.Forbidden("You must be friends with this user to view their available foods")
		}
		return nil, nil, err
	}

	var products []models.Product
	err := db.Scopes(access.VisibleTo(viewerID)).
		Preload("Category").
		Preload("Owner").
		Where("products.owner_id = ?", friendID).
		Order("expires_on ASC").
		Find(&products).Error
	if err != nil {
		return nil, nil, err
	}
	return &friend, products, nil
}
