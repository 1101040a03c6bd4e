// Package access answers who may see whose food.
//
// A viewer sees a product when the owner and the viewer are ACCEPTED friends,
// the product is available, and either the product has no scoping groups or
// the viewer's friendship with the owner is a member of one of them.
package access

import (
	"errors"

	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"gorm.io/gorm"
)

// ErrNotFriends is returned when two users have no accepted friendship
var ErrNotFriends = errors.New("users are not friends")

// Friendship returns the friendship between a and b in any status
func Friendship(db *gorm.DB, a, b uint) (*models.Friendship, error) {
	var f models.Friendship
	err := db.Where("pair_key = ?", models.PairKey(a, b)).First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// AcceptedFriendship returns the ACCEPTED friendship between a and b
func AcceptedFriendship(db *gorm.DB, a, b uint) (*models.Friendship, error) {
	f, err := Friendship(db, a, b)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFriends
		}
		return nil, err
	}
	if f.Status != models.FriendshipAccepted {
		return nil, ErrNotFriends
	}
	return f, nil
}

const friendOwnersSQL = `products.owner_id IN (
	SELECT CASE WHEN f.user_id = @viewer THEN f.friend_id ELSE f.user_id END
	FROM friendships f
	WHERE f.status = @accepted AND (f.user_id = @viewer OR f.friend_id = @viewer))`

const scopedToViewerSQL = `(NOT EXISTS (
	SELECT 1 FROM product_groups pg WHERE pg.product_id = products.id
) OR EXISTS (
	SELECT 1 FROM product_groups pg
	JOIN group_memberships gm ON gm.group_id = pg.group_id
	JOIN friendships f ON f.id = gm.friendship_id
	WHERE pg.product_id = products.id
	AND f.status = @accepted
	AND ((f.user_id = @viewer AND f.friend_id = products.owner_id)
		OR (f.friend_id = @viewer AND f.user_id = products.owner_id))
))`

// VisibleTo scopes a products query to what viewerID may see
func VisibleTo(viewerID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		args := map[string]interface{}{
			"viewer":   viewerID,
			"accepted": models.FriendshipAccepted,
		}
		return db.
			Where("products.is_available = ?", true).
			Where(friendOwnersSQL, args).
			Where(scopedToViewerSQL, args)
	}
}
