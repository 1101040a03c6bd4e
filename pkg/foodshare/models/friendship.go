package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// FriendshipStatus is the lifecycle state of a friendship
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "PENDING"
	FriendshipAccepted FriendshipStatus = "ACCEPTED"
	FriendshipRejected FriendshipStatus = "REJECTED"
)

// Valid reports whether s is a known friendship status
func (s FriendshipStatus) Valid() bool {
	switch s {
	case FriendshipPending, FriendshipAccepted, FriendshipRejected:
		return true
	}
	return false
}

// Preference is an optional dietary tag attached to a friendship
type Preference string

const (
	PreferenceOmnivor    Preference = "OMNIVOR"
	PreferenceVegetarian Preference = "VEGETARIAN"
	PreferenceCarnivor   Preference = "CARNIVOR"
	PreferenceVegan      Preference = "VEGAN"
	PreferenceRawVegan   Preference = "RAW_VEGAN"
	PreferenceAltceva    Preference = "ALTCEVA"
)

// Preferences lists every accepted preference value
var Preferences = []Preference{
	PreferenceOmnivor,
	PreferenceVegetarian,
	PreferenceCarnivor,
	PreferenceVegan,
	PreferenceRawVegan,
	PreferenceAltceva,
}

// Valid reports whether p is one of Preferences
func (p Preference) Valid() bool {
	for _, known := range Preferences {
		if p == known {
			return true
		}
	}
	return false
}

// Friendship links an initiator (UserID) to a target (FriendID).
// It is directional while pending and symmetric once accepted.
type Friendship struct {
	ID         uint             `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	UserID     uint             `gorm:"not null;index" json:"user_id"`
	FriendID   uint             `gorm:"not null;index" json:"friend_id"`
	PairKey    string           `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	Status     FriendshipStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Preference *Preference      `gorm:"type:varchar(20)" json:"preference"`

	// Relationships
	User   User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Friend User `gorm:"foreignKey:FriendID" json:"friend,omitempty"`
}

// BeforeCreate fills PairKey so the unique index covers the unordered pair
func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	f.PairKey = PairKey(f.UserID, f.FriendID)
	return nil
}

// PairKey returns the order-independent key for two user IDs
func PairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// Involves reports whether userID is either party
func (f *Friendship) Involves(userID uint) bool {
	return f.UserID == userID || f.FriendID == userID
}

// OtherParty returns the ID of the user that is not userID
func (f *Friendship) OtherParty(userID uint) uint {
	if f.UserID == userID {
		return f.FriendID
	}
	return f.UserID
}
