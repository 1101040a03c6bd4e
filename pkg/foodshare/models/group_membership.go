package models

import "time"

// GroupMembership places an accepted friendship into one of the owner's groups
type GroupMembership struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	GroupID      uint      `gorm:"not null;uniqueIndex:idx_group_friendship" json:"group_id"`
	FriendshipID uint      `gorm:"not null;uniqueIndex:idx_group_friendship;index" json:"friendship_id"`

	// Relationships
	Group      Group      `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	Friendship Friendship `gorm:"foreignKey:FriendshipID" json:"friendship,omitempty"`
}
