package models

import "time"

// MaxGroupNameLength bounds group names after trimming
const MaxGroupNameLength = 50

// Group is an owner-defined set of accepted friendships.
// Products can be scoped to groups to narrow who sees them.
type Group struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"not null;uniqueIndex:idx_group_owner_name" json:"name"`
	OwnerID   uint      `gorm:"not null;uniqueIndex:idx_group_owner_name" json:"owner_id"`

	// Relationships
	Owner    User              `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members  []GroupMembership `gorm:"foreignKey:GroupID" json:"members,omitempty"`
	Products []Product         `gorm:"many2many:product_groups;" json:"products,omitempty"`
}
