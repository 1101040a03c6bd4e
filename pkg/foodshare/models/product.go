package models

import "time"

// Product is a food item owned by a user
type Product struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"not null" json:"name"`
	CategoryID  *uint     `gorm:"index" json:"category_id"`
	ExpiresOn   time.Time `gorm:"not null;index" json:"expires_on"`
	Notes       *string   `json:"notes"`
	IsAvailable bool      `gorm:"not null;default:false;index" json:"is_available"`
	OwnerID     uint      `gorm:"not null;index" json:"owner_id"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Owner    User      `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Groups   []Group   `gorm:"many2many:product_groups;" json:"groups,omitempty"`
	Requests []Request `gorm:"foreignKey:ProductID" json:"requests,omitempty"`
}
