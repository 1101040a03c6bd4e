package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents a registered account
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Name         string    `gorm:"not null" json:"name"`

	// Relationships
	Products []Product `gorm:"foreignKey:OwnerID" json:"products,omitempty"`
	Groups   []Group   `gorm:"foreignKey:OwnerID" json:"groups,omitempty"`
}

// BeforeSave keeps emails lower-cased so lookups and the unique index agree
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
