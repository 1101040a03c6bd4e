package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCategories is the reference data seeded on startup
var DefaultCategories = []string{
	"Lactate",
	"Carne",
	"Pește",
	"Legume",
	"Fructe",
	"Pâine",
	"Dulciuri",
	"Băuturi",
	"Condimente",
	"Altele",
}

// Category is a food category (reference data)
type Category struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
}

// SeedCategories inserts any missing default categories
func SeedCategories(db *gorm.DB) error {
	categories := make([]Category, len(DefaultCategories))
	for i, name := range DefaultCategories {
		categories[i] = Category{Name: name}
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&categories).Error
}
