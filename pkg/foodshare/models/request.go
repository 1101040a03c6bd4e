package models

import "time"

// RequestStatus is the state of a claim
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// Valid reports whether s is a known request status
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected:
		return true
	}
	return false
}

// Request is a claim on a product by a friend of its owner.
// There is at most one per (product, claimer).
type Request struct {
	ID        uint          `gorm:"primarykey" json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	ProductID uint          `gorm:"not null;uniqueIndex:idx_product_claimer" json:"product_id"`
	ClaimerID uint          `gorm:"not null;uniqueIndex:idx_product_claimer;index" json:"claimer_id"`
	Status    RequestStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`

	// Relationships
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Claimer User    `gorm:"foreignKey:ClaimerID" json:"claimer,omitempty"`
}
