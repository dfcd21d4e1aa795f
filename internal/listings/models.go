package listings

import (
	"time"

	"github.com/google/uuid"
)

// Type distinguishes the two listing kinds the marketplace rents out
type Type string

const (
	TypeRoom Type = "ROOM"
	TypeFlat Type = "FLAT"
)

// IsValid checks if the listing type is recognized
func (t Type) IsValid() bool {
	switch t {
	case TypeRoom, TypeFlat:
		return true
	}
	return false
}

// String returns the string representation of Type
func (t Type) String() string {
	return string(t)
}

// Listing is a read-only view of the marketplace's listings table. Listing
// CRUD and search live in the marketplace services; the booking engine only
// ever reads id, rent, owner and availability, and freezes the fee it
// computes from RentAmount into the Booking record.
type Listing struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID    uuid.UUID `gorm:"type:uuid;index;not null" json:"owner_id"`
	Type       Type      `gorm:"type:varchar(10)" json:"type"`
	RentAmount int64     `gorm:"not null" json:"rent_amount"`
	Active     bool      `gorm:"default:true" json:"active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName sets the table name for Listing
func (Listing) TableName() string {
	return "listings"
}
