package database

import (
	"rently/internal/bookings"

	"gorm.io/gorm"
)

// Migrate runs auto-migrations for the tables this service owns. Listing and
// user tables belong to the marketplace CRUD services and are never migrated
// here.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&bookings.Booking{},
		&bookings.PaymentOrder{},
		&bookings.IdempotencyKey{},
	)
}
