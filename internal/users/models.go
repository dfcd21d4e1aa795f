package users

import (
	"time"

	"github.com/google/uuid"
)

// Role mirrors the marketplace's user roles
type Role string

const (
	RoleUser   Role = "USER"
	RoleLender Role = "LENDER"
	RoleAdmin  Role = "ADMIN"
)

// User is a read-only view of the marketplace's users table. Registration
// and profile management live in the user service; the booking engine only
// reads contact details for the gateway checkout session.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `json:"name"`
	Email     string    `gorm:"index" json:"email"`
	Phone     string    `json:"phone"`
	Role      Role      `gorm:"type:varchar(10)" json:"role"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for User
func (User) TableName() string {
	return "users"
}

// Contact is the slice of a user the gateways need
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
