package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when the user does not exist
var ErrNotFound = errors.New("user not found")

// Service is the user collaborator consumed by the booking engine
type Service interface {
	GetContact(ctx context.Context, id uuid.UUID) (*Contact, error)
}

type service struct {
	db *gorm.DB
}

// NewService creates a user contact reader
func NewService(db *gorm.DB) Service {
	return &service{db: db}
}

// GetContact fetches the contact details the gateways require for a
// checkout session. Phone presence is validated by the caller, not here.
func (s *service) GetContact(ctx context.Context, id uuid.UUID) (*Contact, error) {
	var user User
	err := s.db.WithContext(ctx).
		Select("name", "email", "phone").
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &Contact{
		Name:  user.Name,
		Email: user.Email,
		Phone: user.Phone,
	}, nil
}
