package listings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rently/pkg/cache"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when the listing does not exist or is inactive
var ErrNotFound = errors.New("listing not found")

// Service is the listing collaborator consumed by the booking engine
type Service interface {
	GetListing(ctx context.Context, id uuid.UUID) (*Listing, error)
}

type service struct {
	db       *gorm.DB
	cache    cache.Service
	cacheTTL time.Duration
}

// NewService creates a listing reader. The cache is optional; when present,
// lookups go through a short-TTL snapshot so a burst of booking attempts on
// a hot listing does not hammer the listings table. Staleness is harmless
// here: the fee is frozen at booking creation and availability is enforced
// by the reservation store, not by this read.
func NewService(db *gorm.DB, cacheService cache.Service, cacheTTL time.Duration) Service {
	return &service{
		db:       db,
		cache:    cacheService,
		cacheTTL: cacheTTL,
	}
}

// GetListing fetches an active listing by id
func (s *service) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	if s.cache == nil {
		return s.fetch(ctx, id)
	}

	var listing Listing
	err := s.cache.GetOrSet(ctx, cacheKey(id), s.cacheTTL, func() (interface{}, error) {
		return s.fetch(ctx, id)
	}, &listing)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &listing, nil
}

func (s *service) fetch(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var listing Listing
	err := s.db.WithContext(ctx).
		Where("id = ? AND active = ?", id, true).
		First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch listing: %w", err)
	}
	return &listing, nil
}

func cacheKey(id uuid.UUID) string {
	return "listing_snapshot:" + id.String()
}
