package storage

import (
	"context"

	"housing-listings/models"
)

// ListingStore persists scraped listings.
type ListingStore interface {
	EnsureSchema(ctx context.Context) error
	InsertListings(ctx context.Context, listings []*models.Listing) (int, error)
	ListScrapedListings(ctx context.Context) ([]*models.Listing, error)
}

// UserListingStore persists listings submitted through the API.
type UserListingStore interface {
	InsertUserListing(ctx context.Context, l *models.UserListing) (int64, error)
	ListUserListings(ctx context.Context) ([]*models.UserListing, error)
}

// Store is the full storage backend.
type Store interface {
	ListingStore
	UserListingStore
	Close() error
}

// SnapshotWriter records the normalized listings of one ingestion run.
type SnapshotWriter interface {
	WriteListings(listings []*models.Listing) error
	Close() error
}
