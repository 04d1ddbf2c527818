package store

import (
	"context"
	"sort"
	"time"

	"mediahub/pkg/domain"
)

// Store persists media metadata for the media API.
type Store interface {
	// ListMedia returns every item, newest first.
	ListMedia(ctx context.Context) ([]domain.MediaItem, error)
	// ListByType returns items of one media type, newest first.
	ListByType(ctx context.Context, mediaType domain.MediaType) ([]domain.MediaItem, error)
	GetMedia(ctx context.Context, id string) (domain.MediaItem, bool, error)
	// CreateMedia inserts item under a new id and returns the stored record.
	CreateMedia(ctx context.Context, item domain.MediaItem) (domain.MediaItem, error)
	// SaveMedia replaces an existing record.
	SaveMedia(ctx context.Context, item domain.MediaItem) error
	DeleteMedia(ctx context.Context, id string) (bool, error)
	// InsertMany inserts items best-effort and returns how many were stored.
	InsertMany(ctx context.Context, items []domain.MediaItem) (int, error)
	Close(ctx context.Context) error
}

func sortNewestFirst(items []domain.MediaItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// stampTimes fills unset timestamps for a new record.
func stampTimes(item *domain.MediaItem, now time.Time) {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}
}
