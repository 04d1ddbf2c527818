package app

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"mediahub/pkg/domain"
	"mediahub/services/media/internal/events"
)

// importStripped are dropped from every imported record so the store assigns fresh values.
var importStripped = []string{"id", "_id", "createdAt", "updatedAt"}

// ExportVideos renders every video, newest first, as an indented JSON document.
func (a *App) ExportVideos(ctx context.Context) ([]byte, string, error) {
	videos, err := a.store.ListByType(ctx, domain.MediaVideo)
	if err != nil {
		return nil, "", err
	}
	data, err := json.MarshalIndent(videos, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encode export: %w", err)
	}
	return data, ExportFilename(a.now()), nil
}

// ImportVideos inserts every acceptable record from a JSON array.
// Records failing validation are skipped; the number stored is returned.
func (a *App) ImportVideos(ctx context.Context, data []byte) (int, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, &ValidationError{Message: fmt.Sprintf("Invalid JSON: %v", err)}
	}
	records, ok := raw.([]any)
	if !ok {
		return 0, ErrInvalidImport
	}
	items := make([]domain.MediaItem, 0, len(records))
	for i, rec := range records {
		item, err := a.importRecord(rec)
		if err != nil {
			a.logger.Warn("skipping import record", "index", i, "err", err)
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return 0, nil
	}
	inserted, err := a.store.InsertMany(ctx, items)
	if err != nil {
		return 0, fmt.Errorf("insert media: %w", err)
	}
	evt := events.NewEvent(events.MediaImported, "")
	evt.Count = inserted
	a.publish(ctx, evt)
	return inserted, nil
}

func (a *App) importRecord(rec any) (domain.MediaItem, error) {
	fields, ok := rec.(map[string]any)
	if !ok {
		return domain.MediaItem{}, fmt.Errorf("record is not an object")
	}
	for _, key := range importStripped {
		delete(fields, key)
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return domain.MediaItem{}, err
	}
	var item domain.MediaItem
	if err := json.Unmarshal(encoded, &item); err != nil {
		return domain.MediaItem{}, err
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	if item.UploadedAt == "" {
		item.UploadedAt = a.now().Format(time.RFC3339)
	}
	if err := a.check(item); err != nil {
		return domain.MediaItem{}, err
	}
	return item, nil
}
