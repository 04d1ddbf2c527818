package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"mediahub/pkg/domain"
	"mediahub/services/media/internal/events"
	"mediahub/services/media/internal/storage"
	"mediahub/services/media/internal/store"
)

var (
	ErrNotFound        = errors.New("media not found")
	ErrNoFile          = errors.New("No file uploaded")
	ErrUnsupportedType = errors.New("Only image and video uploads are allowed")
	ErrInvalidImport   = errors.New("Invalid JSON format: expected an array")
)

// ValidationError carries a user-facing message for a rejected request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Config wires the application's dependencies.
type Config struct {
	Store  store.Store
	Blobs  storage.Blobs
	Events events.Publisher
	Logger *slog.Logger
	Now    func() time.Time
}

// App implements the media catalogue operations behind the HTTP API.
type App struct {
	store    store.Store
	blobs    storage.Blobs
	events   events.Publisher
	logger   *slog.Logger
	now      func() time.Time
	validate *validator.Validate
}

// Upload is a file received with a create or update request.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("media store required")
	}
	if cfg.Blobs == nil {
		return nil, errors.New("blob storage required")
	}
	if cfg.Events == nil {
		cfg.Events = events.Noop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &App{
		store:    cfg.Store,
		blobs:    cfg.Blobs,
		events:   cfg.Events,
		logger:   cfg.Logger,
		now:      cfg.Now,
		validate: newValidator(),
	}, nil
}

func (a *App) ListMedia(ctx context.Context) ([]domain.MediaItem, error) {
	return a.store.ListMedia(ctx)
}

func (a *App) GetMedia(ctx context.Context, id string) (domain.MediaItem, error) {
	item, ok, err := a.store.GetMedia(ctx, id)
	if err != nil {
		return domain.MediaItem{}, err
	}
	if !ok {
		return domain.MediaItem{}, ErrNotFound
	}
	return item, nil
}

// CreateMedia stores the optional upload and inserts the record.
// baseURL is the public origin used to build /uploads links.
func (a *App) CreateMedia(ctx context.Context, in CreateInput, file *Upload, baseURL string) (domain.MediaItem, error) {
	item := in.item()
	var saved []string
	if file != nil {
		stored, err := a.saveUpload(ctx, file, item.MediaType == domain.MediaImage && item.ThumbnailURL == "")
		if err != nil {
			return domain.MediaItem{}, err
		}
		saved = stored.names()
		item.FileName = stored.name
		item.SourceURL = uploadURL(baseURL, stored.name)
		if stored.thumbName != "" {
			item.ThumbnailURL = uploadURL(baseURL, stored.thumbName)
		}
	}
	// Uploaded videos keep only an explicit thumbnail; everything else falls back to the source.
	if item.ThumbnailURL == "" && (file == nil || item.MediaType != domain.MediaVideo) {
		item.ThumbnailURL = item.SourceURL
	}
	now := a.now()
	if item.UploadedAt == "" {
		item.UploadedAt = now.Format(time.RFC3339)
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	if err := a.check(item); err != nil {
		a.discard(ctx, saved...)
		return domain.MediaItem{}, err
	}
	created, err := a.store.CreateMedia(ctx, item)
	if err != nil {
		a.discard(ctx, saved...)
		return domain.MediaItem{}, fmt.Errorf("save media: %w", err)
	}
	a.publish(ctx, events.NewEvent(events.MediaCreated, created.ID))
	return created, nil
}

// UpdateMedia applies patch and an optional replacement upload.
func (a *App) UpdateMedia(ctx context.Context, id string, patch domain.MediaPatch, file *Upload, baseURL string) (domain.MediaItem, error) {
	existing, ok, err := a.store.GetMedia(ctx, id)
	if err != nil {
		return domain.MediaItem{}, err
	}
	if !ok {
		return domain.MediaItem{}, ErrNotFound
	}
	if patch.SourceURL != nil && strings.TrimSpace(*patch.SourceURL) == "" {
		patch.SourceURL = nil
	}
	var saved []string
	if file != nil {
		stored, err := a.saveUpload(ctx, file, false)
		if err != nil {
			return domain.MediaItem{}, err
		}
		saved = stored.names()
		src := uploadURL(baseURL, stored.name)
		patch.SourceURL = &src
		patch.FileName = &stored.name
	}
	updated := patch.Apply(existing)
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = a.now()
	if err := a.check(updated); err != nil {
		a.discard(ctx, saved...)
		return domain.MediaItem{}, err
	}
	if err := a.store.SaveMedia(ctx, updated); err != nil {
		a.discard(ctx, saved...)
		return domain.MediaItem{}, fmt.Errorf("save media: %w", err)
	}
	if file != nil && existing.FileName != "" && existing.FileName != updated.FileName {
		a.discard(ctx, existing.FileName)
	}
	a.publish(ctx, events.NewEvent(events.MediaUpdated, updated.ID))
	return updated, nil
}

func (a *App) DeleteMedia(ctx context.Context, id string) error {
	existing, ok, err := a.store.GetMedia(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	deleted, err := a.store.DeleteMedia(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	if existing.FileName != "" {
		a.discard(ctx, existing.FileName)
	}
	a.publish(ctx, events.NewEvent(events.MediaDeleted, id))
	return nil
}

type storedUpload struct {
	name      string
	thumbName string
}

func (s storedUpload) names() []string {
	if s.thumbName == "" {
		return []string{s.name}
	}
	return []string{s.name, s.thumbName}
}

func (a *App) saveUpload(ctx context.Context, file *Upload, wantThumb bool) (storedUpload, error) {
	contentType := uploadContentType(file)
	if !allowedContentType(contentType) {
		return storedUpload{}, ErrUnsupportedType
	}
	name := StoredName(file.Filename, a.now())
	reader := file.Reader
	var buf *bytes.Buffer
	if wantThumb && strings.HasPrefix(contentType, "image/") && file.Size > 0 && file.Size <= maxThumbnailSource {
		buf = &bytes.Buffer{}
		reader = io.TeeReader(reader, buf)
	}
	if err := a.blobs.Save(ctx, name, reader, file.Size, contentType); err != nil {
		return storedUpload{}, fmt.Errorf("save file: %w", err)
	}
	stored := storedUpload{name: name}
	if buf == nil {
		return stored, nil
	}
	thumb, err := makeThumbnail(buf)
	if err != nil {
		a.logger.Warn("thumbnail generation failed", "file", name, "err", err)
		return stored, nil
	}
	thumbName := thumbnailName(name)
	if err := a.blobs.Save(ctx, thumbName, bytes.NewReader(thumb), int64(len(thumb)), "image/jpeg"); err != nil {
		a.logger.Warn("thumbnail save failed", "file", thumbName, "err", err)
		return stored, nil
	}
	stored.thumbName = thumbName
	return stored, nil
}

func (a *App) discard(ctx context.Context, names ...string) {
	for _, name := range names {
		if err := a.blobs.Delete(ctx, name); err != nil {
			a.logger.Warn("delete upload failed", "file", name, "err", err)
		}
	}
}

func (a *App) publish(ctx context.Context, evt events.Event) {
	if err := a.events.Publish(ctx, evt); err != nil {
		a.logger.Warn("publish media event failed", "type", evt.Type, "media_id", evt.MediaID, "err", err)
	}
}

func uploadContentType(file *Upload) string {
	ct := strings.TrimSpace(file.ContentType)
	if ct == "" || ct == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(file.Filename))); byExt != "" {
			ct = byExt
		}
	}
	return ct
}

func allowedContentType(ct string) bool {
	return strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/")
}

func uploadURL(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + "/uploads/" + name
}
