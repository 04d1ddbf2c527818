// Package reconcile serves media operations from the media API and falls back
// to the local content store when the API is unreachable. Local writes made
// during an outage are journalled and replayed by Reconcile.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"mediahub/internal/kv"
	"mediahub/internal/mediaclient"
	"mediahub/pkg/domain"
)

// ErrNotFound is returned when neither source has the requested item.
var ErrNotFound = errors.New("media not found")

type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Result tags a value with the source that produced it. RemoteErr holds the
// failure that caused a local fallback.
type Result[T any] struct {
	Value     T
	Source    Source
	RemoteErr error
}

// Remote is the media API.
type Remote interface {
	List(ctx context.Context) ([]domain.MediaItem, error)
	Get(ctx context.Context, id string) (domain.MediaItem, error)
	Create(ctx context.Context, item domain.MediaItem, file *mediaclient.File, progress mediaclient.ProgressFunc) (domain.MediaItem, error)
	Update(ctx context.Context, id string, patch domain.MediaPatch, file *mediaclient.File, progress mediaclient.ProgressFunc) (domain.MediaItem, error)
	Delete(ctx context.Context, id string) error
}

// Local is the content store's media surface.
type Local interface {
	GetMedia() []domain.MediaItem
	GetMediaByID(id string) (domain.MediaItem, bool)
	AddMedia(item domain.MediaItem) domain.MediaItem
	UpdateMedia(id string, patch domain.MediaPatch) (domain.MediaItem, bool)
	DeleteMedia(id string) bool
	ImportMedia(items []domain.MediaItem) int
	MirrorMedia(item domain.MediaItem)
	RekeyMedia(oldID string, item domain.MediaItem) bool
}

// Config tunes a Service.
type Config struct {
	Logger *slog.Logger
	// Storage keeps the pending-write journal. Defaults to memory.
	Storage kv.Storage
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// Concurrency bounds parallel pushes during Reconcile.
	Concurrency int
}

// Service is the reconciling media service.
type Service struct {
	remote      Remote
	local       Local
	logger      *slog.Logger
	breaker     *gobreaker.CircuitBreaker[any]
	journal     *journal
	concurrency int
	syncMu      sync.Mutex
}

// New builds a Service.
func New(remote Remote, local Local, cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Storage == nil {
		cfg.Storage = kv.NewMemoryStorage()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	s := &Service{
		remote:      remote,
		local:       local,
		logger:      cfg.Logger,
		journal:     openJournal(cfg.Storage, cfg.Logger),
		concurrency: cfg.Concurrency,
	}
	threshold := cfg.FailureThreshold
	s.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "media-api",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsOutage(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Info("reconcile: breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			BreakerState.Set(float64(to))
		},
	})
	return s
}

// IsOutage reports whether err means the API could not serve the request,
// as opposed to answering it with a client error.
func IsOutage(err error) bool {
	var apiErr *mediaclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	return true
}

func isNotFound(err error) bool {
	var apiErr *mediaclient.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func call[T any](s *Service, fn func() (T, error)) (T, error) {
	out, err := s.breaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}

// fallback reports whether a failed remote call should be served locally.
func (s *Service) fallback(ctx context.Context, op, id string, err error) bool {
	if ctx.Err() != nil || !IsOutage(err) {
		return false
	}
	s.logger.Warn("reconcile: media API unavailable, serving locally", "op", op, "media_id", id, "err", err)
	return true
}

func (s *Service) List(ctx context.Context) (Result[[]domain.MediaItem], error) {
	items, err := call(s, func() ([]domain.MediaItem, error) { return s.remote.List(ctx) })
	if err == nil {
		Requests.WithLabelValues("list", string(SourceRemote)).Inc()
		return Result[[]domain.MediaItem]{Value: items, Source: SourceRemote}, nil
	}
	if !s.fallback(ctx, "list", "", err) {
		return Result[[]domain.MediaItem]{}, err
	}
	Requests.WithLabelValues("list", string(SourceLocal)).Inc()
	return Result[[]domain.MediaItem]{Value: s.local.GetMedia(), Source: SourceLocal, RemoteErr: err}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Result[domain.MediaItem], error) {
	item, err := call(s, func() (domain.MediaItem, error) { return s.remote.Get(ctx, id) })
	if err == nil {
		Requests.WithLabelValues("get", string(SourceRemote)).Inc()
		return Result[domain.MediaItem]{Value: item, Source: SourceRemote}, nil
	}
	// A remote 404 still consults the local store: seeded items and
	// journalled creates exist only there.
	missing := isNotFound(err) && ctx.Err() == nil
	if !missing && !s.fallback(ctx, "get", id, err) {
		return Result[domain.MediaItem]{}, err
	}
	item, ok := s.local.GetMediaByID(id)
	if !ok {
		if missing {
			return Result[domain.MediaItem]{}, err
		}
		Requests.WithLabelValues("get", string(SourceLocal)).Inc()
		return Result[domain.MediaItem]{Source: SourceLocal, RemoteErr: err}, ErrNotFound
	}
	Requests.WithLabelValues("get", string(SourceLocal)).Inc()
	return Result[domain.MediaItem]{Value: item, Source: SourceLocal, RemoteErr: err}, nil
}

// Create uploads item. When the API is down the item is added locally and
// queued for the next reconciliation pass.
func (s *Service) Create(ctx context.Context, item domain.MediaItem, file *File, progress mediaclient.ProgressFunc) (Result[domain.MediaItem], error) {
	remoteFile, closeFn, err := file.open()
	if err != nil {
		return Result[domain.MediaItem]{}, err
	}
	defer closeFn()
	created, err := call(s, func() (domain.MediaItem, error) {
		return s.remote.Create(ctx, item, remoteFile, progress)
	})
	if err == nil {
		Requests.WithLabelValues("create", string(SourceRemote)).Inc()
		s.local.MirrorMedia(created)
		return Result[domain.MediaItem]{Value: created, Source: SourceRemote}, nil
	}
	if !s.fallback(ctx, "create", "", err) {
		return Result[domain.MediaItem]{}, err
	}
	Requests.WithLabelValues("create", string(SourceLocal)).Inc()
	if file != nil {
		item.SourceURL = file.localHandle()
		if item.FileName == "" {
			item.FileName = file.displayName()
		}
	}
	added := s.local.AddMedia(item)
	s.journal.record(added.ID, OpCreate, added.UpdatedAt)
	if progress != nil {
		progress(100)
	}
	return Result[domain.MediaItem]{Value: added, Source: SourceLocal, RemoteErr: err}, nil
}

func (s *Service) Update(ctx context.Context, id string, patch domain.MediaPatch, file *File, progress mediaclient.ProgressFunc) (Result[domain.MediaItem], error) {
	remoteFile, closeFn, err := file.open()
	if err != nil {
		return Result[domain.MediaItem]{}, err
	}
	defer closeFn()
	updated, err := call(s, func() (domain.MediaItem, error) {
		return s.remote.Update(ctx, id, patch, remoteFile, progress)
	})
	if err == nil {
		Requests.WithLabelValues("update", string(SourceRemote)).Inc()
		if _, ok := s.local.GetMediaByID(id); ok {
			s.local.ImportMedia([]domain.MediaItem{updated})
		}
		return Result[domain.MediaItem]{Value: updated, Source: SourceRemote}, nil
	}
	if !s.fallback(ctx, "update", id, err) {
		return Result[domain.MediaItem]{}, err
	}
	Requests.WithLabelValues("update", string(SourceLocal)).Inc()
	if file != nil {
		handle := file.localHandle()
		name := file.displayName()
		patch.SourceURL = &handle
		patch.FileName = &name
	}
	item, ok := s.local.UpdateMedia(id, patch)
	if !ok {
		return Result[domain.MediaItem]{Source: SourceLocal, RemoteErr: err}, ErrNotFound
	}
	s.journal.record(id, OpUpdate, item.UpdatedAt)
	if progress != nil {
		progress(100)
	}
	return Result[domain.MediaItem]{Value: item, Source: SourceLocal, RemoteErr: err}, nil
}

func (s *Service) Delete(ctx context.Context, id string) (Result[struct{}], error) {
	_, err := call(s, func() (struct{}, error) { return struct{}{}, s.remote.Delete(ctx, id) })
	if err == nil {
		Requests.WithLabelValues("delete", string(SourceRemote)).Inc()
		s.local.DeleteMedia(id)
		return Result[struct{}]{Source: SourceRemote}, nil
	}
	if !s.fallback(ctx, "delete", id, err) {
		return Result[struct{}]{}, err
	}
	Requests.WithLabelValues("delete", string(SourceLocal)).Inc()
	if !s.local.DeleteMedia(id) {
		return Result[struct{}]{Source: SourceLocal, RemoteErr: err}, ErrNotFound
	}
	s.journal.record(id, OpDelete, time.Now().UTC())
	return Result[struct{}]{Source: SourceLocal, RemoteErr: err}, nil
}

// Pending returns the journalled writes awaiting reconciliation, oldest first.
func (s *Service) Pending() []Entry {
	return s.journal.snapshot()
}

// BreakerOpen reports whether remote calls are currently short-circuited.
func (s *Service) BreakerOpen() bool {
	return s.breaker.State() == gobreaker.StateOpen
}
