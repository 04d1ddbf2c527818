// Package content is the local content store: media, users, comments,
// notifications, talent profiles and site settings persisted through a kv.Storage.
package content

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"mediahub/internal/kv"
	"mediahub/pkg/domain"
)

// Storage keys, one per collection.
const (
	KeyMedia         = "ac_media"
	KeyUsers         = "ac_users"
	KeyComments      = "ac_comments"
	KeyNotifications = "ac_notifications"
	KeyTalent        = "ac_talent"
	KeySettings      = "ac_settings"
)

var (
	ErrDuplicateUser = errors.New("an account with that email or name already exists")
	ErrSelfDelete    = errors.New("cannot delete self")
	ErrInvalidRole   = errors.New("invalid role")
)

// Options tune an opened Store.
type Options struct {
	Logger *slog.Logger
	// StrictLogin requires a password match for every account, not just the admin.
	StrictLogin bool
	// Now overrides the clock used for timestamps.
	Now func() time.Time
	// NewID overrides id generation.
	NewID func() string
}

// Store holds every collection in memory and writes them all back after each mutation.
type Store struct {
	mu       sync.Mutex
	storage  kv.Storage
	logger   *slog.Logger
	strict   bool
	now      func() time.Time
	newID    func() string
	closed   bool
	media    []domain.MediaItem
	users    []domain.User
	comments []domain.Comment
	notifs   []domain.Notification
	talent   []domain.TalentProfile
	settings domain.SiteSettings
}

// Open loads every collection from storage, seeds the empty ones,
// guarantees the admin account and persists the result.
func Open(storage kv.Storage, opts Options) *Store {
	s := &Store{
		storage: storage,
		logger:  opts.Logger,
		strict:  opts.StrictLogin,
		now:     opts.Now,
		newID:   opts.NewID,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	s.settings = defaultSettings()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	if len(s.media) == 0 {
		s.media = seedMedia()
	}
	if len(s.talent) == 0 {
		s.talent = seedTalent()
	}
	s.ensureAdmin()
	if len(s.notifs) == 0 {
		s.notifs = seedNotifications()
	}
	s.persist()
	return s
}

// Close writes the collections one last time and closes the storage.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.persist()
	s.closed = true
	return s.storage.Close()
}

func (s *Store) load() {
	loadKey(s, KeyMedia, &s.media)
	loadKey(s, KeyUsers, &s.users)
	loadKey(s, KeyComments, &s.comments)
	loadKey(s, KeyNotifications, &s.notifs)
	loadKey(s, KeyTalent, &s.talent)

	var settings domain.SiteSettings
	if loadKey(s, KeySettings, &settings) {
		s.settings = settings
	}
}

// loadKey decodes key into dst. A read or parse failure leaves dst untouched.
func loadKey[T any](s *Store, key string, dst *T) bool {
	data, ok, err := s.storage.Get(key)
	if err != nil {
		s.logger.Warn("content: read collection failed", "key", key, "err", err)
		return false
	}
	if !ok {
		return false
	}
	var decoded T
	if err := json.Unmarshal(data, &decoded); err != nil {
		s.logger.Warn("content: corrupt collection reset to default", "key", key, "err", err)
		return false
	}
	*dst = decoded
	return true
}

// persist must be called with s.mu held.
func (s *Store) persist() {
	if s.closed {
		return
	}
	media := make([]domain.MediaItem, len(s.media))
	for i, item := range s.media {
		if item.IsEphemeral() {
			item.SourceURL = ""
		}
		media[i] = item
	}
	s.write(KeyMedia, media)
	s.write(KeyUsers, s.users)
	s.write(KeyComments, s.comments)
	s.write(KeyNotifications, s.notifs)
	s.write(KeyTalent, s.talent)
	s.write(KeySettings, s.settings)
}

func (s *Store) write(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("content: encode collection failed", "key", key, "err", err)
		return
	}
	if err := s.storage.Set(key, data); err != nil {
		s.logger.Error("content: write collection failed", "key", key, "err", err)
	}
}

// addNotification must be called with s.mu held. It does not persist.
func (s *Store) addNotification(userID string, typ domain.NotificationType, message string) domain.Notification {
	n := domain.Notification{
		ID:        s.newID(),
		UserID:    userID,
		Type:      typ,
		Message:   message,
		CreatedAt: domain.JustNow,
	}
	s.notifs = append(s.notifs, n)
	return n
}
