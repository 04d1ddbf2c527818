// Package session persists the signed-in user and the age-gate acknowledgement.
package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goccy/go-json"

	"mediahub/internal/kv"
	"mediahub/pkg/domain"
)

const (
	KeySession     = "ac_session"
	KeyAgeVerified = "ac_age_verified"
	keySecret      = "ac_session_secret"
)

var (
	ErrNoSession = errors.New("not signed in")
	ErrForbidden = errors.New("insufficient role")
)

// UserLookup re-resolves a session subject to the current account.
type UserLookup interface {
	GetUser(id string) (domain.User, bool)
}

// Config wires a Store.
type Config struct {
	// Secret signs session tokens. When empty a random secret is generated
	// once and kept in the storage.
	Secret []byte
	Signer SignerOptions
	Users  UserLookup
	Logger *slog.Logger
}

type record struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Store keeps one session per storage.
type Store struct {
	mu      sync.Mutex
	storage kv.Storage
	signer  *Signer
	users   UserLookup
	logger  *slog.Logger
}

// New builds a session store on storage.
func New(storage kv.Storage, cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	secret := cfg.Secret
	if len(secret) == 0 {
		var err error
		secret, err = loadOrCreateSecret(storage)
		if err != nil {
			return nil, err
		}
	}
	signer, err := NewSigner(secret, cfg.Signer)
	if err != nil {
		return nil, err
	}
	return &Store{storage: storage, signer: signer, users: cfg.Users, logger: logger}, nil
}

func loadOrCreateSecret(storage kv.Storage) ([]byte, error) {
	secret, ok, err := storage.Get(keySecret)
	if err != nil {
		return nil, fmt.Errorf("read session secret: %w", err)
	}
	if ok && len(secret) >= 32 {
		return secret, nil
	}
	secret = make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	if err := storage.Set(keySecret, secret); err != nil {
		return nil, fmt.Errorf("store session secret: %w", err)
	}
	return secret, nil
}

// SaveSession persists user as the signed-in account.
func (s *Store) SaveSession(user domain.User) error {
	token, err := s.signer.Sign(user.ID)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	user.Password = ""
	data, err := json.Marshal(record{Token: token, User: user})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Set(KeySession, data); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// GetSession returns the signed-in account. A missing, corrupt, tampered or
// expired session reports ok=false. When a UserLookup is configured the
// current account is returned instead of the saved snapshot.
func (s *Store) GetSession() (domain.User, bool) {
	s.mu.Lock()
	data, ok, err := s.storage.Get(KeySession)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("session: read failed", "err", err)
		return domain.User{}, false
	}
	if !ok {
		return domain.User{}, false
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("session: corrupt record ignored", "err", err)
		return domain.User{}, false
	}
	subject, err := s.signer.Verify(rec.Token)
	if err != nil {
		s.logger.Warn("session: token rejected", "err", err)
		return domain.User{}, false
	}
	if subject != rec.User.ID {
		s.logger.Warn("session: token subject mismatch", "subject", subject)
		return domain.User{}, false
	}
	if s.users == nil {
		return rec.User, true
	}
	user, ok := s.users.GetUser(subject)
	if !ok {
		s.logger.Info("session: account no longer exists", "user_id", subject)
		return domain.User{}, false
	}
	return user, true
}

// Current returns the signed-in account or the guest.
func (s *Store) Current() domain.User {
	if user, ok := s.GetSession(); ok {
		return user
	}
	return domain.Guest()
}

// Require returns the signed-in account if it has one of roles.
func (s *Store) Require(roles ...domain.UserRole) (domain.User, error) {
	user, ok := s.GetSession()
	if !ok {
		return domain.User{}, ErrNoSession
	}
	if len(roles) == 0 {
		return user, nil
	}
	for _, role := range roles {
		if user.Role == role {
			return user, nil
		}
	}
	return domain.User{}, ErrForbidden
}

func (s *Store) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storage.Delete(KeySession)
}

// AgeVerified reports whether the viewer acknowledged the age gate.
func (s *Store) AgeVerified() bool {
	data, ok, err := s.storage.Get(KeyAgeVerified)
	if err != nil {
		s.logger.Warn("session: read age gate failed", "err", err)
		return false
	}
	return ok && string(data) == "true"
}

func (s *Store) AcknowledgeAge() error {
	return s.storage.Set(KeyAgeVerified, []byte("true"))
}
