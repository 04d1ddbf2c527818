package session

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"mediahub/internal/util"
)

const (
	defaultIssuer   = "mediahub"
	defaultAudience = "mediactl"
)

var defaultLeeway = 30 * time.Second

// SignerOptions configures claim validation.
type SignerOptions struct {
	Issuer   string
	Audience string
	Leeway   time.Duration
	// TTL bounds how long a saved session stays valid. Zero means no expiry.
	TTL time.Duration
}

// Signer issues and verifies HS256 session tokens.
type Signer struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
	ttl      time.Duration
	now      func() time.Time
}

// NewSigner builds a signer around secret.
func NewSigner(secret []byte, opts SignerOptions) (*Signer, error) {
	if len(secret) < 16 {
		return nil, errors.New("session secret must be at least 16 bytes")
	}
	opts.Issuer = strings.TrimSpace(opts.Issuer)
	opts.Audience = strings.TrimSpace(opts.Audience)
	if opts.Issuer == "" {
		opts.Issuer = defaultIssuer
	}
	if opts.Audience == "" {
		opts.Audience = defaultAudience
	}
	if opts.Leeway <= 0 {
		opts.Leeway = defaultLeeway
	}
	return &Signer{
		secret:   append([]byte(nil), secret...),
		issuer:   opts.Issuer,
		audience: opts.Audience,
		leeway:   opts.Leeway,
		ttl:      opts.TTL,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Sign returns a token whose subject is userID.
func (s *Signer) Sign(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("token subject required")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        util.NewID(),
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify validates token and returns its subject.
func (s *Signer) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("invalid token format")
	}
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return "", err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("token subject missing")
	}
	return claims.Subject, nil
}
