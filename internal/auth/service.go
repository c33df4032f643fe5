package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lyceum-erp/lyceum-erp/internal/shared"
)

// ErrTokenInvalid indicates the bearer token failed verification.
var ErrTokenInvalid = errors.New("auth: invalid token")

// accessClaims is the JWT payload for API access tokens.
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, secret string, ttl time.Duration) *Service {
	return &Service{repo: repo, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Authenticate validates email/password credentials. Every failure mode
// returns the same error so responses cannot reveal which accounts exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken signs an HS256 access token for the user.
func (s *Service) IssueToken(user *User) (string, error) {
	now := s.now()
	claims := accessClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken verifies a bearer token and returns the principal it names.
func (s *Service) ParseToken(raw string) (shared.Principal, error) {
	var claims accessClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return shared.Principal{}, ErrTokenInvalid
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return shared.Principal{}, ErrTokenInvalid
	}
	return shared.Principal{UserID: userID, Email: claims.Email}, nil
}

// FindUser loads the full account record for a principal.
func (s *Service) FindUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}
