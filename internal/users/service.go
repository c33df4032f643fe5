package users

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lyceum-erp/lyceum-erp/internal/shared"
)

// CacheInvalidator bumps the authorization cache version after role
// reference changes.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service handles user management logic.
type Service struct {
	repo   Repository
	cache  CacheInvalidator
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo Repository, cache CacheInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// List pages through users with their role names.
func (s *Service) List(ctx context.Context, page, perPage int) ([]UserWithRole, shared.Pagination, error) {
	pg := shared.NewPagination(page, perPage, 0)
	list, total, err := s.repo.List(ctx, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(pg.Page, pg.PerPage, total), nil
}

// Get fetches one user.
func (s *Service) Get(ctx context.Context, id int64) (UserWithRole, error) {
	return s.repo.Get(ctx, id)
}

// Update edits profile fields. At least one field must be set.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (UserWithRole, error) {
	if req.FullName == nil && req.Email == nil {
		return UserWithRole{}, ErrEmptyUpdate
	}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		req.FullName = &name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &email
	}
	return s.repo.Update(ctx, id, req.FullName, req.Email)
}

// AssignRole sets or clears the user's role reference. The change flips
// every decision the role used to answer, so the cache version moves.
func (s *Service) AssignRole(ctx context.Context, userID int64, roleID *int64) error {
	if err := s.repo.SetRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("users: cache bump failed", slog.Any("error", err))
	}
}
