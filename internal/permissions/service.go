package permissions

import (
	"context"
	"log/slog"
	"strings"
)

// CacheInvalidator bumps the authorization cache version after catalog
// changes that can affect decisions.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service orchestrates permission catalog operations.
type Service struct {
	repo   Repository
	cache  CacheInvalidator
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, cache CacheInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// List returns the catalog ordered by name.
func (s *Service) List(ctx context.Context) ([]Permission, error) {
	return s.repo.List(ctx)
}

// Get fetches one permission by ID.
func (s *Service) Get(ctx context.Context, id int64) (Permission, error) {
	return s.repo.Get(ctx, id)
}

// Create registers one permission under its canonical name. Creation does
// not move the cache version: an unreferenced permission cannot change any
// decision.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Permission, error) {
	p, err := fromRequest(req)
	if err != nil {
		return Permission{}, err
	}
	return s.repo.Create(ctx, p)
}

// CreateBatch registers several permissions atomically. A malformed or
// duplicated name anywhere in the batch fails the whole call.
func (s *Service) CreateBatch(ctx context.Context, req BulkCreateRequest) ([]Permission, error) {
	perms := make([]Permission, 0, len(req.Permissions))
	seen := make(map[string]struct{}, len(req.Permissions))
	for _, item := range req.Permissions {
		p, err := fromRequest(item)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[p.Name]; dup {
			return nil, ErrNameTaken
		}
		seen[p.Name] = struct{}{}
		perms = append(perms, p)
	}
	return s.repo.CreateBatch(ctx, perms)
}

// Delete removes a permission and all references to it. Decisions that
// relied on those references change, so the cache version moves.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func fromRequest(req CreateRequest) (Permission, error) {
	resource, action, ok := ParseName(req.Name)
	if !ok {
		return Permission{}, ErrInvalidName
	}
	return Permission{
		Name:        resource + "." + action,
		Resource:    resource,
		Action:      action,
		Description: strings.TrimSpace(req.Description),
	}, nil
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("permissions: cache bump failed", slog.Any("error", err))
	}
}
