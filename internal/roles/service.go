package roles

import (
	"context"
	"log/slog"
	"strings"
)

// CacheInvalidator bumps the authorization cache version after assignment
// changes.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service orchestrates role operations. Only assignment changes move the
// cache version: role metadata never feeds a decision, and a role can only
// be deleted while no user references it.
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

// List returns all roles ordered by name.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Get fetches a role together with its permission defaults.
func (s *Service) Get(ctx context.Context, id int64) (Role, []PermissionRef, error) {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return Role{}, nil, err
	}
	perms, err := s.repo.ListPermissions(ctx, id)
	if err != nil {
		return Role{}, nil, err
	}
	return role, perms, nil
}

// Permissions lists the role's current defaults.
func (s *Service) Permissions(ctx context.Context, roleID int64) ([]PermissionRef, error) {
	return s.repo.ListPermissions(ctx, roleID)
}

// Create inserts a non-system role.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Role, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Role{}, ErrNameRequired
	}
	return s.repo.Create(ctx, name, strings.TrimSpace(req.Description))
}

// Update renames a role or changes its description. System roles keep
// their identity and reject the call.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (Role, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if current.IsSystemRole {
		return Role{}, ErrSystemRole
	}
	name := current.Name
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	description := current.Description
	if req.Description != nil {
		description = strings.TrimSpace(*req.Description)
	}
	if name == "" {
		return Role{}, ErrNameRequired
	}
	return s.repo.Update(ctx, id, name, description)
}

// Delete removes an unreferenced non-system role.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// SyncPermissions replaces the role's whole assignment set in one
// transaction. Concurrent readers see either the full old set or the full
// new set, and two syncs of the same role serialize on the role row.
// System roles accept syncs: only their identity is protected.
func (s *Service) SyncPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	ids := dedupeIDs(permissionIDs)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockRole(ctx, roleID); err != nil {
			return err
		}
		if err := tx.DeleteAssignments(ctx, roleID); err != nil {
			return err
		}
		for _, pid := range ids {
			if err := tx.InsertAssignment(ctx, roleID, pid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// AddPermission attaches a single permission. Adding an already attached
// permission is a no-op.
func (s *Service) AddPermission(ctx context.Context, roleID, permissionID int64) error {
	if err := s.repo.AddPermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// RemovePermission detaches a single permission. Removing an absent
// assignment is a no-op.
func (s *Service) RemovePermission(ctx context.Context, roleID, permissionID int64) error {
	if _, err := s.repo.Get(ctx, roleID); err != nil {
		return err
	}
	if err := s.repo.RemovePermission(ctx, roleID, permissionID); err != nil {
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
		s.logger.Warn("roles: cache bump failed", slog.Any("error", err))
	}
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
