package authz

import (
	"context"
	"log/slog"
)

// Service resolves permission decisions and manages per-user overrides.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
}

// NewService constructs a Service. The cache may be nil, in which case
// effective sets are always loaded from storage.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Resolve answers whether the user currently holds the permission. The
// boolean is always usable as the decision. A non-nil error never changes
// the outcome; it reports that a storage failure forced the deny, so
// callers can keep infrastructure denials apart from policy denials.
func (s *Service) Resolve(ctx context.Context, userID int64, permission string) (bool, error) {
	in, err := s.repo.DecisionInput(ctx, userID, permission)
	if err != nil {
		s.logger.Warn("authz: resolve fell back to deny",
			slog.Int64("user_id", userID),
			slog.String("permission", permission),
			slog.Any("error", err))
		return false, err
	}
	return Decide(in), nil
}

// ResolveAny reports whether the user holds at least one of the named
// permissions. A storage failure on one name does not abort the rest;
// the first such failure is returned as the advisory error when no name
// resolves to allow.
func (s *Service) ResolveAny(ctx context.Context, userID int64, permissions []string) (bool, error) {
	var firstErr error
	for _, name := range permissions {
		ok, err := s.Resolve(ctx, userID, name)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if ok {
			return true, nil
		}
	}
	return false, firstErr
}

// ResolveAll reports whether the user holds every named permission.
func (s *Service) ResolveAll(ctx context.Context, userID int64, permissions []string) (bool, error) {
	for _, name := range permissions {
		ok, err := s.Resolve(ctx, userID, name)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// EffectivePermissions returns the deduplicated set of permission names the
// user currently holds, served from cache when available.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return s.cache.FetchEffective(ctx, userID, func(ctx context.Context) ([]string, error) {
		rows, err := s.repo.EffectiveRows(ctx, userID)
		if err != nil {
			return nil, err
		}
		return EffectiveSet(rows), nil
	})
}

// Overrides lists the user's override rows, including the resolved
// permission names.
func (s *Service) Overrides(ctx context.Context, userID int64) ([]Override, error) {
	return s.repo.ListOverrides(ctx, userID)
}

// SetOverride records a per-user exception. Granted true adds the
// permission regardless of role, false withholds it regardless of role.
// Writing the same pair twice keeps a single row with the latest value.
func (s *Service) SetOverride(ctx context.Context, userID, permissionID int64, granted bool) error {
	if err := s.repo.UpsertOverride(ctx, userID, permissionID, granted); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// ClearOverride removes the exception so the role default applies again.
func (s *Service) ClearOverride(ctx context.Context, userID, permissionID int64) error {
	if err := s.repo.DeleteOverride(ctx, userID, permissionID); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("authz: cache bump failed", slog.Any("error", err))
	}
}
