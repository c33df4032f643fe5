package authz

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Override is a per-user exception record for one permission.
type Override struct {
	UserID         int64     `json:"userId"`
	PermissionID   int64     `json:"permissionId"`
	PermissionName string    `json:"permissionName"`
	Granted        bool      `json:"granted"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Repository defines the storage primitives the resolver needs. Decisions are
// computed from exactly two facts per (user, permission) pair, so the
// precedence rule itself stays out of SQL.
type Repository interface {
	// DecisionInput returns the override value (if any) and the role
	// assignment for one pair, read in a single query. An unknown
	// permission name yields the zero input, not an error.
	DecisionInput(ctx context.Context, userID int64, permission string) (DecisionInput, error)
	// EffectiveRows returns the role's permission names plus all override
	// rows of the user, read in a single query.
	EffectiveRows(ctx context.Context, userID int64) (EffectiveRows, error)
	ListOverrides(ctx context.Context, userID int64) ([]Override, error)
	UpsertOverride(ctx context.Context, userID, permissionID int64, granted bool) error
	DeleteOverride(ctx context.Context, userID, permissionID int64) error
}

// repository implements Repository using pgxpool.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) DecisionInput(ctx context.Context, userID int64, permission string) (DecisionInput, error) {
	query := `
		SELECT up.granted,
		       EXISTS (
		           SELECT 1
		           FROM users u
		           JOIN role_permissions rp ON rp.role_id = u.role_id
		           WHERE u.id = $1 AND rp.permission_id = p.id
		       ) AS role_grants
		FROM permissions p
		LEFT JOIN user_permissions up
		       ON up.permission_id = p.id AND up.user_id = $1
		WHERE p.name = $2
	`
	var in DecisionInput
	err := r.pool.QueryRow(ctx, query, userID, permission).Scan(&in.Override, &in.RoleGrants)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Unknown permission name: fail-closed, not a storage failure.
			return DecisionInput{}, nil
		}
		return DecisionInput{}, err
	}
	return in, nil
}

func (r *repository) EffectiveRows(ctx context.Context, userID int64) (EffectiveRows, error) {
	query := `
		SELECT p.name, NULL::boolean AS granted
		FROM users u
		JOIN role_permissions rp ON rp.role_id = u.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE u.id = $1
		UNION ALL
		SELECT p.name, up.granted
		FROM user_permissions up
		JOIN permissions p ON p.id = up.permission_id
		WHERE up.user_id = $1
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return EffectiveRows{}, err
	}
	defer rows.Close()

	result := EffectiveRows{Overrides: make(map[string]bool)}
	for rows.Next() {
		var name string
		var granted *bool
		if err := rows.Scan(&name, &granted); err != nil {
			return EffectiveRows{}, err
		}
		if granted == nil {
			result.RoleNames = append(result.RoleNames, name)
		} else {
			result.Overrides[name] = *granted
		}
	}
	return result, rows.Err()
}

func (r *repository) ListOverrides(ctx context.Context, userID int64) ([]Override, error) {
	query := `
		SELECT up.user_id, up.permission_id, p.name, up.granted, up.created_at
		FROM user_permissions up
		JOIN permissions p ON p.id = up.permission_id
		WHERE up.user_id = $1
		ORDER BY p.name
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []Override
	for rows.Next() {
		var o Override
		if err := rows.Scan(&o.UserID, &o.PermissionID, &o.PermissionName, &o.Granted, &o.CreatedAt); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

func (r *repository) UpsertOverride(ctx context.Context, userID, permissionID int64, granted bool) error {
	query := `
		INSERT INTO user_permissions (user_id, permission_id, granted)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, permission_id) DO UPDATE SET granted = EXCLUDED.granted
	`
	_, err := r.pool.Exec(ctx, query, userID, permissionID, granted)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			switch pgErr.ConstraintName {
			case "fk_user_permissions_user":
				return ErrUserNotFound
			case "fk_user_permissions_permission":
				return ErrPermissionNotFound
			}
		}
		return err
	}
	return nil
}

func (r *repository) DeleteOverride(ctx context.Context, userID, permissionID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1 AND permission_id = $2`, userID, permissionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOverrideNotFound
	}
	return nil
}
