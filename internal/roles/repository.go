package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the interface for role persistence.
type Repository interface {
	// Read operations
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id int64) (Role, error)
	CountUsers(ctx context.Context, roleID int64) (int, error)
	ListPermissions(ctx context.Context, roleID int64) ([]PermissionRef, error)

	// Write operations
	Create(ctx context.Context, name, description string) (Role, error)
	Update(ctx context.Context, id int64, name, description string) (Role, error)
	Delete(ctx context.Context, id int64) error
	AddPermission(ctx context.Context, roleID, permissionID int64) error
	RemovePermission(ctx context.Context, roleID, permissionID int64) error

	// Write operations (transactional)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional assignment writes.
type TxRepository interface {
	LockRole(ctx context.Context, roleID int64) error
	DeleteAssignments(ctx context.Context, roleID int64) error
	InsertAssignment(ctx context.Context, roleID, permissionID int64) error
}

// repository implements Repository using pgxpool.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// txRepository implements TxRepository.
type txRepository struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const roleColumns = `id, name, description, is_system_role, created_at, updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.IsSystemRole, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

func (r *repository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, role)
	}
	return list, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

func (r *repository) CountUsers(ctx context.Context, roleID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role_id = $1`, roleID).Scan(&count)
	return count, err
}

func (r *repository) ListPermissions(ctx context.Context, roleID int64) ([]PermissionRef, error) {
	query := `
		SELECT p.id, p.name
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.name
	`
	rows, err := r.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []PermissionRef
	for rows.Next() {
		var ref PermissionRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *repository) Create(ctx context.Context, name, description string) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description)
		VALUES ($1, $2)
		RETURNING `+roleColumns, name, description)
	role, err := scanRole(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Role{}, ErrNameTaken
		}
		return Role{}, err
	}
	return role, nil
}

func (r *repository) Update(ctx context.Context, id int64, name, description string) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE roles
		SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+roleColumns, id, name, description)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return Role{}, ErrNameTaken
		}
		return Role{}, err
	}
	return role, nil
}

// Delete removes a role only when it is not protected and no user
// references it. The live reference check and the delete are one
// statement, so a concurrent assignment cannot slip between them.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM roles
		WHERE id = $1
		  AND is_system_role = FALSE
		  AND NOT EXISTS (SELECT 1 FROM users WHERE users.role_id = $1)
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	role, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystemRole {
		return ErrSystemRole
	}
	return ErrRoleInUse
}

func (r *repository) AddPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ($1, $2)
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`, roleID, permissionID)
	return mapAssignmentError(err)
}

func (r *repository) RemovePermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM role_permissions
		WHERE role_id = $1 AND permission_id = $2
	`, roleID, permissionID)
	return err
}

func (t *txRepository) LockRole(ctx context.Context, roleID int64) error {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM roles WHERE id = $1 FOR UPDATE`, roleID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (t *txRepository) DeleteAssignments(ctx context.Context, roleID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID)
	return err
}

func (t *txRepository) InsertAssignment(ctx context.Context, roleID, permissionID int64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ($1, $2)
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`, roleID, permissionID)
	return mapAssignmentError(err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func mapAssignmentError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		switch pgErr.ConstraintName {
		case "fk_role_permissions_role":
			return ErrNotFound
		case "fk_role_permissions_permission":
			return ErrPermissionMissing
		}
	}
	return err
}
