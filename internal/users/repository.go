package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the interface for user persistence.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]UserWithRole, int, error)
	Get(ctx context.Context, id int64) (UserWithRole, error)
	Update(ctx context.Context, id int64, fullName, email *string) (UserWithRole, error)
	SetRole(ctx context.Context, userID int64, roleID *int64) error
}

// repository implements Repository using pgxpool.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const userColumns = `u.id, u.email, u.full_name, u.role_id, u.is_active, u.created_at, u.updated_at, r.name`

func scanUser(row pgx.Row) (UserWithRole, error) {
	var u UserWithRole
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.RoleID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.RoleName)
	return u, err
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]UserWithRole, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + userColumns + `
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		ORDER BY u.email
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []UserWithRole
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, u)
	}
	return list, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (UserWithRole, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1
	`
	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserWithRole{}, ErrNotFound
		}
		return UserWithRole{}, err
	}
	return u, nil
}

// Update writes only the non-nil fields.
func (r *repository) Update(ctx context.Context, id int64, fullName, email *string) (UserWithRole, error) {
	query := `
		WITH updated AS (
			UPDATE users
			SET full_name = COALESCE($2, full_name),
			    email = COALESCE($3, email),
			    updated_at = NOW()
			WHERE id = $1
			RETURNING id, email, full_name, role_id, is_active, created_at, updated_at
		)
		SELECT u.id, u.email, u.full_name, u.role_id, u.is_active, u.created_at, u.updated_at, r.name
		FROM updated u
		LEFT JOIN roles r ON r.id = u.role_id
	`
	u, err := scanUser(r.pool.QueryRow(ctx, query, id, fullName, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserWithRole{}, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return UserWithRole{}, ErrEmailTaken
		}
		return UserWithRole{}, err
	}
	return u, nil
}

func (r *repository) SetRole(ctx context.Context, userID int64, roleID *int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET role_id = $2, updated_at = NOW()
		WHERE id = $1
	`, userID, roleID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrRoleNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
