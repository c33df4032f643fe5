package permissions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lyceum-erp/lyceum-erp/internal/platform/db"
)

// Repository defines storage operations for the permission catalog.
type Repository interface {
	List(ctx context.Context) ([]Permission, error)
	Get(ctx context.Context, id int64) (Permission, error)
	Create(ctx context.Context, p Permission) (Permission, error)
	CreateBatch(ctx context.Context, perms []Permission) ([]Permission, error)
	Delete(ctx context.Context, id int64) error
}

// repository implements Repository using pgxpool.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const permissionColumns = `id, name, resource, action, description, created_at, updated_at`

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	err := row.Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) List(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+permissionColumns+` FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Permission, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id)
	p, err := scanPermission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrNotFound
		}
		return Permission{}, err
	}
	return p, nil
}

const insertPermission = `
	INSERT INTO permissions (name, resource, action, description)
	VALUES ($1, $2, $3, $4)
	RETURNING ` + permissionColumns

func (r *repository) Create(ctx context.Context, p Permission) (Permission, error) {
	row := r.pool.QueryRow(ctx, insertPermission, p.Name, p.Resource, p.Action, p.Description)
	created, err := scanPermission(row)
	if err != nil {
		return Permission{}, mapInsertError(err)
	}
	return created, nil
}

// CreateBatch inserts all permissions in one transaction so a duplicate
// anywhere in the batch leaves the catalog untouched.
func (r *repository) CreateBatch(ctx context.Context, perms []Permission) ([]Permission, error) {
	created := make([]Permission, 0, len(perms))
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, p := range perms {
			row := tx.QueryRow(ctx, insertPermission, p.Name, p.Resource, p.Action, p.Description)
			c, err := scanPermission(row)
			if err != nil {
				return mapInsertError(err)
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Delete removes the permission together with every role assignment and
// user override that references it, in one transaction.
func (r *repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE permission_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_permissions WHERE permission_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func mapInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrNameTaken
	}
	return err
}
