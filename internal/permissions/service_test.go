package permissions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryPermissionRepo struct {
	perms     map[int64]Permission
	byName    map[string]int64
	nextID    int64
	batchCall int
}

func newMemoryPermissionRepo() *memoryPermissionRepo {
	return &memoryPermissionRepo{
		perms:  make(map[int64]Permission),
		byName: make(map[string]int64),
	}
}

func (r *memoryPermissionRepo) List(ctx context.Context) ([]Permission, error) {
	out := make([]Permission, 0, len(r.perms))
	for _, p := range r.perms {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryPermissionRepo) Get(ctx context.Context, id int64) (Permission, error) {
	p, ok := r.perms[id]
	if !ok {
		return Permission{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryPermissionRepo) Create(ctx context.Context, p Permission) (Permission, error) {
	if _, taken := r.byName[p.Name]; taken {
		return Permission{}, ErrNameTaken
	}
	r.nextID++
	p.ID = r.nextID
	r.perms[p.ID] = p
	r.byName[p.Name] = p.ID
	return p, nil
}

func (r *memoryPermissionRepo) CreateBatch(ctx context.Context, perms []Permission) ([]Permission, error) {
	r.batchCall++
	created := make([]Permission, 0, len(perms))
	for _, p := range perms {
		// All-or-nothing: roll back everything on the first conflict.
		if _, taken := r.byName[p.Name]; taken {
			for _, c := range created {
				delete(r.perms, c.ID)
				delete(r.byName, c.Name)
			}
			return nil, ErrNameTaken
		}
		c, _ := r.Create(ctx, p)
		created = append(created, c)
	}
	return created, nil
}

func (r *memoryPermissionRepo) Delete(ctx context.Context, id int64) error {
	p, ok := r.perms[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.perms, id)
	delete(r.byName, p.Name)
	return nil
}

type bumpCounter struct {
	count int
	err   error
}

func (b *bumpCounter) Bump(ctx context.Context) error {
	b.count++
	return b.err
}

func TestCreateCanonicalizesName(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryPermissionRepo()
	bumps := &bumpCounter{}
	svc := NewService(repo, bumps, nil)

	p, err := svc.Create(ctx, CreateRequest{Name: "  Courses.View  ", Description: " Browse the catalog "})
	require.NoError(t, err)
	require.Equal(t, "courses.view", p.Name)
	require.Equal(t, "courses", p.Resource)
	require.Equal(t, "view", p.Action)
	require.Equal(t, "Browse the catalog", p.Description)
	require.Equal(t, 0, bumps.count, "creating an unreferenced permission cannot change decisions")
}

func TestCreateRejectsInvalidName(t *testing.T) {
	svc := NewService(newMemoryPermissionRepo(), nil, nil)

	for _, name := range []string{"courses", "courses..view", "Courses View", ".view"} {
		_, err := svc.Create(context.Background(), CreateRequest{Name: name})
		require.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}
}

func TestCreateDuplicateName(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryPermissionRepo(), nil, nil)

	_, err := svc.Create(ctx, CreateRequest{Name: "courses.view"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateRequest{Name: "Courses.VIEW"})
	require.ErrorIs(t, err, ErrNameTaken, "canonicalization must collapse case variants")
}

func TestCreateBatchAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryPermissionRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.CreateBatch(ctx, BulkCreateRequest{Permissions: []CreateRequest{
		{Name: "courses.view"},
		{Name: "not-a-name"},
	}})
	require.ErrorIs(t, err, ErrInvalidName)
	require.Equal(t, 0, repo.batchCall, "validation failures must not reach storage")
	require.Empty(t, repo.perms)
}

func TestCreateBatchRejectsInternalDuplicates(t *testing.T) {
	repo := newMemoryPermissionRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.CreateBatch(context.Background(), BulkCreateRequest{Permissions: []CreateRequest{
		{Name: "courses.view"},
		{Name: " COURSES.view "},
	}})
	require.ErrorIs(t, err, ErrNameTaken)
	require.Equal(t, 0, repo.batchCall)
}

func TestCreateBatchSucceeds(t *testing.T) {
	repo := newMemoryPermissionRepo()
	bumps := &bumpCounter{}
	svc := NewService(repo, bumps, nil)

	created, err := svc.CreateBatch(context.Background(), BulkCreateRequest{Permissions: []CreateRequest{
		{Name: "courses.view"},
		{Name: "courses.edit"},
	}})
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.Equal(t, 0, bumps.count)
}

func TestDeleteBumpsCache(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryPermissionRepo()
	bumps := &bumpCounter{}
	svc := NewService(repo, bumps, nil)

	p, err := svc.Create(ctx, CreateRequest{Name: "courses.view"})
	require.NoError(t, err)

	// Deleting cascades into role assignments and overrides, so every
	// cached set is suspect.
	require.NoError(t, svc.Delete(ctx, p.ID))
	require.Equal(t, 1, bumps.count)
}

func TestDeleteNotFoundSkipsBump(t *testing.T) {
	bumps := &bumpCounter{}
	svc := NewService(newMemoryPermissionRepo(), bumps, nil)

	err := svc.Delete(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 0, bumps.count)
}

func TestDeleteToleratesBumpFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryPermissionRepo()
	bumps := &bumpCounter{err: errors.New("redis down")}
	svc := NewService(repo, bumps, nil)

	p, err := svc.Create(ctx, CreateRequest{Name: "courses.view"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, p.ID), "the write already committed, a bump failure only delays visibility")
}
