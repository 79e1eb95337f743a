package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store defines persistence operations for the rbac module.
type Store interface {
	ListPermissions(ctx context.Context) ([]Permission, error)
	UpsertRolePermission(ctx context.Context, role Role, permissionID int64) (bool, error)
	PermissionsForRole(ctx context.Context, role Role) ([]string, error)
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL store.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// ListPermissions loads the full permission catalog. Names are parsed into
// category/action here, once per load; a name without a dot keeps empty
// fields so it can never match a clause filter but still counts as part of
// the catalog for blanket assignment.
func (s *PGStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM permissions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Name); err != nil {
			return nil, err
		}
		if category, action, ok := SplitPermissionName(perm.Name); ok {
			perm.Category = category
			perm.Action = action
		}
		perms = append(perms, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// UpsertRolePermission binds a role to a permission, keyed on the composite
// (role, permission_id). Reports whether a new row was created; an existing
// binding is a no-op.
func (s *PGStore) UpsertRolePermission(ctx context.Context, role Role, permissionID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO role_permissions (role, permission_id)
		VALUES ($1, $2)
		ON CONFLICT (role, permission_id) DO NOTHING`, string(role), permissionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// PermissionsForRole returns the permission names currently bound to a role.
func (s *PGStore) PermissionsForRole(ctx context.Context, role Role) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.name
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role = $1
		ORDER BY p.name`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

var _ Store = (*PGStore)(nil)
