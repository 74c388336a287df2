package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PermissionRepositoryInterface interface {
	GetPermissionsNamesByRoleID(ctx context.Context, roleID uint64) ([]string, error)
	EnsureRole(ctx context.Context, tx pgx.Tx, code, name string) (uint64, error)
	EnsurePermission(ctx context.Context, tx pgx.Tx, name, description string) (uint64, error)
	GrantPermission(ctx context.Context, tx pgx.Tx, roleID, permissionID uint64) error
}

type PermissionRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewPermissionRepository(storage *pgxpool.Pool, logger *zap.Logger) PermissionRepositoryInterface {
	return &PermissionRepository{storage: storage, logger: logger}
}

func (r *PermissionRepository) GetPermissionsNamesByRoleID(ctx context.Context, roleID uint64) ([]string, error) {
	query := `
		SELECT p.name FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name`
	rows, err := r.storage.Query(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения привилегий роли %d: %w", roleID, err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *PermissionRepository) EnsureRole(ctx context.Context, tx pgx.Tx, code, name string) (uint64, error) {
	var id uint64
	err := pick(r.storage, tx).QueryRow(ctx, `
		INSERT INTO roles (code, name) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, code, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("EnsureRole %s: %w", code, err)
	}
	return id, nil
}

func (r *PermissionRepository) EnsurePermission(ctx context.Context, tx pgx.Tx, name, description string) (uint64, error) {
	var id uint64
	err := pick(r.storage, tx).QueryRow(ctx, `
		INSERT INTO permissions (name, description) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
		RETURNING id`, name, description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("EnsurePermission %s: %w", name, err)
	}
	return id, nil
}

func (r *PermissionRepository) GrantPermission(ctx context.Context, tx pgx.Tx, roleID, permissionID uint64) error {
	_, err := pick(r.storage, tx).Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("GrantPermission role=%d perm=%d: %w", roleID, permissionID, err)
	}
	return nil
}
