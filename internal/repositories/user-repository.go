package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"warehouse-system/internal/entities"
	apperrors "warehouse-system/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const userSelectFields = "u.id, u.username, u.full_name, u.password_hash, u.role_id, r.code, u.is_superuser, u.is_active, u.created_at, u.updated_at"
const userJoinClause = "users u JOIN roles r ON u.role_id = r.id"

type UserRepositoryInterface interface {
	FindByUsername(ctx context.Context, username string) (*entities.User, error)
	FindByID(ctx context.Context, id uint64) (*entities.User, error)
	CreateUser(ctx context.Context, tx pgx.Tx, user *entities.User) (uint64, error)
	Ping(ctx context.Context) error
}

type UserRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewUserRepository(storage *pgxpool.Pool, logger *zap.Logger) UserRepositoryInterface {
	return &UserRepository{storage: storage, logger: logger}
}

func scanUser(row pgx.Row) (*entities.User, error) {
	var u entities.User
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.PasswordHash, &u.RoleID, &u.RoleCode,
		&u.IsSuperuser, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*entities.User, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE LOWER(u.username) = $1", userSelectFields, userJoinClause)
	return scanUser(r.storage.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(username))))
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*entities.User, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE u.id = $1", userSelectFields, userJoinClause)
	return scanUser(r.storage.QueryRow(ctx, query, id))
}

// CreateUser создаёт пользователя или обновляет пароль и роль существующего.
func (r *UserRepository) CreateUser(ctx context.Context, tx pgx.Tx, u *entities.User) (uint64, error) {
	query := `
		INSERT INTO users (username, full_name, password_hash, role_id, is_superuser, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (username) DO UPDATE
		SET full_name = EXCLUDED.full_name, password_hash = EXCLUDED.password_hash,
			role_id = EXCLUDED.role_id, is_superuser = EXCLUDED.is_superuser, updated_at = NOW()
		RETURNING id`
	var id uint64
	err := pick(r.storage, tx).QueryRow(ctx, query, u.Username, u.FullName, u.PasswordHash, u.RoleID, u.IsSuperuser, u.IsActive).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateUser %s: %w", u.Username, err)
	}
	return id, nil
}

// Ping проверяет, что база отвечает. Нужен для аварийного входа.
func (r *UserRepository) Ping(ctx context.Context) error {
	return r.storage.Ping(ctx)
}
