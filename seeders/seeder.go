package seeders

import (
	"context"
	"fmt"
	"log"
	"sort"

	"warehouse-system/internal/authz"
	"warehouse-system/internal/entities"
	"warehouse-system/internal/repositories"
	"warehouse-system/pkg/config"
	"warehouse-system/pkg/utils"

	"github.com/jackc/pgx/v5"
)

var roleNames = map[string]string{
	authz.RoleAdmin:   "Администратор",
	authz.RoleManager: "Менеджер склада",
	authz.RoleViewer:  "Наблюдатель",
}

// SeedRolesAndPermissions создаёт права, роли и связи между ними. Повторный запуск безопасен.
func SeedRolesAndPermissions(ctx context.Context, txManager repositories.TxManagerInterface, permRepo repositories.PermissionRepositoryInterface) error {
	log.Println("▶️  Наполнение прав и ролей...")
	return txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		permIDs := make(map[string]uint64, len(authz.AllPermissions))
		for _, name := range sortedKeys(authz.AllPermissions) {
			id, err := permRepo.EnsurePermission(ctx, tx, name, authz.AllPermissions[name])
			if err != nil {
				return err
			}
			permIDs[name] = id
		}

		for _, code := range sortedKeys(roleNames) {
			roleID, err := permRepo.EnsureRole(ctx, tx, code, roleNames[code])
			if err != nil {
				return err
			}
			for _, perm := range authz.RolePermissions[code] {
				if err := permRepo.GrantPermission(ctx, tx, roleID, permIDs[perm]); err != nil {
					return err
				}
			}
			log.Printf("  - роль %s: %d прав", code, len(authz.RolePermissions[code]))
		}
		return nil
	})
}

// SeedAdmin создаёт суперпользователя с ролью admin или обновляет его пароль.
func SeedAdmin(ctx context.Context, txManager repositories.TxManagerInterface, permRepo repositories.PermissionRepositoryInterface, userRepo repositories.UserRepositoryInterface, cfg config.SeederConfig) error {
	if cfg.AdminPassword == "" {
		return fmt.Errorf("SEED_ADMIN_PASSWORD не задан")
	}
	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	log.Printf("▶️  Создание администратора %q...", cfg.AdminUsername)
	return txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		roleID, err := permRepo.EnsureRole(ctx, tx, authz.RoleAdmin, roleNames[authz.RoleAdmin])
		if err != nil {
			return err
		}
		_, err = userRepo.CreateUser(ctx, tx, &entities.User{
			Username:     cfg.AdminUsername,
			FullName:     "Администратор системы",
			PasswordHash: hash,
			RoleID:       roleID,
			IsSuperuser:  true,
			IsActive:     true,
		})
		return err
	})
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
