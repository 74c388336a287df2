package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"warehouse-system/internal/repositories"

	"go.uber.org/zap"
)

type AuthPermissionServiceInterface interface {
	GetRolePermissionsNames(ctx context.Context, roleID uint64) ([]string, error)
	InvalidateRolePermissionsCache(ctx context.Context, roleID uint64) error
}

type AuthPermissionService struct {
	permissionRepo repositories.PermissionRepositoryInterface
	cacheRepo      repositories.CacheRepositoryInterface
	logger         *zap.Logger
	cacheTTL       time.Duration
}

func NewAuthPermissionService(
	permissionRepo repositories.PermissionRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	logger *zap.Logger,
	cacheTTL time.Duration,
) AuthPermissionServiceInterface {
	return &AuthPermissionService{
		permissionRepo: permissionRepo,
		cacheRepo:      cacheRepo,
		logger:         logger,
		cacheTTL:       cacheTTL,
	}
}

func rolePermissionsCacheKey(roleID uint64) string {
	return fmt.Sprintf("auth:permissions:role:%d", roleID)
}

// GetRolePermissionsNames: сначала Redis, при промахе или ошибке кеша - база.
func (s *AuthPermissionService) GetRolePermissionsNames(ctx context.Context, roleID uint64) ([]string, error) {
	cacheKey := rolePermissionsCacheKey(roleID)
	var permissions []string

	if cached, errGet := s.cacheRepo.Get(ctx, cacheKey); errGet == nil {
		if err := json.Unmarshal([]byte(cached), &permissions); err == nil {
			return permissions, nil
		}
		s.logger.Warn("AuthPermissionService: повреждённые привилегии в кеше", zap.String("key", cacheKey))
	} else {
		s.logger.Debug("AuthPermissionService: привилегий нет в кеше", zap.Uint64("roleID", roleID), zap.Error(errGet))
	}

	permissions, err := s.permissionRepo.GetPermissionsNamesByRoleID(ctx, roleID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(permissions); err == nil {
		if errSet := s.cacheRepo.Set(ctx, cacheKey, string(data), s.cacheTTL); errSet != nil {
			s.logger.Warn("AuthPermissionService: не удалось сохранить привилегии в кеш", zap.Uint64("roleID", roleID), zap.Error(errSet))
		}
	}
	return permissions, nil
}

func (s *AuthPermissionService) InvalidateRolePermissionsCache(ctx context.Context, roleID uint64) error {
	if err := s.cacheRepo.Del(ctx, rolePermissionsCacheKey(roleID)); err != nil {
		s.logger.Error("AuthPermissionService: ошибка инвалидации кеша привилегий", zap.Uint64("roleID", roleID), zap.Error(err))
		return err
	}
	return nil
}
