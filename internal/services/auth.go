package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"warehouse-system/internal/authz"
	"warehouse-system/internal/dto"
	"warehouse-system/internal/entities"
	"warehouse-system/internal/repositories"
	apperrors "warehouse-system/pkg/errors"
	"warehouse-system/pkg/service"
	"warehouse-system/pkg/utils"

	"go.uber.org/zap"
)

const (
	maxLoginAttempts = 5
	loginLockout     = 15 * time.Minute
)

type AuthServiceInterface interface {
	Login(ctx context.Context, payload dto.LoginDTO) (*dto.TokensDTO, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokensDTO, error)
	BuildAuthContext(ctx context.Context, userID uint64) (*authz.Context, error)
	Me(ctx context.Context) (*dto.MeDTO, error)
}

type AuthService struct {
	userRepo       repositories.UserRepositoryInterface
	cacheRepo      repositories.CacheRepositoryInterface
	permissionsSvc AuthPermissionServiceInterface
	jwtService     service.JWTService
	directory      DirectoryAuthenticator
	logger         *zap.Logger
}

func NewAuthService(
	userRepo repositories.UserRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	permissionsSvc AuthPermissionServiceInterface,
	jwtService service.JWTService,
	directory DirectoryAuthenticator,
	logger *zap.Logger,
) AuthServiceInterface {
	return &AuthService{
		userRepo:       userRepo,
		cacheRepo:      cacheRepo,
		permissionsSvc: permissionsSvc,
		jwtService:     jwtService,
		directory:      directory,
		logger:         logger,
	}
}

func loginAttemptsKey(username string) string {
	return "auth:login_attempts:" + strings.ToLower(strings.TrimSpace(username))
}

func (s *AuthService) Login(ctx context.Context, payload dto.LoginDTO) (*dto.TokensDTO, error) {
	logger := s.logger.With(zap.String("username", payload.Username))

	attemptsKey := loginAttemptsKey(payload.Username)
	attemptsStr, _ := s.cacheRepo.Get(ctx, attemptsKey)
	attempts, _ := strconv.Atoi(attemptsStr)
	if attempts >= maxLoginAttempts {
		logger.Warn("Слишком много неудачных попыток входа")
		return nil, apperrors.ErrInvalidCredentials
	}

	// окно блокировки отсчитывается от первой неудачи и не продлевается
	fail := func() (*dto.TokensDTO, error) {
		n, err := s.cacheRepo.Incr(ctx, attemptsKey)
		if err != nil {
			logger.Warn("не удалось увеличить счётчик попыток входа", zap.Error(err))
			return nil, apperrors.ErrInvalidCredentials
		}
		if n == 1 {
			if _, err := s.cacheRepo.Expire(ctx, attemptsKey, loginLockout); err != nil {
				logger.Warn("не удалось задать срок блокировки входа", zap.Error(err))
			}
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByUsername(ctx, payload.Username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			logger.Info("Вход: пользователь не найден")
			return fail()
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrUserDisabled
	}
	if err := s.verifyPassword(user, payload.Password); err != nil {
		if !errors.Is(err, apperrors.ErrInvalidCredentials) {
			return nil, err
		}
		logger.Info("Вход: неверный пароль")
		return fail()
	}

	if attempts > 0 {
		_ = s.cacheRepo.Del(ctx, attemptsKey)
	}
	logger.Info("Пользователь вошёл в систему", zap.Uint64("userID", user.ID))
	return s.issueTokens(user.ID)
}

// verifyPassword: пустой password_hash - доменная учётка, пароль проверяет каталог.
func (s *AuthService) verifyPassword(user *entities.User, password string) error {
	if user.PasswordHash != "" {
		if utils.ComparePasswords(user.PasswordHash, password) != nil {
			return apperrors.ErrInvalidCredentials
		}
		return nil
	}
	if s.directory == nil {
		return apperrors.ErrInvalidCredentials
	}
	return s.directory.Authenticate(user.Username, password)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.TokensDTO, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if !claims.IsRefreshToken {
		return nil, apperrors.ErrTokenIsNotRefresh
	}
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrUserDisabled
	}
	return s.issueTokens(user.ID)
}

func (s *AuthService) issueTokens(userID uint64) (*dto.TokensDTO, error) {
	access, refresh, err := s.jwtService.GenerateTokens(userID)
	if err != nil {
		return nil, fmt.Errorf("не удалось выпустить токены: %w", err)
	}
	return &dto.TokensDTO{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwtService.GetAccessTokenTTL().Seconds()),
	}, nil
}

// BuildAuthContext собирает контекст авторизации обычного режима.
func (s *AuthService) BuildAuthContext(ctx context.Context, userID uint64) (*authz.Context, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrUserDisabled
	}
	perms, err := s.permissionsSvc.GetRolePermissionsNames(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}
	return authz.NewNormalContext(user, perms), nil
}

func (s *AuthService) Me(ctx context.Context) (*dto.MeDTO, error) {
	ac, ok := authz.FromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}
	me := &dto.MeDTO{
		Username:    ac.Username(),
		Permissions: ac.PermissionList(),
	}
	switch m := ac.Mode.(type) {
	case authz.NormalMode:
		me.ID = m.User.ID
		me.FullName = m.User.FullName
		me.Role = m.User.RoleCode
		me.IsSuperuser = m.User.IsSuperuser
	case authz.EmergencyFallbackMode:
		me.Emergency = true
		me.Role = authz.RoleAdmin
	}
	return me, nil
}
