package middleware

import (
	"context"
	"strings"
	"time"

	"warehouse-system/internal/authz"
	"warehouse-system/pkg/contextkeys"
	apperrors "warehouse-system/pkg/errors"
	"warehouse-system/pkg/service"
	"warehouse-system/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const dbPingTimeout = 2 * time.Second

// AuthContextBuilder собирает контекст авторизации пользователя по id из токена.
type AuthContextBuilder interface {
	BuildAuthContext(ctx context.Context, userID uint64) (*authz.Context, error)
}

// Pinger - проверка доступности базы.
type Pinger interface {
	Ping(ctx context.Context) error
}

type AuthMiddleware struct {
	jwtService       service.JWTService
	builder          AuthContextBuilder
	db               Pinger
	emergencyEnabled bool
	logger           *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, builder AuthContextBuilder, db Pinger, emergencyEnabled bool, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:       jwtSvc,
		builder:          builder,
		db:               db,
		emergencyEnabled: emergencyEnabled,
		logger:           logger,
	}
}

// Auth кладёт authz.Context в контекст запроса.
// Аварийный режим выбирается только если он включён и база не отвечает.
func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.emergencyEnabled && !m.dbAlive(c.Request().Context()) {
			m.logger.Warn("AuthMiddleware: база недоступна, аварийный администратор",
				zap.String("path", c.Path()), zap.String("ip", c.RealIP()))
			return next(withAuthContext(c, authz.NewEmergencyContext(), 0))
		}

		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return utils.ErrorResponse(c, apperrors.ErrEmptyAuthHeader, m.logger)
		}
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return utils.ErrorResponse(c, apperrors.ErrInvalidAuthHeader, m.logger)
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			m.logger.Debug("AuthMiddleware: токен не прошёл проверку", zap.Error(err))
			return utils.ErrorResponse(c, err, m.logger)
		}
		if claims.IsRefreshToken {
			return utils.ErrorResponse(c, apperrors.ErrTokenIsNotAccess, m.logger)
		}

		ac, err := m.builder.BuildAuthContext(c.Request().Context(), claims.UserID)
		if err != nil {
			return utils.ErrorResponse(c, err, m.logger)
		}
		return next(withAuthContext(c, ac, claims.UserID))
	}
}

// Require пропускает запрос, только если check разрешает.
func (m *AuthMiddleware) Require(check authz.Check) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac, ok := authz.FromContext(c.Request().Context())
			if !ok {
				return utils.ErrorResponse(c, apperrors.ErrUnauthorized, m.logger)
			}
			if !ac.Can(check) {
				m.logger.Warn("AuthMiddleware: доступ запрещён",
					zap.String("user", ac.Username()),
					zap.String("check", check.String()),
					zap.String("path", c.Path()))
				return utils.ErrorResponse(c, apperrors.ErrForbidden, m.logger)
			}
			return next(c)
		}
	}
}

func (m *AuthMiddleware) dbAlive(ctx context.Context) bool {
	if m.db == nil {
		return true
	}
	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	return m.db.Ping(pingCtx) == nil
}

func withAuthContext(c echo.Context, ac *authz.Context, userID uint64) echo.Context {
	ctx := authz.WithContext(c.Request().Context(), ac)
	if userID != 0 {
		ctx = context.WithValue(ctx, contextkeys.UserIDKey, userID)
	}
	c.SetRequest(c.Request().WithContext(ctx))
	return c
}
