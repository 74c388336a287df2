package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db     Pinger
	cache  Pinger
	logger *zap.Logger
}

func NewHealthController(db, cache Pinger, logger *zap.Logger) *HealthController {
	return &HealthController{db: db, cache: cache, logger: logger}
}

// Health: 200, если отвечают и база, и Redis, иначе 503.
func (ctrl *HealthController) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok", "redis": "ok"}
	code := http.StatusOK
	if err := ctrl.db.Ping(ctx); err != nil {
		ctrl.logger.Warn("health: база недоступна", zap.Error(err))
		checks["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := ctrl.cache.Ping(ctx); err != nil {
		ctrl.logger.Warn("health: Redis недоступен", zap.Error(err))
		checks["redis"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]interface{}{"status": code == http.StatusOK, "body": checks})
}
