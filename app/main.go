package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"warehouse-system/internal/routes"
	"warehouse-system/pkg/config"
	"warehouse-system/pkg/customvalidator"
	"warehouse-system/pkg/database/postgresql"
	apperrors "warehouse-system/pkg/errors"
	"warehouse-system/pkg/eventbus"
	applogger "warehouse-system/pkg/logger"
	appmiddleware "warehouse-system/pkg/middleware"
	"warehouse-system/pkg/service"
	"warehouse-system/pkg/utils"
	"warehouse-system/pkg/websocket"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log.Level, cfg.Log.File)
	defer logger.Sync()

	e := echo.New()
	e.HideBanner = true
	v := validator.New()
	if err := customvalidator.RegisterCustomValidations(v); err != nil {
		logger.Fatal("Ошибка регистрации правил валидации", zap.Error(err))
	}
	e.Validator = utils.NewValidator(v)

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("Паника при обработке запроса",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err, nil)
				_ = utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(appmiddleware.RequestLogger(logger))
	e.Use(middleware.BodyLimit(bodyLimit(cfg.Upload.MaxSizeMB)))

	ctx := context.Background()
	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		if dbConn == nil || !cfg.Auth.EmergencyAdminEnabled {
			logger.Fatal("Не удалось подключиться к PostgreSQL", zap.Error(err))
		}
		logger.Warn("PostgreSQL недоступен, сервер стартует с аварийным администратором", zap.Error(err))
	}
	defer dbConn.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis недоступен, кеш работать не будет", zap.Error(err), zap.String("address", cfg.Redis.Address))
	}

	bus := eventbus.New(logger)
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	hub := websocket.NewHub(logger)
	go hub.Run(hubCtx)
	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL, logger)

	if err := routes.InitRouter(e, routes.Deps{
		DB:     dbConn,
		Redis:  redisClient,
		Bus:    bus,
		Hub:    hub,
		JWT:    jwtSvc,
		Config: cfg,
		Logger: logger,
	}); err != nil {
		logger.Fatal("Ошибка инициализации маршрутов", zap.Error(err))
	}

	go func() {
		logger.Info("Сервер запущен", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Ошибка запуска сервера", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки сервера", zap.Error(err))
	}
	bus.Wait()
	stopHub()
	logger.Info("Сервер остановлен")
}

// bodyLimit - лимит тела запроса с запасом на multipart-обёртку.
func bodyLimit(maxSizeMB int64) string {
	if maxSizeMB <= 0 {
		maxSizeMB = 20
	}
	return strconv.FormatInt(maxSizeMB+1, 10) + "M"
}
