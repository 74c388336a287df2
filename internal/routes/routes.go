package routes

import (
	"fmt"

	"warehouse-system/internal/controllers"
	"warehouse-system/internal/listeners"
	"warehouse-system/internal/repositories"
	"warehouse-system/internal/services"
	"warehouse-system/pkg/config"
	"warehouse-system/pkg/eventbus"
	"warehouse-system/pkg/filestorage"
	"warehouse-system/pkg/middleware"
	"warehouse-system/pkg/service"
	"warehouse-system/pkg/websocket"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Deps struct {
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Bus    *eventbus.Bus
	Hub    *websocket.Hub
	JWT    service.JWTService
	Config *config.Config
	Logger *zap.Logger
}

func InitRouter(e *echo.Echo, d Deps) error {
	d.Logger.Info("InitRouter: создание маршрутов")

	api := e.Group("/api")
	fileStorage, err := filestorage.NewLocalFileStorage(d.Config.Upload.Dir)
	if err != nil {
		return fmt.Errorf("не удалось создать файловое хранилище: %w", err)
	}
	txManager := repositories.NewTxManager(d.DB)

	// репозитории
	userRepo := repositories.NewUserRepository(d.DB, d.Logger)
	permissionRepo := repositories.NewPermissionRepository(d.DB, d.Logger)
	cacheRepo := repositories.NewRedisCacheRepository(d.Redis)
	uploadRepo := repositories.NewOpenOrderUploadRepository(d.DB, d.Logger)
	lineRepo := repositories.NewOpenOrderLineRepository(d.DB, d.Logger)
	snapshotRepo := repositories.NewOpenOrderSnapshotRepository(d.DB, d.Logger)
	schemaRepo := repositories.NewSchemaRepository(d.DB)

	// сервисы
	authPermissionService := services.NewAuthPermissionService(permissionRepo, cacheRepo, d.Logger, d.Config.Auth.PermissionsCacheTTL)
	var directory services.DirectoryAuthenticator
	if d.Config.LDAP.Enabled {
		directory = services.NewLDAPAuthenticator(d.Config.LDAP, d.Logger)
	}
	authService := services.NewAuthService(userRepo, cacheRepo, authPermissionService, d.JWT, directory, d.Logger)
	stateUpdater := services.NewOpenOrderStateUpdater(lineRepo, snapshotRepo, d.Logger)
	importService := services.NewOpenOrderImportService(txManager, uploadRepo, lineRepo, schemaRepo, stateUpdater, fileStorage, d.Bus, d.Logger)
	orderService := services.NewOpenOrderService(lineRepo, uploadRepo, snapshotRepo, cacheRepo, d.Logger)

	listeners.NewOpenOrderListener(orderService, d.Hub, d.Logger).Register(d.Bus)

	authMW := middleware.NewAuthMiddleware(d.JWT, authService, userRepo, d.Config.Auth.EmergencyAdminEnabled, d.Logger)

	api.GET("/health", controllers.NewHealthController(userRepo, cacheRepo, d.Logger).Health)
	runAuthRouter(api, controllers.NewAuthController(authService, d.Logger), authMW)
	runOpenOrderRouter(api, controllers.NewOpenOrderController(importService, orderService, d.Config.Upload.MaxSizeMB, d.Logger), authMW)
	// браузер не передаёт заголовки при открытии WebSocket, токен идёт в query
	api.GET("/ws/open-orders", controllers.NewWebSocketController(d.Hub, d.JWT, authService, d.Logger).ServeWs)

	d.Logger.Info("InitRouter: маршруты созданы")
	return nil
}
